package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dacalc/models"
	"dacalc/pkg/config"
)

// Creates an API client allowed to call POST /token. When no secret is given a
// random one is generated and printed once.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run ./cmd/create_client <client_id> [secret] [description]")
		os.Exit(2)
	}
	config.LoadDotEnv(".env")
	clientID := strings.TrimSpace(os.Args[1])
	secret := ""
	if len(os.Args) > 2 {
		secret = os.Args[2]
	}
	description := ""
	if len(os.Args) > 3 {
		description = strings.Join(os.Args[3:], " ")
	}
	generated := false
	if secret == "" {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("random secret: %v", err)
		}
		secret = hex.EncodeToString(buf)
		generated = true
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	// check existing
	var existing models.APIClient
	if err := db.Where("client_id = ?", clientID).First(&existing).Error; err == nil {
		fmt.Printf("client %s already exists (id=%d)\n", clientID, existing.ID)
		os.Exit(0)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	client := models.APIClient{ClientID: clientID, SecretHash: hash, Description: description}
	if err := db.Create(&client).Error; err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	fmt.Printf("created client %s id=%d\n", clientID, client.ID)
	if generated {
		fmt.Printf("secret: %s\n", secret)
	}
}
