package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dacalc/models"
	"dacalc/pkg/config"
)

func main() {
	clientID := flag.String("client", "", "client_id to update")
	secret := flag.String("secret", "", "new client secret (min 12 chars)")
	disable := flag.Bool("disable", false, "disable the client instead of rotating its secret")
	enable := flag.Bool("enable", false, "re-enable a disabled client")
	flag.Parse()
	if *clientID == "" {
		log.Fatal("--client is required")
	}
	if !*disable && !*enable && len(*secret) < 12 {
		log.Fatal("--secret too short (min 12)")
	}
	config.LoadDotEnv(".env")
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	var client models.APIClient
	if err := db.Where("client_id = ?", *clientID).First(&client).Error; err != nil {
		log.Fatalf("client not found: %v", err)
	}
	switch {
	case *disable, *enable:
		if err := db.Model(&client).Update("disabled", *disable).Error; err != nil {
			log.Fatalf("update failed: %v", err)
		}
		fmt.Printf("Client %s disabled=%v\n", client.ClientID, *disable)
	default:
		hash, err := bcrypt.GenerateFromPassword([]byte(*secret), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("bcrypt: %v", err)
		}
		if err := db.Model(&client).Update("secret_hash", hash).Error; err != nil {
			log.Fatalf("update failed: %v", err)
		}
		fmt.Printf("Secret rotated for client %s\n", client.ClientID)
	}
}
