package main

import (
	"errors"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dacalc/models"
	"dacalc/pkg/config"
)

// db is nil when DB_DSN is not set; history and token endpoints answer 503 then.
var db *gorm.DB

var errNoDB = errors.New("history store disabled (DB_DSN not set)")

func initDB(c *config.Config) {
	if c.DBDSN == "" {
		log.Warn("DB_DSN is not set; recognition history and API clients are disabled")
		return
	}
	var err error
	db, err = gorm.Open(postgres.Open(c.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Migrate models individually so a failure on one doesn't block others.
	// Permission errors are logged and ignored.
	if c.DBAutoMigrate {
		if err := db.AutoMigrate(&models.Recognition{}); err != nil {
			log.Warnf("migration warning (recognitions): %v", err)
		}
		if err := db.AutoMigrate(&models.RecognitionRegion{}); err != nil {
			log.Warnf("migration warning (recognition_regions): %v", err)
		}
		if err := db.AutoMigrate(&models.APIClient{}); err != nil {
			log.Warnf("migration warning (api_clients): %v", err)
		}
	}
	seedDB(c)
}

func seedDB(c *config.Config) {
	if c.SeedClientID != "" && c.SeedClientSecret != "" {
		var count int64
		db.Model(&models.APIClient{}).Where("client_id = ?", c.SeedClientID).Count(&count)
		if count == 0 {
			hash, err := bcrypt.GenerateFromPassword([]byte(c.SeedClientSecret), bcrypt.DefaultCost)
			if err != nil {
				log.Errorf("hash seed client secret: %v", err)
			} else if err := db.Create(&models.APIClient{ClientID: c.SeedClientID, SecretHash: hash, Description: "seeded"}).Error; err != nil {
				log.Errorf("seed api client: %v", err)
			} else {
				log.Infof("Seeded api client: client_id=%s", c.SeedClientID)
			}
		}
	}
	ensureUploadBase()
}

// saveRecognition stores rec with its regions; a no-op without a database.
func saveRecognition(rec *models.Recognition) error {
	if db == nil {
		return errNoDB
	}
	return db.Create(rec).Error
}

// ensureUploadBase creates the directory uploaded captures are kept in.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(filepath.Join(base, "captures"), 0755); err != nil {
		log.Warnf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for uploaded captures (UPLOAD_BASE).
func uploadBaseDir() string {
	if cfg != nil && cfg.UploadBase != "" {
		return cfg.UploadBase
	}
	return "uploads"
}
