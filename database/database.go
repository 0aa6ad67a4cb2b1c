package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"melodia/config"
	"melodia/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() *gorm.DB {
	dsn := config.AppConfig.DatabaseURL

	// GORM logger configuration
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: newLogger,
		// The unique index on users.email is the authoritative duplicate
		// guard; translated errors let the service layer recognize it.
		TranslateError: true,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect database: %w", err))
	}

	// AutoMigrate models including the user_liked_tracks join table
	if err := db.AutoMigrate(&models.User{}, &models.Track{}); err != nil {
		panic(fmt.Errorf("failed to migrate database: %w", err))
	}

	DB = db
	fmt.Println("Database connection successful and migrations complete.")

	SeedInitialData(DB)

	return db
}

// SeedInitialData seeds an initial admin account and a starter track catalog.
func SeedInitialData(db *gorm.DB) {
	var adminUser models.User
	if err := db.Where("email = ?", "admin@melodia.local").First(&adminUser).Error; err == gorm.ErrRecordNotFound {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("adminpassword"), bcrypt.DefaultCost)
		adminUser = models.User{
			Name:     "admin",
			Email:    "admin@melodia.local",
			Password: string(hashedPassword),
			Role:     "admin",
		}
		if err := db.Create(&adminUser).Error; err != nil {
			log.Printf("Failed to create initial admin user: %v\n", err)
		} else {
			log.Println("Created initial admin user.")
		}
	}

	var trackCount int64
	if err := db.Model(&models.Track{}).Count(&trackCount).Error; err != nil {
		log.Printf("Failed to count tracks: %v\n", err)
		return
	}
	if trackCount > 0 {
		return
	}

	tracks := []models.Track{
		{Title: "Aurora", Artist: "Nightdrive"},
		{Title: "Paper Planes", Artist: "The Halyards"},
		{Title: "Undertow", Artist: "Mara Lin"},
	}
	for _, tr := range tracks {
		if err := db.Create(&tr).Error; err != nil {
			log.Printf("Failed to seed track %s: %v\n", tr.Title, err)
		}
	}
	log.Printf("Seeded %d catalog tracks.\n", len(tracks))
}
