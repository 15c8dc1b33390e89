package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/gorm"

	"leadcrm/internal/config"
	"leadcrm/internal/database"
	"leadcrm/internal/domain"
	"leadcrm/internal/services"
)

const (
	defaultAdminEmail    = "admin@leadcrm.local"
	defaultAdminPassword = "admin123"
)

func main() {
	// Load configuration
	if _, err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	if err := database.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	db := database.GetDB()

	email := strings.ToLower(strings.TrimSpace(envOr("ADMIN_EMAIL", defaultAdminEmail)))
	password := envOr("ADMIN_PASSWORD", defaultAdminPassword)

	// Check if admin already exists
	var existingUser domain.User
	err := db.Where("email = ?", email).First(&existingUser).Error
	if err == nil {
		if existingUser.Role != domain.RoleAdmin {
			if err := db.Model(&existingUser).Update("role", domain.RoleAdmin).Error; err != nil {
				log.Fatalf("Failed to promote user: %v", err)
			}
			fmt.Printf("User %s promoted to ADMIN\n", email)
			return
		}
		fmt.Println("Admin user already exists!")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("Failed to look up admin user: %v", err)
	}

	if _, err := services.CreateUser(context.Background(), db, email, password, domain.RoleAdmin); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Println("Admin user created successfully!")
	fmt.Printf("Email: %s\n", email)
	if password == defaultAdminPassword {
		fmt.Printf("Password: %s\n", password)
		fmt.Println("Please change the password after first login!")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
