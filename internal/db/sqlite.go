package db

import (
	"github.com/glebarez/sqlite"
	"github.com/yicone/chatgpt-web-share/internal/db/models"
	"gorm.io/gorm"
)

// InitDB initializes the SQLite database connection and runs migrations.
func InitDB(dbPath string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(&models.Account{}, &models.Conversation{}); err != nil {
		return nil, err
	}

	return database, nil
}
