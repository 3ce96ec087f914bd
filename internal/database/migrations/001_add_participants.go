package migrations

import (
	"gorm.io/gorm"

	"github.com/Imellstorm/wptest/internal/directory"
)

// AddParticipants creates the participant directory table
func AddParticipants(db *gorm.DB) error {
	return db.AutoMigrate(&directory.Participant{})
}
