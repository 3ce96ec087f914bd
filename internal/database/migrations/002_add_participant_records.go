package migrations

import (
	"gorm.io/gorm"

	"github.com/Imellstorm/wptest/internal/storage"
)

// AddParticipantRecords creates the per-participant slot table and its
// indexes
func AddParticipantRecords(db *gorm.DB) error {
	if err := db.AutoMigrate(&storage.Record{}); err != nil {
		return err
	}

	indexes := []string{
		// Listing pending bids scans one slot across participants
		`CREATE INDEX IF NOT EXISTS idx_participant_records_slot
		 ON participant_records(slot)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
