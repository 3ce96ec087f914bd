package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the row backing one participant slot.
type Record struct {
	ParticipantID string `gorm:"primaryKey"`
	Slot          string `gorm:"primaryKey"`
	Blob          []byte
	UpdatedAt     time.Time
}

func (Record) TableName() string {
	return "participant_records"
}

type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Load(ctx context.Context, participantID string, slot Slot) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("participant_id = ? AND slot = ?", participantID, string(slot)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	return rec.Blob, nil
}

func (s *SQLStore) Save(ctx context.Context, participantID string, slot Slot, blob []byte) error {
	return save(s.db.WithContext(ctx), participantID, slot, blob)
}

func (s *SQLStore) Delete(ctx context.Context, participantID string, slot Slot) error {
	return remove(s.db.WithContext(ctx), participantID, slot)
}

// Apply runs all mutations in one transaction.
func (s *SQLStore) Apply(ctx context.Context, mutations []Mutation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range mutations {
			var err error
			if m.Delete {
				err = remove(tx, m.ParticipantID, m.Slot)
			} else {
				err = save(tx, m.ParticipantID, m.Slot, m.Blob)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func save(db *gorm.DB, participantID string, slot Slot, blob []byte) error {
	rec := Record{
		ParticipantID: participantID,
		Slot:          string(slot),
		Blob:          blob,
		UpdatedAt:     time.Now(),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_id"}, {Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func remove(db *gorm.DB, participantID string, slot Slot) error {
	err := db.Where("participant_id = ? AND slot = ?", participantID, string(slot)).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
