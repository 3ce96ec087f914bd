package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateParticipant(ctx context.Context, p *Participant) error {
	return d.db.WithContext(ctx).Create(p).Error
}

// GetParticipantByName returns nil, nil when no participant has the name.
func (d *Database) GetParticipantByName(ctx context.Context, name string) (*Participant, error) {
	var p Participant
	if err := d.db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns participants in registration order.
func (d *Database) ListParticipants(ctx context.Context) ([]Participant, error) {
	var participants []Participant
	if err := d.db.WithContext(ctx).Order("id").Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

func (d *Database) UpdateName(ctx context.Context, p *Participant, newName string) error {
	return d.db.WithContext(ctx).Model(p).Update("name", newName).Error
}
