package directory

import (
	"gorm.io/gorm"

	"github.com/Imellstorm/wptest/internal/types"
)

// Participant is a registered trader. State is keyed by ParticipantID, so a
// rename keeps inventory and bids attached.
type Participant struct {
	gorm.Model    `json:"-"`
	ParticipantID string `gorm:"uniqueIndex;not null" json:"participant_id"`
	Name          string `gorm:"uniqueIndex;not null" json:"name"`
	// bcrypt hash of the secret handed out by Create
	SecretHash string `gorm:"not null;default:''" json:"-"`
}

func (p *Participant) toType() types.Participant {
	return types.Participant{ID: p.ParticipantID, Name: p.Name}
}

// CreateParticipantRequest is the body of POST /participants
type CreateParticipantRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameParticipantRequest is the body of PUT /participants/:name
type RenameParticipantRequest struct {
	NewName string `json:"new_name" binding:"required"`
}
