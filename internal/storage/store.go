package storage

import (
	"context"
	"errors"
	"fmt"
)

// Slot names a per-participant record.
type Slot string

const (
	SlotInventory  Slot = "inventory"
	SlotPendingBid Slot = "pending_bid"
)

var ErrNotFound = errors.New("storage: record not found")

// Store is a per-participant key-value store of opaque blobs.
type Store interface {
	// Load returns ErrNotFound when nothing is stored under the key
	Load(ctx context.Context, participantID string, slot Slot) ([]byte, error)

	// Save creates or replaces the record
	Save(ctx context.Context, participantID string, slot Slot, blob []byte) error

	// Delete removes the record; deleting a missing record is not an error
	Delete(ctx context.Context, participantID string, slot Slot) error
}

// Mutation is one write of a batch. Delete wins over Blob.
type Mutation struct {
	ParticipantID string
	Slot          Slot
	Blob          []byte
	Delete        bool
}

// Batcher is implemented by stores that can apply several writes atomically.
type Batcher interface {
	Apply(ctx context.Context, mutations []Mutation) error
}

// Apply writes all mutations, atomically when the store supports it and in
// order otherwise.
func Apply(ctx context.Context, s Store, mutations []Mutation) error {
	if b, ok := s.(Batcher); ok {
		return b.Apply(ctx, mutations)
	}

	for _, m := range mutations {
		if err := apply(ctx, s, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, s Store, m Mutation) error {
	if m.Delete {
		if err := s.Delete(ctx, m.ParticipantID, m.Slot); err != nil {
			return fmt.Errorf("delete %s/%s: %w", m.ParticipantID, m.Slot, err)
		}
		return nil
	}
	if err := s.Save(ctx, m.ParticipantID, m.Slot, m.Blob); err != nil {
		return fmt.Errorf("save %s/%s: %w", m.ParticipantID, m.Slot, err)
	}
	return nil
}
