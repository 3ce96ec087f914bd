package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Imellstorm/wptest/internal/storage"
)

type Database struct {
	store storage.Store
}

func NewDatabase(store storage.Store) *Database {
	return &Database{store: store}
}

// GetInventory returns nil, nil when the participant has no inventory.
func (d *Database) GetInventory(ctx context.Context, participantID string) (*Inventory, error) {
	blob, err := d.store.Load(ctx, participantID, storage.SlotInventory)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	inv, err := Unmarshal(blob)
	if err != nil {
		return nil, fmt.Errorf("corrupt inventory for %s: %w", participantID, err)
	}
	return inv, nil
}

func (d *Database) SaveInventory(ctx context.Context, participantID string, inv *Inventory) error {
	mutation, err := SaveMutation(participantID, inv)
	if err != nil {
		return err
	}
	if err := d.store.Save(ctx, mutation.ParticipantID, mutation.Slot, mutation.Blob); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

// SaveMutation encodes inv as a write for a storage batch.
func SaveMutation(participantID string, inv *Inventory) (storage.Mutation, error) {
	blob, err := Marshal(inv)
	if err != nil {
		return storage.Mutation{}, fmt.Errorf("encode inventory: %w", err)
	}
	return storage.Mutation{ParticipantID: participantID, Slot: storage.SlotInventory, Blob: blob}, nil
}
