package bidding

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

// GetBid returns nil, nil when the participant has no pending bid.
func (d *Database) GetBid(ctx context.Context, participantID string) (*Bid, error) {
	blob, err := d.store.Load(ctx, participantID, storage.SlotPendingBid)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bid: %w", err)
	}

	bid, err := Unmarshal(blob)
	if err != nil {
		return nil, fmt.Errorf("corrupt bid for %s: %w", participantID, err)
	}
	return bid, nil
}

func (d *Database) SaveBid(ctx context.Context, participantID string, bid *Bid) error {
	blob, err := Marshal(bid)
	if err != nil {
		return fmt.Errorf("encode bid: %w", err)
	}
	if err := d.store.Save(ctx, participantID, storage.SlotPendingBid, blob); err != nil {
		return fmt.Errorf("save bid: %w", err)
	}
	return nil
}

// DeleteMutation removes the participant's pending bid as part of a batch.
func DeleteMutation(participantID string) storage.Mutation {
	return storage.Mutation{ParticipantID: participantID, Slot: storage.SlotPendingBid, Delete: true}
}
