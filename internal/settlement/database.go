package settlement

import (
	"context"
	"fmt"

	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/storage"
)

// party is the stored state of one side of a trade
type party struct {
	id        string
	name      string
	inventory *inventory.Inventory
	bid       *bidding.Bid
}

type Database struct {
	store       storage.Store
	inventories *inventory.Database
	bids        *bidding.Database
}

func NewDatabase(store storage.Store) *Database {
	return &Database{
		store:       store,
		inventories: inventory.NewDatabase(store),
		bids:        bidding.NewDatabase(store),
	}
}

func (d *Database) GetBid(ctx context.Context, participantID string) (*bidding.Bid, error) {
	return d.bids.GetBid(ctx, participantID)
}

func (d *Database) GetInventory(ctx context.Context, participantID string) (*inventory.Inventory, error) {
	return d.inventories.GetInventory(ctx, participantID)
}

// CommitTrade writes both new inventories and drops the bidder's bid in one
// batch.
func (d *Database) CommitTrade(ctx context.Context, bidder, counterparty *party) error {
	counterpartyWrite, err := inventory.SaveMutation(counterparty.id, counterparty.inventory)
	if err != nil {
		return err
	}
	bidderWrite, err := inventory.SaveMutation(bidder.id, bidder.inventory)
	if err != nil {
		return err
	}

	mutations := []storage.Mutation{
		counterpartyWrite,
		bidderWrite,
		bidding.DeleteMutation(bidder.id),
	}
	if err := storage.Apply(ctx, d.store, mutations); err != nil {
		return fmt.Errorf("commit trade: %w", err)
	}
	return nil
}
