// Package trade wires the participant directory, the record store and the
// trading engines into one service. Both transports serve from it.
package trade

import (
	"context"

	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/locker"
	"github.com/Imellstorm/wptest/internal/metrics"
	"github.com/Imellstorm/wptest/internal/settlement"
	"github.com/Imellstorm/wptest/internal/storage"
	"github.com/Imellstorm/wptest/internal/types"
)

// Registry is a participant directory that can also register and rename
type Registry interface {
	types.Directory
	Create(ctx context.Context, name string) (*types.Participant, error)
	Rename(ctx context.Context, name, newName string) (*types.Participant, error)
}

type Service struct {
	Participants Registry
	Inventories  *inventory.Service
	Bids         *bidding.Service
	Trades       *settlement.Service
}

// New builds the engines over one store and one lock table, so a settlement
// and a bid on the same participant never interleave.
func New(registry Registry, store storage.Store, generator *inventory.Generator, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.NopMetrics()
	}
	locks := locker.New()
	return &Service{
		Participants: registry,
		Inventories:  inventory.NewService(store, registry, locks, generator, m),
		Bids:         bidding.NewService(store, registry, locks, m),
		Trades:       settlement.NewService(store, registry, locks, m),
	}
}

func (s *Service) ListParticipants(ctx context.Context) ([]types.Participant, error) {
	return s.Participants.List(ctx)
}

func (s *Service) CreateParticipant(ctx context.Context, name string) (*types.Participant, error) {
	return s.Participants.Create(ctx, name)
}

func (s *Service) RenameParticipant(ctx context.Context, name, newName string) (*types.Participant, error) {
	return s.Participants.Rename(ctx, name, newName)
}

func (s *Service) Generate(ctx context.Context, name string) (*inventory.Inventory, error) {
	return s.Inventories.Generate(ctx, name)
}

func (s *Service) GetInventory(ctx context.Context, name string) (*inventory.Inventory, error) {
	return s.Inventories.Get(ctx, name)
}

func (s *Service) PlaceBid(ctx context.Context, name string, rawLines []byte) (*bidding.Bid, error) {
	return s.Bids.PlaceBid(ctx, name, rawLines)
}

func (s *Service) ListBids(ctx context.Context) ([]bidding.Listing, error) {
	return s.Bids.ListBids(ctx)
}

func (s *Service) Settle(ctx context.Context, bidder, counterparty string, rawLines []byte) (*settlement.Result, error) {
	return s.Trades.Settle(ctx, bidder, counterparty, rawLines)
}
