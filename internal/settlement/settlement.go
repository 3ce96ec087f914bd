package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Imellstorm/wptest/internal/catalog"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/locker"
	"github.com/Imellstorm/wptest/internal/metrics"
	"github.com/Imellstorm/wptest/internal/storage"
	"github.com/Imellstorm/wptest/internal/types"
	"github.com/Imellstorm/wptest/pkg/response"
)

type Service struct {
	db        *Database
	directory types.Directory
	locks     *locker.Locker
	metrics   *metrics.Metrics
}

func NewService(store storage.Store, directory types.Directory, locks *locker.Locker, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.NopMetrics()
	}
	return &Service{
		db:        NewDatabase(store),
		directory: directory,
		locks:     locks,
		metrics:   m,
	}
}

// Settle executes a trade against the bidder's pending bid: the counterparty
// hands over the offered lines and receives the bid lines. Either every
// change is stored or none is.
// Parameters:
//   - bidderName: owner of the pending bid
//   - counterpartyName: participant supplying the offer
//   - rawLines: JSON array of {name, count} taken from the counterparty
func (s *Service) Settle(ctx context.Context, bidderName, counterpartyName string, rawLines []byte) (result *Result, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Since(metrics.OpSettle, start)
		if err != nil {
			s.metrics.Rejected(metrics.OpSettle, err)
		}
	}()

	logger := log.With().
		Str("bidder", bidderName).
		Str("counterparty", counterpartyName).
		Str("service", "settlement").
		Logger()

	resolvedBidder, err := s.directory.Resolve(ctx, bidderName)
	if err != nil {
		return nil, err
	}
	resolvedCounterparty, err := s.directory.Resolve(ctx, counterpartyName)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(resolvedBidder.ID, resolvedCounterparty.ID)
	defer unlock()

	bidder := &party{id: resolvedBidder.ID, name: resolvedBidder.Name}
	counterparty := &party{id: resolvedCounterparty.ID, name: resolvedCounterparty.Name}

	if bidder.bid, err = s.db.GetBid(ctx, bidder.id); err != nil {
		logger.Error().Err(err).Msg("failed to load bidder bid")
		return nil, err
	}
	if bidder.bid == nil {
		return nil, types.Errorf(types.ErrNoBid, "%s has no pending bid", bidder.name)
	}

	if counterparty.bid, err = s.db.GetBid(ctx, counterparty.id); err != nil {
		logger.Error().Err(err).Msg("failed to load counterparty bid")
		return nil, err
	}
	if counterparty.bid != nil {
		return nil, types.Errorf(types.ErrCounterpartyHasOpenBid, "%s has an open bid and cannot trade", counterparty.name)
	}

	for _, p := range []*party{counterparty, bidder} {
		if p.inventory, err = s.db.GetInventory(ctx, p.id); err != nil {
			logger.Error().Err(err).Str("participant", p.name).Msg("failed to load inventory")
			return nil, err
		}
		if p.inventory == nil {
			return nil, types.Errorf(types.ErrNoInventory, "%s has no inventory", p.name)
		}
	}

	requested, err := types.ParseLines(rawLines)
	if err != nil {
		return nil, err
	}

	offer, offerValue, err := priceOffer(counterparty.inventory, requested)
	if err != nil {
		logger.Debug().Err(err).Msg("offer rejected")
		return nil, err
	}
	if bidder.bid.TotalValue > offerValue {
		return nil, types.Errorf(types.ErrOfferTooLow, "offer worth %d is below the bid of %d", offerValue, bidder.bid.TotalValue)
	}

	if err := swap(bidder, counterparty, offer); err != nil {
		logger.Error().Err(err).Msg("inventories no longer cover the trade")
		return nil, err
	}

	if err := s.db.CommitTrade(ctx, bidder, counterparty); err != nil {
		logger.Error().Err(err).Msg("failed to commit trade")
		return nil, err
	}

	result = &Result{
		SettlementID: "STL_" + uuid.New().String(),
		Bidder:       bidder.name,
		Counterparty: counterparty.name,
		TotalValue:   offerValue,
		Lines:        offer,
		SettledAt:    time.Now().UTC(),
	}

	s.metrics.Settlements.Inc()
	s.metrics.SettledValue.Add(float64(offerValue))
	logger.Info().
		Str("settlement_id", result.SettlementID).
		Int("offer_value", offerValue).
		Int("bid_value", bidder.bid.TotalValue).
		Msg("trade settled")

	return result, nil
}

// priceOffer prices each requested line from the counterparty's inventory.
// Repeated lines of one kind must be covered together.
func priceOffer(inv *inventory.Inventory, requested []types.RequestedLine) ([]inventory.Line, int, error) {
	offer := make([]inventory.Line, 0, len(requested))
	reserved := make(map[string]int, len(requested))
	total := 0

	for _, line := range requested {
		price, err := inv.ValueOf(line.Name)
		if err != nil {
			return nil, 0, types.Errorf(types.ErrUnknownItem, "counterparty holds no %s", line.Name)
		}

		key := catalog.Key(line.Name)
		reserved[key] += line.Count
		if held := inv.Count(line.Name); reserved[key] > held {
			return nil, 0, types.Errorf(types.ErrInsufficientQuantity, "offer needs %d %s, counterparty holds %d", reserved[key], line.Name, held)
		}

		offer = append(offer, inventory.Line{Name: line.Name, UnitPrice: price, Count: line.Count})
		total += price * line.Count
	}

	return offer, total, nil
}

// swap moves the offer to the bidder, then the bid to the counterparty. Both
// passes run on copies; the parties' inventories are replaced only when both
// succeed.
func swap(bidder, counterparty *party, offer []inventory.Line) error {
	bidderInv := bidder.inventory.Clone()
	counterpartyInv := counterparty.inventory.Clone()

	for _, line := range offer {
		if err := counterpartyInv.RemoveOrDecrement(line.Name, line.Count); err != nil {
			return fmt.Errorf("move offer: %w", err)
		}
		if err := bidderInv.AddOrIncrement(line.Name, line.UnitPrice, line.Count); err != nil {
			return fmt.Errorf("move offer: %w", err)
		}
	}

	for _, line := range bidder.bid.Lines {
		if err := bidderInv.RemoveOrDecrement(line.Name, line.Count); err != nil {
			return fmt.Errorf("move bid: %w", err)
		}
		if err := counterpartyInv.AddOrIncrement(line.Name, line.UnitPrice, line.Count); err != nil {
			return fmt.Errorf("move bid: %w", err)
		}
	}

	bidder.inventory = bidderInv
	counterparty.inventory = counterpartyInv
	return nil
}

// GinHandlers contains HTTP handlers for settlement endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SettleTradeHandler handles POST /trades
// Request body: {"bidder":"alice","counterparty":"bob","items":"[{\"name\":\"Shirt\",\"count\":1}]"}
func (h *GinHandlers) SettleTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.service.Settle(c.Request.Context(), req.Bidder, req.Counterparty, req.Items)
		response.Handle(c, result, err)
	}
}
