package bidding

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Imellstorm/wptest/internal/catalog"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/locker"
	"github.com/Imellstorm/wptest/internal/metrics"
	"github.com/Imellstorm/wptest/internal/storage"
	"github.com/Imellstorm/wptest/internal/types"
	"github.com/Imellstorm/wptest/pkg/response"
)

// Service places and lists pending bids
type Service struct {
	db          *Database
	inventories *inventory.Database
	directory   types.Directory
	locks       *locker.Locker
	metrics     *metrics.Metrics
}

// NewService creates a bid service on top of the given store
func NewService(store storage.Store, directory types.Directory, locks *locker.Locker, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.NopMetrics()
	}
	return &Service{
		db:          NewDatabase(store),
		inventories: inventory.NewDatabase(store),
		directory:   directory,
		locks:       locks,
		metrics:     m,
	}
}

// PlaceBid escrows part of a participant's inventory as their pending bid.
// Checks run in order: participant known, inventory present, no pending bid,
// well-formed lines, then every line held in sufficient quantity. The
// inventory itself is never modified here.
// Parameters:
//   - name: the bidding participant
//   - rawLines: JSON array of {name, count}
func (s *Service) PlaceBid(ctx context.Context, name string, rawLines []byte) (bid *Bid, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Since(metrics.OpPlaceBid, start)
		if err != nil {
			s.metrics.Rejected(metrics.OpPlaceBid, err)
		}
	}()

	logger := log.With().
		Str("participant", name).
		Str("service", "bidding").
		Logger()

	participant, err := s.directory.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(participant.ID)
	defer unlock()

	inv, err := s.inventories.GetInventory(ctx, participant.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load inventory")
		return nil, err
	}
	if inv == nil {
		return nil, types.Errorf(types.ErrNoInventory, "%s has no inventory", participant.Name)
	}

	existing, err := s.db.GetBid(ctx, participant.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load pending bid")
		return nil, err
	}
	if existing != nil {
		return nil, types.Errorf(types.ErrDuplicateBid, "%s already has a pending bid", participant.Name)
	}

	requested, err := types.ParseLines(rawLines)
	if err != nil {
		return nil, err
	}

	bid, err = escrow(inv, requested)
	if err != nil {
		logger.Debug().Err(err).Msg("bid rejected")
		return nil, err
	}

	if err := s.db.SaveBid(ctx, participant.ID, bid); err != nil {
		logger.Error().Err(err).Msg("failed to save bid")
		return nil, err
	}

	s.metrics.BidsPlaced.Inc()
	logger.Info().
		Str("participant_id", participant.ID).
		Int("total_value", bid.TotalValue).
		Int("lines", len(bid.Lines)).
		Msg("bid placed")

	return bid, nil
}

// escrow prices the requested lines from the inventory. Repeated lines of one
// kind are checked against the held quantity together.
func escrow(inv *inventory.Inventory, requested []types.RequestedLine) (*Bid, error) {
	bid := &Bid{Lines: make([]inventory.Line, 0, len(requested))}
	reserved := make(map[string]int, len(requested))

	for _, line := range requested {
		price, err := inv.ValueOf(line.Name)
		if err != nil {
			return nil, types.Errorf(types.ErrUnknownItem, "no %s to bid", line.Name)
		}

		key := catalog.Key(line.Name)
		reserved[key] += line.Count
		if held := inv.Count(line.Name); reserved[key] > held {
			return nil, types.Errorf(types.ErrInsufficientQuantity, "bid needs %d %s, holding %d", reserved[key], line.Name, held)
		}

		bid.Lines = append(bid.Lines, inventory.Line{Name: line.Name, UnitPrice: price, Count: line.Count})
		bid.TotalValue += price * line.Count
	}

	return bid, nil
}

// ListBids returns every pending bid in directory order
func (s *Service) ListBids(ctx context.Context) ([]Listing, error) {
	participants, err := s.directory.List(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]Listing, 0)
	for _, p := range participants {
		bid, err := s.db.GetBid(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if bid == nil {
			continue
		}
		listings = append(listings, Listing{Participant: p.Name, Bid: bid})
	}
	return listings, nil
}

// GetBid returns the pending bid of a participant
func (s *Service) GetBid(ctx context.Context, name string) (*Bid, error) {
	participant, err := s.directory.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	bid, err := s.db.GetBid(ctx, participant.ID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, types.Errorf(types.ErrNoBid, "%s has no pending bid", participant.Name)
	}
	return bid, nil
}

// GinHandlers contains HTTP handlers for bid endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// PlaceBidHandler handles POST requests placing a bid
// URL parameter: name
// Request body: [{"name":"Water","count":2},{"name":"Dog","count":1}]
func (h *GinHandlers) PlaceBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		bid, err := h.service.PlaceBid(c.Request.Context(), c.Param("name"), body)
		response.Handle(c, bid, err)
	}
}

// GetBidHandler handles GET requests for a participant's pending bid
// URL parameter: name
func (h *GinHandlers) GetBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bid, err := h.service.GetBid(c.Request.Context(), c.Param("name"))
		response.Handle(c, bid, err)
	}
}

// ListBidsHandler handles GET requests listing all pending bids
func (h *GinHandlers) ListBidsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listings, err := h.service.ListBids(c.Request.Context())
		response.Handle(c, listings, err)
	}
}
