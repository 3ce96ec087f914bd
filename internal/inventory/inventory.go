package inventory

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Imellstorm/wptest/internal/locker"
	"github.com/Imellstorm/wptest/internal/metrics"
	"github.com/Imellstorm/wptest/internal/storage"
	"github.com/Imellstorm/wptest/internal/types"
	"github.com/Imellstorm/wptest/pkg/response"
)

// Service creates and reads participant inventories
type Service struct {
	db        *Database
	directory types.Directory
	locks     *locker.Locker
	generator *Generator
	metrics   *metrics.Metrics
}

// NewService creates an inventory service on top of the given store
func NewService(store storage.Store, directory types.Directory, locks *locker.Locker, generator *Generator, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.NopMetrics()
	}
	return &Service{
		db:        NewDatabase(store),
		directory: directory,
		locks:     locks,
		generator: generator,
		metrics:   m,
	}
}

// Generate creates the starting inventory of a participant. A participant
// gets exactly one; later calls fail with ErrAlreadyExists and leave the
// stored inventory alone.
func (s *Service) Generate(ctx context.Context, name string) (inv *Inventory, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Since(metrics.OpGenerate, start)
		if err != nil {
			s.metrics.Rejected(metrics.OpGenerate, err)
		}
	}()

	logger := log.With().
		Str("participant", name).
		Str("service", "inventory").
		Logger()

	participant, err := s.directory.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(participant.ID)
	defer unlock()

	existing, err := s.db.GetInventory(ctx, participant.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load inventory")
		return nil, err
	}
	if existing != nil {
		return nil, types.Errorf(types.ErrAlreadyExists, "%s already has an inventory", participant.Name)
	}

	inv = s.generator.Generate()
	if err := s.db.SaveInventory(ctx, participant.ID, inv); err != nil {
		logger.Error().Err(err).Msg("failed to save generated inventory")
		return nil, err
	}

	s.metrics.InventoriesGenerated.Inc()
	s.metrics.GeneratedValue.Add(float64(inv.TotalValue))
	logger.Info().
		Str("participant_id", participant.ID).
		Int("total_value", inv.TotalValue).
		Int("lines", len(inv.Lines)).
		Msg("generated inventory")

	return inv, nil
}

// Get returns the current inventory of a participant
func (s *Service) Get(ctx context.Context, name string) (*Inventory, error) {
	participant, err := s.directory.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	inv, err := s.db.GetInventory(ctx, participant.ID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, types.Errorf(types.ErrNoInventory, "%s has no inventory", participant.Name)
	}
	return inv, nil
}

// GinHandlers contains HTTP handlers for inventory endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateHandler handles POST requests generating a participant's items
// URL parameter: name
func (h *GinHandlers) GenerateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		inv, err := h.service.Generate(c.Request.Context(), c.Param("name"))
		response.Handle(c, inv, err)
	}
}

// GetInventoryHandler handles GET requests for a participant's items
// URL parameter: name
func (h *GinHandlers) GetInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		inv, err := h.service.Get(c.Request.Context(), c.Param("name"))
		response.Handle(c, inv, err)
	}
}
