package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Imellstorm/wptest/internal/types"
	"github.com/Imellstorm/wptest/pkg/response"
)

// Service is the participant directory backed by GORM. It resolves names for
// the trading services.
type Service struct {
	db *Database
	// serializes name changes so the taken-name check and the write agree
	mu sync.Mutex
	// bcrypt cost for participant secrets
	cost int
}

var _ types.Directory = (*Service)(nil)

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:   NewDatabase(gormDB),
		cost: bcrypt.DefaultCost,
	}
}

func newSecret() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Create registers a participant under a new ID. The returned participant
// carries its secret; only a hash of it is kept.
func (s *Service) Create(ctx context.Context, name string) (*types.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.Errorf(types.ErrMalformedInput, "participant name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.db.GetParticipantByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}
	if existing != nil {
		return nil, types.Errorf(types.ErrAlreadyExists, "participant %s already exists", name)
	}

	secret := newSecret()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	p := &Participant{
		ParticipantID: uuid.New().String(),
		Name:          name,
		SecretHash:    string(hash),
	}
	if err := s.db.CreateParticipant(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.Errorf(types.ErrAlreadyExists, "participant %s already exists", name)
		}
		return nil, fmt.Errorf("create participant: %w", err)
	}

	log.Info().
		Str("participant", name).
		Str("participant_id", p.ParticipantID).
		Str("service", "directory").
		Msg("participant created")

	out := p.toType()
	out.Secret = secret
	return &out, nil
}

// Authenticate checks a participant's secret. An unknown name and a wrong
// secret fail alike with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, name, secret string) (types.Participant, error) {
	p, err := s.db.GetParticipantByName(ctx, name)
	if err != nil {
		return types.Participant{}, fmt.Errorf("lookup participant: %w", err)
	}
	if p == nil || bcrypt.CompareHashAndPassword([]byte(p.SecretHash), []byte(secret)) != nil {
		return types.Participant{}, types.Errorf(types.ErrInvalidCredentials, "invalid name or secret")
	}
	return p.toType(), nil
}

// Resolve looks a participant up by exact name
func (s *Service) Resolve(ctx context.Context, name string) (types.Participant, error) {
	p, err := s.db.GetParticipantByName(ctx, name)
	if err != nil {
		return types.Participant{}, fmt.Errorf("lookup participant: %w", err)
	}
	if p == nil {
		return types.Participant{}, types.Errorf(types.ErrUnknownParticipant, "participant %s not found", name)
	}
	return p.toType(), nil
}

// List returns all participants in registration order
func (s *Service) List(ctx context.Context) ([]types.Participant, error) {
	rows, err := s.db.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	participants := make([]types.Participant, len(rows))
	for i := range rows {
		participants[i] = rows[i].toType()
	}
	return participants, nil
}

// Rename changes a participant's name. The participant ID, and with it all
// stored state, stays the same.
func (s *Service) Rename(ctx context.Context, name, newName string) (*types.Participant, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, types.Errorf(types.ErrMalformedInput, "new name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.db.GetParticipantByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}
	if p == nil {
		return nil, types.Errorf(types.ErrUnknownParticipant, "participant %s not found", name)
	}
	if newName == p.Name {
		out := p.toType()
		return &out, nil
	}

	taken, err := s.db.GetParticipantByName(ctx, newName)
	if err != nil {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}
	if taken != nil {
		return nil, types.Errorf(types.ErrAlreadyExists, "participant %s already exists", newName)
	}

	if err := s.db.UpdateName(ctx, p, newName); err != nil {
		return nil, fmt.Errorf("rename participant: %w", err)
	}

	log.Info().
		Str("participant_id", p.ParticipantID).
		Str("old_name", name).
		Str("new_name", newName).
		Str("service", "directory").
		Msg("participant renamed")

	out := types.Participant{ID: p.ParticipantID, Name: newName}
	return &out, nil
}

// Registrar is the part of the directory the HTTP handlers use
type Registrar interface {
	Create(ctx context.Context, name string) (*types.Participant, error)
	Rename(ctx context.Context, name, newName string) (*types.Participant, error)
	List(ctx context.Context) ([]types.Participant, error)
}

// GinHandlers contains HTTP handlers for participant endpoints
type GinHandlers struct {
	service Registrar
}

func NewGinHandlers(service Registrar) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func (h *GinHandlers) ListParticipantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		participants, err := h.service.List(c.Request.Context())
		response.Handle(c, participants, err)
	}
}

// CreateParticipantHandler handles POST /participants
// Request body: {"name":"alice"}
func (h *GinHandlers) CreateParticipantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateParticipantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		participant, err := h.service.Create(c.Request.Context(), req.Name)
		response.Handle(c, participant, err)
	}
}

// RenameParticipantHandler handles PUT /participants/:name
// Request body: {"new_name":"bob"}
func (h *GinHandlers) RenameParticipantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RenameParticipantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		participant, err := h.service.Rename(c.Request.Context(), c.Param("name"), req.NewName)
		response.Handle(c, participant, err)
	}
}
