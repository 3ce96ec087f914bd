package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Imellstorm/wptest/internal/types"
	"github.com/Imellstorm/wptest/pkg/response"
)

var (
	ErrTokenGeneration = errors.New("failed to generate token")
	ErrInvalidToken    = errors.New("invalid token")
)

// Authorization modes
const (
	ModePermitAll = "permit_all"
	ModeJWT       = "jwt"
)

const tokenTTL = 24 * time.Hour

// TokenRequest carries the participant's name and the secret issued when it
// was created
type TokenRequest struct {
	Name   string `json:"name" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	Expiration time.Time `json:"expiration"`
}

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

// Authenticator checks a participant's secret. It fails with
// types.ErrInvalidCredentials for an unknown name or a wrong secret.
type Authenticator interface {
	Authenticate(ctx context.Context, name, secret string) (types.Participant, error)
}

// Service issues and checks participant tokens
type Service struct {
	jwtSecret    []byte
	participants Authenticator
	now          func() time.Time
}

// NewService creates a new authentication service with the given JWT secret
func NewService(jwtSecret string, participants Authenticator) *Service {
	return &Service{
		jwtSecret:    []byte(jwtSecret),
		participants: participants,
		now:          time.Now,
	}
}

// GenerateToken issues a 24-hour token once the participant's secret checks
// out. The subject is the participant ID, so the token survives a rename.
func (s *Service) GenerateToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	participant, err := s.participants.Authenticate(ctx, req.Name, req.Secret)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiration := now.Add(tokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participant.ID,
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		ParticipantID: participant.ID,
		Name:          participant.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		Expiration: expiration,
	}, nil
}

// ValidateToken validates a JWT token and returns the claims
// Verifies token signature and expiration
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ParticipantID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for authentication endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateTokenHandler handles POST requests to generate JWT tokens
// Request body: {"name":"alice","secret":"..."}
func (h *GinHandlers) GenerateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		token, err := h.service.GenerateToken(c.Request.Context(), req)
		response.Handle(c, token, err)
	}
}
