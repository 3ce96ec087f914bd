package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Imellstorm/wptest/internal/auth"
	"github.com/Imellstorm/wptest/internal/types"
	"github.com/Imellstorm/wptest/pkg/response"
)

// ParticipantIDKey holds the caller's participant ID once Authorize has
// checked its token
const ParticipantIDKey = "participantID"

const visitorTTL = 3 * time.Minute

type limit struct {
	rate  rate.Limit
	burst int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP and route. It runs ahead of
// authorization, so callers are told apart by address only. Routes under a
// configured prefix get that prefix's limit; others are unlimited.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limits    map[string]limit
	lastSweep time.Time
}

// NewRateLimiter builds a limiter from requests-per-minute by path prefix
func NewRateLimiter(perMinute map[string]int) *RateLimiter {
	limits := make(map[string]limit, len(perMinute))
	for prefix, n := range perMinute {
		limits[prefix] = limit{rate: rate.Limit(float64(n) / 60.0), burst: max(1, n/10)}
	}
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		limits:    limits,
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) limitFor(path string) limit {
	found := limit{rate: rate.Inf, burst: 1}
	longest := -1
	for prefix, l := range rl.limits {
		if strings.HasPrefix(path, prefix) && len(prefix) > longest {
			found, longest = l, len(prefix)
		}
	}
	return found
}

func (rl *RateLimiter) getLimiter(path, clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > time.Minute {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(rl.visitors, key)
			}
		}
		rl.lastSweep = now
	}

	key := clientIP + ":" + path
	v, exists := rl.visitors[key]
	if !exists {
		l := rl.limitFor(path)
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		rl.visitors[key] = v
	}

	v.lastSeen = now
	return v.limiter
}

// Handler rejects requests over the limit with 429
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.FullPath(), c.ClientIP()).Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestLogger logs every request with its status and latency
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// TokenValidator checks a bearer token
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authorize guards participant routes. In permit-all mode every request
// passes. In JWT mode a valid bearer token is required, and on routes with a
// :name parameter the token must belong to the participant currently holding
// that name. Tokens carry the participant ID, so they outlive renames.
func Authorize(mode string, validator TokenValidator, directory types.Directory) gin.HandlerFunc {
	if mode != auth.ModeJWT {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		bearerToken := strings.Split(c.GetHeader("Authorization"), " ")
		if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "bearer") {
			response.Unauthorized(c, "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(bearerToken[1])
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		if name := c.Param("name"); name != "" {
			participant, err := directory.Resolve(c.Request.Context(), name)
			if err != nil {
				response.Handle(c, nil, err)
				c.Abort()
				return
			}
			if participant.ID != claims.ParticipantID {
				response.Forbidden(c, "Token does not belong to "+name)
				c.Abort()
				return
			}
		}

		c.Set(ParticipantIDKey, claims.ParticipantID)
		c.Next()
	}
}
