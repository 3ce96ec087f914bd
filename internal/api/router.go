// Package api assembles the HTTP routes.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Imellstorm/wptest/internal/auth"
	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/directory"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/settlement"
	"github.com/Imellstorm/wptest/internal/trade"
	"github.com/Imellstorm/wptest/pkg/middleware"
)

type Options struct {
	// auth.ModePermitAll or auth.ModeJWT
	AuthMode string
	// Requests per minute per client on write routes
	RateLimit int
	// Source of /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
}

// NewRouter configures all API endpoints and their handlers.
// Reads are public. Participant writes and trades go through Authorize,
// which lets everything through unless JWT mode is on.
func NewRouter(svc *trade.Service, authService *auth.Service, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	limiter := middleware.NewRateLimiter(map[string]int{
		"/api/v1/auth":         10,
		"/api/v1/participants": opts.RateLimit,
		"/api/v1/trades":       opts.RateLimit,
		"/api/v1/bids":         opts.RateLimit * 10,
	})
	router.Use(limiter.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	authorize := middleware.Authorize(opts.AuthMode, authService, svc.Participants)

	authHandlers := auth.NewGinHandlers(authService)
	participantHandlers := directory.NewGinHandlers(svc.Participants)
	inventoryHandlers := inventory.NewGinHandlers(svc.Inventories)
	bidHandlers := bidding.NewGinHandlers(svc.Bids)
	settlementHandlers := settlement.NewGinHandlers(svc.Trades)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/token", authHandlers.GenerateTokenHandler())

		participants := v1.Group("/participants")
		{
			participants.GET("", participantHandlers.ListParticipantsHandler())
			participants.POST("", participantHandlers.CreateParticipantHandler())
			participants.PUT("/:name", authorize, participantHandlers.RenameParticipantHandler())

			participants.GET("/:name/inventory", inventoryHandlers.GetInventoryHandler())
			participants.POST("/:name/inventory", authorize, inventoryHandlers.GenerateHandler())

			participants.GET("/:name/bid", bidHandlers.GetBidHandler())
			participants.POST("/:name/bid", authorize, bidHandlers.PlaceBidHandler())
		}

		v1.GET("/bids", bidHandlers.ListBidsHandler())
		v1.POST("/trades", authorize, settlementHandlers.SettleTradeHandler())
	}

	return router
}
