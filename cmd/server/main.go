package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/tomb.v2"
	"gorm.io/gorm"

	"github.com/Imellstorm/wptest/internal/api"
	"github.com/Imellstorm/wptest/internal/auth"
	"github.com/Imellstorm/wptest/internal/config"
	"github.com/Imellstorm/wptest/internal/database"
	"github.com/Imellstorm/wptest/internal/directory"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/metrics"
	"github.com/Imellstorm/wptest/internal/rpc"
	"github.com/Imellstorm/wptest/internal/storage"
	"github.com/Imellstorm/wptest/internal/trade"
)

const shutdownTimeout = 5 * time.Second

var configFile string

var rootCmd = &cobra.Command{
	Use:   "island-server",
	Short: "Barter API for the island economy",
	Long: `Serves the island barter economy over HTTP and gRPC.

Settings come from environment variables (PORT, GRPC_PORT, ENV, DEBUG,
DATABASE_PATH, STORE_BACKEND, REDIS_ADDR, AUTH_MODE, JWT_SECRET, RATE_LIMIT)
and an optional config file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		cfg, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")
	rootCmd.Flags().String("port", "8080", "HTTP port")
	rootCmd.Flags().String("grpc_port", "9090", "gRPC port")
	rootCmd.Flags().String("store_backend", config.BackendSQL, "record store: sql, redis or memory")
}

// setupLogging configures the global logger. Outside production it pretty
// prints with timestamps; DEBUG=true enables debug logging.
func setupLogging(cfg *config.Config) {
	if !cfg.Production() {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newStore opens the configured record store. The returned func releases it.
func newStore(cfg *config.Config, db *gorm.DB) (storage.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return storage.NewRedisStore(client), func() { client.Close() }, nil
	case config.BackendMemory:
		return storage.NewMemoryStore(), func() {}, nil
	default:
		return storage.NewSQLStore(db), func() {}, nil
	}
}

// run wires the services and serves until ctx is cancelled or a server fails
func run(ctx context.Context, cfg *config.Config) error {
	setupLogging(cfg)
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	store, closeStore, err := newStore(cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, err := cfg.BuildCatalog()
	if err != nil {
		return err
	}
	generator, err := inventory.NewGenerator(cat, nil)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	participants := directory.NewService(db)
	svc := trade.New(participants, store, generator, metrics.PrometheusMetrics(reg))
	authService := auth.NewService(cfg.JWTSecret, participants)

	router := api.NewRouter(svc, authService, api.Options{
		AuthMode:  cfg.AuthMode,
		RateLimit: cfg.RateLimit,
		Gatherer:  reg,
	})
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	grpcServer := rpc.NewServer(svc)

	t, ctx := tomb.WithContext(ctx)

	t.Go(func() error {
		zlog.Info().Str("addr", httpServer.Addr).Str("store", cfg.StoreBackend).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	t.Go(func() error {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		zlog.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})

	t.Go(func() error {
		<-t.Dying()
		zlog.Info().Msg("Shutting down server...")

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("HTTP server forced to shutdown")
		}
		grpcServer.GracefulStop()
		return nil
	})

	<-ctx.Done()
	t.Kill(nil)
	err = t.Wait()

	if sqlDB, dbErr := db.DB(); dbErr == nil {
		sqlDB.Close()
	}
	zlog.Info().Msg("Server exiting")
	return err
}
