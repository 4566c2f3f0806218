package app

import (
	"log/slog"

	"exchange_go/internal/exchange"
	"exchange_go/internal/infra"
	"exchange_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Storage  *storage.Store
	Exchange *exchange.Exchange
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB,
// exchange). The writer is not started here; main runs it with its own
// lifecycle context.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Exchange Go...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized", slog.String("driver", cfg.Database.Driver))

	// 4. Wire the exchange core
	b.Exchange = exchange.New(store, logger, cfg)
	slog.Info("✅ Exchange core ready",
		slog.Int("queue_size", cfg.Engine.QueueSize),
		slog.Int("submit_timeout_ms", cfg.Engine.SubmitTimeoutMS))

	return nil
}

// Shutdown releases held resources.
func (b *Bootstrap) Shutdown() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("failed to close storage", slog.Any("error", err))
		}
	}
}
