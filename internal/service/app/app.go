package app

import (
	"context"
	"fmt"
	"os/user"

	"github.com/islamsaadi/SOSync/internal/config"
	"github.com/islamsaadi/SOSync/internal/logger"
	"github.com/islamsaadi/SOSync/internal/repository/records"
	"github.com/islamsaadi/SOSync/internal/service/coordinator"
	"github.com/islamsaadi/SOSync/internal/service/membership"
	"github.com/islamsaadi/SOSync/internal/service/notify"
)

// Options configures the application assembly.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename
	// if empty.
	ConfigPath string

	// UserID overrides the user identity from config when specified.
	UserID string
}

// App is a fully wired sosync client.
type App struct {
	// Config is the loaded and validated configuration.
	Config *config.Config
	// UserID is the resolved identity acting in every operation.
	UserID string
	// Store is the shared record store connection.
	Store *records.RedisStore
	// Engine exposes the safety check and SOS alert coordinators.
	Engine *coordinator.Engine
	// Membership manages groups and rosters.
	Membership *membership.Service
}

// New loads configuration, resolves the acting user and connects
// the engine to the record store.
func New(ctx context.Context, opts *Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	userID, err := resolveUserID(opts.UserID, cfg.UserID)
	if err != nil {
		return nil, err
	}

	store, err := records.NewRedisStore(ctx, records.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	var dispatcher notify.Dispatcher = notify.NewLogDispatcher()
	if cfg.WebhookURL != "" {
		dispatcher = notify.NewWebhookDispatcher(cfg.WebhookURL)
	}

	engine := coordinator.NewEngine(coordinator.Config{
		Store:             store,
		Dispatcher:        dispatcher,
		SettleDelay:       cfg.SettleDelay,
		StatusResetWindow: cfg.StatusResetWindow,
	})

	logger.DebugKV(ctx, "Application wired",
		"redis_addr", cfg.RedisAddress,
		"user_id", userID)

	return &App{
		Config:     cfg,
		UserID:     userID,
		Store:      store,
		Engine:     engine,
		Membership: membership.New(store, nil),
	}, nil
}

// Close stops pending status resets and releases the store connection.
func (a *App) Close() error {
	a.Engine.Scheduler.Stop()

	return a.Store.Close()
}

// resolveUserID picks the acting identity: the explicit flag wins, then the
// configured user id, then the OS username.
func resolveUserID(flagUserID, configUserID string) (string, error) {
	if flagUserID != "" {
		return flagUserID, nil
	}

	if configUserID != "" {
		return configUserID, nil
	}

	current, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	return current.Username, nil
}
