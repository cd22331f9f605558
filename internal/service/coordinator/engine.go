package coordinator

import (
	"time"

	"github.com/islamsaadi/SOSync/internal/repository/records"
	"github.com/islamsaadi/SOSync/internal/service/guard"
	"github.com/islamsaadi/SOSync/internal/service/notify"
)

// Config assembles the dependencies shared by the coordinators.
type Config struct {
	// Store is the shared record store.
	Store records.Store
	// Dispatcher delivers notifications to group members.
	Dispatcher notify.Dispatcher
	// SettleDelay is waited out before each completion evaluation.
	SettleDelay time.Duration
	// StatusResetWindow is how long an all-safe result stands before the
	// group returns to normal.
	StatusResetWindow time.Duration
	// Now supplies the current time; defaults to time.Now.
	Now func() time.Time
}

// Engine bundles the coordinators built over one store. The checks and
// alerts coordinators share a single aggregator, refresher and scheduler
// so their derived state stays consistent.
type Engine struct {
	// Checks manages the safety check lifecycle.
	Checks *SafetyCheckCoordinator
	// Alerts manages the SOS alert lifecycle.
	Alerts *SOSAlertCoordinator
	// Scheduler resets stale all-safe statuses; stop it on shutdown.
	Scheduler *StatusResetScheduler
}

// NewEngine wires the coordinator set from the given configuration.
func NewEngine(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	refresher := &statusRefresher{
		store:       cfg.Store,
		resetWindow: cfg.StatusResetWindow,
		now:         now,
	}

	scheduler := NewStatusResetScheduler(cfg.Store)

	aggregator := &ResponseAggregator{
		store:       cfg.Store,
		refresher:   refresher,
		scheduler:   scheduler,
		dispatcher:  cfg.Dispatcher,
		settleDelay: cfg.SettleDelay,
		resetWindow: cfg.StatusResetWindow,
		now:         now,
	}

	alerts := &SOSAlertCoordinator{
		store:      cfg.Store,
		guard:      guard.New(now),
		refresher:  refresher,
		aggregator: aggregator,
		dispatcher: cfg.Dispatcher,
		now:        now,
	}

	checks := &SafetyCheckCoordinator{
		store:      cfg.Store,
		guard:      guard.New(now),
		alerts:     alerts,
		aggregator: aggregator,
		refresher:  refresher,
		dispatcher: cfg.Dispatcher,
		now:        now,
	}

	return &Engine{
		Checks:    checks,
		Alerts:    alerts,
		Scheduler: scheduler,
	}
}
