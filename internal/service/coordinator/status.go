package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/logger"
	"github.com/islamsaadi/SOSync/internal/repository/records"
)

// statusRefresher re-derives a group's status from all of its currently
// visible records and writes the result back to the store. Coordinators call
// it after every mutation instead of patching the status incrementally.
type statusRefresher struct {
	store       records.Store
	resetWindow time.Duration
	now         func() time.Time
}

// Refresh recomputes and persists the status of the given group,
// returning the derived value.
func (r *statusRefresher) Refresh(ctx context.Context, groupID string) (safety.GroupStatus, error) {
	alerts, err := r.store.AlertsByGroup(ctx, groupID)
	if err != nil {
		return "", err
	}

	checks, err := r.store.ChecksByGroup(ctx, groupID)
	if err != nil {
		return "", err
	}

	status := safety.Resolve(r.now(), alerts, checks, r.resetWindow)

	if err := r.store.SetGroupStatus(ctx, groupID, status); err != nil {
		return "", err
	}

	logger.DebugKV(ctx, "Refreshed group status",
		"group_id", groupID,
		"status", status)

	return status, nil
}

// StatusResetScheduler demotes a group from "all safe" back to "normal" once
// the reset window elapses. The commit is guarded: the group status is
// re-read when the timer fires, and the reset is skipped if anything newer
// has changed it in the meantime.
//
// The scheduler is best effort. A process that exits before the timer fires
// loses it, which is harmless: the resolver already treats an expired
// all-safe result as "normal" when any client next derives the status.
type StatusResetScheduler struct {
	store records.Store

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewStatusResetScheduler creates a scheduler writing resets through
// the given store.
func NewStatusResetScheduler(store records.Store) *StatusResetScheduler {
	return &StatusResetScheduler{
		store:  store,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms a reset for the group after the given delay, replacing any
// reset already pending for it.
func (s *StatusResetScheduler) Schedule(ctx context.Context, groupID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[groupID]; ok {
		timer.Stop()
	}

	s.timers[groupID] = time.AfterFunc(delay, func() {
		s.fire(groupID)
	})

	logger.DebugKV(ctx, "Scheduled status reset",
		"group_id", groupID,
		"delay", delay)
}

// Stop cancels all pending resets.
func (s *StatusResetScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for groupID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, groupID)
	}
}

func (s *StatusResetScheduler) fire(groupID string) {
	ctx := context.Background()

	s.mu.Lock()
	delete(s.timers, groupID)
	s.mu.Unlock()

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		logger.WarnKV(ctx, "Status reset skipped, failed to read group",
			"group_id", groupID,
			"error", err)

		return
	}

	// A newer check or alert may have moved the group on since the reset
	// was armed. Only an untouched "all safe" is demoted.
	if group.CurrentStatus != safety.GroupStatusAllSafe {
		logger.DebugKV(ctx, "Status reset skipped, group status changed",
			"group_id", groupID,
			"status", group.CurrentStatus)

		return
	}

	if err := s.store.SetGroupStatus(ctx, groupID, safety.GroupStatusNormal); err != nil {
		logger.WarnKV(ctx, "Failed to reset group status",
			"group_id", groupID,
			"error", err)

		return
	}

	logger.InfoKV(ctx, "Group status reset to normal", "group_id", groupID)
}
