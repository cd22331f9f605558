package notify

import (
	"context"

	"github.com/islamsaadi/SOSync/internal/logger"
)

// Notification is a message fanned out to the members of a group.
type Notification struct {
	// GroupID is the group being notified.
	GroupID string `json:"groupId"`
	// Title is the short headline.
	Title string `json:"title"`
	// Body is the human-readable message.
	Body string `json:"body"`
	// Payload carries machine-readable context (record ids, statuses).
	Payload map[string]string `json:"payload,omitempty"`
	// ExcludeUserID suppresses delivery to the user who triggered the
	// notification, empty to deliver to everyone.
	ExcludeUserID string `json:"excludeUserId,omitempty"`
}

// Dispatcher delivers notifications to a group's members.
type Dispatcher interface {
	// Send dispatches one notification. Implementations must not block
	// beyond the context deadline.
	Send(ctx context.Context, notification Notification) error
}

// LogDispatcher writes notifications to the log. It is the default when no
// webhook is configured.
type LogDispatcher struct{}

// NewLogDispatcher creates a dispatcher that only logs.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

// Send implements Dispatcher.
func (d *LogDispatcher) Send(ctx context.Context, notification Notification) error {
	logger.InfoKV(ctx, "Notification",
		"group_id", notification.GroupID,
		"title", notification.Title,
		"body", notification.Body,
		"exclude_user_id", notification.ExcludeUserID,
	)

	return nil
}
