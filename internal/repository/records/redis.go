package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/logger"
)

// connectTimeout bounds the initial ping when opening the store.
const connectTimeout = 5 * time.Second

// casAttempts is how many times AcceptInvite retries a WATCH transaction
// that lost a race before giving up.
const casAttempts = 3

// subscriptionBuffer is the size of the event channel handed to subscribers.
const subscriptionBuffer = 16

// RedisStore implements Store on a Redis instance shared by all clients.
type RedisStore struct {
	// client is the underlying Redis connection pool.
	client *redis.Client
}

// Options carries the Redis connection parameters.
type Options struct {
	// Addr is the host:port of the Redis instance.
	Addr string
	// Password authenticates the connection, empty for none.
	Password string
	// DB selects the Redis logical database.
	DB int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to record store: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetGroup reads one group record including its membership sets.
func (s *RedisStore) GetGroup(ctx context.Context, groupID string) (*safety.Group, error) {
	fields, err := s.client.HGetAll(ctx, groupKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read group %s: %w", groupID, err)
	}

	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	members, err := s.client.SMembers(ctx, groupMembersKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read group members %s: %w", groupID, err)
	}

	pending, err := s.client.SMembers(ctx, groupPendingKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read pending members %s: %w", groupID, err)
	}

	return groupFromHash(groupID, fields, members, pending)
}

// CreateGroup writes a new group record with its membership sets. Roster
// invariants (admin is a member, sets are disjoint) are the membership
// service's responsibility; the store persists what it is given, with the
// admin always included.
func (s *RedisStore) CreateGroup(ctx context.Context, group *safety.Group) error {
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, groupKey(group.ID), groupFields(group))
	pipe.SAdd(ctx, groupMembersKey(group.ID), group.AdminID)

	for _, member := range group.Members {
		if member != group.AdminID {
			pipe.SAdd(ctx, groupMembersKey(group.ID), member)
		}
	}

	for _, pending := range group.PendingMembers {
		pipe.SAdd(ctx, groupPendingKey(group.ID), pending)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write group %s: %w", group.ID, err)
	}

	s.publish(ctx, EventGroupUpdated, group.ID, group.ID)

	return nil
}

// DeleteGroup removes the group together with all of its checks and alerts.
func (s *RedisStore) DeleteGroup(ctx context.Context, groupID string) error {
	checkIDs, err := s.client.SMembers(ctx, groupChecksKey(groupID)).Result()
	if err != nil {
		return fmt.Errorf("read check index %s: %w", groupID, err)
	}

	alertIDs, err := s.client.SMembers(ctx, groupAlertsKey(groupID)).Result()
	if err != nil {
		return fmt.Errorf("read alert index %s: %w", groupID, err)
	}

	keys := []string{
		groupKey(groupID),
		groupMembersKey(groupID),
		groupPendingKey(groupID),
		groupChecksKey(groupID),
		groupAlertsKey(groupID),
		groupSOSTimesKey(groupID),
	}

	for _, checkID := range checkIDs {
		keys = append(keys, checkKey(checkID), checkResponsesKey(checkID))
	}

	for _, alertID := range alertIDs {
		keys = append(keys, alertKey(alertID))
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete group %s: %w", groupID, err)
	}

	s.publish(ctx, EventGroupUpdated, groupID, groupID)

	return nil
}

// SetGroupStatus commits the derived group status. The write is idempotent
// and unconditional; racing writers converge because everyone writes the
// output of the same pure resolver over current state.
func (s *RedisStore) SetGroupStatus(ctx context.Context, groupID string, status safety.GroupStatus) error {
	if err := s.requireKey(ctx, groupKey(groupID)); err != nil {
		return err
	}

	if err := s.client.HSet(ctx, groupKey(groupID), fieldCurrentStatus, string(status)).Err(); err != nil {
		return fmt.Errorf("write group status %s: %w", groupID, err)
	}

	s.publish(ctx, EventGroupUpdated, groupID, groupID)

	return nil
}

// SetLastSafetyCheckAt records when the latest safety check was started.
func (s *RedisStore) SetLastSafetyCheckAt(ctx context.Context, groupID string, at time.Time) error {
	if err := s.requireKey(ctx, groupKey(groupID)); err != nil {
		return err
	}

	if err := s.client.HSet(ctx, groupKey(groupID), fieldLastCheckAt, encodeTime(at)).Err(); err != nil {
		return fmt.Errorf("write last check time %s: %w", groupID, err)
	}

	s.publish(ctx, EventGroupUpdated, groupID, groupID)

	return nil
}

// AddPendingMember records an invitation.
func (s *RedisStore) AddPendingMember(ctx context.Context, groupID, userID string) error {
	if err := s.requireKey(ctx, groupKey(groupID)); err != nil {
		return err
	}

	if err := s.client.SAdd(ctx, groupPendingKey(groupID), userID).Err(); err != nil {
		return fmt.Errorf("write pending member %s: %w", groupID, err)
	}

	s.publish(ctx, EventGroupUpdated, groupID, groupID)

	return nil
}

// AcceptInvite atomically moves userID from the pending set to the members
// set using a WATCH transaction, retrying a bounded number of times when a
// concurrent writer invalidates the watched key.
func (s *RedisStore) AcceptInvite(ctx context.Context, groupID, userID string) error {
	pendingKey := groupPendingKey(groupID)

	move := func(tx *redis.Tx) error {
		invited, err := tx.SIsMember(ctx, pendingKey, userID).Result()
		if err != nil {
			return fmt.Errorf("read pending member: %w", err)
		}

		if !invited {
			return ErrNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SRem(ctx, pendingKey, userID)
			pipe.SAdd(ctx, groupMembersKey(groupID), userID)

			return nil
		})

		return err
	}

	var err error

	for attempt := 0; attempt < casAttempts; attempt++ {
		err = s.client.Watch(ctx, move, pendingKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("accept invite %s/%s: %w", groupID, userID, err)
	}

	s.publish(ctx, EventGroupUpdated, groupID, groupID)

	return nil
}

// RemoveMember removes a user from the members set.
func (s *RedisStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	if err := s.client.SRem(ctx, groupMembersKey(groupID), userID).Err(); err != nil {
		return fmt.Errorf("remove member %s/%s: %w", groupID, userID, err)
	}

	s.publish(ctx, EventGroupUpdated, groupID, groupID)

	return nil
}

// LastSOSAt reads the per-(user, group) direct SOS cooldown timestamp.
// Returns nil when the user never sent a direct SOS in this group.
func (s *RedisStore) LastSOSAt(ctx context.Context, groupID, userID string) (*time.Time, error) {
	raw, err := s.client.HGet(ctx, groupSOSTimesKey(groupID), userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read sos time %s/%s: %w", groupID, userID, err)
	}

	t, err := parseTime(raw)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// SetLastSOSAt updates the per-(user, group) direct SOS cooldown timestamp.
func (s *RedisStore) SetLastSOSAt(ctx context.Context, groupID, userID string, at time.Time) error {
	if err := s.client.HSet(ctx, groupSOSTimesKey(groupID), userID, encodeTime(at)).Err(); err != nil {
		return fmt.Errorf("write sos time %s/%s: %w", groupID, userID, err)
	}

	return nil
}

// GetCheck reads one safety check including its response map.
func (s *RedisStore) GetCheck(ctx context.Context, checkID string) (*safety.SafetyCheck, error) {
	fields, err := s.client.HGetAll(ctx, checkKey(checkID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read check %s: %w", checkID, err)
	}

	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	rawResponses, err := s.client.HGetAll(ctx, checkResponsesKey(checkID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read responses %s: %w", checkID, err)
	}

	return checkFromHash(checkID, fields, rawResponses)
}

// CreateCheck writes a new safety check and indexes it under its group.
func (s *RedisStore) CreateCheck(ctx context.Context, check *safety.SafetyCheck) error {
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, checkKey(check.ID), checkFields(check))
	pipe.SAdd(ctx, groupChecksKey(check.GroupID), check.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write check %s: %w", check.ID, err)
	}

	s.publish(ctx, EventCheckUpdated, check.GroupID, check.ID)

	return nil
}

// ChecksByGroup returns every safety check of a group via the group index,
// oldest first.
func (s *RedisStore) ChecksByGroup(ctx context.Context, groupID string) ([]*safety.SafetyCheck, error) {
	checkIDs, err := s.client.SMembers(ctx, groupChecksKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read check index %s: %w", groupID, err)
	}

	checks := make([]*safety.SafetyCheck, 0, len(checkIDs))

	for _, checkID := range checkIDs {
		check, err := s.GetCheck(ctx, checkID)
		if errors.Is(err, ErrNotFound) {
			// Index can briefly point at a record deleted by a racing
			// group deletion.
			continue
		}

		if err != nil {
			return nil, err
		}

		checks = append(checks, check)
	}

	sort.Slice(checks, func(i, j int) bool {
		return checks[i].CreatedAt.Before(checks[j].CreatedAt)
	})

	return checks, nil
}

// PutResponse writes one member's response at its own leaf path.
func (s *RedisStore) PutResponse(ctx context.Context, checkID string, response safety.SafetyResponse) error {
	groupID, err := s.checkGroupID(ctx, checkID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	if err := s.client.HSet(ctx, checkResponsesKey(checkID), response.UserID, raw).Err(); err != nil {
		return fmt.Errorf("write response %s/%s: %w", checkID, response.UserID, err)
	}

	s.publish(ctx, EventCheckUpdated, groupID, checkID)

	return nil
}

// RemoveResponse retracts a member's response from a check.
func (s *RedisStore) RemoveResponse(ctx context.Context, checkID, userID string) error {
	groupID, err := s.checkGroupID(ctx, checkID)
	if err != nil {
		return err
	}

	if err := s.client.HDel(ctx, checkResponsesKey(checkID), userID).Err(); err != nil {
		return fmt.Errorf("remove response %s/%s: %w", checkID, userID, err)
	}

	s.publish(ctx, EventCheckUpdated, groupID, checkID)

	return nil
}

// SetCheckStatus writes the check status, together with the completion time
// for terminal statuses.
func (s *RedisStore) SetCheckStatus(ctx context.Context, checkID string, status safety.CheckStatus, completedAt *time.Time) error {
	groupID, err := s.checkGroupID(ctx, checkID)
	if err != nil {
		return err
	}

	fields := map[string]any{fieldStatus: string(status)}
	if completedAt != nil {
		fields[fieldCompletedAt] = encodeTime(*completedAt)
	}

	if err := s.client.HSet(ctx, checkKey(checkID), fields).Err(); err != nil {
		return fmt.Errorf("write check status %s: %w", checkID, err)
	}

	s.publish(ctx, EventCheckUpdated, groupID, checkID)

	return nil
}

// GetAlert reads one SOS alert.
func (s *RedisStore) GetAlert(ctx context.Context, alertID string) (*safety.SOSAlert, error) {
	fields, err := s.client.HGetAll(ctx, alertKey(alertID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read alert %s: %w", alertID, err)
	}

	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	return alertFromHash(alertID, fields)
}

// CreateAlert writes a new SOS alert and indexes it under its group.
func (s *RedisStore) CreateAlert(ctx context.Context, alert *safety.SOSAlert) error {
	fields, err := alertFields(alert)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, alertKey(alert.ID), fields)
	pipe.SAdd(ctx, groupAlertsKey(alert.GroupID), alert.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write alert %s: %w", alert.ID, err)
	}

	s.publish(ctx, EventAlertUpdated, alert.GroupID, alert.ID)

	return nil
}

// AlertsByGroup returns every SOS alert of a group via the group index,
// oldest first.
func (s *RedisStore) AlertsByGroup(ctx context.Context, groupID string) ([]*safety.SOSAlert, error) {
	alertIDs, err := s.client.SMembers(ctx, groupAlertsKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read alert index %s: %w", groupID, err)
	}

	alerts := make([]*safety.SOSAlert, 0, len(alertIDs))

	for _, alertID := range alertIDs {
		alert, err := s.GetAlert(ctx, alertID)
		if errors.Is(err, ErrNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		alerts = append(alerts, alert)
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.Before(alerts[j].Timestamp)
	})

	return alerts, nil
}

// ResolveAlert flips the alert inactive. A second resolve is a no-op
// against the already inactive record, keeping the original resolution
// fields.
func (s *RedisStore) ResolveAlert(ctx context.Context, alertID string, at time.Time, reason string) error {
	fields, err := s.client.HMGet(ctx, alertKey(alertID), fieldIsActive, fieldGroupID).Result()
	if err != nil {
		return fmt.Errorf("read alert %s: %w", alertID, err)
	}

	if fields[0] == nil {
		return ErrNotFound
	}

	if fields[0] == "0" {
		return nil
	}

	groupID, _ := fields[1].(string)

	update := map[string]any{
		fieldIsActive:       "0",
		fieldResolvedAt:     encodeTime(at),
		fieldResolvedReason: reason,
	}

	if err := s.client.HSet(ctx, alertKey(alertID), update).Err(); err != nil {
		return fmt.Errorf("resolve alert %s: %w", alertID, err)
	}

	s.publish(ctx, EventAlertUpdated, groupID, alertID)

	return nil
}

// Subscribe delivers record-change events for a group until ctx is
// canceled.
func (s *RedisStore) Subscribe(ctx context.Context, groupID string) (<-chan Event, error) {
	pubsub := s.client.Subscribe(ctx, eventsChannel(groupID))

	// Wait for confirmation that the subscription is established.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return nil, fmt.Errorf("subscribe to group %s: %w", groupID, err)
	}

	events := make(chan Event, subscriptionBuffer)

	go func() {
		defer close(events)
		defer func() {
			_ = pubsub.Close()
		}()

		messages := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.WarnKV(ctx, "Dropping malformed record event", "error", err)

					continue
				}

				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// requireKey maps a missing record onto ErrNotFound before a partial
// update, so field writes never materialize stray records.
func (s *RedisStore) requireKey(ctx context.Context, key string) error {
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}

	if exists == 0 {
		return ErrNotFound
	}

	return nil
}

// checkGroupID reads the owning group of a check, which doubles as the
// existence check for partial updates.
func (s *RedisStore) checkGroupID(ctx context.Context, checkID string) (string, error) {
	groupID, err := s.client.HGet(ctx, checkKey(checkID), fieldGroupID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("read check %s: %w", checkID, err)
	}

	return groupID, nil
}

// publish pushes a record-change event to the group channel. Push delivery
// is best-effort: subscribers re-derive state from current records, so a
// dropped event is tolerated and only logged.
func (s *RedisStore) publish(ctx context.Context, kind EventKind, groupID, recordID string) {
	if groupID == "" {
		return
	}

	payload, err := json.Marshal(Event{Kind: kind, GroupID: groupID, RecordID: recordID})
	if err != nil {
		return
	}

	if err := s.client.Publish(ctx, eventsChannel(groupID), payload).Err(); err != nil {
		logger.WarnKV(ctx, "Failed to push record event",
			"kind", kind, "group_id", groupID, "record_id", recordID, "error", err)
	}
}
