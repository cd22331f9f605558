package records

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
)

// Key layout. One hash per record, one field per leaf path; sets hold
// membership and the per-group record indexes backing the groupId query.
func groupKey(groupID string) string         { return "group:" + groupID }
func groupMembersKey(groupID string) string  { return "group:" + groupID + ":members" }
func groupPendingKey(groupID string) string  { return "group:" + groupID + ":pending" }
func groupChecksKey(groupID string) string   { return "group:" + groupID + ":checks" }
func groupAlertsKey(groupID string) string   { return "group:" + groupID + ":alerts" }
func groupSOSTimesKey(groupID string) string { return "group:" + groupID + ":sosSentAt" }
func checkKey(checkID string) string         { return "check:" + checkID }
func checkResponsesKey(checkID string) string {
	return "check:" + checkID + ":responses"
}
func alertKey(alertID string) string         { return "alert:" + alertID }
func eventsChannel(groupID string) string    { return "sosync:events:" + groupID }

// Hash field names match the persisted record shapes of the original
// document store.
const (
	fieldName          = "name"
	fieldAdminID       = "adminId"
	fieldCheckInterval = "safetyCheckIntervalMinutes"
	fieldSOSInterval   = "sosIntervalMinutesPerUser"
	fieldLastCheckAt   = "lastSafetyCheckAt"
	fieldCurrentStatus = "currentStatus"
	fieldCreatedAt     = "createdAt"

	fieldGroupID     = "groupId"
	fieldInitiatedBy = "initiatedBy"
	fieldStatus      = "status"
	fieldCompletedAt = "completedAt"

	fieldUserID         = "userId"
	fieldTimestamp      = "timestamp"
	fieldLocation       = "location"
	fieldMessage        = "message"
	fieldIsActive       = "isActive"
	fieldResolvedAt     = "resolvedAt"
	fieldResolvedReason = "resolvedReason"
	fieldOriginCheckID  = "originSafetyCheckId"
)

// encodeTime renders timestamps the way every writer does, so last-write-wins
// leaves stay comparable across clients.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime is the inverse of encodeTime.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}

	return t, nil
}

// parseOptionalTime decodes a timestamp field that may be absent.
func parseOptionalTime(fields map[string]string, field string) (*time.Time, error) {
	raw, ok := fields[field]
	if !ok || raw == "" {
		return nil, nil
	}

	t, err := parseTime(raw)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// groupFields renders a group record as hash fields. Membership sets are
// written separately.
func groupFields(group *safety.Group) map[string]any {
	fields := map[string]any{
		fieldName:          group.Name,
		fieldAdminID:       group.AdminID,
		fieldCheckInterval: strconv.Itoa(group.CheckIntervalMinutes),
		fieldSOSInterval:   strconv.Itoa(group.SOSIntervalMinutes),
		fieldCurrentStatus: string(group.CurrentStatus),
		fieldCreatedAt:     encodeTime(group.CreatedAt),
	}

	if group.LastSafetyCheckAt != nil {
		fields[fieldLastCheckAt] = encodeTime(*group.LastSafetyCheckAt)
	}

	return fields
}

// groupFromHash decodes a group record from its hash fields and membership
// sets.
func groupFromHash(groupID string, fields map[string]string, members, pending []string) (*safety.Group, error) {
	createdAt, err := parseTime(fields[fieldCreatedAt])
	if err != nil {
		return nil, err
	}

	lastCheckAt, err := parseOptionalTime(fields, fieldLastCheckAt)
	if err != nil {
		return nil, err
	}

	checkInterval, err := strconv.Atoi(fields[fieldCheckInterval])
	if err != nil {
		return nil, fmt.Errorf("parse check interval: %w", err)
	}

	sosInterval, err := strconv.Atoi(fields[fieldSOSInterval])
	if err != nil {
		return nil, fmt.Errorf("parse sos interval: %w", err)
	}

	status := safety.GroupStatus(fields[fieldCurrentStatus])
	if !status.IsValid() {
		status = safety.GroupStatusNormal
	}

	sort.Strings(members)
	sort.Strings(pending)

	return &safety.Group{
		ID:                   groupID,
		Name:                 fields[fieldName],
		AdminID:              fields[fieldAdminID],
		Members:              members,
		PendingMembers:       pending,
		CheckIntervalMinutes: checkInterval,
		SOSIntervalMinutes:   sosInterval,
		LastSafetyCheckAt:    lastCheckAt,
		CurrentStatus:        status,
		CreatedAt:            createdAt,
	}, nil
}

// checkFields renders a safety check's scalar fields. Responses live in
// their own hash so each response is an independently written leaf.
func checkFields(check *safety.SafetyCheck) map[string]any {
	fields := map[string]any{
		fieldGroupID:     check.GroupID,
		fieldInitiatedBy: check.InitiatedBy,
		fieldCreatedAt:   encodeTime(check.CreatedAt),
		fieldStatus:      string(check.Status),
	}

	if check.CompletedAt != nil {
		fields[fieldCompletedAt] = encodeTime(*check.CompletedAt)
	}

	return fields
}

// checkFromHash decodes a safety check. A freshly created record may lack
// the status field (decoded as pending) and have no responses yet (decoded
// as an empty map).
func checkFromHash(checkID string, fields, rawResponses map[string]string) (*safety.SafetyCheck, error) {
	createdAt, err := parseTime(fields[fieldCreatedAt])
	if err != nil {
		return nil, err
	}

	completedAt, err := parseOptionalTime(fields, fieldCompletedAt)
	if err != nil {
		return nil, err
	}

	status := safety.CheckStatus(fields[fieldStatus])
	if status == "" {
		status = safety.CheckStatusPending
	}

	responses := make(map[string]safety.SafetyResponse, len(rawResponses))

	for userID, raw := range rawResponses {
		var response safety.SafetyResponse
		if err := json.Unmarshal([]byte(raw), &response); err != nil {
			return nil, fmt.Errorf("decode response of %s: %w", userID, err)
		}

		responses[userID] = response
	}

	return &safety.SafetyCheck{
		ID:          checkID,
		GroupID:     fields[fieldGroupID],
		InitiatedBy: fields[fieldInitiatedBy],
		CreatedAt:   createdAt,
		Status:      status,
		CompletedAt: completedAt,
		Responses:   responses,
	}, nil
}

// alertFields renders an SOS alert as hash fields.
func alertFields(alert *safety.SOSAlert) (map[string]any, error) {
	fields := map[string]any{
		fieldUserID:    alert.UserID,
		fieldGroupID:   alert.GroupID,
		fieldTimestamp: encodeTime(alert.Timestamp),
		fieldIsActive:  encodeBool(alert.IsActive),
	}

	if alert.Location != nil {
		raw, err := json.Marshal(alert.Location)
		if err != nil {
			return nil, fmt.Errorf("encode location: %w", err)
		}

		fields[fieldLocation] = string(raw)
	}

	if alert.Message != "" {
		fields[fieldMessage] = alert.Message
	}

	if alert.OriginSafetyCheckID != "" {
		fields[fieldOriginCheckID] = alert.OriginSafetyCheckID
	}

	if alert.ResolvedAt != nil {
		fields[fieldResolvedAt] = encodeTime(*alert.ResolvedAt)
		fields[fieldResolvedReason] = alert.ResolvedReason
	}

	return fields, nil
}

// alertFromHash decodes an SOS alert from its hash fields.
func alertFromHash(alertID string, fields map[string]string) (*safety.SOSAlert, error) {
	timestamp, err := parseTime(fields[fieldTimestamp])
	if err != nil {
		return nil, err
	}

	resolvedAt, err := parseOptionalTime(fields, fieldResolvedAt)
	if err != nil {
		return nil, err
	}

	var location *safety.Location

	if raw, ok := fields[fieldLocation]; ok && raw != "" {
		location = new(safety.Location)
		if err := json.Unmarshal([]byte(raw), location); err != nil {
			return nil, fmt.Errorf("decode location: %w", err)
		}
	}

	return &safety.SOSAlert{
		ID:                  alertID,
		UserID:              fields[fieldUserID],
		GroupID:             fields[fieldGroupID],
		Timestamp:           timestamp,
		Location:            location,
		Message:             fields[fieldMessage],
		IsActive:            fields[fieldIsActive] == "1",
		ResolvedAt:          resolvedAt,
		ResolvedReason:      fields[fieldResolvedReason],
		OriginSafetyCheckID: fields[fieldOriginCheckID],
	}, nil
}

// encodeBool stores booleans as "1"/"0" so partial updates stay trivially
// comparable.
func encodeBool(b bool) string {
	if b {
		return "1"
	}

	return "0"
}
