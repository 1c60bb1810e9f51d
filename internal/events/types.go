// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Sync notifications, consumed by the UI as toasts
	SyncSuccess  EventType = "sync-success"
	SyncFailure  EventType = "sync-failure"
	SyncProgress EventType = "sync-progress"

	TransactionAdded    EventType = "transaction-added"
	ConnectivityChanged EventType = "connectivity-changed"
	BackupCompleted     EventType = "backup-completed"
)

// AllTypes lists every event type the bus carries
var AllTypes = []EventType{
	SyncSuccess,
	SyncFailure,
	SyncProgress,
	TransactionAdded,
	ConnectivityChanged,
	BackupCompleted,
}

// IsNotification reports whether t belongs to the sync notification channel
func (t EventType) IsNotification() bool {
	return t == SyncSuccess || t == SyncFailure || t == SyncProgress
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Message returns the human readable message of a notification, or "" if there is none
func (e *Event) Message() string {
	if e == nil || e.Data == nil {
		return ""
	}
	msg, _ := e.Data["message"].(string)
	return msg
}

// Notification is the {type, message} payload delivered to notification subscribers
type Notification struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}
