package events

import "time"

// Event types published by the dashboard.
const (
	DatasetUploaded  = "DATASET_UPLOADED"
	DatasetDeleted   = "DATASET_DELETED"
	ReportDownloaded = "REPORT_DOWNLOADED"
	SessionStarted   = "SESSION_STARTED"
	SessionEnded     = "SESSION_ENDED"
)

// Event defines the contract for all dashboard events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DATASET_UPLOADED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// New stamps an event of type t with the current time.
func New(t string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: t, Data: data, OccurredAt: time.Now().UTC()}
}
