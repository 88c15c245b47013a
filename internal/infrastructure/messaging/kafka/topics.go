// Package kafka publishes and consumes the platform's domain events.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic constants.
const (
	TopicControlApplied     = "control.applied"
	TopicControlRemoved     = "control.removed"
	TopicAssessmentUpdated  = "assessment.updated"
	TopicAssessmentCleared  = "assessment.cleared"
	TopicAssessmentRestored = "assessment.restored"
	TopicDeadLetterDefault  = "dead_letter.default"
)

// eventTopics routes event types emitted by the application services to
// their topics.  Unknown event types go to the dead letter topic.
var eventTopics = map[string]string{
	"control.applied":     TopicControlApplied,
	"control.removed":     TopicControlRemoved,
	"assessment.updated":  TopicAssessmentUpdated,
	"assessment.cleared":  TopicAssessmentCleared,
	"assessment.restored": TopicAssessmentRestored,
}

// TopicFor returns the topic for an event type and whether the type is known.
func TopicFor(eventType string) (string, bool) {
	topic, ok := eventTopics[eventType]
	if !ok {
		return TopicDeadLetterDefault, false
	}
	return topic, true
}

// EventEnvelope standardizes event messages on the wire.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// SchemaVersion is bumped on incompatible envelope or payload changes.
const SchemaVersion = "1.0"

// envelopeSource identifies this service in emitted events.
const envelopeSource = "spacerisk"

// NewEnvelope wraps a payload in a versioned envelope.
func NewEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        envelopeSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       raw,
	}, nil
}
