// Package advisories defines types for Kafka event processing of advisory collection events.
package advisories

import (
	"time"

	"github.com/vulngraph/vulngraph-backend/internal/normalizer"
)

// AdvisoryCollectedEvent represents an advisory collection event published to Kafka.
type AdvisoryCollectedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	// Source is the collector that produced the document; it becomes the
	// advisory's created_by.
	Source string `json:"source"`

	Advisory normalizer.RawAdvisory `json:"advisory"`
}
