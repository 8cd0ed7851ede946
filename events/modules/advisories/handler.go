// Package advisories handles Kafka event processing for advisory collection events.
package advisories

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/vulngraph/vulngraph-backend/internal/normalizer"
	"github.com/vulngraph/vulngraph-backend/model"
)

// AdvisoryNormalizer defines the interface for normalizing collected advisories.
type AdvisoryNormalizer interface {
	Normalize(ctx context.Context, raw normalizer.RawAdvisory, createdBy string) (*model.Advisory, bool, error)
}

// HandleAdvisoryCollected processes advisory collection events from Kafka.
func HandleAdvisoryCollected(ctx context.Context, msg []byte, n AdvisoryNormalizer) error {
	var event AdvisoryCollectedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("failed to unmarshal AdvisoryCollectedEvent: %w", err)
	}

	if event.Source == "" {
		return fmt.Errorf("invalid event: missing source")
	}
	if len(event.Advisory.Aliases) == 0 && len(event.Advisory.AffectedPackages) == 0 {
		return fmt.Errorf("invalid event: advisory carries no aliases and no affected packages")
	}

	log.Printf("Processing advisory %v from %s", event.Advisory.Aliases, event.Source)

	stored, created, err := n.Normalize(ctx, event.Advisory, event.Source)
	if err != nil {
		return fmt.Errorf("failed to normalize advisory from %s: %w", event.Source, err)
	}

	if created {
		log.Printf("Stored advisory %s from %s", stored.ContentSha, event.Source)
	} else {
		log.Printf("Advisory %s from %s already known", stored.ContentSha, event.Source)
	}
	return nil
}
