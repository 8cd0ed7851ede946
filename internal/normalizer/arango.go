package normalizer

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/model"
)

// ArangoStore implements AdvisoryStore over the advisory collection. The
// UPSERT on content_sha makes ingestion idempotent; the unique index on
// content_sha backstops it.
type ArangoStore struct {
	DB database.DBConnection
}

// UpsertAdvisory implements AdvisoryStore.
func (s *ArangoStore) UpsertAdvisory(ctx context.Context, advisory *model.Advisory) (*model.Advisory, bool, error) {
	query := `
		UPSERT { content_sha: @sha }
		INSERT @advisory
		UPDATE {}
		IN advisory
		OPTIONS { exclusive: true }
		RETURN { doc: NEW, created: OLD == null }
	`

	bindVars := map[string]interface{}{
		"sha":      advisory.ContentSha,
		"advisory": advisory,
	}

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close()

	var result struct {
		Doc     model.Advisory `json:"doc"`
		Created bool           `json:"created"`
	}
	if cursor.HasMore() {
		if _, err := cursor.ReadDocument(ctx, &result); err != nil {
			return nil, false, err
		}
	}

	return &result.Doc, result.Created, nil
}

// UnimprovedAdvisories returns advisories that have not yet been improved
// (date_improved unset), the default improver's interesting set.
func (s *ArangoStore) UnimprovedAdvisories(ctx context.Context) ([]model.Advisory, error) {
	query := `
		FOR a IN advisory
			FILTER a.date_improved == null
			RETURN a
	`

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var advisories []model.Advisory
	for cursor.HasMore() {
		var advisory model.Advisory
		if _, err := cursor.ReadDocument(ctx, &advisory); err != nil {
			return nil, err
		}
		advisories = append(advisories, advisory)
	}

	return advisories, nil
}

// Ensure compile-time interface check
var _ AdvisoryStore = (*ArangoStore)(nil)
