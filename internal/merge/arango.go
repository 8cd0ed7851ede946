package merge

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/vulngraph/vulngraph-backend/database"
)

// ArangoStore implements Upserter over the package2vulnerability edge
// collection. The whole compare-then-write is one exclusive AQL UPSERT,
// so two improvers racing on the same pair cannot both observe "absent"
// or overwrite each other's confidence (no lost update, no duplicate
// edge; the unique [_from,_to] index backstops the invariant).
type ArangoStore struct {
	DB database.DBConnection
}

// UpsertEdge implements Upserter.
func (s *ArangoStore) UpsertEdge(ctx context.Context, claim Claim) (bool, error) {
	query := `
		UPSERT { _from: @from, _to: @to }
		INSERT {
			_from: @from,
			_to: @to,
			fix: @fix,
			confidence: @confidence,
			created_by: @createdBy,
			objtype: "Edge"
		}
		UPDATE OLD.confidence < @confidence
			? { fix: @fix, confidence: @confidence, created_by: @createdBy }
			: {}
		IN package2vulnerability
		OPTIONS { exclusive: true }
		RETURN { applied: OLD == null OR OLD.confidence < @confidence }
	`

	bindVars := map[string]interface{}{
		"from":       claim.PackageID,
		"to":         claim.VulnerabilityID,
		"fix":        claim.Fix,
		"confidence": claim.Confidence,
		"createdBy":  claim.CreatedBy,
	}

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return false, err
	}
	defer cursor.Close()

	var result struct {
		Applied bool `json:"applied"`
	}
	if cursor.HasMore() {
		if _, err := cursor.ReadDocument(ctx, &result); err != nil {
			return false, err
		}
	}

	return result.Applied, nil
}

// Ensure compile-time interface check
var _ Upserter = (*ArangoStore)(nil)
