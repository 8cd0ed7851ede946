package improve

import (
	"context"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"go.uber.org/zap"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/model"
)

// ArangoGraph implements GraphWriter over the vulnerability, alias,
// package and reference collections.
type ArangoGraph struct {
	DB     database.DBConnection
	Logger *zap.Logger
}

// graphPrimitives are the storage operations alias convergence is built
// from. EnsureVulnerability's decision logic runs on this interface so
// it can be exercised without a live database.
type graphPrimitives interface {
	vulnerabilityKeysForAliases(ctx context.Context, aliases []string) ([]string, error)
	vulnerabilityByKey(ctx context.Context, key string) (*model.Vulnerability, error)
	createVulnerability(ctx context.Context, summary string) (*model.Vulnerability, error)
	claimAlias(ctx context.Context, alias, vulnKey string) (string, error)
	removeVulnerability(ctx context.Context, key string) error
}

// EnsureVulnerability implements GraphWriter. Aliases converge on at
// most one vulnerability: none known creates a fresh one, exactly one
// adopts it, more than one is an AliasConflictError.
func (g *ArangoGraph) EnsureVulnerability(ctx context.Context, aliases []string, summary string) (*model.Vulnerability, error) {
	return ensureVulnerability(ctx, g, aliases, summary, g.Logger)
}

// ensureVulnerability claims every alias through an exclusive upsert
// that returns the winning vulnerability key. A writer that created a
// fresh vulnerability and then loses the first claim drops its orphan
// and adopts the winner, so every edge lands on the vulnerability the
// aliases actually point at. A losing claim after anything already
// points at our vulnerability means the aliases span two
// vulnerabilities, which is an AliasConflictError.
func ensureVulnerability(ctx context.Context, store graphPrimitives, aliases []string, summary string, logger *zap.Logger) (*model.Vulnerability, error) {
	keys, err := store.vulnerabilityKeysForAliases(ctx, aliases)
	if err != nil {
		return nil, err
	}
	if len(keys) > 1 {
		return nil, &AliasConflictError{Aliases: aliases, VulnerabilityKeys: keys}
	}

	var vuln *model.Vulnerability
	created := false
	if len(keys) == 1 {
		vuln, err = store.vulnerabilityByKey(ctx, keys[0])
		if err != nil {
			return nil, err
		}
		if summary != "" && vuln.Summary != "" && vuln.Summary != summary {
			logger.Sugar().Warnf("Inconsistent summaries for vulnerability %s: %q, %q", vuln.Key, vuln.Summary, summary)
		}
	} else {
		vuln, err = store.createVulnerability(ctx, summary)
		if err != nil {
			return nil, err
		}
		created = true
	}

	for i, alias := range aliases {
		winner, err := store.claimAlias(ctx, alias, vuln.Key)
		if err != nil {
			return nil, err
		}
		if winner == vuln.Key {
			continue
		}

		if created && i == 0 {
			// Another writer claimed the alias between our lookup and
			// our claim. Nothing points at the fresh vulnerability yet:
			// drop it and adopt the winner.
			if err := store.removeVulnerability(ctx, vuln.Key); err != nil {
				return nil, err
			}
			vuln, err = store.vulnerabilityByKey(ctx, winner)
			if err != nil {
				return nil, err
			}
			created = false
			continue
		}

		return nil, &AliasConflictError{Aliases: aliases, VulnerabilityKeys: []string{vuln.Key, winner}}
	}

	return vuln, nil
}

func (g *ArangoGraph) vulnerabilityKeysForAliases(ctx context.Context, aliases []string) ([]string, error) {
	if len(aliases) == 0 {
		return nil, nil
	}

	query := `
		FOR a IN alias
			FILTER a.alias IN @aliases
			RETURN DISTINCT a.vulnerability_key
	`
	bindVars := map[string]interface{}{"aliases": aliases}

	cursor, err := g.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var keys []string
	for cursor.HasMore() {
		var key string
		if _, err := cursor.ReadDocument(ctx, &key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, nil
}

func (g *ArangoGraph) vulnerabilityByKey(ctx context.Context, key string) (*model.Vulnerability, error) {
	query := `RETURN DOCUMENT("vulnerability", @key)`
	bindVars := map[string]interface{}{"key": key}

	cursor, err := g.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var vuln model.Vulnerability
	if _, err := cursor.ReadDocument(ctx, &vuln); err != nil {
		return nil, err
	}

	return &vuln, nil
}

func (g *ArangoGraph) createVulnerability(ctx context.Context, summary string) (*model.Vulnerability, error) {
	vuln := model.NewVulnerability(summary)

	query := `INSERT @vuln IN vulnerability RETURN NEW`
	bindVars := map[string]interface{}{"vuln": vuln}

	cursor, err := g.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var stored model.Vulnerability
	if _, err := cursor.ReadDocument(ctx, &stored); err != nil {
		return nil, err
	}

	g.Logger.Sugar().Infof("New vulnerability %s created", stored.ExternalID())
	return &stored, nil
}

// claimAlias upserts the alias record and returns the vulnerability key
// it points at after the statement: ours when the alias was free, the
// incumbent's when it was already taken. The exclusive option serializes
// racing claimants on the collection.
func (g *ArangoGraph) claimAlias(ctx context.Context, alias, vulnKey string) (string, error) {
	query := `
		UPSERT { alias: @alias }
		INSERT { alias: @alias, vulnerability_key: @vulnKey, objtype: "Alias" }
		UPDATE {}
		IN alias
		OPTIONS { exclusive: true }
		RETURN NEW.vulnerability_key
	`
	bindVars := map[string]interface{}{
		"alias":   alias,
		"vulnKey": vulnKey,
	}

	cursor, err := g.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return "", err
	}
	defer cursor.Close()

	var winner string
	if _, err := cursor.ReadDocument(ctx, &winner); err != nil {
		return "", err
	}

	return winner, nil
}

func (g *ArangoGraph) removeVulnerability(ctx context.Context, key string) error {
	query := `REMOVE { _key: @key } IN vulnerability`
	bindVars := map[string]interface{}{"key": key}

	_, err := g.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	return err
}

// EnsurePackage implements GraphWriter: an idempotent upsert on the
// canonical purl.
func (g *ArangoGraph) EnsurePackage(ctx context.Context, pkg *model.Package) (*model.Package, error) {
	query := `
		UPSERT { purl: @purl }
		INSERT @pkg
		UPDATE {}
		IN package
		OPTIONS { exclusive: true }
		RETURN NEW
	`
	bindVars := map[string]interface{}{
		"purl": pkg.Purl,
		"pkg":  pkg,
	}

	cursor, err := g.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var stored model.Package
	if _, err := cursor.ReadDocument(ctx, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// EnsureReference implements GraphWriter: unique per (vulnerability,
// url, reference_id), severities refreshed on every pass.
func (g *ArangoGraph) EnsureReference(ctx context.Context, vulnKey string, ref model.Reference) error {
	query := `
		UPSERT { vulnerability_key: @vulnKey, url: @url, reference_id: @refID }
		INSERT {
			vulnerability_key: @vulnKey,
			url: @url,
			reference_id: @refID,
			severities: @severities,
			objtype: "Reference"
		}
		UPDATE { severities: @severities }
		IN reference
		OPTIONS { exclusive: true }
	`
	bindVars := map[string]interface{}{
		"vulnKey":    vulnKey,
		"url":        ref.URL,
		"refID":      ref.ReferenceID,
		"severities": ref.Severities,
	}

	_, err := g.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	return err
}

// StampImproved implements GraphWriter.
func (g *ArangoGraph) StampImproved(ctx context.Context, advisoryKey string) error {
	query := `
		UPDATE { _key: @key }
		WITH { date_improved: @now }
		IN advisory
	`
	bindVars := map[string]interface{}{
		"key": advisoryKey,
		"now": time.Now().UTC(),
	}

	_, err := g.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	return err
}

// Ensure compile-time interface checks
var (
	_ GraphWriter     = (*ArangoGraph)(nil)
	_ graphPrimitives = (*ArangoGraph)(nil)
)
