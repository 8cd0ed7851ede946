package normalizer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulngraph/vulngraph-backend/model"
	"github.com/vulngraph/vulngraph-backend/util"
)

// memoryStore keeps advisories keyed by content sha, mirroring the
// idempotent upsert contract.
type memoryStore struct {
	advisories map[string]*model.Advisory
}

func newMemoryStore() *memoryStore {
	return &memoryStore{advisories: make(map[string]*model.Advisory)}
}

func (s *memoryStore) UpsertAdvisory(_ context.Context, advisory *model.Advisory) (*model.Advisory, bool, error) {
	if existing, ok := s.advisories[advisory.ContentSha]; ok {
		return existing, false, nil
	}
	s.advisories[advisory.ContentSha] = advisory
	return advisory, true, nil
}

func newTestNormalizer(t *testing.T, store AdvisoryStore) *Normalizer {
	t.Helper()
	scoring, err := util.LoadScoringSystems("")
	require.NoError(t, err)
	return New(store, scoring, zap.NewNop())
}

func sampleRaw() RawAdvisory {
	published := time.Date(2019, 5, 28, 0, 0, 0, 0, time.UTC)
	return RawAdvisory{
		Aliases: []string{"CVE-2019-12243"},
		Summary: "Incorrect access control in Istio",
		AffectedPackages: []model.AffectedPackageRange{{
			Type:            "golang",
			Name:            "istio",
			VulnerableRange: "1.1 to 1.1.15",
		}},
		References: []model.Reference{{
			URL:         "https://istio.io/news/security/istio-security-2019-001/",
			ReferenceID: "ISTIO-SECURITY-2019-001",
		}},
		DatePublished: &published,
	}
}

func Test_Normalize_StoresAdvisory(t *testing.T) {
	store := newMemoryStore()
	n := newTestNormalizer(t, store)

	stored, created, err := n.Normalize(context.Background(), sampleRaw(), "istio_importer")
	require.NoError(t, err)

	assert.True(t, created)
	assert.NotEmpty(t, stored.ContentSha)
	assert.Equal(t, "istio_importer", stored.CreatedBy)
	assert.False(t, stored.DateCollected.IsZero())
	assert.Nil(t, stored.DateImproved)
}

func Test_Normalize_DeduplicatesByteIdenticalInput(t *testing.T) {
	store := newMemoryStore()
	n := newTestNormalizer(t, store)
	ctx := context.Background()

	first, created, err := n.Normalize(ctx, sampleRaw(), "istio_importer")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := n.Normalize(ctx, sampleRaw(), "istio_importer")
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ContentSha, second.ContentSha)
	assert.Len(t, store.advisories, 1)
}

func Test_Normalize_DifferentContentDifferentRecord(t *testing.T) {
	store := newMemoryStore()
	n := newTestNormalizer(t, store)
	ctx := context.Background()

	_, _, err := n.Normalize(ctx, sampleRaw(), "istio_importer")
	require.NoError(t, err)

	changed := sampleRaw()
	changed.Summary = "Rewritten summary"
	_, created, err := n.Normalize(ctx, changed, "istio_importer")
	require.NoError(t, err)

	assert.True(t, created)
	assert.Len(t, store.advisories, 2)
}

func Test_Normalize_FieldTooLong(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawAdvisory)
		field  string
	}{
		{
			name:   "alias over 50",
			mutate: func(r *RawAdvisory) { r.Aliases = []string{strings.Repeat("A", 51)} },
			field:  "alias",
		},
		{
			name: "package name over 100",
			mutate: func(r *RawAdvisory) {
				r.AffectedPackages[0].Name = strings.Repeat("n", 101)
			},
			field: "name",
		},
		{
			name: "url over 1024",
			mutate: func(r *RawAdvisory) {
				r.References[0].URL = "https://" + strings.Repeat("a", 1020)
			},
			field: "url",
		},
		{
			name: "reference id over 50",
			mutate: func(r *RawAdvisory) {
				r.References[0].ReferenceID = strings.Repeat("R", 51)
			},
			field: "reference_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			n := newTestNormalizer(t, store)

			raw := sampleRaw()
			tt.mutate(&raw)

			_, _, err := n.Normalize(context.Background(), raw, "istio_importer")
			var tooLong *model.FieldTooLongError
			require.ErrorAs(t, err, &tooLong)
			assert.Equal(t, tt.field, tooLong.Field)
			assert.Empty(t, store.advisories, "rejected documents never reach the store")
		})
	}
}

func Test_Normalize_CreatedByTooLong(t *testing.T) {
	n := newTestNormalizer(t, newMemoryStore())

	_, _, err := n.Normalize(context.Background(), sampleRaw(), strings.Repeat("x", 101))
	var tooLong *model.FieldTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, "created_by", tooLong.Field)
}

func Test_Normalize_UnknownScoringSystem(t *testing.T) {
	n := newTestNormalizer(t, newMemoryStore())

	raw := sampleRaw()
	raw.References[0].Severities = []model.Severity{{ScoringSystem: "made_up", Value: "HIGH"}}

	_, _, err := n.Normalize(context.Background(), raw, "istio_importer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scoring system")
}

func Test_Normalize_DerivesCVSSScore(t *testing.T) {
	store := newMemoryStore()
	n := newTestNormalizer(t, store)

	raw := sampleRaw()
	raw.References[0].Severities = []model.Severity{{
		ScoringSystem: "cvssv3.1",
		Value:         "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
	}}

	stored, _, err := n.Normalize(context.Background(), raw, "istio_importer")
	require.NoError(t, err)

	require.Len(t, stored.References[0].Severities, 1)
	assert.InDelta(t, 9.8, stored.References[0].Severities[0].Score, 0.01)
}

func Test_Normalize_DoesNotMutateRawDocument(t *testing.T) {
	n := newTestNormalizer(t, newMemoryStore())

	raw := sampleRaw()
	raw.References[0].Severities = []model.Severity{{
		ScoringSystem: "cvssv3.1",
		Value:         "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
	}}

	_, _, err := n.Normalize(context.Background(), raw, "istio_importer")
	require.NoError(t, err)

	assert.Zero(t, raw.References[0].Severities[0].Score, "scoring enriches the stored copy, never the caller's document")
	assert.Empty(t, raw.References[0].ObjType)
}
