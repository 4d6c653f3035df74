package scout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos/signals"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
	"github.com/pressroomhq/pressroom-backend/internal/scout/sources"
)

type stubAdapter struct {
	name  string
	items []*sources.Candidate
	err   error
	delay time.Duration
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Fetch(ctx context.Context) ([]*sources.Candidate, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return a.items, a.err
}

func candidate(title string) *sources.Candidate {
	return &sources.Candidate{
		Type:   types.SignalTypeRSS,
		Source: "stub",
		Title:  title,
		URL:    "https://example.com/" + title,
	}
}

func TestFanOutIsolatesAdapterFailures(t *testing.T) {
	adapters := []sources.Adapter{
		&stubAdapter{name: "good-a", items: []*sources.Candidate{candidate("one"), candidate("two")}},
		&stubAdapter{name: "broken", err: errors.New("connection refused")},
		&stubAdapter{name: "good-b", items: []*sources.Candidate{candidate("three")}, delay: 10 * time.Millisecond},
	}

	merged, sourceErrors := fanOut(context.Background(), adapters)

	assert.Len(t, merged, 3)
	require.Len(t, sourceErrors, 1)
	assert.Contains(t, sourceErrors["broken"], "connection refused")
}

func TestFanOutAllAdaptersDown(t *testing.T) {
	adapters := []sources.Adapter{
		&stubAdapter{name: "a", err: errors.New("timeout")},
		&stubAdapter{name: "b", err: errors.New("dns failure")},
	}

	merged, sourceErrors := fanOut(context.Background(), adapters)

	assert.Empty(t, merged)
	assert.Len(t, sourceErrors, 2)
}

func TestParseVerdicts(t *testing.T) {
	keep, err := parseVerdicts(`[{"i": 0, "r": true}, {"i": 1, "r": false}, {"i": 2, "r": true}]`)
	require.NoError(t, err)
	assert.True(t, keep[0])
	assert.False(t, keep[1])
	assert.True(t, keep[2])
}

func TestParseVerdictsFencedResponse(t *testing.T) {
	keep, err := parseVerdicts("```json\n[{\"i\": 0, \"r\": true}]\n```")
	require.NoError(t, err)
	assert.True(t, keep[0])
}

func TestParseVerdictsGarbage(t *testing.T) {
	_, err := parseVerdicts("I think they are all great signals!")
	assert.Error(t, err)
}

type erroringLLM struct{}

func (erroringLLM) GenerateText(context.Context, string, string) (string, error) {
	return "", errors.New("model unavailable")
}
func (erroringLLM) GenerateTextFast(context.Context, string, string) (string, error) {
	return "", errors.New("model unavailable")
}
func (erroringLLM) Configured() bool { return true }

func TestFilterRelevantFailsOpen(t *testing.T) {
	log, err := logger.New("test")
	require.NoError(t, err)
	svc := &service{log: log, llm: erroringLLM{}}

	batch := []*sources.Candidate{
		candidate("a"), candidate("b"), candidate("c"), candidate("d"),
	}
	kept := svc.filterRelevant(context.Background(), batch, "a devtools company")
	assert.Len(t, kept, len(batch), "model failure must keep the whole batch")
}

type keepNoneLLM struct{}

func (keepNoneLLM) GenerateText(context.Context, string, string) (string, error) {
	return `[]`, nil
}
func (keepNoneLLM) GenerateTextFast(context.Context, string, string) (string, error) {
	return `[{"i": 0, "r": false}, {"i": 1, "r": false}, {"i": 2, "r": false}, {"i": 3, "r": false}]`, nil
}
func (keepNoneLLM) Configured() bool { return true }

func TestFilterRelevantNeverReturnsEmpty(t *testing.T) {
	log, err := logger.New("test")
	require.NoError(t, err)
	svc := &service{log: log, llm: keepNoneLLM{}}

	batch := []*sources.Candidate{
		candidate("a"), candidate("b"), candidate("c"), candidate("d"),
	}
	kept := svc.filterRelevant(context.Background(), batch, "a devtools company")
	assert.Len(t, kept, len(batch))
}

func TestFilterRelevantSkipsTinyBatches(t *testing.T) {
	log, err := logger.New("test")
	require.NoError(t, err)
	svc := &service{log: log, llm: erroringLLM{}}

	batch := []*sources.Candidate{candidate("a"), candidate("b")}
	kept := svc.filterRelevant(context.Background(), batch, "ctx")
	assert.Len(t, kept, 2)
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a/b", "c/d"}, parseList(`["a/b", "c/d"]`))
	assert.Equal(t, []string{"golang", "postgres"}, parseList("golang, postgres"))
	assert.Nil(t, parseList("  "))
	assert.Nil(t, parseList(`[]`))
}

type recordingSignalRepo struct {
	signals.SignalRepo
	ingested []*types.Signal
}

func (r *recordingSignalRepo) Ingest(_ dbctx.Context, rows []*types.Signal) (*signals.IngestResult, error) {
	r.ingested = append(r.ingested, rows...)
	return &signals.IngestResult{Inserted: rows}, nil
}

func TestIngestCandidatesComputesFingerprints(t *testing.T) {
	log, err := logger.New("test")
	require.NoError(t, err)
	repo := &recordingSignalRepo{}
	svc := &service{log: log, signalRepo: repo}

	orgID := uuid.New()
	result, err := svc.IngestCandidates(context.Background(), orgID, []*sources.Candidate{
		candidate("hello"),
		{Type: types.SignalTypeGitHubCommit, Source: "o/r", Title: "o/r: 3 new commits"},
		{Type: types.SignalTypeRSS, Source: "stub"}, // untitled, dropped
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.RawCount)
	require.Len(t, repo.ingested, 2)
	for _, row := range repo.ingested {
		assert.NotEmpty(t, row.Fingerprint)
		assert.Equal(t, orgID, *row.OrgID)
		assert.NotEmpty(t, row.Raw)
	}
}
