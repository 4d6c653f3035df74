package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/extract"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
)

type fakeExtractor struct {
	article *extract.Article
	err     error
	fetched []string
}

func (f *fakeExtractor) FromURL(_ context.Context, pageURL string) (*extract.Article, error) {
	f.fetched = append(f.fetched, pageURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.article, nil
}

func (f *fakeSignalRepo) GetByID(_ dbctx.Context, orgID, id uuid.UUID) (*types.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.OrgID == nil || *row.OrgID != orgID {
		return nil, pkgerrors.ErrNotFound
	}
	return row, nil
}

func (f *fakeSignalRepo) UpdateBody(_ dbctx.Context, orgID, id uuid.UUID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.OrgID == nil || *row.OrgID != orgID {
		return pkgerrors.ErrNotFound
	}
	row.Body = body
	return nil
}

func TestDigDeeperAppendsSection(t *testing.T) {
	f := newFixture(t)
	sig := f.signals[0]
	sig.URL = "https://example.com/release"
	ex := &fakeExtractor{article: &extract.Article{Title: "Release notes", Markdown: "Latency cut in half."}}
	f.svc.extractor = ex

	updated, err := f.svc.DigDeeper(context.Background(), f.orgID, sig.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/release"}, ex.fetched)
	assert.Contains(t, updated.Body, "big release", "original body survives")
	assert.Contains(t, updated.Body, deepDiveMarker)
	assert.Contains(t, f.signalRepo.rows[sig.ID].Body, deepDiveMarker, "persisted")
}

func TestDigDeeperReplacesPreviousSection(t *testing.T) {
	f := newFixture(t)
	sig := f.signals[0]
	sig.URL = "https://example.com/release"
	sig.Body = "big release\n\n" + deepDiveMarker + "\nstale notes"
	f.svc.extractor = &fakeExtractor{article: &extract.Article{Title: "t", Markdown: "fresh facts"}}

	updated, err := f.svc.DigDeeper(context.Background(), f.orgID, sig.ID)
	require.NoError(t, err)
	assert.NotContains(t, updated.Body, "stale notes")
	assert.Equal(t, 1, strings.Count(updated.Body, deepDiveMarker))
}

func TestDigDeeperRequiresURL(t *testing.T) {
	f := newFixture(t)
	f.svc.extractor = &fakeExtractor{}

	_, err := f.svc.DigDeeper(context.Background(), f.orgID, f.signals[0].ID)
	require.ErrorIs(t, err, pkgerrors.ErrInvalidArgument)
}

func TestDigDeeperExtractionFailureLeavesBody(t *testing.T) {
	f := newFixture(t)
	sig := f.signals[0]
	sig.URL = "https://example.com/gone"
	f.svc.extractor = &fakeExtractor{err: errors.New("status 404")}

	_, err := f.svc.DigDeeper(context.Background(), f.orgID, sig.ID)
	require.Error(t, err)
	assert.Equal(t, "big release", f.signalRepo.rows[sig.ID].Body)
}
