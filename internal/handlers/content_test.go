package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contentrepo "github.com/pressroomhq/pressroom-backend/internal/data/repos/content"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
	"github.com/pressroomhq/pressroom-backend/internal/queue"
)

type fakeQueue struct {
	queue.Service

	approved []uuid.UUID
	spiked   []uuid.UUID
	err      error
}

func (f *fakeQueue) Approve(ctx context.Context, orgID, id uuid.UUID) (*types.Content, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.approved = append(f.approved, id)
	return &types.Content{ID: id, OrgID: &orgID, Status: types.ContentStatusApproved}, nil
}

func (f *fakeQueue) Spike(ctx context.Context, orgID, id uuid.UUID) (*types.Content, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.spiked = append(f.spiked, id)
	return &types.Content{ID: id, OrgID: &orgID, Status: types.ContentStatusSpiked}, nil
}

func (f *fakeQueue) List(ctx context.Context, orgID uuid.UUID, filter contentrepo.ListFilter) ([]*types.Content, error) {
	return nil, nil
}

func (f *fakeQueue) Schedule(ctx context.Context, orgID, id uuid.UUID, at time.Time) (*types.Content, error) {
	return &types.Content{ID: id, OrgID: &orgID, Status: types.ContentStatusApproved, ScheduledAt: &at}, nil
}

func newContentRouter(t *testing.T, q queue.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	require.NoError(t, err)
	h := NewContentHandler(log, q, nil, nil)

	router := gin.New()
	router.POST("/api/orgs/:id/content/:cid/action", h.Action)
	router.POST("/api/orgs/:id/content/:cid/schedule", h.Schedule)
	return router
}

func TestContentActionRoutesApprove(t *testing.T) {
	q := &fakeQueue{}
	router := newContentRouter(t, q)
	orgID, contentID := uuid.New(), uuid.New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/content/%s/action", orgID, contentID),
		strings.NewReader(`{"action":"approve"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []uuid.UUID{contentID}, q.approved)
	assert.Empty(t, q.spiked)
}

func TestContentActionRoutesSpike(t *testing.T) {
	q := &fakeQueue{}
	router := newContentRouter(t, q)
	orgID, contentID := uuid.New(), uuid.New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/content/%s/action", orgID, contentID),
		strings.NewReader(`{"action":"spike"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{contentID}, q.spiked)
}

func TestContentActionRejectsUnknownVerb(t *testing.T) {
	q := &fakeQueue{}
	router := newContentRouter(t, q)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/content/%s/action", uuid.New(), uuid.New()),
		strings.NewReader(`{"action":"archive"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, q.approved)
	assert.Empty(t, q.spiked)
}

func TestContentActionMapsInvalidTransition(t *testing.T) {
	q := &fakeQueue{err: fmt.Errorf("approve: %w: content is published", pkgerrors.ErrInvalidTransition)}
	router := newContentRouter(t, q)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/content/%s/action", uuid.New(), uuid.New()),
		strings.NewReader(`{"action":"approve"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "invalid_transition", envelope.Error.Code)
}

func TestContentScheduleParsesTimestamp(t *testing.T) {
	q := &fakeQueue{}
	router := newContentRouter(t, q)
	orgID, contentID := uuid.New(), uuid.New()
	at := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	rec := httptest.NewRecorder()
	body := fmt.Sprintf(`{"scheduled_at":%q}`, at.Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/content/%s/schedule", orgID, contentID),
		strings.NewReader(body))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var row types.Content
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &row))
	require.NotNil(t, row.ScheduledAt)
	assert.True(t, row.ScheduledAt.Equal(at))
}
