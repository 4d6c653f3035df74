package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	contentrepo "github.com/pressroomhq/pressroom-backend/internal/data/repos/content"
	"github.com/pressroomhq/pressroom-backend/internal/data/repos/signals"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type fakeContentRepo struct {
	contentrepo.ContentRepo
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Content
}

func (f *fakeContentRepo) GetByID(_ dbctx.Context, orgID, id uuid.UUID) (*types.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.OrgID == nil || *row.OrgID != orgID {
		return nil, pkgerrors.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeContentRepo) UpdateStatusIf(_ dbctx.Context, orgID, id uuid.UUID, allowedFrom []types.ContentStatus, to types.ContentStatus, extra map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.OrgID == nil || *row.OrgID != orgID {
		return false, nil
	}
	allowed := false
	for _, status := range allowedFrom {
		if row.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	row.Status = to
	if v, ok := extra["approved_at"]; ok {
		ts := v.(time.Time)
		row.ApprovedAt = &ts
	}
	return true, nil
}

func (f *fakeContentRepo) UpdateFieldsIfStatus(_ dbctx.Context, orgID, id uuid.UUID, required types.ContentStatus, updates map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.OrgID == nil || *row.OrgID != orgID || row.Status != required {
		return false, nil
	}
	if v, ok := updates["headline"]; ok {
		row.Headline = v.(string)
	}
	if v, ok := updates["body"]; ok {
		row.Body = v.(string)
	}
	if v, ok := updates["scheduled_at"]; ok {
		ts := v.(time.Time)
		row.ScheduledAt = &ts
	}
	return true, nil
}

type fakeSignalRepo struct {
	signals.SignalRepo
	mu     sync.Mutex
	spiked map[uuid.UUID]int
}

func (f *fakeSignalRepo) RecordSpike(_ dbctx.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.spiked[id]++
	}
	return nil
}

type fixture struct {
	svc         Service
	contentRepo *fakeContentRepo
	signalRepo  *fakeSignalRepo
	orgID       uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	f := &fixture{
		contentRepo: &fakeContentRepo{rows: map[uuid.UUID]*types.Content{}},
		signalRepo:  &fakeSignalRepo{spiked: map[uuid.UUID]int{}},
		orgID:       uuid.New(),
	}
	f.svc = NewService(log, f.contentRepo, f.signalRepo)
	return f
}

func (f *fixture) seed(status types.ContentStatus, sourceSignalIDs string) *types.Content {
	row := &types.Content{
		ID:              uuid.New(),
		OrgID:           &f.orgID,
		Channel:         types.ChannelLinkedIn,
		Status:          status,
		Body:            "draft",
		SourceSignalIDs: datatypes.JSON([]byte(sourceSignalIDs)),
	}
	f.contentRepo.rows[row.ID] = row
	return row
}

func TestApproveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	row := f.seed(types.ContentStatusQueued, `[]`)

	first, err := f.svc.Approve(context.Background(), f.orgID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ContentStatusApproved, first.Status)
	require.NotNil(t, first.ApprovedAt)

	second, err := f.svc.Approve(context.Background(), f.orgID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ContentStatusApproved, second.Status)
}

func TestApprovePublishedIsInvalid(t *testing.T) {
	f := newFixture(t)
	row := f.seed(types.ContentStatusPublished, `[]`)

	_, err := f.svc.Approve(context.Background(), f.orgID, row.ID)
	require.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
}

func TestApproveMissingIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), f.orgID, uuid.New())
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
	assert.NotErrorIs(t, err, pkgerrors.ErrInvalidTransition)
}

func TestApproveOtherOrgLeavesRowUntouched(t *testing.T) {
	f := newFixture(t)
	sig := uuid.New()
	row := f.seed(types.ContentStatusQueued, `["`+sig.String()+`"]`)

	_, err := f.svc.Approve(context.Background(), uuid.New(), row.ID)
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
	assert.Equal(t, types.ContentStatusQueued, f.contentRepo.rows[row.ID].Status)

	_, err = f.svc.Spike(context.Background(), uuid.New(), row.ID)
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
	assert.Equal(t, types.ContentStatusQueued, f.contentRepo.rows[row.ID].Status)
	assert.Zero(t, f.signalRepo.spiked[sig])
}

func TestSpikeRecordsSignalFeedback(t *testing.T) {
	f := newFixture(t)
	sigA, sigB := uuid.New(), uuid.New()
	row := f.seed(types.ContentStatusQueued, `["`+sigA.String()+`","`+sigB.String()+`"]`)

	spiked, err := f.svc.Spike(context.Background(), f.orgID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ContentStatusSpiked, spiked.Status)
	assert.Equal(t, 1, f.signalRepo.spiked[sigA])
	assert.Equal(t, 1, f.signalRepo.spiked[sigB])

	// spiking again is a no-op with no second counter tick
	_, err = f.svc.Spike(context.Background(), f.orgID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.signalRepo.spiked[sigA])
}

func TestSpikePublishedIsInvalid(t *testing.T) {
	f := newFixture(t)
	row := f.seed(types.ContentStatusPublished, `[]`)

	_, err := f.svc.Spike(context.Background(), f.orgID, row.ID)
	require.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
}

func TestScheduleRequiresApproved(t *testing.T) {
	f := newFixture(t)
	queued := f.seed(types.ContentStatusQueued, `[]`)
	approved := f.seed(types.ContentStatusApproved, `[]`)

	at := time.Now().Add(2 * time.Hour)
	row, err := f.svc.Schedule(context.Background(), f.orgID, approved.ID, at)
	require.NoError(t, err)
	require.NotNil(t, row.ScheduledAt)

	_, err = f.svc.Schedule(context.Background(), f.orgID, queued.ID, at)
	require.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
}

func TestEditOnlyWhileQueued(t *testing.T) {
	f := newFixture(t)
	row := f.seed(types.ContentStatusQueued, `[]`)

	body := "tightened up"
	edited, err := f.svc.Edit(context.Background(), f.orgID, row.ID, EditRequest{Body: &body})
	require.NoError(t, err)
	assert.Equal(t, "tightened up", edited.Body)

	approved := f.seed(types.ContentStatusApproved, `[]`)
	_, err = f.svc.Edit(context.Background(), f.orgID, approved.ID, EditRequest{Body: &body})
	require.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
}
