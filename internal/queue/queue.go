// Package queue owns the content lifecycle state machine:
// queued -> {approved, spiked}; approved -> published; regenerate keeps a
// queued item queued. spiked and published are terminal.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	contentrepo "github.com/pressroomhq/pressroom-backend/internal/data/repos/content"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type EditRequest struct {
	Headline *string
	Body     *string
}

type Service interface {
	List(ctx context.Context, orgID uuid.UUID, filter contentrepo.ListFilter) ([]*types.Content, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*types.Content, error)
	// Approve is idempotent: re-approving an approved item returns it
	// unchanged. Approving a spiked or published item is an invalid
	// transition.
	Approve(ctx context.Context, orgID, id uuid.UUID) (*types.Content, error)
	// Spike retires a queued or approved draft and feeds the verdict back
	// into the source signals' spike counters.
	Spike(ctx context.Context, orgID, id uuid.UUID) (*types.Content, error)
	// Schedule stamps a future publish time on an approved item.
	Schedule(ctx context.Context, orgID, id uuid.UUID, at time.Time) (*types.Content, error)
	// Edit replaces headline/body while the item is still queued.
	Edit(ctx context.Context, orgID, id uuid.UUID, edit EditRequest) (*types.Content, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type service struct {
	log         *logger.Logger
	contentRepo repos.ContentRepo
	signalRepo  repos.SignalRepo
}

func NewService(baseLog *logger.Logger, contentRepo repos.ContentRepo, signalRepo repos.SignalRepo) Service {
	return &service{
		log:         baseLog.With("service", "QueueService"),
		contentRepo: contentRepo,
		signalRepo:  signalRepo,
	}
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, filter contentrepo.ListFilter) ([]*types.Content, error) {
	return s.contentRepo.List(dbctx.New(ctx), orgID, filter)
}

func (s *service) Get(ctx context.Context, orgID, id uuid.UUID) (*types.Content, error) {
	return s.contentRepo.GetByID(dbctx.New(ctx), orgID, id)
}

func (s *service) Approve(ctx context.Context, orgID, id uuid.UUID) (*types.Content, error) {
	moved, err := s.contentRepo.UpdateStatusIf(dbctx.New(ctx), orgID, id,
		[]types.ContentStatus{types.ContentStatusQueued}, types.ContentStatusApproved,
		map[string]interface{}{"approved_at": time.Now()})
	if err != nil {
		return nil, err
	}
	row, err := s.contentRepo.GetByID(dbctx.New(ctx), orgID, id)
	if err != nil {
		return nil, err
	}
	if moved {
		return row, nil
	}
	if row.Status == types.ContentStatusApproved {
		return row, nil
	}
	return nil, fmt.Errorf("approve: %w: content is %s", pkgerrors.ErrInvalidTransition, row.Status)
}

func (s *service) Spike(ctx context.Context, orgID, id uuid.UUID) (*types.Content, error) {
	moved, err := s.contentRepo.UpdateStatusIf(dbctx.New(ctx), orgID, id,
		[]types.ContentStatus{types.ContentStatusQueued, types.ContentStatusApproved},
		types.ContentStatusSpiked, nil)
	if err != nil {
		return nil, err
	}
	row, err := s.contentRepo.GetByID(dbctx.New(ctx), orgID, id)
	if err != nil {
		return nil, err
	}
	if !moved {
		if row.Status == types.ContentStatusSpiked {
			return row, nil
		}
		return nil, fmt.Errorf("spike: %w: content is %s", pkgerrors.ErrInvalidTransition, row.Status)
	}

	// performance feedback: the counter is advisory for the editor, so a
	// failure here only logs
	if ids := provenanceIDs(row); len(ids) > 0 {
		if err := s.signalRepo.RecordSpike(dbctx.New(ctx), ids); err != nil {
			s.log.Warn("record spike failed", "content_id", id, "error", err.Error())
		}
	}
	return row, nil
}

func (s *service) Schedule(ctx context.Context, orgID, id uuid.UUID, at time.Time) (*types.Content, error) {
	ok, err := s.contentRepo.UpdateFieldsIfStatus(dbctx.New(ctx), orgID, id, types.ContentStatusApproved,
		map[string]interface{}{"scheduled_at": at})
	if err != nil {
		return nil, err
	}
	if !ok {
		row, err := s.contentRepo.GetByID(dbctx.New(ctx), orgID, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("schedule: %w: content is %s, not approved", pkgerrors.ErrInvalidTransition, row.Status)
	}
	return s.contentRepo.GetByID(dbctx.New(ctx), orgID, id)
}

func (s *service) Edit(ctx context.Context, orgID, id uuid.UUID, edit EditRequest) (*types.Content, error) {
	updates := map[string]interface{}{}
	if edit.Headline != nil {
		updates["headline"] = *edit.Headline
	}
	if edit.Body != nil {
		updates["body"] = *edit.Body
	}
	if len(updates) == 0 {
		return s.contentRepo.GetByID(dbctx.New(ctx), orgID, id)
	}

	ok, err := s.contentRepo.UpdateFieldsIfStatus(dbctx.New(ctx), orgID, id, types.ContentStatusQueued, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		row, err := s.contentRepo.GetByID(dbctx.New(ctx), orgID, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("edit: %w: content is %s, not queued", pkgerrors.ErrInvalidTransition, row.Status)
	}
	return s.contentRepo.GetByID(dbctx.New(ctx), orgID, id)
}

func (s *service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.contentRepo.Delete(dbctx.New(ctx), orgID, id)
}

func provenanceIDs(row *types.Content) []uuid.UUID {
	if len(row.SourceSignalIDs) == 0 {
		return nil
	}
	var strs []string
	if err := json.Unmarshal(row.SourceSignalIDs, &strs); err != nil {
		return nil
	}
	var out []uuid.UUID
	for _, s := range strs {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}
