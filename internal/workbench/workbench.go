// Package workbench is the editorial layer over the signal wire: stories
// collect curated signals plus an angle and notes, and discovery finds more
// material for a story from the wire or the open web.
package workbench

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	"github.com/pressroomhq/pressroom-backend/internal/data/repos/stories"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/anthropic"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
	"github.com/pressroomhq/pressroom-backend/internal/scout"
	"github.com/pressroomhq/pressroom-backend/internal/scout/sources"
)

// StoryView is a story with its attached signals in curation order.
type StoryView struct {
	Story   *types.Story          `json:"story"`
	Signals []*stories.Attachment `json:"signals"`
}

type CreateStoryInput struct {
	Title          string      `json:"title"`
	Angle          string      `json:"angle"`
	EditorialNotes string      `json:"editorial_notes"`
	SignalIDs      []uuid.UUID `json:"signal_ids"`
}

type UpdateStoryInput struct {
	Title          *string `json:"title"`
	Angle          *string `json:"angle"`
	EditorialNotes *string `json:"editorial_notes"`
}

type Service interface {
	Create(ctx context.Context, orgID uuid.UUID, input CreateStoryInput) (*StoryView, error)
	Get(ctx context.Context, orgID, storyID uuid.UUID) (*StoryView, error)
	List(ctx context.Context, orgID uuid.UUID, status types.StoryStatus) ([]*types.Story, error)
	Update(ctx context.Context, orgID, storyID uuid.UUID, input UpdateStoryInput) (*types.Story, error)
	Delete(ctx context.Context, orgID, storyID uuid.UUID) error

	// AddSignal attaches an org signal to a story. Re-attaching is a no-op.
	AddSignal(ctx context.Context, orgID, storyID, signalID uuid.UUID, notes string) (*types.StorySignal, error)
	// RemoveSignal detaches a signal from the story. The signal itself stays
	// on the wire.
	RemoveSignal(ctx context.Context, orgID, storyID, signalID uuid.UUID) error
	UpdateSignalNotes(ctx context.Context, orgID, storyID, signalID uuid.UUID, notes string) error

	// Discover finds material for a story. Mode "wire" ranks unattached org
	// signals; mode "web" searches the open web and returns ephemeral
	// candidates that only persist through AcceptCandidate.
	Discover(ctx context.Context, orgID, storyID uuid.UUID, mode string) (*DiscoverResult, error)
	AcceptCandidate(ctx context.Context, orgID, storyID uuid.UUID, candidate *sources.Candidate) (*types.StorySignal, error)
}

type service struct {
	log         *logger.Logger
	storyRepo   repos.StoryRepo
	signalRepo  repos.SignalRepo
	settingRepo repos.SettingRepo
	scout       scout.Service
	llm         anthropic.Client
}

func NewService(
	baseLog *logger.Logger,
	storyRepo repos.StoryRepo,
	signalRepo repos.SignalRepo,
	settingRepo repos.SettingRepo,
	scoutSvc scout.Service,
	llm anthropic.Client,
) Service {
	return &service{
		log:         baseLog.With("service", "WorkbenchService"),
		storyRepo:   storyRepo,
		signalRepo:  signalRepo,
		settingRepo: settingRepo,
		scout:       scoutSvc,
		llm:         llm,
	}
}

func (s *service) Create(ctx context.Context, orgID uuid.UUID, input CreateStoryInput) (*StoryView, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("create story: %w: title is required", pkgerrors.ErrInvalidArgument)
	}
	story, err := s.storyRepo.Create(dbctx.New(ctx), &types.Story{
		ID:             uuid.New(),
		OrgID:          &orgID,
		Title:          strings.TrimSpace(input.Title),
		Angle:          input.Angle,
		EditorialNotes: input.EditorialNotes,
		Status:         types.StoryStatusDraft,
	})
	if err != nil {
		return nil, err
	}
	for _, signalID := range input.SignalIDs {
		if _, err := s.AddSignal(ctx, orgID, story.ID, signalID, ""); err != nil {
			return nil, fmt.Errorf("create story: attach %s: %w", signalID, err)
		}
	}
	return s.Get(ctx, orgID, story.ID)
}

func (s *service) Get(ctx context.Context, orgID, storyID uuid.UUID) (*StoryView, error) {
	story, err := s.storyRepo.GetByID(dbctx.New(ctx), orgID, storyID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.storyRepo.ListAttachments(dbctx.New(ctx), storyID)
	if err != nil {
		return nil, err
	}
	return &StoryView{Story: story, Signals: attachments}, nil
}

func (s *service) List(ctx context.Context, orgID uuid.UUID, status types.StoryStatus) ([]*types.Story, error) {
	return s.storyRepo.List(dbctx.New(ctx), orgID, status)
}

func (s *service) Update(ctx context.Context, orgID, storyID uuid.UUID, input UpdateStoryInput) (*types.Story, error) {
	updates := map[string]interface{}{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, fmt.Errorf("update story: %w: title cannot be empty", pkgerrors.ErrInvalidArgument)
		}
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Angle != nil {
		updates["angle"] = *input.Angle
	}
	if input.EditorialNotes != nil {
		updates["editorial_notes"] = *input.EditorialNotes
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("update story: %w: no fields to update", pkgerrors.ErrInvalidArgument)
	}
	if err := s.storyRepo.UpdateFields(dbctx.New(ctx), orgID, storyID, updates); err != nil {
		return nil, err
	}
	return s.storyRepo.GetByID(dbctx.New(ctx), orgID, storyID)
}

func (s *service) Delete(ctx context.Context, orgID, storyID uuid.UUID) error {
	return s.storyRepo.Delete(dbctx.New(ctx), orgID, storyID)
}

func (s *service) AddSignal(ctx context.Context, orgID, storyID, signalID uuid.UUID, notes string) (*types.StorySignal, error) {
	if _, err := s.storyRepo.GetByID(dbctx.New(ctx), orgID, storyID); err != nil {
		return nil, err
	}
	// ownership check: attaching another org's signal is indistinguishable
	// from attaching a missing one
	if _, err := s.signalRepo.GetByID(dbctx.New(ctx), orgID, signalID); err != nil {
		return nil, err
	}
	return s.storyRepo.AttachSignal(dbctx.New(ctx), storyID, signalID, notes)
}

func (s *service) RemoveSignal(ctx context.Context, orgID, storyID, signalID uuid.UUID) error {
	if _, err := s.storyRepo.GetByID(dbctx.New(ctx), orgID, storyID); err != nil {
		return err
	}
	return s.storyRepo.DetachSignal(dbctx.New(ctx), storyID, signalID)
}

func (s *service) UpdateSignalNotes(ctx context.Context, orgID, storyID, signalID uuid.UUID, notes string) error {
	if _, err := s.storyRepo.GetByID(dbctx.New(ctx), orgID, storyID); err != nil {
		return err
	}
	return s.storyRepo.UpdateAttachment(dbctx.New(ctx), storyID, signalID, map[string]interface{}{
		"editor_notes": notes,
	})
}

func (s *service) AcceptCandidate(ctx context.Context, orgID, storyID uuid.UUID, candidate *sources.Candidate) (*types.StorySignal, error) {
	if candidate == nil || strings.TrimSpace(candidate.Title) == "" {
		return nil, fmt.Errorf("accept candidate: %w: candidate needs a title", pkgerrors.ErrInvalidArgument)
	}
	if _, err := s.storyRepo.GetByID(dbctx.New(ctx), orgID, storyID); err != nil {
		return nil, err
	}

	result, err := s.scout.IngestCandidates(ctx, orgID, []*sources.Candidate{candidate})
	if err != nil {
		return nil, fmt.Errorf("accept candidate: %w", err)
	}

	var signalID uuid.UUID
	if len(result.Signals) > 0 {
		signalID = result.Signals[0].ID
	} else {
		// duplicate of something already on the wire; attach the original
		existing, err := s.signalRepo.GetByFingerprint(dbctx.New(ctx), orgID, types.Fingerprint(candidate.Type, candidate.URL, candidate.Title))
		if err != nil {
			return nil, fmt.Errorf("accept candidate: resolve duplicate: %w", err)
		}
		signalID = existing.ID
	}
	return s.storyRepo.AttachSignal(dbctx.New(ctx), storyID, signalID, "")
}
