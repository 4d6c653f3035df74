// Package publish pushes approved content to per-channel destinations.
// Channels without a live destination are marked published with a
// no_destination note so the queue still drains.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

// Attempt is one publish attempt's outcome, returned to the caller for
// partial-failure accounting.
type Attempt struct {
	ContentID uuid.UUID     `json:"content_id"`
	Channel   types.Channel `json:"channel"`
	Published bool          `json:"published"`
	Result    *Result       `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type Service interface {
	// Publish attempts one content item. Idempotent per content id: an item
	// already stamped published returns a successful no-op attempt, which is
	// the guard that makes the scheduler's at-least-once delivery safe.
	Publish(ctx context.Context, orgID, contentID uuid.UUID) (*Attempt, error)
	// PublishDue drains every approved item whose scheduled time has passed.
	PublishDue(ctx context.Context, now time.Time) ([]*Attempt, error)
}

type service struct {
	log          *logger.Logger
	contentRepo  repos.ContentRepo
	settingRepo  repos.SettingRepo
	destinations map[types.Channel]Destination
}

func NewService(baseLog *logger.Logger, contentRepo repos.ContentRepo, settingRepo repos.SettingRepo, destinations ...Destination) Service {
	byChannel := make(map[types.Channel]Destination, len(destinations))
	for _, d := range destinations {
		byChannel[d.Channel()] = d
	}
	return &service{
		log:          baseLog.With("service", "PublisherService"),
		contentRepo:  contentRepo,
		settingRepo:  settingRepo,
		destinations: byChannel,
	}
}

func (s *service) Publish(ctx context.Context, orgID, contentID uuid.UUID) (*Attempt, error) {
	row, err := s.contentRepo.GetByID(dbctx.New(ctx), orgID, contentID)
	if err != nil {
		return nil, err
	}
	if row.Status == types.ContentStatusPublished {
		return &Attempt{ContentID: row.ID, Channel: row.Channel, Published: true,
			Result: &Result{Destination: "none", Note: "already published"}}, nil
	}
	if row.Status != types.ContentStatusApproved {
		return nil, fmt.Errorf("publish: %w: content is %s, not approved", pkgerrors.ErrInvalidTransition, row.Status)
	}
	return s.attempt(ctx, row), nil
}

func (s *service) PublishDue(ctx context.Context, now time.Time) ([]*Attempt, error) {
	due, err := s.contentRepo.ListApprovedDue(dbctx.New(ctx), now)
	if err != nil {
		return nil, err
	}
	var attempts []*Attempt
	for _, row := range due {
		attempts = append(attempts, s.attempt(ctx, row))
	}
	return attempts, nil
}

func (s *service) attempt(ctx context.Context, row *types.Content) *Attempt {
	attempt := &Attempt{ContentID: row.ID, Channel: row.Channel}

	destination, ok := s.destinations[row.Channel]
	if !ok {
		attempt.Result = &Result{Destination: "none", Note: "no direct publisher for " + string(row.Channel)}
		attempt.Published = s.markPublished(ctx, row.ID, attempt.Result)
		return attempt
	}

	var orgID uuid.UUID
	if row.OrgID != nil {
		orgID = *row.OrgID
	}
	settings, err := s.settingRepo.Resolve(dbctx.New(ctx), orgID)
	if err != nil {
		attempt.Error = err.Error()
		return attempt
	}

	result, err := destination.Publish(ctx, row, settings)
	if err != nil {
		s.log.Warn("publish attempt failed", "content_id", row.ID, "channel", row.Channel, "error", err.Error())
		attempt.Error = err.Error()
		return attempt
	}
	attempt.Result = result
	attempt.Published = s.markPublished(ctx, row.ID, result)
	s.log.Info("published content", "content_id", row.ID, "channel", row.Channel, "destination", result.Destination)
	return attempt
}

// markPublished stamps the confirmation flag; a lost guard means another
// worker already confirmed this item, which counts as success.
func (s *service) markPublished(ctx context.Context, id uuid.UUID, result *Result) bool {
	raw, err := json.Marshal(result)
	if err != nil {
		raw = []byte(`{}`)
	}
	_, err = s.contentRepo.MarkPublished(dbctx.New(ctx), id, time.Now(), datatypes.JSON(raw))
	if err != nil {
		s.log.Error("publish confirmation failed, item will be re-attempted", "content_id", id, "error", err.Error())
		return false
	}
	return true
}
