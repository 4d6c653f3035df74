package stories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

// Attachment pairs a story membership row with the signal it points at.
type Attachment struct {
	StorySignal *types.StorySignal
	Signal      *types.Signal
}

type StoryRepo interface {
	Create(dbc dbctx.Context, story *types.Story) (*types.Story, error)
	GetByID(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) (*types.Story, error)
	List(dbc dbctx.Context, orgID uuid.UUID, status types.StoryStatus) ([]*types.Story, error)
	UpdateFields(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, updates map[string]interface{}) error
	// UpdateStatusIf is the lifecycle compare-and-set: the move happens only
	// while the story still holds `from`. Returns false when the guard lost.
	UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, from, to types.StoryStatus) (bool, error)
	Delete(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) error

	AttachSignal(dbc dbctx.Context, storyID, signalID uuid.UUID, notes string) (*types.StorySignal, error)
	DetachSignal(dbc dbctx.Context, storyID, signalID uuid.UUID) error
	UpdateAttachment(dbc dbctx.Context, storyID, signalID uuid.UUID, updates map[string]interface{}) error
	ListAttachments(dbc dbctx.Context, storyID uuid.UUID) ([]*Attachment, error)
}

type storyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger) StoryRepo {
	return &storyRepo{
		db:  db,
		log: baseLog.With("repo", "StoryRepo"),
	}
}

func (r *storyRepo) Create(dbc dbctx.Context, story *types.Story) (*types.Story, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if story == nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if err := transaction.WithContext(dbc.Ctx).Create(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

func (r *storyRepo) GetByID(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) (*types.Story, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var story types.Story
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND org_id = ?", id, orgID).
		First(&story).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *storyRepo) List(dbc dbctx.Context, orgID uuid.UUID, status types.StoryStatus) ([]*types.Story, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("org_id = ?", orgID).
		Order("updated_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*types.Story
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *storyRepo) UpdateFields(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Story{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *storyRepo) UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, from, to types.StoryStatus) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Story{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *storyRepo) Delete(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Exec(`DELETE FROM story_signal WHERE story_id = ?`, id).Error; err != nil {
			return err
		}
		res := txx.Where("id = ? AND org_id = ?", id, orgID).Delete(&types.Story{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.ErrNotFound
		}
		return nil
	})
}

func (r *storyRepo) AttachSignal(dbc dbctx.Context, storyID, signalID uuid.UUID, notes string) (*types.StorySignal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var attachment *types.StorySignal
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var existing types.StorySignal
		qErr := txx.Where("story_id = ? AND signal_id = ?", storyID, signalID).First(&existing).Error
		if qErr == nil {
			attachment = &existing
			return nil
		}
		if !errors.Is(qErr, gorm.ErrRecordNotFound) {
			return qErr
		}
		var maxOrder int
		if err := txx.Model(&types.StorySignal{}).
			Where("story_id = ?", storyID).
			Select("COALESCE(MAX(sort_order), -1)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		attachment = &types.StorySignal{
			StoryID:     storyID,
			SignalID:    signalID,
			EditorNotes: notes,
			SortOrder:   maxOrder + 1,
		}
		return txx.Create(attachment).Error
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

func (r *storyRepo) DetachSignal(dbc dbctx.Context, storyID, signalID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("story_id = ? AND signal_id = ?", storyID, signalID).
		Delete(&types.StorySignal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *storyRepo) UpdateAttachment(dbc dbctx.Context, storyID, signalID uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.StorySignal{}).
		Where("story_id = ? AND signal_id = ?", storyID, signalID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *storyRepo) ListAttachments(dbc dbctx.Context, storyID uuid.UUID) ([]*Attachment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var memberships []*types.StorySignal
	if err := transaction.WithContext(dbc.Ctx).
		Where("story_id = ?", storyID).
		Order("sort_order ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []*Attachment{}, nil
	}
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.SignalID)
	}
	var signalRows []*types.Signal
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&signalRows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Signal, len(signalRows))
	for _, s := range signalRows {
		byID[s.ID] = s
	}
	out := make([]*Attachment, 0, len(memberships))
	for _, m := range memberships {
		signal, ok := byID[m.SignalID]
		if !ok {
			continue
		}
		out = append(out, &Attachment{StorySignal: m, Signal: signal})
	}
	return out, nil
}
