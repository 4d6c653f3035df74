package content

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type ListFilter struct {
	Status  types.ContentStatus
	Channel types.Channel
	StoryID *uuid.UUID
	Limit   int
}

type ContentRepo interface {
	Create(dbc dbctx.Context, items []*types.Content) ([]*types.Content, error)
	GetByID(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) (*types.Content, error)
	List(dbc dbctx.Context, orgID uuid.UUID, filter ListFilter) ([]*types.Content, error)
	// UpdateStatusIf moves the org's item to a new status only while its
	// current status is one of allowedFrom. Returns false when the guard
	// lost or the row belongs to another org.
	UpdateStatusIf(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, allowedFrom []types.ContentStatus, to types.ContentStatus, extra map[string]interface{}) (bool, error)
	UpdateFieldsIfStatus(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, required types.ContentStatus, updates map[string]interface{}) (bool, error)
	ListApprovedDue(dbc dbctx.Context, now time.Time) ([]*types.Content, error)
	// MarkPublished stamps published_at exactly once; a second call is a no-op
	// and returns false.
	MarkPublished(dbc dbctx.Context, id uuid.UUID, publishedAt time.Time, result datatypes.JSON) (bool, error)
	Delete(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) error
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{
		db:  db,
		log: baseLog.With("repo", "ContentRepo"),
	}
}

func (r *contentRepo) Create(dbc dbctx.Context, items []*types.Content) ([]*types.Content, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.Content{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepo) GetByID(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) (*types.Content, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var item types.Content
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND org_id = ?", id, orgID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *contentRepo) List(dbc dbctx.Context, orgID uuid.UUID, filter ListFilter) ([]*types.Content, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Channel != "" {
		q = q.Where("channel = ?", filter.Channel)
	}
	if filter.StoryID != nil {
		q = q.Where("story_id = ?", *filter.StoryID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []*types.Content
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentRepo) UpdateStatusIf(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, allowedFrom []types.ContentStatus, to types.ContentStatus, extra map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Content{}).
		Where("id = ? AND org_id = ?", id, orgID)
	if len(allowedFrom) == 1 {
		q = q.Where("status = ?", allowedFrom[0])
	} else if len(allowedFrom) > 1 {
		q = q.Where("status IN ?", allowedFrom)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *contentRepo) UpdateFieldsIfStatus(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, required types.ContentStatus, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return true, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Content{}).
		Where("id = ? AND org_id = ? AND status = ?", id, orgID, required).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *contentRepo) ListApprovedDue(dbc dbctx.Context, now time.Time) ([]*types.Content, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Content
	err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", types.ContentStatusApproved).
		Where("published_at IS NULL").
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("scheduled_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentRepo) MarkPublished(dbc dbctx.Context, id uuid.UUID, publishedAt time.Time, result datatypes.JSON) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Content{}).
		Where("id = ? AND published_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":         types.ContentStatusPublished,
			"published_at":   publishedAt,
			"publish_result": result,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *contentRepo) Delete(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND org_id = ?", id, orgID).
		Delete(&types.Content{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
