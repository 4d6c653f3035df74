package orgs

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type OrgRepo interface {
	Create(dbc dbctx.Context, org *types.Org) (*types.Org, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Org, error)
	List(dbc dbctx.Context) ([]*types.Org, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type orgRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrgRepo(db *gorm.DB, baseLog *logger.Logger) OrgRepo {
	return &orgRepo{
		db:  db,
		log: baseLog.With("repo", "OrgRepo"),
	}
}

func (r *orgRepo) Create(dbc dbctx.Context, org *types.Org) (*types.Org, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if org == nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if err := transaction.WithContext(dbc.Ctx).Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

func (r *orgRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Org, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, pkgerrors.ErrNotFound
	}
	var org types.Org
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *orgRepo) List(dbc dbctx.Context) ([]*types.Org, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Org
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orgRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Org{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes the org and everything scoped to it. Foreign keys are not
// enforced at the database level, so child rows go first.
func (r *orgRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Exec(`DELETE FROM story_signal WHERE story_id IN (SELECT id FROM story WHERE org_id = ?)`, id).Error; err != nil {
			return err
		}
		for _, stmt := range []string{
			`DELETE FROM content WHERE org_id = ?`,
			`DELETE FROM brief WHERE org_id = ?`,
			`DELETE FROM story WHERE org_id = ?`,
			`DELETE FROM signal WHERE org_id = ?`,
			`DELETE FROM voice_profile WHERE org_id = ?`,
			`DELETE FROM setting WHERE org_id = ?`,
			`DELETE FROM org WHERE id = ?`,
		} {
			if err := txx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
