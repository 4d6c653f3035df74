package content

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type BriefRepo interface {
	Create(dbc dbctx.Context, brief *types.Brief) (*types.Brief, error)
	GetByID(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) (*types.Brief, error)
	Latest(dbc dbctx.Context, orgID uuid.UUID) (*types.Brief, error)
	List(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*types.Brief, error)
}

type briefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBriefRepo(db *gorm.DB, baseLog *logger.Logger) BriefRepo {
	return &briefRepo{
		db:  db,
		log: baseLog.With("repo", "BriefRepo"),
	}
}

func (r *briefRepo) Create(dbc dbctx.Context, brief *types.Brief) (*types.Brief, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if brief == nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if err := transaction.WithContext(dbc.Ctx).Create(brief).Error; err != nil {
		return nil, err
	}
	return brief, nil
}

func (r *briefRepo) GetByID(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) (*types.Brief, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var brief types.Brief
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND org_id = ?", id, orgID).
		First(&brief).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &brief, nil
}

func (r *briefRepo) Latest(dbc dbctx.Context, orgID uuid.UUID) (*types.Brief, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var brief types.Brief
	err := transaction.WithContext(dbc.Ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		First(&brief).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &brief, nil
}

func (r *briefRepo) List(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*types.Brief, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*types.Brief
	err := transaction.WithContext(dbc.Ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
