package orgs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type SettingRepo interface {
	Set(dbc dbctx.Context, orgID *uuid.UUID, key, value string) error
	Get(dbc dbctx.Context, orgID *uuid.UUID, key string) (string, bool, error)
	ListScope(dbc dbctx.Context, orgID *uuid.UUID) (map[string]string, error)
	// Resolve merges account-level settings with the org's own, the org
	// winning on key collisions.
	Resolve(dbc dbctx.Context, orgID uuid.UUID) (map[string]string, error)
	Delete(dbc dbctx.Context, orgID *uuid.UUID, key string) error
}

type settingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return &settingRepo{
		db:  db,
		log: baseLog.With("repo", "SettingRepo"),
	}
}

func scopeQuery(q *gorm.DB, orgID *uuid.UUID) *gorm.DB {
	if orgID == nil {
		return q.Where("org_id IS NULL")
	}
	return q.Where("org_id = ?", *orgID)
}

func (r *settingRepo) Set(dbc dbctx.Context, orgID *uuid.UUID, key, value string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var existing types.Setting
		err := scopeQuery(txx.Where("key = ?", key), orgID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return txx.Create(&types.Setting{
				OrgID: orgID,
				Key:   key,
				Value: value,
			}).Error
		}
		if err != nil {
			return err
		}
		return txx.Model(&types.Setting{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"value":      value,
				"updated_at": time.Now(),
			}).Error
	})
}

func (r *settingRepo) Get(dbc dbctx.Context, orgID *uuid.UUID, key string) (string, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var setting types.Setting
	err := scopeQuery(transaction.WithContext(dbc.Ctx).Where("key = ?", key), orgID).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

func (r *settingRepo) ListScope(dbc dbctx.Context, orgID *uuid.UUID) (map[string]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []types.Setting
	if err := scopeQuery(transaction.WithContext(dbc.Ctx), orgID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *settingRepo) Resolve(dbc dbctx.Context, orgID uuid.UUID) (map[string]string, error) {
	merged, err := r.ListScope(dbc, nil)
	if err != nil {
		return nil, err
	}
	orgScoped, err := r.ListScope(dbc, &orgID)
	if err != nil {
		return nil, err
	}
	for k, v := range orgScoped {
		merged[k] = v
	}
	return merged, nil
}

func (r *settingRepo) Delete(dbc dbctx.Context, orgID *uuid.UUID, key string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil
	}
	return scopeQuery(transaction.WithContext(dbc.Ctx).Where("key = ?", key), orgID).
		Delete(&types.Setting{}).Error
}
