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

type VoiceRepo interface {
	GetByOrg(dbc dbctx.Context, orgID uuid.UUID) (*types.VoiceProfile, error)
	Upsert(dbc dbctx.Context, profile *types.VoiceProfile) (*types.VoiceProfile, error)
}

type voiceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoiceRepo(db *gorm.DB, baseLog *logger.Logger) VoiceRepo {
	return &voiceRepo{
		db:  db,
		log: baseLog.With("repo", "VoiceRepo"),
	}
}

// GetByOrg returns nil (not an error) when the org has no profile yet; the
// generation layer treats a missing profile as an empty one.
func (r *voiceRepo) GetByOrg(dbc dbctx.Context, orgID uuid.UUID) (*types.VoiceProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var profile types.VoiceProfile
	err := transaction.WithContext(dbc.Ctx).
		Where("org_id = ?", orgID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *voiceRepo) Upsert(dbc dbctx.Context, profile *types.VoiceProfile) (*types.VoiceProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if profile == nil || profile.OrgID == nil {
		return nil, gorm.ErrInvalidData
	}
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var existing types.VoiceProfile
		qErr := txx.Where("org_id = ?", *profile.OrgID).First(&existing).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return txx.Create(profile).Error
		}
		if qErr != nil {
			return qErr
		}
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		profile.UpdatedAt = time.Now()
		return txx.Save(profile).Error
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
