package signals

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

// IngestResult reports what happened to a batch of candidate signals.
type IngestResult struct {
	Inserted   []*types.Signal
	Duplicates int
	Enriched   int
}

type ListFilter struct {
	Type        types.SignalType
	Prioritized *bool
	Limit       int
}

type SignalRepo interface {
	Ingest(dbc dbctx.Context, candidates []*types.Signal) (*IngestResult, error)
	GetByID(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) (*types.Signal, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Signal, error)
	GetByFingerprint(dbc dbctx.Context, orgID uuid.UUID, fingerprint string) (*types.Signal, error)
	List(dbc dbctx.Context, orgID uuid.UUID, filter ListFilter) ([]*types.Signal, error)
	ListUnattached(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*types.Signal, error)
	SetPrioritized(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, prioritized bool) error
	UpdateBody(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, body string) error
	RecordUsage(dbc dbctx.Context, ids []uuid.UUID) error
	RecordSpike(dbc dbctx.Context, ids []uuid.UUID) error
	Stats(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*types.SignalStat, error)
	Delete(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) error
}

type signalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSignalRepo(db *gorm.DB, baseLog *logger.Logger) SignalRepo {
	return &signalRepo{
		db:  db,
		log: baseLog.With("repo", "SignalRepo"),
	}
}

// Ingest inserts candidates one at a time so a duplicate never poisons the
// rest of the batch. A duplicate whose new body is strictly longer than the
// stored one refreshes body and raw payload in place; id and the usage
// counters are never touched.
func (r *signalRepo) Ingest(dbc dbctx.Context, candidates []*types.Signal) (*IngestResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	result := &IngestResult{Inserted: []*types.Signal{}}
	for _, candidate := range candidates {
		if candidate == nil || candidate.Fingerprint == "" {
			continue
		}
		res := transaction.WithContext(dbc.Ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(candidate)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			result.Inserted = append(result.Inserted, candidate)
			continue
		}
		result.Duplicates++
		enriched, err := r.enrich(dbc, candidate)
		if err != nil {
			return nil, err
		}
		if enriched {
			result.Enriched++
		}
	}
	return result, nil
}

func (r *signalRepo) enrich(dbc dbctx.Context, candidate *types.Signal) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Signal{}).
		Where("fingerprint = ?", candidate.Fingerprint).
		Where("length(body) < ?", len(candidate.Body))
	if candidate.OrgID == nil {
		q = q.Where("org_id IS NULL")
	} else {
		q = q.Where("org_id = ?", *candidate.OrgID)
	}
	res := q.Updates(map[string]interface{}{
		"body":       candidate.Body,
		"raw":        candidate.Raw,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *signalRepo) GetByID(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) (*types.Signal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var signal types.Signal
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND org_id = ?", id, orgID).
		First(&signal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &signal, nil
}

func (r *signalRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Signal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Signal
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalRepo) GetByFingerprint(dbc dbctx.Context, orgID uuid.UUID, fingerprint string) (*types.Signal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var signal types.Signal
	err := transaction.WithContext(dbc.Ctx).
		Where("fingerprint = ? AND org_id = ?", fingerprint, orgID).
		First(&signal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &signal, nil
}

func (r *signalRepo) List(dbc dbctx.Context, orgID uuid.UUID, filter ListFilter) ([]*types.Signal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("org_id = ?", orgID).
		Order("prioritized DESC, created_at DESC")
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Prioritized != nil {
		q = q.Where("prioritized = ?", *filter.Prioritized)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []*types.Signal
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalRepo) ListUnattached(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*types.Signal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("org_id = ?", orgID).
		Where("id NOT IN (SELECT signal_id FROM story_signal)").
		Order("prioritized DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Signal
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalRepo) SetPrioritized(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, prioritized bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Signal{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Updates(map[string]interface{}{
			"prioritized": prioritized,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *signalRepo) UpdateBody(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID, body string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Signal{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Updates(map[string]interface{}{
			"body":       body,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *signalRepo) RecordUsage(dbc dbctx.Context, ids []uuid.UUID) error {
	return r.increment(dbc, ids, "times_used")
}

func (r *signalRepo) RecordSpike(dbc dbctx.Context, ids []uuid.UUID) error {
	return r.increment(dbc, ids, "times_spiked")
}

func (r *signalRepo) increment(dbc dbctx.Context, ids []uuid.UUID, column string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Signal{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column + " + 1"),
			"updated_at": time.Now(),
		}).Error
}

func (r *signalRepo) Stats(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*types.SignalStat, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.SignalStat
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Signal{}).
		Select("id AS signal_id, type, source, title, times_used, times_spiked").
		Where("org_id = ?", orgID).
		Where("times_used > 0 OR times_spiked > 0").
		Order("times_used DESC, times_spiked DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *signalRepo) Delete(dbc dbctx.Context, orgID uuid.UUID, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Exec(`DELETE FROM story_signal WHERE signal_id = ?`, id).Error; err != nil {
			return err
		}
		res := txx.Where("id = ? AND org_id = ?", id, orgID).Delete(&types.Signal{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.ErrNotFound
		}
		return nil
	})
}
