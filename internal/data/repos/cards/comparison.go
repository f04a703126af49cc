package cards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type ComparisonRepo interface {
	Create(dbc dbctx.Context, rows []*types.Comparison) ([]*types.Comparison, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Comparison, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Comparison, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Comparison, error)

	// MarkResolved is terminal; 0 rows means the comparison was already resolved.
	MarkResolved(dbc dbctx.Context, id uuid.UUID, isSelectedNew bool) (int64, error)
	// DeleteUnresolved removes a comparison that was never resolved; resolved rows are kept.
	DeleteUnresolved(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type comparisonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComparisonRepo(db *gorm.DB, baseLog *logger.Logger) ComparisonRepo {
	return &comparisonRepo{db: db, log: baseLog.With("repo", "ComparisonRepo")}
}

func (r *comparisonRepo) Create(dbc dbctx.Context, rows []*types.Comparison) ([]*types.Comparison, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Comparison{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *comparisonRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Comparison, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Comparison
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *comparisonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Comparison, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *comparisonRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Comparison, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Comparison
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *comparisonRepo) MarkResolved(dbc dbctx.Context, id uuid.UUID, isSelectedNew bool) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&types.Comparison{}).
		Where("id = ? AND is_selected_new IS NULL", id).
		Updates(map[string]interface{}{
			"is_selected_new": isSelectedNew,
			"resolved_at":     now,
			"updated_at":      now,
		})
	return res.RowsAffected, res.Error
}

func (r *comparisonRepo) DeleteUnresolved(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("id = ? AND is_selected_new IS NULL", id).
		Delete(&types.Comparison{})
	return res.RowsAffected, res.Error
}
