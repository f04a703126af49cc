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

type FlashcardRepo interface {
	Create(dbc dbctx.Context, rows []*types.Flashcard) ([]*types.Flashcard, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Flashcard, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Flashcard, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Flashcard, error)

	// SetComparisonIfEmpty claims the pending slot; 0 rows means it was already occupied.
	SetComparisonIfEmpty(dbc dbctx.Context, id uuid.UUID, comparisonID uuid.UUID) (int64, error)
	// ResolveComparison points the flashcard at chosen and clears the slot if it still holds comparisonID.
	ResolveComparison(dbc dbctx.Context, id uuid.UUID, comparisonID uuid.UUID, chosen *uuid.UUID) (int64, error)
	// ClearComparison empties the slot only while it still holds comparisonID.
	ClearComparison(dbc dbctx.Context, id uuid.UUID, comparisonID uuid.UUID) (int64, error)

	ListAwaitingByCreator(dbc dbctx.Context, userID uuid.UUID) ([]*types.Flashcard, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type flashcardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardRepo {
	return &flashcardRepo{db: db, log: baseLog.With("repo", "FlashcardRepo")}
}

func (r *flashcardRepo) Create(dbc dbctx.Context, rows []*types.Flashcard) ([]*types.Flashcard, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Flashcard{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.UsingMeaningIDList == nil {
			row.UsingMeaningIDList = []string{}
		}
		if row.MediaIDList == nil {
			row.MediaIDList = []string{}
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *flashcardRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Flashcard, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Flashcard
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Flashcard, error) {
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

func (r *flashcardRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Flashcard, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Flashcard
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

func (r *flashcardRepo) SetComparisonIfEmpty(dbc dbctx.Context, id uuid.UUID, comparisonID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.Flashcard{}).
		Where("id = ? AND comparison_id IS NULL", id).
		Updates(map[string]interface{}{
			"comparison_id": comparisonID,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *flashcardRepo) ResolveComparison(dbc dbctx.Context, id uuid.UUID, comparisonID uuid.UUID, chosen *uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.Flashcard{}).
		Where("id = ? AND comparison_id = ?", id, comparisonID).
		Updates(map[string]interface{}{
			"current_media_id": chosen,
			"comparison_id":    nil,
			"updated_at":       time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *flashcardRepo) ClearComparison(dbc dbctx.Context, id uuid.UUID, comparisonID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.Flashcard{}).
		Where("id = ? AND comparison_id = ?", id, comparisonID).
		Updates(map[string]interface{}{
			"comparison_id": nil,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *flashcardRepo) ListAwaitingByCreator(dbc dbctx.Context, userID uuid.UUID) ([]*types.Flashcard, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Flashcard
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("created_by = ? AND comparison_id IS NOT NULL", userID).
		Order("updated_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Flashcard{}).
		Where("id = ?", id).
		Updates(updates).Error
}
