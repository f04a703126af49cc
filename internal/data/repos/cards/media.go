package cards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type MediaRepo interface {
	Create(dbc dbctx.Context, rows []*types.Media) ([]*types.Media, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Media, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Media, error)

	SetURLs(dbc dbctx.Context, id uuid.UUID, urls []string) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type mediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return &mediaRepo{db: db, log: baseLog.With("repo", "MediaRepo")}
}

func (r *mediaRepo) Create(dbc dbctx.Context, rows []*types.Media) ([]*types.Media, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Media{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.MediaURLs == nil {
			row.MediaURLs = []string{}
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mediaRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Media, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Media
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mediaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Media, error) {
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

func (r *mediaRepo) SetURLs(dbc dbctx.Context, id uuid.UUID, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"media_urls": datatypes.JSONSlice[string](urls),
	})
}

func (r *mediaRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Media{}).
		Where("id = ?", id).
		Updates(updates).Error
}
