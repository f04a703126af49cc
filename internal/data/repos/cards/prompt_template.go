package cards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type PromptTemplateRepo interface {
	Create(dbc dbctx.Context, rows []*types.PromptTemplate) ([]*types.PromptTemplate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PromptTemplate, error)
	// List filters by generation type when genType is non-empty.
	List(dbc dbctx.Context, genType types.GenerationType) ([]*types.PromptTemplate, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type promptTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromptTemplateRepo(db *gorm.DB, baseLog *logger.Logger) PromptTemplateRepo {
	return &promptTemplateRepo{db: db, log: baseLog.With("repo", "PromptTemplateRepo")}
}

func (r *promptTemplateRepo) Create(dbc dbctx.Context, rows []*types.PromptTemplate) ([]*types.PromptTemplate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.PromptTemplate{}, nil
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

func (r *promptTemplateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PromptTemplate, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.PromptTemplate
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *promptTemplateRepo) List(dbc dbctx.Context, genType types.GenerationType) ([]*types.PromptTemplate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.PromptTemplate
	q := t.WithContext(dbc.Ctx).Order("name ASC")
	if genType != "" {
		q = q.Where("generation_type = ?", genType)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *promptTemplateRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.PromptTemplate{}).
		Where("id = ?", id).
		Updates(updates).Error
}
