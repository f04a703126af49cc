package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/flashcard-media/internal/data/repos"
	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type CreatePromptTemplateRequest struct {
	Name           string
	Description    string
	GenerationType string
	PromptText     string
	CreatedBy      uuid.UUID
}

// UpdatePromptTemplateRequest leaves nil fields unchanged.
type UpdatePromptTemplateRequest struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	PromptText  *string
}

type PromptTemplateService interface {
	Get(ctx context.Context, id uuid.UUID) (*types.PromptTemplate, error)
	List(ctx context.Context, generationType string) ([]*types.PromptTemplate, error)
	Create(ctx context.Context, req CreatePromptTemplateRequest) (*types.PromptTemplate, error)
	Update(ctx context.Context, req UpdatePromptTemplateRequest) (*types.PromptTemplate, error)
}

type promptTemplateService struct {
	log       *logger.Logger
	templates repos.PromptTemplateRepo
}

func NewPromptTemplateService(log *logger.Logger, templates repos.PromptTemplateRepo) PromptTemplateService {
	return &promptTemplateService{log: log.With("service", "PromptTemplateService"), templates: templates}
}

func (s *promptTemplateService) Get(ctx context.Context, id uuid.UUID) (*types.PromptTemplate, error) {
	if id == uuid.Nil {
		return nil, apierr.Validation("missing template id")
	}
	row, err := s.templates.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "load prompt template")
	}
	if row == nil {
		return nil, apierr.NotFound("prompt template %s not found", id)
	}
	return row, nil
}

func (s *promptTemplateService) List(ctx context.Context, generationType string) ([]*types.PromptTemplate, error) {
	var gt types.GenerationType
	if strings.TrimSpace(generationType) != "" {
		parsed, ok := types.ParseGenerationType(generationType)
		if !ok {
			return nil, apierr.Validation("unsupported generation type %q", generationType)
		}
		gt = parsed
	}
	rows, err := s.templates.List(dbctx.Context{Ctx: ctx}, gt)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "list prompt templates")
	}
	return rows, nil
}

func (s *promptTemplateService) Create(ctx context.Context, req CreatePromptTemplateRequest) (*types.PromptTemplate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierr.Validation("template name is required")
	}
	if strings.TrimSpace(req.PromptText) == "" {
		return nil, apierr.Validation("template prompt text is required")
	}
	gt, ok := types.ParseGenerationType(req.GenerationType)
	if !ok {
		return nil, apierr.Validation("unsupported generation type %q", req.GenerationType)
	}
	row := &types.PromptTemplate{
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		GenerationType: gt,
		PromptText:     req.PromptText,
		CreatedBy:      req.CreatedBy,
	}
	if _, err := s.templates.Create(dbctx.Context{Ctx: ctx}, []*types.PromptTemplate{row}); err != nil {
		return nil, apierr.ExternalAPI(err, "create prompt template")
	}
	s.log.Info("prompt template created", "template_id", row.ID.String(), "generation_type", string(gt))
	return row, nil
}

func (s *promptTemplateService) Update(ctx context.Context, req UpdatePromptTemplateRequest) (*types.PromptTemplate, error) {
	if _, err := s.Get(ctx, req.ID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apierr.Validation("template name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.PromptText != nil {
		if strings.TrimSpace(*req.PromptText) == "" {
			return nil, apierr.Validation("template prompt text cannot be empty")
		}
		updates["prompt_text"] = *req.PromptText
	}
	if len(updates) == 0 {
		return nil, apierr.Validation("nothing to update")
	}
	if err := s.templates.UpdateFields(dbctx.Context{Ctx: ctx}, req.ID, updates); err != nil {
		return nil, apierr.ExternalAPI(err, "update prompt template")
	}
	return s.Get(ctx, req.ID)
}
