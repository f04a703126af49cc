package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/flashcard-media/internal/data/repos"
	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/observability"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/platform/ctxutil"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
	"github.com/yungbote/flashcard-media/internal/platform/redisx"
)

type GenerateMediaRequest struct {
	FlashcardID uuid.UUID
	MeaningID   uuid.UUID

	Word        string
	Pos         string
	Translation string
	Example     string
	Explanation string

	GenerationType string
	// UserPrompt wins over TemplateID when both are set.
	TemplateID    *uuid.UUID
	UserPrompt    string
	OtherSettings []string

	AllowGeneratingPerson bool
	InputMediaURLs        []string
	RequestedBy           uuid.UUID
}

type GenerateMediaResult struct {
	ComparisonID uuid.UUID
	MediaID      uuid.UUID
	MediaURLs    []string
}

type PendingComparison struct {
	FlashcardID  uuid.UUID  `json:"flashcard_id"`
	ComparisonID uuid.UUID  `json:"comparison_id"`
	OldMediaID   *uuid.UUID `json:"old_media_id,omitempty"`
	NewMediaID   uuid.UUID  `json:"new_media_id"`
	NewMediaURLs []string   `json:"new_media_urls"`
	CreatedAt    time.Time  `json:"created_at"`
}

// MediaGenerationService runs prompt synthesis, generation, storage and comparison staging for one flashcard.
type MediaGenerationService interface {
	GenerateMedia(ctx context.Context, req GenerateMediaRequest) (*GenerateMediaResult, error)
	ResolveComparison(ctx context.Context, req ResolveRequest) (*types.Comparison, error)
	ListPendingComparisons(ctx context.Context, userID uuid.UUID) ([]PendingComparison, error)
	Recover(ctx context.Context, olderThan time.Duration, limit int) (RecoveryReport, error)
}

type MediaGenerationConfig struct {
	LockTTL time.Duration
}

type mediaGenerationService struct {
	log         *logger.Logger
	cfg         MediaGenerationConfig
	flashcards  repos.FlashcardRepo
	media       repos.MediaRepo
	comparisons repos.ComparisonRepo
	templates   PromptTemplateService
	prompts     PromptPipeline
	dispatcher  GenerationDispatcher
	post        MediaPostProcessor
	storage     StorageCommitter
	ledger      ComparisonLedger
	saga        SagaService
	notifier    ComparisonNotifier
	locker      redisx.Locker
}

func NewMediaGenerationService(
	log *logger.Logger,
	cfg MediaGenerationConfig,
	flashcards repos.FlashcardRepo,
	media repos.MediaRepo,
	comparisons repos.ComparisonRepo,
	templates PromptTemplateService,
	prompts PromptPipeline,
	dispatcher GenerationDispatcher,
	post MediaPostProcessor,
	storage StorageCommitter,
	ledger ComparisonLedger,
	saga SagaService,
	notifier ComparisonNotifier,
	locker redisx.Locker,
) MediaGenerationService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Minute
	}
	return &mediaGenerationService{
		log:         log.With("service", "MediaGenerationService"),
		cfg:         cfg,
		flashcards:  flashcards,
		media:       media,
		comparisons: comparisons,
		templates:   templates,
		prompts:     prompts,
		dispatcher:  dispatcher,
		post:        post,
		storage:     storage,
		ledger:      ledger,
		saga:        saga,
		notifier:    notifier,
		locker:      locker,
	}
}

func (s *mediaGenerationService) GenerateMedia(ctx context.Context, req GenerateMediaRequest) (res *GenerateMediaResult, err error) {
	genType, ok := types.ParseGenerationType(req.GenerationType)
	if !ok {
		return nil, apierr.Validation("unsupported generation type %q", req.GenerationType)
	}
	if err := ValidateDispatch(genType, req.InputMediaURLs); err != nil {
		return nil, err
	}
	if req.FlashcardID == uuid.Nil || req.MeaningID == uuid.Nil {
		return nil, apierr.Validation("flashcard_id and meaning_id are required")
	}
	if strings.TrimSpace(req.Word) == "" {
		return nil, apierr.Validation("word is required")
	}

	ctx, span := observability.StartSpan(ctx, "media.generate",
		attribute.String("flashcard_id", req.FlashcardID.String()),
		attribute.String("generation_type", string(genType)),
	)
	defer func() { observability.EndSpan(span, err) }()

	card, err := s.loadIdleFlashcard(ctx, req.FlashcardID)
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "generate:"+req.FlashcardID.String(), s.cfg.LockTTL)
		if errors.Is(err, redisx.ErrLockHeld) {
			return nil, apierr.Conflict("generation already running for flashcard %s", req.FlashcardID)
		}
		if err != nil {
			return nil, apierr.ExternalAPI(err, "acquire generation lock")
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				s.log.Warn("release generation lock failed", "flashcard_id", req.FlashcardID.String(), "err", rerr.Error())
			}
		}()
	}

	template, err := s.resolveTemplate(ctx, req, genType)
	if err != nil {
		return nil, err
	}

	prompt, err := s.prompts.Run(ctx, template, PromptValues{
		Word:        req.Word,
		Pos:         req.Pos,
		Translation: req.Translation,
		Example:     req.Example,
		Explanation: req.Explanation,
	}, req.OtherSettings)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindExternalAPI, err)
	}

	payloads, err := s.dispatcher.Dispatch(ctx, DispatchRequest{
		Type:           genType,
		Prompt:         prompt.Prompt,
		AllowPerson:    req.AllowGeneratingPerson,
		InputMediaURLs: req.InputMediaURLs,
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindExternalAPI, err)
	}
	for i, p := range payloads {
		if p.Video {
			payloads[i] = s.post.Process(ctx, p)
		}
	}

	comparisonID := uuid.New()
	sagaID, err := s.saga.CreateOrGetSaga(ctx, req.RequestedBy, comparisonID)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "open generation saga")
	}
	fail := func(cause error) (*GenerateMediaResult, error) {
		if cerr := s.saga.Compensate(context.WithoutCancel(ctx), sagaID); cerr != nil {
			s.requestLog(ctx).Error("saga compensation failed", "saga_id", sagaID.String(), "err", cerr.Error())
		}
		return nil, cause
	}

	m := &types.Media{
		FlashcardID:          card.ID,
		MeaningID:            req.MeaningID,
		GenerationType:       genType,
		TemplateID:           req.TemplateID,
		UserPromptTemplate:   template,
		GeneratedPrompt:      prompt.Prompt,
		InputMediaURLs:       req.InputMediaURLs,
		PromptTokenCount:     int32(prompt.Usage.PromptTokens),
		CandidatesTokenCount: int32(prompt.Usage.CandidatesTokens),
		TotalTokenCount:      int32(prompt.Usage.TotalTokens),
		CreatedBy:            req.RequestedBy,
	}
	if _, err := s.storage.Reserve(dbctx.Context{Ctx: ctx}, m); err != nil {
		return fail(err)
	}
	urls, err := s.storage.CommitContent(ctx, m, req.Word, payloads, sagaID)
	if err != nil {
		return fail(err)
	}

	c, err := s.ledger.CreateCandidate(ctx, CandidateRequest{
		SagaID:       sagaID,
		ComparisonID: comparisonID,
		FlashcardID:  card.ID,
		OldMediaID:   card.CurrentMediaID,
		NewMediaID:   m.ID,
	})
	if err != nil {
		return fail(err)
	}
	if err := s.saga.MarkSagaStatus(ctx, sagaID, SagaStatusSucceeded); err != nil {
		s.log.Warn("mark saga succeeded failed", "saga_id", sagaID.String(), "err", err.Error())
	}

	s.notifier.ComparisonCreated(ctx, req.RequestedBy, c)
	s.requestLog(ctx).Info("media generated",
		"flashcard_id", card.ID.String(),
		"media_id", m.ID.String(),
		"comparison_id", c.ID.String(),
		"generation_type", string(genType),
		"total_token_count", m.TotalTokenCount,
		"requested_by", req.RequestedBy.String(),
	)
	return &GenerateMediaResult{ComparisonID: c.ID, MediaID: m.ID, MediaURLs: urls}, nil
}

func (s *mediaGenerationService) requestLog(ctx context.Context) *logger.Logger {
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		return s.log.With("request_id", td.RequestID)
	}
	return s.log
}

func (s *mediaGenerationService) loadIdleFlashcard(ctx context.Context, id uuid.UUID) (*types.Flashcard, error) {
	card, err := s.flashcards.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "load flashcard")
	}
	if card == nil {
		return nil, apierr.NotFound("flashcard %s not found", id)
	}
	if card.AwaitingComparison() {
		return nil, apierr.Conflict("flashcard %s already awaits comparison %s", id, card.ComparisonID)
	}
	return card, nil
}

func (s *mediaGenerationService) resolveTemplate(ctx context.Context, req GenerateMediaRequest, genType types.GenerationType) (string, error) {
	if strings.TrimSpace(req.UserPrompt) != "" {
		return req.UserPrompt, nil
	}
	if req.TemplateID == nil || *req.TemplateID == uuid.Nil {
		return "", apierr.Validation("either a user prompt or a template id is required")
	}
	tpl, err := s.templates.Get(ctx, *req.TemplateID)
	if err != nil {
		return "", err
	}
	if tpl.GenerationType != genType {
		return "", apierr.Validation("template %s is for %s, not %s", tpl.ID, tpl.GenerationType, genType)
	}
	return tpl.PromptText, nil
}

func (s *mediaGenerationService) ResolveComparison(ctx context.Context, req ResolveRequest) (*types.Comparison, error) {
	c, err := s.ledger.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	s.notifier.ComparisonResolved(ctx, req.RequestedBy, c)
	return c, nil
}

func (s *mediaGenerationService) ListPendingComparisons(ctx context.Context, userID uuid.UUID) ([]PendingComparison, error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("missing user id")
	}
	dbc := dbctx.Context{Ctx: ctx}
	cards, err := s.flashcards.ListAwaitingByCreator(dbc, userID)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "list flashcards")
	}
	if len(cards) == 0 {
		return []PendingComparison{}, nil
	}

	cids := make([]uuid.UUID, 0, len(cards))
	for _, f := range cards {
		cids = append(cids, *f.ComparisonID)
	}
	comps, err := s.comparisons.GetByIDs(dbc, cids)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "load comparisons")
	}
	byID := make(map[uuid.UUID]*types.Comparison, len(comps))
	mids := make([]uuid.UUID, 0, len(comps))
	for _, c := range comps {
		byID[c.ID] = c
		mids = append(mids, c.NewMediaID)
	}
	media, err := s.media.GetByIDs(dbc, mids)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "load media")
	}
	urls := make(map[uuid.UUID][]string, len(media))
	for _, m := range media {
		urls[m.ID] = []string(m.MediaURLs)
	}

	out := make([]PendingComparison, 0, len(cards))
	for _, f := range cards {
		c := byID[*f.ComparisonID]
		if c == nil || c.Resolved() {
			s.log.Warn("flashcard slot points at missing or resolved comparison",
				"flashcard_id", f.ID.String(),
				"comparison_id", f.ComparisonID.String(),
			)
			continue
		}
		out = append(out, PendingComparison{
			FlashcardID:  f.ID,
			ComparisonID: c.ID,
			OldMediaID:   c.OldMediaID,
			NewMediaID:   c.NewMediaID,
			NewMediaURLs: urls[c.NewMediaID],
			CreatedAt:    c.CreatedAt,
		})
	}
	slices.SortStableFunc(out, func(a, b PendingComparison) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *mediaGenerationService) Recover(ctx context.Context, olderThan time.Duration, limit int) (RecoveryReport, error) {
	if olderThan < 0 {
		return RecoveryReport{}, apierr.Validation("older-than must not be negative")
	}
	if limit <= 0 {
		limit = 100
	}
	report, err := s.saga.Recover(ctx, olderThan, limit)
	if err != nil {
		return report, apierr.ExternalAPI(err, "recover sagas")
	}
	return report, nil
}
