package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/flashcard-media/internal/data/repos"
	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/observability"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type CandidateRequest struct {
	SagaID       uuid.UUID
	ComparisonID uuid.UUID
	FlashcardID  uuid.UUID
	OldMediaID   *uuid.UUID
	NewMediaID   uuid.UUID
}

// ResolveRequest selects the winner of a comparison. FlashcardID, OldMediaID and NewMediaID
// are optional cross-checks against the stored comparison.
type ResolveRequest struct {
	ComparisonID  uuid.UUID
	FlashcardID   uuid.UUID
	OldMediaID    *uuid.UUID
	NewMediaID    uuid.UUID
	IsSelectedNew bool
	RequestedBy   uuid.UUID
}

// ComparisonLedger owns the comparison state machine and the flashcard pending slot.
type ComparisonLedger interface {
	CreateCandidate(ctx context.Context, req CandidateRequest) (*types.Comparison, error)
	Resolve(ctx context.Context, req ResolveRequest) (*types.Comparison, error)
	SagaActionHandler
}

type comparisonLedger struct {
	db          *gorm.DB
	log         *logger.Logger
	flashcards  repos.FlashcardRepo
	media       repos.MediaRepo
	comparisons repos.ComparisonRepo
	saga        SagaService
}

type candidateIntent struct {
	ComparisonID uuid.UUID  `json:"comparison_id"`
	FlashcardID  uuid.UUID  `json:"flashcard_id"`
	OldMediaID   *uuid.UUID `json:"old_media_id,omitempty"`
	NewMediaID   uuid.UUID  `json:"new_media_id"`
}

type resolveIntent struct {
	ComparisonID  uuid.UUID  `json:"comparison_id"`
	FlashcardID   uuid.UUID  `json:"flashcard_id"`
	ChosenMediaID *uuid.UUID `json:"chosen_media_id,omitempty"`
	IsSelectedNew bool       `json:"is_selected_new"`
}

// NewComparisonLedger registers the ledger as the replay/undo handler for its saga actions.
func NewComparisonLedger(
	db *gorm.DB,
	baseLog *logger.Logger,
	flashcards repos.FlashcardRepo,
	media repos.MediaRepo,
	comparisons repos.ComparisonRepo,
	saga SagaService,
) ComparisonLedger {
	l := &comparisonLedger{
		db:          db,
		log:         baseLog.With("service", "ComparisonLedger"),
		flashcards:  flashcards,
		media:       media,
		comparisons: comparisons,
		saga:        saga,
	}
	if saga != nil {
		saga.RegisterHandler(SagaActionKindCreateCandidate, l)
		saga.RegisterHandler(SagaActionKindResolveComparison, l)
	}
	return l
}

func (l *comparisonLedger) CreateCandidate(ctx context.Context, req CandidateRequest) (c *types.Comparison, err error) {
	if req.FlashcardID == uuid.Nil || req.NewMediaID == uuid.Nil {
		return nil, apierr.Validation("create comparison: missing flashcard_id or new_media_id")
	}
	if req.ComparisonID == uuid.Nil {
		req.ComparisonID = uuid.New()
	}
	ctx, span := observability.StartSpan(ctx, "comparison.create",
		attribute.String("flashcard_id", req.FlashcardID.String()),
		attribute.String("comparison_id", req.ComparisonID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	intent := candidateIntent{
		ComparisonID: req.ComparisonID,
		FlashcardID:  req.FlashcardID,
		OldMediaID:   req.OldMediaID,
		NewMediaID:   req.NewMediaID,
	}

	actionID, err := l.recordIntent(ctx, req.SagaID, SagaActionKindCreateCandidate, intent)
	if err != nil {
		return nil, err
	}

	c, err = l.applyCreate(ctx, intent)
	l.settleAction(ctx, actionID, err)
	if err != nil {
		return nil, err
	}

	l.log.Info("comparison created",
		"comparison_id", c.ID.String(),
		"flashcard_id", c.FlashcardID.String(),
		"new_media_id", c.NewMediaID.String(),
	)
	return c, nil
}

// applyCreate inserts the comparison if missing and claims the flashcard slot, in one transaction.
// Re-applying an intent whose comparison already holds the slot is a no-op.
func (l *comparisonLedger) applyCreate(ctx context.Context, in candidateIntent) (*types.Comparison, error) {
	var out *types.Comparison
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		f, err := l.flashcards.LockByID(dbc, in.FlashcardID)
		if err != nil {
			return err
		}
		if f == nil {
			return apierr.NotFound("flashcard %s not found", in.FlashcardID)
		}
		m, err := l.media.GetByID(dbc, in.NewMediaID)
		if err != nil {
			return err
		}
		if m == nil {
			return apierr.NotFound("media %s not found", in.NewMediaID)
		}
		if m.FlashcardID != in.FlashcardID {
			return apierr.Validation("media %s belongs to flashcard %s", m.ID, m.FlashcardID)
		}

		existing, err := l.comparisons.GetByID(dbc, in.ComparisonID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.FlashcardID != in.FlashcardID || existing.NewMediaID != in.NewMediaID {
				return apierr.Conflict("comparison %s already exists with different media", in.ComparisonID)
			}
			out = existing
		} else {
			row := &types.Comparison{
				ID:          in.ComparisonID,
				FlashcardID: in.FlashcardID,
				OldMediaID:  in.OldMediaID,
				NewMediaID:  in.NewMediaID,
			}
			if _, err := l.comparisons.Create(dbc, []*types.Comparison{row}); err != nil {
				return err
			}
			out = row
		}
		if out.Resolved() {
			return nil
		}

		n, err := l.flashcards.SetComparisonIfEmpty(dbc, in.FlashcardID, in.ComparisonID)
		if err != nil {
			return err
		}
		if n == 0 && (f.ComparisonID == nil || *f.ComparisonID != in.ComparisonID) {
			return apierr.Conflict("flashcard %s already awaits comparison %s", f.ID, derefID(f.ComparisonID))
		}
		return nil
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindExternalAPI, err)
	}
	return out, nil
}

func (l *comparisonLedger) Resolve(ctx context.Context, req ResolveRequest) (c *types.Comparison, err error) {
	if req.ComparisonID == uuid.Nil {
		return nil, apierr.Validation("resolve comparison: missing comparison_id")
	}
	ctx, span := observability.StartSpan(ctx, "comparison.resolve",
		attribute.String("comparison_id", req.ComparisonID.String()),
		attribute.Bool("is_selected_new", req.IsSelectedNew),
	)
	defer func() { observability.EndSpan(span, err) }()

	stored, err := l.comparisons.GetByID(dbctx.Context{Ctx: ctx}, req.ComparisonID)
	if err != nil {
		return nil, apierr.ExternalAPI(err, "load comparison")
	}
	if stored == nil {
		return nil, apierr.NotFound("comparison %s not found", req.ComparisonID)
	}
	if err := checkResolveRequest(stored, req); err != nil {
		return nil, err
	}
	if stored.Resolved() {
		return nil, apierr.Conflict("comparison %s already %s", stored.ID, stored.State())
	}

	intent := resolveIntent{
		ComparisonID:  stored.ID,
		FlashcardID:   stored.FlashcardID,
		ChosenMediaID: stored.ChosenMediaID(req.IsSelectedNew),
		IsSelectedNew: req.IsSelectedNew,
	}

	var sagaID uuid.UUID
	if l.saga != nil {
		sagaID, err = l.saga.CreateOrGetSaga(ctx, req.RequestedBy, ResolveSagaRootID(stored.ID))
		if err != nil {
			return nil, apierr.ExternalAPI(err, "open resolve saga")
		}
	}
	actionID, err := l.recordIntent(ctx, sagaID, SagaActionKindResolveComparison, intent)
	if err != nil {
		return nil, err
	}

	c, err = l.applyResolve(ctx, intent, false)
	l.settleAction(ctx, actionID, err)
	if sagaID != uuid.Nil {
		status := SagaStatusSucceeded
		if err != nil {
			status = SagaStatusFailed
		}
		if merr := l.saga.MarkSagaStatus(ctx, sagaID, status); merr != nil {
			l.log.Warn("mark resolve saga failed", "saga_id", sagaID.String(), "status", status, "err", merr.Error())
		}
	}
	if err != nil {
		return nil, err
	}

	l.log.Info("comparison resolved",
		"comparison_id", c.ID.String(),
		"flashcard_id", c.FlashcardID.String(),
		"state", string(c.State()),
	)
	return c, nil
}

// applyResolve marks the comparison terminal and repoints the flashcard in one transaction.
// With replay set, an identical earlier resolution counts as success.
func (l *comparisonLedger) applyResolve(ctx context.Context, in resolveIntent, replay bool) (*types.Comparison, error) {
	var out *types.Comparison
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		c, err := l.comparisons.LockByID(dbc, in.ComparisonID)
		if err != nil {
			return err
		}
		if c == nil {
			return apierr.NotFound("comparison %s not found", in.ComparisonID)
		}
		if c.Resolved() {
			if replay && *c.IsSelectedNew == in.IsSelectedNew {
				out = c
				return nil
			}
			return apierr.Conflict("comparison %s already %s", c.ID, c.State())
		}

		n, err := l.comparisons.MarkResolved(dbc, c.ID, in.IsSelectedNew)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierr.Conflict("comparison %s resolved concurrently", c.ID)
		}
		n, err = l.flashcards.ResolveComparison(dbc, c.FlashcardID, c.ID, c.ChosenMediaID(in.IsSelectedNew))
		if err != nil {
			return err
		}
		if n == 0 {
			return apierr.Conflict("flashcard %s no longer awaits comparison %s", c.FlashcardID, c.ID)
		}

		out, err = l.comparisons.GetByID(dbc, c.ID)
		return err
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindExternalAPI, err)
	}
	return out, nil
}

func (l *comparisonLedger) Replay(ctx context.Context, a *types.SagaAction) error {
	switch a.Kind {
	case SagaActionKindCreateCandidate:
		var in candidateIntent
		if err := json.Unmarshal(a.Payload, &in); err != nil {
			return fmt.Errorf("decode %s payload: %w", a.Kind, err)
		}
		_, err := l.applyCreate(ctx, in)
		return err
	case SagaActionKindResolveComparison:
		var in resolveIntent
		if err := json.Unmarshal(a.Payload, &in); err != nil {
			return fmt.Errorf("decode %s payload: %w", a.Kind, err)
		}
		_, err := l.applyResolve(ctx, in, true)
		return err
	default:
		return fmt.Errorf("comparison ledger cannot replay %q", a.Kind)
	}
}

// Undo removes a candidate that never got resolved and frees the slot it holds.
// A resolution is terminal and has nothing to undo.
func (l *comparisonLedger) Undo(ctx context.Context, a *types.SagaAction) error {
	if a.Kind != SagaActionKindCreateCandidate {
		return nil
	}
	var in candidateIntent
	if err := json.Unmarshal(a.Payload, &in); err != nil {
		return fmt.Errorf("decode %s payload: %w", a.Kind, err)
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		c, err := l.comparisons.LockByID(dbc, in.ComparisonID)
		if err != nil {
			return err
		}
		if c == nil || c.Resolved() {
			return nil
		}
		if _, err := l.flashcards.ClearComparison(dbc, c.FlashcardID, c.ID); err != nil {
			return err
		}
		_, err = l.comparisons.DeleteUnresolved(dbc, c.ID)
		return err
	})
}

func (l *comparisonLedger) recordIntent(ctx context.Context, sagaID uuid.UUID, kind string, intent any) (uuid.UUID, error) {
	if sagaID == uuid.Nil || l.saga == nil {
		return uuid.Nil, nil
	}
	payload, err := intentPayload(intent)
	if err != nil {
		return uuid.Nil, apierr.General(err)
	}
	ids, err := l.saga.RecordIntent(ctx, sagaID, kind, payload)
	if err != nil {
		return uuid.Nil, apierr.ExternalAPI(err, "record %s intent", kind)
	}
	return ids[0], nil
}

func (l *comparisonLedger) settleAction(ctx context.Context, actionID uuid.UUID, err error) {
	if actionID == uuid.Nil || l.saga == nil {
		return
	}
	status := SagaActionStatusDone
	if err != nil {
		status = SagaActionStatusFailed
	}
	if mErr := l.saga.MarkActionStatus(ctx, actionID, status); mErr != nil {
		l.log.Warn("mark saga action failed", "action_id", actionID.String(), "err", mErr.Error())
	}
}

func checkResolveRequest(c *types.Comparison, req ResolveRequest) error {
	if req.FlashcardID != uuid.Nil && req.FlashcardID != c.FlashcardID {
		return apierr.Validation("comparison %s belongs to flashcard %s, not %s", c.ID, c.FlashcardID, req.FlashcardID)
	}
	if req.NewMediaID != uuid.Nil && req.NewMediaID != c.NewMediaID {
		return apierr.Validation("comparison %s new media is %s, not %s", c.ID, c.NewMediaID, req.NewMediaID)
	}
	if req.OldMediaID != nil && (c.OldMediaID == nil || *req.OldMediaID != *c.OldMediaID) {
		return apierr.Validation("comparison %s old media is %s, not %s", c.ID, derefID(c.OldMediaID), *req.OldMediaID)
	}
	return nil
}

// ResolveSagaRootID keys the resolve run separately from the run that created the comparison.
func ResolveSagaRootID(comparisonID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(comparisonID, []byte("resolve"))
}

func intentPayload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func derefID(id *uuid.UUID) string {
	if id == nil {
		return "none"
	}
	return id.String()
}
