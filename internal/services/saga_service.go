package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/flashcard-media/internal/data/repos"
	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
	"github.com/yungbote/flashcard-media/internal/platform/gcp"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

const (
	SagaStatusRunning       = "running"
	SagaStatusSucceeded     = "succeeded"
	SagaStatusFailed        = "failed"
	SagaStatusCompensating  = "compensating"
	SagaStatusCompensated   = "compensated"
	SagaActionStatusPending = "pending"
	SagaActionStatusDone    = "done"
	SagaActionStatusFailed  = "failed"
)

// SagaActionStatusSuperseded marks a forward intent replaced by a later one of the same kind.
const SagaActionStatusSuperseded = "superseded"


const (
	SagaActionKindGCSDeleteKey      = "gcs_delete_key"
	SagaActionKindCreateCandidate   = "create_candidate"
	SagaActionKindResolveComparison = "resolve_comparison"
)

// SagaActionHandler replays a forward intent after a crash, or undoes it during compensation.
// Both must be idempotent.
type SagaActionHandler interface {
	Replay(ctx context.Context, a *types.SagaAction) error
	Undo(ctx context.Context, a *types.SagaAction) error
}

type RecoveryReport struct {
	Scanned     int `json:"scanned"`
	Replayed    int `json:"replayed"`
	Compensated int `json:"compensated"`
}

type SagaService interface {
	CreateOrGetSaga(ctx context.Context, ownerUserID uuid.UUID, rootJobID uuid.UUID) (uuid.UUID, error)
	// AppendAction must run inside dbc.Tx so the action commits with the state it describes.
	AppendAction(dbc dbctx.Context, sagaID uuid.UUID, kind string, payload map[string]any) (uuid.UUID, error)
	// RecordIntent commits actions in their own transaction, before the mutation they announce.
	RecordIntent(ctx context.Context, sagaID uuid.UUID, kind string, payloads ...map[string]any) ([]uuid.UUID, error)
	MarkActionStatus(ctx context.Context, actionID uuid.UUID, status string) error
	MarkSagaStatus(ctx context.Context, sagaID uuid.UUID, status string) error
	Compensate(ctx context.Context, sagaID uuid.UUID) error
	RegisterHandler(kind string, h SagaActionHandler)
	// Recover finishes runs left running for longer than olderThan.
	Recover(ctx context.Context, olderThan time.Duration, limit int) (RecoveryReport, error)
}

type sagaService struct {
	db      *gorm.DB
	log     *logger.Logger
	runs    repos.SagaRunRepo
	actions repos.SagaActionRepo
	bucket  gcp.BucketService

	mu       sync.RWMutex
	handlers map[string]SagaActionHandler
}

func NewSagaService(
	db *gorm.DB,
	baseLog *logger.Logger,
	runs repos.SagaRunRepo,
	actions repos.SagaActionRepo,
	bucket gcp.BucketService,
) SagaService {
	return &sagaService{
		db:       db,
		log:      baseLog.With("service", "SagaService"),
		runs:     runs,
		actions:  actions,
		bucket:   bucket,
		handlers: map[string]SagaActionHandler{},
	}
}

func (s *sagaService) RegisterHandler(kind string, h SagaActionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[strings.TrimSpace(kind)] = h
}

func (s *sagaService) handler(kind string) SagaActionHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[strings.TrimSpace(kind)]
}

func (s *sagaService) CreateOrGetSaga(ctx context.Context, ownerUserID uuid.UUID, rootJobID uuid.UUID) (uuid.UUID, error) {
	if s == nil || s.db == nil || s.runs == nil {
		return uuid.Nil, fmt.Errorf("saga service not configured")
	}
	if rootJobID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("missing root_job_id")
	}

	var sagaID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := s.runs.GetByRootJobID(dbc, rootJobID)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != uuid.Nil {
			sagaID = existing.ID
			return nil
		}
		now := time.Now().UTC()
		row := &types.SagaRun{
			ID:          uuid.New(),
			OwnerUserID: ownerUserID,
			RootJobID:   rootJobID,
			Status:      SagaStatusRunning,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := s.runs.Create(dbc, []*types.SagaRun{row}); err != nil {
			return err
		}
		sagaID = row.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return sagaID, nil
}

func (s *sagaService) AppendAction(dbc dbctx.Context, sagaID uuid.UUID, kind string, payload map[string]any) (uuid.UUID, error) {
	if s == nil || s.runs == nil || s.actions == nil {
		return uuid.Nil, fmt.Errorf("saga service not configured")
	}
	if dbc.Tx == nil {
		return uuid.Nil, fmt.Errorf("AppendAction requires a db transaction")
	}
	if sagaID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("missing saga_id")
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return uuid.Nil, fmt.Errorf("missing saga action kind")
	}

	// Serialize seq assignment by locking saga_run.
	sr, err := s.runs.LockByID(dbc, sagaID)
	if err != nil {
		return uuid.Nil, err
	}
	if sr == nil {
		return uuid.Nil, fmt.Errorf("saga_run not found: %s", sagaID.String())
	}

	maxSeq, err := s.actions.GetMaxSeq(dbc, sagaID)
	if err != nil {
		return uuid.Nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal saga payload: %w", err)
	}
	now := time.Now().UTC()
	row := &types.SagaAction{
		ID:        uuid.New(),
		SagaID:    sagaID,
		Seq:       maxSeq + 1,
		Kind:      kind,
		Payload:   datatypes.JSON(raw),
		Status:    SagaActionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.actions.Create(dbc, []*types.SagaAction{row}); err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (s *sagaService) RecordIntent(ctx context.Context, sagaID uuid.UUID, kind string, payloads ...map[string]any) ([]uuid.UUID, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("saga service not configured")
	}
	ids := make([]uuid.UUID, 0, len(payloads))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, p := range payloads {
			id, err := s.AppendAction(dbc, sagaID, kind, p)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if len(payloads) > 0 {
			// Re-arm runs that already finished, e.g. a resolve after a completed create.
			return s.runs.UpdateFields(dbc, sagaID, map[string]interface{}{"status": SagaStatusRunning})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *sagaService) MarkActionStatus(ctx context.Context, actionID uuid.UUID, status string) error {
	if s == nil || s.actions == nil {
		return fmt.Errorf("saga service not configured")
	}
	if actionID == uuid.Nil {
		return fmt.Errorf("missing action_id")
	}
	return s.actions.UpdateFields(dbctx.Context{Ctx: ctx}, actionID, map[string]interface{}{"status": status})
}

func (s *sagaService) MarkSagaStatus(ctx context.Context, sagaID uuid.UUID, status string) error {
	if s == nil || s.runs == nil {
		return fmt.Errorf("saga service not configured")
	}
	if sagaID == uuid.Nil {
		return fmt.Errorf("missing saga_id")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Errorf("missing saga status")
	}
	return s.runs.UpdateFields(dbctx.Context{Ctx: ctx}, sagaID, map[string]interface{}{"status": status})
}

func (s *sagaService) Compensate(ctx context.Context, sagaID uuid.UUID) error {
	if s == nil || s.actions == nil {
		return fmt.Errorf("saga service not configured")
	}
	if sagaID == uuid.Nil {
		return fmt.Errorf("missing saga_id")
	}

	_ = s.MarkSagaStatus(ctx, sagaID, SagaStatusCompensating)

	actions, err := s.actions.ListBySagaIDDesc(dbctx.Context{Ctx: ctx}, sagaID)
	if err != nil {
		return err
	}

	for _, a := range actions {
		if a == nil || a.ID == uuid.Nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(a.Status)) {
		case SagaActionStatusDone, SagaActionStatusSuperseded:
			continue
		}

		execErr := s.undoAction(ctx, a)
		nextStatus := SagaActionStatusDone
		if execErr != nil {
			nextStatus = SagaActionStatusFailed
			s.log.Warn("saga action compensate failed",
				"saga_id", sagaID.String(),
				"action_id", a.ID.String(),
				"kind", a.Kind,
				"seq", a.Seq,
				"err", execErr.Error(),
			)
		}
		_ = s.actions.UpdateFields(dbctx.Context{Ctx: ctx}, a.ID, map[string]interface{}{"status": nextStatus})
	}

	_ = s.MarkSagaStatus(ctx, sagaID, SagaStatusCompensated)
	return nil
}

func (s *sagaService) undoAction(ctx context.Context, a *types.SagaAction) error {
	kind := strings.TrimSpace(a.Kind)
	switch kind {
	case "":
		return nil
	case SagaActionKindGCSDeleteKey:
		if s.bucket == nil {
			return fmt.Errorf("bucket service unavailable")
		}
		var p struct {
			Key string `json:"key"`
		}
		_ = json.Unmarshal(a.Payload, &p)
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return nil
		}
		err := s.bucket.DeleteFile(dbctx.Context{Ctx: ctx}, key)
		if isNotFoundErr(err) {
			return nil
		}
		return err
	default:
		h := s.handler(kind)
		if h == nil {
			return fmt.Errorf("unknown saga action kind: %s", kind)
		}
		return h.Undo(ctx, a)
	}
}

func (s *sagaService) Recover(ctx context.Context, olderThan time.Duration, limit int) (RecoveryReport, error) {
	var report RecoveryReport
	if s == nil || s.runs == nil || s.actions == nil {
		return report, fmt.Errorf("saga service not configured")
	}
	before := time.Now().UTC().Add(-olderThan)
	runs, err := s.runs.ListByStatusBefore(dbctx.Context{Ctx: ctx}, []string{SagaStatusRunning, SagaStatusCompensating}, before, limit)
	if err != nil {
		return report, err
	}
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		replayed, err := s.recoverRun(ctx, run)
		if err != nil {
			s.log.Warn("saga replay failed; compensating", "saga_id", run.ID.String(), "err", err.Error())
		}
		if replayed {
			report.Replayed++
			continue
		}
		if cerr := s.Compensate(ctx, run.ID); cerr != nil {
			return report, cerr
		}
		report.Compensated++
	}
	s.log.Info("saga recovery finished",
		"scanned", report.Scanned,
		"replayed", report.Replayed,
		"compensated", report.Compensated,
	)
	return report, nil
}

// recoverRun replays the latest forward action of each kind. It reports false when the run must be
// compensated: it was already compensating, it never reached a forward action, or a replay failed.
// Older unfinished intents of the same kind were retried by a later call and are marked superseded.
func (s *sagaService) recoverRun(ctx context.Context, run *types.SagaRun) (bool, error) {
	if run.Status == SagaStatusCompensating {
		return false, nil
	}
	actions, err := s.actions.ListBySagaID(dbctx.Context{Ctx: ctx}, run.ID)
	if err != nil {
		return false, err
	}
	latest := map[string]uuid.UUID{}
	for _, a := range actions {
		if s.handler(a.Kind) != nil {
			latest[a.Kind] = a.ID
		}
	}
	forward := 0
	for _, a := range actions {
		h := s.handler(a.Kind)
		if h == nil {
			continue
		}
		forward++
		if a.Status == SagaActionStatusDone || a.Status == SagaActionStatusSuperseded {
			continue
		}
		if a.ID != latest[a.Kind] {
			if err := s.MarkActionStatus(ctx, a.ID, SagaActionStatusSuperseded); err != nil {
				return false, err
			}
			continue
		}
		if err := h.Replay(ctx, a); err != nil {
			_ = s.MarkActionStatus(ctx, a.ID, SagaActionStatusFailed)
			return false, fmt.Errorf("replay %s: %w", a.Kind, err)
		}
		if err := s.MarkActionStatus(ctx, a.ID, SagaActionStatusDone); err != nil {
			return false, err
		}
	}
	if forward == 0 {
		return false, nil
	}
	return true, s.MarkSagaStatus(ctx, run.ID, SagaStatusSucceeded)
}

func isNotFoundErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gcp.ErrObjectNotExist) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not found") || strings.Contains(s, "doesn't exist") || strings.Contains(s, "does not exist")
}
