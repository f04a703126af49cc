package cards

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/flashcard-media/internal/data/repos/testutil"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
)

func TestFlashcardSlotLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewFlashcardRepo(db, testutil.Logger(t))

	oldMedia := uuid.New()
	f := testutil.SeedFlashcard(t, ctx, tx, uuid.New(), &oldMedia)
	first, second := uuid.New(), uuid.New()

	n, err := repo.SetComparisonIfEmpty(dbc, f.ID, first)
	if err != nil || n != 1 {
		t.Fatalf("SetComparisonIfEmpty: n=%d err=%v", n, err)
	}
	n, err = repo.SetComparisonIfEmpty(dbc, f.ID, second)
	if err != nil || n != 0 {
		t.Fatalf("SetComparisonIfEmpty occupied: want n=0 got n=%d err=%v", n, err)
	}

	got, err := repo.GetByID(dbc, f.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ComparisonID == nil || *got.ComparisonID != first {
		t.Fatalf("comparison_id: want=%s got=%v", first, got.ComparisonID)
	}
	if !got.AwaitingComparison() {
		t.Fatalf("AwaitingComparison: want true")
	}

	// Resolving a comparison that does not hold the slot is a no-op.
	if n, err := repo.ResolveComparison(dbc, f.ID, second, &oldMedia); err != nil || n != 0 {
		t.Fatalf("ResolveComparison mismatched: n=%d err=%v", n, err)
	}

	chosen := uuid.New()
	if n, err := repo.ResolveComparison(dbc, f.ID, first, &chosen); err != nil || n != 1 {
		t.Fatalf("ResolveComparison: n=%d err=%v", n, err)
	}
	got, _ = repo.GetByID(dbc, f.ID)
	if got.ComparisonID != nil {
		t.Fatalf("comparison_id after resolve: want nil got=%v", got.ComparisonID)
	}
	if got.CurrentMediaID == nil || *got.CurrentMediaID != chosen {
		t.Fatalf("current_media_id: want=%s got=%v", chosen, got.CurrentMediaID)
	}
	if len(got.MediaIDList) != 1 || got.MediaIDList[0] != oldMedia.String() {
		t.Fatalf("media_id_list must be untouched: got=%v", got.MediaIDList)
	}
}

func TestFlashcardClearComparisonOnlyMatchingSlot(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewFlashcardRepo(db, testutil.Logger(t))

	f := testutil.SeedFlashcard(t, ctx, tx, uuid.New(), nil)
	held := uuid.New()
	if _, err := repo.SetComparisonIfEmpty(dbc, f.ID, held); err != nil {
		t.Fatalf("SetComparisonIfEmpty: %v", err)
	}
	if n, err := repo.ClearComparison(dbc, f.ID, uuid.New()); err != nil || n != 0 {
		t.Fatalf("ClearComparison other: want n=0 got n=%d err=%v", n, err)
	}
	if n, err := repo.ClearComparison(dbc, f.ID, held); err != nil || n != 1 {
		t.Fatalf("ClearComparison held: n=%d err=%v", n, err)
	}
	got, _ := repo.GetByID(dbc, f.ID)
	if got.AwaitingComparison() {
		t.Fatalf("slot still occupied: %v", got.ComparisonID)
	}
}

func TestFlashcardListAwaitingByCreator(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewFlashcardRepo(db, testutil.Logger(t))

	user := uuid.New()
	waiting := testutil.SeedFlashcard(t, ctx, tx, user, nil)
	testutil.SeedPendingComparison(t, ctx, tx, waiting, uuid.New())
	testutil.SeedFlashcard(t, ctx, tx, user, nil)
	other := testutil.SeedFlashcard(t, ctx, tx, uuid.New(), nil)
	testutil.SeedPendingComparison(t, ctx, tx, other, uuid.New())

	rows, err := repo.ListAwaitingByCreator(dbc, user)
	if err != nil {
		t.Fatalf("ListAwaitingByCreator: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != waiting.ID {
		t.Fatalf("ListAwaitingByCreator: want [%s] got=%d rows", waiting.ID, len(rows))
	}
}

func TestFlashcardGetByIDMissing(t *testing.T) {
	db := testutil.DB(t)
	repo := NewFlashcardRepo(db, testutil.Logger(t))
	got, err := repo.GetByID(dbctx.Background(), uuid.New())
	if err != nil || got != nil {
		t.Fatalf("GetByID missing: want nil,nil got=%v,%v", got, err)
	}
}
