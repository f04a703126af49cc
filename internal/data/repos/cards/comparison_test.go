package cards

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/flashcard-media/internal/data/repos/testutil"
	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
)

func TestComparisonMarkResolvedIsTerminal(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewComparisonRepo(db, testutil.Logger(t))

	oldID := uuid.New()
	c := testutil.SeedComparison(t, ctx, tx, uuid.New(), &oldID, uuid.New())

	got, err := repo.LockByID(dbc, c.ID)
	if err != nil || got == nil {
		t.Fatalf("LockByID: %v", err)
	}
	if got.State() != types.ComparisonUnresolved {
		t.Fatalf("initial state: want=%s got=%s", types.ComparisonUnresolved, got.State())
	}

	if n, err := repo.MarkResolved(dbc, c.ID, false); err != nil || n != 1 {
		t.Fatalf("MarkResolved: n=%d err=%v", n, err)
	}
	if n, err := repo.MarkResolved(dbc, c.ID, true); err != nil || n != 0 {
		t.Fatalf("second MarkResolved: want n=0 got n=%d err=%v", n, err)
	}

	got, _ = repo.GetByID(dbc, c.ID)
	if got.State() != types.ComparisonResolvedOld || got.ResolvedAt == nil {
		t.Fatalf("resolved state: want=%s got=%s resolved_at=%v", types.ComparisonResolvedOld, got.State(), got.ResolvedAt)
	}
}

func TestComparisonDeleteUnresolvedKeepsResolved(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewComparisonRepo(db, testutil.Logger(t))

	pending := testutil.SeedComparison(t, ctx, tx, uuid.New(), nil, uuid.New())
	resolved := testutil.SeedComparison(t, ctx, tx, uuid.New(), nil, uuid.New())
	if _, err := repo.MarkResolved(dbc, resolved.ID, true); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}

	if n, err := repo.DeleteUnresolved(dbc, pending.ID); err != nil || n != 1 {
		t.Fatalf("DeleteUnresolved pending: n=%d err=%v", n, err)
	}
	if n, err := repo.DeleteUnresolved(dbc, resolved.ID); err != nil || n != 0 {
		t.Fatalf("DeleteUnresolved resolved: want n=0 got n=%d err=%v", n, err)
	}
	if got, _ := repo.GetByID(dbc, pending.ID); got != nil {
		t.Fatalf("pending comparison still present")
	}
	if got, _ := repo.GetByID(dbc, resolved.ID); got == nil {
		t.Fatalf("resolved comparison deleted")
	}
}
