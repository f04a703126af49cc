package cards

import (
	"context"
	"testing"

	"github.com/yungbote/flashcard-media/internal/data/repos/testutil"
	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/platform/dbctx"
)

func TestPromptTemplateListFilter(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPromptTemplateRepo(db, testutil.Logger(t))

	img := testutil.SeedPromptTemplate(t, ctx, tx, types.GenerationTextToImage, "{word}")
	testutil.SeedPromptTemplate(t, ctx, tx, types.GenerationTextToVideo, "{word} moving")

	all, err := repo.List(dbc, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("List all: n=%d err=%v", len(all), err)
	}
	only, err := repo.List(dbc, types.GenerationTextToImage)
	if err != nil || len(only) != 1 || only[0].ID != img.ID {
		t.Fatalf("List filtered: got=%v err=%v", only, err)
	}

	if err := repo.UpdateFields(dbc, img.ID, map[string]interface{}{"prompt_text": "{word} ({pos})"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ := repo.GetByID(dbc, img.ID)
	if got.PromptText != "{word} ({pos})" {
		t.Fatalf("prompt_text: got=%q", got.PromptText)
	}
}
