package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/flashcard-media/internal/data/repos"
	"github.com/yungbote/flashcard-media/internal/data/repos/testutil"
	types "github.com/yungbote/flashcard-media/internal/domain"
	"github.com/yungbote/flashcard-media/internal/pkg/pointers"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
)

func newTemplateService(t *testing.T) PromptTemplateService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewPromptTemplateService(log, repos.NewPromptTemplateRepo(db, log))
}

func TestPromptTemplateCreateGetUpdate(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	author := uuid.New()

	created, err := svc.Create(ctx, CreatePromptTemplateRequest{
		Name:           "  picture book  ",
		Description:    "soft colors",
		GenerationType: "text_to_image",
		PromptText:     "{word} ({pos}): {translation}",
		CreatedBy:      author,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Name != "picture book" {
		t.Fatalf("Name: want=%q got=%q", "picture book", created.Name)
	}
	if created.GenerationType != types.GenerationTextToImage {
		t.Fatalf("GenerationType: want=%q got=%q", types.GenerationTextToImage, created.GenerationType)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CreatedBy != author {
		t.Fatalf("CreatedBy: want=%s got=%s", author, got.CreatedBy)
	}

	updated, err := svc.Update(ctx, UpdatePromptTemplateRequest{
		ID:         created.ID,
		PromptText: pointers.String("{word} at dawn"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PromptText != "{word} at dawn" {
		t.Fatalf("PromptText: want=%q got=%q", "{word} at dawn", updated.PromptText)
	}
	if updated.Name != "picture book" {
		t.Fatalf("Name changed by partial update: got=%q", updated.Name)
	}
}

func TestPromptTemplateValidation(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePromptTemplateRequest{Name: "x", GenerationType: "text-to-image"})
	if got := apierr.KindOf(err); got != apierr.KindValidation {
		t.Fatalf("empty prompt: want=%q got=%q", apierr.KindValidation, got)
	}
	_, err = svc.Create(ctx, CreatePromptTemplateRequest{Name: "x", GenerationType: "audio", PromptText: "{word}"})
	if got := apierr.KindOf(err); got != apierr.KindValidation {
		t.Fatalf("bad type: want=%q got=%q", apierr.KindValidation, got)
	}
	_, err = svc.Get(ctx, uuid.New())
	if got := apierr.KindOf(err); got != apierr.KindNotFound {
		t.Fatalf("missing: want=%q got=%q", apierr.KindNotFound, got)
	}
	_, err = svc.Update(ctx, UpdatePromptTemplateRequest{ID: uuid.New(), Name: pointers.String("y")})
	if got := apierr.KindOf(err); got != apierr.KindNotFound {
		t.Fatalf("update missing: want=%q got=%q", apierr.KindNotFound, got)
	}
	_, err = svc.List(ctx, "audio")
	if got := apierr.KindOf(err); got != apierr.KindValidation {
		t.Fatalf("list bad type: want=%q got=%q", apierr.KindValidation, got)
	}
}

func TestPromptTemplateListFiltersByType(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	for _, gt := range []string{"text-to-image", "text-to-video", "text-to-image"} {
		if _, err := svc.Create(ctx, CreatePromptTemplateRequest{
			Name:           "t " + gt,
			GenerationType: gt,
			PromptText:     "{word}",
			CreatedBy:      uuid.New(),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	images, err := svc.List(ctx, "text-to-image")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("List images: want=2 got=%d", len(images))
	}
	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List all: want=3 got=%d", len(all))
	}
}
