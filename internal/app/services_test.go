package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/flashcard-media/internal/data/repos/testutil"
	"github.com/yungbote/flashcard-media/internal/platform/apierr"
	"github.com/yungbote/flashcard-media/internal/platform/redisx"
	"github.com/yungbote/flashcard-media/internal/realtime/bus"
	"github.com/yungbote/flashcard-media/internal/services"
)

func TestWireServicesWithoutRedis(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	cfg := Config{PromptLocale: "ja", VideoTargetFPS: 10, GenerationLockTTL: time.Minute}
	clients := Clients{Bus: bus.NewNoopBus(), Locker: redisx.NewLocalLocker()}

	set, err := wireServices(db, log, cfg, wireRepos(db, log), clients)
	if err != nil {
		t.Fatalf("wireServices: %v", err)
	}
	if set.Generation == nil || set.Ledger == nil || set.Saga == nil || set.Templates == nil {
		t.Fatalf("wireServices: missing services %+v", set)
	}

	ctx := context.Background()
	_, err = set.Generation.GenerateMedia(ctx, services.GenerateMediaRequest{
		FlashcardID:    uuid.New(),
		MeaningID:      uuid.New(),
		Word:           "run",
		GenerationType: "text-to-image",
	})
	if got := apierr.KindOf(err); got != apierr.KindNotFound {
		t.Fatalf("GenerateMedia unknown flashcard: want=%q got=%q (%v)", apierr.KindNotFound, got, err)
	}

	report, err := set.Generation.Recover(ctx, time.Minute, 10)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if report.Scanned != 0 {
		t.Fatalf("Recover scanned: want=0 got=%d", report.Scanned)
	}
}
