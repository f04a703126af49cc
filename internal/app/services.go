package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/flashcard-media/internal/platform/logger"
	"github.com/yungbote/flashcard-media/internal/services"
)

type Services struct {
	Saga       services.SagaService
	Ledger     services.ComparisonLedger
	Storage    services.StorageCommitter
	Templates  services.PromptTemplateService
	Prompts    services.PromptPipeline
	Dispatcher services.GenerationDispatcher
	Post       services.MediaPostProcessor
	Notifier   services.ComparisonNotifier
	Generation services.MediaGenerationService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	labels, err := services.LoadPosLabels()
	if err != nil {
		return Services{}, fmt.Errorf("load pos labels: %w", err)
	}

	saga := services.NewSagaService(db, log, reposet.SagaRun, reposet.SagaAction, clients.Bucket)
	// The ledger registers itself as the saga handler for its forward actions.
	ledger := services.NewComparisonLedger(db, log, reposet.Flashcard, reposet.Media, reposet.Comparison, saga)
	storage := services.NewStorageCommitter(log, reposet.Media, clients.Bucket, saga)
	templates := services.NewPromptTemplateService(log, reposet.PromptTemplate)
	prompts := services.NewPromptPipeline(log, clients.Gemini, labels, cfg.PromptLocale)
	dispatcher := services.NewGenerationDispatcher(log, clients.Gemini, clients.Fetcher, clients.Bucket, services.DispatcherConfig{
		PollInterval:    cfg.VideoPollInterval,
		VideoTimeout:    cfg.VideoTimeout,
		MaxSeedPixels:   cfg.MaxSeedPixels,
		MaxDecodePixels: int64(cfg.MaxDecodePixels),
	})
	post := services.NewMediaPostProcessor(log, clients.Media, cfg.VideoTargetFPS)
	notifier := services.NewComparisonNotifier(log, clients.Bus)

	generation := services.NewMediaGenerationService(
		log,
		services.MediaGenerationConfig{LockTTL: cfg.GenerationLockTTL},
		reposet.Flashcard,
		reposet.Media,
		reposet.Comparison,
		templates,
		prompts,
		dispatcher,
		post,
		storage,
		ledger,
		saga,
		notifier,
		clients.Locker,
	)

	return Services{
		Saga:       saga,
		Ledger:     ledger,
		Storage:    storage,
		Templates:  templates,
		Prompts:    prompts,
		Dispatcher: dispatcher,
		Post:       post,
		Notifier:   notifier,
		Generation: generation,
	}, nil
}
