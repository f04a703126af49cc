package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/flashcard-media/internal/data/repos"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type Repos struct {
	Flashcard      repos.FlashcardRepo
	Media          repos.MediaRepo
	Comparison     repos.ComparisonRepo
	PromptTemplate repos.PromptTemplateRepo
	SagaRun        repos.SagaRunRepo
	SagaAction     repos.SagaActionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Flashcard:      repos.NewFlashcardRepo(db, log),
		Media:          repos.NewMediaRepo(db, log),
		Comparison:     repos.NewComparisonRepo(db, log),
		PromptTemplate: repos.NewPromptTemplateRepo(db, log),
		SagaRun:        repos.NewSagaRunRepo(db, log),
		SagaAction:     repos.NewSagaActionRepo(db, log),
	}
}
