package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/flashcard-media/internal/data/repos/cards"
	"github.com/yungbote/flashcard-media/internal/data/repos/jobs"
	"github.com/yungbote/flashcard-media/internal/platform/logger"
)

type FlashcardRepo = cards.FlashcardRepo
type MediaRepo = cards.MediaRepo
type ComparisonRepo = cards.ComparisonRepo
type PromptTemplateRepo = cards.PromptTemplateRepo

type SagaRunRepo = jobs.SagaRunRepo
type SagaActionRepo = jobs.SagaActionRepo

func NewFlashcardRepo(db *gorm.DB, log *logger.Logger) FlashcardRepo {
	return cards.NewFlashcardRepo(db, log)
}

func NewMediaRepo(db *gorm.DB, log *logger.Logger) MediaRepo {
	return cards.NewMediaRepo(db, log)
}

func NewComparisonRepo(db *gorm.DB, log *logger.Logger) ComparisonRepo {
	return cards.NewComparisonRepo(db, log)
}

func NewPromptTemplateRepo(db *gorm.DB, log *logger.Logger) PromptTemplateRepo {
	return cards.NewPromptTemplateRepo(db, log)
}

func NewSagaRunRepo(db *gorm.DB, log *logger.Logger) SagaRunRepo {
	return jobs.NewSagaRunRepo(db, log)
}

func NewSagaActionRepo(db *gorm.DB, log *logger.Logger) SagaActionRepo {
	return jobs.NewSagaActionRepo(db, log)
}
