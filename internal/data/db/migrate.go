package db

import (
	types "github.com/yungbote/flashcard-media/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Flashcards + generated media
		&types.Flashcard{},
		&types.Media{},
		&types.Comparison{},
		&types.PromptTemplate{},

		// Intent / compensation log
		&types.SagaRun{},
		&types.SagaAction{},
	)
}
