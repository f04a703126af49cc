package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/flashcard-media/internal/domain"
)

func SeedFlashcard(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, currentMediaID *uuid.UUID) *types.Flashcard {
	tb.Helper()
	f := &types.Flashcard{
		ID:                 uuid.New(),
		WordID:             uuid.New(),
		UsingMeaningIDList: []string{uuid.NewString()},
		MediaIDList:        []string{},
		CurrentMediaID:     currentMediaID,
		CreatedBy:          userID,
		Version:            1,
	}
	if currentMediaID != nil {
		f.MediaIDList = []string{currentMediaID.String()}
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed flashcard: %v", err)
	}
	return f
}

func SeedMedia(tb testing.TB, ctx context.Context, tx *gorm.DB, flashcardID uuid.UUID, urls ...string) *types.Media {
	tb.Helper()
	if urls == nil {
		urls = []string{}
	}
	m := &types.Media{
		ID:             uuid.New(),
		FlashcardID:    flashcardID,
		MeaningID:      uuid.New(),
		MediaURLs:      urls,
		GenerationType: types.GenerationTextToImage,
		CreatedBy:      uuid.New(),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed media: %v", err)
	}
	return m
}

func SeedComparison(tb testing.TB, ctx context.Context, tx *gorm.DB, flashcardID uuid.UUID, oldMediaID *uuid.UUID, newMediaID uuid.UUID) *types.Comparison {
	tb.Helper()
	c := &types.Comparison{
		ID:          uuid.New(),
		FlashcardID: flashcardID,
		OldMediaID:  oldMediaID,
		NewMediaID:  newMediaID,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed comparison: %v", err)
	}
	return c
}

// SeedPendingComparison creates a comparison and points the flashcard's slot at it.
func SeedPendingComparison(tb testing.TB, ctx context.Context, tx *gorm.DB, f *types.Flashcard, newMediaID uuid.UUID) *types.Comparison {
	tb.Helper()
	c := SeedComparison(tb, ctx, tx, f.ID, f.CurrentMediaID, newMediaID)
	if err := tx.WithContext(ctx).Model(&types.Flashcard{}).Where("id = ?", f.ID).Update("comparison_id", c.ID).Error; err != nil {
		tb.Fatalf("seed flashcard slot: %v", err)
	}
	id := c.ID
	f.ComparisonID = &id
	return c
}

func SeedPromptTemplate(tb testing.TB, ctx context.Context, tx *gorm.DB, genType types.GenerationType, text string) *types.PromptTemplate {
	tb.Helper()
	pt := &types.PromptTemplate{
		ID:             uuid.New(),
		Name:           "template " + string(genType),
		GenerationType: genType,
		PromptText:     text,
		CreatedBy:      uuid.New(),
	}
	if err := tx.WithContext(ctx).Create(pt).Error; err != nil {
		tb.Fatalf("seed prompt template: %v", err)
	}
	return pt
}
