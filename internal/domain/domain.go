package domain

import (
	"github.com/yungbote/flashcard-media/internal/domain/cards"
	"github.com/yungbote/flashcard-media/internal/domain/jobs"
)

type (
	Flashcard       = cards.Flashcard
	Media           = cards.Media
	Comparison      = cards.Comparison
	ComparisonState = cards.ComparisonState
	PromptTemplate  = cards.PromptTemplate
	GenerationType  = cards.GenerationType

	SagaRun    = jobs.SagaRun
	SagaAction = jobs.SagaAction
)

const (
	GenerationTextToImage  = cards.GenerationTextToImage
	GenerationImageToImage = cards.GenerationImageToImage
	GenerationTextToVideo  = cards.GenerationTextToVideo
	GenerationImageToVideo = cards.GenerationImageToVideo

	ComparisonUnresolved  = cards.ComparisonUnresolved
	ComparisonResolvedOld = cards.ComparisonResolvedOld
	ComparisonResolvedNew = cards.ComparisonResolvedNew
)

var ParseGenerationType = cards.ParseGenerationType
