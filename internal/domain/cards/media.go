package cards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Media is one generated artifact with its prompt provenance and token accounting.
// MediaURLs stays empty between Reserve and the URL patch.
type Media struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FlashcardID uuid.UUID `gorm:"type:uuid;not null;index" json:"flashcard_id"`
	MeaningID   uuid.UUID `gorm:"type:uuid;not null;index" json:"meaning_id"`

	MediaURLs      datatypes.JSONSlice[string] `gorm:"column:media_urls;not null" json:"media_urls"`
	GenerationType GenerationType              `gorm:"column:generation_type;type:text;not null;index" json:"generation_type"`

	TemplateID         *uuid.UUID                  `gorm:"type:uuid;index" json:"template_id,omitempty"`
	UserPromptTemplate string                      `gorm:"type:text;not null;default:''" json:"user_prompt_template"`
	GeneratedPrompt    string                      `gorm:"type:text;not null;default:''" json:"generated_prompt"`
	InputMediaURLs     datatypes.JSONSlice[string] `gorm:"column:input_media_urls" json:"input_media_urls,omitempty"`

	PromptTokenCount     int32 `gorm:"not null;default:0" json:"prompt_token_count"`
	CandidatesTokenCount int32 `gorm:"not null;default:0" json:"candidates_token_count"`
	TotalTokenCount      int32 `gorm:"not null;default:0" json:"total_token_count"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Media) TableName() string { return "media" }
