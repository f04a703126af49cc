package cards

import (
	"time"

	"github.com/google/uuid"
)

// PromptTemplate is a reusable generation prompt with {word}-style placeholders.
type PromptTemplate struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string         `gorm:"type:text;not null" json:"name"`
	Description    string         `gorm:"type:text;not null;default:''" json:"description"`
	GenerationType GenerationType `gorm:"column:generation_type;type:text;not null;index" json:"generation_type"`
	PromptText     string         `gorm:"type:text;not null" json:"prompt_text"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (PromptTemplate) TableName() string { return "prompt_template" }
