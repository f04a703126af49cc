package cards

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Flashcard pairs a word and a subset of its meanings with one active media.
// ComparisonID holds at most one unresolved comparison.
type Flashcard struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WordID uuid.UUID `gorm:"type:uuid;not null;index" json:"word_id"`

	UsingMeaningIDList datatypes.JSONSlice[string] `gorm:"column:using_meaning_id_list;not null" json:"using_meaning_id_list"`
	Memo               string                      `gorm:"type:text;not null;default:''" json:"memo"`

	// History of media ever attached. Generation does not append to it.
	MediaIDList    datatypes.JSONSlice[string] `gorm:"column:media_id_list;not null" json:"media_id_list"`
	CurrentMediaID *uuid.UUID                  `gorm:"type:uuid;index" json:"current_media_id,omitempty"`
	ComparisonID   *uuid.UUID                  `gorm:"type:uuid;index" json:"comparison_id,omitempty"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	Version   int       `gorm:"not null;default:1" json:"version"`
	CheckFlag bool      `gorm:"not null;default:false" json:"check_flag"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Flashcard) TableName() string { return "flashcard" }

// AwaitingComparison is true while a candidate is staged against the current media.
func (f *Flashcard) AwaitingComparison() bool {
	return f != nil && f.ComparisonID != nil && *f.ComparisonID != uuid.Nil
}
