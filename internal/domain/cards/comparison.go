package cards

import (
	"time"

	"github.com/google/uuid"
)

type ComparisonState string

const (
	ComparisonUnresolved  ComparisonState = "unresolved"
	ComparisonResolvedOld ComparisonState = "resolved_old"
	ComparisonResolvedNew ComparisonState = "resolved_new"
)

// Comparison stages a freshly generated media against the flashcard's previous one.
// IsSelectedNew is nil until resolved; resolution is terminal.
type Comparison struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FlashcardID uuid.UUID  `gorm:"type:uuid;not null;index" json:"flashcard_id"`
	OldMediaID  *uuid.UUID `gorm:"type:uuid" json:"old_media_id,omitempty"`
	NewMediaID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"new_media_id"`

	IsSelectedNew *bool      `gorm:"column:is_selected_new" json:"is_selected_new"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Comparison) TableName() string { return "comparison" }

func (c *Comparison) State() ComparisonState {
	switch {
	case c == nil || c.IsSelectedNew == nil:
		return ComparisonUnresolved
	case *c.IsSelectedNew:
		return ComparisonResolvedNew
	default:
		return ComparisonResolvedOld
	}
}

func (c *Comparison) Resolved() bool { return c.State() != ComparisonUnresolved }

// ChosenMediaID returns the media that becomes current for the given selection.
// It is nil when the old side is chosen and the flashcard had no prior media.
func (c *Comparison) ChosenMediaID(isSelectedNew bool) *uuid.UUID {
	if isSelectedNew {
		id := c.NewMediaID
		return &id
	}
	if c.OldMediaID == nil {
		return nil
	}
	id := *c.OldMediaID
	return &id
}
