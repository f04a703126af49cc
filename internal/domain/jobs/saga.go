package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SagaRun is the intent-log header for one multi-document mutation.
// RootJobID is the comparison id the run guards.
type SagaRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	RootJobID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"root_job_id"`

	// running|succeeded|failed|compensating|compensated
	Status string `gorm:"column:status;not null;index" json:"status"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (SagaRun) TableName() string { return "saga_run" }

// SagaAction is either a forward intent (replayed on recovery) or a compensation
// for an external side effect. Actions are appended in the same transaction
// that commits the state they describe.
type SagaAction struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SagaID uuid.UUID `gorm:"type:uuid;not null;index:idx_saga_action_saga_seq,unique,priority:1;index" json:"saga_id"`
	Seq    int64     `gorm:"column:seq;not null;index:idx_saga_action_saga_seq,unique,priority:2" json:"seq"`

	// create_candidate|resolve_comparison|gcs_delete_key
	Kind string `gorm:"column:kind;not null;index" json:"kind"`

	Payload datatypes.JSON `gorm:"column:payload" json:"payload"`

	// pending|done|failed
	Status string `gorm:"column:status;not null;index" json:"status"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (SagaAction) TableName() string { return "saga_action" }
