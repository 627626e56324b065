package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultActorTaskDelegation is a declarative rule owned by a default actor:
// when a task of IncomingTaskType completes and the owner is a stakeholder
// of its target, the engine resolves Source into a collection of
// attachments, filters them with the predicate, and creates one task of
// OutgoingTaskType per match, as a subtask of the completed one.
//
// Source names a registered collection loader (e.g. "supply.items",
// "restaurant.employees"); Filter is a jsonb Predicate document. Neither is
// executable code.
type DefaultActorTaskDelegation struct {
	DefaultActorID     uuid.UUID    `gorm:"type:uuid;primaryKey" json:"default_actor_id"`
	DefaultActor       DefaultActor `gorm:"foreignKey:DefaultActorID" json:"-"`
	IncomingTaskTypeID uuid.UUID    `gorm:"type:uuid;primaryKey" json:"incoming_task_type_id"`
	IncomingTaskType   TaskType     `gorm:"foreignKey:IncomingTaskTypeID" json:"-"`
	OutgoingTaskTypeID uuid.UUID    `gorm:"type:uuid;primaryKey" json:"outgoing_task_type_id"`
	OutgoingTaskType   TaskType     `gorm:"foreignKey:OutgoingTaskTypeID" json:"-"`

	Source         string `gorm:"type:varchar(100);not null" json:"source"`
	Filter         string `gorm:"type:jsonb" json:"filter"`
	AttachmentKind string `gorm:"type:varchar(30);not null" json:"attachment_kind"`

	// Template for the spawned tasks. Deadline offsets are minutes from the
	// moment of delegation; zero means no deadline.
	TaskName               string    `gorm:"type:varchar(255);not null" json:"task_name"`
	TaskComment            string    `gorm:"type:text" json:"task_comment"`
	StartOffsetMinutes     int       `gorm:"not null;default:0" json:"start_offset_minutes"`
	FailOnLateStart        bool      `gorm:"not null;default:false" json:"fail_on_late_start"`
	CompleteOffsetMinutes  int       `gorm:"not null;default:0" json:"complete_offset_minutes"`
	FailOnLateComplete     bool      `gorm:"not null;default:false" json:"fail_on_late_complete"`
	CreatedAt              time.Time `json:"created_at"`
}
