package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateTask     = "CREATE_TASK"
	ActionUpdateTask     = "UPDATE_TASK"
	ActionTaskTransition = "TASK_TRANSITION"
	ActionCreateSubTask  = "CREATE_SUBTASK"

	ActionGrantAccess  = "GRANT_ACCESS"
	ActionRevokeAccess = "REVOKE_ACCESS"
	ActionConsumeGrant = "CONSUME_GRANT"

	ActionCreateTarget       = "CREATE_TARGET"
	ActionRegisterDelegation = "REGISTER_DELEGATION"
	ActionDelegationSpawn    = "DELEGATION_SPAWN"
	ActionDelegationFailure  = "DELEGATION_FAILURE"
)

// AuditLog tracks who did what and when for every financially responsible
// change. ActorID is nullable for migration-time seeding.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"`
	Actor      *Actor     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
