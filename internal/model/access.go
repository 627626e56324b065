package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessRole enum constants — the reasons an actor may touch a task.
const (
	AccessRoleRead    = "read"
	AccessRoleCreate  = "create"
	AccessRoleEdit    = "edit"
	AccessRoleExecute = "execute"
	AccessRoleInspect = "inspect"
	AccessRoleDelete  = "delete"
)

// ValidAccessRole reports whether role is a known access role.
func ValidAccessRole(role string) bool {
	switch role {
	case AccessRoleRead, AccessRoleCreate, AccessRoleEdit,
		AccessRoleExecute, AccessRoleInspect, AccessRoleDelete:
		return true
	}
	return false
}

// GrantState enum constants. Disposable grants move active -> consumed in
// the same transaction as the state change they authorize, so a grant can
// never be spent twice.
const (
	GrantStateActive   = "active"
	GrantStateConsumed = "consumed"
	GrantStateRevoked  = "revoked"
)

// ActorAccessLevel is a personal access grant. TaskTargetID anchors the
// target of the grant issuance itself (the grant is a task target of kind
// access_grant). When SelectedTargetID is set the grant is disposable: it is
// valid only for that one target and only once.
type ActorAccessLevel struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"actor_id"`
	Actor            Actor      `gorm:"foreignKey:ActorID" json:"-"`
	TaskTypeID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"task_type_id"`
	TaskType         TaskType   `gorm:"foreignKey:TaskTypeID" json:"-"`
	TaskTargetID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	Role             string     `gorm:"type:varchar(20);not null;index" json:"role"`
	SelectedTargetID *uuid.UUID `gorm:"type:uuid;index" json:"selected_target_id"`
	State            string     `gorm:"type:varchar(20);not null;default:'active';index" json:"state"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Disposable reports whether the grant is scoped to a single target.
func (a *ActorAccessLevel) Disposable() bool {
	return a.SelectedTargetID != nil
}

// RestaurantEmployeePositionAccessLevel is a group grant: every employee
// currently holding the position gets the role for every task type in the
// group.
type RestaurantEmployeePositionAccessLevel struct {
	ID              uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PositionID      uuid.UUID                  `gorm:"type:uuid;not null;index" json:"position_id"`
	Position        RestaurantEmployeePosition `gorm:"foreignKey:PositionID" json:"-"`
	TaskTypeGroupID uuid.UUID                  `gorm:"type:uuid;not null;index" json:"task_type_group_id"`
	TaskTypeGroup   TaskTypeGroup              `gorm:"foreignKey:TaskTypeGroupID" json:"-"`
	Role            string                     `gorm:"type:varchar(20);not null;index" json:"role"`
	CreatedAt       time.Time                  `json:"created_at"`
}
