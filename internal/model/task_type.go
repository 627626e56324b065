package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskType classifies tasks for access control only; it carries no business
// logic of its own.
type TaskType struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskTypeGroup tags several related task types so a single positional grant
// can cover all of them.
type TaskTypeGroup struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Types     []TaskType `gorm:"many2many:task_type_group_types;" json:"types"`
	CreatedAt time.Time  `json:"created_at"`
}
