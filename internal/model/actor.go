package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SystemActorName is the reserved default actor used by automated and
// deployment-time tasks. Its Actor row carries the superuser flag.
const SystemActorName = "SYSTEM"

// Actor is the opaque identity every task participant and access grant
// refers to. Exactly one specialization (User or DefaultActor) owns it.
// Actors are created once and never deleted; soft deletion lives on User.
type Actor struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Superuser bool      `gorm:"not null;default:false" json:"superuser"` // auditable bypass of access resolution
	CreatedAt time.Time `json:"created_at"`
}

// User is a human actor with login credentials.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"actor_id"`
	Actor     Actor          `gorm:"foreignKey:ActorID" json:"-"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DefaultActor is a non-human actor: a kitchen area, a department, or the
// SYSTEM identity. Delegation rules are owned by default actors.
type DefaultActor struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"actor_id"`
	Actor     Actor     `gorm:"foreignKey:ActorID" json:"-"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Restaurant is the organizational unit employees and task-target payloads
// hang off. Each restaurant owns a default actor used as a delegation
// stakeholder.
type Restaurant struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Address        string    `gorm:"type:text" json:"address"`
	DefaultActorID uuid.UUID `gorm:"type:uuid;not null;index" json:"default_actor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// RestaurantEmployeePosition is a job position; positional access grants and
// salary amounts are attached here, not to individual employees.
type RestaurantEmployeePosition struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Salary    decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"salary"`
	CreatedAt time.Time       `json:"created_at"`
}

// RestaurantEmployee links a User to a position at a restaurant. Positional
// access grants apply to every employee currently holding the position.
type RestaurantEmployee struct {
	ID           uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID                  `gorm:"type:uuid;not null;index" json:"user_id"`
	User         User                       `gorm:"foreignKey:UserID" json:"-"`
	RestaurantID uuid.UUID                  `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Restaurant   Restaurant                 `gorm:"foreignKey:RestaurantID" json:"-"`
	PositionID   uuid.UUID                  `gorm:"type:uuid;not null;index" json:"position_id"`
	Position     RestaurantEmployeePosition `gorm:"foreignKey:PositionID" json:"-"`
	CreatedAt    time.Time                  `json:"created_at"`
}
