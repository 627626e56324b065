package repository

import (
	"context"
	"errors"

	"restchain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccessRepository persists personal and positional access grants. Scoped
// lookups take a row lock so a disposable grant cannot be consumed twice by
// concurrent transitions.
type AccessRepository interface {
	CreateGrant(ctx context.Context, grant *model.ActorAccessLevel) error
	GetGrant(ctx context.Context, id uuid.UUID) (*model.ActorAccessLevel, error)
	// FindScopedGrant returns an active disposable grant for the exact
	// (actor, type, role, target) tuple, locked for update, or nil.
	FindScopedGrant(ctx context.Context, actorID, taskTypeID uuid.UUID, role string, targetID uuid.UUID) (*model.ActorAccessLevel, error)
	// FindUnscopedGrant returns an active personal grant with no selected
	// target, or nil.
	FindUnscopedGrant(ctx context.Context, actorID, taskTypeID uuid.UUID, role string) (*model.ActorAccessLevel, error)
	SetGrantState(ctx context.Context, id uuid.UUID, state string) error
	ListGrantsByActor(ctx context.Context, actorID uuid.UUID) ([]model.ActorAccessLevel, error)

	CreatePositionGrant(ctx context.Context, grant *model.RestaurantEmployeePositionAccessLevel) error
	// HasPositionGrant reports whether the position holds the role for the
	// task type through any of its task type groups.
	HasPositionGrant(ctx context.Context, positionID, taskTypeID uuid.UUID, role string) (bool, error)
}

type accessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

func (r *accessRepository) CreateGrant(ctx context.Context, grant *model.ActorAccessLevel) error {
	return GetDB(ctx, r.db).Create(grant).Error
}

func (r *accessRepository) GetGrant(ctx context.Context, id uuid.UUID) (*model.ActorAccessLevel, error) {
	var grant model.ActorAccessLevel
	if err := GetDB(ctx, r.db).First(&grant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *accessRepository) FindScopedGrant(ctx context.Context, actorID, taskTypeID uuid.UUID, role string, targetID uuid.UUID) (*model.ActorAccessLevel, error) {
	var grant model.ActorAccessLevel
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("actor_id = ? AND task_type_id = ? AND role = ? AND selected_target_id = ? AND state = ?",
			actorID, taskTypeID, role, targetID, model.GrantStateActive).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *accessRepository) FindUnscopedGrant(ctx context.Context, actorID, taskTypeID uuid.UUID, role string) (*model.ActorAccessLevel, error) {
	var grant model.ActorAccessLevel
	err := GetDB(ctx, r.db).
		Where("actor_id = ? AND task_type_id = ? AND role = ? AND selected_target_id IS NULL AND state = ?",
			actorID, taskTypeID, role, model.GrantStateActive).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *accessRepository) SetGrantState(ctx context.Context, id uuid.UUID, state string) error {
	return GetDB(ctx, r.db).
		Model(&model.ActorAccessLevel{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *accessRepository) ListGrantsByActor(ctx context.Context, actorID uuid.UUID) ([]model.ActorAccessLevel, error) {
	var grants []model.ActorAccessLevel
	err := GetDB(ctx, r.db).
		Where("actor_id = ?", actorID).
		Order("created_at asc").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *accessRepository) CreatePositionGrant(ctx context.Context, grant *model.RestaurantEmployeePositionAccessLevel) error {
	return GetDB(ctx, r.db).Create(grant).Error
}

func (r *accessRepository) HasPositionGrant(ctx context.Context, positionID, taskTypeID uuid.UUID, role string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.RestaurantEmployeePositionAccessLevel{}).
		Joins("JOIN task_type_group_types tgt ON tgt.task_type_group_id = restaurant_employee_position_access_levels.task_type_group_id").
		Where("restaurant_employee_position_access_levels.position_id = ?", positionID).
		Where("restaurant_employee_position_access_levels.role = ?", role).
		Where("tgt.task_type_id = ?", taskTypeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
