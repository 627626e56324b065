package repository

import (
	"context"

	"restchain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DelegationRepository interface {
	Create(ctx context.Context, rule *model.DefaultActorTaskDelegation) error
	ListByIncomingType(ctx context.Context, taskTypeID uuid.UUID) ([]model.DefaultActorTaskDelegation, error)
	ListByOwner(ctx context.Context, defaultActorID uuid.UUID) ([]model.DefaultActorTaskDelegation, error)
}

type delegationRepository struct {
	db *gorm.DB
}

func NewDelegationRepository(db *gorm.DB) DelegationRepository {
	return &delegationRepository{db: db}
}

func (r *delegationRepository) Create(ctx context.Context, rule *model.DefaultActorTaskDelegation) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *delegationRepository) ListByIncomingType(ctx context.Context, taskTypeID uuid.UUID) ([]model.DefaultActorTaskDelegation, error) {
	var rules []model.DefaultActorTaskDelegation
	err := GetDB(ctx, r.db).
		Preload("DefaultActor").
		Where("incoming_task_type_id = ?", taskTypeID).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *delegationRepository) ListByOwner(ctx context.Context, defaultActorID uuid.UUID) ([]model.DefaultActorTaskDelegation, error) {
	var rules []model.DefaultActorTaskDelegation
	err := GetDB(ctx, r.db).
		Where("default_actor_id = ?", defaultActorID).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}
