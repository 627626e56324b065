package repository

import (
	"context"
	"errors"
	"fmt"

	"restchain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TargetRepository persists task targets and their variant payload rows.
type TargetRepository interface {
	CreateTarget(ctx context.Context, target *model.TaskTarget) error
	GetTarget(ctx context.Context, id uuid.UUID) (*model.TaskTarget, error)
	// CreatePayload inserts a variant row; the caller is responsible for
	// setting its TaskTargetID and for running inside the same transaction
	// as CreateTarget.
	CreatePayload(ctx context.Context, payload any) error
	// LoadPayload fetches the variant row for the target's kind tag.
	// Returns gorm.ErrRecordNotFound when the tagged variant is missing.
	LoadPayload(ctx context.Context, kind string, targetID uuid.UUID) (any, error)
	// CountVariants probes every variant table. Used to verify the
	// exactly-one invariant, not for kind dispatch.
	CountVariants(ctx context.Context, targetID uuid.UUID) (int, error)
}

type targetRepository struct {
	db *gorm.DB
}

func NewTargetRepository(db *gorm.DB) TargetRepository {
	return &targetRepository{db: db}
}

func (r *targetRepository) CreateTarget(ctx context.Context, target *model.TaskTarget) error {
	return GetDB(ctx, r.db).Create(target).Error
}

func (r *targetRepository) GetTarget(ctx context.Context, id uuid.UUID) (*model.TaskTarget, error) {
	var target model.TaskTarget
	if err := GetDB(ctx, r.db).First(&target, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *targetRepository) CreatePayload(ctx context.Context, payload any) error {
	return GetDB(ctx, r.db).Create(payload).Error
}

func (r *targetRepository) LoadPayload(ctx context.Context, kind string, targetID uuid.UUID) (any, error) {
	db := GetDB(ctx, r.db)

	load := func(dest any, query *gorm.DB) (any, error) {
		if err := query.First(dest, "task_target_id = ?", targetID).Error; err != nil {
			return nil, err
		}
		return dest, nil
	}

	switch kind {
	case model.TargetKindSupply:
		return load(&model.Supply{}, db.Preload("Items"))
	case model.TargetKindSalary:
		return load(&model.Salary{}, db)
	case model.TargetKindWriteOff:
		return load(&model.WriteOff{}, db)
	case model.TargetKindCustomerOrder:
		return load(&model.CustomerOrder{}, db)
	case model.TargetKindCustomerPayment:
		return load(&model.CustomerPayment{}, db)
	case model.TargetKindSupplyOrder:
		return load(&model.SupplyOrder{}, db)
	case model.TargetKindSupplyPayment:
		return load(&model.SupplyPayment{}, db)
	case model.TargetKindAccessGrant:
		return load(&model.ActorAccessLevel{}, db)
	case model.TargetKindDiscountGroup:
		return load(&model.DiscountGroup{}, db)
	case model.TargetKindDiscount:
		return load(&model.Discount{}, db)
	default:
		return nil, fmt.Errorf("unknown target kind %q", kind)
	}
}

func (r *targetRepository) CountVariants(ctx context.Context, targetID uuid.UUID) (int, error) {
	db := GetDB(ctx, r.db)

	variants := []any{
		&model.Supply{},
		&model.Salary{},
		&model.WriteOff{},
		&model.CustomerOrder{},
		&model.CustomerPayment{},
		&model.SupplyOrder{},
		&model.SupplyPayment{},
		&model.ActorAccessLevel{},
		&model.DiscountGroup{},
		&model.Discount{},
	}

	total := 0
	for _, v := range variants {
		var count int64
		if err := db.Model(v).Where("task_target_id = ?", targetID).Count(&count).Error; err != nil {
			return 0, err
		}
		total += int(count)
	}
	return total, nil
}

// IsNotFound reports whether err is the storage layer's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
