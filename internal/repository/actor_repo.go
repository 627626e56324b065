package repository

import (
	"context"

	"restchain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActorRepository covers the identity space: actors and their User /
// DefaultActor specializations, plus the employee lookup the access
// resolver needs for positional grants.
type ActorRepository interface {
	CreateActor(ctx context.Context, actor *model.Actor) error
	GetActor(ctx context.Context, id uuid.UUID) (*model.Actor, error)

	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, page, limit int) ([]model.User, int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateDefaultActor(ctx context.Context, da *model.DefaultActor) error
	GetDefaultActorByID(ctx context.Context, id uuid.UUID) (*model.DefaultActor, error)
	GetDefaultActorByName(ctx context.Context, name string) (*model.DefaultActor, error)
	GetDefaultActorByActorID(ctx context.Context, actorID uuid.UUID) (*model.DefaultActor, error)

	GetEmployeeByActorID(ctx context.Context, actorID uuid.UUID) (*model.RestaurantEmployee, error)
	ListEmployeesByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.RestaurantEmployee, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (*model.Restaurant, error)
}

type actorRepository struct {
	db *gorm.DB
}

func NewActorRepository(db *gorm.DB) ActorRepository {
	return &actorRepository{db: db}
}

func (r *actorRepository) CreateActor(ctx context.Context, actor *model.Actor) error {
	return GetDB(ctx, r.db).Create(actor).Error
}

func (r *actorRepository) GetActor(ctx context.Context, id uuid.UUID) (*model.Actor, error) {
	var actor model.Actor
	if err := GetDB(ctx, r.db).First(&actor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

func (r *actorRepository) CreateUser(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *actorRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *actorRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *actorRepository) ListUsers(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Offset(offset).Limit(limit).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *actorRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.User{}).Error
}

func (r *actorRepository) CreateDefaultActor(ctx context.Context, da *model.DefaultActor) error {
	return GetDB(ctx, r.db).Create(da).Error
}

func (r *actorRepository) GetDefaultActorByID(ctx context.Context, id uuid.UUID) (*model.DefaultActor, error) {
	var da model.DefaultActor
	if err := GetDB(ctx, r.db).First(&da, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &da, nil
}

func (r *actorRepository) GetDefaultActorByName(ctx context.Context, name string) (*model.DefaultActor, error) {
	var da model.DefaultActor
	if err := GetDB(ctx, r.db).First(&da, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &da, nil
}

func (r *actorRepository) GetDefaultActorByActorID(ctx context.Context, actorID uuid.UUID) (*model.DefaultActor, error) {
	var da model.DefaultActor
	if err := GetDB(ctx, r.db).First(&da, "actor_id = ?", actorID).Error; err != nil {
		return nil, err
	}
	return &da, nil
}

func (r *actorRepository) GetEmployeeByActorID(ctx context.Context, actorID uuid.UUID) (*model.RestaurantEmployee, error) {
	var emp model.RestaurantEmployee
	err := GetDB(ctx, r.db).
		Joins("JOIN users ON users.id = restaurant_employees.user_id").
		Where("users.actor_id = ? AND users.deleted_at IS NULL", actorID).
		First(&emp).Error
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (r *actorRepository) ListEmployeesByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.RestaurantEmployee, error) {
	var emps []model.RestaurantEmployee
	err := GetDB(ctx, r.db).
		Preload("User").
		Preload("Position").
		Where("restaurant_id = ?", restaurantID).
		Find(&emps).Error
	if err != nil {
		return nil, err
	}
	return emps, nil
}

func (r *actorRepository) GetRestaurant(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	var rest model.Restaurant
	if err := GetDB(ctx, r.db).First(&rest, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rest, nil
}
