package repository

import (
	"context"
	"time"

	"restchain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskFilter narrows task listings.
type TaskFilter struct {
	Status     string
	TypeID     *uuid.UUID
	ExecutorID *uuid.UUID
	Page       int
	Limit      int
}

// TaskRepository persists tasks and the subtask edge table.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	// GetByIDForUpdate takes a row lock so concurrent transitions on the
	// same task serialize inside the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	List(ctx context.Context, filter TaskFilter) ([]model.Task, int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)

	CreateSubTask(ctx context.Context, edge *model.SubTask) error
	ListSubTasks(ctx context.Context, parentID uuid.UUID) ([]model.SubTask, error)
	ListParentEdges(ctx context.Context, childID uuid.UUID) ([]model.SubTask, error)
	// CountLate returns how many live tasks have missed their start and
	// completion deadlines as of now.
	CountLate(ctx context.Context, now time.Time) (lateStart, lateComplete int64, err error)

	GetTaskType(ctx context.Context, id uuid.UUID) (*model.TaskType, error)
	GetTaskTypeByName(ctx context.Context, name string) (*model.TaskType, error)
	CreateTaskType(ctx context.Context, tt *model.TaskType) error
	CreateTaskTypeGroup(ctx context.Context, g *model.TaskTypeGroup) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return GetDB(ctx, r.db).Create(task).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := GetDB(ctx, r.db).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&task, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return GetDB(ctx, r.db).Save(task).Error
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.Task{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TypeID != nil {
		query = query.Where("type_id = ?", *filter.TypeID)
	}
	if filter.ExecutorID != nil {
		query = query.Where("executor_id = ?", *filter.ExecutorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var tasks []model.Task
	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created desc").Offset(offset).Limit(filter.Limit).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *taskRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := GetDB(ctx, r.db).
		Model(&model.Task{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}

func (r *taskRepository) CreateSubTask(ctx context.Context, edge *model.SubTask) error {
	return GetDB(ctx, r.db).Create(edge).Error
}

func (r *taskRepository) ListSubTasks(ctx context.Context, parentID uuid.UUID) ([]model.SubTask, error) {
	var edges []model.SubTask
	if err := GetDB(ctx, r.db).Where("parent_id = ?", parentID).Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *taskRepository) ListParentEdges(ctx context.Context, childID uuid.UUID) ([]model.SubTask, error) {
	var edges []model.SubTask
	if err := GetDB(ctx, r.db).Where("child_id = ?", childID).Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *taskRepository) CountLate(ctx context.Context, now time.Time) (int64, int64, error) {
	db := GetDB(ctx, r.db)

	var lateStart int64
	err := db.Model(&model.Task{}).
		Where("status = ? AND start_execution IS NOT NULL AND start_execution <= ?", model.TaskStatusCreated, now).
		Count(&lateStart).Error
	if err != nil {
		return 0, 0, err
	}

	var lateComplete int64
	err = db.Model(&model.Task{}).
		Where("status IN ? AND complete_before IS NOT NULL AND complete_before <= ?",
			[]string{model.TaskStatusCreated, model.TaskStatusExecutionStarted}, now).
		Count(&lateComplete).Error
	if err != nil {
		return 0, 0, err
	}
	return lateStart, lateComplete, nil
}

func (r *taskRepository) GetTaskType(ctx context.Context, id uuid.UUID) (*model.TaskType, error) {
	var tt model.TaskType
	if err := GetDB(ctx, r.db).First(&tt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *taskRepository) GetTaskTypeByName(ctx context.Context, name string) (*model.TaskType, error) {
	var tt model.TaskType
	if err := GetDB(ctx, r.db).First(&tt, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *taskRepository) CreateTaskType(ctx context.Context, tt *model.TaskType) error {
	return GetDB(ctx, r.db).Create(tt).Error
}

func (r *taskRepository) CreateTaskTypeGroup(ctx context.Context, g *model.TaskTypeGroup) error {
	return GetDB(ctx, r.db).Create(g).Error
}
