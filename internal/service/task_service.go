package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"restchain/internal/apperr"
	"restchain/internal/model"
	"restchain/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateTaskDTO struct {
	TypeID      string `json:"type_id" binding:"required"`
	TargetID    string `json:"target_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Comment     string `json:"comment"`
	ExecutorID  string `json:"executor_id" binding:"required"`
	InspectorID string `json:"inspector_id" binding:"required"`

	StartExecution     *time.Time `json:"start_execution"`
	FailOnLateStart    bool       `json:"fail_on_late_start"`
	CompleteBefore     *time.Time `json:"complete_before"`
	FailOnLateComplete bool       `json:"fail_on_late_complete"`

	// Created is rejected when supplied: creation time is server-assigned
	// and tasks are never backdated.
	Created *time.Time `json:"created"`
}

type UpdateTaskDTO struct {
	Name           *string    `json:"name"`
	Comment        *string    `json:"comment"`
	StartExecution *time.Time `json:"start_execution"`
	CompleteBefore *time.Time `json:"complete_before"`
}

type TransitionDTO struct {
	Status string `json:"status" binding:"required"`
}

// TaskEvent is the payload broadcast to websocket subscribers on lifecycle
// changes.
type TaskEvent struct {
	Event  string    `json:"event"`
	TaskID uuid.UUID `json:"task_id"`
	Status string    `json:"status"`
	Name   string    `json:"name"`
}

// --- Interface ---

// TaskService owns the task lifecycle: creation under create-access, the
// status state machine with lateness rules, subtask decomposition with
// cycle rejection, and the delegation trigger on completion.
type TaskService interface {
	CreateTask(ctx context.Context, authorID uuid.UUID, req CreateTaskDTO) (*model.Task, error)
	GetTask(ctx context.Context, actorID, taskID uuid.UUID) (*model.Task, error)
	ListTasks(ctx context.Context, filter repository.TaskFilter) ([]model.Task, int64, error)
	UpdateTask(ctx context.Context, actorID, taskID uuid.UUID, req UpdateTaskDTO) (*model.Task, error)
	Transition(ctx context.Context, taskID uuid.UUID, newStatus string, actorID uuid.UUID) (*model.Task, error)
	CreateSubTask(ctx context.Context, actorID, parentID, childID uuid.UUID, priority int) error
	// SubTaskBunches returns the children grouped by priority, in execution
	// order: every bunch runs in parallel, bunches run sequentially.
	SubTaskBunches(ctx context.Context, parentID uuid.UUID) ([][]model.SubTask, error)
}

type taskService struct {
	tasks      repository.TaskRepository
	actors     repository.ActorRepository
	targets    repository.TargetRepository
	audits     repository.AuditRepository
	txm        repository.TransactionManager
	access     AccessService
	delegation DelegationService
	hub        interface{ GetBroadcast() chan []byte } // optional websocket hub
}

func NewTaskService(
	tasks repository.TaskRepository,
	actors repository.ActorRepository,
	targets repository.TargetRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	access AccessService,
	delegation DelegationService,
) TaskService {
	return &taskService{
		tasks:      tasks,
		actors:     actors,
		targets:    targets,
		audits:     audits,
		txm:        txm,
		access:     access,
		delegation: delegation,
	}
}

// NewTaskServiceWithHub additionally broadcasts lifecycle events.
func NewTaskServiceWithHub(
	tasks repository.TaskRepository,
	actors repository.ActorRepository,
	targets repository.TargetRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	access AccessService,
	delegation DelegationService,
	hub interface{ GetBroadcast() chan []byte },
) TaskService {
	s := NewTaskService(tasks, actors, targets, audits, txm, access, delegation).(*taskService)
	s.hub = hub
	return s
}

// --- Implementation ---

func (s *taskService) CreateTask(ctx context.Context, authorID uuid.UUID, req CreateTaskDTO) (*model.Task, error) {
	if req.Created != nil {
		return nil, fmt.Errorf("created is server-assigned; tasks cannot be backdated")
	}

	typeID, err := uuid.Parse(req.TypeID)
	if err != nil {
		return nil, fmt.Errorf("invalid type_id: %w", err)
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("invalid target_id: %w", err)
	}
	executorID, err := uuid.Parse(req.ExecutorID)
	if err != nil {
		return nil, fmt.Errorf("invalid executor_id: %w", err)
	}
	inspectorID, err := uuid.Parse(req.InspectorID)
	if err != nil {
		return nil, fmt.Errorf("invalid inspector_id: %w", err)
	}

	if _, err := s.tasks.GetTaskType(ctx, typeID); err != nil {
		return nil, fmt.Errorf("unknown task type: %w", err)
	}
	if _, err := s.targets.GetTarget(ctx, targetID); err != nil {
		return nil, fmt.Errorf("unknown target: %w", err)
	}
	for _, id := range []uuid.UUID{authorID, executorID, inspectorID} {
		if _, err := s.actors.GetActor(ctx, id); err != nil {
			return nil, fmt.Errorf("unknown actor %s: %w", id, err)
		}
	}

	now := time.Now().UTC()
	if req.StartExecution != nil && req.StartExecution.Before(now) {
		return nil, fmt.Errorf("start_execution must not be in the past")
	}
	if req.CompleteBefore != nil && req.CompleteBefore.Before(now) {
		return nil, fmt.Errorf("complete_before must not be in the past")
	}

	task := &model.Task{
		TypeID:             typeID,
		Name:               req.Name,
		Comment:            req.Comment,
		Status:             model.TaskStatusCreated,
		TargetID:           targetID,
		AuthorID:           authorID,
		ExecutorID:         executorID,
		InspectorID:        inspectorID,
		Created:            now,
		StartExecution:     req.StartExecution,
		FailOnLateStart:    req.FailOnLateStart,
		CompleteBefore:     req.CompleteBefore,
		FailOnLateComplete: req.FailOnLateComplete,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.access.Authorize(txCtx, authorID, typeID, model.AccessRoleCreate, &targetID); err != nil {
			return err
		}
		if err := s.tasks.Create(txCtx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		details, _ := json.Marshal(map[string]any{
			"type_id":   typeID.String(),
			"target_id": targetID.String(),
		})
		entry := &model.AuditLog{
			ActorID:    &authorID,
			Action:     model.ActionCreateTask,
			EntityID:   task.ID.String(),
			EntityName: task.Name,
			Details:    string(details),
		}
		return s.audits.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("task.created", task)
	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, actorID, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	ok, err := s.access.HasAccess(ctx, actorID, task.TypeID, model.AccessRoleRead, &task.TargetID)
	if err != nil {
		return nil, err
	}
	if !ok && actorID != task.AuthorID && actorID != task.ExecutorID && actorID != task.InspectorID {
		return nil, &apperr.AccessDeniedError{ActorID: actorID, TaskType: task.TypeID.String(), Role: model.AccessRoleRead}
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]model.Task, int64, error) {
	return s.tasks.List(ctx, filter)
}

func (s *taskService) UpdateTask(ctx context.Context, actorID, taskID uuid.UUID, req UpdateTaskDTO) (*model.Task, error) {
	var updated *model.Task
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		task, err := s.tasks.GetByIDForUpdate(txCtx, taskID)
		if err != nil {
			return fmt.Errorf("task not found: %w", err)
		}
		if model.IsTerminalStatus(task.Status) {
			return fmt.Errorf("task is %s and can no longer be edited", task.Status)
		}
		if err := s.access.Authorize(txCtx, actorID, task.TypeID, model.AccessRoleEdit, &task.TargetID); err != nil {
			return err
		}

		now := time.Now().UTC()
		if req.StartExecution != nil {
			if req.StartExecution.Before(now) {
				return fmt.Errorf("start_execution must not be in the past")
			}
			task.StartExecution = req.StartExecution
		}
		if req.CompleteBefore != nil {
			if req.CompleteBefore.Before(now) {
				return fmt.Errorf("complete_before must not be in the past")
			}
			task.CompleteBefore = req.CompleteBefore
		}
		if req.Name != nil {
			task.Name = *req.Name
		}
		if req.Comment != nil {
			task.Comment = *req.Comment
		}
		task.Changed = true

		if err := s.tasks.Update(txCtx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		entry := &model.AuditLog{
			ActorID:    &actorID,
			Action:     model.ActionUpdateTask,
			EntityID:   task.ID.String(),
			EntityName: task.Name,
		}
		if err := s.audits.Log(txCtx, entry); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *taskService) Transition(ctx context.Context, taskID uuid.UUID, newStatus string, actorID uuid.UUID) (*model.Task, error) {
	var result *model.Task
	var warnings []error

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		task, err := s.tasks.GetByIDForUpdate(txCtx, taskID)
		if err != nil {
			return fmt.Errorf("task not found: %w", err)
		}

		// One clock read per transition; every lateness check below uses
		// this value so the decision cannot flip mid-transition.
		now := time.Now().UTC()

		if !model.CanTransition(task.Status, newStatus) {
			return &apperr.InvalidTransitionError{TaskID: task.ID, From: task.Status, To: newStatus}
		}

		switch newStatus {
		case model.TaskStatusExecutionStarted, model.TaskStatusCompleted, model.TaskStatusFailed:
			if actorID != task.ExecutorID {
				return &apperr.AccessDeniedError{ActorID: actorID, TaskType: task.TypeID.String(), Role: model.AccessRoleExecute}
			}
			if err := s.access.Authorize(txCtx, actorID, task.TypeID, model.AccessRoleExecute, &task.TargetID); err != nil {
				return err
			}
		case model.TaskStatusInspected, model.TaskStatusRejected, model.TaskStatusExecuted:
			if actorID != task.InspectorID {
				return &apperr.AccessDeniedError{ActorID: actorID, TaskType: task.TypeID.String(), Role: model.AccessRoleInspect}
			}
			if err := s.access.Authorize(txCtx, actorID, task.TypeID, model.AccessRoleInspect, &task.TargetID); err != nil {
				return err
			}
		default:
			return &apperr.InvalidTransitionError{TaskID: task.ID, From: task.Status, To: newStatus}
		}

		switch newStatus {
		case model.TaskStatusExecutionStarted:
			if task.FailOnLateStart && task.IsStartedLate(now) {
				return &apperr.TaskLateError{TaskID: task.ID, Deadline: *task.StartExecution, Kind: "start"}
			}
			task.ExecutionStarted = &now
		case model.TaskStatusCompleted:
			if task.FailOnLateComplete && task.IsCompletedLate(now) {
				return &apperr.TaskLateError{TaskID: task.ID, Deadline: *task.CompleteBefore, Kind: "complete"}
			}
			task.Completed = &now
		case model.TaskStatusExecuted:
			task.Approved = &now
		}

		from := task.Status
		task.Status = newStatus
		if err := s.tasks.Update(txCtx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		details, _ := json.Marshal(map[string]any{"from": from, "to": newStatus})
		entry := &model.AuditLog{
			ActorID:    &actorID,
			Action:     model.ActionTaskTransition,
			EntityID:   task.ID.String(),
			EntityName: task.Name,
			Details:    string(details),
		}
		if err := s.audits.Log(txCtx, entry); err != nil {
			return err
		}

		// Delegation spawns commit or roll back together with the
		// completing transition.
		if newStatus == model.TaskStatusCompleted {
			warns, err := s.delegation.OnTaskCompleted(txCtx, task)
			if err != nil {
				return err
			}
			warnings = warns
		}

		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		log.Printf("delegation warning for task %s: %v", taskID, w)
	}
	s.broadcast("task."+newStatus, result)
	return result, nil
}

func (s *taskService) CreateSubTask(ctx context.Context, actorID, parentID, childID uuid.UUID, priority int) error {
	if parentID == childID {
		return &apperr.CycleError{ParentID: parentID, ChildID: childID}
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		parent, err := s.tasks.GetByID(txCtx, parentID)
		if err != nil {
			return fmt.Errorf("parent task not found: %w", err)
		}
		if _, err := s.tasks.GetByID(txCtx, childID); err != nil {
			return fmt.Errorf("child task not found: %w", err)
		}

		// Decomposition belongs to whoever must resolve the parent.
		if actorID != parent.ExecutorID && actorID != parent.AuthorID {
			return &apperr.AccessDeniedError{ActorID: actorID, TaskType: parent.TypeID.String(), Role: model.AccessRoleEdit}
		}

		if err := s.checkNoCycle(txCtx, parentID, childID); err != nil {
			return err
		}

		edge := &model.SubTask{ParentID: parentID, ChildID: childID, Priority: priority}
		if err := s.tasks.CreateSubTask(txCtx, edge); err != nil {
			return fmt.Errorf("failed to create subtask edge: %w", err)
		}

		details, _ := json.Marshal(map[string]any{
			"parent_id": parentID.String(),
			"child_id":  childID.String(),
			"priority":  priority,
		})
		entry := &model.AuditLog{
			ActorID:  &actorID,
			Action:   model.ActionCreateSubTask,
			EntityID: childID.String(),
			Details:  string(details),
		}
		return s.audits.Log(txCtx, entry)
	})
}

// checkNoCycle walks every ancestor of parentID; finding childID among them
// means the new edge would make the child its own ancestor.
func (s *taskService) checkNoCycle(ctx context.Context, parentID, childID uuid.UUID) error {
	visited := map[uuid.UUID]bool{}
	stack := []uuid.UUID{parentID}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == childID {
			return &apperr.CycleError{ParentID: parentID, ChildID: childID}
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		edges, err := s.tasks.ListParentEdges(ctx, current)
		if err != nil {
			return fmt.Errorf("failed to walk ancestors: %w", err)
		}
		for _, e := range edges {
			stack = append(stack, e.ParentID)
		}
	}
	return nil
}

func (s *taskService) SubTaskBunches(ctx context.Context, parentID uuid.UUID) ([][]model.SubTask, error) {
	edges, err := s.tasks.ListSubTasks(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return model.BunchSubTasks(edges), nil
}

func (s *taskService) broadcast(event string, task *model.Task) {
	if s.hub == nil || task == nil {
		return
	}
	payload, err := json.Marshal(TaskEvent{
		Event:  event,
		TaskID: task.ID,
		Status: task.Status,
		Name:   task.Name,
	})
	if err != nil {
		return
	}
	select {
	case s.hub.GetBroadcast() <- payload:
	default:
		// no subscribers draining the hub; drop rather than block
	}
}
