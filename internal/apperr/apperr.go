package apperr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccessDeniedError is returned when an actor lacks the required access role
// for a task type (or for a specific target). It is never downgraded to a
// soft condition.
type AccessDeniedError struct {
	ActorID  uuid.UUID
	TaskType string
	Role     string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("actor %s lacks '%s' access for task type '%s'", e.ActorID, e.Role, e.TaskType)
}

// InvalidTransitionError is returned when a requested status change violates
// the task status graph.
type InvalidTransitionError struct {
	TaskID uuid.UUID
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: invalid transition %s -> %s", e.TaskID, e.From, e.To)
}

// TaskLateError is returned when a deadline with a fail_on_late flag has
// passed at the moment of the guarded transition.
type TaskLateError struct {
	TaskID   uuid.UUID
	Deadline time.Time
	Kind     string // "start" or "complete"
}

func (e *TaskLateError) Error() string {
	return fmt.Sprintf("task %s: %s deadline %s has passed", e.TaskID, e.Kind, e.Deadline.Format(time.RFC3339))
}

// TargetIntegrityError is returned when a task target does not have exactly
// one variant payload populated.
type TargetIntegrityError struct {
	TargetID uuid.UUID
	Variants int
}

func (e *TargetIntegrityError) Error() string {
	return fmt.Sprintf("task target %s has %d variant payloads, want exactly 1", e.TargetID, e.Variants)
}

// CycleError is returned when a subtask edge would make a task its own
// ancestor.
type CycleError struct {
	ParentID uuid.UUID
	ChildID  uuid.UUID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("subtask edge %s -> %s would create a cycle", e.ParentID, e.ChildID)
}

// DelegationRuleError wraps a failure of a single delegation rule. It is
// surfaced as a warning and never rolls back the completed parent task.
type DelegationRuleError struct {
	OwnerID      uuid.UUID
	IncomingType string
	Reason       string
}

func (e *DelegationRuleError) Error() string {
	return fmt.Sprintf("delegation rule (%s, %s): %s", e.OwnerID, e.IncomingType, e.Reason)
}
