package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TaskStatus enum constants. The status graph is:
// created -> execution_started -> (completed | failed) ;
// completed -> (inspected | rejected) ; inspected -> executed.
// executed, failed and rejected are terminal.
const (
	TaskStatusCreated          = "created"
	TaskStatusExecutionStarted = "execution_started"
	TaskStatusCompleted        = "completed"
	TaskStatusFailed           = "failed"
	TaskStatusRejected         = "rejected"
	TaskStatusInspected        = "inspected"
	TaskStatusExecuted         = "executed"
)

// taskTransitions holds the allowed edges of the status graph.
var taskTransitions = map[string][]string{
	TaskStatusCreated:          {TaskStatusExecutionStarted},
	TaskStatusExecutionStarted: {TaskStatusCompleted, TaskStatusFailed},
	TaskStatusCompleted:        {TaskStatusInspected, TaskStatusRejected},
	TaskStatusInspected:        {TaskStatusExecuted},
}

// CanTransition reports whether the status graph allows from -> to.
func CanTransition(from, to string) bool {
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status admits no further transitions.
func IsTerminalStatus(status string) bool {
	return len(taskTransitions[status]) == 0
}

// Task is the unit of financially responsible work. It points at exactly one
// TaskTarget and names three actors: who filed it, who must do it, and who
// must approve it. Tasks are never created backdated and never physically
// deleted; terminal statuses take the place of deletion.
type Task struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TypeID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"type_id"`
	Type       TaskType   `gorm:"foreignKey:TypeID" json:"-"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	Comment    string     `gorm:"type:text" json:"comment"`
	Status     string     `gorm:"type:varchar(20);not null;index" json:"status"`
	TargetID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"target_id"`
	Target     TaskTarget `gorm:"foreignKey:TargetID" json:"-"`
	AuthorID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	Author     Actor      `gorm:"foreignKey:AuthorID" json:"-"`
	ExecutorID uuid.UUID  `gorm:"type:uuid;not null;index" json:"executor_id"`
	Executor   Actor      `gorm:"foreignKey:ExecutorID" json:"-"`
	InspectorID uuid.UUID `gorm:"type:uuid;not null;index" json:"inspector_id"`
	Inspector  Actor      `gorm:"foreignKey:InspectorID" json:"-"`

	Created time.Time `gorm:"not null;index" json:"created"` // set server-side, immutable
	Changed bool      `gorm:"not null;default:false" json:"changed"`

	StartExecution     *time.Time `gorm:"index" json:"start_execution"`
	ExecutionStarted   *time.Time `gorm:"index" json:"execution_started"`
	FailOnLateStart    bool       `gorm:"not null;default:false" json:"fail_on_late_start"`
	CompleteBefore     *time.Time `json:"complete_before"`
	Completed          *time.Time `json:"completed"`
	FailOnLateComplete bool       `gorm:"not null;default:false" json:"fail_on_late_complete"`
	Approved           *time.Time `gorm:"index" json:"approved"`
}

// IsStartedLate reports whether the task missed its start deadline, as of
// now. Callers must read the clock once per transition and pass the same
// value to every check.
func (t *Task) IsStartedLate(now time.Time) bool {
	if t.StartExecution == nil {
		return false
	}
	if t.ExecutionStarted == nil {
		return !now.Before(*t.StartExecution)
	}
	return t.ExecutionStarted.After(*t.StartExecution)
}

// IsCompletedLate is the completion counterpart of IsStartedLate.
func (t *Task) IsCompletedLate(now time.Time) bool {
	if t.CompleteBefore == nil {
		return false
	}
	if t.Completed == nil {
		return !now.Before(*t.CompleteBefore)
	}
	return t.Completed.After(*t.CompleteBefore)
}

// SubTask is a labeled edge (parent, child, priority) in the decomposition
// DAG. Equal priorities form a bunch that runs in parallel; bunches run in
// increasing priority order. A task may never be its own ancestor.
type SubTask struct {
	ParentID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"parent_id"`
	ChildID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"child_id"`
	Priority  int       `gorm:"not null;default:0" json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// BunchSubTasks groups sibling edges by priority and returns the bunches in
// increasing priority order. This is a topological layering by priority, not
// a full DAG schedule: order inside a bunch is unspecified.
func BunchSubTasks(subs []SubTask) [][]SubTask {
	if len(subs) == 0 {
		return nil
	}
	sorted := make([]SubTask, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	var bunches [][]SubTask
	var bunch []SubTask
	for _, s := range sorted {
		if len(bunch) > 0 && bunch[len(bunch)-1].Priority != s.Priority {
			bunches = append(bunches, bunch)
			bunch = nil
		}
		bunch = append(bunch, s)
	}
	return append(bunches, bunch)
}
