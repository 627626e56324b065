package service

import (
	"context"
	"testing"
	"time"

	"restchain/internal/model"

	"github.com/google/uuid"
)

func TestGetStatistics(t *testing.T) {
	tasks := newFakeTaskRepo()
	svc := NewStatsService(tasks)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	add := func(status string, start, complete *time.Time) {
		_ = tasks.Create(context.Background(), &model.Task{
			ID:             uuid.New(),
			Status:         status,
			StartExecution: start,
			CompleteBefore: complete,
		})
	}

	add(model.TaskStatusCreated, &past, nil)            // late to start
	add(model.TaskStatusCreated, &future, &future)      // on time
	add(model.TaskStatusExecutionStarted, nil, &past)   // late to complete
	add(model.TaskStatusExecuted, &past, &past)         // terminal, deadlines ignored
	add(model.TaskStatusCompleted, nil, &past)          // completed, no longer counted late

	stats, err := svc.GetStatistics(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.CountsByStatus[model.TaskStatusCreated] != 2 {
		t.Errorf("created count = %d, want 2", stats.CountsByStatus[model.TaskStatusCreated])
	}
	if stats.LateStart != 1 {
		t.Errorf("late start = %d, want 1", stats.LateStart)
	}
	if stats.LateComplete != 1 {
		t.Errorf("late complete = %d, want 1", stats.LateComplete)
	}
	if stats.GeneratedAt.IsZero() {
		t.Error("generated_at must be set")
	}
}
