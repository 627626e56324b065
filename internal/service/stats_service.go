package service

import (
	"context"
	"time"

	"restchain/internal/repository"
)

// TaskStatistics summarizes the current workload.
type TaskStatistics struct {
	CountsByStatus map[string]int64 `json:"counts_by_status"`
	LateStart      int64            `json:"late_start"`
	LateComplete   int64            `json:"late_complete"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

type StatsService interface {
	GetStatistics(ctx context.Context) (TaskStatistics, error)
}

type statsService struct {
	tasks repository.TaskRepository
}

func NewStatsService(tasks repository.TaskRepository) StatsService {
	return &statsService{tasks: tasks}
}

// GetStatistics evaluates lateness lazily against a single clock read; no
// background timers ever flag tasks late.
func (s *statsService) GetStatistics(ctx context.Context) (TaskStatistics, error) {
	now := time.Now().UTC()

	counts, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return TaskStatistics{}, err
	}
	lateStart, lateComplete, err := s.tasks.CountLate(ctx, now)
	if err != nil {
		return TaskStatistics{}, err
	}

	return TaskStatistics{
		CountsByStatus: counts,
		LateStart:      lateStart,
		LateComplete:   lateComplete,
		GeneratedAt:    now,
	}, nil
}
