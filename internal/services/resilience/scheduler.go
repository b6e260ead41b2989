package resilience

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/topten/internal/dependencies/clock"
	"github.com/mcoot/topten/internal/model"
)

// TaskID names a scheduled task so it can be replaced or cancelled
type TaskID string

// RemovalTaskID is the ID of the task that purges a disconnected player
func RemovalTaskID(code model.RoomCode, playerID model.PlayerID) TaskID {
	return TaskID(string(code) + ":" + string(playerID))
}

type scheduledTask struct {
	timer clockwork.Timer
	gen   uint64
}

// Scheduler runs one-shot tasks after a delay. Scheduling an ID that is
// already pending replaces the earlier task.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu    sync.Mutex
	tasks map[TaskID]scheduledTask
	gen   uint64
}

// NewScheduler creates a Scheduler driven by the given clock
func NewScheduler(clk clock.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:  clk,
		logger: logger.With(slog.String("component", "scheduler")),
		tasks:  make(map[TaskID]scheduledTask),
	}
}

// Schedule runs fn after d unless the task is cancelled or replaced first
func (s *Scheduler) Schedule(id TaskID, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[id]; ok {
		existing.timer.Stop()
		s.logger.Debug("replaced scheduled task", slog.String("task_id", string(id)))
	}

	s.gen++
	gen := s.gen
	timer := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.tasks[id]
		if !ok || current.gen != gen {
			s.mu.Unlock()
			return
		}
		delete(s.tasks, id)
		s.mu.Unlock()

		s.logger.Debug("running scheduled task", slog.String("task_id", string(id)))
		fn()
	})
	s.tasks[id] = scheduledTask{timer: timer, gen: gen}

	s.logger.Debug("scheduled task",
		slog.String("task_id", string(id)),
		slog.Duration("delay", d),
	)
}

// Cancel stops a pending task. It reports whether one was pending.
func (s *Scheduler) Cancel(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	task.timer.Stop()
	delete(s.tasks, id)
	s.logger.Debug("cancelled scheduled task", slog.String("task_id", string(id)))
	return true
}

// CancelRoom stops every pending task for a room
func (s *Scheduler) CancelRoom(code model.RoomCode) int {
	prefix := string(code) + ":"

	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := 0
	for id, task := range s.tasks {
		if strings.HasPrefix(string(id), prefix) {
			task.timer.Stop()
			delete(s.tasks, id)
			cancelled++
		}
	}
	return cancelled
}

// Pending reports whether a task is waiting to run
func (s *Scheduler) Pending(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

// Len returns the number of pending tasks
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels all pending tasks
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, task := range s.tasks {
		task.timer.Stop()
		delete(s.tasks, id)
	}
}
