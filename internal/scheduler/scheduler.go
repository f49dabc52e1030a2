// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task is one recurring background pass.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler drives the background passes: each task runs once at startup
// and then on its own ticker until the context is cancelled. A failing pass
// is logged and retried on the next tick.
type Scheduler struct {
	tasks []Task
}

func New(tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks}
}

// Run blocks until ctx is cancelled and every task goroutine has stopped.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, task := range s.tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			s.loop(ctx, task)
		}(task)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	runOnce := func() {
		if err := task.Run(ctx); err != nil {
			log.Printf("task %s: %v", task.Name, err)
		}
	}

	runOnce()
	ticker := time.NewTicker(task.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
