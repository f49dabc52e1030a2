// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskRunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())

	sched := New(Task{
		Name:  "counter",
		Every: 10 * time.Millisecond,
		Run: func(context.Context) error {
			if runs.Add(1) >= 3 {
				cancel()
			}
			return nil
		},
	})
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int64(3))
}

func TestFailingTaskKeepsTicking(t *testing.T) {
	var runs atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())

	sched := New(Task{
		Name:  "flaky",
		Every: 10 * time.Millisecond,
		Run: func(context.Context) error {
			if runs.Add(1) >= 2 {
				cancel()
			}
			return errors.New("transient")
		},
	})
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int64(2))
}
