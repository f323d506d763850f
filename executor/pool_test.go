package executor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c360studio/toolbridge/executor"
)

func TestPoolRunsTasksConcurrently(t *testing.T) {
	pool := executor.NewPool(context.Background(), 4, nil)

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		pool.Go(func() {
			time.Sleep(5 * time.Millisecond)
			done.Add(1)
		})
	}

	deadline := time.Now().Add(2 * time.Second)
	for done.Load() < 10 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := done.Load(); got != 10 {
		t.Fatalf("expected all 10 tasks to complete, got %d", got)
	}
}

func TestPoolGoErrJoinsViaWait(t *testing.T) {
	pool := executor.NewPool(context.Background(), 2, nil)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		pool.GoErr(func() error {
			ran.Add(1)
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := ran.Load(); got != 5 {
		t.Fatalf("expected 5 tasks to have run, got %d", got)
	}
}
