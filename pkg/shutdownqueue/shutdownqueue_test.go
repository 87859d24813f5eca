package shutdownqueue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func reset() {
	q.mu.Lock()
	q.tasks = nil
	q.closed = false
	q.mu.Unlock()
}

func TestShutdown_LIFOOrder(t *testing.T) {
	reset()

	var order []int

	for i := 1; i <= 3; i++ {
		i := i
		Add(func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	err := Shutdown(context.Background())
	if err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	want := []int{3, 2, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order mismatch: want %v, got %v", want, order)
		}
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	reset()

	runs := 0
	Add(func(context.Context) error {
		runs++
		return nil
	})

	_ = Shutdown(context.Background())
	_ = Shutdown(context.Background())

	if runs != 1 {
		t.Fatalf("task ran %d times, want 1", runs)
	}
}

func TestShutdown_AggregatesErrors(t *testing.T) {
	reset()

	errBoom := errors.New("boom")
	Add(func(context.Context) error { return errBoom })
	Add(func(context.Context) error { panic("kaboom") })

	err := Shutdown(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("want errBoom in aggregate, got %v", err)
	}
}

func TestShutdown_StopsOnContextCancel(t *testing.T) {
	reset()

	ran := false
	Add(func(context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := Shutdown(ctx)
	if err == nil {
		t.Fatalf("want context error")
	}
	if ran {
		t.Fatalf("task should have been skipped after cancel")
	}
}

func TestAdd_AfterShutdownIgnored(t *testing.T) {
	reset()

	_ = Shutdown(context.Background())

	ran := false
	Add(func(context.Context) error {
		ran = true
		return nil
	})

	_ = Shutdown(context.Background())
	if ran {
		t.Fatalf("task added after shutdown must not run")
	}
}
