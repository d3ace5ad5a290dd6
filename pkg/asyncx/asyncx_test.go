package asyncx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDeferredResolvesOnce(t *testing.T) {
	d := NewDeferred[string]()
	d.Resolve("first")
	d.Resolve("second")
	d.Reject(errors.New("too late"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		v, err := d.Await(ctx)
		if err != nil {
			t.Fatalf("await %d: unexpected error %v", i, err)
		}
		if v != "first" {
			t.Errorf("await %d: got %q, want the first settlement to win", i, v)
		}
	}
}

func TestDeferredAwaitHonorsContext(t *testing.T) {
	d := NewDeferred[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := d.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context deadline", err)
	}
}

func TestPoolPreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	got, err := Pool(context.Background(), 2, items, func(_ context.Context, n int) (int, error) {
		return n * 10, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != items[i]*10 {
			t.Errorf("result[%d] = %d, want %d", i, v, items[i]*10)
		}
	}
}

func TestPoolReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Pool(context.Background(), 3, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want boom", err)
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), 5, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("not yet")
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("got (%q, %v), want ok", v, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	last := errors.New("still failing")
	calls := 0
	_, err := Retry(context.Background(), 3, func(context.Context) (int, error) {
		calls++
		return 0, last
	})
	if !errors.Is(err, last) || calls != 3 {
		t.Errorf("got (%v, %d calls), want last error after 3 calls", err, calls)
	}
}
