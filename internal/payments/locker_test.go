package payments

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	l := newLocalLocker()
	release, err := l.Lock(context.Background(), "order_01")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "order_01"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second lock to wait, got %v", err)
	}

	other, err := l.Lock(context.Background(), "order_02")
	if err != nil {
		t.Fatalf("other key should not block: %v", err)
	}
	_ = other(context.Background())

	_ = release(context.Background())
	_ = release(context.Background())

	again, err := l.Lock(context.Background(), "order_01")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	_ = again(context.Background())

	if len(l.slots) != 0 {
		t.Fatalf("expected slots to be cleaned up, got %d", len(l.slots))
	}
}
