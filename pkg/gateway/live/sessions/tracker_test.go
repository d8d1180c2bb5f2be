package sessions

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTracker_RegisterUnregister_CountAndWait(t *testing.T) {
	tr := NewTracker(0)
	if tr.Count() != 0 {
		t.Fatalf("initial count=%d, want 0", tr.Count())
	}

	u1, _ := tr.Register("s1", Handle{})
	u2, _ := tr.Register("s2", Handle{})
	if tr.Count() != 2 {
		t.Fatalf("count=%d, want 2", tr.Count())
	}

	u1()
	u1()
	if tr.Count() != 1 {
		t.Fatalf("count=%d, want 1", tr.Count())
	}

	u2()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if ok := tr.Wait(ctx); !ok {
		t.Fatalf("expected Wait to return true")
	}
}

func TestTracker_LimitRejectsAndFreesSlot(t *testing.T) {
	tr := NewTracker(1)
	u1, ok := tr.Register("s1", Handle{})
	if !ok {
		t.Fatalf("first register rejected")
	}
	if _, ok := tr.Register("s2", Handle{}); ok {
		t.Fatalf("second register admitted over limit")
	}
	if tr.Count() != 1 {
		t.Fatalf("count=%d, want 1", tr.Count())
	}
	u1()
	if _, ok := tr.Register("s2", Handle{}); !ok {
		t.Fatalf("register after release rejected")
	}
}

func TestTracker_WaitTimesOutWhileRegistered(t *testing.T) {
	tr := NewTracker(0)
	unregister, _ := tr.Register("s1", Handle{})
	defer unregister()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if tr.Wait(ctx) {
		t.Fatalf("expected Wait to time out")
	}
}

func TestTracker_CancelAndWarnAll(t *testing.T) {
	tr := NewTracker(0)
	var cancels, warns atomic.Int64
	tr.Register("s1", Handle{
		Cancel: func() { cancels.Add(1) },
		Warn: func(code, message string) error {
			warns.Add(1)
			return nil
		},
	})
	tr.Register("s2", Handle{
		Cancel: func() { cancels.Add(1) },
		Warn: func(code, message string) error {
			warns.Add(1)
			return errors.New("client gone")
		},
	})

	if sent := tr.WarnAll("draining", "gateway is shutting down"); sent != 2 {
		t.Fatalf("sent=%d, want 2", sent)
	}
	if n := tr.CancelAll(); n != 2 {
		t.Fatalf("canceled=%d, want 2", n)
	}
	if cancels.Load() != 2 || warns.Load() != 2 {
		t.Fatalf("cancels=%d warns=%d", cancels.Load(), warns.Load())
	}
}

func TestTracker_ListOrdersByStart(t *testing.T) {
	tr := NewTracker(0)
	tr.Register("b", Handle{})
	time.Sleep(2 * time.Millisecond)
	tr.Register("a", Handle{})

	list := tr.List()
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("list=%+v", list)
	}
}
