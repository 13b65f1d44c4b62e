package shutdown

import (
	"errors"
	"testing"
	"time"
)

// TestOperationTracker tests start, done and close semantics.
func TestOperationTracker(t *testing.T) {
	tr := NewOperationTracker()

	a, ok := tr.Start("a")
	if !ok {
		t.Fatal("Start() on open tracker failed")
	}
	b, _ := tr.Start("b")
	if tr.ActiveCount() != 2 {
		t.Errorf("ActiveCount() = %d, want 2", tr.ActiveCount())
	}
	if ops := tr.Active(); ops[0].Name != "a" || ops[1].Name != "b" {
		t.Errorf("Active() = %+v", ops)
	}

	tr.Done(a)
	tr.Done(a)
	if tr.ActiveCount() != 1 {
		t.Errorf("ActiveCount() after double Done = %d, want 1", tr.ActiveCount())
	}

	if err := tr.Wait(10 * time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("Wait() = %v, want ErrWaitTimeout", err)
	}

	tr.Close()
	if _, ok := tr.Start("c"); ok {
		t.Error("Start() after Close should fail")
	}

	tr.Done(b)
	if err := tr.Wait(time.Second); err != nil {
		t.Errorf("Wait() = %v", err)
	}
}
