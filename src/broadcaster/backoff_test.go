package broadcaster

import (
	"testing"
	"time"
)

func TestBackoffSequence(t *testing.T) {
	b := NewBackoff(5*time.Second, 300*time.Second)

	want := []time.Duration{5, 10, 20, 40, 80, 160, 300, 300}
	for i, w := range want {
		if got := b.Next(); got != w*time.Second {
			t.Fatalf("attempt %d mismatch. got=%s want=%s", i+1, got, w*time.Second)
		}
	}

	b.Reset()
	if got := b.Next(); got != 5*time.Second {
		t.Fatalf("after reset mismatch. got=%s want=5s", got)
	}
	if got := b.Next(); got != 10*time.Second {
		t.Fatalf("after reset second mismatch. got=%s want=10s", got)
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff(0, 0)
	if b.Initial != DefaultInitialBackoff || b.Max != DefaultMaxBackoff {
		t.Fatalf("unexpected defaults %+v", b)
	}
}
