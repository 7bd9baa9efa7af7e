package broadcaster

import "time"

const (
	DefaultInitialBackoff = 5 * time.Second
	DefaultMaxBackoff     = 300 * time.Second
)

// Backoff doubles the reconnect delay on each consecutive failure up to Max.
// It is not safe for concurrent use; the run loop owns it.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	current time.Duration
}

func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if max <= 0 {
		max = DefaultMaxBackoff
	}
	if max < initial {
		max = initial
	}
	return &Backoff{Initial: initial, Max: max, current: initial}
}

// Next returns the delay to wait now and doubles the following one.
func (b *Backoff) Next() time.Duration {
	if b.current <= 0 {
		b.current = b.Initial
	}
	d := b.current
	next := b.current * 2
	if next > b.Max {
		next = b.Max
	}
	b.current = next
	return d
}

// Reset goes back to Initial. Called after every successful connect.
func (b *Backoff) Reset() {
	b.current = b.Initial
}
