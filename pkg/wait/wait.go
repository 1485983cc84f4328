// Package wait provides a cancellable fixed-interval poll.
package wait

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a bounded poll gives up.
var ErrTimeout = errors.New("wait: condition not met before limit")

// Policy controls a poll. The zero MaxAttempts and zero Deadline mean the
// poll is unbounded and only stops when the condition holds or the context
// ends.
type Policy struct {
	Interval    time.Duration // Delay between checks
	MaxAttempts int           // 0 = unlimited
	Deadline    time.Duration // 0 = none; measured from the first check
}

// Every returns an unbounded policy with the given interval.
func Every(interval time.Duration) Policy {
	return Policy{Interval: interval}
}

// WithMaxAttempts returns a copy of p limited to n checks.
func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

// WithDeadline returns a copy of p limited to d total wait.
func (p Policy) WithDeadline(d time.Duration) Policy {
	p.Deadline = d
	return p
}

// Bounded reports whether the policy can time out.
func (p Policy) Bounded() bool {
	return p.MaxAttempts > 0 || p.Deadline > 0
}

// Until checks cond immediately and then once per interval until it returns
// true. It returns the number of checks made. The error is ctx.Err() on
// cancellation or ErrTimeout when a bound is hit.
func Until(ctx context.Context, p Policy, cond func() bool) (int, error) {
	start := time.Now()
	attempts := 0

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		attempts++
		if cond() {
			return attempts, nil
		}

		if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
			return attempts, ErrTimeout
		}
		if p.Deadline > 0 && time.Since(start)+p.Interval > p.Deadline {
			return attempts, ErrTimeout
		}

		timer.Reset(p.Interval)
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-timer.C:
		}
	}
}
