package queue

import (
	"context"
	"time"
)

// Task is a named unit of work with positional string arguments.
type Task struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Args       []string  `json:"args"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Arg returns the i-th argument or an empty string.
func (t Task) Arg(i int) string {
	if i < 0 || i >= len(t.Args) {
		return ""
	}
	return t.Args[i]
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetry
	OutcomeFail
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Result tells the worker pool what to do with a finished task.
type Result struct {
	Outcome Outcome
	Err     error
}

// Done marks the task as finished. Swallowed conditions such as a missing
// record are reported this way too.
func Done() Result {
	return Result{Outcome: OutcomeSuccess}
}

// Retry asks the pool to run the task again according to its RetryPolicy.
func Retry(err error) Result {
	return Result{Outcome: OutcomeRetry, Err: err}
}

// Fail ends the task without further attempts.
func Fail(err error) Result {
	return Result{Outcome: OutcomeFail, Err: err}
}

type Handler func(ctx context.Context, task Task) Result

// RetryPolicy bounds how often and how soon a failed task is re-run.
type RetryPolicy struct {
	MaxRetries  int
	Delay       time.Duration
	Exponential bool
	MaxDelay    time.Duration
}

// NextDelay returns the wait before retry number attempt (1-based).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}
	if !p.Exponential || attempt <= 1 {
		return p.capped(delay)
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return p.capped(delay)
}

func (p RetryPolicy) capped(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Allows reports whether a task that has already run attempt+1 times may run again.
func (p RetryPolicy) Allows(attempt int) bool {
	return attempt < p.MaxRetries
}
