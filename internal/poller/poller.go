// Package poller provides a cancellable recurring-check primitive. It
// runs a check immediately and then on a fixed interval until the check
// reports completion, an error policy trips, a maximum attempt count is
// reached, or the poller is cancelled. Checks never overlap: a slow
// check delays the next tick instead of running concurrently with it.
package poller

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Result is the tri-state outcome of a single check. A check returns
// Pending to keep polling, or Done to stop. Errors are reported
// alongside the result; a Done with a non-nil error stops the poller
// and records the error as its final outcome.
type Result int

const (
	Pending Result = iota
	Done
)

// CheckFunc is invoked once per tick. It must honor ctx cancellation.
type CheckFunc func(ctx context.Context) (Result, error)

// Errors reported by Err after the poller stops on its own.
var (
	ErrMaxAttempts    = errors.New("poller: maximum attempts reached")
	ErrTooManyErrors  = errors.New("poller: too many consecutive check errors")
	ErrAlreadyStarted = errors.New("poller: already started")
)

// Poller drives a CheckFunc on a fixed interval.
type Poller struct {
	interval       time.Duration
	check          CheckFunc
	maxAttempts    int // 0 = unlimited
	errorTolerance int // consecutive errors allowed; 0 = tolerate indefinitely

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	started  bool
	attempts int
	err      error
}

// Option configures a Poller.
type Option func(*Poller)

// WithMaxAttempts limits the total number of checks. Zero means
// unlimited, which is the default: the bound on the connect workflow is
// user-driven, not attempt-driven.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) { p.maxAttempts = n }
}

// WithErrorTolerance stops the poller after n consecutive check errors.
// Zero (the default) tolerates errors indefinitely; they are logged and
// polling continues. Use 1 for stop-on-first-error.
func WithErrorTolerance(n int) Option {
	return func(p *Poller) { p.errorTolerance = n }
}

// New creates a poller. It does nothing until Start is called.
func New(interval time.Duration, check CheckFunc, opts ...Option) *Poller {
	p := &Poller{
		interval: interval,
		check:    check,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling in the background. The first check runs
// immediately. Start returns ErrAlreadyStarted on a second call.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
	return nil
}

// Stop cancels the poller. It is safe to call multiple times and from
// any goroutine. After Stop returns, at most the currently in-flight
// check finishes; no further checks are dispatched.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Done is closed once the polling loop has fully exited.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Err reports why the poller stopped: nil after a successful Done check
// or cancellation, ErrMaxAttempts/ErrTooManyErrors when a policy
// tripped, or the final check's error.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Attempts returns how many checks have run so far.
func (p *Poller) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	consecutiveErrors := 0
	for {
		// Cancellation wins over dispatching another check.
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		result, err := p.check(ctx)

		p.mu.Lock()
		p.attempts++
		attempts := p.attempts
		p.mu.Unlock()

		if result == Done {
			p.setErr(err)
			return
		}

		if err != nil {
			consecutiveErrors++
			log.Printf("poller: check %d failed: %v", attempts, err)
			if p.errorTolerance > 0 && consecutiveErrors >= p.errorTolerance {
				p.setErr(ErrTooManyErrors)
				return
			}
		} else {
			consecutiveErrors = 0
		}

		if p.maxAttempts > 0 && attempts >= p.maxAttempts {
			p.setErr(ErrMaxAttempts)
			return
		}

		// The timer starts after the check returns, so a slow check
		// delays the next tick rather than overlapping it.
		timer := time.NewTimer(p.interval)
		select {
		case <-p.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Poller) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}
