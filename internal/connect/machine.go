// Package connect drives a single "link this channel" attempt: create
// the project, obtain the bot deep-link, open it, then converge on
// confirmation by polling the project until the out-of-band Telegram
// action completes. Creation is a one-shot, non-idempotent side effect
// while confirmation is a safely repeatable read, so the two are kept
// in separate phases and creation is gated behind a state transition.
package connect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oneclicksub/creatorctl/internal/models"
	"github.com/oneclicksub/creatorctl/internal/platform"
	"github.com/oneclicksub/creatorctl/internal/poller"
)

// Phase identifies where a connection attempt currently is.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCreating   Phase = "creating"
	PhaseLinkIssued Phase = "link_issued"
	PhaseAwaiting   Phase = "awaiting_confirmation"
	PhaseConnected  Phase = "connected"
	PhaseFailed     Phase = "failed"
	PhaseCancelled  Phase = "cancelled"
)

// Terminal reports whether the phase is an end state.
func (p Phase) Terminal() bool {
	return p == PhaseConnected || p == PhaseFailed || p == PhaseCancelled
}

var (
	ErrAlreadyStarted = errors.New("connect: attempt already started")
	ErrNotAwaiting    = errors.New("connect: no confirmation pending")
	ErrCheckInFlight  = errors.New("connect: a status check is already in flight")
	ErrNoProject      = errors.New("connect: no project created yet")
)

// Client is the subset of the platform API the machine needs.
// *platform.Client satisfies it.
type Client interface {
	CreateProject(ctx context.Context, title string) (*models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	RequestConnectLink(ctx context.Context, projectID int64) (string, error)
}

// Attempt is the client-local, ephemeral record of one connection
// attempt. It is never persisted and dies with its Machine.
type Attempt struct {
	ID        string
	ProjectID int64
	Phase     Phase
	Status    string
	Link      string
	Err       error
	StartedAt time.Time
}

// Machine owns the lifecycle of a single connection attempt.
type Machine struct {
	client      Client
	openLink    func(url string) error
	interval    time.Duration
	onConnected func(*models.Project)

	mu       sync.Mutex
	attempt  Attempt
	poller   *poller.Poller
	checking bool

	done       chan struct{}
	doneClosed bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithOpener sets the side effect that hands the deep-link to the
// external application. It is invoked exactly once per attempt.
func WithOpener(open func(url string) error) Option {
	return func(m *Machine) { m.openLink = open }
}

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(m *Machine) { m.interval = d }
}

// WithOnConnected registers a callback fired once the channel is
// confirmed connected, e.g. to navigate away.
func WithOnConnected(fn func(*models.Project)) Option {
	return func(m *Machine) { m.onConnected = fn }
}

// New creates a machine in the Idle phase.
func New(client Client, opts ...Option) *Machine {
	m := &Machine{
		client:   client,
		openLink: func(string) error { return nil },
		interval: 3 * time.Second,
		attempt: Attempt{
			ID:    uuid.NewString(),
			Phase: PhaseIdle,
		},
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the attempt: create the project, request the deep-link,
// open it, and arm polling. It may be called only once per machine;
// re-running a failed attempt means building a fresh machine, which
// keeps project creation at most-once per attempt. A deep-link failure
// leaves the created project in place so RetryLink can reuse it.
func (m *Machine) Start(ctx context.Context, title string) error {
	m.mu.Lock()
	if m.attempt.Phase != PhaseIdle {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.attempt.Phase = PhaseCreating
	m.attempt.StartedAt = time.Now()
	m.mu.Unlock()

	project, err := m.client.CreateProject(ctx, title)
	if err != nil {
		m.fail(err)
		return err
	}

	m.mu.Lock()
	m.attempt.ProjectID = project.ID
	m.attempt.Status = project.LinkStatus()
	m.mu.Unlock()

	return m.issueLink(ctx, project.ID)
}

// RetryLink re-requests the deep-link for the already-created project
// after a deep-link failure. It reuses the existing project id instead
// of creating a second project.
func (m *Machine) RetryLink(ctx context.Context) error {
	m.mu.Lock()
	if m.attempt.ProjectID == 0 {
		m.mu.Unlock()
		return ErrNoProject
	}
	if m.attempt.Phase != PhaseFailed {
		m.mu.Unlock()
		return fmt.Errorf("connect: cannot retry link in phase %q", m.attempt.Phase)
	}
	projectID := m.attempt.ProjectID
	m.attempt.Phase = PhaseCreating
	m.attempt.Err = nil
	m.done = make(chan struct{})
	m.doneClosed = false
	m.mu.Unlock()

	return m.issueLink(ctx, projectID)
}

func (m *Machine) issueLink(ctx context.Context, projectID int64) error {
	link, err := m.client.RequestConnectLink(ctx, projectID)
	if err != nil {
		m.fail(err)
		return err
	}

	m.mu.Lock()
	m.attempt.Phase = PhaseLinkIssued
	m.attempt.Link = link
	m.mu.Unlock()

	// Opening the external app is best-effort; the link stays available
	// in the attempt snapshot if the handoff fails.
	if err := m.openLink(link); err != nil {
		log.Printf("connect: could not open deep-link: %v", err)
	}

	p := poller.New(m.interval, m.pollCheck)

	m.mu.Lock()
	m.attempt.Phase = PhaseAwaiting
	m.poller = p
	m.mu.Unlock()

	return p.Start(ctx)
}

// pollCheck is the recurring confirmation check. Transient failures are
// reported as pending so the poller tolerates them; fatal failures end
// the attempt.
func (m *Machine) pollCheck(ctx context.Context) (poller.Result, error) {
	project, err := m.client.GetProject(ctx, m.ProjectID())
	if err != nil {
		if platform.IsTransient(err) {
			return poller.Pending, err
		}
		m.fail(err)
		return poller.Done, err
	}
	if m.observe(project) {
		return poller.Done, nil
	}
	return poller.Pending, nil
}

// ManualCheck performs a user-initiated immediate status check. It uses
// the same evaluation as polling and never re-creates the project. The
// returned bool reports whether the channel is now connected; a false
// with nil error is the non-fatal "not yet linked" outcome and leaves
// polling untouched.
func (m *Machine) ManualCheck(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.attempt.Phase != PhaseAwaiting {
		connected := m.attempt.Phase == PhaseConnected
		m.mu.Unlock()
		return connected, ErrNotAwaiting
	}
	if m.checking {
		m.mu.Unlock()
		return false, ErrCheckInFlight
	}
	m.checking = true
	projectID := m.attempt.ProjectID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.checking = false
		m.mu.Unlock()
	}()

	project, err := m.client.GetProject(ctx, projectID)
	if err != nil {
		if platform.IsTransient(err) {
			// Transient; polling keeps running, the user may retry.
			return false, err
		}
		m.fail(err)
		return false, err
	}
	return m.observe(project), nil
}

// observe applies a freshly fetched project to the attempt. Both the
// poller and manual checks funnel through it, so there is a single
// source of truth for "is this connected". Last writer wins on the
// status field; both triggers read the same authoritative state.
func (m *Machine) observe(project *models.Project) bool {
	m.mu.Lock()
	if m.attempt.Phase.Terminal() {
		connected := m.attempt.Phase == PhaseConnected
		m.mu.Unlock()
		return connected
	}
	m.attempt.Status = project.LinkStatus()
	if !project.IsConnected() {
		m.mu.Unlock()
		return false
	}
	m.attempt.Phase = PhaseConnected
	p := m.poller
	m.signalDoneLocked()
	m.mu.Unlock()

	if p != nil {
		p.Stop()
	}
	if m.onConnected != nil {
		m.onConnected(project)
	}
	return true
}

// Cancel tears down the attempt. The created project, if any, stays
// pending server-side; no remote cleanup is performed. Cancelling an
// already-terminal machine only tears down the poller.
func (m *Machine) Cancel() {
	m.mu.Lock()
	if !m.attempt.Phase.Terminal() {
		m.attempt.Phase = PhaseCancelled
	}
	p := m.poller
	m.signalDoneLocked()
	m.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}

func (m *Machine) fail(err error) {
	m.mu.Lock()
	if !m.attempt.Phase.Terminal() {
		m.attempt.Phase = PhaseFailed
		m.attempt.Err = err
	}
	p := m.poller
	m.signalDoneLocked()
	m.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}

// signalDoneLocked closes the done channel once. Callers hold mu.
func (m *Machine) signalDoneLocked() {
	if !m.doneClosed {
		m.doneClosed = true
		close(m.done)
	}
}

// Done is closed once the attempt reaches a terminal phase.
func (m *Machine) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Snapshot returns a copy of the current attempt state.
func (m *Machine) Snapshot() Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// ProjectID returns the created project's id, or 0 before creation.
func (m *Machine) ProjectID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt.ProjectID
}
