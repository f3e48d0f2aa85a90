// Package replay drives a recorded action log against an executor under
// timing, variable and error-policy control.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivikasavnish/go-replay/pkg/action"
	"github.com/ivikasavnish/go-replay/pkg/events"
	"github.com/ivikasavnish/go-replay/pkg/executor"
)

// State is the replay machine state.
type State string

const (
	StateIdle      State = "idle"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// ErrorMode selects the run's reaction to a failed action.
type ErrorMode string

const (
	ErrorModeFail  ErrorMode = "fail"
	ErrorModeSkip  ErrorMode = "skip"
	ErrorModeRetry ErrorMode = "retry"
	ErrorModePause ErrorMode = "pause"
)

var (
	// ErrInvalidState is returned when an operation is not legal in the
	// current machine state.
	ErrInvalidState = errors.New("invalid replayer state")

	// ErrValidation is returned for malformed start or configuration
	// arguments.
	ErrValidation = errors.New("validation failed")
)

func validErrorMode(m ErrorMode) bool {
	switch m {
	case ErrorModeFail, ErrorModeSkip, ErrorModeRetry, ErrorModePause:
		return true
	}
	return false
}

// Progress is the running counter set of one run.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Retried   int `json:"retried"`
}

// ResultStatus classifies one result-log entry.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
	ResultSkipped ResultStatus = "skipped"
)

// Result is one per-action entry in the run's result log.
type Result struct {
	Index    int           `json:"index"`
	ActionID string        `json:"actionId"`
	Kind     action.Kind   `json:"kind"`
	Status   ResultStatus  `json:"status"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

// Options configures one replay run.
type Options struct {
	Speed         float64
	ErrorMode     ErrorMode
	MaxRetries    int
	ActionTimeout time.Duration
	StepMode      bool
	Variables     map[string]string
	StartIndex    int
}

const (
	defaultSpeed         = 1.0
	maxSpeed             = 10.0
	defaultMaxRetries    = 3
	defaultActionTimeout = 30 * time.Second
)

// Replayer is the replay state machine. One action is in flight at a time;
// control methods are safe to call from any goroutine.
type Replayer struct {
	mu     sync.Mutex
	state  State
	exec   executor.Executor
	hub    *events.Hub
	logger *log.Logger

	// backoff computes the wait before retry n (1-based). Injectable for
	// tests.
	backoff func(attempt int) time.Duration

	rec           *action.Recording
	cursor        int
	speed         float64
	errorMode     ErrorMode
	maxRetries    int
	actionTimeout time.Duration
	stepMode      bool
	vars          map[string]string

	progress   Progress
	results    []Result
	startedAt  time.Time
	dispatched bool

	runCtx    context.Context
	runCancel context.CancelFunc
	resumeCh  chan struct{}
	pauseCh   chan struct{}
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithLogger sets a custom logger for the replayer.
func WithLogger(logger *log.Logger) Option {
	return func(r *Replayer) { r.logger = logger }
}

// New creates an idle replayer dispatching to exec.
func New(exec executor.Executor, opts ...Option) *Replayer {
	r := &Replayer{
		state:   StateIdle,
		exec:    exec,
		hub:     events.NewHub(),
		logger:  log.New(io.Discard, "", 0),
		backoff: func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events exposes the replayer's subscription hub.
func (r *Replayer) Events() *events.Hub { return r.hub }

// State returns the current machine state.
func (r *Replayer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Progress returns a snapshot of the running counters.
func (r *Replayer) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Cursor returns the index of the next action to execute.
func (r *Replayer) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Results returns a copy of the per-action result log so far.
func (r *Replayer) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Start begins a run over rec. Fails with ErrInvalidState while a run is
// active and with ErrValidation for out-of-range options. Unless StepMode is
// set, execution begins immediately from StartIndex.
func (r *Replayer) Start(rec *action.Recording, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StatePlaying || r.state == StatePaused {
		return fmt.Errorf("%w: a run is already active (%s)", ErrInvalidState, r.state)
	}
	if rec == nil || len(rec.Actions) == 0 {
		return fmt.Errorf("%w: recording has no actions", ErrValidation)
	}

	speed := opts.Speed
	if speed == 0 {
		speed = defaultSpeed
	}
	if speed <= 0 || speed > maxSpeed {
		return fmt.Errorf("%w: speed %v outside (0, %v]", ErrValidation, speed, maxSpeed)
	}
	mode := opts.ErrorMode
	if mode == "" {
		mode = ErrorModePause
	}
	if !validErrorMode(mode) {
		return fmt.Errorf("%w: unknown error mode %q", ErrValidation, mode)
	}
	if opts.StartIndex < 0 || opts.StartIndex >= len(rec.Actions) {
		return fmt.Errorf("%w: start index %d outside recording of %d actions", ErrValidation, opts.StartIndex, len(rec.Actions))
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := opts.ActionTimeout
	if timeout == 0 {
		timeout = defaultActionTimeout
	}

	// Option variables win over the recording's on key collision.
	vars := make(map[string]string, len(rec.Variables)+len(opts.Variables))
	for k, v := range rec.Variables {
		vars[k] = v
	}
	for k, v := range opts.Variables {
		vars[k] = v
	}

	r.rec = rec.Clone()
	r.cursor = opts.StartIndex
	r.speed = speed
	r.errorMode = mode
	r.maxRetries = maxRetries
	r.actionTimeout = timeout
	r.stepMode = opts.StepMode
	r.vars = vars
	r.progress = Progress{Total: len(rec.Actions)}
	r.results = nil
	r.startedAt = time.Now()
	r.dispatched = false
	r.runCtx, r.runCancel = context.WithCancel(context.Background())
	r.resumeCh = make(chan struct{})
	r.pauseCh = make(chan struct{})
	r.state = StatePlaying

	r.hub.Publish(StartedEvent{RecordingID: rec.ID, Total: len(rec.Actions), StartIndex: opts.StartIndex})
	r.logger.Printf("replay started: %s (%d actions from index %d)", rec.ID, len(rec.Actions), opts.StartIndex)

	if !r.stepMode {
		go r.run()
	}
	return nil
}

// Stop ends the run from any non-idle state and cancels its pending timers
// and in-flight dispatch.
func (r *Replayer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePlaying && r.state != StatePaused {
		return fmt.Errorf("%w: stop requires an active run, machine is %s", ErrInvalidState, r.state)
	}
	r.state = StateStopped
	r.runCancel()
	r.hub.Publish(StoppedEvent{Cursor: r.cursor, Progress: r.progress})
	r.logger.Printf("replay stopped at action %d", r.cursor)
	return nil
}

// Pause suspends the run before its next action.
func (r *Replayer) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePlaying {
		return fmt.Errorf("%w: pause requires playing, machine is %s", ErrInvalidState, r.state)
	}
	r.state = StatePaused
	close(r.pauseCh)
	r.pauseCh = make(chan struct{})
	r.hub.Publish(PausedEvent{Cursor: r.cursor})
	return nil
}

// Resume continues a paused run from the current cursor.
func (r *Replayer) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePaused {
		return fmt.Errorf("%w: resume requires paused, machine is %s", ErrInvalidState, r.state)
	}
	r.state = StatePlaying
	close(r.resumeCh)
	r.resumeCh = make(chan struct{})
	r.hub.Publish(ResumedEvent{Cursor: r.cursor})
	return nil
}

// StepNext executes exactly one action under the run's timing, variable and
// error-policy rules. Only valid for step-mode runs.
func (r *Replayer) StepNext() error {
	r.mu.Lock()
	if !r.stepMode {
		r.mu.Unlock()
		return fmt.Errorf("%w: stepNext requires a step-mode run", ErrInvalidState)
	}
	if r.state == StatePaused {
		// A step out of paused (operator pause or pause-on-error)
		// implicitly resumes for this one action.
		r.state = StatePlaying
	}
	if r.state != StatePlaying {
		r.mu.Unlock()
		return fmt.Errorf("%w: stepNext requires an active run, machine is %s", ErrInvalidState, r.state)
	}
	if r.cursor >= len(r.rec.Actions) {
		r.completeLocked()
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	r.executeCurrent()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StatePlaying && r.cursor >= len(r.rec.Actions) {
		r.completeLocked()
	}
	return nil
}

// SkipAction advances the cursor past the current action without executing
// it.
func (r *Replayer) SkipAction() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePlaying && r.state != StatePaused {
		return fmt.Errorf("%w: skip requires an active run, machine is %s", ErrInvalidState, r.state)
	}
	if r.cursor >= len(r.rec.Actions) {
		return fmt.Errorf("%w: cursor is past the last action", ErrInvalidState)
	}

	a := r.rec.Actions[r.cursor]
	r.results = append(r.results, Result{
		Index:    r.cursor,
		ActionID: a.ID,
		Kind:     a.Kind,
		Status:   ResultSkipped,
	})
	r.progress.Skipped++
	r.cursor++

	if r.cursor >= len(r.rec.Actions) && (r.stepMode || r.state == StatePaused) {
		// The background loop, when one exists and is running, notices
		// completion on its own.
		if r.state == StatePaused {
			r.state = StatePlaying
		}
		r.completeLocked()
	}
	return nil
}

// SetSpeed rescales future inter-action delays. Factor must be in (0, 10].
func (r *Replayer) SetSpeed(factor float64) error {
	if factor <= 0 || factor > maxSpeed {
		return fmt.Errorf("%w: speed %v outside (0, %v]", ErrValidation, factor, maxSpeed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speed = factor
	return nil
}

// SetErrorMode changes the active error policy for future failures.
func (r *Replayer) SetErrorMode(mode ErrorMode) error {
	if !validErrorMode(mode) {
		return fmt.Errorf("%w: unknown error mode %q", ErrValidation, mode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorMode = mode
	return nil
}

// SetVariables replaces the run's effective variable set for future
// dispatches. Variables are frozen per action for the span of its retry
// sequence.
func (r *Replayer) SetVariables(vars map[string]string) {
	next := make(map[string]string, len(vars))
	for k, v := range vars {
		next[k] = v
	}
	r.mu.Lock()
	r.vars = next
	r.mu.Unlock()
}

// run is the control loop of a non-step run. It exits on any terminal state.
func (r *Replayer) run() {
	for {
		r.mu.Lock()
		switch r.state {
		case StateStopped, StateCompleted, StateError:
			r.mu.Unlock()
			return
		case StatePaused:
			resume := r.resumeCh
			done := r.runCtx.Done()
			r.mu.Unlock()
			select {
			case <-resume:
			case <-done:
			}
			continue
		}
		if r.cursor >= len(r.rec.Actions) {
			r.completeLocked()
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		r.executeCurrent()
	}
}

// completeLocked transitions into completed and emits the terminal summary.
// Callers hold r.mu.
func (r *Replayer) completeLocked() {
	r.state = StateCompleted
	r.runCancel()
	results := make([]Result, len(r.results))
	copy(results, r.results)
	r.hub.Publish(CompletedEvent{
		Duration: time.Since(r.startedAt),
		Progress: r.progress,
		Results:  results,
	})
	r.logger.Printf("replay completed: %d/%d actions (%d failed, %d skipped, %d retried)",
		r.progress.Completed, r.progress.Total, r.progress.Failed, r.progress.Skipped, r.progress.Retried)
}

// failLocked transitions into error and emits the terminal event. Callers
// hold r.mu.
func (r *Replayer) failLocked(idx int, errMsg string) {
	r.state = StateError
	r.runCancel()
	r.hub.Publish(ErrorEvent{Cursor: idx, Err: errMsg, Progress: r.progress})
	r.logger.Printf("replay failed at action %d: %s", idx, errMsg)
}

// dispatchTimeout returns the response deadline for one action. Wait actions
// carry their own expected duration, so they extend the base timeout.
func dispatchTimeout(a *action.Action, base time.Duration) time.Duration {
	wp, ok := a.Payload.(*action.WaitPayload)
	if !ok {
		return base
	}
	if wp.Duration > 0 {
		return base + time.Duration(wp.Duration)*time.Millisecond
	}
	if wp.Timeout > 0 {
		return base + time.Duration(wp.Timeout)*time.Millisecond
	}
	return base
}

// executeCurrent runs the single action at the cursor: variable substitution,
// pre-dispatch delay, dispatch, and error-policy handling. It returns once
// the cursor advanced, the run parked on an error, or the run ended.
func (r *Replayer) executeCurrent() {
	r.mu.Lock()
	idx := r.cursor
	raw := r.rec.Actions[idx]
	speed := r.speed
	first := !r.dispatched
	timeout := r.actionTimeout
	done := r.runCtx.Done()
	paused := r.pauseCh
	runCtx := r.runCtx

	// Variables are frozen here for the whole retry sequence of this
	// action.
	a := raw.SubstituteVariables(r.vars)

	r.hub.Publish(ProgressEvent{
		Cursor:   idx,
		Percent:  float64(idx) / float64(r.progress.Total) * 100,
		Elapsed:  time.Since(r.startedAt),
		Action:   a,
		Progress: r.progress,
	})
	r.mu.Unlock()

	if !first && a.TimeSincePrevious > 0 {
		delay := time.Duration(math.Round(float64(a.TimeSincePrevious) / speed))
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-paused:
			// The action did not run; the cursor stays put and the
			// loop parks until resumed.
			timer.Stop()
			return
		case <-done:
			timer.Stop()
			return
		}
	}

	started := time.Now()
	retries := 0
	for {
		resp, err := r.dispatch(runCtx, a, timeout)
		if err == nil && !resp.Success {
			err = &executor.Failure{Message: resp.Error}
		}

		r.mu.Lock()
		if r.state == StateStopped || r.state == StateCompleted || r.state == StateError {
			// Stop raced the dispatch; the response belongs to a
			// finished run.
			r.mu.Unlock()
			return
		}
		if err == nil {
			r.dispatched = true
			r.results = append(r.results, Result{
				Index:    idx,
				ActionID: a.ID,
				Kind:     a.Kind,
				Status:   ResultSuccess,
				Attempts: retries + 1,
				Duration: time.Since(started),
			})
			r.progress.Completed++
			r.cursor = idx + 1
			r.mu.Unlock()
			return
		}

		mode := r.errorMode
		if mode == ErrorModeRetry && retries >= r.maxRetries {
			mode = ErrorModeFail
		}
		switch mode {
		case ErrorModeRetry:
			retries++
			r.progress.Retried++
			wait := r.backoff(retries)
			r.logger.Printf("action %d failed (%v), retry %d/%d in %s", idx, err, retries, r.maxRetries, wait)
			r.mu.Unlock()

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-done:
				timer.Stop()
				return
			}
			continue

		case ErrorModeSkip:
			r.dispatched = true
			r.results = append(r.results, Result{
				Index:    idx,
				ActionID: a.ID,
				Kind:     a.Kind,
				Status:   ResultSkipped,
				Attempts: retries + 1,
				Error:    err.Error(),
				Duration: time.Since(started),
			})
			r.progress.Skipped++
			r.cursor = idx + 1
			r.mu.Unlock()
			return

		case ErrorModePause:
			r.dispatched = true
			r.results = append(r.results, Result{
				Index:    idx,
				ActionID: a.ID,
				Kind:     a.Kind,
				Status:   ResultFailed,
				Attempts: retries + 1,
				Error:    err.Error(),
				Duration: time.Since(started),
			})
			r.progress.Failed++
			r.state = StatePaused
			r.hub.Publish(PausedOnErrorEvent{Cursor: idx, Err: err.Error()})
			r.logger.Printf("replay paused on error at action %d: %v", idx, err)
			r.mu.Unlock()
			return

		default: // fail
			r.results = append(r.results, Result{
				Index:    idx,
				ActionID: a.ID,
				Kind:     a.Kind,
				Status:   ResultFailed,
				Attempts: retries + 1,
				Error:    err.Error(),
				Duration: time.Since(started),
			})
			r.progress.Failed++
			r.failLocked(idx, err.Error())
			r.mu.Unlock()
			return
		}
	}
}

// dispatch sends one correlated request and waits for its response or the
// per-action deadline.
func (r *Replayer) dispatch(runCtx context.Context, a *action.Action, base time.Duration) (executor.Response, error) {
	ctx, cancel := context.WithTimeout(runCtx, dispatchTimeout(a, base))
	defer cancel()

	return r.exec.Dispatch(ctx, executor.Request{
		CorrelationID: uuid.NewString(),
		Kind:          a.Kind,
		Payload:       a.Payload.Map(),
	})
}
