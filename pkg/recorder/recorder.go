// Package recorder turns a live interaction-event stream into an ordered,
// time-stamped action log.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivikasavnish/go-replay/pkg/action"
	"github.com/ivikasavnish/go-replay/pkg/events"
	"github.com/ivikasavnish/go-replay/pkg/store"
)

// State is the recording machine state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
)

// ErrInvalidState is returned when an operation is not legal in the current
// machine state.
var ErrInvalidState = errors.New("invalid recorder state")

// CaptureSurface is signalled when the machine wants the execution surface to
// begin, end, pause or resume emitting interaction events.
type CaptureSurface interface {
	StartCapture() error
	StopCapture() error
	PauseCapture() error
	ResumeCapture() error
}

type noopSurface struct{}

func (noopSurface) StartCapture() error  { return nil }
func (noopSurface) StopCapture() error   { return nil }
func (noopSurface) PauseCapture() error  { return nil }
func (noopSurface) ResumeCapture() error { return nil }

const (
	defaultTypeDebounce      = 500 * time.Millisecond
	defaultMinScrollDistance = 100.0
)

// Recorder is the recording state machine. All event handlers are safe for
// concurrent use; events are applied strictly in arrival order under one
// lock.
type Recorder struct {
	mu      sync.Mutex
	state   State
	store   store.Store
	surface CaptureSurface
	hub     *events.Hub
	logger  *log.Logger
	now     func() time.Time

	typeDebounce      time.Duration
	minScrollDistance float64

	rec           *action.Recording
	captureScroll bool
	startAt       time.Time
	pausedAt      time.Time
	pausedTotal   time.Duration
	lastActionAt  time.Time
	pending       *pendingType
}

// pendingType is a not-yet-flushed merged type action. Timing is frozen at
// the first merged event so flushing later preserves chronological order.
type pendingType struct {
	selector              string
	text                  string
	pageURL               string
	pageTitle             string
	timestamp             time.Time
	sinceStart, sincePrev time.Duration
	timer                 *time.Timer
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets a custom logger for the recorder.
func WithLogger(logger *log.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithCaptureSurface attaches the surface signalled on start/stop/pause/resume.
func WithCaptureSurface(s CaptureSurface) Option {
	return func(r *Recorder) { r.surface = s }
}

// WithTypeDebounce overrides the type-merge inactivity window.
func WithTypeDebounce(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.typeDebounce = d
		}
	}
}

// WithMinScrollDistance overrides the scroll filter threshold.
func WithMinScrollDistance(d float64) Option {
	return func(r *Recorder) {
		if d >= 0 {
			r.minScrollDistance = d
		}
	}
}

// New creates an idle recorder persisting to st.
func New(st store.Store, opts ...Option) *Recorder {
	r := &Recorder{
		state:             StateIdle,
		store:             st,
		surface:           noopSurface{},
		hub:               events.NewHub(),
		logger:            log.New(io.Discard, "", 0),
		now:               time.Now,
		typeDebounce:      defaultTypeDebounce,
		minScrollDistance: defaultMinScrollDistance,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events exposes the recorder's subscription hub.
func (r *Recorder) Events() *events.Hub { return r.hub }

// State returns the current machine state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// StartOptions configures one recording session.
type StartOptions struct {
	Name          string
	Description   string
	StartURL      string
	Variables     map[string]string
	Metadata      map[string]any
	Tags          []string
	CaptureScroll bool
}

// Start begins a new recording. Fails with ErrInvalidState unless idle.
func (r *Recorder) Start(opts StartOptions) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return "", fmt.Errorf("%w: start requires idle, machine is %s", ErrInvalidState, r.state)
	}

	now := r.now()
	name := opts.Name
	if name == "" {
		name = "recording-" + now.Format("20060102-150405")
	}
	r.rec = &action.Recording{
		ID:          uuid.NewString(),
		Name:        name,
		Description: opts.Description,
		StartURL:    opts.StartURL,
		Actions:     []*action.Action{},
		Variables:   opts.Variables,
		Metadata:    opts.Metadata,
		Tags:        opts.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.captureScroll = opts.CaptureScroll
	r.startAt = now
	r.lastActionAt = now
	r.pausedTotal = 0
	r.pending = nil
	r.state = StateRecording

	if err := r.surface.StartCapture(); err != nil {
		r.logger.Printf("capture surface start failed: %v", err)
	}
	r.hub.Publish(StartedEvent{RecordingID: r.rec.ID, Name: r.rec.Name})
	r.logger.Printf("recording started: %s (%s)", r.rec.Name, r.rec.ID)
	return r.rec.ID, nil
}

// Pause suspends timestamping. Fails with ErrInvalidState unless recording.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return fmt.Errorf("%w: pause requires recording, machine is %s", ErrInvalidState, r.state)
	}
	r.flushPendingLocked()
	r.pausedAt = r.now()
	r.state = StatePaused

	if err := r.surface.PauseCapture(); err != nil {
		r.logger.Printf("capture surface pause failed: %v", err)
	}
	r.hub.Publish(PausedEvent{RecordingID: r.rec.ID})
	return nil
}

// Resume continues a paused recording; the paused interval is excluded from
// all subsequent timeSinceStart values.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePaused {
		return fmt.Errorf("%w: resume requires paused, machine is %s", ErrInvalidState, r.state)
	}
	r.pausedTotal += r.now().Sub(r.pausedAt)
	r.state = StateRecording

	if err := r.surface.ResumeCapture(); err != nil {
		r.logger.Printf("capture surface resume failed: %v", err)
	}
	r.hub.Publish(ResumedEvent{RecordingID: r.rec.ID})
	return nil
}

// StopOptions configures Stop.
type StopOptions struct {
	// Name, when non-empty, renames the recording before it is saved.
	Name string
}

// Stop finalizes the recording, hands it to the store and returns to idle.
// The returned recording is valid even when the save failed; the save error
// is reported alongside it.
func (r *Recorder) Stop(opts StopOptions) (*action.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateIdle {
		return nil, fmt.Errorf("%w: stop requires an active recording", ErrInvalidState)
	}

	now := r.now()
	if r.state == StatePaused {
		r.pausedTotal += now.Sub(r.pausedAt)
	}
	r.flushPendingLocked()

	rec := r.rec
	rec.Duration = now.Sub(r.startAt) - r.pausedTotal
	rec.UpdatedAt = now
	if opts.Name != "" {
		rec.Name = opts.Name
	}

	r.rec = nil
	r.state = StateIdle

	if err := r.surface.StopCapture(); err != nil {
		r.logger.Printf("capture surface stop failed: %v", err)
	}

	var saveErr error
	if r.store != nil {
		if err := r.store.Save(rec); err != nil {
			saveErr = fmt.Errorf("save recording: %w", err)
			r.logger.Printf("recording %s not persisted: %v", rec.ID, err)
		}
	}
	r.hub.Publish(StoppedEvent{
		RecordingID: rec.ID,
		ActionCount: len(rec.Actions),
		Duration:    rec.Duration,
	})
	r.logger.Printf("recording stopped: %s (%d actions, %s)", rec.ID, len(rec.Actions), rec.Duration)
	return rec, saveErr
}

// stampLocked fills the timing fields. timeSinceStart excludes paused
// intervals; every handled event advances lastActionAt.
func (r *Recorder) stampLocked(a *action.Action, now time.Time) {
	a.Timestamp = now
	a.TimeSinceStart = now.Sub(r.startAt) - r.pausedTotal
	a.TimeSincePrevious = now.Sub(r.lastActionAt)
	r.lastActionAt = now
}

func (r *Recorder) appendLocked(a *action.Action) {
	r.rec.Actions = append(r.rec.Actions, a)
	r.rec.UpdatedAt = a.Timestamp
	r.hub.Publish(ActionRecordedEvent{Index: len(r.rec.Actions) - 1, Action: a})
}

// flushPendingLocked finalizes the merged type action, if any, using the
// timing captured at its first event.
func (r *Recorder) flushPendingLocked() {
	p := r.pending
	if p == nil {
		return
	}
	r.pending = nil
	p.timer.Stop()

	a := action.New(action.KindType, map[string]any{
		"selector": p.selector,
		"text":     p.text,
	})
	a.Timestamp = p.timestamp
	a.TimeSinceStart = p.sinceStart
	a.TimeSincePrevious = p.sincePrev
	a.PageURL = p.pageURL
	a.PageTitle = p.pageTitle
	r.appendLocked(a)
}

// OnClick records a click event. No-op unless recording.
func (r *Recorder) OnClick(ev ClickEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	r.flushPendingLocked()

	params := map[string]any{
		"selector": ev.Selector,
		"x":        ev.X,
		"y":        ev.Y,
	}
	if ev.Button != "" {
		params["button"] = ev.Button
	}
	if ev.ClickCount > 0 {
		params["clickCount"] = ev.ClickCount
	}
	a := action.New(action.KindClick, params)
	a.PageURL = ev.PageURL
	a.PageTitle = ev.PageTitle
	r.stampLocked(a, r.now())
	r.appendLocked(a)
}

// OnType records a type event. Consecutive type events on the same target
// within the debounce window merge into one action whose text is the
// arrival-order concatenation.
func (r *Recorder) OnType(ev TypeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}

	now := r.now()
	if p := r.pending; p != nil && p.selector == ev.Selector {
		p.text += ev.Text
		p.timer.Reset(r.typeDebounce)
		r.lastActionAt = now
		return
	}
	r.flushPendingLocked()

	p := &pendingType{
		selector:   ev.Selector,
		text:       ev.Text,
		pageURL:    ev.PageURL,
		pageTitle:  ev.PageTitle,
		timestamp:  now,
		sinceStart: now.Sub(r.startAt) - r.pausedTotal,
		sincePrev:  now.Sub(r.lastActionAt),
	}
	r.lastActionAt = now
	p.timer = time.AfterFunc(r.typeDebounce, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// A flush or reset may have retired this pending entry already.
		if r.pending == p {
			r.flushPendingLocked()
		}
	})
	r.pending = p
}

// OnScroll records a scroll event. Discarded unless scroll capture is
// enabled and |Δx|+|Δy| reaches the minimum distance.
func (r *Recorder) OnScroll(ev ScrollEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording || !r.captureScroll {
		return
	}
	if abs(ev.DeltaX)+abs(ev.DeltaY) < r.minScrollDistance {
		return
	}
	r.flushPendingLocked()

	a := action.New(action.KindScroll, map[string]any{
		"x":        ev.X,
		"y":        ev.Y,
		"selector": ev.Selector,
	})
	a.PageURL = ev.PageURL
	a.PageTitle = ev.PageTitle
	r.stampLocked(a, r.now())
	r.appendLocked(a)
}

// OnNavigate records a navigation event. No-op unless recording.
func (r *Recorder) OnNavigate(ev NavigateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	r.flushPendingLocked()

	a := action.New(action.KindNavigate, map[string]any{"url": ev.URL})
	a.PageURL = ev.URL
	a.PageTitle = ev.Title
	r.stampLocked(a, r.now())
	r.appendLocked(a)
}

// OnKeyPress records a key-press event. No-op unless recording.
func (r *Recorder) OnKeyPress(ev KeyPressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	r.flushPendingLocked()

	a := action.New(action.KindKeyPress, map[string]any{
		"key":       ev.Key,
		"selector":  ev.Selector,
		"modifiers": ev.Modifiers,
	})
	a.PageURL = ev.PageURL
	a.PageTitle = ev.PageTitle
	r.stampLocked(a, r.now())
	r.appendLocked(a)
}

// AddAction inserts a caller-built action. Fails with ErrInvalidState unless
// recording.
func (r *Recorder) AddAction(kind action.Kind, params map[string]any) (*action.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return nil, fmt.Errorf("%w: addAction requires recording, machine is %s", ErrInvalidState, r.state)
	}
	r.flushPendingLocked()

	a := action.New(kind, params)
	r.stampLocked(a, r.now())
	r.appendLocked(a)
	return a, nil
}

// AddWait inserts a fixed-duration wait action.
func (r *Recorder) AddWait(d time.Duration) (*action.Action, error) {
	return r.AddAction(action.KindWait, map[string]any{"duration": int(d.Milliseconds())})
}

// AddScreenshotAction inserts a screenshot action.
func (r *Recorder) AddScreenshotAction(name string, fullPage bool) (*action.Action, error) {
	return r.AddAction(action.KindScreenshot, map[string]any{"name": name, "fullPage": fullPage})
}

// AddComment inserts an annotation action.
func (r *Recorder) AddComment(text string) (*action.Action, error) {
	return r.AddAction(action.KindComment, map[string]any{"text": text})
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
