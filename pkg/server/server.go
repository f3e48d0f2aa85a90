// Package server exposes the recording and replay machines over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ivikasavnish/go-replay/pkg/action"
	"github.com/ivikasavnish/go-replay/pkg/codec"
	"github.com/ivikasavnish/go-replay/pkg/recorder"
	"github.com/ivikasavnish/go-replay/pkg/replay"
	"github.com/ivikasavnish/go-replay/pkg/store"
)

// Server routes control-surface requests to the engine components.
type Server struct {
	recorder *recorder.Recorder
	replayer *replay.Replayer
	store    store.Store
	router   *mux.Router
	logger   *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger for the server.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New wires the control surface over the given machines and store.
func New(rec *recorder.Recorder, rep *replay.Replayer, st store.Store, opts ...Option) *Server {
	s := &Server{
		recorder: rec,
		replayer: rep,
		store:    st,
		router:   mux.NewRouter(),
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/recording/start", s.handleRecordingStart).Methods("POST")
	s.router.HandleFunc("/recording/stop", s.handleRecordingStop).Methods("POST")
	s.router.HandleFunc("/recording/pause", s.handleRecordingPause).Methods("POST")
	s.router.HandleFunc("/recording/resume", s.handleRecordingResume).Methods("POST")
	s.router.HandleFunc("/recording/action", s.handleRecordingAction).Methods("POST")
	s.router.HandleFunc("/recording/wait", s.handleRecordingWait).Methods("POST")
	s.router.HandleFunc("/recording/screenshot", s.handleRecordingScreenshot).Methods("POST")
	s.router.HandleFunc("/recording/comment", s.handleRecordingComment).Methods("POST")
	s.router.HandleFunc("/recording/status", s.handleRecordingStatus).Methods("GET")

	s.router.HandleFunc("/recordings", s.handleListRecordings).Methods("GET")
	s.router.HandleFunc("/recordings/{id}", s.handleGetRecording).Methods("GET")
	s.router.HandleFunc("/recordings/{id}", s.handleDeleteRecording).Methods("DELETE")
	s.router.HandleFunc("/recordings/{id}/export", s.handleExportRecording).Methods("GET")

	s.router.HandleFunc("/replay/start", s.handleReplayStart).Methods("POST")
	s.router.HandleFunc("/replay/stop", s.handleReplayStop).Methods("POST")
	s.router.HandleFunc("/replay/pause", s.handleReplayPause).Methods("POST")
	s.router.HandleFunc("/replay/resume", s.handleReplayResume).Methods("POST")
	s.router.HandleFunc("/replay/step", s.handleReplayStep).Methods("POST")
	s.router.HandleFunc("/replay/skip", s.handleReplaySkip).Methods("POST")
	s.router.HandleFunc("/replay/speed", s.handleReplaySpeed).Methods("POST")
	s.router.HandleFunc("/replay/error-mode", s.handleReplayErrorMode).Methods("POST")
	s.router.HandleFunc("/replay/variables", s.handleReplayVariables).Methods("POST")
	s.router.HandleFunc("/replay/status", s.handleReplayStatus).Methods("GET")
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start starts the server on the specified address.
func (s *Server) Start(addr string) error {
	s.logger.Printf("control surface listening on %s", addr)
	return http.ListenAndServe(addr, s)
}

// Request/Response types

type StartRecordingRequest struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	StartURL      string            `json:"startUrl"`
	Variables     map[string]string `json:"variables"`
	Metadata      map[string]any    `json:"metadata"`
	Tags          []string          `json:"tags"`
	CaptureScroll bool              `json:"captureScroll"`
}

type StopRecordingRequest struct {
	Name string `json:"name"`
}

type AddActionRequest struct {
	Kind   action.Kind    `json:"kind"`
	Params map[string]any `json:"params"`
}

type AddWaitRequest struct {
	Duration int64 `json:"duration"` // milliseconds
}

type AddScreenshotRequest struct {
	Name     string `json:"name"`
	FullPage bool   `json:"fullPage"`
}

type AddCommentRequest struct {
	Text string `json:"text"`
}

type StartReplayRequest struct {
	RecordingID   string            `json:"recordingId"`
	Speed         float64           `json:"speed"`
	ErrorMode     replay.ErrorMode  `json:"errorMode"`
	MaxRetries    int               `json:"maxRetries"`
	ActionTimeout int64             `json:"actionTimeout"` // milliseconds
	StepMode      bool              `json:"stepMode"`
	Variables     map[string]string `json:"variables"`
	StartIndex    int               `json:"startIndex"`
}

type SetSpeedRequest struct {
	Speed float64 `json:"speed"`
}

type SetErrorModeRequest struct {
	Mode replay.ErrorMode `json:"mode"`
}

type SetVariablesRequest struct {
	Variables map[string]string `json:"variables"`
}

type StatusResponse struct {
	State string `json:"state"`
}

type ReplayStatusResponse struct {
	State    string          `json:"state"`
	Cursor   int             `json:"cursor"`
	Progress replay.Progress `json:"progress"`
	Results  []replay.Result `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusFor maps engine sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, recorder.ErrInvalidState), errors.Is(err, replay.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, replay.ErrValidation), errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Recording handlers

func (s *Server) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	var req StartRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.recorder.Start(recorder.StartOptions{
		Name:          req.Name,
		Description:   req.Description,
		StartURL:      req.StartURL,
		Variables:     req.Variables,
		Metadata:      req.Metadata,
		Tags:          req.Tags,
		CaptureScroll: req.CaptureScroll,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	var req StopRecordingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	rec, err := s.recorder.Stop(recorder.StopOptions{Name: req.Name})
	if err != nil {
		if rec == nil {
			writeError(w, statusFor(err), err)
			return
		}
		// The recording is valid even when persistence failed.
		s.logger.Printf("stop completed with save error: %v", err)
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRecordingPause(w http.ResponseWriter, r *http.Request) {
	if err := s.recorder.Pause(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{State: string(s.recorder.State())})
}

func (s *Server) handleRecordingResume(w http.ResponseWriter, r *http.Request) {
	if err := s.recorder.Resume(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{State: string(s.recorder.State())})
}

func (s *Server) handleRecordingAction(w http.ResponseWriter, r *http.Request) {
	var req AddActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := s.recorder.AddAction(req.Kind, req.Params)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleRecordingWait(w http.ResponseWriter, r *http.Request) {
	var req AddWaitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := s.recorder.AddWait(time.Duration(req.Duration) * time.Millisecond)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleRecordingScreenshot(w http.ResponseWriter, r *http.Request) {
	var req AddScreenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := s.recorder.AddScreenshotAction(req.Name, req.FullPage)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleRecordingComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := s.recorder.AddComment(req.Text)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{State: string(s.recorder.State())})
}

// Recording collection handlers

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Load(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Load(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "portable" {
		writeJSON(w, http.StatusOK, codec.ExportBundle(rec))
		return
	}

	script, err := codec.Compile(codec.Format(format), rec.Actions, codec.Options{})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, codec.ErrUnknownFormat) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(script))
}

// Replay handlers

func (s *Server) handleReplayStart(w http.ResponseWriter, r *http.Request) {
	var req StartReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := s.store.Load(req.RecordingID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	err = s.replayer.Start(rec, replay.Options{
		Speed:         req.Speed,
		ErrorMode:     req.ErrorMode,
		MaxRetries:    req.MaxRetries,
		ActionTimeout: time.Duration(req.ActionTimeout) * time.Millisecond,
		StepMode:      req.StepMode,
		Variables:     req.Variables,
		StartIndex:    req.StartIndex,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{State: string(s.replayer.State())})
}

func (s *Server) handleReplayStop(w http.ResponseWriter, r *http.Request) {
	s.replayControl(w, s.replayer.Stop)
}

func (s *Server) handleReplayPause(w http.ResponseWriter, r *http.Request) {
	s.replayControl(w, s.replayer.Pause)
}

func (s *Server) handleReplayResume(w http.ResponseWriter, r *http.Request) {
	s.replayControl(w, s.replayer.Resume)
}

func (s *Server) handleReplayStep(w http.ResponseWriter, r *http.Request) {
	s.replayControl(w, s.replayer.StepNext)
}

func (s *Server) handleReplaySkip(w http.ResponseWriter, r *http.Request) {
	s.replayControl(w, s.replayer.SkipAction)
}

func (s *Server) replayControl(w http.ResponseWriter, op func() error) {
	if err := op(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{State: string(s.replayer.State())})
}

func (s *Server) handleReplaySpeed(w http.ResponseWriter, r *http.Request) {
	var req SetSpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.replayer.SetSpeed(req.Speed); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{State: string(s.replayer.State())})
}

func (s *Server) handleReplayErrorMode(w http.ResponseWriter, r *http.Request) {
	var req SetErrorModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.replayer.SetErrorMode(req.Mode); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{State: string(s.replayer.State())})
}

func (s *Server) handleReplayVariables(w http.ResponseWriter, r *http.Request) {
	var req SetVariablesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.replayer.SetVariables(req.Variables)
	writeJSON(w, http.StatusOK, StatusResponse{State: string(s.replayer.State())})
}

func (s *Server) handleReplayStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ReplayStatusResponse{
		State:    string(s.replayer.State()),
		Cursor:   s.replayer.Cursor(),
		Progress: s.replayer.Progress(),
		Results:  s.replayer.Results(),
	})
}
