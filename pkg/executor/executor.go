// Package executor defines the contract between the replay engine and the
// surface that performs actions inside a live page.
package executor

import (
	"context"
	"errors"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

// Request is one action dispatch. CorrelationID is fresh per dispatch; the
// executor must tag its response with the same id.
type Request struct {
	CorrelationID string         `json:"id"`
	Kind          action.Kind    `json:"command"`
	Payload       map[string]any `json:"params"`
}

// Response is the executor's answer to exactly one Request.
type Response struct {
	CorrelationID string         `json:"id"`
	Success       bool           `json:"success"`
	Data          map[string]any `json:"data,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Executor performs one action inside a live page. Dispatch blocks until the
// correlated response arrives or ctx expires; implementations must discard
// responses that arrive after the deadline. At most one request is in flight
// per replay run.
type Executor interface {
	Dispatch(ctx context.Context, req Request) (Response, error)
}

// ErrNotConnected is returned when no execution surface is attached.
var ErrNotConnected = errors.New("executor is not connected")

// Failure is the error form of an unsuccessful Response.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return "executor reported failure"
	}
	return "executor reported failure: " + f.Message
}
