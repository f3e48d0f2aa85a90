// Package client is a thin HTTP client for the engine's control surface.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ivikasavnish/go-replay/pkg/action"
	"github.com/ivikasavnish/go-replay/pkg/replay"
	"github.com/ivikasavnish/go-replay/pkg/server"
)

// Client handles communication with a running engine server.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) post(path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.client.Post(c.baseURL+path, "application/json", &buf)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()
	return c.decode(path, resp, out)
}

func (c *Client) get(path string, out any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()
	return c.decode(path, resp, out)
}

func (c *Client) decode(path string, resp *http.Response, out any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var errResp server.ErrorResponse
		body, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s failed (status %d): %s", path, resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("%s failed (status %d): %s", path, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// StartRecording begins a recording session and returns its id.
func (c *Client) StartRecording(req server.StartRecordingRequest) (string, error) {
	var out map[string]string
	if err := c.post("/recording/start", req, &out); err != nil {
		return "", err
	}
	return out["id"], nil
}

// StopRecording ends the session and returns the finalized recording.
func (c *Client) StopRecording(name string) (*action.Recording, error) {
	var rec action.Recording
	if err := c.post("/recording/stop", server.StopRecordingRequest{Name: name}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PauseRecording suspends the active session.
func (c *Client) PauseRecording() error {
	return c.post("/recording/pause", nil, nil)
}

// ResumeRecording continues a paused session.
func (c *Client) ResumeRecording() error {
	return c.post("/recording/resume", nil, nil)
}

// AddAction inserts a caller-built action into the active recording.
func (c *Client) AddAction(kind action.Kind, params map[string]any) error {
	return c.post("/recording/action", server.AddActionRequest{Kind: kind, Params: params}, nil)
}

// AddWait inserts a fixed-duration wait.
func (c *Client) AddWait(d time.Duration) error {
	return c.post("/recording/wait", server.AddWaitRequest{Duration: d.Milliseconds()}, nil)
}

// AddScreenshot inserts a screenshot action.
func (c *Client) AddScreenshot(name string, fullPage bool) error {
	return c.post("/recording/screenshot", server.AddScreenshotRequest{Name: name, FullPage: fullPage}, nil)
}

// AddComment inserts an annotation action.
func (c *Client) AddComment(text string) error {
	return c.post("/recording/comment", server.AddCommentRequest{Text: text}, nil)
}

// RecordingState returns the recording machine state.
func (c *Client) RecordingState() (string, error) {
	var out server.StatusResponse
	if err := c.get("/recording/status", &out); err != nil {
		return "", err
	}
	return out.State, nil
}

// ListRecordings fetches all stored recordings.
func (c *Client) ListRecordings() ([]*action.Recording, error) {
	var recs []*action.Recording
	if err := c.get("/recordings", &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetRecording fetches one recording by id.
func (c *Client) GetRecording(id string) (*action.Recording, error) {
	var rec action.Recording
	if err := c.get("/recordings/"+id, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteRecording removes one recording by id.
func (c *Client) DeleteRecording(id string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/recordings/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	defer resp.Body.Close()
	return c.decode("/recordings/"+id, resp, nil)
}

// ExportScript fetches a recording compiled to the given script format.
func (c *Client) ExportScript(id, format string) (string, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s/recordings/%s/export?format=%s", c.baseURL, id, format))
	if err != nil {
		return "", fmt.Errorf("failed to export recording: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read export: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("export failed (status %d): %s", resp.StatusCode, string(body))
	}
	return string(body), nil
}

// StartReplay begins a replay run over a stored recording.
func (c *Client) StartReplay(req server.StartReplayRequest) error {
	return c.post("/replay/start", req, nil)
}

// StopReplay ends the active run.
func (c *Client) StopReplay() error { return c.post("/replay/stop", nil, nil) }

// PauseReplay suspends the active run.
func (c *Client) PauseReplay() error { return c.post("/replay/pause", nil, nil) }

// ResumeReplay continues a paused run.
func (c *Client) ResumeReplay() error { return c.post("/replay/resume", nil, nil) }

// StepReplay executes exactly one action of a step-mode run.
func (c *Client) StepReplay() error { return c.post("/replay/step", nil, nil) }

// SkipReplayAction advances the run cursor without executing.
func (c *Client) SkipReplayAction() error { return c.post("/replay/skip", nil, nil) }

// SetReplaySpeed rescales future inter-action delays.
func (c *Client) SetReplaySpeed(speed float64) error {
	return c.post("/replay/speed", server.SetSpeedRequest{Speed: speed}, nil)
}

// SetReplayErrorMode changes the active error policy.
func (c *Client) SetReplayErrorMode(mode replay.ErrorMode) error {
	return c.post("/replay/error-mode", server.SetErrorModeRequest{Mode: mode}, nil)
}

// SetReplayVariables replaces the run's variable set.
func (c *Client) SetReplayVariables(vars map[string]string) error {
	return c.post("/replay/variables", server.SetVariablesRequest{Variables: vars}, nil)
}

// ReplayStatus returns the run's state, cursor and counters.
func (c *Client) ReplayStatus() (server.ReplayStatusResponse, error) {
	var out server.ReplayStatusResponse
	err := c.get("/replay/status", &out)
	return out, err
}
