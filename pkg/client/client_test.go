package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivikasavnish/go-replay/pkg/action"
	"github.com/ivikasavnish/go-replay/pkg/executor"
	"github.com/ivikasavnish/go-replay/pkg/recorder"
	"github.com/ivikasavnish/go-replay/pkg/replay"
	"github.com/ivikasavnish/go-replay/pkg/server"
	"github.com/ivikasavnish/go-replay/pkg/store"
)

type okExecutor struct{}

func (okExecutor) Dispatch(ctx context.Context, req executor.Request) (executor.Response, error) {
	return executor.Response{CorrelationID: req.CorrelationID, Success: true}, nil
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	st := store.NewMemoryStore()
	srv := server.New(recorder.New(st), replay.New(okExecutor{}), st)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestRecordAndReplayThroughClient(t *testing.T) {
	c := newTestClient(t)

	id, err := c.StartRecording(server.StartRecordingRequest{
		Name:     "login flow",
		StartURL: "https://app.test/login",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	state, err := c.RecordingState()
	require.NoError(t, err)
	assert.Equal(t, "recording", state)

	require.NoError(t, c.AddAction(action.KindNavigate, map[string]any{"url": "https://app.test/login"}))
	require.NoError(t, c.AddAction(action.KindType, map[string]any{"selector": "#user", "text": "{{user}}"}))
	require.NoError(t, c.AddWait(500*time.Millisecond))
	require.NoError(t, c.AddComment("credentials entered"))

	rec, err := c.StopRecording("login-final")
	require.NoError(t, err)
	assert.Equal(t, "login-final", rec.Name)
	assert.Len(t, rec.Actions, 4)

	recs, err := c.ListRecordings()
	require.NoError(t, err)
	require.Len(t, recs, 1)

	got, err := c.GetRecording(id)
	require.NoError(t, err)
	assert.Equal(t, "login-final", got.Name)

	require.NoError(t, c.StartReplay(server.StartReplayRequest{
		RecordingID: id,
		Speed:       10,
		ErrorMode:   replay.ErrorModeSkip,
		Variables:   map[string]string{"user": "alice"},
	}))

	require.Eventually(t, func() bool {
		status, err := c.ReplayStatus()
		return err == nil && status.State == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	status, err := c.ReplayStatus()
	require.NoError(t, err)
	assert.Equal(t, replay.Progress{Total: 4, Completed: 4}, status.Progress)
}

func TestClientSurfacesServerErrors(t *testing.T) {
	c := newTestClient(t)

	err := c.PauseRecording()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recorder state")

	_, err = c.GetRecording("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClientExport(t *testing.T) {
	c := newTestClient(t)

	id, err := c.StartRecording(server.StartRecordingRequest{Name: "exp"})
	require.NoError(t, err)
	require.NoError(t, c.AddAction(action.KindNavigate, map[string]any{"url": "https://x"}))
	_, err = c.StopRecording("")
	require.NoError(t, err)

	script, err := c.ExportScript(id, "puppeteer-js")
	require.NoError(t, err)
	assert.Contains(t, script, "page.goto('https://x')")

	_, err = c.ExportScript(id, "cobol")
	assert.Error(t, err)

	require.NoError(t, c.DeleteRecording(id))
	_, err = c.GetRecording(id)
	assert.Error(t, err)
}
