package wsexec

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivikasavnish/go-replay/pkg/action"
	"github.com/ivikasavnish/go-replay/pkg/executor"
)

func dialBridge(t *testing.T, b *Bridge, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+b.Addr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(helloMessage{Type: "hello", Token: token, Client: "test", Version: 1}))
	var welcome welcomeMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "welcome", welcome.Type)
	return conn
}

func TestDispatchRequiresConnection(t *testing.T) {
	b := New(Config{ListenAddr: "127.0.0.1:0"})

	_, err := b.Dispatch(context.Background(), executor.Request{CorrelationID: "c1", Kind: action.KindClick})
	assert.ErrorIs(t, err, executor.ErrNotConnected)
}

func TestDispatchCorrelatesResponse(t *testing.T) {
	b := New(Config{ListenAddr: "127.0.0.1:0", Token: "tok", Timeout: 2 * time.Second})
	require.NoError(t, b.Start())
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	conn := dialBridge(t, b, "tok")

	go func() {
		for {
			var req executor.Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			_ = conn.WriteJSON(executor.Response{
				CorrelationID: req.CorrelationID,
				Success:       true,
				Data:          map[string]any{"command": string(req.Kind)},
			})
		}
	}()

	resp, err := b.Dispatch(context.Background(), executor.Request{
		CorrelationID: "c1",
		Kind:          action.KindNavigate,
		Payload:       map[string]any{"url": "https://a.test"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "c1", resp.CorrelationID)
	assert.Equal(t, "navigate", resp.Data["command"])
}

func TestDispatchTimeoutDiscardsLateResponse(t *testing.T) {
	b := New(Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, b.Start())
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	conn := dialBridge(t, b, "")

	requests := make(chan executor.Request, 1)
	go func() {
		for {
			var req executor.Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			requests <- req
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := b.Dispatch(ctx, executor.Request{CorrelationID: "late", Kind: action.KindClick})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Answer after the deadline; the bridge must drop it silently.
	req := <-requests
	require.NoError(t, conn.WriteJSON(executor.Response{CorrelationID: req.CorrelationID, Success: true}))
	time.Sleep(50 * time.Millisecond)

	b.pendingMu.Lock()
	assert.Empty(t, b.pending)
	b.pendingMu.Unlock()
}

func TestDisconnectFailsPendingDispatch(t *testing.T) {
	b := New(Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, b.Start())
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	conn := dialBridge(t, b, "")

	errs := make(chan executor.Response, 1)
	go func() {
		resp, err := b.Dispatch(context.Background(), executor.Request{CorrelationID: "c2", Kind: action.KindClick})
		require.NoError(t, err)
		errs <- resp
	}()

	// Give the dispatch time to register, then drop the connection.
	time.Sleep(50 * time.Millisecond)
	_ = conn.Close()

	select {
	case resp := <-errs:
		assert.False(t, resp.Success)
		assert.Equal(t, "page disconnected", resp.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("pending dispatch was not failed on disconnect")
	}
}

func TestRejectsBadToken(t *testing.T) {
	b := New(Config{ListenAddr: "127.0.0.1:0", Token: "expected"})
	require.NoError(t, b.Start())
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+b.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(helloMessage{Type: "hello", Token: "wrong"}))
	var welcome welcomeMessage
	assert.Error(t, conn.ReadJSON(&welcome))
}

func TestRejectsNonLoopbackAddr(t *testing.T) {
	b := New(Config{ListenAddr: "0.0.0.0:0"})
	assert.Error(t, b.Start())
}
