// Package wsexec exposes a loopback WebSocket endpoint that a browser
// extension connects to. Dispatched actions become correlated JSON commands
// on that connection.
package wsexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivikasavnish/go-replay/pkg/executor"
)

const protocolVersion = 1

// Config configures the bridge endpoint.
type Config struct {
	ListenAddr string
	Token      string
	Timeout    time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	out.ListenAddr = strings.TrimSpace(out.ListenAddr)
	out.Token = strings.TrimSpace(out.Token)
	if out.ListenAddr == "" {
		out.ListenAddr = "127.0.0.1:8765"
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	return out
}

// Bridge hosts the WebSocket endpoint and implements executor.Executor over
// the connected page. One command is in flight per correlation id; responses
// for unknown or expired ids are dropped.
type Bridge struct {
	cfg Config

	mu      sync.RWMutex
	ln      net.Listener
	httpSrv *http.Server
	addr    string
	conn    *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan executor.Response
}

// New creates a bridge; call Start to begin listening.
func New(cfg Config) *Bridge {
	return &Bridge{
		cfg:     cfg.withDefaults(),
		pending: make(map[string]chan executor.Response),
	}
}

// Addr returns the bound listen address, or "" before Start.
func (b *Bridge) Addr() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.addr
}

// Connected reports whether a page is attached.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil
}

// Start binds the loopback listener and begins accepting the extension
// connection on /ws.
func (b *Bridge) Start() error {
	b.mu.Lock()
	if b.ln != nil {
		b.mu.Unlock()
		return nil
	}
	cfg := b.cfg
	b.mu.Unlock()

	host, _, err := net.SplitHostPort(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("invalid listen addr %q: %w", cfg.ListenAddr, err)
	}
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return fmt.Errorf("listen addr must bind to loopback, got %q", cfg.ListenAddr)
		}
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", cfg.ListenAddr, err)
	}
	addr := ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	b.mu.Lock()
	b.ln = ln
	b.httpSrv = httpSrv
	b.addr = addr
	b.mu.Unlock()

	go func() {
		_ = httpSrv.Serve(ln)
	}()

	return nil
}

// Close shuts the endpoint down and fails all in-flight dispatches.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	srv := b.httpSrv
	conn := b.conn
	b.httpSrv = nil
	b.conn = nil
	b.ln = nil
	b.addr = ""
	b.mu.Unlock()

	b.failAllPending("bridge closed")

	if conn != nil {
		_ = conn.Close()
	}
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

// WaitForConnected blocks until a page attaches or the timeout elapses.
func (b *Bridge) WaitForConnected(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = b.cfg.Timeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if b.Connected() {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-ticker.C:
		}
	}
}

// Dispatch implements executor.Executor. It writes one correlated command and
// waits for the matching response or ctx expiry; a late response finds its
// pending entry gone and is discarded.
func (b *Bridge) Dispatch(ctx context.Context, req executor.Request) (executor.Response, error) {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return executor.Response{}, executor.ErrNotConnected
	}
	if req.CorrelationID == "" {
		return executor.Response{}, errors.New("correlation id is required")
	}

	ch := make(chan executor.Response, 1)
	b.pendingMu.Lock()
	b.pending[req.CorrelationID] = ch
	b.pendingMu.Unlock()

	if err := b.writeJSON(conn, req); err != nil {
		b.dropPending(req.CorrelationID)
		return executor.Response{}, err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		b.dropPending(req.CorrelationID)
		return executor.Response{}, ctx.Err()
	case resp := <-ch:
		return resp, nil
	}
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := b.accept(conn); err != nil {
		_ = conn.Close()
	}
}

type helloMessage struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Client  string `json:"client,omitempty"`
	Version int    `json:"version,omitempty"`
}

type welcomeMessage struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

func (b *Bridge) accept(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	var hello helloMessage
	if err := json.Unmarshal(data, &hello); err != nil {
		return fmt.Errorf("parse hello: %w", err)
	}
	if strings.ToLower(strings.TrimSpace(hello.Type)) != "hello" {
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}
	if b.cfg.Token != "" && hello.Token != b.cfg.Token {
		return errors.New("unauthorized")
	}

	_ = conn.SetReadDeadline(time.Time{})
	if err := b.writeJSON(conn, welcomeMessage{Type: "welcome", Version: protocolVersion}); err != nil {
		return err
	}

	b.mu.Lock()
	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.conn = conn
	b.mu.Unlock()

	go b.readLoop(conn)
	return nil
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		b.handleMessage(data)
	}

	b.mu.Lock()
	disconnected := b.conn == conn
	if disconnected {
		b.conn = nil
	}
	b.mu.Unlock()
	if disconnected {
		b.failAllPending("page disconnected")
	}
	_ = conn.Close()
}

func (b *Bridge) handleMessage(data []byte) {
	var resp executor.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}
	if resp.CorrelationID == "" {
		return
	}

	b.pendingMu.Lock()
	ch := b.pending[resp.CorrelationID]
	delete(b.pending, resp.CorrelationID)
	b.pendingMu.Unlock()
	if ch == nil {
		// Late or unknown correlation id: discard.
		return
	}
	ch <- resp
}

func (b *Bridge) dropPending(id string) {
	b.pendingMu.Lock()
	delete(b.pending, id)
	b.pendingMu.Unlock()
}

func (b *Bridge) failAllPending(reason string) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	for id, ch := range b.pending {
		delete(b.pending, id)
		ch <- executor.Response{CorrelationID: id, Success: false, Error: reason}
	}
}

func (b *Bridge) writeJSON(conn *websocket.Conn, v any) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if conn == nil {
		return executor.ErrNotConnected
	}
	return conn.WriteJSON(v)
}
