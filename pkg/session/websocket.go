// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket bridge
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketPort is a serial link tunnelled over a WebSocket bridge. Binary
// messages from the bridge are buffered by a background reader so Read
// never blocks, matching a serial port with a zero read timeout.
type WebSocketPort struct {
	conn *websocket.Conn
	url  string

	mu      sync.Mutex
	buf     []byte
	readErr error

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// WebSocketOptions configures the bridge dial
type WebSocketOptions struct {
	Username      string
	Password      string
	SkipSSLVerify bool
	Timeout       time.Duration
}

// DialWebSocket connects to a serial bridge at rawURL with optional HTTP
// Basic auth
func DialWebSocket(ctx context.Context, rawURL string, opts WebSocketOptions) (*WebSocketPort, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if opts.Username != "" && opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, rawURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %s: HTTP %d: %w", novastar.ErrPortUnavailable, rawURL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", novastar.ErrPortUnavailable, rawURL, err)
	}

	return NewWebSocketPort(conn, rawURL), nil
}

// NewWebSocketPort wraps an established connection and starts its reader
func NewWebSocketPort(conn *websocket.Conn, name string) *WebSocketPort {
	w := &WebSocketPort{
		conn: conn,
		url:  name,
	}
	go w.readLoop()
	return w
}

// readLoop buffers binary messages until the connection fails
func (w *WebSocketPort) readLoop() {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()
			return
		}

		// The bridge only carries serial bytes as binary messages
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.mu.Lock()
		w.buf = append(w.buf, data...)
		w.mu.Unlock()
	}
}

// Name returns the bridge URL
func (w *WebSocketPort) Name() string {
	return w.url
}

// Read returns buffered bytes, or 0 when nothing is pending
func (w *WebSocketPort) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) == 0 {
		if w.readErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, w.readErr)
		}
		return 0, nil
	}

	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

// Write sends p as one binary message
func (w *WebSocketPort) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ResetInputBuffer discards buffered bytes
func (w *WebSocketPort) ResetInputBuffer() error {
	w.mu.Lock()
	w.buf = nil
	w.mu.Unlock()
	return nil
}

// ResetOutputBuffer is a no-op; writes are sent immediately
func (w *WebSocketPort) ResetOutputBuffer() error {
	return nil
}

// Close closes the connection
func (w *WebSocketPort) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.writeMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.writeMu.Unlock()
		err = w.conn.Close()
	})
	return err
}
