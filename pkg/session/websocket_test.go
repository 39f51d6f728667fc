// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
	"github.com/Thermoquad/novaprobe/pkg/simulator"
	"github.com/gorilla/websocket"
)

// ============================================================
// Bridge Server
// ============================================================

// newBridge serves a simulated sender over WebSocket, splitting each reply
// into two binary messages the way a serial bridge forwards partial reads
func newBridge(t *testing.T, dev *simulator.Device, username, password string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if username != "" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != username || pass != password {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			resp, err := dev.Exchange(frame)
			if err != nil {
				continue
			}
			half := len(resp) / 2
			_ = conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
			_ = conn.WriteMessage(websocket.BinaryMessage, resp[:half])
			_ = conn.WriteMessage(websocket.BinaryMessage, resp[half:])
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// ============================================================
// WebSocket Link Tests
// ============================================================

func TestWebSocketPort_Exchange(t *testing.T) {
	srv := newBridge(t, simulator.NewDevice(1), "admin", "secret")

	port, err := DialWebSocket(context.Background(), wsURL(srv), WebSocketOptions{
		Username: "admin",
		Password: "secret",
		Timeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	s := New(port.Name(), port, Config{Settle: 200 * time.Millisecond})
	defer s.Close()

	resp, err := s.Exchange(novastar.Build(novastar.SenderModelQuery, 0, 0))
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if err := novastar.Validate(resp); err != nil {
		t.Errorf("invalid response: %v", err)
	}
	if len(resp) <= novastar.HeaderSize {
		t.Errorf("response carries no payload: % X", resp)
	}
}

func TestDialWebSocket_Unauthorized(t *testing.T) {
	srv := newBridge(t, simulator.NewDevice(1), "admin", "secret")

	_, err := DialWebSocket(context.Background(), wsURL(srv), WebSocketOptions{
		Username: "admin",
		Password: "wrong",
		Timeout:  time.Second,
	})
	if !errors.Is(err, novastar.ErrPortUnavailable) {
		t.Errorf("expected ErrPortUnavailable, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("status missing from %v", err)
	}
}

func TestDialWebSocket_InvalidScheme(t *testing.T) {
	if _, err := DialWebSocket(context.Background(), "http://localhost:1", WebSocketOptions{}); err == nil {
		t.Error("http:// must be rejected")
	}
}

func TestWebSocketPort_ReadAfterBridgeCloses(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge restarting"))
		conn.Close()
	}))
	defer srv.Close()

	port, err := DialWebSocket(context.Background(), wsURL(srv), WebSocketOptions{Timeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer port.Close()

	buf := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := port.Read(buf)
		if errors.Is(err, ErrConnectionClosed) {
			return
		}
		if n != 0 || err != nil {
			t.Fatalf("unexpected read %d %v", n, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("read never reported the closed bridge")
}

func TestWebSocketPort_CloseTwice(t *testing.T) {
	srv := newBridge(t, simulator.NewDevice(1), "", "")

	port, err := DialWebSocket(context.Background(), wsURL(srv), WebSocketOptions{Timeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := port.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := port.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
