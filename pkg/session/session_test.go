// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Thermoquad/novaprobe/pkg/novastar"
)

// ============================================================
// Fake Port
// ============================================================

// fakePort records operations and replays canned read chunks per write
type fakePort struct {
	mu       sync.Mutex
	ops      []string
	written  [][]byte
	replies  [][][]byte // chunks per write
	pending  [][]byte
	readErr  error
	writeErr error
	closed   int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakePort) record(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.record("read")
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		if f.readErr != nil {
			return 0, f.readErr
		}
		return 0, nil
	}
	n := copy(p, f.pending[0])
	f.pending = f.pending[1:]
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	cur := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if cur <= max || f.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	f.record("write")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), p...))
	if len(f.replies) > 0 {
		f.pending = f.replies[0]
		f.replies = f.replies[1:]
	}
	time.Sleep(time.Millisecond)
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.record("close")
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakePort) ResetInputBuffer() error {
	f.record("reset-in")
	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()
	return nil
}

func (f *fakePort) ResetOutputBuffer() error {
	f.record("reset-out")
	return nil
}

func noSleep(time.Duration) {}

func newTestSession(port *fakePort, opts ...Option) *Session {
	opts = append([]Option{WithSleep(noSleep)}, opts...)
	return New("test", port, DefaultConfig(), opts...)
}

// ============================================================
// Exchange Tests
// ============================================================

func TestExchange_Sequence(t *testing.T) {
	resp := []byte{0xAA, 0x55, 0x00, 0x01}
	port := &fakePort{replies: [][][]byte{{resp}}}

	var slept time.Duration
	s := New("test", port, Config{Settle: 300 * time.Millisecond}, WithSleep(func(d time.Duration) {
		slept = d
		port.record("sleep")
	}))

	frame := novastar.Build(novastar.Connection, 0, 0)
	got, err := s.Exchange(frame)
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if !reflect.DeepEqual(got, resp) {
		t.Errorf("unexpected response % X", got)
	}
	if slept != 300*time.Millisecond {
		t.Errorf("expected 300ms settle, got %v", slept)
	}

	want := []string{"reset-in", "reset-out", "write", "sleep", "read", "read"}
	if !reflect.DeepEqual(port.ops, want) {
		t.Errorf("operation order:\n  got  %v\n  want %v", port.ops, want)
	}
	if !reflect.DeepEqual(port.written[0], frame) {
		t.Error("frame not written verbatim")
	}
}

func TestExchange_ChunkedRead(t *testing.T) {
	port := &fakePort{replies: [][][]byte{{{0xAA, 0x55}, {0x00, 0x10}, {0x20}}}}
	s := newTestSession(port)

	got, err := s.Exchange([]byte{0x55, 0xAA})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []byte{0xAA, 0x55, 0x00, 0x10, 0x20}) {
		t.Errorf("chunks not joined: % X", got)
	}
}

func TestExchange_NoResponse(t *testing.T) {
	port := &fakePort{}
	s := newTestSession(port)

	_, err := s.Exchange([]byte{0x55, 0xAA})
	if !errors.Is(err, novastar.ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got %v", err)
	}

	stats := s.Statistics()
	if stats.NoResponses != 1 || stats.TransportErrors != 0 {
		t.Errorf("unexpected statistics %+v", stats)
	}
}

func TestExchange_StaleInputFlushed(t *testing.T) {
	port := &fakePort{pending: [][]byte{{0xDE, 0xAD}}}
	s := newTestSession(port)

	_, err := s.Exchange([]byte{0x55, 0xAA})
	if !errors.Is(err, novastar.ErrNoResponse) {
		t.Errorf("stale bytes must be discarded before writing, got %v", err)
	}
}

func TestExchange_Errors(t *testing.T) {
	t.Run("write", func(t *testing.T) {
		port := &fakePort{writeErr: errors.New("boom")}
		_, err := newTestSession(port).Exchange([]byte{0x55})
		if err == nil || errors.Is(err, novastar.ErrNoResponse) {
			t.Errorf("expected write error, got %v", err)
		}
	})

	t.Run("read without data", func(t *testing.T) {
		port := &fakePort{readErr: errors.New("unplugged")}
		_, err := newTestSession(port).Exchange([]byte{0x55})
		if err == nil || errors.Is(err, novastar.ErrNoResponse) {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("read error after data keeps data", func(t *testing.T) {
		port := &fakePort{replies: [][][]byte{{{0xAA, 0x55, 0x00}}}, readErr: errors.New("eof")}
		got, err := newTestSession(port).Exchange([]byte{0x55})
		if err != nil || len(got) != 3 {
			t.Errorf("expected 3 bytes, got % X (%v)", got, err)
		}
	})
}

func TestExchange_Serialized(t *testing.T) {
	port := &fakePort{}
	s := New("test", port, DefaultConfig(), WithSleep(func(time.Duration) { time.Sleep(time.Millisecond) }))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Exchange([]byte{0x55, 0xAA})
		}()
	}
	wg.Wait()

	if port.maxInFlight.Load() != 1 {
		t.Errorf("exchanges overlapped: max in flight %d", port.maxInFlight.Load())
	}
	if s.Statistics().TotalExchanges != 8 {
		t.Errorf("expected 8 exchanges, got %d", s.Statistics().TotalExchanges)
	}
}

func TestExchangeContext_Deadline(t *testing.T) {
	port := &fakePort{}
	release := make(chan struct{})
	s := New("test", port, DefaultConfig(), WithSleep(func(time.Duration) { <-release }))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.ExchangeContext(ctx, []byte{0x55})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestExchange_Observer(t *testing.T) {
	port := &fakePort{replies: [][][]byte{{{0xAA, 0x55, 0x00}}}}
	var calls int
	s := newTestSession(port, WithObserver(func(req, resp []byte, err error, _ time.Duration) {
		calls++
		if len(resp) != 3 || err != nil {
			t.Errorf("observer saw resp=% X err=%v", resp, err)
		}
	}))

	if _, err := s.Exchange([]byte{0x55}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("expected 1 observer call, got %d", calls)
	}
}

// ============================================================
// Close Tests
// ============================================================

func TestClose(t *testing.T) {
	port := &fakePort{}
	s := newTestSession(port)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if port.closed != 1 {
		t.Errorf("port closed %d times", port.closed)
	}
	if _, err := s.Exchange([]byte{0x55}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Settle: -1}.withDefaults()
	if c.BaudRate != 115200 || c.Settle != 0 {
		t.Errorf("unexpected defaults %+v", c)
	}
}

func TestOpenSerial_MissingPort(t *testing.T) {
	_, err := OpenSerial("/dev/novaprobe-does-not-exist", 115200)
	if !errors.Is(err, novastar.ErrPortUnavailable) {
		t.Errorf("expected ErrPortUnavailable, got %v", err)
	}
}
