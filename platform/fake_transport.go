package platform

import (
	"bytes"
	"sync"
	"time"
)

// FakeTransport is an in-memory Transport for tests. Inbound bytes queued
// with Feed() are what ReadSome returns; bytes passed to WriteAll are
// captured for assertions. It is the single fake transport the design
// notes call for in place of the source's plain/SSL/simulated websocket
// client trio.
type FakeTransport struct {
	mu       sync.Mutex
	inbound  bytes.Buffer
	outbound bytes.Buffer
	closed   bool
	notify   chan struct{}
}

var _ Transport = (*FakeTransport)(nil)

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{notify: make(chan struct{}, 1)}
}

// Feed appends bytes that a subsequent ReadSome will return.
func (f *FakeTransport) Feed(p []byte) {
	f.mu.Lock()
	f.inbound.Write(p)
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *FakeTransport) ReadSome(buf []byte, deadline time.Time) (int, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return 0, ErrTransportClosed
		}
		if f.inbound.Len() > 0 {
			n, _ := f.inbound.Read(buf)
			f.mu.Unlock()
			return n, nil
		}
		f.mu.Unlock()

		timeout := time.Until(deadline)
		if !deadline.IsZero() && timeout <= 0 {
			return 0, errTimeout{}
		}
		wait := timeout
		if deadline.IsZero() || wait > 50*time.Millisecond {
			wait = 50 * time.Millisecond
		}
		select {
		case <-f.notify:
		case <-time.After(wait):
		}
	}
}

func (f *FakeTransport) WriteAll(p []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrTransportClosed
	}
	f.outbound.Write(p)
	return nil
}

func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Written returns a copy of everything written so far via WriteAll.
func (f *FakeTransport) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, f.outbound.Len())
	copy(out, f.outbound.Bytes())
	return out
}

type errTimeout struct{}

func (errTimeout) Error() string   { return "platform: read deadline exceeded" }
func (errTimeout) Timeout() bool   { return true }
func (errTimeout) Temporary() bool { return true }
