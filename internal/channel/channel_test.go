package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/intransparency/msgcenter/internal/bus"
	"github.com/intransparency/msgcenter/internal/status"
	"github.com/intransparency/msgcenter/internal/wire"
	"go.uber.org/zap"
)

type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) drop() {
	_ = c.Close()
}

// scriptedDialer hands out connections in sequence, optionally failing
// a number of dials first.
type scriptedDialer struct {
	mu       sync.Mutex
	failures int
	conns    []*fakeConn
	dials    int
}

func (d *scriptedDialer) dial(_ context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	if len(d.conns) == 0 {
		return nil, errors.New("no more scripted connections")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func testPolicy() Policy {
	return Policy{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func encodeFrame(t *testing.T, frameType wire.FrameType) []byte {
	t.Helper()
	f := &wire.Frame{Type: frameType}
	data, err := f.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestConnectDeliversFramesInOrder(t *testing.T) {
	conn := newFakeConn()
	conn.in <- []byte(`{"type":"NEW_MESSAGE","data":{"id":"m1","conversationId":"c1"}}`)
	conn.in <- []byte(`{"type":"MESSAGE_READ","data":{"conversationId":"c1"}}`)
	dialer := &scriptedDialer{conns: []*fakeConn{conn}}

	machine := status.NewMachine(bus.New())
	ch := New("ws://test", dialer.dial, machine, testPolicy(), zap.NewNop())
	defer ch.Close()

	var mu sync.Mutex
	var got []wire.FrameType
	ch.OnFrame(func(f *wire.Frame) {
		mu.Lock()
		got = append(got, f.Type)
		mu.Unlock()
	})

	ch.Connect()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, "frames not delivered")

	mu.Lock()
	defer mu.Unlock()
	if got[0] != wire.TypeNewMessage || got[1] != wire.TypeMessageRead {
		t.Errorf("order = %v, want [NEW_MESSAGE MESSAGE_READ]", got)
	}
	if ch.State() != status.Open {
		t.Errorf("state = %s, want OPEN", ch.State())
	}
}

func TestSendBeforeOpenRejected(t *testing.T) {
	dialer := &scriptedDialer{conns: []*fakeConn{newFakeConn()}}
	machine := status.NewMachine(bus.New())
	ch := New("ws://test", dialer.dial, machine, testPolicy(), zap.NewNop())
	defer ch.Close()

	if ch.Send(&wire.Frame{Type: wire.TypeMarkRead}) {
		t.Error("Send succeeded before Connect")
	}
}

func TestSendWhenOpen(t *testing.T) {
	conn := newFakeConn()
	dialer := &scriptedDialer{conns: []*fakeConn{conn}}
	machine := status.NewMachine(bus.New())
	ch := New("ws://test", dialer.dial, machine, testPolicy(), zap.NewNop())
	defer ch.Close()
	ch.Connect()

	waitFor(t, func() bool { return ch.State() == status.Open }, "channel never opened")

	if !ch.Send(&wire.Frame{Type: wire.TypeMarkRead}) {
		t.Fatal("Send failed on open channel")
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.writes) != 1 {
		t.Errorf("writes = %d, want 1", len(conn.writes))
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	dialer := &scriptedDialer{conns: []*fakeConn{first, second}}
	machine := status.NewMachine(bus.New())
	ch := New("ws://test", dialer.dial, machine, testPolicy(), zap.NewNop())
	defer ch.Close()

	var mu sync.Mutex
	var opens []bool
	ch.OnOpen(func(resumed bool) {
		mu.Lock()
		opens = append(opens, resumed)
		mu.Unlock()
	})

	ch.Connect()
	waitFor(t, func() bool { return ch.State() == status.Open }, "channel never opened")

	first.drop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(opens) == 2
	}, "channel never reopened")

	mu.Lock()
	defer mu.Unlock()
	if opens[0] != false || opens[1] != true {
		t.Errorf("opens = %v, want [false true]", opens)
	}
	if ch.State() != status.Open {
		t.Errorf("state = %s, want OPEN", ch.State())
	}
}

func TestDialFailureBacksOffThenConnects(t *testing.T) {
	conn := newFakeConn()
	dialer := &scriptedDialer{failures: 3, conns: []*fakeConn{conn}}
	machine := status.NewMachine(bus.New())
	ch := New("ws://test", dialer.dial, machine, testPolicy(), zap.NewNop())
	defer ch.Close()
	ch.Connect()

	waitFor(t, func() bool { return ch.State() == status.Open }, "channel never opened")

	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	if dialer.dials != 4 {
		t.Errorf("dials = %d, want 4 (3 failures + 1 success)", dialer.dials)
	}
}

func TestMalformedFrameSkipped(t *testing.T) {
	conn := newFakeConn()
	conn.in <- []byte(`{{{not json`)
	conn.in <- encodeFrame(t, wire.TypeMessageRead)
	dialer := &scriptedDialer{conns: []*fakeConn{conn}}
	machine := status.NewMachine(bus.New())
	ch := New("ws://test", dialer.dial, machine, testPolicy(), zap.NewNop())
	defer ch.Close()

	var mu sync.Mutex
	var got []wire.FrameType
	ch.OnFrame(func(f *wire.Frame) {
		mu.Lock()
		got = append(got, f.Type)
		mu.Unlock()
	})
	ch.Connect()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "valid frame after malformed one not delivered")

	mu.Lock()
	defer mu.Unlock()
	if got[0] != wire.TypeMessageRead {
		t.Errorf("got %v, want [MESSAGE_READ]", got)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	conn := newFakeConn()
	dialer := &scriptedDialer{conns: []*fakeConn{conn}}
	machine := status.NewMachine(bus.New())
	ch := New("ws://test", dialer.dial, machine, testPolicy(), zap.NewNop())
	ch.Connect()
	waitFor(t, func() bool { return ch.State() == status.Open }, "channel never opened")

	ch.Close()
	if ch.State() != status.Closed {
		t.Errorf("state = %s, want CLOSED", ch.State())
	}

	dialer.mu.Lock()
	dialsAfterClose := dialer.dials
	dialer.mu.Unlock()

	// Connect after Close is a no-op; no further dials happen.
	ch.Connect()
	time.Sleep(20 * time.Millisecond)

	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	if dialer.dials != dialsAfterClose {
		t.Errorf("dials after close = %d, want %d", dialer.dials, dialsAfterClose)
	}
}

func TestGiveUpWindowClosesChannel(t *testing.T) {
	dialer := &scriptedDialer{failures: 1000}
	machine := status.NewMachine(bus.New())
	policy := testPolicy()
	policy.GiveUpAfter = 20 * time.Millisecond
	ch := New("ws://test", dialer.dial, machine, policy, zap.NewNop())
	defer ch.Close()
	ch.Connect()

	waitFor(t, func() bool { return ch.State() == status.Closed }, "channel never gave up")
}
