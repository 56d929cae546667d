// Package channel maintains the single logical connection to the
// message server, hiding reconnect and backoff from its consumer.
package channel

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/intransparency/msgcenter/internal/status"
	"github.com/intransparency/msgcenter/internal/wire"
	"go.uber.org/zap"
)

// Policy bounds the reconnect backoff. A zero GiveUpAfter retries
// until Close is called.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	GiveUpAfter     time.Duration
}

// DefaultPolicy caps retries at 30 seconds apart and never gives up.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// Channel is the auto-recovering connection to the message server.
// It has exactly one frame consumer and one open consumer, registered
// before Connect; fan-out happens downstream on the bus, never here,
// so frame delivery order is unambiguous.
type Channel struct {
	url     string
	dial    DialFunc
	machine *status.Machine
	logger  *zap.Logger
	policy  Policy

	onFrame func(*wire.Frame)
	onOpen  func(resumed bool)

	mu      sync.Mutex
	conn    Conn
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a channel for the given endpoint. The machine must be a
// fresh one in Connecting state.
func New(url string, dial DialFunc, machine *status.Machine, policy Policy, logger *zap.Logger) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		url:     url,
		dial:    dial,
		machine: machine,
		logger:  logger,
		policy:  policy,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// OnFrame registers the single frame consumer. Must be called before
// Connect.
func (c *Channel) OnFrame(fn func(*wire.Frame)) {
	c.onFrame = fn
}

// OnOpen registers the single consumer notified each time the channel
// becomes open. resumed is false for the first open and true after a
// reconnect, signalling that state gaps may need reconciliation.
func (c *Channel) OnOpen(fn func(resumed bool)) {
	c.onOpen = fn
}

// State returns the current connection state.
func (c *Channel) State() status.State {
	return c.machine.Current()
}

// Connect starts the connection loop. Calling it again while the
// channel is running or after Close is a no-op.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.started || c.machine.Current() == status.Closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run()
}

// Send writes a frame if the channel is open. It returns false when
// the channel is not open or the write fails; frames are never queued,
// the caller decides how to surface the failure.
func (c *Channel) Send(f *wire.Frame) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || c.machine.Current() != status.Open {
		return false
	}

	data, err := f.Encode()
	if err != nil {
		c.logger.Error("encode outbound frame", zap.Error(err), zap.String("type", string(f.Type)))
		return false
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()
	if err := conn.Write(ctx, data); err != nil {
		c.logger.Warn("write frame failed", zap.Error(err), zap.String("type", string(f.Type)))
		// The read loop will observe the broken connection and drive
		// the reconnect; here we only report the failed write.
		return false
	}
	return true
}

// Close tears the channel down. The Closed state is terminal; no
// further reconnect attempts happen.
func (c *Channel) Close() {
	c.cancel()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	started := c.started
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if c.machine.Current() != status.Closed {
		_ = c.machine.Transition(status.Closed)
	}
	if started {
		<-c.done
	}
}

func (c *Channel) run() {
	defer close(c.done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.policy.InitialInterval
	bo.MaxInterval = c.policy.MaxInterval
	bo.MaxElapsedTime = c.policy.GiveUpAfter
	bo.Reset()

	resumed := false

	for {
		if c.ctx.Err() != nil {
			return
		}

		conn, err := c.dial(c.ctx, c.url)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			attempt := c.machine.RecordAttempt()
			if c.machine.Current() == status.Connecting || c.machine.Current() == status.Open {
				_ = c.machine.Transition(status.Reconnecting)
			}
			next := bo.NextBackOff()
			if next == backoff.Stop {
				c.logger.Error("reconnect give-up window elapsed", zap.Int("attempts", attempt))
				_ = c.machine.Transition(status.Closed)
				return
			}
			c.logger.Warn("dial failed",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next))
			select {
			case <-time.After(next):
			case <-c.ctx.Done():
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		if err := c.machine.Transition(status.Open); err != nil {
			// Close raced the dial; the machine is already terminal.
			_ = conn.Close()
			return
		}
		bo.Reset()
		c.logger.Info("connected", zap.String("url", c.url), zap.Bool("resumed", resumed))

		if c.onOpen != nil {
			c.onOpen(resumed)
		}
		resumed = true

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()

		if c.ctx.Err() != nil {
			return
		}
		c.logger.Warn("connection dropped")
		if err := c.machine.Transition(status.Reconnecting); err != nil {
			return
		}
	}
}

// readLoop delivers inbound frames to the consumer in arrival order
// until the connection errors. Malformed frames are dropped with a
// diagnostic; they never reach the store.
func (c *Channel) readLoop(conn Conn) {
	for {
		data, err := conn.Read(c.ctx)
		if err != nil {
			return
		}
		frame, err := wire.Decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if c.onFrame != nil {
			c.onFrame(frame)
		}
	}
}
