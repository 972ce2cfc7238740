package bridge

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// connCounter tracks live protocol connections. It is shared across
// listener generations so connections accepted before a reconfigure stay
// counted until they close.
type connCounter struct {
	n atomic.Int64
}

func (c *connCounter) inc() { c.n.Add(1) }

// dec never drives the counter negative even if called spuriously.
func (c *connCounter) dec() {
	if c.n.Add(-1) < 0 {
		c.n.Store(0)
	}
}

func (c *connCounter) count() int64 { return c.n.Load() }

// drain waits until the counter reaches zero or the deadline passes.
func (c *connCounter) drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for c.n.Load() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(20 * time.Millisecond)
	}
	return true
}

// countingListener wraps a net.Listener, counting each accepted connection
// and reporting accept errors that were not caused by a deliberate Close.
type countingListener struct {
	net.Listener

	counter *connCounter
	onError func(error)

	closed    atomic.Bool
	closeOnce sync.Once
}

func newCountingListener(ln net.Listener, counter *connCounter, onError func(error)) *countingListener {
	return &countingListener{Listener: ln, counter: counter, onError: onError}
}

func (l *countingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		if !l.closed.Load() && l.onError != nil {
			l.onError(err)
		}
		return nil, err
	}
	l.counter.inc()
	return &countedConn{Conn: conn, counter: l.counter}, nil
}

func (l *countingListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		err = l.Listener.Close()
	})
	return err
}

// countedConn decrements the counter exactly once on close, including
// abnormal teardown paths that call Close more than once.
type countedConn struct {
	net.Conn

	counter *connCounter
	once    sync.Once
}

func (c *countedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.counter.dec)
	return err
}
