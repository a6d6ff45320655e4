// Package connpool caches Companion connections across the idle
// periods between façade calls so a caller issuing several operations
// in a row reuses the open socket instead of dialing a new one for
// each. The pool caches only the socket: pair-verify and the
// post-connect sequence are still run on a reused connection.
//
// Grounded on internal/podstate.Coordinator and internal/battery.Manager's
// Close idiom (stop a timer, tear down the resource, remove it from
// shared state under a mutex) — generalized here from "on demand" to
// "after an idle timeout".
package connpool

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"atvremote/internal/atverr"
	"atvremote/internal/transport"
	"atvremote/pkg/log"
)

// Pool caches one *transport.Connection per host:port, evicting it
// after idleTTL of inactivity following a Release.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
	idleTTL time.Duration
	dialer  net.Dialer
	logger  log.Logger
}

type entry struct {
	conn  *transport.Connection
	timer *time.Timer
}

// New returns an empty pool. idleTTL is nominally 120 seconds (§5/§9).
func New(idleTTL time.Duration, logger log.Logger) *Pool {
	if logger == nil {
		logger = log.Default()
	}
	return &Pool{
		entries: make(map[string]*entry),
		idleTTL: idleTTL,
		logger:  logger,
	}
}

func key(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}

// Acquire returns the cached connection for host:port, dialing a new
// one if none is cached. A connection returned from the cache has any
// pending idle-eviction timer cancelled.
func (p *Pool) Acquire(ctx context.Context, host string, port uint16) (*transport.Connection, error) {
	k := key(host, port)

	p.mu.Lock()
	if e, ok := p.entries[k]; ok {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		p.mu.Unlock()
		return e.conn, nil
	}
	p.mu.Unlock()

	conn, err := p.dialer.DialContext(ctx, "tcp", k)
	if err != nil {
		return nil, atverr.Transport("dial", err)
	}
	c := transport.NewConnection(conn, p.logger)

	p.mu.Lock()
	p.entries[k] = &entry{conn: c}
	p.mu.Unlock()
	return c, nil
}

// Release returns a connection to the idle pool: its listener is
// swapped for a no-op sink so in-flight frames after release are
// silently dropped rather than reaching a caller that has moved on,
// its close listener is rewired to evict it from the pool the moment
// its socket errors, and an idle-eviction timer is armed as a backstop.
func (p *Pool) Release(host string, port uint16) {
	k := key(host, port)

	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[k]
	if !ok {
		return
	}
	e.conn.SetListener(nil)
	e.conn.SetCloseListener(func() { p.Evict(host, port) })
	e.timer = time.AfterFunc(p.idleTTL, func() { p.Evict(host, port) })
}

// Evict removes host:port from the pool and closes its connection, if
// present. Safe to call on an already-closed or already-absent entry.
func (p *Pool) Evict(host string, port uint16) {
	k := key(host, port)

	p.mu.Lock()
	e, ok := p.entries[k]
	if ok {
		delete(p.entries, k)
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	_ = e.conn.Close()
}
