package connpool

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenerPort(t *testing.T) (string, uint16) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 4096)
				for {
					if _, err := c.Read(buf); err != nil {
						c.Close()
						return
					}
				}
			}()
		}
	}()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return "127.0.0.1", uint16(port)
}

func TestAcquireDialsThenCachesConnection(t *testing.T) {
	host, port := listenerPort(t)
	p := New(time.Hour, nil)

	c1, err := p.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	c2, err := p.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestReleaseThenAcquireReturnsSameConnection(t *testing.T) {
	host, port := listenerPort(t)
	p := New(time.Hour, nil)

	c1, err := p.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	p.Release(host, port)

	c2, err := p.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestEvictClosesAndRemovesConnection(t *testing.T) {
	host, port := listenerPort(t)
	p := New(time.Hour, nil)

	_, err := p.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	p.Evict(host, port)

	p.mu.Lock()
	_, stillPresent := p.entries[key(host, port)]
	p.mu.Unlock()
	assert.False(t, stillPresent)
}

func listenerPortWithConns(t *testing.T) (string, uint16, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	conns := make(chan net.Conn, 4)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- c
			go func() {
				buf := make([]byte, 4096)
				for {
					if _, err := c.Read(buf); err != nil {
						return
					}
				}
			}()
		}
	}()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return "127.0.0.1", uint16(port), conns
}

func TestReleasedConnectionErrorEvictsPromptly(t *testing.T) {
	host, port, conns := listenerPortWithConns(t)
	p := New(time.Hour, nil)

	_, err := p.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	p.Release(host, port)

	var serverConn net.Conn
	select {
	case serverConn = <-conns:
	case <-time.After(time.Second):
		t.Fatal("server never observed accepted connection")
	}
	serverConn.Close()

	assert.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, present := p.entries[key(host, port)]
		return !present
	}, time.Second, 5*time.Millisecond, "idle connection should be evicted promptly on error, not only after the hour-long idle timeout")
}

func TestIdleTimeoutEvictsAfterRelease(t *testing.T) {
	host, port := listenerPort(t)
	p := New(20*time.Millisecond, nil)

	_, err := p.Acquire(context.Background(), host, port)
	require.NoError(t, err)
	p.Release(host, port)

	assert.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, present := p.entries[key(host, port)]
		return !present
	}, time.Second, 5*time.Millisecond)
}
