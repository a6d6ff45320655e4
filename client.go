// Package atvremote is the public façade over the core pairing,
// transport, dispatch, and session layers. It contains no non-trivial
// logic of its own: every exported method is a handful of calls into
// internal/pairing, internal/connpool, internal/dispatch, and
// internal/session.
package atvremote

import (
	"context"
	"sync"

	"atvremote/internal/atverr"
	"atvremote/internal/config"
	"atvremote/internal/connpool"
	"atvremote/internal/device"
	"atvremote/internal/dispatch"
	"atvremote/internal/pairing"
	"atvremote/internal/session"
	"atvremote/pkg/log"
)

// Client is one caller's handle onto a single Apple TV device. It is
// not safe to share a Client across goroutines driving different
// devices; create one Client per device.
type Client struct {
	settings *config.Settings
	pool     *connpool.Pool

	mu      sync.Mutex
	dev     device.Device
	disp    *dispatch.Dispatcher
	session *session.Session
}

// New returns a Client using settings, or config.Default() if settings
// is nil.
func New(settings *config.Settings) *Client {
	if settings == nil {
		settings = config.Default()
	}
	return &Client{
		settings: settings,
		pool:     connpool.New(settings.IdleCacheTTL, log.Default()),
	}
}

// Connect acquires (dialing if necessary) the Companion connection for
// dev, runs pair-verify with creds, and issues the mandatory
// post-connect sequence. The Client owns the resulting session until
// Disconnect is called.
func (c *Client) Connect(ctx context.Context, dev device.Device, creds *device.Credentials) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	conn, err := c.pool.Acquire(ctx, dev.Address, dev.CompanionPort)
	if err != nil {
		return err
	}

	disp := dispatch.New(conn)
	carrier := pairing.NewCompanionCarrier(disp)
	keys, err := pairing.PairVerify(ctx, carrier, creds)
	if err != nil {
		c.pool.Evict(dev.Address, dev.CompanionPort)
		return err
	}
	conn.InstallKeys(keys)

	sess := session.New(disp, creds.ClientID, c.settings.DisplayName, dev.Model)
	if err := sess.Start(ctx); err != nil {
		c.pool.Evict(dev.Address, dev.CompanionPort)
		return err
	}

	c.mu.Lock()
	c.dev = dev
	c.disp = disp
	c.session = sess
	c.mu.Unlock()
	return nil
}

// Disconnect ends the focus-watch loop, if running, and releases the
// Companion connection back to the idle pairing-connection cache.
func (c *Client) Disconnect() {
	c.mu.Lock()
	sess := c.session
	dev := c.dev
	c.session = nil
	c.disp = nil
	c.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	if dev.Address != "" {
		c.pool.Release(dev.Address, dev.CompanionPort)
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.settings.HandshakeTimeout)
}

func (c *Client) activeSession() (*session.Session, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil, atverr.ErrNotConnected
	}
	return sess, nil
}
