package transport

import (
	"net"
	"sync"
	"sync/atomic"

	"atvremote/internal/atverr"
	"atvremote/internal/crypto"
	"atvremote/pkg/log"
)

// Listener receives frames delivered by a Connection's read loop.
type Listener func(Frame)

func noopListener(Frame) {}

// Connection owns a single Companion TCP socket. It is the sole
// producer of inbound frames (delivered synchronously to its
// listener) and the sole consumer of outbound frames; callers never
// touch the socket directly.
type Connection struct {
	conn net.Conn
	log  log.Logger

	writeMu sync.Mutex

	keysMu    sync.RWMutex
	outputKey []byte
	inputKey  []byte

	outCounter uint64
	inCounter  uint64

	listenerMu sync.RWMutex
	listener   Listener

	closeListenerMu sync.RWMutex
	closeListener   func()

	closeOnce sync.Once
	closed    int32
}

// NewConnection wraps an already-dialed net.Conn and starts its read
// loop. The caller must call SetListener before frames are expected;
// frames arriving with no listener installed are delivered to a
// no-op sink.
func NewConnection(conn net.Conn, logger log.Logger) *Connection {
	if logger == nil {
		logger = log.Default()
	}
	c := &Connection{
		conn:     conn,
		log:      logger,
		listener: noopListener,
	}
	go c.readLoop()
	return c
}

// SetListener installs fn as the receiver of every subsequent frame.
// A nil fn installs a no-op sink, used when a connection is released
// back to the idle pairing-connection cache so in-flight events do
// not surface after release.
func (c *Connection) SetListener(fn Listener) {
	if fn == nil {
		fn = noopListener
	}
	c.listenerMu.Lock()
	c.listener = fn
	c.listenerMu.Unlock()
}

// SetCloseListener installs fn to be called exactly once, when the
// read loop observes EOF or an error, or Close is called. Used by the
// dispatch layer to reject pending requests on connection loss.
func (c *Connection) SetCloseListener(fn func()) {
	c.closeListenerMu.Lock()
	c.closeListener = fn
	c.closeListenerMu.Unlock()
}

// InstallKeys activates AEAD encryption for all subsequent sends and
// receives. Called once pair-verify completes.
func (c *Connection) InstallKeys(keys crypto.SessionKeys) {
	c.keysMu.Lock()
	c.outputKey = keys.OutputKey
	c.inputKey = keys.InputKey
	c.keysMu.Unlock()
}

// Send serializes and writes one frame. Outbound frames are
// serialized under writeMu so two concurrent sends can never
// interleave their bytes.
func (c *Connection) Send(t FrameType, payload []byte) error {
	if atomic.LoadInt32(&c.closed) != 0 {
		return atverr.ErrClosed
	}

	c.keysMu.RLock()
	outputKey := c.outputKey
	c.keysMu.RUnlock()

	// The counter must be allocated in the same critical section as
	// the write: two concurrent sends racing between counter
	// allocation and transmission could put frame N+1 on the wire
	// before frame N, desynchronizing the peer's receive counter.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	wire := payload
	n := len(payload)
	if outputKey != nil && len(payload) > 0 {
		n = len(payload) + aeadTagLen
	}
	header := encodeHeader(t, n)

	if outputKey != nil && len(payload) > 0 {
		counter := c.outCounter
		c.outCounter++
		ct, err := crypto.Seal(outputKey, crypto.CounterNonce(counter), header[:], payload)
		if err != nil {
			return atverr.Crypto("frame_seal", err)
		}
		wire = ct
	}

	if _, err := c.conn.Write(header[:]); err != nil {
		return atverr.Transport("write_header", err)
	}
	if len(wire) > 0 {
		if _, err := c.conn.Write(wire); err != nil {
			return atverr.Transport("write_payload", err)
		}
	}
	return nil
}

// Close tears down the socket. Safe to call more than once.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
		c.fireCloseListener()
	})
	return err
}

func (c *Connection) fireCloseListener() {
	c.closeListenerMu.RLock()
	fn := c.closeListener
	c.closeListenerMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Connection) readLoop() {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = c.drainFrames(buf)
		}
		if err != nil {
			c.teardown()
			return
		}
	}
}

// drainFrames consumes as many complete frames as buf currently holds
// and returns the unconsumed remainder.
func (c *Connection) drainFrames(buf []byte) []byte {
	for len(buf) >= headerLen {
		_, length := decodeHeader(buf)
		if len(buf) < headerLen+length {
			break
		}
		frameType, _ := decodeHeader(buf)
		payload := buf[headerLen : headerLen+length]
		buf = buf[headerLen+length:]
		c.deliver(frameType, payload)
	}
	return buf
}

func (c *Connection) deliver(t FrameType, payload []byte) {
	plaintext := payload

	c.keysMu.RLock()
	inputKey := c.inputKey
	c.keysMu.RUnlock()

	if inputKey != nil && len(payload) > 0 {
		counter := atomic.AddUint64(&c.inCounter, 1) - 1
		header := encodeHeader(t, len(payload))
		pt, err := crypto.Open(inputKey, crypto.CounterNonce(counter), header[:], payload)
		if err != nil {
			c.log.WithError(err).WithField("frame_type", t.String()).Debug("dropping frame that failed AEAD verification")
			return
		}
		plaintext = pt
	}

	c.listenerMu.RLock()
	listener := c.listener
	c.listenerMu.RUnlock()
	listener(Frame{Type: t, Payload: plaintext})
}

// teardown runs when the read loop observes EOF or an I/O error. It
// reuses closeOnce so a close initiated by a read failure and one
// initiated by an explicit Close call never fire the close listener
// twice, whichever happens first.
func (c *Connection) teardown() {
	atomic.StoreInt32(&c.closed, 1)
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
		c.fireCloseListener()
	})
}
