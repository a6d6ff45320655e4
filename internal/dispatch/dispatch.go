// Package dispatch multiplexes one Companion connection's frame stream
// into three client-facing operations: request/response correlation by
// transaction id, event fan-out by identifier, and the auth-frame
// exchange pair-setup/pair-verify run over the framed transport.
//
// Grounded on the mutex-guarded callback/registry idiom in
// internal/podstate's PodStateCoordinator (registered callbacks under a
// single RWMutex, a stopChan-gated teardown), adapted here to
// request/response channels instead of broadcast callbacks, since each
// outbound command has exactly one reply rather than many interested
// listeners.
package dispatch

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"sync"

	"atvremote/internal/atverr"
	"atvremote/internal/opack"
	"atvremote/internal/transport"
	"atvremote/pkg/log"
)

// Message types carried in the _t field of every OPACK message frame.
const (
	MessageEvent    uint64 = 1
	MessageRequest  uint64 = 2
	MessageResponse uint64 = 3
)

// EventHandler receives the decoded content of one event frame.
type EventHandler func(content interface{})

// Dispatcher owns the demultiplexing state for a single Companion
// connection. It is the connection's sole frame listener.
type Dispatcher struct {
	conn *transport.Connection

	mu               sync.Mutex
	pendingAuth      map[transport.FrameType]chan authReply
	pendingRequests  map[uint32]chan requestReply
	eventListeners   map[string][]EventHandler
	nextTransaction  uint32
	closed           bool
}

type authReply struct {
	payload []byte
	err     error
}

type requestReply struct {
	content interface{}
	err     error
}

// New wires a Dispatcher to conn, installing itself as the connection's
// listener. The starting transaction id is sampled uniformly from
// [0, 2^16) to reduce collision risk across reconnects.
func New(conn *transport.Connection) *Dispatcher {
	var seed [2]byte
	_, _ = rand.Read(seed[:])
	start := uint32(binary.BigEndian.Uint16(seed[:]))

	d := &Dispatcher{
		conn:            conn,
		pendingAuth:     make(map[transport.FrameType]chan authReply),
		pendingRequests: make(map[uint32]chan requestReply),
		eventListeners:  make(map[string][]EventHandler),
		nextTransaction: start,
	}
	conn.SetListener(d.handleFrame)
	conn.SetCloseListener(d.ConnectionLost)
	return d
}

// replyTypeFor returns the frame type an auth request of reqType will
// be answered with: a *_Start request is replied with *_Next; a
// *_Next request is replied with *_Next.
func replyTypeFor(reqType transport.FrameType) transport.FrameType {
	switch reqType {
	case transport.PSStart, transport.PSNext:
		return transport.PSNext
	case transport.PVStart, transport.PVNext:
		return transport.PVNext
	default:
		return reqType
	}
}

// ExchangeAuth sends one auth sub-protocol frame and waits for its
// reply, satisfying internal/pairing's AuthExchanger interface. The
// reply bytes are the raw (still OPACK-encoded) frame payload; the
// pairing carrier unwraps the _pd field itself.
func (d *Dispatcher) ExchangeAuth(ctx context.Context, reqType transport.FrameType, payload []byte) ([]byte, error) {
	replyType := replyTypeFor(reqType)
	ch := make(chan authReply, 1)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, atverr.ErrConnectionLost
	}
	d.pendingAuth[replyType] = ch
	d.mu.Unlock()

	if err := d.conn.Send(reqType, payload); err != nil {
		d.mu.Lock()
		delete(d.pendingAuth, replyType)
		d.mu.Unlock()
		return nil, err
	}

	select {
	case r := <-ch:
		return r.payload, r.err
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.pendingAuth, replyType)
		d.mu.Unlock()
		return nil, atverr.TimeoutForFrame("exchange_auth", replyType.String())
	}
}

// SendCommand issues a request addressed to identifier and waits for
// its matching response.
func (d *Dispatcher) SendCommand(ctx context.Context, identifier string, content interface{}) (interface{}, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, atverr.ErrConnectionLost
	}
	xid := d.nextTransaction
	d.nextTransaction++
	ch := make(chan requestReply, 1)
	d.pendingRequests[xid] = ch
	d.mu.Unlock()

	msg := opack.NewMap().
		Set("_i", identifier).
		Set("_t", MessageRequest).
		Set("_c", content).
		Set("_x", uint64(xid))

	if err := d.conn.Send(transport.EOPACK, opack.Pack(msg)); err != nil {
		d.mu.Lock()
		delete(d.pendingRequests, xid)
		d.mu.Unlock()
		return nil, err
	}

	select {
	case r := <-ch:
		return r.content, r.err
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.pendingRequests, xid)
		d.mu.Unlock()
		return nil, atverr.TimeoutFor("send_command", xid)
	}
}

// SendEvent fires content at identifier without awaiting a reply.
func (d *Dispatcher) SendEvent(identifier string, content interface{}) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return atverr.ErrConnectionLost
	}
	xid := d.nextTransaction
	d.nextTransaction++
	d.mu.Unlock()

	msg := opack.NewMap().
		Set("_i", identifier).
		Set("_t", MessageEvent).
		Set("_c", content).
		Set("_x", uint64(xid))
	return d.conn.Send(transport.EOPACK, opack.Pack(msg))
}

// SubscribeEvent registers interest in name with the peer.
func (d *Dispatcher) SubscribeEvent(name string) error {
	content := opack.NewMap().Set("_regEvents", []interface{}{name})
	return d.SendEvent("_interest", content)
}

// OnEvent registers fn to receive every event frame addressed to
// identifier. Returns a function that removes the registration.
func (d *Dispatcher) OnEvent(identifier string, fn EventHandler) (cancel func()) {
	d.mu.Lock()
	d.eventListeners[identifier] = append(d.eventListeners[identifier], fn)
	idx := len(d.eventListeners[identifier]) - 1
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		handlers := d.eventListeners[identifier]
		if idx < len(handlers) {
			handlers[idx] = nil
		}
	}
}

func (d *Dispatcher) handleFrame(f transport.Frame) {
	switch f.Type {
	case transport.PSStart, transport.PSNext, transport.PVStart, transport.PVNext:
		d.mu.Lock()
		ch, ok := d.pendingAuth[f.Type]
		if ok {
			delete(d.pendingAuth, f.Type)
		}
		d.mu.Unlock()
		if ok {
			ch <- authReply{payload: f.Payload}
		}
	case transport.UOPACK, transport.EOPACK, transport.POPACK:
		d.handleMessage(f.Payload)
	}
}

func (d *Dispatcher) handleMessage(payload []byte) {
	decoded, err := opack.Unpack(payload)
	if err != nil {
		log.Default().WithError(err).Debug("dropping OPACK frame that failed to decode")
		return
	}
	msg, ok := decoded.(*opack.Map)
	if !ok {
		return
	}
	msgType, _ := msg.Get("_t")
	content, _ := msg.Get("_c")

	switch toUint64(msgType) {
	case MessageResponse:
		xidVal, _ := msg.Get("_x")
		xid := uint32(toUint64(xidVal))
		d.mu.Lock()
		ch, ok := d.pendingRequests[xid]
		if ok {
			delete(d.pendingRequests, xid)
		}
		d.mu.Unlock()
		if ok {
			ch <- requestReply{content: content}
		}
	case MessageEvent:
		idVal, _ := msg.Get("_i")
		identifier, _ := idVal.(string)
		d.mu.Lock()
		handlers := append([]EventHandler(nil), d.eventListeners[identifier]...)
		d.mu.Unlock()
		for _, h := range handlers {
			if h != nil {
				h(content)
			}
		}
	}
}

// ConnectionLost rejects every pending auth and request entry with
// ErrConnectionLost and drops all event listeners. Called once the
// underlying transport's read loop observes EOF or an error.
func (d *Dispatcher) ConnectionLost() {
	d.mu.Lock()
	d.closed = true
	pendingAuth := d.pendingAuth
	d.pendingAuth = make(map[transport.FrameType]chan authReply)
	pendingRequests := d.pendingRequests
	d.pendingRequests = make(map[uint32]chan requestReply)
	d.eventListeners = make(map[string][]EventHandler)
	d.mu.Unlock()

	for _, ch := range pendingAuth {
		ch <- authReply{err: atverr.ErrConnectionLost}
	}
	for _, ch := range pendingRequests {
		ch <- requestReply{err: atverr.ErrConnectionLost}
	}
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case int:
		return uint64(n)
	case float64:
		return uint64(math.Round(n))
	default:
		return 0
	}
}
