// Package atverr defines the error kinds surfaced by the core packages,
// per the error handling design: decode errors fail closed, crypto and
// pairing errors are terminal, transport/timeout errors carry enough
// context for a caller to distinguish "try again" from "give up".
package atverr

import "fmt"

// CodecError reports malformed OPACK, TLV8 or bplist input. Inputs read
// off the wire are never trusted, so decoders return this instead of
// panicking on short or ill-formed buffers.
type CodecError struct {
	Codec string // "opack", "tlv8", "bplist"
	Kind  string // "truncated", "unknown_tag", "bad_backref"
	Detail string
}

func (e *CodecError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Codec, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Codec, e.Kind, e.Detail)
}

func Truncated(codec, detail string) *CodecError {
	return &CodecError{Codec: codec, Kind: "truncated", Detail: detail}
}

func UnknownTag(codec string, tag byte) *CodecError {
	return &CodecError{Codec: codec, Kind: "unknown_tag", Detail: fmt.Sprintf("0x%02x", tag)}
}

func BadBackref(codec string, idx int) *CodecError {
	return &CodecError{Codec: codec, Kind: "bad_backref", Detail: fmt.Sprintf("%d", idx)}
}

// CryptoError wraps an ECDH, signature or AEAD failure. These are
// terminal: the caller aborts the pairing or session attempt.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err) }
func (e *CryptoError) Unwrap() error { return e.Err }

func Crypto(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// PairingErrorCode enumerates the HAP TLV error tag (0x07) values.
type PairingErrorCode uint8

const (
	PairingUnknown           PairingErrorCode = 1
	PairingAuthenticationFailed PairingErrorCode = 2
	PairingBackoff           PairingErrorCode = 3
	PairingUnknownPeer       PairingErrorCode = 4
	PairingMaxPeers          PairingErrorCode = 5
	PairingMaxAuthAttempts   PairingErrorCode = 6
)

// PairingError is a peer-reported TLV error that short-circuits a
// pair-setup or pair-verify state machine.
type PairingError struct {
	Code    PairingErrorCode
	Message string
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("pairing error %d: %s", e.Code, e.Message)
}

func Pairing(code PairingErrorCode) *PairingError {
	var msg string
	switch code {
	case PairingAuthenticationFailed:
		msg = "authentication failed (likely wrong PIN)"
	case PairingBackoff:
		msg = "peer requested backoff"
	case PairingUnknownPeer:
		msg = "unknown peer"
	case PairingMaxPeers:
		msg = "maximum number of peers reached"
	case PairingMaxAuthAttempts:
		msg = "maximum authentication attempts reached"
	default:
		msg = "unknown pairing error"
	}
	return &PairingError{Code: code, Message: msg}
}

// TransportError reports a socket-level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport: %s", e.Op)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }

// ErrNotConnected is returned by the façade's device operations when
// no Companion session is currently connected.
var ErrNotConnected = &TransportError{Op: "not_connected"}

// ErrClosed is returned by transport operations after the connection's
// read loop has observed EOF or an explicit Close.
var ErrClosed = &TransportError{Op: "closed"}

func Transport(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// TimeoutError reports that a deadline expired awaiting a reply.
type TimeoutError struct {
	Operation string
	FrameType string
	Xid       *uint32
}

func (e *TimeoutError) Error() string {
	if e.Xid != nil {
		return fmt.Sprintf("timeout: %s (xid=%d)", e.Operation, *e.Xid)
	}
	if e.FrameType != "" {
		return fmt.Sprintf("timeout: %s (frame=%s)", e.Operation, e.FrameType)
	}
	return fmt.Sprintf("timeout: %s", e.Operation)
}

func TimeoutFor(operation string, xid uint32) *TimeoutError {
	return &TimeoutError{Operation: operation, Xid: &xid}
}

func TimeoutForFrame(operation, frameType string) *TimeoutError {
	return &TimeoutError{Operation: operation, FrameType: frameType}
}

// ErrConnectionLost is injected into every pending completion when the
// underlying transport closes or errors out from under the dispatcher.
var ErrConnectionLost = fmt.Errorf("connection lost")

// ProtocolError reports an unexpected reply shape: a missing required
// TLV tag, an identifier mismatch during verify, an unexpected frame
// type in a sequence that has a mandatory order.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol error: %s", e.Detail) }

func Protocol(detail string) *ProtocolError {
	return &ProtocolError{Detail: detail}
}
