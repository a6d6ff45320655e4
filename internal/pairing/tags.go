// Package pairing implements the HAP pair-setup (SRP-6a) and
// pair-verify (X25519) state machines. Both are carrier-agnostic:
// each drives a Carrier that ships one TLV8 request and returns the
// peer's TLV8 reply, so the same machine runs unmodified over AirPlay
// HTTP or the framed Companion transport.
package pairing

// TLV8 tags used by pair-setup and pair-verify; others reserved.
const (
	TagMethod        byte = 0x00
	TagIdentifier    byte = 0x01
	TagSalt          byte = 0x02
	TagPublicKey     byte = 0x03
	TagProof         byte = 0x04
	TagEncryptedData byte = 0x05
	TagSeqNo         byte = 0x06
	TagError         byte = 0x07
	TagSignature     byte = 0x0A
	TagName          byte = 0x11
)
