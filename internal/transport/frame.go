// Package transport implements the framed Companion connection: a
// 4-byte header (1-byte type, 3-byte big-endian length) followed by a
// payload that is ChaCha20-Poly1305-encrypted once pair-verify
// installs session keys.
package transport

// FrameType is the first byte of every Companion frame.
type FrameType byte

const (
	Unknown FrameType = 0
	NoOp    FrameType = 1

	PSStart FrameType = 3
	PSNext  FrameType = 4
	PVStart FrameType = 5
	PVNext  FrameType = 6

	UOPACK FrameType = 7
	EOPACK FrameType = 8
	POPACK FrameType = 9

	PARequest  FrameType = 10
	PAResponse FrameType = 11

	SessionStartRequest  FrameType = 16
	SessionStartResponse FrameType = 17
	SessionData          FrameType = 18

	FamilyIdentityRequest  FrameType = 32
	FamilyIdentityResponse FrameType = 33
	FamilyIdentityUpdate   FrameType = 34
)

func (t FrameType) String() string {
	switch t {
	case Unknown:
		return "Unknown"
	case NoOp:
		return "NoOp"
	case PSStart:
		return "PS_Start"
	case PSNext:
		return "PS_Next"
	case PVStart:
		return "PV_Start"
	case PVNext:
		return "PV_Next"
	case UOPACK:
		return "U_OPACK"
	case EOPACK:
		return "E_OPACK"
	case POPACK:
		return "P_OPACK"
	case PARequest:
		return "PA_Req"
	case PAResponse:
		return "PA_Rsp"
	case SessionStartRequest:
		return "SessionStartRequest"
	case SessionStartResponse:
		return "SessionStartResponse"
	case SessionData:
		return "SessionData"
	case FamilyIdentityRequest:
		return "FamilyIdentityRequest"
	case FamilyIdentityResponse:
		return "FamilyIdentityResponse"
	case FamilyIdentityUpdate:
		return "FamilyIdentityUpdate"
	default:
		return "Unknown"
	}
}

// Frame is one logical unit exchanged over the Companion connection.
type Frame struct {
	Type    FrameType
	Payload []byte
}

const headerLen = 4
const aeadTagLen = 16

// encodeHeader renders the 4-byte type+length header for an on-wire
// payload of length n.
func encodeHeader(t FrameType, n int) [headerLen]byte {
	var h [headerLen]byte
	h[0] = byte(t)
	h[1] = byte(n >> 16)
	h[2] = byte(n >> 8)
	h[3] = byte(n)
	return h
}

func decodeHeader(h []byte) (FrameType, int) {
	n := int(h[1])<<16 | int(h[2])<<8 | int(h[3])
	return FrameType(h[0]), n
}
