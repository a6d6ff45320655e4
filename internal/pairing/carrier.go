package pairing

import (
	"context"

	"atvremote/internal/atverr"
	"atvremote/internal/tlv8"
)

// Carrier ships one TLV8 pairing request to the peer and returns its
// TLV8 reply. Implementations exist for the AirPlay HTTP endpoints
// and for the framed Companion transport's auth sub-protocol.
type Carrier interface {
	SendPairSetup(ctx context.Context, tlv []byte) ([]byte, error)
	SendPairVerify(ctx context.Context, tlv []byte) ([]byte, error)
}

// checkPairingError short-circuits a pairing state machine on a
// peer-reported TLV error (tag 0x07).
func checkPairingError(r *tlv8.Reader) error {
	if b, ok := r.GetByte(TagError); ok {
		return atverr.Pairing(atverr.PairingErrorCode(b))
	}
	return nil
}
