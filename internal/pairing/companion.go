package pairing

import (
	"context"

	"atvremote/internal/atverr"
	"atvremote/internal/opack"
	"atvremote/internal/transport"
)

// AuthExchanger sends one framed auth sub-protocol request and returns
// the matching reply frame. Satisfied by the Companion dispatcher,
// which correlates requests to replies using the reply-type mapping
// (a *_Start request is replied with *_Next; a *_Next request is
// replied with *_Next).
type AuthExchanger interface {
	ExchangeAuth(ctx context.Context, reqType transport.FrameType, payload []byte) ([]byte, error)
}

// CompanionCarrier implements Carrier over the framed Companion
// transport's auth sub-protocol. Each TLV8 request is wrapped in an
// OPACK map ({_pd: tlv, _pwTy: 1}) and sent as a PS_Start/PS_Next or
// PV_Start/PV_Next frame; the reply's _pd field is unwrapped back to
// raw TLV8. Not safe for concurrent use by more than one in-flight
// pairing attempt.
type CompanionCarrier struct {
	exchanger AuthExchanger

	setupStarted  bool
	verifyStarted bool
}

// NewCompanionCarrier wraps exchanger as a Carrier for one pair-setup
// or pair-verify attempt.
func NewCompanionCarrier(exchanger AuthExchanger) *CompanionCarrier {
	return &CompanionCarrier{exchanger: exchanger}
}

func (c *CompanionCarrier) SendPairSetup(ctx context.Context, tlv []byte) ([]byte, error) {
	reqType := transport.PSNext
	if !c.setupStarted {
		reqType = transport.PSStart
		c.setupStarted = true
	}
	return c.exchange(ctx, reqType, tlv)
}

func (c *CompanionCarrier) SendPairVerify(ctx context.Context, tlv []byte) ([]byte, error) {
	reqType := transport.PVNext
	if !c.verifyStarted {
		reqType = transport.PVStart
		c.verifyStarted = true
	}
	return c.exchange(ctx, reqType, tlv)
}

func (c *CompanionCarrier) exchange(ctx context.Context, reqType transport.FrameType, tlv []byte) ([]byte, error) {
	envelope := opack.NewMap().Set("_pd", tlv).Set("_pwTy", uint64(1))
	replyPayload, err := c.exchanger.ExchangeAuth(ctx, reqType, opack.Pack(envelope))
	if err != nil {
		return nil, err
	}
	decoded, err := opack.Unpack(replyPayload)
	if err != nil {
		return nil, err
	}
	replyMap, ok := decoded.(*opack.Map)
	if !ok {
		return nil, atverr.Protocol("companion carrier: reply is not an OPACK map")
	}
	pd, ok := replyMap.Get("_pd")
	if !ok {
		return nil, atverr.Protocol("companion carrier: reply missing _pd field")
	}
	pdBytes, ok := pd.([]byte)
	if !ok {
		return nil, atverr.Protocol("companion carrier: _pd field is not a byte string")
	}
	return pdBytes, nil
}
