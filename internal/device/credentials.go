package device

import (
	"encoding/hex"
	"strings"

	"atvremote/internal/atverr"
)

// Credentials is the durable output of pair-setup: the peer's
// long-term Ed25519 public key, our own long-term Ed25519 private
// seed, the peer's identifier, and our own client identifier (a UUID
// in canonical textual form, stored as bytes). Created by pair-setup;
// consumed, never mutated, by pair-verify.
type Credentials struct {
	LTPK     []byte // peer's Ed25519 public key, 32 bytes
	LTSK     []byte // our Ed25519 private seed, 32 bytes
	AtvID    []byte // peer identifier, <=64 bytes
	ClientID []byte // our identifier, 36-byte UUID text
}

// String renders the credentials as four colon-separated hex tokens:
// ltpk:ltsk:atvId:clientId.
func (c *Credentials) String() string {
	return strings.Join([]string{
		hex.EncodeToString(c.LTPK),
		hex.EncodeToString(c.LTSK),
		hex.EncodeToString(c.AtvID),
		hex.EncodeToString(c.ClientID),
	}, ":")
}

// ParseCredentials parses the four-colon-separated-hex-token format
// produced by Credentials.String. It rejects any input that does not
// split into exactly four hex tokens.
func ParseCredentials(s string) (*Credentials, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return nil, atverr.Protocol("credentials: expected 4 colon-separated hex tokens")
	}
	decoded := make([][]byte, 4)
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil {
			return nil, atverr.Protocol("credentials: invalid hex token: " + err.Error())
		}
		decoded[i] = b
	}
	return &Credentials{
		LTPK:     decoded[0],
		LTSK:     decoded[1],
		AtvID:    decoded[2],
		ClientID: decoded[3],
	}, nil
}
