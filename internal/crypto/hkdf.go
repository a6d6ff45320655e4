package crypto

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFExpand derives outLen bytes from secret using HKDF-SHA512 with
// the given salt and info, matching every key derivation the pairing
// state machines perform (pair-setup's sessionKey/iOSDeviceX, pair-
// verify's verify key and the final session AEAD keys).
func HKDFExpand(secret, salt, info []byte, outLen int) ([]byte, error) {
	out := make([]byte, outLen)
	r := hkdf.New(sha512.New, secret, salt, info)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
