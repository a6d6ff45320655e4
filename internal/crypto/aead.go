package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"
)

// CounterNonce returns the 12-byte nonce used for frame encryption: a
// little-endian 64-bit counter in the low 8 bytes, zero in the
// remaining 4.
func CounterNonce(counter uint64) [12]byte {
	var n [12]byte
	binary.LittleEndian.PutUint64(n[0:8], counter)
	return n
}

// StringNonce returns the 12-byte nonce used to encrypt individual
// pair-setup/pair-verify messages: the literal 8-byte ASCII marker
// (e.g. "PV-Msg02"), left-padded with 4 zero bytes.
func StringNonce(s string) [12]byte {
	var n [12]byte
	copy(n[4:], []byte(s))
	return n
}

// Seal encrypts plaintext under key/nonce/aad with ChaCha20-Poly1305,
// appending a 16-byte authentication tag.
func Seal(key []byte, nonce [12]byte, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, aad), nil
}

// Open decrypts and authenticates ciphertext under key/nonce/aad.
func Open(key []byte, nonce [12]byte, aad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce[:], ciphertext, aad)
}
