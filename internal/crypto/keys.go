package crypto

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
)

// GenerateEd25519Seed returns a fresh 32-byte Ed25519 seed. Pair-setup
// deliberately reuses this same seed as the SRP private exponent `a`;
// see SRPClient.
func GenerateEd25519Seed() ([]byte, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// Ed25519KeyFromSeed expands a 32-byte seed into its private and
// public halves.
func Ed25519KeyFromSeed(seed []byte) (priv ed25519.PrivateKey, pub ed25519.PublicKey) {
	priv = ed25519.NewKeyFromSeed(seed)
	return priv, priv.Public().(ed25519.PublicKey)
}

// Ed25519Sign signs message with the private key derived from seed.
func Ed25519Sign(seed, message []byte) []byte {
	priv, _ := Ed25519KeyFromSeed(seed)
	return ed25519.Sign(priv, message)
}

// Ed25519Verify checks sig over message against the 32-byte raw
// public key pub.
func Ed25519Verify(pub, message, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

// X25519KeyPair is an ephemeral Diffie-Hellman key pair, generated
// fresh for each pair-verify attempt.
type X25519KeyPair struct {
	Private *ecdh.PrivateKey
	Public  []byte // raw 32-byte form
}

// GenerateX25519KeyPair creates a fresh ephemeral X25519 key pair.
func GenerateX25519KeyPair() (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &X25519KeyPair{Private: priv, Public: priv.PublicKey().Bytes()}, nil
}

// X25519SharedSecret computes the ECDH shared secret between priv and
// the peer's raw 32-byte public key.
func X25519SharedSecret(priv *ecdh.PrivateKey, peerPublic []byte) ([]byte, error) {
	peerKey, err := ecdh.X25519().NewPublicKey(peerPublic)
	if err != nil {
		return nil, err
	}
	return priv.ECDH(peerKey)
}

// SessionKeys holds the two symmetric keys pair-verify derives from
// the ECDH shared secret, installed on the transport once the
// handshake completes. Lifetime is the TCP connection; never
// persisted.
type SessionKeys struct {
	OutputKey []byte
	InputKey  []byte
}
