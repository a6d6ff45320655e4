// Package crypto implements the cryptographic primitives the pairing
// and transport layers are built on: SRP-6a for pair-setup, HKDF-SHA512
// key derivation, ChaCha20-Poly1305 AEAD framing, and the Ed25519/
// X25519 operations pair-verify needs.
//
// Grounded on the pairing sequence in the go-ios tunnel-service
// reference file, which drives an equivalent SRP handshake
// (NewSrpInfo/ClientPublic/ClientProof/VerifyServerProof/SessionKey)
// followed by the same HKDF-SHA512 and ChaCha20-Poly1305 calls this
// package exposes.
package crypto

import (
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"math/big"

	"atvremote/internal/atverr"
)

// RFC 3526 Group 15 (3072-bit MODP group), also published as RFC 5054
// Appendix A's 3072-bit SRP group. g = 5.
const srpNHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E208E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"

var (
	srpN = mustBigHex(srpNHex)
	srpG = big.NewInt(5)
)

func mustBigHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("crypto: invalid SRP group constant")
	}
	return n
}

// SRPClient drives the client side of one SRP-6a exchange. The
// private exponent `a` is supplied by the caller rather than generated
// here: pair-setup deliberately reuses the freshly generated Ed25519
// identity seed as `a`, a requirement this type's constructor leaves
// to the caller to satisfy.
type SRPClient struct {
	username []byte
	password []byte
	a        *big.Int
	A        *big.Int

	salt []byte
	b    *big.Int

	k []byte // session key, K = H(S)
	m []byte // client evidence, M1
}

// NewSRPClient starts a client exchange for username/password, using
// privateExponent as the SRP private value `a` verbatim (it must be a
// 32-byte random secret; HAP pair-setup passes its Ed25519 seed).
func NewSRPClient(username, password string, privateExponent []byte) *SRPClient {
	a := new(big.Int).SetBytes(privateExponent)
	A := new(big.Int).Exp(srpG, a, srpN)
	return &SRPClient{
		username: []byte(username),
		password: []byte(password),
		a:        a,
		A:        A,
	}
}

// ClientPublic returns A, padded to the group's byte width.
func (c *SRPClient) ClientPublic() []byte {
	return pad(c.A)
}

// SetServerSaltAndPublic consumes the server's salt and public key B,
// computing the shared premaster secret, the session key, and the
// client evidence message M1. Call ClientProof after this succeeds.
func (c *SRPClient) SetServerSaltAndPublic(salt, publicB []byte) error {
	c.salt = salt
	c.b = new(big.Int).SetBytes(publicB)
	if new(big.Int).Mod(c.b, srpN).Sign() == 0 {
		return atverr.Crypto("srp", errors.New("server public key B is congruent to 0 mod N"))
	}

	u := hashBigInt(pad(c.A), pad(c.b))
	if u.Sign() == 0 {
		return atverr.Crypto("srp", errors.New("scrambling parameter u is zero"))
	}

	k := hashBigInt(pad(srpN), pad(srpG))
	x := computeX(c.salt, c.username, c.password)

	gx := new(big.Int).Exp(srpG, x, srpN)
	kgx := new(big.Int).Mod(new(big.Int).Mul(k, gx), srpN)
	base := new(big.Int).Mod(new(big.Int).Sub(c.b, kgx), srpN)
	exp := new(big.Int).Add(c.a, new(big.Int).Mul(u, x))
	s := new(big.Int).Exp(base, exp, srpN)

	c.k = hashBytes(pad(s))
	c.m = c.computeM1()
	return nil
}

// ClientProof returns the client evidence message M1, computed by
// SetServerSaltAndPublic.
func (c *SRPClient) ClientProof() []byte {
	return c.m
}

// VerifyServerProof checks the server's evidence message M2 against
// the locally computed A, M1 and K.
func (c *SRPClient) VerifyServerProof(serverProof []byte) bool {
	h := sha512.New()
	h.Write(pad(c.A))
	h.Write(c.m)
	h.Write(c.k)
	expected := h.Sum(nil)
	return subtle.ConstantTimeCompare(expected, serverProof) == 1
}

// SessionKey returns K = H(S), the raw SRP session key fed into the
// HKDF-SHA512 expansions that derive the pair-setup encryption and
// controller-sign keys.
func (c *SRPClient) SessionKey() []byte {
	return c.k
}

func (c *SRPClient) computeM1() []byte {
	hn := hashBytes(pad(srpN))
	hg := hashBytes(pad(srpG))
	hxor := make([]byte, len(hn))
	for i := range hn {
		hxor[i] = hn[i] ^ hg[i]
	}
	hi := hashBytes(c.username)

	h := sha512.New()
	h.Write(hxor)
	h.Write(hi)
	h.Write(c.salt)
	h.Write(pad(c.A))
	h.Write(pad(c.b))
	h.Write(c.k)
	return h.Sum(nil)
}

func computeX(salt, username, password []byte) *big.Int {
	inner := sha512.New()
	inner.Write(username)
	inner.Write([]byte(":"))
	inner.Write(password)

	outer := sha512.New()
	outer.Write(salt)
	outer.Write(inner.Sum(nil))
	return new(big.Int).SetBytes(outer.Sum(nil))
}

func hashBytes(chunks ...[]byte) []byte {
	h := sha512.New()
	for _, c := range chunks {
		h.Write(c)
	}
	return h.Sum(nil)
}

func hashBigInt(chunks ...[]byte) *big.Int {
	return new(big.Int).SetBytes(hashBytes(chunks...))
}

// pad left-pads x's big-endian bytes to the SRP group's byte width
// (384 bytes for the 3072-bit group), as every hashed quantity in the
// proof derivations must be a fixed-width field.
func pad(x *big.Int) []byte {
	size := (srpN.BitLen() + 7) / 8
	b := x.Bytes()
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
