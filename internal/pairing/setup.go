package pairing

import (
	"context"

	"github.com/google/uuid"

	"atvremote/internal/atverr"
	"atvremote/internal/crypto"
	"atvremote/internal/device"
	"atvremote/internal/opack"
	"atvremote/internal/tlv8"
)

const srpUsername = "Pair-Setup"

// PairSetup drives one HAP pair-setup exchange over carrier,
// authenticating with pin and advertising displayName, and returns the
// resulting long-term credentials.
func PairSetup(ctx context.Context, carrier Carrier, pin, displayName string) (*device.Credentials, error) {
	seed, err := crypto.GenerateEd25519Seed()
	if err != nil {
		return nil, atverr.Crypto("generate_seed", err)
	}
	// The client's SRP private exponent `a` is deliberately the same
	// 32 bytes as the Ed25519 seed generated above, per the peer's
	// pairing expectations.
	srp := crypto.NewSRPClient(srpUsername, pin, seed)

	req1 := tlv8.NewWriter().AppendByte(TagMethod, 0).AppendByte(TagSeqNo, 1).Bytes()
	raw1, err := carrier.SendPairSetup(ctx, req1)
	if err != nil {
		return nil, err
	}
	r1, err := tlv8.Read(raw1)
	if err != nil {
		return nil, err
	}
	if err := checkPairingError(r1); err != nil {
		return nil, err
	}
	salt, ok := r1.Get(TagSalt)
	if !ok {
		return nil, atverr.Protocol("pair-setup: missing Salt in SeqNo 1 reply")
	}
	pubB, ok := r1.Get(TagPublicKey)
	if !ok {
		return nil, atverr.Protocol("pair-setup: missing PublicKey in SeqNo 1 reply")
	}

	if err := srp.SetServerSaltAndPublic(salt, pubB); err != nil {
		return nil, err
	}

	req3 := tlv8.NewWriter().
		AppendByte(TagSeqNo, 3).
		Append(TagPublicKey, srp.ClientPublic()).
		Append(TagProof, srp.ClientProof()).
		Bytes()
	raw3, err := carrier.SendPairSetup(ctx, req3)
	if err != nil {
		return nil, err
	}
	r3, err := tlv8.Read(raw3)
	if err != nil {
		return nil, err
	}
	if err := checkPairingError(r3); err != nil {
		return nil, err
	}
	serverProof, ok := r3.Get(TagProof)
	if !ok {
		return nil, atverr.Protocol("pair-setup: missing Proof in SeqNo 3 reply")
	}
	if !srp.VerifyServerProof(serverProof) {
		return nil, atverr.Pairing(atverr.PairingAuthenticationFailed)
	}

	sessionKey, err := crypto.HKDFExpand(srp.SessionKey(), []byte("Pair-Setup-Encrypt-Salt"), []byte("Pair-Setup-Encrypt-Info"), 32)
	if err != nil {
		return nil, atverr.Crypto("hkdf_session_key", err)
	}
	iosDeviceX, err := crypto.HKDFExpand(srp.SessionKey(), []byte("Pair-Setup-Controller-Sign-Salt"), []byte("Pair-Setup-Controller-Sign-Info"), 32)
	if err != nil {
		return nil, atverr.Crypto("hkdf_ios_device_x", err)
	}

	_, authPublic := crypto.Ed25519KeyFromSeed(seed)
	clientID := []byte(uuid.New().String())

	signed := append(append(append([]byte{}, iosDeviceX...), clientID...), authPublic...)
	signature := crypto.Ed25519Sign(seed, signed)

	plainWriter := tlv8.NewWriter().
		Append(TagIdentifier, clientID).
		Append(TagPublicKey, authPublic).
		Append(TagSignature, signature)
	if displayName != "" {
		nameMap := opack.NewMap().Set("name", displayName)
		plainWriter.Append(TagName, opack.Pack(nameMap))
	}

	ciphertext5, err := crypto.Seal(sessionKey, crypto.StringNonce("PS-Msg05"), nil, plainWriter.Bytes())
	if err != nil {
		return nil, atverr.Crypto("seal_ps_msg05", err)
	}
	req5 := tlv8.NewWriter().AppendByte(TagSeqNo, 5).Append(TagEncryptedData, ciphertext5).Bytes()
	raw5, err := carrier.SendPairSetup(ctx, req5)
	if err != nil {
		return nil, err
	}
	r5, err := tlv8.Read(raw5)
	if err != nil {
		return nil, err
	}
	if err := checkPairingError(r5); err != nil {
		return nil, err
	}
	ciphertext6, ok := r5.Get(TagEncryptedData)
	if !ok {
		return nil, atverr.Protocol("pair-setup: missing EncryptedData in SeqNo 5 reply")
	}
	plaintext6, err := crypto.Open(sessionKey, crypto.StringNonce("PS-Msg06"), nil, ciphertext6)
	if err != nil {
		return nil, atverr.Crypto("open_ps_msg06", err)
	}
	r6, err := tlv8.Read(plaintext6)
	if err != nil {
		return nil, err
	}
	atvID, ok := r6.Get(TagIdentifier)
	if !ok {
		return nil, atverr.Protocol("pair-setup: missing Identifier in SeqNo 6 payload")
	}
	ltpk, ok := r6.Get(TagPublicKey)
	if !ok {
		return nil, atverr.Protocol("pair-setup: missing PublicKey in SeqNo 6 payload")
	}

	return &device.Credentials{
		LTPK:     append([]byte(nil), ltpk...),
		LTSK:     seed,
		AtvID:    append([]byte(nil), atvID...),
		ClientID: clientID,
	}, nil
}
