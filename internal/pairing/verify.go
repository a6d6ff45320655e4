package pairing

import (
	"bytes"
	"context"

	"atvremote/internal/atverr"
	"atvremote/internal/crypto"
	"atvremote/internal/device"
	"atvremote/internal/tlv8"
)

// PairVerify drives one HAP pair-verify exchange over carrier using
// previously stored credentials, and returns the two symmetric keys
// that secure the rest of the session.
func PairVerify(ctx context.Context, carrier Carrier, creds *device.Credentials) (crypto.SessionKeys, error) {
	ephemeral, err := crypto.GenerateX25519KeyPair()
	if err != nil {
		return crypto.SessionKeys{}, atverr.Crypto("generate_x25519", err)
	}

	req1 := tlv8.NewWriter().AppendByte(TagSeqNo, 1).Append(TagPublicKey, ephemeral.Public).Bytes()
	raw1, err := carrier.SendPairVerify(ctx, req1)
	if err != nil {
		return crypto.SessionKeys{}, err
	}
	r1, err := tlv8.Read(raw1)
	if err != nil {
		return crypto.SessionKeys{}, err
	}
	if err := checkPairingError(r1); err != nil {
		return crypto.SessionKeys{}, err
	}
	peerPublic, ok := r1.Get(TagPublicKey)
	if !ok {
		return crypto.SessionKeys{}, atverr.Protocol("pair-verify: missing PublicKey in SeqNo 2 reply")
	}
	ciphertext2, ok := r1.Get(TagEncryptedData)
	if !ok {
		return crypto.SessionKeys{}, atverr.Protocol("pair-verify: missing EncryptedData in SeqNo 2 reply")
	}

	sharedSecret, err := crypto.X25519SharedSecret(ephemeral.Private, peerPublic)
	if err != nil {
		return crypto.SessionKeys{}, atverr.Crypto("x25519_shared_secret", err)
	}
	verifyKey, err := crypto.HKDFExpand(sharedSecret, []byte("Pair-Verify-Encrypt-Salt"), []byte("Pair-Verify-Encrypt-Info"), 32)
	if err != nil {
		return crypto.SessionKeys{}, atverr.Crypto("hkdf_verify_key", err)
	}

	plaintext2, err := crypto.Open(verifyKey, crypto.StringNonce("PV-Msg02"), nil, ciphertext2)
	if err != nil {
		return crypto.SessionKeys{}, atverr.Crypto("open_pv_msg02", err)
	}
	r2, err := tlv8.Read(plaintext2)
	if err != nil {
		return crypto.SessionKeys{}, err
	}
	peerIdentifier, ok := r2.Get(TagIdentifier)
	if !ok {
		return crypto.SessionKeys{}, atverr.Protocol("pair-verify: missing Identifier in SeqNo 2 payload")
	}
	peerSignature, ok := r2.Get(TagSignature)
	if !ok {
		return crypto.SessionKeys{}, atverr.Protocol("pair-verify: missing Signature in SeqNo 2 payload")
	}
	if !bytes.Equal(peerIdentifier, creds.AtvID) {
		return crypto.SessionKeys{}, atverr.Protocol("pair-verify: peer identifier does not match stored AtvID")
	}
	peerSigned := append(append(append([]byte{}, peerPublic...), peerIdentifier...), ephemeral.Public...)
	if !crypto.Ed25519Verify(creds.LTPK, peerSigned, peerSignature) {
		return crypto.SessionKeys{}, atverr.Pairing(atverr.PairingAuthenticationFailed)
	}

	ourSigned := append(append(append([]byte{}, ephemeral.Public...), creds.ClientID...), peerPublic...)
	ourSignature := crypto.Ed25519Sign(creds.LTSK, ourSigned)

	plainWriter3 := tlv8.NewWriter().
		Append(TagIdentifier, creds.ClientID).
		Append(TagSignature, ourSignature)
	ciphertext3, err := crypto.Seal(verifyKey, crypto.StringNonce("PV-Msg03"), nil, plainWriter3.Bytes())
	if err != nil {
		return crypto.SessionKeys{}, atverr.Crypto("seal_pv_msg03", err)
	}
	req3 := tlv8.NewWriter().AppendByte(TagSeqNo, 3).Append(TagEncryptedData, ciphertext3).Bytes()
	raw3, err := carrier.SendPairVerify(ctx, req3)
	if err != nil {
		return crypto.SessionKeys{}, err
	}
	r3, err := tlv8.Read(raw3)
	if err != nil {
		return crypto.SessionKeys{}, err
	}
	if err := checkPairingError(r3); err != nil {
		return crypto.SessionKeys{}, err
	}

	outputKey, err := crypto.HKDFExpand(sharedSecret, nil, []byte("ClientEncrypt-main"), 32)
	if err != nil {
		return crypto.SessionKeys{}, atverr.Crypto("hkdf_output_key", err)
	}
	inputKey, err := crypto.HKDFExpand(sharedSecret, nil, []byte("ServerEncrypt-main"), 32)
	if err != nil {
		return crypto.SessionKeys{}, atverr.Crypto("hkdf_input_key", err)
	}

	return crypto.SessionKeys{OutputKey: outputKey, InputKey: inputKey}, nil
}
