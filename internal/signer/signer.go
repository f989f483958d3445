// Package signer implements ECDSA over secp256k1 for block signatures: the
// selected validator signs a block's own hash, and peers verify that
// signature before accepting the block. Keys are exchanged as hex-encoded
// byte strings so they round-trip cleanly through JSON and the block's
// staker snapshot.
package signer

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// UncompressedPubKeyLen is the byte length of an uncompressed secp256k1
// public key: a leading 0x04 tag plus 32-byte X and 32-byte Y coordinates.
const UncompressedPubKeyLen = 65

// CompactSignatureLen is the byte length of the compact r||s encoding this
// package emits and expects. Unlike secp256k1.SignCompact's wire format,
// there is no leading recovery-id byte: the block already carries the
// signer's public key, so recovery is unnecessary.
const CompactSignatureLen = 64

// GenerateKeyPair produces a fresh secp256k1 keypair, hex-encoded: the
// private key as its 32-byte scalar, the public key uncompressed (65
// bytes, leading 0x04).
func GenerateKeyPair() (pubKeyHex, privKeyHex string, err error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", "", err
	}
	pub := priv.PubKey()
	return hex.EncodeToString(pub.SerializeUncompressed()), hex.EncodeToString(priv.Serialize()), nil
}

// Sign interprets blockHashHex as the 32-byte message digest directly (no
// additional hashing) and signs it with privKeyHex, returning the 64-byte
// compact signature as hex.
func Sign(blockHashHex, privKeyHex string) (string, error) {
	digest, err := hex.DecodeString(blockHashHex)
	if err != nil {
		return "", err
	}
	privBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return "", err
	}
	priv := secp256k1.PrivKeyFromBytes(privBytes)
	defer priv.Zero()

	// SignCompact's wire format is [recovery byte][32-byte r][32-byte s];
	// the recovery byte is dropped since the verifier already has the
	// signer's public key from the block's ValidatorPublicKey.
	compact := ecdsa.SignCompact(priv, digest, false)
	return hex.EncodeToString(compact[1:]), nil
}

// Verify reports whether sigHex is a valid signature over blockHashHex by
// pubKeyHex. It never panics or raises: any decoding or verification
// failure simply returns false.
func Verify(blockHashHex, pubKeyHex, sigHex string) bool {
	digest, err := hex.DecodeString(blockHashHex)
	if err != nil {
		return false
	}
	pubBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil || len(pubBytes) != UncompressedPubKeyLen {
		return false
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil || len(sigBytes) != CompactSignatureLen {
		return false
	}

	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sigBytes[:32]); overflow {
		return false
	}
	if overflow := s.SetByteSlice(sigBytes[32:]); overflow {
		return false
	}
	sig := ecdsa.NewSignature(&r, &s)

	return sig.Verify(digest, pub)
}
