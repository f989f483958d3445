// Package wallet derives a staker's short address from its secp256k1
// keypair and persists the keypair to disk, the way a validator operator
// provisions the identity it registers with the staker registry.
package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ripemd160"

	"chaincore/internal/signer"
)

// Wallet holds a staker identity: its hex-encoded secp256k1 keypair and
// the address derived from the public key.
type Wallet struct {
	PublicKeyHex  string `json:"publicKey"`
	PrivateKeyHex string `json:"privateKey"`
	Address       string `json:"address"`
}

// keyFile is the on-disk shape persisted by Save and read by Load.
type keyFile struct {
	PublicKeyHex  string `json:"publicKey"`
	PrivateKeyHex string `json:"privateKey"`
}

// CreateNew generates a fresh keypair, derives its address, and persists
// the keypair to <dataDir>/wallet.json.
func CreateNew(dataDir string) (*Wallet, error) {
	pub, priv, err := signer.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	w := &Wallet{
		PublicKeyHex:  pub,
		PrivateKeyHex: priv,
		Address:       DeriveAddress(pub),
	}
	if err := w.save(filepath.Join(dataDir, "wallet.json")); err != nil {
		return nil, err
	}
	return w, nil
}

// Load reads a previously persisted keypair from path and re-derives its
// address.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, err
	}
	return &Wallet{
		PublicKeyHex:  kf.PublicKeyHex,
		PrivateKeyHex: kf.PrivateKeyHex,
		Address:       DeriveAddress(kf.PublicKeyHex),
	}, nil
}

// DeriveAddress computes a staker's address from its hex-encoded
// uncompressed public key: SHA-256 followed by RIPEMD-160 over the raw
// key bytes, hex-encoded with a 0x prefix. Malformed hex yields an empty
// address rather than panicking.
func DeriveAddress(pubKeyHex string) string {
	pubBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return ""
	}
	sha := sha256.Sum256(pubBytes)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	return "0x" + hex.EncodeToString(ripe.Sum(nil))
}

// Sign signs blockHashHex with the wallet's private key, delegating to
// the signer package's block-signature convention.
func (w *Wallet) Sign(blockHashHex string) (string, error) {
	return signer.Sign(blockHashHex, w.PrivateKeyHex)
}

func (w *Wallet) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(keyFile{PublicKeyHex: w.PublicKeyHex, PrivateKeyHex: w.PrivateKeyHex}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
