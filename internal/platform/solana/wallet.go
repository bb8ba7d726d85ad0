// Package solana provides the thin slice of Solana plumbing the engine
// needs: an ed25519 wallet, signing of aggregator-built transactions, and a
// JSON-RPC client for submission and confirmation.
package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
)

// Wallet holds the signing keypair for live execution.
type Wallet struct {
	priv ed25519.PrivateKey
}

// LoadWallet reads a solana-keygen style keypair: a JSON array of 64 bytes
// (seed followed by public key). Exactly one of path or inline must be set;
// inline wins when both are.
func LoadWallet(path, inline string) (*Wallet, error) {
	data := []byte(inline)
	if inline == "" {
		if path == "" {
			return nil, fmt.Errorf("solana: no keypair configured")
		}
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("solana: read keypair %s: %w", path, err)
		}
		data = fileData
	}

	// encoding/json maps []byte to base64, so decode the array explicitly.
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return nil, fmt.Errorf("solana: decode keypair: %w", err)
	}
	if len(nums) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("solana: keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(nums))
	}

	raw := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("solana: keypair byte %d out of range", i)
		}
		raw[i] = byte(n)
	}

	return &Wallet{priv: ed25519.PrivateKey(raw)}, nil
}

// PublicKey returns the base58-encoded public key.
func (w *Wallet) PublicKey() string {
	pub := w.priv.Public().(ed25519.PublicKey)
	return base58.Encode(pub)
}

// Sign signs a message with the wallet key.
func (w *Wallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.priv, message)
}
