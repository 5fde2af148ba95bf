package swap

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// Wallet holds the signing keypair. The private key never leaves this
// package: only the public key is exposed, and signing happens inside
// the swap client.
type Wallet struct {
	key solanago.PrivateKey
}

// NewWalletFromBase58 decodes a base58-encoded ed25519 private key.
func NewWalletFromBase58(encoded string) (*Wallet, error) {
	key, err := solanago.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// PublicKey returns the wallet's public key.
func (w *Wallet) PublicKey() solanago.PublicKey {
	return w.key.PublicKey()
}

// sign signs the transaction with the held key, exactly once.
func (w *Wallet) sign(tx *solanago.Transaction) error {
	_, err := tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}
