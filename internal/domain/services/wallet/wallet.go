// Package wallet abstracts the signing wallet. The rest of the system
// only ever sees this interface, so swapping the key custody model
// touches nothing outside this package.
package wallet

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrNoWallet is returned by operations that need a connected wallet
// when none is present.
var ErrNoWallet = errors.New("no wallet connected")

// Wallet is a signing identity on Solana.
type Wallet interface {
	// Address returns the wallet's public key.
	Address() solana.PublicKey

	// SignMessage signs an arbitrary message, used for ownership proofs.
	SignMessage(ctx context.Context, message []byte) ([]byte, error)

	// SignTransaction signs a transaction in place and returns it.
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// LocalWallet signs with an in-process ed25519 keypair.
type LocalWallet struct {
	key solana.PrivateKey
}

// NewLocalWallet creates a wallet from a base58-encoded private key.
func NewLocalWallet(privateKey string) (*LocalWallet, error) {
	key, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		return nil, err
	}
	return &LocalWallet{key: key}, nil
}

// NewRandomWallet generates a throwaway keypair, used in tests.
func NewRandomWallet() *LocalWallet {
	key, _ := solana.NewRandomPrivateKey()
	return &LocalWallet{key: key}
}

// Address returns the wallet's public key
func (w *LocalWallet) Address() solana.PublicKey {
	return w.key.PublicKey()
}

// SignMessage signs an arbitrary message
func (w *LocalWallet) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	sig, err := w.key.Sign(message)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}

// SignTransaction signs every signature slot owned by this key.
func (w *LocalWallet) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}
