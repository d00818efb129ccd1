package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"guess_dapp/internal/chain"
)

var (
	ErrNoKeySource   = errors.New("no wallet key configured")
	ErrBadPassphrase = errors.New("could not unlock wallet")
)

// KeySource unlocks the private key behind the wallet
type KeySource interface {
	Unlock(passphrase string) (*ecdsa.PrivateKey, error)
}

// KeystoreFile is an encrypted go-ethereum keystore (v3) file
type KeystoreFile struct {
	Path string
}

func (k KeystoreFile) Unlock(passphrase string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(k.Path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	key, err := keystore.DecryptKey(raw, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPassphrase, err)
	}
	return key.PrivateKey, nil
}

// RawKey is a hex private key, for local development chains only.
// The passphrase is ignored.
type RawKey struct {
	Hex string
}

func (k RawKey) Unlock(string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(k.Hex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// Wallet is a connector holding at most one unlocked account
type Wallet struct {
	mu     sync.RWMutex
	source KeySource
	key    *ecdsa.PrivateKey
}

// New creates a disconnected wallet. source may be nil, in which case
// Connect always fails.
func New(source KeySource) *Wallet {
	return &Wallet{source: source}
}

// Connect unlocks the key and makes its account current
func (w *Wallet) Connect(passphrase string) (common.Address, error) {
	if w.source == nil {
		return common.Address{}, ErrNoKeySource
	}

	key, err := w.source.Unlock(passphrase)
	if err != nil {
		return common.Address{}, err
	}

	w.mu.Lock()
	w.key = key
	w.mu.Unlock()

	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// Disconnect forgets the unlocked key
func (w *Wallet) Disconnect() {
	w.mu.Lock()
	w.key = nil
	w.mu.Unlock()
}

// Account returns the connected address, if any
func (w *Wallet) Account() (common.Address, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(w.key.PublicKey), true
}

func (w *Wallet) IsConnected() bool {
	_, ok := w.Account()
	return ok
}

// Signer returns a transaction signer bound to the connected key.
// The signer keeps working for a write already in flight after Disconnect.
func (w *Wallet) Signer() (chain.Signer, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return nil, false
	}
	return &keySigner{key: w.key}, true
}

type keySigner struct {
	key *ecdsa.PrivateKey
}

func (s *keySigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *keySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}
