package wallet

import (
	"encoding/hex"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

func TestWallet_RawKeyConnectDisconnect(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := crypto.PubkeyToAddress(key.PublicKey)

	w := New(RawKey{Hex: "0x" + hex.EncodeToString(crypto.FromECDSA(key))})
	if w.IsConnected() {
		t.Fatalf("new wallet must start disconnected")
	}
	if _, ok := w.Signer(); ok {
		t.Fatalf("no signer while disconnected")
	}

	got, err := w.Connect("")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got != want {
		t.Fatalf("connected %s want %s", got.Hex(), want.Hex())
	}
	if acc, ok := w.Account(); !ok || acc != want {
		t.Fatalf("account = %s, %v", acc.Hex(), ok)
	}

	w.Disconnect()
	if w.IsConnected() {
		t.Fatalf("still connected after disconnect")
	}
}

func TestWallet_KeystoreFile(t *testing.T) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(pk.PublicKey),
		PrivateKey: pk,
	}
	blob, err := keystore.EncryptKey(key, "hunter2", keystore.LightScryptN, keystore.LightScryptP)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := New(KeystoreFile{Path: path})
	if _, err := w.Connect("wrong"); !errors.Is(err, ErrBadPassphrase) {
		t.Fatalf("expected ErrBadPassphrase, got %v", err)
	}
	if w.IsConnected() {
		t.Fatalf("failed unlock must leave wallet disconnected")
	}

	addr, err := w.Connect("hunter2")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if addr != key.Address {
		t.Fatalf("address %s want %s", addr.Hex(), key.Address.Hex())
	}
}

func TestWallet_NoSource(t *testing.T) {
	if _, err := New(nil).Connect("x"); !errors.Is(err, ErrNoKeySource) {
		t.Fatalf("expected ErrNoKeySource, got %v", err)
	}
}

func TestSigner_SignsForAccount(t *testing.T) {
	key, _ := crypto.GenerateKey()
	w := New(RawKey{Hex: hex.EncodeToString(crypto.FromECDSA(key))})
	addr, err := w.Connect("")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	s, ok := w.Signer()
	if !ok {
		t.Fatalf("expected signer")
	}

	chainID := big.NewInt(1337)
	to := common.HexToAddress("0x1f256e82f413c409bd66A58F7210C42F7F3FFadC")
	tx := types.NewTx(&types.DynamicFeeTx{ChainID: chainID, Nonce: 1, Gas: 21000, To: &to, GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(2), Value: big.NewInt(0)})

	signed, err := s.SignTx(tx, chainID)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	if from != addr || s.Address() != addr {
		t.Fatalf("signed by %s want %s", from.Hex(), addr.Hex())
	}
}
