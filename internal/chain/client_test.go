package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const testAddress = "0x1f256e82f413c409bd66A58F7210C42F7F3FFadC"

type fakeBackend struct {
	mu       sync.Mutex
	callOut  []byte
	callErr  error
	lastCall ethereum.CallMsg
	baseFee  *big.Int
	gasErr   error
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	misses   int
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCall = call
	return f.callOut, f.callErr
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 50_000, f.gasErr
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.misses > 0 {
		f.misses--
		return nil, ethereum.NotFound
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(31337), nil }

type testSigner struct {
	key *ecdsa.PrivateKey
	err error
}

func (s *testSigner) Address() common.Address { return crypto.PubkeyToAddress(s.key.PublicKey) }

func (s *testSigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

func newSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &testSigner{key: key}
}

func newTestClient(t *testing.T, variant Variant, backend *fakeBackend) *Client {
	t.Helper()
	contract, err := LoadContract(testAddress, variant)
	if err != nil {
		t.Fatalf("load contract: %v", err)
	}
	return NewClient(backend, contract, big.NewInt(31337), 5*time.Millisecond)
}

func TestLoadContract_Variants(t *testing.T) {
	basic, err := LoadContract(testAddress, VariantBasic)
	if err != nil {
		t.Fatalf("basic: %v", err)
	}
	if !basic.Has(FnGetRandomNumber) || !basic.Has(FnRestartGame) || !basic.Has(FnGuess) {
		t.Fatalf("basic abi misses game functions")
	}
	if basic.Has(FnClaimTokens) {
		t.Fatalf("basic abi must not expose %s", FnClaimTokens)
	}

	claim, err := LoadContract(testAddress, VariantClaim)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claim.Has(FnClaimTokens) {
		t.Fatalf("claim abi must expose %s", FnClaimTokens)
	}
}

func TestLoadContract_Invalid(t *testing.T) {
	if _, err := LoadContract("not-an-address", VariantBasic); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := LoadContract(testAddress, Variant("v9")); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
	if _, err := ParseVariant("claim"); err != nil {
		t.Fatalf("parse claim: %v", err)
	}
}

func TestReadContractValue_Uint(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, VariantBasic, backend)

	out, err := c.contract.ABI.Methods[FnGetRandomNumber].Outputs.Pack(big.NewInt(42))
	if err != nil {
		t.Fatalf("pack output: %v", err)
	}
	backend.callOut = out

	from := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	values, err := c.ReadContractValue(context.Background(), from, FnGetRandomNumber)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	n, err := AsUint(values)
	if err != nil {
		t.Fatalf("as uint: %v", err)
	}
	if n.Int64() != 42 {
		t.Fatalf("got %s want 42", n)
	}
	if backend.lastCall.From != from || *backend.lastCall.To != c.contract.Address {
		t.Fatalf("call msg not addressed as expected: %+v", backend.lastCall)
	}
}

func TestReadContractValue_Errors(t *testing.T) {
	backend := &fakeBackend{callErr: errors.New("execution reverted")}
	c := newTestClient(t, VariantBasic, backend)

	if _, err := c.ReadContractValue(context.Background(), common.Address{}, FnGetRandomNumber); err == nil {
		t.Fatalf("expected call error")
	}

	backend.callErr = nil
	backend.callOut = nil
	if _, err := c.ReadContractValue(context.Background(), common.Address{}, FnGetRandomNumber); !errors.Is(err, ErrUnexpectedOutput) {
		t.Fatalf("expected ErrUnexpectedOutput on empty output, got %v", err)
	}

	if _, err := c.ReadContractValue(context.Background(), common.Address{}, FnClaimTokens); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}

func TestWriteContract_DynamicFee(t *testing.T) {
	backend := &fakeBackend{baseFee: big.NewInt(2_000_000_000)}
	c := newTestClient(t, VariantBasic, backend)
	signer := newSigner(t)

	h, err := c.WriteContract(context.Background(), signer, FnRestartGame)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(backend.sent))
	}

	tx := backend.sent[0]
	if tx.Hash() != h.Hash || h.Function != FnRestartGame {
		t.Fatalf("handle does not match broadcast tx")
	}
	if tx.Type() != types.DynamicFeeTxType {
		t.Fatalf("expected dynamic fee tx, got type %d", tx.Type())
	}
	if tx.Nonce() != 7 || tx.Gas() != 60_000 {
		t.Fatalf("nonce/gas = %d/%d", tx.Nonce(), tx.Gas())
	}
	if tx.GasFeeCap().Int64() != 5_000_000_000 {
		t.Fatalf("fee cap = %s", tx.GasFeeCap())
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(31337)), tx)
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	if sender != signer.Address() {
		t.Fatalf("tx signed by %s, want %s", sender.Hex(), signer.Address().Hex())
	}
}

func TestWriteContract_Legacy(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, VariantClaim, backend)

	if _, err := c.WriteContract(context.Background(), newSigner(t), FnClaimTokens); err != nil {
		t.Fatalf("write: %v", err)
	}
	if backend.sent[0].Type() != types.LegacyTxType {
		t.Fatalf("expected legacy tx without base fee")
	}
}

func TestWriteContract_Rejected(t *testing.T) {
	backend := &fakeBackend{baseFee: big.NewInt(1)}
	c := newTestClient(t, VariantBasic, backend)

	signer := newSigner(t)
	signer.err = errors.New("user denied transaction signature")
	if _, err := c.WriteContract(context.Background(), signer, FnRestartGame); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	backend.gasErr = errors.New("execution reverted")
	if _, err := c.WriteContract(context.Background(), newSigner(t), FnRestartGame); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected on estimate failure, got %v", err)
	}
	if len(backend.sent) != 0 {
		t.Fatalf("nothing should be broadcast")
	}
}

func TestAwaitReceipt(t *testing.T) {
	backend := &fakeBackend{misses: 2, receipts: map[common.Hash]*types.Receipt{}}
	c := newTestClient(t, VariantBasic, backend)

	ok := Handle{Hash: common.HexToHash("0x01"), Function: FnRestartGame, SubmittedAt: time.Now()}
	bad := Handle{Hash: common.HexToHash("0x02"), Function: FnRestartGame, SubmittedAt: time.Now()}
	backend.receipts[ok.Hash] = &types.Receipt{TxHash: ok.Hash, Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(12), GasUsed: 21000}
	backend.receipts[bad.Hash] = &types.Receipt{TxHash: bad.Hash, Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(13)}

	r, err := c.AwaitReceipt(context.Background(), ok)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if r.Status != ReceiptConfirmed || r.BlockNumber != 12 {
		t.Fatalf("unexpected receipt %+v", r)
	}

	r, err = c.AwaitReceipt(context.Background(), bad)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if r.Status != ReceiptFailed {
		t.Fatalf("reverted tx should be failed, got %s", r.Status)
	}
}

func TestAwaitReceipt_ContextCancel(t *testing.T) {
	c := newTestClient(t, VariantBasic, &fakeBackend{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.AwaitReceipt(ctx, Handle{Hash: common.HexToHash("0xdead")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestAsUint(t *testing.T) {
	if _, err := AsUint(nil); !errors.Is(err, ErrUnexpectedOutput) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := AsUint([]any{"42"}); !errors.Is(err, ErrUnexpectedOutput) {
		t.Fatalf("string: %v", err)
	}
}
