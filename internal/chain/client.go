package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrRejected         = errors.New("transaction rejected")
	ErrUnexpectedOutput = errors.New("unexpected contract output")
)

// Backend is the subset of ethclient.Client the adapter needs.
// Tests substitute an in-memory node.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Signer signs transactions on behalf of a connected account
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Handle identifies a submitted write
type Handle struct {
	Hash        common.Hash `json:"hash"`
	Function    string      `json:"function"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Receipt is the mined result of a write
type Receipt struct {
	TxHash      common.Hash   `json:"tx_hash"`
	Status      ReceiptStatus `json:"status"`
	BlockNumber uint64        `json:"block_number"`
	GasUsed     uint64        `json:"gas_used"`
}

// Client reads and writes one game contract through a Backend
type Client struct {
	backend      Backend
	contract     *Contract
	chainID      *big.Int
	pollInterval time.Duration
	now          func() time.Time
}

// NewClient creates a contract client. A zero pollInterval uses DefaultPollInterval.
func NewClient(backend Backend, contract *Contract, chainID *big.Int, pollInterval time.Duration) *Client {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Client{
		backend:      backend,
		contract:     contract,
		chainID:      chainID,
		pollInterval: pollInterval,
		now:          time.Now,
	}
}

// Dial connects to an RPC endpoint. A nil chainID is asked from the node.
func Dial(ctx context.Context, rpcURL string, contract *Contract, chainID *big.Int, pollInterval time.Duration) (*Client, *ethclient.Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	if chainID == nil {
		chainID, err = rpc.ChainID(ctx)
		if err != nil {
			rpc.Close()
			return nil, nil, fmt.Errorf("chain id: %w", err)
		}
	}

	return NewClient(rpc, contract, chainID, pollInterval), rpc, nil
}

// Contract returns the bound contract
func (c *Client) Contract() *Contract {
	return c.contract
}

// ChainID returns the chain the client signs for
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Ping checks the node answers
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.backend.HeaderByNumber(ctx, nil)
	return err
}

// ReadContractValue calls a view function and returns its decoded outputs.
// from may be the zero address.
func (c *Client) ReadContractValue(ctx context.Context, from common.Address, function string, args ...any) (out []any, err error) {
	defer func() { observeCall(function, "read", err) }()

	if _, err := c.contract.method(function); err != nil {
		return nil, err
	}

	data, err := c.contract.ABI.Pack(function, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", function, err)
	}

	to := c.contract.Address
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", function, err)
	}

	out, err = c.contract.ABI.Unpack(function, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnexpectedOutput, function, err)
	}
	return out, nil
}

// WriteContract builds, signs and broadcasts a call to a state-changing function.
// Signer failures are reported as ErrRejected.
func (c *Client) WriteContract(ctx context.Context, signer Signer, function string, args ...any) (h Handle, err error) {
	defer func() { observeCall(function, "write", err) }()

	if _, err := c.contract.method(function); err != nil {
		return Handle{}, err
	}

	data, err := c.contract.ABI.Pack(function, args...)
	if err != nil {
		return Handle{}, fmt.Errorf("pack %s: %w", function, err)
	}

	from := signer.Address()
	to := c.contract.Address

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return Handle{}, fmt.Errorf("nonce for %s: %w", from.Hex(), err)
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return Handle{}, fmt.Errorf("%w: estimate %s: %w", ErrRejected, function, err)
	}
	gas += gas * gasHeadroomPercent / 100

	tx, err := c.buildTx(ctx, nonce, gas, to, data)
	if err != nil {
		return Handle{}, err
	}

	signed, err := signer.SignTx(tx, c.chainID)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: sign %s: %w", ErrRejected, function, err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return Handle{}, fmt.Errorf("%w: send %s: %w", ErrRejected, function, err)
	}

	return Handle{
		Hash:        signed.Hash(),
		Function:    function,
		SubmittedAt: c.now(),
	}, nil
}

func (c *Client) buildTx(ctx context.Context, nonce, gas uint64, to common.Address, data []byte) (*types.Transaction, error) {
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}

	// pre-London chains
	if head.BaseFee == nil {
		price, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       &to,
			Value:    new(big.Int),
			Data:     data,
		}), nil
	}

	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas tip: %w", err)
	}
	feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     new(big.Int),
		Data:      data,
	}), nil
}

// AwaitReceipt polls until the transaction is mined. It has no deadline of its
// own and returns only on a receipt, a backend error or ctx cancellation.
func (c *Client) AwaitReceipt(ctx context.Context, h Handle) (Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		r, err := c.backend.TransactionReceipt(ctx, h.Hash)
		switch {
		case err == nil && r != nil:
			ReceiptWait.WithLabelValues(h.Function).Observe(c.now().Sub(h.SubmittedAt).Seconds())
			return toReceipt(r), nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return Receipt{}, fmt.Errorf("receipt %s: %w", h.Hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func toReceipt(r *types.Receipt) Receipt {
	status := ReceiptFailed
	if r.Status == types.ReceiptStatusSuccessful {
		status = ReceiptConfirmed
	}

	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}

	return Receipt{
		TxHash:      r.TxHash,
		Status:      status,
		BlockNumber: block,
		GasUsed:     r.GasUsed,
	}
}

// AsUint extracts a single uint256 output
func AsUint(values []any) (*big.Int, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: want 1 value, got %d", ErrUnexpectedOutput, len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: want uint256, got %T", ErrUnexpectedOutput, values[0])
	}
	return new(big.Int).Set(v), nil
}
