package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"guess_dapp/internal/chain"
	"guess_dapp/internal/logger"
)

// ChainClient is the contract adapter the controller drives
type ChainClient interface {
	ReadContractValue(ctx context.Context, from common.Address, function string, args ...any) ([]any, error)
	WriteContract(ctx context.Context, signer chain.Signer, function string, args ...any) (chain.Handle, error)
	AwaitReceipt(ctx context.Context, h chain.Handle) (chain.Receipt, error)
}

// Wallet is the connector that owns the current account
type Wallet interface {
	Account() (common.Address, bool)
	IsConnected() bool
	Signer() (chain.Signer, bool)
}

type state struct {
	result          *big.Int
	revealRequested bool
	outcome         Outcome
	celebrate       bool
	modal           ModalKind
	inlineError     string
	readError       string
	writes          map[Action]WriteState
	notices         []Notice
}

// Controller holds one game session and mediates between user actions and
// the contract. It is safe for concurrent use.
type Controller struct {
	cfg      Config
	chain    ChainClient
	wallet   Wallet
	verifier Verifier
	log      *slog.Logger

	mu        sync.Mutex
	st        state
	seq       uint64
	version   uint64
	listeners []func(Snapshot)
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a controller. A nil verifier compares locally, a nil log uses the
// global logger.
func New(cfg Config, client ChainClient, w Wallet, verifier Verifier, log *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if verifier == nil {
		verifier = LocalVerifier{}
	}
	if log == nil {
		log = logger.Component("game")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:      cfg,
		chain:    client,
		wallet:   w,
		verifier: verifier,
		log:      log,
		st: state{
			outcome: OutcomeUnset,
			modal:   ModalNone,
			writes: map[Action]WriteState{
				ActionRestart: {Status: WriteIdle},
				ActionClaim:   {Status: WriteIdle},
			},
		},
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}, nil
}

// Config returns the deployment the controller is bound to
func (c *Controller) Config() Config {
	return c.cfg
}

// Listen registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
func (c *Controller) Listen(fn func(Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Close stops receipt tracking. In-flight transactions are not affected.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// FetchSecret reads the secret from the contract into the cache.
// A failed read keeps the previous value.
func (c *Controller) FetchSecret(ctx context.Context) (*big.Int, error) {
	from, _ := c.wallet.Account()

	values, err := c.chain.ReadContractValue(ctx, from, chain.FnGetRandomNumber)
	var n *big.Int
	if err == nil {
		n, err = chain.AsUint(values)
	}

	c.mu.Lock()
	if err != nil {
		c.st.readError = err.Error()
		c.mu.Unlock()
		c.log.Warn("fetch secret failed", logger.Err(err))
		c.changed()
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	c.st.result = n
	c.st.readError = ""
	c.mu.Unlock()

	c.log.Debug("secret fetched")
	c.changed()
	return new(big.Int).Set(n), nil
}

// SubmitGuess compares the guess with the cached secret
func (c *Controller) SubmitGuess(ctx context.Context, guess string) (Outcome, error) {
	if !c.wallet.IsConnected() {
		return OutcomeUnset, ErrNotConnected
	}

	c.mu.Lock()
	secret := c.st.result
	c.mu.Unlock()

	ok, err := c.verifier.Verify(ctx, guess, secret)
	if err != nil {
		c.log.Error("verify guess failed", logger.Err(err))
		return OutcomeUnset, err
	}

	c.mu.Lock()
	if ok {
		c.st.outcome = OutcomeCorrect
		c.st.celebrate = true
		c.st.inlineError = ""
		if c.cfg.Capabilities.Claim {
			c.st.modal = ModalReward
		} else {
			c.st.modal = ModalCongrats
		}
	} else {
		c.st.outcome = OutcomeIncorrect
		c.st.celebrate = false
		c.st.inlineError = incorrectMessage
	}
	outcome := c.st.outcome
	c.mu.Unlock()

	c.log.Info("guess submitted", "outcome", outcome)
	c.changed()
	return outcome, nil
}

// Reveal shows the cached secret. It never touches the contract.
func (c *Controller) Reveal() error {
	if !c.wallet.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	already := c.st.revealRequested
	c.st.revealRequested = true
	c.mu.Unlock()

	if !already {
		c.changed()
	}
	return nil
}

// CloseModal dismisses the dialog
func (c *Controller) CloseModal() {
	c.mu.Lock()
	was := c.st.modal
	c.st.modal = ModalNone
	c.mu.Unlock()

	if was != ModalNone {
		c.changed()
	}
}

// DismissNotice removes a toast by id
func (c *Controller) DismissNotice(id string) bool {
	c.mu.Lock()
	found := false
	for i, n := range c.st.notices {
		if n.ID == id {
			c.st.notices = append(c.st.notices[:i:i], c.st.notices[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()

	if found {
		c.changed()
	}
	return found
}

// RestartGame asks the contract for a new secret
func (c *Controller) RestartGame(ctx context.Context) error {
	return c.write(ctx, ActionRestart)
}

// ClaimToken claims the reward after a correct guess
func (c *Controller) ClaimToken(ctx context.Context) error {
	if !c.cfg.Capabilities.Claim {
		return ErrClaimUnavailable
	}
	if !c.wallet.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	outcome := c.st.outcome
	c.mu.Unlock()
	if outcome != OutcomeCorrect {
		return ErrClaimLocked
	}

	return c.write(ctx, ActionClaim)
}

// write runs one invocation of an action. A later invocation of the same
// action replaces this one's tracking; results of the older one are dropped.
func (c *Controller) write(ctx context.Context, action Action) error {
	signer, ok := c.wallet.Signer()
	if !ok {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.st.writes[action] = WriteState{Status: WriteSubmitting, seq: seq}
	c.mu.Unlock()
	c.changed()

	h, err := c.chain.WriteContract(ctx, signer, action.function())

	c.mu.Lock()
	current := c.st.writes[action].seq == seq
	if err != nil {
		if current {
			c.st.writes[action] = WriteState{Status: WriteRejected, Error: err.Error(), seq: seq}
		}
		c.mu.Unlock()
		c.log.Error("write rejected", "action", action, logger.Err(err))
		c.changed()
		return fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}
	if current {
		c.st.writes[action] = WriteState{Status: WritePending, Handle: &h, seq: seq}
	}
	c.mu.Unlock()

	c.log.Info("transaction submitted", "action", action, "tx", h.Hash.Hex())
	if !current {
		c.log.Warn("write superseded before submission finished", "action", action, "tx", h.Hash.Hex())
		return nil
	}
	c.changed()

	// Add under mu so it never races the Wait in Close
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Warn("controller closed, receipt not tracked", "action", action, "tx", h.Hash.Hex())
		return nil
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.track(action, seq, h)
	return nil
}

func (c *Controller) track(action Action, seq uint64, h chain.Handle) {
	defer c.wg.Done()

	r, err := c.chain.AwaitReceipt(c.ctx, h)
	if err != nil {
		if c.ctx.Err() == nil {
			c.log.Error("receipt wait failed, leaving transaction pending", "action", action, "tx", h.Hash.Hex(), logger.Err(err))
		}
		return
	}

	c.mu.Lock()
	if c.st.writes[action].seq != seq {
		c.mu.Unlock()
		c.log.Debug("receipt for superseded write ignored", "action", action, "tx", h.Hash.Hex())
		return
	}

	status := WriteConfirmed
	if r.Status != chain.ReceiptConfirmed {
		status = WriteFailed
	}
	c.st.writes[action] = WriteState{Status: status, Handle: &h, Receipt: &r, seq: seq}

	if action == ActionClaim && status == WriteConfirmed {
		c.st.modal = ModalNone
		c.st.notices = append(c.st.notices, Notice{
			ID:        uuid.NewString(),
			Kind:      "success",
			Message:   claimedMessage,
			TxHash:    h.Hash.Hex(),
			CreatedAt: c.now(),
		})
		if len(c.st.notices) > maxNotices {
			c.st.notices = c.st.notices[len(c.st.notices)-maxNotices:]
		}
	}
	c.mu.Unlock()

	if status == WriteConfirmed {
		c.log.Info("transaction confirmed", "action", action, "tx", h.Hash.Hex(), "block", r.BlockNumber)
	} else {
		c.log.Warn("transaction reverted", "action", action, "tx", h.Hash.Hex(), "block", r.BlockNumber)
	}
	c.changed()
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:      c.version,
		Revealed:     c.st.revealRequested && c.st.result != nil,
		Outcome:      c.st.outcome,
		Celebrate:    c.st.celebrate,
		Modal:        c.st.modal,
		InlineError:  c.st.inlineError,
		ReadError:    c.st.readError,
		Writes:       make(map[Action]WriteState, len(c.st.writes)),
		Notices:      append([]Notice{}, c.st.notices...),
		Capabilities: c.cfg.Capabilities,
	}

	s.Known = c.st.result != nil
	switch {
	case !c.st.revealRequested:
		s.Display = hiddenPlaceholder
	case c.st.result == nil:
		s.Display = unknownPlaceholder
	default:
		s.Result = c.st.result.String()
		s.Display = s.Result
	}

	for a, w := range c.st.writes {
		s.Writes[a] = w
	}

	if acc, ok := c.wallet.Account(); ok {
		s.Connected = true
		s.Account = acc.Hex()
	}
	return s
}

// changed bumps the version and hands a snapshot to the listeners
func (c *Controller) changed() {
	c.mu.Lock()
	c.version++
	snap := c.snapshotLocked()
	listeners := append([]func(Snapshot){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Notify publishes the current state without a change of its own, e.g. after
// the wallet connects or disconnects.
func (c *Controller) Notify() {
	c.changed()
}
