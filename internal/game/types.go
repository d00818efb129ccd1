package game

import (
	"errors"
	"time"

	"guess_dapp/internal/chain"
)

var (
	ErrNotConnected     = errors.New("wallet not connected")
	ErrClaimUnavailable = errors.New("claim not available for this contract")
	ErrClaimLocked      = errors.New("claim requires a correct guess")
	ErrReadFailed       = errors.New("contract read failed")
	ErrWriteRejected    = errors.New("contract write rejected")
	ErrClaimNotInABI    = errors.New("claim capability configured but abi has no claimTokens")
)

// Outcome of the last submitted guess
type Outcome string

const (
	OutcomeUnset     Outcome = "unset"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// ModalKind is the dialog a renderer should show
type ModalKind string

const (
	ModalNone     ModalKind = "none"
	ModalReward   ModalKind = "reward"
	ModalCongrats ModalKind = "congrats"
)

// Action is a write the controller can issue
type Action string

const (
	ActionRestart Action = "restart"
	ActionClaim   Action = "claim"
)

func (a Action) function() string {
	if a == ActionClaim {
		return chain.FnClaimTokens
	}
	return chain.FnRestartGame
}

// WriteStatus tags the lifecycle of one write action:
// idle -> submitting -> pending -> confirmed|failed, or submitting -> rejected
type WriteStatus string

const (
	WriteIdle       WriteStatus = "idle"
	WriteSubmitting WriteStatus = "submitting"
	WritePending    WriteStatus = "pending"
	WriteConfirmed  WriteStatus = "confirmed"
	WriteFailed     WriteStatus = "failed"
	WriteRejected   WriteStatus = "rejected"
)

// WriteState is the tracked state of the latest invocation of an action
type WriteState struct {
	Status  WriteStatus    `json:"status"`
	Handle  *chain.Handle  `json:"handle,omitempty"`
	Receipt *chain.Receipt `json:"receipt,omitempty"`
	Error   string         `json:"error,omitempty"`

	seq uint64
}

// Busy is true while the signer is being asked
func (w WriteState) Busy() bool {
	return w.Status == WriteSubmitting
}

// Capabilities are the optional actions a deployment supports
type Capabilities struct {
	Claim bool `json:"claim"`
}

// Config binds the controller to one deployment
type Config struct {
	Contract     *chain.Contract
	Capabilities Capabilities
}

func (c Config) Validate() error {
	if c.Contract == nil {
		return errors.New("contract is required")
	}
	if c.Capabilities.Claim && !c.Contract.Has(chain.FnClaimTokens) {
		return ErrClaimNotInABI
	}
	return nil
}

// Notice is a toast for the renderer
type Notice struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	TxHash    string    `json:"tx_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is a consistent copy of the session state. Result is only set
// once the secret is revealed.
type Snapshot struct {
	Version      uint64                `json:"version"`
	Known        bool                  `json:"known"`
	Result       string                `json:"result,omitempty"`
	Revealed     bool                  `json:"revealed"`
	Display      string                `json:"display"`
	Outcome      Outcome               `json:"outcome"`
	Celebrate    bool                  `json:"celebrate"`
	Modal        ModalKind             `json:"modal"`
	InlineError  string                `json:"inline_error,omitempty"`
	ReadError    string                `json:"read_error,omitempty"`
	Writes       map[Action]WriteState `json:"writes"`
	Notices      []Notice              `json:"notices"`
	Connected    bool                  `json:"connected"`
	Account      string                `json:"account,omitempty"`
	Capabilities Capabilities          `json:"capabilities"`
}

const (
	hiddenPlaceholder  = "???"
	unknownPlaceholder = "unknown"
	incorrectMessage   = "Incorrect guess, try again!"
	claimedMessage     = "Tokens claimed"
	maxNotices         = 20
)
