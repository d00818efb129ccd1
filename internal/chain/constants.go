package chain

import "time"

// Variant names one of the ABI shapes the game contract was deployed with
type Variant string

const (
	// VariantBasic has no token claiming
	VariantBasic Variant = "basic"
	// VariantClaim adds claimTokens()
	VariantClaim Variant = "claim"
)

// Contract functions used by the host
const (
	FnGetRandomNumber = "getRandomNumber"
	FnRestartGame     = "restartGame"
	FnClaimTokens     = "claimTokens"
	FnGuess           = "guess"
)

const (
	// DefaultPollInterval is how often a pending receipt is polled
	DefaultPollInterval = 2 * time.Second

	// gasHeadroomPercent is added on top of the node's gas estimate
	gasHeadroomPercent = 20
)

// ReceiptStatus is the terminal outcome of a mined transaction
type ReceiptStatus string

const (
	ReceiptConfirmed ReceiptStatus = "confirmed"
	ReceiptFailed    ReceiptStatus = "failed"
)
