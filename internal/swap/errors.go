package swap

import (
	"errors"

	"github.com/snipeworks/solana-sniper/internal/solana"
)

var (
	// ErrQuoteUnavailable means the aggregator answered with an error
	// for the requested route.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrQuoteMalformed means the quote response was not JSON or did not
	// match the expected schema.
	ErrQuoteMalformed = errors.New("quote malformed")

	// ErrQuoteTimeout means the quote request timed out.
	ErrQuoteTimeout = errors.New("quote timeout")

	// ErrQuoteExpired means the quote aged past the freshness window
	// before signing. A fresh quote must be fetched.
	ErrQuoteExpired = errors.New("quote expired")

	// ErrBuildIncomplete means the build response omitted the
	// transaction payload.
	ErrBuildIncomplete = errors.New("build response missing transaction")

	// ErrSubmitRejected means the node rejected the transaction at
	// submission. No state changed on-chain.
	ErrSubmitRejected = errors.New("submission rejected")

	// ErrConfirmationTimeout means the transaction was submitted but not
	// confirmed within the window. Funds may or may not have moved.
	ErrConfirmationTimeout = solana.ErrConfirmationTimeout
)
