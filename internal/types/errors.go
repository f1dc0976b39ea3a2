package types

import "errors"

// Shared error taxonomy. Every mutating entry point surfaces one of these,
// usually wrapped with operation context via fmt.Errorf("...: %w", err).
var (
	// ErrAmountTooLow covers zero or dust-sized amounts and slippage-reduced
	// results that fall below the caller's tolerance.
	ErrAmountTooLow = errors.New("amount too low")

	// ErrAmountTooHigh covers deposit-cap breaches and withdrawals exceeding
	// the currently available (non-reserved) liquidity.
	ErrAmountTooHigh = errors.New("amount too high")

	// ErrUnauthorized is returned when the caller lacks the required role or
	// is neither the owner nor the recorded operator of a request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAllowanceExceeded is returned when a caller spends more of an
	// owner's shares than the owner approved.
	ErrAllowanceExceeded = errors.New("allowance exceeded")

	// ErrInsufficientLiquidity is returned when an operation would breach the
	// vault's minimum liquidity floor.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrSlippageExceeded is returned when a realized swap or staking result
	// lands below the configured tolerance.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrMissingOracle is returned when the price oracle collaborator cannot
	// answer a conversion. It is always propagated, never swallowed.
	ErrMissingOracle = errors.New("missing oracle feed")

	// ErrInvalidParams covers malformed parameter arrays, weight overflows and
	// inconsistent administrative input.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrInvariant marks an internal sanity check failing. It should never
	// occur given correct inputs and is treated as fatal by callers.
	ErrInvariant = errors.New("accounting invariant violated")
)
