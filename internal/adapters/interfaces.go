// Package adapters declares the collaborator contracts the vault core
// consumes but does not own: price oracle, swap router, per-input yield
// adapters, asset custody and access control. The core treats all of them as
// synchronous and trusted to either succeed completely or fail atomically.
package adapters

import (
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Oracle converts between asset denominations. A missing feed must surface
// as an error (the core maps it to types.ErrMissingOracle and propagates).
type Oracle interface {
	// ToUsd values an amount of asset in USD, 18-decimal fixed point.
	ToUsd(asset string, amount sdkmath.Int) (sdkmath.LegacyDec, error)
	// Convert re-denominates an amount from base into quote units.
	Convert(base string, amount sdkmath.Int, quote string) (sdkmath.Int, error)
	// ExchangeRate returns the base/quote rate, 18-decimal fixed point.
	ExchangeRate(base, quote string) (sdkmath.LegacyDec, error)
}

// SwapRouter exchanges one asset for another. Params are routing-specific
// and opaque to the accounting core; they are passed through unmodified.
type SwapRouter interface {
	DecodeAndSwap(inputAsset, outputAsset string, amount sdkmath.Int, params []byte) (received, spent sdkmath.Int, err error)
}

// InputAdapter is the per-input stake/unstake collaborator, one per yield
// source. Amounts are in the input's own asset units unless stated otherwise.
type InputAdapter interface {
	// Stake deposits input-asset units into the yield source and returns the
	// stake units issued.
	Stake(amount sdkmath.Int) (issued sdkmath.Int, err error)
	// Unstake recovers input-asset units from the yield source.
	Unstake(amount sdkmath.Int) (recovered sdkmath.Int, err error)
	// ClaimRewards harvests any accrued rewards, denominated in the slot's
	// reward token.
	ClaimRewards() (sdk.Coin, error)
	// InputToStake and StakeToInput convert between input-asset units and
	// stake units at the adapter's current rate.
	InputToStake(amount sdkmath.Int) (sdkmath.Int, error)
	StakeToInput(amount sdkmath.Int) (sdkmath.Int, error)
	// StakedBalance returns the vault's current position in stake units.
	StakedBalance() (sdkmath.Int, error)
}

// AccessController gates administrative, operator and public entry points.
// The core only ever consumes the boolean answer.
type AccessController interface {
	HasRole(account, role string) bool
}

// AssetBank is the custody collaborator holding the vault's un-invested
// asset balance. TransferIn reports the amount actually received so the core
// can account for fee-on-transfer assets by balance delta.
type AssetBank interface {
	TransferIn(from string, coin sdk.Coin) (received sdkmath.Int, err error)
	TransferOut(to string, coin sdk.Coin) error
	Balance(denom string) sdkmath.Int
}
