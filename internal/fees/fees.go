// Package fees holds the pure accounting math the vault's fee engine
// delegates to: performance/management accrual, profit linearization and
// dilution-exact fee share minting. Everything here is deterministic
// fixed-point arithmetic with no state.
package fees

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vce/internal/types"
)

const (
	SecondsPerYear = 31_536_000
)

// LinearizeProfit returns how much of an expected profit figure is recognized
// after age seconds of a cooldown window. Recognition ramps linearly from
// zero at age 0 to the full amount at the cooldown boundary, which blunts
// share-price-timing arbitrage around harvests.
func LinearizeProfit(expected sdkmath.Int, ageSeconds, cooldownSeconds int64) sdkmath.Int {
	if expected.IsNil() || !expected.IsPositive() || cooldownSeconds <= 0 {
		return sdkmath.ZeroInt()
	}
	if ageSeconds >= cooldownSeconds {
		return expected
	}
	if ageSeconds <= 0 {
		return sdkmath.ZeroInt()
	}
	return expected.MulRaw(ageSeconds).QuoRaw(cooldownSeconds)
}

// UnrecognizedProfit is the remainder of LinearizeProfit.
func UnrecognizedProfit(expected sdkmath.Int, ageSeconds, cooldownSeconds int64) sdkmath.Int {
	return expected.Sub(LinearizeProfit(expected, ageSeconds, cooldownSeconds))
}

// Accrued computes the performance and management fee owed in vault-asset
// units since the last checkpoint.
//
// Performance fee applies to the share-price appreciation above the last
// accounted price, valued across the accounted supply. Management fee is
// pro rata temporis on the accounted assets.
func Accrued(
	accountedAssets sdkmath.Int,
	accountedSupply sdkmath.Int,
	price sdkmath.LegacyDec,
	lastPrice sdkmath.LegacyDec,
	schedule types.Fees,
	elapsedSeconds int64,
) (perf, mgmt sdkmath.Int, err error) {
	perf, mgmt = sdkmath.ZeroInt(), sdkmath.ZeroInt()
	if accountedAssets.IsNil() || accountedAssets.IsNegative() || accountedSupply.IsNil() || accountedSupply.IsNegative() {
		return perf, mgmt, fmt.Errorf("%w: negative accounted totals", types.ErrInvalidParams)
	}
	if price.IsNil() || lastPrice.IsNil() || price.IsNegative() || lastPrice.IsNegative() {
		return perf, mgmt, fmt.Errorf("%w: invalid prices", types.ErrInvalidParams)
	}
	if elapsedSeconds < 0 {
		return perf, mgmt, fmt.Errorf("%w: negative elapsed time", types.ErrInvalidParams)
	}

	if schedule.PerfBps > 0 && price.GT(lastPrice) && accountedSupply.IsPositive() {
		profit := price.Sub(lastPrice).MulInt(accountedSupply)
		perf = profit.MulInt64(int64(schedule.PerfBps)).QuoInt64(types.BpsDenominator).TruncateInt()
	}

	if schedule.MgmtBps > 0 && elapsedSeconds > 0 && accountedAssets.IsPositive() {
		mgmt = accountedAssets.
			MulRaw(int64(schedule.MgmtBps)).
			MulRaw(elapsedSeconds).
			QuoRaw(types.BpsDenominator).
			QuoRaw(SecondsPerYear)
	}

	return perf, mgmt, nil
}

// FeeShares converts a fee denominated in assets into the number of shares to
// mint to the collector so that the collector's claim on the vault equals the
// fee exactly after dilution: shares = fee * supply / (totalAssets - fee).
func FeeShares(feeAssets, totalAssets, supply sdkmath.Int) sdkmath.Int {
	if feeAssets.IsNil() || !feeAssets.IsPositive() || supply.IsNil() || !supply.IsPositive() {
		return sdkmath.ZeroInt()
	}
	base := totalAssets.Sub(feeAssets)
	if !base.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return feeAssets.Mul(supply).Quo(base)
}
