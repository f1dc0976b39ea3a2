package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vce/internal/fees"
	"github.com/meridianfi/vce/internal/types"
)

// CollectFees accrues the performance and management fee since the last
// collection and mints the equivalent shares to the fee collector, diluting
// holders by exactly the fee value. Harvest profit still inside the cooldown
// window is excluded from the fee basis, so collecting right after a harvest
// cannot recognize unearned appreciation. Returns the shares minted and the
// fee in asset units.
func (v *Vault) CollectFees(caller string) (sdkmath.Int, sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.collectFeesLocked(caller)
}

func (v *Vault) collectFeesLocked(caller string) (sdkmath.Int, sdkmath.Int, error) {
	if err := v.requireRole(caller, types.RoleOperator); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	now := v.now()
	elapsed := int64(now.Sub(v.checkpoint.FeeCollection).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	supply := v.accountedSupply()
	harvestAge := int64(now.Sub(v.checkpoint.Harvest).Seconds())
	unrecognized := fees.UnrecognizedProfit(v.expectedProfit, harvestAge, v.params.ProfitCooldownSeconds)
	basis := v.accountedAssets().Sub(unrecognized)
	if basis.IsNegative() {
		basis = sdkmath.ZeroInt()
	}
	price := sdkmath.LegacyOneDec()
	if supply.IsPositive() {
		price = sdkmath.LegacyNewDecFromInt(basis).QuoInt(supply)
	}

	perf, mgmt, err := fees.Accrued(basis, supply, price, v.checkpoint.AccountedSharePrice, v.params.Fees, elapsed)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	feeAssets := perf.Add(mgmt)
	minted := fees.FeeShares(feeAssets, basis, supply)
	v.mint(v.params.FeeCollector, minted)

	if price.GT(v.checkpoint.AccountedSharePrice) && supply.IsPositive() {
		profit := price.Sub(v.checkpoint.AccountedSharePrice).MulInt(supply).TruncateInt()
		v.checkpoint.AccountedProfit = v.checkpoint.AccountedProfit.Add(profit)
	}
	supplyAfter := supply.Add(minted)
	if supplyAfter.IsPositive() {
		v.checkpoint.AccountedSharePrice = sdkmath.LegacyNewDecFromInt(basis).QuoInt(supplyAfter)
	} else {
		v.checkpoint.AccountedSharePrice = sdkmath.LegacyOneDec()
	}
	v.checkpoint.FeeCollection = now

	v.log.Info().
		Str("perf_fee", perf.String()).
		Str("mgmt_fee", mgmt.String()).
		Str("fee_shares", minted.String()).
		Str("accounted_price", v.checkpoint.AccountedSharePrice.String()).
		Int64("elapsed_seconds", elapsed).
		Msg("Fees collected")
	return minted, feeAssets, nil
}
