package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vce/internal/planner"
	"github.com/meridianfi/vce/internal/types"
)

// SharePrice returns the current share price: accounted assets over accounted
// supply, 1.0 for an empty vault. Never consults the oracle.
func (v *Vault) SharePrice() sdkmath.LegacyDec {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sharePrice()
}

// TotalAssets is the vault's cash plus the cached value of every input
// position, in vault-asset base units.
func (v *Vault) TotalAssets() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalAssets()
}

// TotalSupply is the raw outstanding share supply.
func (v *Vault) TotalSupply() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.supply
}

// AccountedSupply excludes shares already earmarked for claimable redemption.
func (v *Vault) AccountedSupply() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.accountedSupply()
}

// AccountedAssets excludes the asset reserve backing claimable redemptions.
func (v *Vault) AccountedAssets() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.accountedAssets()
}

// Available is the cash not reserved for claimable redemptions.
func (v *Vault) Available() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.available()
}

// AvailableClaimable is the total cash on hand, redemption reserve included.
func (v *Vault) AvailableClaimable() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.availableClaimable()
}

// BalanceOf returns the account's share balance.
func (v *Vault) BalanceOf(account string) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balanceOf(account)
}

// Params returns a copy of the vault configuration.
func (v *Vault) Params() types.VaultParams {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.params
}

// ConvertToShares prices assets into shares at the current share price.
func (v *Vault) ConvertToShares(assets sdkmath.Int, roundUp bool) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return convertToSharesAt(assets, v.sharePrice(), roundUp)
}

// ConvertToAssets prices shares into assets at the current share price.
func (v *Vault) ConvertToAssets(shares sdkmath.Int, roundUp bool) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return convertToAssetsAt(shares, v.sharePrice(), roundUp)
}

// Status returns the outward summary view.
func (v *Vault) Status() types.VaultStatus {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return types.VaultStatus{
		AssetDenom:      v.params.AssetDenom,
		SharePrice:      v.sharePrice().String(),
		TotalSupply:     v.supply.String(),
		AccountedSupply: v.accountedSupply().String(),
		TotalAssets:     v.totalAssets().String(),
		AccountedAssets: v.accountedAssets().String(),
		Cash:            v.cash().String(),
		Invested:        v.investedTotal().String(),
		PendingShares:   v.red.PendingShares().String(),
		ClaimableShares: v.red.TotalClaimableShares.String(),
		LastFeeCollect:  v.checkpoint.FeeCollection,
		LastLiquidate:   v.checkpoint.Liquidate,
		LastHarvest:     v.checkpoint.Harvest,
		LastInvest:      v.checkpoint.Invest,
	}
}

// InputStatuses returns the per-input view including each slot's signed
// deviation from its target allocation.
func (v *Vault) InputStatuses() []types.InputStatus {
	v.mu.RLock()
	defer v.mu.RUnlock()

	snap := v.plannerSnapshot()
	target := planner.InvestedTarget(snap)

	out := make([]types.InputStatus, 0, v.inputs.Len)
	for i := 0; i < v.inputs.Len; i++ {
		excess := sdkmath.ZeroInt()
		if e, err := planner.ExcessLiquidity(snap, target, i); err == nil {
			excess = e
		}
		slot := v.inputs.Slots[i]
		out = append(out, types.InputStatus{
			Index:       i,
			Asset:       slot.Asset,
			WeightBps:   slot.WeightBps,
			LPToken:     slot.LPToken,
			RewardToken: slot.RewardToken,
			Invested:    v.invested[i].String(),
			Excess:      excess.String(),
		})
	}
	return out
}

// PlannerSnapshot freezes the state the allocation planner previews against.
func (v *Vault) PlannerSnapshot() planner.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.plannerSnapshot()
}

func (v *Vault) plannerSnapshot() planner.Snapshot {
	price := v.sharePrice()
	pendingAssets := convertToAssetsAt(v.red.PendingShares(), price, false)
	return planner.Snapshot{
		Book:               v.inputs,
		Holdings:           v.invested,
		TotalAssets:        v.totalAssets(),
		Cash:               v.cash(),
		PendingWithdrawals: pendingAssets,
	}
}
