package vault_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/vce/internal/adapters"
	"github.com/meridianfi/vce/internal/types"
)

func TestInvestSplitsAcrossInputs(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10)
	mustDeposit(t, v, bob, 50_000)

	spent, err := v.Invest(operator, amountsFor(6_000, 4_000), noSwapParams())
	require.NoError(t, err)

	assert.Equal(t, sdkmath.NewInt(10_000), spent)
	inputs := v.InputStatuses()
	require.Len(t, inputs, 2)
	assert.Equal(t, "6000", inputs[0].Invested)
	assert.Equal(t, "4000", inputs[1].Invested)
	assert.Equal(t, sdkmath.NewInt(40_010), f.bank.Balance(assetDenom))
	// Conversions were 1:1, so total assets and share price are unchanged.
	assert.Equal(t, sdkmath.NewInt(50_010), v.TotalAssets())
	assert.Equal(t, sdkmath.LegacyOneDec(), v.SharePrice())
}

func TestInvestRequiresOperatorRole(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)

	_, err := v.Invest(alice, amountsFor(1_000), noSwapParams())
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestInvestRejectsMoreThanAvailableCash(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 5_000)

	_, err := v.Invest(operator, amountsFor(4_000, 2_000), noSwapParams())
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestInvestSlippageBreachFails(t *testing.T) {
	v, f := newTestVault(t, defaultParams()) // tolerance 100 bps
	mustDeposit(t, v, alice, 10_000)
	f.router.SetSlippage(200)

	_, err := v.Invest(operator, amountsFor(5_000), noSwapParams())
	require.ErrorIs(t, err, types.ErrSlippageExceeded)

	// The swap and stake executed before the breach was detected: 5000 left
	// custody and a 4900 position exists. The books must reflect both, so the
	// realized loss shows up in the price instead of a phantom asset gap.
	assert.Equal(t, sdkmath.NewInt(5_000), f.bank.Balance(assetDenom))
	assert.Equal(t, "4900", v.InputStatuses()[0].Invested)
	assert.Equal(t, sdkmath.NewInt(9_900), v.TotalAssets())
	assert.Equal(t, sdkmath.LegacyNewDecWithPrec(99, 2), v.SharePrice())
}

func TestFailedLiquidateKeepsCompletedInputsOnTheBooks(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	_, err := v.Invest(operator, amountsFor(3_000, 2_000), noSwapParams())
	require.NoError(t, err)

	// Input 0 settles its 1000 before input 1 fails on an impossible unstake.
	_, err = v.Liquidate(operator, amountsFor(1_000, 5_000), sdkmath.ZeroInt(), false, noSwapParams())
	require.Error(t, err)

	inputs := v.InputStatuses()
	assert.Equal(t, "2000", inputs[0].Invested)
	assert.Equal(t, "2000", inputs[1].Invested)
	assert.Equal(t, sdkmath.NewInt(6_000), f.bank.Balance(assetDenom))
	assert.Equal(t, sdkmath.NewInt(10_000), v.TotalAssets())
	assert.Equal(t, sdkmath.LegacyOneDec(), v.SharePrice())
	// The aborted call prepared no liquidity for claimants.
	assert.Equal(t, "0", v.Status().ClaimableShares)
}

func TestLiquidateRecoversAndAdvancesClaimable(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 50_010)
	_, err := v.Invest(operator, amountsFor(6_000, 4_000), noSwapParams())
	require.NoError(t, err)
	_, err = v.RequestRedeem(alice, sdkmath.NewInt(5_000), alice, alice)
	require.NoError(t, err)

	recovered, err := v.Liquidate(operator, amountsFor(3_000, 2_000), sdkmath.ZeroInt(), false, noSwapParams())
	require.NoError(t, err)

	assert.Equal(t, sdkmath.NewInt(5_000), recovered)
	status := v.Status()
	assert.Equal(t, "5000", status.ClaimableShares)
	assert.Equal(t, "0", status.PendingShares)
	inputs := v.InputStatuses()
	assert.Equal(t, "3000", inputs[0].Invested)
	assert.Equal(t, "2000", inputs[1].Invested)
	assert.Equal(t, sdkmath.NewInt(45_010), f.bank.Balance(assetDenom))
}

func TestLiquidateFloorEnforcedUnlessPanic(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 50_010)
	_, err := v.Invest(operator, amountsFor(6_000, 4_000), noSwapParams())
	require.NoError(t, err)

	floor := sdkmath.NewInt(1_000_000)
	_, err = v.Liquidate(operator, amountsFor(), floor, false, noSwapParams())
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	// Panic mode downgrades the floor breach to a logged event.
	_, err = v.Liquidate(operator, amountsFor(), floor, true, noSwapParams())
	require.NoError(t, err)
}

func TestHarvestSwapsRewardsIntoVaultAsset(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	f.staking[0].AccrueRewards(sdkmath.NewInt(1_000))

	harvested, err := v.Harvest(operator, noSwapParams())
	require.NoError(t, err)

	assert.Equal(t, sdkmath.NewInt(1_000), harvested)
	assert.Equal(t, sdkmath.NewInt(11_000), v.TotalAssets())

	// A second harvest with nothing accrued is a no-op.
	harvested, err = v.Harvest(operator, noSwapParams())
	require.NoError(t, err)
	assert.True(t, harvested.IsZero())
}

func TestCompoundHarvestsAndReinvests(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	f.staking[0].AccrueRewards(sdkmath.NewInt(500))

	harvested, spent, err := v.Compound(operator, amountsFor(500), noSwapParams())
	require.NoError(t, err)

	assert.Equal(t, sdkmath.NewInt(500), harvested)
	assert.Equal(t, sdkmath.NewInt(500), spent)
	assert.Equal(t, "500", v.InputStatuses()[0].Invested)
	assert.Equal(t, sdkmath.NewInt(10_500), v.TotalAssets())
}

func TestCollectFeesPerformance(t *testing.T) {
	params := defaultParams()
	params.Fees.PerfBps = 1_000 // 10%
	v, f := newTestVault(t, params)
	mustDeposit(t, v, alice, 10_000)
	f.creditYield(1_000) // price 1.00 -> 1.10

	minted, feeAssets, err := v.CollectFees(operator)
	require.NoError(t, err)

	// Fee: 10% of the 1000 appreciation. Shares: 100 * 10000 / (11000 - 100).
	assert.Equal(t, sdkmath.NewInt(100), feeAssets)
	assert.Equal(t, sdkmath.NewInt(91), minted)
	assert.Equal(t, sdkmath.NewInt(91), v.BalanceOf("collector"))

	// The checkpoint moved; collecting again immediately mints nothing.
	minted, feeAssets, err = v.CollectFees(operator)
	require.NoError(t, err)
	assert.True(t, minted.IsZero())
	assert.True(t, feeAssets.IsZero())
}

func TestCollectFeesManagementProRata(t *testing.T) {
	params := defaultParams()
	params.Fees.MgmtBps = 100 // 1% per year
	v, f := newTestVault(t, params)
	mustDeposit(t, v, alice, 10_000)
	f.advance(365 * 24 * time.Hour)

	minted, feeAssets, err := v.CollectFees(operator)
	require.NoError(t, err)

	assert.Equal(t, sdkmath.NewInt(100), feeAssets)
	assert.Equal(t, sdkmath.NewInt(101), minted) // 100 * 10000 / 9900
}

func TestCollectFeesExcludesCoolingHarvestProfit(t *testing.T) {
	params := defaultParams()
	params.Fees.PerfBps = 1_000
	v, f := newTestVault(t, params)
	mustDeposit(t, v, alice, 10_000)
	f.staking[0].AccrueRewards(sdkmath.NewInt(1_000))
	_, err := v.Harvest(operator, noSwapParams())
	require.NoError(t, err)

	// Immediately after the harvest all profit is unrecognized.
	minted, feeAssets, err := v.CollectFees(operator)
	require.NoError(t, err)
	assert.True(t, minted.IsZero())
	assert.True(t, feeAssets.IsZero())

	// Past the cooldown the full profit is fee-eligible.
	f.advance(2 * time.Hour)
	minted, feeAssets, err = v.CollectFees(operator)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), feeAssets)
	assert.True(t, minted.IsPositive())
}

func TestCollectFeesRequiresOperatorRole(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())

	_, _, err := v.CollectFees(alice)
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestSetInputsRequiresPriorLiquidation(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	_, err := v.Invest(operator, amountsFor(3_000), noSwapParams())
	require.NoError(t, err)

	newSlots := []types.InputSlot{{Asset: "ujuno", WeightBps: 5_000}}
	newAdapters := []adapters.InputAdapter{adapters.NewPaperStaking("", sdkmath.LegacyOneDec())}

	// Replacing the still-invested slot 0 with a different asset must fail.
	err = v.SetInputs(admin, newSlots, newAdapters)
	require.ErrorIs(t, err, types.ErrInvalidParams)

	// After full liquidation the replacement goes through.
	_, err = v.Liquidate(operator, amountsFor(3_000), sdkmath.ZeroInt(), false, noSwapParams())
	require.NoError(t, err)
	f.oracle.SetRate("ujuno", assetDenom, sdkmath.LegacyOneDec())
	err = v.SetInputs(admin, newSlots, newAdapters)
	require.NoError(t, err)
}

func TestSetFeesValidatesCapsAndRole(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())

	err := v.SetFees(alice, types.Fees{PerfBps: 100})
	require.ErrorIs(t, err, types.ErrUnauthorized)

	err = v.SetFees(admin, types.Fees{PerfBps: 6_000})
	require.ErrorIs(t, err, types.ErrInvalidParams)

	require.NoError(t, v.SetFees(admin, types.Fees{PerfBps: 2_000, MgmtBps: 100}))
}
