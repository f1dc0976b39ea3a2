package vault_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/vce/internal/types"
)

func TestRequestRedeemReservesShares(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)

	id, err := v.RequestRedeem(alice, sdkmath.NewInt(2_000), alice, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	// Reserved shares cannot be spent through the direct exit path.
	_, err = v.Redeem(alice, sdkmath.NewInt(9_000), alice, alice)
	require.ErrorIs(t, err, types.ErrAmountTooHigh)

	// The unreserved remainder still can.
	_, err = v.Redeem(alice, sdkmath.NewInt(8_000), alice, alice)
	require.NoError(t, err)
}

func TestRequestRedeemRejectsOverRequest(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 1_000)

	_, err := v.RequestRedeem(alice, sdkmath.NewInt(1_001), alice, alice)
	require.ErrorIs(t, err, types.ErrAmountTooHigh)
}

func TestRequestNotClaimableBeforeLiquidation(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	_, err := v.RequestRedeem(alice, sdkmath.NewInt(2_000), alice, alice)
	require.NoError(t, err)

	// Even past the lock, nothing is claimable until liquidity is prepared.
	f.advance(48 * time.Hour)
	assert.True(t, v.ClaimableOf(alice, alice).IsZero())
	assert.Equal(t, sdkmath.NewInt(2_000), v.PendingOf(alice, alice))
}

func TestRedeemClaimsAtWorseOfRequestAndCurrentPrice(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	_, err := v.RequestRedeem(alice, sdkmath.NewInt(2_000), alice, alice)
	require.NoError(t, err)

	// Prepare liquidity; the liquidation matures the request immediately.
	_, err = v.Liquidate(operator, amountsFor(), sdkmath.ZeroInt(), false, noSwapParams())
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(2_000), v.ClaimableOf(alice, alice))

	// Price rises after the request: the claim still settles at 1.0.
	f.creditYield(800)
	f.advance(48 * time.Hour)

	assets, err := v.Redeem(alice, sdkmath.NewInt(2_000), alice, alice)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(2_000), assets)
	assert.Equal(t, sdkmath.NewInt(8_000), v.BalanceOf(alice))
	assert.True(t, v.ClaimableOf(alice, alice).IsZero())
}

func TestRedeemClaimsAtCurrentPriceWhenPriceFell(t *testing.T) {
	params := defaultParams()
	params.RedemptionLockSeconds = 0
	v, f := newTestVault(t, params)
	mustDeposit(t, v, alice, 10_000)
	_, err := v.RequestRedeem(alice, sdkmath.NewInt(2_000), alice, alice)
	require.NoError(t, err)
	_, err = v.Liquidate(operator, amountsFor(), sdkmath.ZeroInt(), false, noSwapParams())
	require.NoError(t, err)

	// Simulate a loss: drain 10% of custody.
	require.NoError(t, f.bank.TransferOut("loss", sdk.NewCoin(assetDenom, sdkmath.NewInt(1_000))))

	assets, err := v.Redeem(alice, sdkmath.NewInt(2_000), alice, alice)
	require.NoError(t, err)
	assert.True(t, assets.LT(sdkmath.NewInt(2_000)), "claim settled above the fallen price: %s", assets)
}

func TestCancelRedeemBurnsOpportunityCost(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	_, err := v.RequestRedeem(alice, sdkmath.NewInt(1_000), alice, alice)
	require.NoError(t, err)

	// Price rises from 1.00 to 1.05 while the request is pending.
	f.creditYield(500)

	burned, err := v.CancelRedeemRequest(alice, alice, alice)
	require.NoError(t, err)

	// floor(1000 * 0.05 / 1.05) = 47 shares of foregone appreciation.
	assert.Equal(t, sdkmath.NewInt(47), burned)
	assert.Equal(t, sdkmath.NewInt(9_953), v.BalanceOf(alice))
	assert.Equal(t, sdkmath.NewInt(9_953), v.TotalSupply())
	_, found := v.RequestOf(alice, alice)
	assert.False(t, found)
}

func TestCancelRedeemBurnStaysWithinReservedShares(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	_, err := v.RequestRedeem(alice, sdkmath.NewInt(1_000), alice, alice)
	require.NoError(t, err)

	// A 10x run-up maximizes the clawback. burn = floor(1000 * 9 / 10) stays
	// strictly below the 1000 reserved shares, so the owner balance covers it
	// without clamping.
	f.creditYield(90_000)

	burned, err := v.CancelRedeemRequest(alice, alice, alice)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(900), burned)
	assert.True(t, burned.LT(sdkmath.NewInt(1_000)))
	assert.Equal(t, sdkmath.NewInt(9_100), v.BalanceOf(alice))
	assert.Equal(t, sdkmath.NewInt(9_100), v.TotalSupply())
}

func TestCancelRedeemNoBurnWhenPriceFlat(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	_, err := v.RequestRedeem(alice, sdkmath.NewInt(1_000), alice, alice)
	require.NoError(t, err)

	burned, err := v.CancelRedeemRequest(alice, alice, alice)
	require.NoError(t, err)
	assert.True(t, burned.IsZero())
	assert.Equal(t, sdkmath.NewInt(10_000), v.BalanceOf(alice))
}

func TestCancelRequiresOwnerOrOperator(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	_, err := v.RequestRedeem(alice, sdkmath.NewInt(1_000), alice, alice)
	require.NoError(t, err)

	_, err = v.CancelRedeemRequest(bob, alice, alice)
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestRepeatRequestsAggregateWithVolumeWeightedPrice(t *testing.T) {
	v, f := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)

	_, err := v.RequestRedeem(alice, sdkmath.NewInt(1_000), alice, alice)
	require.NoError(t, err)

	f.creditYield(2_000) // price 1.20
	_, err = v.RequestRedeem(alice, sdkmath.NewInt(500), alice, alice)
	require.NoError(t, err)

	view, found := v.RequestOf(alice, alice)
	require.True(t, found)
	assert.Equal(t, "1500", view.Shares)

	// VWAP: (1000*1.00 + 500*1.20) / 1500
	want := sdkmath.LegacyNewDec(1_600).Quo(sdkmath.LegacyNewDec(1_500))
	assert.Equal(t, want.String(), view.SharePrice)
}

func TestClaimableNeverExceedsRequestedTotal(t *testing.T) {
	v, _ := newTestVault(t, defaultParams())
	mustDeposit(t, v, alice, 10_000)
	mustDeposit(t, v, bob, 5_000)

	_, err := v.RequestRedeem(alice, sdkmath.NewInt(3_000), alice, alice)
	require.NoError(t, err)
	_, err = v.RequestRedeem(bob, sdkmath.NewInt(1_000), bob, bob)
	require.NoError(t, err)

	_, err = v.Liquidate(operator, amountsFor(), sdkmath.ZeroInt(), false, noSwapParams())
	require.NoError(t, err)

	status := v.Status()
	assert.Equal(t, "0", status.PendingShares)
	assert.Equal(t, "4000", status.ClaimableShares)

	// Claiming reduces the claimable and requested totals together.
	_, err = v.Redeem(alice, sdkmath.NewInt(3_000), alice, alice)
	require.NoError(t, err)
	status = v.Status()
	assert.Equal(t, "1000", status.ClaimableShares)
	assert.Equal(t, "0", status.PendingShares)
}
