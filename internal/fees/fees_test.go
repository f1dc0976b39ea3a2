package fees_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/vce/internal/fees"
	"github.com/meridianfi/vce/internal/types"
)

func TestLinearizeProfit(t *testing.T) {
	tests := []struct {
		name     string
		expected sdkmath.Int
		age      int64
		cooldown int64
		want     sdkmath.Int
	}{
		{"fresh profit is fully unrecognized", sdkmath.NewInt(1_000), 0, 3_600, sdkmath.ZeroInt()},
		{"half the window recognizes half", sdkmath.NewInt(1_000), 1_800, 3_600, sdkmath.NewInt(500)},
		{"full window recognizes everything", sdkmath.NewInt(1_000), 3_600, 3_600, sdkmath.NewInt(1_000)},
		{"past the window stays at everything", sdkmath.NewInt(1_000), 7_200, 3_600, sdkmath.NewInt(1_000)},
		{"odd split floors", sdkmath.NewInt(1_000), 1_000, 3_600, sdkmath.NewInt(277)},
		{"zero cooldown recognizes nothing", sdkmath.NewInt(1_000), 100, 0, sdkmath.ZeroInt()},
		{"nil expected is zero", sdkmath.Int{}, 100, 3_600, sdkmath.ZeroInt()},
		{"negative expected is zero", sdkmath.NewInt(-5), 100, 3_600, sdkmath.ZeroInt()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fees.LinearizeProfit(tc.expected, tc.age, tc.cooldown))
		})
	}
}

func TestUnrecognizedProfitIsTheRemainder(t *testing.T) {
	expected := sdkmath.NewInt(999)
	for _, age := range []int64{0, 1, 500, 998, 999, 1_000} {
		recognized := fees.LinearizeProfit(expected, age, 1_000)
		unrecognized := fees.UnrecognizedProfit(expected, age, 1_000)
		assert.Equal(t, expected, recognized.Add(unrecognized), "age %d", age)
	}
}

func TestAccruedPerformanceFee(t *testing.T) {
	schedule := types.Fees{PerfBps: 1_000} // 10%

	perf, mgmt, err := fees.Accrued(
		sdkmath.NewInt(11_000),
		sdkmath.NewInt(10_000),
		sdkmath.LegacyNewDecWithPrec(11, 1), // 1.1
		sdkmath.LegacyOneDec(),
		schedule,
		0,
	)
	require.NoError(t, err)

	// 10% of the 0.1 * 10000 appreciation.
	assert.Equal(t, sdkmath.NewInt(100), perf)
	assert.True(t, mgmt.IsZero())
}

func TestAccruedNoPerformanceFeeBelowWatermark(t *testing.T) {
	schedule := types.Fees{PerfBps: 1_000}

	perf, _, err := fees.Accrued(
		sdkmath.NewInt(9_000),
		sdkmath.NewInt(10_000),
		sdkmath.LegacyNewDecWithPrec(9, 1), // 0.9
		sdkmath.LegacyOneDec(),
		schedule,
		0,
	)
	require.NoError(t, err)
	assert.True(t, perf.IsZero())
}

func TestAccruedManagementFeeProRata(t *testing.T) {
	schedule := types.Fees{MgmtBps: 200} // 2% per year

	_, mgmt, err := fees.Accrued(
		sdkmath.NewInt(1_000_000),
		sdkmath.NewInt(1_000_000),
		sdkmath.LegacyOneDec(),
		sdkmath.LegacyOneDec(),
		schedule,
		fees.SecondsPerYear/2,
	)
	require.NoError(t, err)

	// Half a year of 2% on 1,000,000.
	assert.Equal(t, sdkmath.NewInt(10_000), mgmt)
}

func TestAccruedRejectsInvalidInputs(t *testing.T) {
	schedule := types.Fees{PerfBps: 100}
	one := sdkmath.LegacyOneDec()

	_, _, err := fees.Accrued(sdkmath.NewInt(-1), sdkmath.NewInt(10), one, one, schedule, 0)
	require.ErrorIs(t, err, types.ErrInvalidParams)

	_, _, err = fees.Accrued(sdkmath.Int{}, sdkmath.NewInt(10), one, one, schedule, 0)
	require.ErrorIs(t, err, types.ErrInvalidParams)

	_, _, err = fees.Accrued(sdkmath.NewInt(10), sdkmath.NewInt(10), sdkmath.LegacyDec{}, one, schedule, 0)
	require.ErrorIs(t, err, types.ErrInvalidParams)

	_, _, err = fees.Accrued(sdkmath.NewInt(10), sdkmath.NewInt(10), one, one, schedule, -1)
	require.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestFeeSharesDilutionIsValueExact(t *testing.T) {
	tests := []struct {
		name   string
		fee    int64
		assets int64
		supply int64
	}{
		{"small fee", 100, 11_000, 10_000},
		{"large fee", 5_000, 100_000, 80_000},
		{"appreciated vault", 333, 44_444, 10_000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fee := sdkmath.NewInt(tc.fee)
			assets := sdkmath.NewInt(tc.assets)
			supply := sdkmath.NewInt(tc.supply)

			minted := fees.FeeShares(fee, assets, supply)
			require.True(t, minted.IsPositive())

			// After minting, the collector's claim equals the fee up to one
			// unit of truncation.
			claim := sdkmath.LegacyNewDecFromInt(assets).
				QuoInt(supply.Add(minted)).
				MulInt(minted).
				TruncateInt()
			diff := claim.Sub(fee).Abs()
			assert.True(t, diff.LTE(sdkmath.OneInt()),
				"collector claim %s strays from fee %s", claim, fee)
		})
	}
}

func TestFeeSharesDegenerateInputs(t *testing.T) {
	assert.True(t, fees.FeeShares(sdkmath.ZeroInt(), sdkmath.NewInt(100), sdkmath.NewInt(100)).IsZero())
	assert.True(t, fees.FeeShares(sdkmath.Int{}, sdkmath.NewInt(100), sdkmath.NewInt(100)).IsZero())
	assert.True(t, fees.FeeShares(sdkmath.NewInt(10), sdkmath.NewInt(100), sdkmath.ZeroInt()).IsZero())
	// Fee consuming the whole vault cannot be expressed in shares.
	assert.True(t, fees.FeeShares(sdkmath.NewInt(100), sdkmath.NewInt(100), sdkmath.NewInt(100)).IsZero())
}
