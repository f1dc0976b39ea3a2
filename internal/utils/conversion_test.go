package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBpsCut(t *testing.T) {
	tests := []struct {
		name   string
		amount sdkmath.Int
		bps    uint64
		want   sdkmath.Int
	}{
		{"one percent", sdkmath.NewInt(10_000), 100, sdkmath.NewInt(100)},
		{"floors the remainder", sdkmath.NewInt(999), 100, sdkmath.NewInt(9)},
		{"zero bps", sdkmath.NewInt(10_000), 0, sdkmath.ZeroInt()},
		{"zero amount", sdkmath.ZeroInt(), 500, sdkmath.ZeroInt()},
		{"negative clamps to zero", sdkmath.NewInt(-10_000), 100, sdkmath.ZeroInt()},
		{"nil clamps to zero", sdkmath.Int{}, 100, sdkmath.ZeroInt()},
		{"full cut", sdkmath.NewInt(777), 10_000, sdkmath.NewInt(777)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BpsCut(tc.amount, tc.bps))
		})
	}
}

func TestSDKIntToFloat64(t *testing.T) {
	got, err := SDKIntToFloat64(sdkmath.NewInt(1_500_000), 6)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got, 1e-12)

	got, err = SDKIntToFloat64(sdkmath.NewInt(42), 0)
	require.NoError(t, err)
	assert.InDelta(t, 42.0, got, 1e-12)

	got, err = SDKIntToFloat64(sdkmath.ZeroInt(), 18)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestSDKIntToFloat64RejectsBadInputs(t *testing.T) {
	_, err := SDKIntToFloat64(sdkmath.NewInt(1), -1)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = SDKIntToFloat64(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = SDKIntToFloat64(sdkmath.Int{}, 6)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = SDKIntToFloat64(sdkmath.NewInt(-1), 6)
	require.ErrorIs(t, err, ErrAmountNegative)
}
