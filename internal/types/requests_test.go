package types_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/vce/internal/types"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRedemptionBookAddAggregatesVWAP(t *testing.T) {
	book := types.NewRedemptionBook()

	first := book.Add("alice", "alice", "alice", 1, sdkmath.NewInt(1_000), sdkmath.LegacyOneDec(), t0)
	assert.Equal(t, uint64(1), first.ID)

	later := t0.Add(time.Hour)
	second := book.Add("alice", "alice", "op", 2, sdkmath.NewInt(500), sdkmath.LegacyNewDecWithPrec(12, 1), later)

	// The entry keeps its original id but refreshes operator and clock.
	assert.Equal(t, uint64(1), second.ID)
	assert.Equal(t, "op", second.Operator)
	assert.Equal(t, later, second.Timestamp)
	assert.Equal(t, sdkmath.NewInt(1_500), second.Shares)

	// (1000*1.0 + 500*1.2) / 1500
	want := sdkmath.LegacyNewDec(1_600).Quo(sdkmath.LegacyNewDec(1_500))
	assert.Equal(t, want, second.SharePrice)

	assert.Equal(t, sdkmath.NewInt(1_500), book.TotalShares)
	assert.Equal(t, sdkmath.NewInt(1_500), book.RequestedOf("alice"))
}

func TestRedemptionBookTracksOwnersSeparately(t *testing.T) {
	book := types.NewRedemptionBook()
	book.Add("alice", "alice", "alice", 1, sdkmath.NewInt(300), sdkmath.LegacyOneDec(), t0)
	book.Add("alice", "carol", "alice", 2, sdkmath.NewInt(200), sdkmath.LegacyOneDec(), t0)
	book.Add("bob", "bob", "bob", 3, sdkmath.NewInt(100), sdkmath.LegacyOneDec(), t0)

	assert.Equal(t, sdkmath.NewInt(500), book.RequestedOf("alice"))
	assert.Equal(t, sdkmath.NewInt(100), book.RequestedOf("bob"))
	assert.Equal(t, sdkmath.NewInt(600), book.TotalShares)

	require.NotNil(t, book.Request("alice", "carol"))
	assert.Nil(t, book.Request("carol", "alice"))
}

func TestRedemptionBookReduceClampsAndPrunes(t *testing.T) {
	book := types.NewRedemptionBook()
	book.Add("alice", "alice", "alice", 1, sdkmath.NewInt(1_000), sdkmath.LegacyOneDec(), t0)
	book.AdvanceClaimable(sdkmath.NewInt(400))

	// Over-reduction clamps at the entry size and drains the counters.
	book.Reduce("alice", "alice", sdkmath.NewInt(5_000))

	assert.True(t, book.TotalShares.IsZero())
	assert.True(t, book.TotalClaimableShares.IsZero())
	assert.Nil(t, book.Request("alice", "alice"))
	assert.True(t, book.RequestedOf("alice").IsZero())

	// Reducing an absent entry is a no-op.
	book.Reduce("alice", "alice", sdkmath.NewInt(1))
	assert.True(t, book.TotalShares.IsZero())
}

func TestAdvanceClaimableClampsAtPending(t *testing.T) {
	book := types.NewRedemptionBook()
	book.Add("alice", "alice", "alice", 1, sdkmath.NewInt(1_000), sdkmath.LegacyOneDec(), t0)

	moved := book.AdvanceClaimable(sdkmath.NewInt(9_999))
	assert.Equal(t, sdkmath.NewInt(1_000), moved)
	assert.Equal(t, sdkmath.NewInt(1_000), book.TotalClaimableShares)
	assert.True(t, book.PendingShares().IsZero())

	// A second advance has nothing left to move.
	moved = book.AdvanceClaimable(sdkmath.NewInt(1))
	assert.True(t, moved.IsZero())
}

func TestFeesValidateCaps(t *testing.T) {
	tests := []struct {
		name string
		fees types.Fees
		ok   bool
	}{
		{"zero schedule", types.Fees{}, true},
		{"at the caps", types.Fees{PerfBps: 5_000, MgmtBps: 500, EntryBps: 200, ExitBps: 200, FlashBps: 200}, true},
		{"perf above cap", types.Fees{PerfBps: 5_001}, false},
		{"mgmt above cap", types.Fees{MgmtBps: 501}, false},
		{"entry above cap", types.Fees{EntryBps: 201}, false},
		{"exit above cap", types.Fees{ExitBps: 201}, false},
		{"flash above cap", types.Fees{FlashBps: 201}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fees.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, types.ErrInvalidParams)
			}
		})
	}
}

func TestVaultParamsValidate(t *testing.T) {
	valid := types.VaultParams{
		AssetDenom:            "uusdc",
		AssetDecimals:         6,
		MinLiquidity:          sdkmath.ZeroInt(),
		MaxTotalAssets:        sdkmath.ZeroInt(),
		FeeCollector:          "collector",
		RedemptionLockSeconds: 86_400,
		ProfitCooldownSeconds: 3_600,
		MaxSlippageBps:        100,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*types.VaultParams)
	}{
		{"empty denom", func(p *types.VaultParams) { p.AssetDenom = "" }},
		{"decimals out of range", func(p *types.VaultParams) { p.AssetDecimals = 19 }},
		{"nil min liquidity", func(p *types.VaultParams) { p.MinLiquidity = sdkmath.Int{} }},
		{"negative cap", func(p *types.VaultParams) { p.MaxTotalAssets = sdkmath.NewInt(-1) }},
		{"empty collector", func(p *types.VaultParams) { p.FeeCollector = "" }},
		{"negative lock", func(p *types.VaultParams) { p.RedemptionLockSeconds = -1 }},
		{"zero cooldown", func(p *types.VaultParams) { p.ProfitCooldownSeconds = 0 }},
		{"slippage at denominator", func(p *types.VaultParams) { p.MaxSlippageBps = 10_000 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			assert.ErrorIs(t, p.Validate(), types.ErrInvalidParams)
		})
	}
}

func TestInputBookValidation(t *testing.T) {
	_, err := types.NewInputBook([]types.InputSlot{
		{Asset: "uatom", WeightBps: 6_000},
		{Asset: "", WeightBps: 1_000},
	})
	require.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = types.NewInputBook([]types.InputSlot{
		{Asset: "uatom", WeightBps: 6_000},
		{Asset: "uosmo", WeightBps: 5_000},
	})
	require.ErrorIs(t, err, types.ErrInvalidParams)

	book, err := types.NewInputBook([]types.InputSlot{
		{Asset: "uatom", WeightBps: 6_000},
		{Asset: "uosmo", WeightBps: 3_000},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(9_000), book.TotalWeightBps())
	assert.Equal(t, uint64(1_000), book.CashWeightBps())
}
