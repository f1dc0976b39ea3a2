package vault_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/vce/internal/adapters"
	"github.com/meridianfi/vce/internal/logger"
	"github.com/meridianfi/vce/internal/types"
	"github.com/meridianfi/vce/internal/vault"
)

const (
	assetDenom  = "uusdc"
	rewardDenom = "ureward"

	alice    = "alice"
	bob      = "bob"
	operator = "operator-1"
	admin    = "admin-1"
)

type fixture struct {
	now     time.Time
	oracle  *adapters.PaperOracle
	router  *adapters.PaperRouter
	bank    *adapters.PaperBank
	staking []*adapters.PaperStaking
	roles   *adapters.StaticRoles
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// creditYield simulates external appreciation by crediting custody directly.
func (f *fixture) creditYield(amount int64) {
	f.bank.Credit(sdk.NewCoin(assetDenom, sdkmath.NewInt(amount)))
}

func defaultParams() types.VaultParams {
	return types.VaultParams{
		AssetDenom:            assetDenom,
		AssetDecimals:         6,
		MinLiquidity:          sdkmath.ZeroInt(),
		MaxTotalAssets:        sdkmath.ZeroInt(),
		FeeCollector:          "collector",
		Fees:                  types.Fees{},
		RedemptionLockSeconds: 86_400,
		ProfitCooldownSeconds: 3_600,
		MaxSlippageBps:        100,
	}
}

func defaultSlots() []types.InputSlot {
	return []types.InputSlot{
		{Asset: "uatom", WeightBps: 6_000, RewardToken: rewardDenom},
		{Asset: "uosmo", WeightBps: 4_000},
	}
}

func newTestVault(t *testing.T, params types.VaultParams) (*vault.Vault, *fixture) {
	t.Helper()
	logger.Initialize("error")

	f := &fixture{
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		oracle: adapters.NewPaperOracle(),
		router: nil,
		bank:   adapters.NewPaperBank(),
		roles:  adapters.NewStaticRoles().Grant(operator, types.RoleOperator).Grant(admin, types.RoleAdmin),
	}
	f.router = adapters.NewPaperRouter(f.oracle, 0)

	f.oracle.SetRate("uatom", assetDenom, sdkmath.LegacyOneDec())
	f.oracle.SetRate("uosmo", assetDenom, sdkmath.LegacyOneDec())
	f.oracle.SetRate(rewardDenom, assetDenom, sdkmath.LegacyOneDec())

	book, err := types.NewInputBook(defaultSlots())
	require.NoError(t, err)

	f.staking = []*adapters.PaperStaking{
		adapters.NewPaperStaking(rewardDenom, sdkmath.LegacyOneDec()),
		adapters.NewPaperStaking("", sdkmath.LegacyOneDec()),
	}

	v, err := vault.New(vault.Config{
		Params:        params,
		Inputs:        book,
		Oracle:        f.oracle,
		Router:        f.router,
		InputAdapters: []adapters.InputAdapter{f.staking[0], f.staking[1]},
		Access:        f.roles,
		Bank:          f.bank,
		Clock:         func() time.Time { return f.now },
	})
	require.NoError(t, err)
	return v, f
}

func mustDeposit(t *testing.T, v *vault.Vault, account string, amount int64) sdkmath.Int {
	t.Helper()
	shares, err := v.Deposit(account, sdkmath.NewInt(amount), account)
	require.NoError(t, err)
	return shares
}

func amountsFor(values ...int64) [types.MaxInputs]sdkmath.Int {
	var out [types.MaxInputs]sdkmath.Int
	for i := range out {
		out[i] = sdkmath.ZeroInt()
	}
	for i, val := range values {
		out[i] = sdkmath.NewInt(val)
	}
	return out
}

func noSwapParams() [types.MaxInputs][]byte {
	var p [types.MaxInputs][]byte
	return p
}
