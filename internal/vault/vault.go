// Package vault owns the share-accounting ledger, the asynchronous
// redemption state machine and the investment/liquidation orchestrator for a
// single vault. All mutating operations execute under one vault-wide lock:
// each call runs to completion before the next begins, mirroring the
// single-writer execution model the accounting invariants assume. Read-only
// views take the read side and never mutate.
package vault

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/meridianfi/vce/internal/adapters"
	"github.com/meridianfi/vce/internal/logger"
	"github.com/meridianfi/vce/internal/types"
)

// Config holds everything needed to create a Vault.
type Config struct {
	Params        types.VaultParams
	Inputs        types.InputBook
	Oracle        adapters.Oracle
	Router        adapters.SwapRouter
	InputAdapters []adapters.InputAdapter
	Access        adapters.AccessController
	Bank          adapters.AssetBank

	// Clock overrides time.Now, used by the test suites. Nil means time.Now.
	Clock func() time.Time
}

// Vault is the accounting and capital-allocation core for one strategy.
type Vault struct {
	mu  sync.RWMutex
	log zerolog.Logger
	now func() time.Time

	params types.VaultParams
	inputs types.InputBook
	exempt map[string]struct{}

	oracle        adapters.Oracle
	router        adapters.SwapRouter
	inputAdapters [types.MaxInputs]adapters.InputAdapter
	access        adapters.AccessController
	bank          adapters.AssetBank

	// Share registry. Shares are denominated in asset base units at a 1.0
	// share price.
	supply     sdkmath.Int
	balances   map[string]sdkmath.Int
	allowances map[string]map[string]sdkmath.Int

	red        types.RedemptionBook
	requestSeq uint64

	checkpoint types.Checkpoint
	// reservePrice is the share price recorded at the last liquidation; the
	// claimable redemption reserve is valued at this price, insulating active
	// holders from pending payouts.
	reservePrice sdkmath.LegacyDec
	// expectedProfit is the rolling harvest profit being linearized over the
	// profit cooldown.
	expectedProfit sdkmath.Int

	// invested caches each input's position value in vault-asset units. Only
	// orchestrator operations (which may consult the oracle) refresh it;
	// share-price reads never touch the oracle.
	invested [types.MaxInputs]sdkmath.Int
}

// New validates the configuration and returns a Vault.
func New(cfg Config) (*Vault, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("vault configuration validation failed: %w", err)
	}

	v := &Vault{
		log:    logger.GetForComponent("vault_core"),
		now:    cfg.Clock,
		params: cfg.Params,
		inputs: cfg.Inputs,
		exempt: make(map[string]struct{}),
		oracle: cfg.Oracle,
		router: cfg.Router,
		access: cfg.Access,
		bank:   cfg.Bank,

		supply:     sdkmath.ZeroInt(),
		balances:   make(map[string]sdkmath.Int),
		allowances: make(map[string]map[string]sdkmath.Int),
		red:        types.NewRedemptionBook(),

		reservePrice:   sdkmath.LegacyOneDec(),
		expectedProfit: sdkmath.ZeroInt(),
	}
	if v.now == nil {
		v.now = time.Now
	}
	copy(v.inputAdapters[:], cfg.InputAdapters)
	for i := range v.invested {
		v.invested[i] = sdkmath.ZeroInt()
	}

	created := v.now()
	v.checkpoint = types.Checkpoint{
		AccountedSharePrice: sdkmath.LegacyOneDec(),
		AccountedProfit:     sdkmath.ZeroInt(),
		FeeCollection:       created,
		Liquidate:           time.Time{},
		Harvest:             created,
		Invest:              time.Time{},
	}

	v.log.Info().
		Str("asset", v.params.AssetDenom).
		Int("inputs", v.inputs.Len).
		Msg("Vault created")
	return v, nil
}

func validateConfig(cfg Config) error {
	if err := cfg.Params.Validate(); err != nil {
		return err
	}
	if err := cfg.Inputs.Validate(); err != nil {
		return err
	}
	if cfg.Oracle == nil {
		return errors.New("oracle cannot be nil")
	}
	if cfg.Router == nil {
		return errors.New("swap router cannot be nil")
	}
	if cfg.Access == nil {
		return errors.New("access controller cannot be nil")
	}
	if cfg.Bank == nil {
		return errors.New("asset bank cannot be nil")
	}
	if len(cfg.InputAdapters) != cfg.Inputs.Len {
		return fmt.Errorf("adapter count %d does not match input count %d", len(cfg.InputAdapters), cfg.Inputs.Len)
	}
	for i, a := range cfg.InputAdapters {
		if a == nil {
			return fmt.Errorf("input adapter %d cannot be nil", i)
		}
	}
	return nil
}

func (v *Vault) requireRole(account, role string) error {
	if !v.access.HasRole(account, role) {
		return fmt.Errorf("%w: %s requires role %q", types.ErrUnauthorized, account, role)
	}
	return nil
}

// --- internal accounting; callers hold the lock ---

func (v *Vault) cash() sdkmath.Int {
	return v.bank.Balance(v.params.AssetDenom)
}

func (v *Vault) investedTotal() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for i := 0; i < v.inputs.Len; i++ {
		total = total.Add(v.invested[i])
	}
	return total
}

func (v *Vault) totalAssets() sdkmath.Int {
	return v.cash().Add(v.investedTotal())
}

// claimableReserve is the asset value earmarked for claimable redemptions,
// valued at the share price recorded when liquidity was prepared for them.
func (v *Vault) claimableReserve() sdkmath.Int {
	if !v.red.TotalClaimableShares.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return v.reservePrice.MulInt(v.red.TotalClaimableShares).TruncateInt()
}

func (v *Vault) accountedSupply() sdkmath.Int {
	return v.supply.Sub(v.red.TotalClaimableShares)
}

func (v *Vault) accountedAssets() sdkmath.Int {
	out := v.totalAssets().Sub(v.claimableReserve())
	if out.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return out
}

// sharePrice is a pure function of the accounted totals; it never consults
// the oracle. An empty vault prices one share at one asset base unit.
func (v *Vault) sharePrice() sdkmath.LegacyDec {
	supply := v.accountedSupply()
	if !supply.IsPositive() {
		return sdkmath.LegacyOneDec()
	}
	return sdkmath.LegacyNewDecFromInt(v.accountedAssets()).QuoInt(supply)
}

// available is the cash not reserved for claimable redemptions.
func (v *Vault) available() sdkmath.Int {
	out := v.cash().Sub(v.claimableReserve())
	if out.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return out
}

// availableClaimable is the cash on hand, reserved portion included.
func (v *Vault) availableClaimable() sdkmath.Int {
	return v.cash()
}

func convertToSharesAt(assets sdkmath.Int, price sdkmath.LegacyDec, roundUp bool) sdkmath.Int {
	if !assets.IsPositive() || !price.IsPositive() {
		return sdkmath.ZeroInt()
	}
	dec := sdkmath.LegacyNewDecFromInt(assets).Quo(price)
	if roundUp {
		return dec.Ceil().TruncateInt()
	}
	return dec.TruncateInt()
}

func convertToAssetsAt(shares sdkmath.Int, price sdkmath.LegacyDec, roundUp bool) sdkmath.Int {
	if !shares.IsPositive() || !price.IsPositive() {
		return sdkmath.ZeroInt()
	}
	dec := sdkmath.LegacyNewDecFromInt(shares).Mul(price)
	if roundUp {
		return dec.Ceil().TruncateInt()
	}
	return dec.TruncateInt()
}

func (v *Vault) balanceOf(account string) sdkmath.Int {
	if bal, ok := v.balances[account]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

func (v *Vault) mint(account string, shares sdkmath.Int) {
	if !shares.IsPositive() {
		return
	}
	v.balances[account] = v.balanceOf(account).Add(shares)
	v.supply = v.supply.Add(shares)
}

func (v *Vault) burn(account string, shares sdkmath.Int) error {
	if !shares.IsPositive() {
		return nil
	}
	bal := v.balanceOf(account)
	if shares.GT(bal) {
		return fmt.Errorf("%w: burning %s shares from balance %s", types.ErrInvariant, shares, bal)
	}
	v.balances[account] = bal.Sub(shares)
	v.supply = v.supply.Sub(shares)
	return nil
}

func (v *Vault) isExempt(account string) bool {
	_, ok := v.exempt[account]
	return ok
}

// minSupplyAfterBurn checks invariant 4: no operation may reduce the
// accounted supply below the supply implied by the minimum liquidity floor.
func (v *Vault) checkMinLiquidity(burnShares sdkmath.Int, price sdkmath.LegacyDec) error {
	if !v.params.MinLiquidity.IsPositive() {
		return nil
	}
	floor := convertToSharesAt(v.params.MinLiquidity, price, true)
	after := v.accountedSupply().Sub(burnShares)
	if after.LT(floor) {
		return fmt.Errorf("%w: burn would leave supply %s below the %s floor", types.ErrInsufficientLiquidity, after, floor)
	}
	return nil
}
