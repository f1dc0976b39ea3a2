package adapters

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNoFeed              = errors.New("no exchange rate feed for pair")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStake   = errors.New("insufficient staked balance")
)

// Paper implementations back sim mode and the test suites: a fixed-rate
// oracle, a router with configurable slippage, in-memory staking and a
// map-backed bank. They respect the same contracts the live collaborators
// would.

// PaperOracle serves exchange rates from a static table keyed "base/quote".
type PaperOracle struct {
	mu    sync.RWMutex
	rates map[string]sdkmath.LegacyDec
	usd   map[string]sdkmath.LegacyDec
}

// NewPaperOracle returns an oracle with identity rates for same-asset pairs.
func NewPaperOracle() *PaperOracle {
	return &PaperOracle{
		rates: make(map[string]sdkmath.LegacyDec),
		usd:   make(map[string]sdkmath.LegacyDec),
	}
}

// SetRate installs a base/quote rate and its inverse.
func (o *PaperOracle) SetRate(base, quote string, rate sdkmath.LegacyDec) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates[base+"/"+quote] = rate
	if rate.IsPositive() {
		o.rates[quote+"/"+base] = sdkmath.LegacyOneDec().Quo(rate)
	}
}

// SetUsdPrice installs the USD valuation of one unit of asset.
func (o *PaperOracle) SetUsdPrice(asset string, price sdkmath.LegacyDec) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.usd[asset] = price
}

func (o *PaperOracle) ExchangeRate(base, quote string) (sdkmath.LegacyDec, error) {
	if base == quote {
		return sdkmath.LegacyOneDec(), nil
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	rate, ok := o.rates[base+"/"+quote]
	if !ok {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s/%s", ErrNoFeed, base, quote)
	}
	return rate, nil
}

func (o *PaperOracle) Convert(base string, amount sdkmath.Int, quote string) (sdkmath.Int, error) {
	rate, err := o.ExchangeRate(base, quote)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return rate.MulInt(amount).TruncateInt(), nil
}

func (o *PaperOracle) ToUsd(asset string, amount sdkmath.Int) (sdkmath.LegacyDec, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.usd[asset]
	if !ok {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s/usd", ErrNoFeed, asset)
	}
	return price.MulInt(amount), nil
}

// PaperRouter swaps at the oracle rate minus a configurable slippage haircut.
// Swap params are accepted and ignored, as a real router would decode them.
type PaperRouter struct {
	oracle      Oracle
	slippageBps uint64
}

func NewPaperRouter(oracle Oracle, slippageBps uint64) *PaperRouter {
	return &PaperRouter{oracle: oracle, slippageBps: slippageBps}
}

// SetSlippage adjusts the haircut applied to every subsequent swap.
func (r *PaperRouter) SetSlippage(bps uint64) { r.slippageBps = bps }

func (r *PaperRouter) DecodeAndSwap(inputAsset, outputAsset string, amount sdkmath.Int, _ []byte) (sdkmath.Int, sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), nil
	}
	if inputAsset == outputAsset {
		return amount, amount, nil
	}
	quoted, err := r.oracle.Convert(inputAsset, amount, outputAsset)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	haircut := quoted.MulRaw(int64(r.slippageBps)).QuoRaw(10_000)
	return quoted.Sub(haircut), amount, nil
}

// PaperStaking is an in-memory yield source. Stake units relate to input
// units through a fixed rate; accrued rewards are set explicitly.
type PaperStaking struct {
	mu          sync.Mutex
	stakeRate   sdkmath.LegacyDec // stake units per input unit
	staked      sdkmath.Int       // in stake units
	rewardDenom string
	rewards     sdkmath.Int
}

func NewPaperStaking(rewardDenom string, stakeRate sdkmath.LegacyDec) *PaperStaking {
	return &PaperStaking{
		stakeRate:   stakeRate,
		staked:      sdkmath.ZeroInt(),
		rewardDenom: rewardDenom,
		rewards:     sdkmath.ZeroInt(),
	}
}

// AccrueRewards credits pending rewards, simulating yield.
func (s *PaperStaking) AccrueRewards(amount sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards = s.rewards.Add(amount)
}

func (s *PaperStaking) Stake(amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	issued := s.stakeRate.MulInt(amount).TruncateInt()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staked = s.staked.Add(issued)
	return issued, nil
}

func (s *PaperStaking) Unstake(amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	burned := s.stakeRate.MulInt(amount).TruncateInt()
	s.mu.Lock()
	defer s.mu.Unlock()
	if burned.GT(s.staked) {
		return sdkmath.Int{}, fmt.Errorf("%w: want %s stake units, have %s", ErrInsufficientStake, burned, s.staked)
	}
	s.staked = s.staked.Sub(burned)
	return amount, nil
}

func (s *PaperStaking) ClaimRewards() (sdk.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := sdk.NewCoin(s.rewardDenom, s.rewards)
	s.rewards = sdkmath.ZeroInt()
	return out, nil
}

func (s *PaperStaking) InputToStake(amount sdkmath.Int) (sdkmath.Int, error) {
	return s.stakeRate.MulInt(amount).TruncateInt(), nil
}

func (s *PaperStaking) StakeToInput(amount sdkmath.Int) (sdkmath.Int, error) {
	if s.stakeRate.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return sdkmath.LegacyNewDecFromInt(amount).Quo(s.stakeRate).TruncateInt(), nil
}

func (s *PaperStaking) StakedBalance() (sdkmath.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staked, nil
}

// PaperBank is a map-backed custody account. An optional transfer fee (in
// bps) is withheld on TransferIn to exercise fee-on-transfer accounting.
type PaperBank struct {
	mu             sync.Mutex
	balances       map[string]sdkmath.Int
	transferFeeBps uint64
}

func NewPaperBank() *PaperBank {
	return &PaperBank{balances: make(map[string]sdkmath.Int)}
}

// SetTransferFee makes subsequent TransferIn calls withhold bps of the sent
// amount, simulating a fee-on-transfer asset.
func (b *PaperBank) SetTransferFee(bps uint64) { b.transferFeeBps = bps }

func (b *PaperBank) TransferIn(_ string, coin sdk.Coin) (sdkmath.Int, error) {
	received := coin.Amount
	if b.transferFeeBps > 0 {
		fee := received.MulRaw(int64(b.transferFeeBps)).QuoRaw(10_000)
		received = received.Sub(fee)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(coin.Denom, received)
	return received, nil
}

func (b *PaperBank) TransferOut(_ string, coin sdk.Coin) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balance(coin.Denom)
	if coin.Amount.GT(bal) {
		return fmt.Errorf("%w: want %s, have %s%s", ErrInsufficientBalance, coin, bal, coin.Denom)
	}
	b.balances[coin.Denom] = bal.Sub(coin.Amount)
	return nil
}

func (b *PaperBank) Balance(denom string) sdkmath.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(denom)
}

// Credit adds funds directly to custody, used when the router settles a swap
// into the vault.
func (b *PaperBank) Credit(coin sdk.Coin) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(coin.Denom, coin.Amount)
}

func (b *PaperBank) balance(denom string) sdkmath.Int {
	if bal, ok := b.balances[denom]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

func (b *PaperBank) credit(denom string, amount sdkmath.Int) {
	b.balances[denom] = b.balance(denom).Add(amount)
}

// StaticRoles is a fixed role table.
type StaticRoles struct {
	grants map[string]map[string]bool
}

func NewStaticRoles() *StaticRoles {
	return &StaticRoles{grants: make(map[string]map[string]bool)}
}

// Grant assigns a role to an account.
func (r *StaticRoles) Grant(account, role string) *StaticRoles {
	if r.grants[account] == nil {
		r.grants[account] = make(map[string]bool)
	}
	r.grants[account][role] = true
	return r
}

func (r *StaticRoles) HasRole(account, role string) bool {
	return r.grants[account][role]
}
