package types

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

const (
	// MaxInputs bounds the number of yield-bearing positions a vault can
	// allocate across. Slots are index-addressed; order is significant.
	MaxInputs = 8

	// BpsDenominator is the basis-point scale used for weights and fees.
	BpsDenominator = 10_000
)

// Fee caps, in basis points. SetFees rejects anything above these.
const (
	MaxPerfFeeBps  = 5_000
	MaxMgmtFeeBps  = 500
	MaxEntryFeeBps = 200
	MaxExitFeeBps  = 200
	MaxFlashFeeBps = 200
)

// Role names consumed through the AccessController collaborator.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Fees holds the vault fee schedule in basis points.
type Fees struct {
	PerfBps  uint64 `json:"perf_bps"`
	MgmtBps  uint64 `json:"mgmt_bps"`
	EntryBps uint64 `json:"entry_bps"`
	ExitBps  uint64 `json:"exit_bps"`
	FlashBps uint64 `json:"flash_bps"`
}

// Validate checks the schedule against the per-kind caps.
func (f Fees) Validate() error {
	if f.PerfBps > MaxPerfFeeBps {
		return fmt.Errorf("%w: performance fee %d bps exceeds cap %d", ErrInvalidParams, f.PerfBps, MaxPerfFeeBps)
	}
	if f.MgmtBps > MaxMgmtFeeBps {
		return fmt.Errorf("%w: management fee %d bps exceeds cap %d", ErrInvalidParams, f.MgmtBps, MaxMgmtFeeBps)
	}
	if f.EntryBps > MaxEntryFeeBps {
		return fmt.Errorf("%w: entry fee %d bps exceeds cap %d", ErrInvalidParams, f.EntryBps, MaxEntryFeeBps)
	}
	if f.ExitBps > MaxExitFeeBps {
		return fmt.Errorf("%w: exit fee %d bps exceeds cap %d", ErrInvalidParams, f.ExitBps, MaxExitFeeBps)
	}
	if f.FlashBps > MaxFlashFeeBps {
		return fmt.Errorf("%w: flash fee %d bps exceeds cap %d", ErrInvalidParams, f.FlashBps, MaxFlashFeeBps)
	}
	return nil
}

// Checkpoint records the last accounted values and operation timestamps the
// fee engine and the redemption gate depend on.
type Checkpoint struct {
	AccountedSharePrice sdkmath.LegacyDec `json:"accounted_share_price"`
	AccountedProfit     sdkmath.Int       `json:"accounted_profit"`
	FeeCollection       time.Time         `json:"fee_collection"`
	Liquidate           time.Time         `json:"liquidate"`
	Harvest             time.Time         `json:"harvest"`
	Invest              time.Time         `json:"invest"`
}

// VaultParams is the static per-vault configuration.
type VaultParams struct {
	AssetDenom            string      `json:"asset_denom"`
	AssetDecimals         uint8       `json:"asset_decimals"`
	MinLiquidity          sdkmath.Int `json:"min_liquidity"`
	MaxTotalAssets        sdkmath.Int `json:"max_total_assets"` // zero means uncapped
	FeeCollector          string      `json:"fee_collector"`
	Fees                  Fees        `json:"fees"`
	RedemptionLockSeconds int64       `json:"redemption_lock_seconds"`
	ProfitCooldownSeconds int64       `json:"profit_cooldown_seconds"`
	MaxSlippageBps        uint64      `json:"max_slippage_bps"`
}

// Validate rejects configurations the engine cannot operate with.
func (p VaultParams) Validate() error {
	if p.AssetDenom == "" {
		return fmt.Errorf("%w: asset denom cannot be empty", ErrInvalidParams)
	}
	if p.AssetDecimals > 18 {
		return fmt.Errorf("%w: asset decimals %d out of range", ErrInvalidParams, p.AssetDecimals)
	}
	if p.MinLiquidity.IsNil() || p.MinLiquidity.IsNegative() {
		return fmt.Errorf("%w: min liquidity must be non-negative", ErrInvalidParams)
	}
	if p.MaxTotalAssets.IsNil() || p.MaxTotalAssets.IsNegative() {
		return fmt.Errorf("%w: max total assets must be non-negative", ErrInvalidParams)
	}
	if p.FeeCollector == "" {
		return fmt.Errorf("%w: fee collector cannot be empty", ErrInvalidParams)
	}
	if p.RedemptionLockSeconds < 0 {
		return fmt.Errorf("%w: redemption lock cannot be negative", ErrInvalidParams)
	}
	if p.ProfitCooldownSeconds <= 0 {
		return fmt.Errorf("%w: profit cooldown must be positive", ErrInvalidParams)
	}
	if p.MaxSlippageBps >= BpsDenominator {
		return fmt.Errorf("%w: max slippage %d bps out of range", ErrInvalidParams, p.MaxSlippageBps)
	}
	return p.Fees.Validate()
}

// InputSlot describes one yield-bearing position the vault allocates into.
type InputSlot struct {
	Asset       string `json:"asset"`
	WeightBps   uint64 `json:"weight_bps"`
	LPToken     string `json:"lp_token"`
	RewardToken string `json:"reward_token"`
}

// InputBook is the bounded, index-addressed collection of input slots. The
// residual weight (BpsDenominator minus the sum of slot weights) is the
// target cash ratio.
type InputBook struct {
	Slots [MaxInputs]InputSlot `json:"slots"`
	Len   int                  `json:"len"`
}

// NewInputBook builds a book from at most MaxInputs slots.
func NewInputBook(slots []InputSlot) (InputBook, error) {
	if len(slots) > MaxInputs {
		return InputBook{}, fmt.Errorf("%w: %d inputs exceed the maximum of %d", ErrInvalidParams, len(slots), MaxInputs)
	}
	var book InputBook
	book.Len = len(slots)
	copy(book.Slots[:], slots)
	return book, book.Validate()
}

// Validate checks slot consistency and the aggregate weight bound.
func (b InputBook) Validate() error {
	total := uint64(0)
	for i := 0; i < b.Len; i++ {
		if b.Slots[i].Asset == "" {
			return fmt.Errorf("%w: input %d has empty asset", ErrInvalidParams, i)
		}
		total += b.Slots[i].WeightBps
	}
	if total > BpsDenominator {
		return fmt.Errorf("%w: input weights sum to %d bps, above %d", ErrInvalidParams, total, BpsDenominator)
	}
	return nil
}

// TotalWeightBps returns the sum of slot weights.
func (b InputBook) TotalWeightBps() uint64 {
	total := uint64(0)
	for i := 0; i < b.Len; i++ {
		total += b.Slots[i].WeightBps
	}
	return total
}

// CashWeightBps returns the residual weight reserved for idle cash.
func (b InputBook) CashWeightBps() uint64 {
	return BpsDenominator - b.TotalWeightBps()
}
