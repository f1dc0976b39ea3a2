// Package planner computes how pooled capital should be spread across the
// vault's input slots. Every function here is a pure preview over a state
// snapshot: callers can simulate a breakdown, fetch swap quotes off to the
// side, and hand the realized breakdown to the orchestrator.
package planner

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vce/internal/logger"
	"github.com/meridianfi/vce/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidSnapshot = errors.New("planner snapshot contains invalid values")
	ErrInputIndex      = errors.New("input index out of range")
)

// LiquidationBufferBps pads every liquidation preview so the recovered cash
// proactively covers queued redemptions: 0.5% of the invested target.
const LiquidationBufferBps = 50

// Snapshot is the planner's read-only view of the vault at one instant.
// Holdings are per-slot invested values in vault-asset base units.
type Snapshot struct {
	Book               types.InputBook
	Holdings           [types.MaxInputs]sdkmath.Int
	TotalAssets        sdkmath.Int
	Cash               sdkmath.Int
	PendingWithdrawals sdkmath.Int
}

// Breakdown is a per-slot amount assignment plus its total. Amounts are
// always non-negative and their sum never exceeds the requested total.
type Breakdown struct {
	Amounts [types.MaxInputs]sdkmath.Int
	Total   sdkmath.Int
}

func validateSnapshot(s Snapshot) error {
	if err := s.Book.Validate(); err != nil {
		return errors.Join(ErrInvalidSnapshot, err)
	}
	if s.TotalAssets.IsNil() || s.TotalAssets.IsNegative() {
		return errors.Join(ErrInvalidSnapshot, errors.New("total assets must be non-negative"))
	}
	if s.Cash.IsNil() || s.Cash.IsNegative() {
		return errors.Join(ErrInvalidSnapshot, errors.New("cash must be non-negative"))
	}
	if s.PendingWithdrawals.IsNil() || s.PendingWithdrawals.IsNegative() {
		return errors.Join(ErrInvalidSnapshot, errors.New("pending withdrawals must be non-negative"))
	}
	for i := 0; i < s.Book.Len; i++ {
		if s.Holdings[i].IsNil() || s.Holdings[i].IsNegative() {
			return errors.Join(ErrInvalidSnapshot, fmt.Errorf("holding %d must be non-negative", i))
		}
	}
	return nil
}

// InvestedTarget is the slice of total assets earmarked for inputs, i.e.
// everything above the target cash ratio.
func InvestedTarget(s Snapshot) sdkmath.Int {
	total := s.Book.TotalWeightBps()
	if total == 0 {
		return sdkmath.ZeroInt()
	}
	return s.TotalAssets.MulRaw(int64(total)).QuoRaw(types.BpsDenominator)
}

// ExcessLiquidity returns the signed deviation of input i's holding from its
// target share of totalTarget: positive means over-allocated (candidate for
// liquidation), negative means under-allocated (candidate for investment).
func ExcessLiquidity(s Snapshot, totalTarget sdkmath.Int, i int) (sdkmath.Int, error) {
	if i < 0 || i >= s.Book.Len {
		return sdkmath.Int{}, fmt.Errorf("%w: %d (book holds %d)", ErrInputIndex, i, s.Book.Len)
	}
	totalWeight := s.Book.TotalWeightBps()
	if totalWeight == 0 {
		return s.Holdings[i], nil
	}
	target := totalTarget.MulRaw(int64(s.Book.Slots[i].WeightBps)).QuoRaw(int64(totalWeight))
	return s.Holdings[i].Sub(target), nil
}

// PreviewInvest distributes amount across under-allocated inputs in index
// order, each capped at its own deficit, until the amount is exhausted. A
// zero amount derives the amount as idle cash above the target cash ratio.
// Index order is a deliberate tie-break: lower slots are serviced first.
func PreviewInvest(s Snapshot, amount sdkmath.Int) (Breakdown, error) {
	plannerLogger := logger.GetForComponent("allocation_planner")

	if err := validateSnapshot(s); err != nil {
		return Breakdown{}, err
	}
	if amount.IsNil() || amount.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: negative invest amount", types.ErrAmountTooLow)
	}

	if amount.IsZero() {
		cashTarget := s.TotalAssets.MulRaw(int64(s.Book.CashWeightBps())).QuoRaw(types.BpsDenominator)
		amount = s.Cash.Sub(cashTarget)
		if !amount.IsPositive() {
			return Breakdown{}, fmt.Errorf("%w: no idle cash above the target cash ratio", types.ErrAmountTooLow)
		}
		plannerLogger.Debug().
			Str("derived_amount", amount.String()).
			Str("cash_target", cashTarget.String()).
			Msg("Derived invest amount from idle cash")
	}

	target := InvestedTarget(s)
	out := newBreakdown()
	remaining := amount

	for i := 0; i < s.Book.Len && remaining.IsPositive(); i++ {
		excess, err := ExcessLiquidity(s, target, i)
		if err != nil {
			return Breakdown{}, err
		}
		if !excess.IsNegative() {
			continue
		}
		alloc := sdkmath.MinInt(excess.Neg(), remaining)
		out.Amounts[i] = alloc
		out.Total = out.Total.Add(alloc)
		remaining = remaining.Sub(alloc)
	}

	plannerLogger.Debug().
		Str("requested", amount.String()).
		Str("allocated", out.Total.String()).
		Msg("Invest preview complete")
	return out, nil
}

// PreviewLiquidate distributes a liquidation across over-allocated inputs in
// index order, each capped at its own excess. The requested amount is first
// inflated by the outstanding pending-withdrawal total plus a small buffer of
// the invested target, so liquidation proactively covers queued redemptions.
func PreviewLiquidate(s Snapshot, amount sdkmath.Int) (Breakdown, error) {
	plannerLogger := logger.GetForComponent("allocation_planner")

	if err := validateSnapshot(s); err != nil {
		return Breakdown{}, err
	}
	if amount.IsNil() || amount.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: negative liquidate amount", types.ErrAmountTooLow)
	}

	target := InvestedTarget(s)
	buffer := target.MulRaw(LiquidationBufferBps).QuoRaw(types.BpsDenominator)
	inflated := amount.Add(s.PendingWithdrawals).Add(buffer)
	if !inflated.IsPositive() {
		return Breakdown{}, fmt.Errorf("%w: nothing to liquidate", types.ErrAmountTooLow)
	}

	out := newBreakdown()
	remaining := inflated

	for i := 0; i < s.Book.Len && remaining.IsPositive(); i++ {
		excess, err := ExcessLiquidity(s, target, i)
		if err != nil {
			return Breakdown{}, err
		}
		if !excess.IsPositive() {
			continue
		}
		take := sdkmath.MinInt(sdkmath.MinInt(excess, remaining), s.Holdings[i])
		out.Amounts[i] = take
		out.Total = out.Total.Add(take)
		remaining = remaining.Sub(take)
	}

	plannerLogger.Debug().
		Str("requested", amount.String()).
		Str("inflated", inflated.String()).
		Str("allocated", out.Total.String()).
		Msg("Liquidate preview complete")
	return out, nil
}

func newBreakdown() Breakdown {
	var b Breakdown
	for i := range b.Amounts {
		b.Amounts[i] = sdkmath.ZeroInt()
	}
	b.Total = sdkmath.ZeroInt()
	return b
}
