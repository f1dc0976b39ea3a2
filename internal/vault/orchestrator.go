package vault

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridianfi/vce/internal/fees"
	"github.com/meridianfi/vce/internal/types"
	"github.com/meridianfi/vce/internal/utils"
)

// Invest converts per-input amounts of the vault asset into each input's
// native asset, stakes them through the input adapters and verifies the
// resulting position growth against the slippage tolerance in one unified
// check per input. Returns the total vault-asset amount spent.
//
// Amounts come from a planner preview; slots with a zero or nil amount are
// skipped. Each input's position value is booked as that input completes, so
// a mid-loop failure leaves the accounting aligned with what actually
// executed rather than rolled back on paper only.
func (v *Vault) Invest(caller string, amounts [types.MaxInputs]sdkmath.Int, swapParams [types.MaxInputs][]byte) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.investLocked(caller, amounts, swapParams)
}

func (v *Vault) investLocked(caller string, amounts [types.MaxInputs]sdkmath.Int, swapParams [types.MaxInputs][]byte) (sdkmath.Int, error) {
	if err := v.requireRole(caller, types.RoleOperator); err != nil {
		return sdkmath.Int{}, err
	}
	total, err := v.validateAmounts(amounts)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !total.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: nothing to invest", types.ErrAmountTooLow)
	}
	if total.GT(v.available()) {
		return sdkmath.Int{}, fmt.Errorf("%w: investing %s%s with %s available outside the redemption reserve", types.ErrInsufficientLiquidity, total, v.params.AssetDenom, v.available())
	}

	spent := sdkmath.ZeroInt()
	for i := 0; i < v.inputs.Len; i++ {
		amount := amounts[i]
		if amount.IsNil() || !amount.IsPositive() {
			continue
		}
		slot := v.inputs.Slots[i]
		inLog := v.log.With().Int("input", i).Str("input_asset", slot.Asset).Logger()

		if err := v.bank.TransferOut(slot.Asset, sdk.NewCoin(v.params.AssetDenom, amount)); err != nil {
			return sdkmath.Int{}, fmt.Errorf("input %d funding failed: %w", i, err)
		}

		stakeIn := amount
		if slot.Asset != v.params.AssetDenom {
			received, _, err := v.router.DecodeAndSwap(v.params.AssetDenom, slot.Asset, amount, swapParams[i])
			if err != nil {
				v.refreshPosition(i)
				return sdkmath.Int{}, fmt.Errorf("input %d swap failed: %w", i, err)
			}
			stakeIn = received
		}

		issued, err := v.inputAdapters[i].Stake(stakeIn)
		if err != nil {
			v.refreshPosition(i)
			return sdkmath.Int{}, fmt.Errorf("input %d staking failed: %w", i, err)
		}

		value, err := v.positionValue(i)
		if err != nil {
			return sdkmath.Int{}, err
		}
		gained := value.Sub(v.invested[i])
		// The cash has left custody and the position exists; the cache must
		// say so before the tolerance check can bail out.
		v.invested[i] = value
		spent = spent.Add(amount)

		minOut := amount.Sub(utils.BpsCut(amount, v.params.MaxSlippageBps))
		if gained.LT(minOut) {
			return sdkmath.Int{}, fmt.Errorf("%w: input %d gained %s%s of %s%s minimum", types.ErrSlippageExceeded, i, gained, v.params.AssetDenom, minOut, v.params.AssetDenom)
		}

		inLog.Info().
			Str("spent", amount.String()).
			Str("staked", stakeIn.String()).
			Str("issued", issued.String()).
			Str("position_value", value.String()).
			Msg("Input investment executed")
	}

	v.checkpoint.Invest = v.now()

	v.log.Info().
		Str("total_spent", spent.String()).
		Str("cash", v.cash().String()).
		Msg("Investment complete")
	return spent, nil
}

// Liquidate unstakes per-input amounts (in vault-asset value) and swaps the
// proceeds back to the vault asset, then advances the redemption aggregate's
// claimable counter by the pending total computed at call time. Unless
// panicMode is set, the call fails if the resulting claimable liquidity is
// below minLiquidity; panic mode downgrades that to a logged event so the
// vault can be drained under duress. Returns the vault-asset amount recovered.
func (v *Vault) Liquidate(caller string, amounts [types.MaxInputs]sdkmath.Int, minLiquidity sdkmath.Int, panicMode bool, swapParams [types.MaxInputs][]byte) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.liquidateLocked(caller, amounts, minLiquidity, panicMode, swapParams)
}

func (v *Vault) liquidateLocked(caller string, amounts [types.MaxInputs]sdkmath.Int, minLiquidity sdkmath.Int, panicMode bool, swapParams [types.MaxInputs][]byte) (sdkmath.Int, error) {
	if err := v.requireRole(caller, types.RoleOperator); err != nil {
		return sdkmath.Int{}, err
	}
	if _, err := v.validateAmounts(amounts); err != nil {
		return sdkmath.Int{}, err
	}
	if minLiquidity.IsNil() || minLiquidity.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: min liquidity must be non-negative", types.ErrInvalidParams)
	}

	// Price and pending total are fixed at call time; the claimable shares
	// created by this liquidation settle against them.
	price := v.sharePrice()
	pending := v.red.PendingShares()

	recovered := sdkmath.ZeroInt()
	for i := 0; i < v.inputs.Len; i++ {
		amount := amounts[i]
		if amount.IsNil() || !amount.IsPositive() {
			continue
		}
		slot := v.inputs.Slots[i]

		unstakeAmount := amount
		if slot.Asset != v.params.AssetDenom {
			converted, err := v.oracleConvert(v.params.AssetDenom, amount, slot.Asset)
			if err != nil {
				return sdkmath.Int{}, err
			}
			unstakeAmount = converted
		}

		unstaked, err := v.inputAdapters[i].Unstake(unstakeAmount)
		if err != nil {
			return sdkmath.Int{}, fmt.Errorf("input %d unstake failed: %w", i, err)
		}

		settled := unstaked
		if slot.Asset != v.params.AssetDenom {
			out, _, err := v.router.DecodeAndSwap(slot.Asset, v.params.AssetDenom, unstaked, swapParams[i])
			if err != nil {
				v.refreshPosition(i)
				return sdkmath.Int{}, fmt.Errorf("input %d swap-back failed: %w", i, err)
			}
			settled = out
		}
		received, err := v.bank.TransferIn(slot.Asset, sdk.NewCoin(v.params.AssetDenom, settled))
		if err != nil {
			v.refreshPosition(i)
			return sdkmath.Int{}, fmt.Errorf("input %d settlement failed: %w", i, err)
		}

		// The position already shrank and the proceeds are in custody, so the
		// cache is updated before the tolerance check.
		value, err := v.positionValue(i)
		if err != nil {
			return sdkmath.Int{}, err
		}
		v.invested[i] = value
		recovered = recovered.Add(received)

		minOut := amount.Sub(utils.BpsCut(amount, v.params.MaxSlippageBps))
		if received.LT(minOut) {
			return sdkmath.Int{}, fmt.Errorf("%w: input %d recovered %s%s of %s%s minimum", types.ErrSlippageExceeded, i, received, v.params.AssetDenom, minOut, v.params.AssetDenom)
		}

		v.log.Info().
			Int("input", i).
			Str("input_asset", slot.Asset).
			Str("requested", amount.String()).
			Str("recovered", received.String()).
			Str("position_value", value.String()).
			Msg("Input liquidation executed")
	}

	if minLiquidity.IsPositive() && v.availableClaimable().LT(minLiquidity) {
		if !panicMode {
			return sdkmath.Int{}, fmt.Errorf("%w: claimable liquidity %s%s below the %s%s floor", types.ErrInsufficientLiquidity, v.availableClaimable(), v.params.AssetDenom, minLiquidity, v.params.AssetDenom)
		}
		v.log.Warn().
			Str("claimable", v.availableClaimable().String()).
			Str("floor", minLiquidity.String()).
			Msg("Panic liquidation bypassed the liquidity floor")
	}

	moved := v.red.AdvanceClaimable(pending)
	if moved.IsPositive() {
		v.reservePrice = price
	}
	v.checkpoint.Liquidate = v.now()

	v.log.Info().
		Str("total_recovered", recovered.String()).
		Str("claimable_advanced", moved.String()).
		Str("reserve_price", v.reservePrice.String()).
		Bool("panic", panicMode).
		Msg("Liquidation complete")
	return recovered, nil
}

// Harvest claims the accrued rewards of every input, swaps them into the
// vault asset and books the proceeds as expected profit, which the fee engine
// linearizes over the profit cooldown. Returns the vault-asset amount
// harvested.
func (v *Vault) Harvest(caller string, swapParams [types.MaxInputs][]byte) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.harvestLocked(caller, swapParams)
}

func (v *Vault) harvestLocked(caller string, swapParams [types.MaxInputs][]byte) (sdkmath.Int, error) {
	if err := v.requireRole(caller, types.RoleOperator); err != nil {
		return sdkmath.Int{}, err
	}

	now := v.now()
	harvested := sdkmath.ZeroInt()
	var stepErr error
	for i := 0; i < v.inputs.Len; i++ {
		slot := v.inputs.Slots[i]
		if slot.RewardToken == "" {
			continue
		}
		reward, err := v.inputAdapters[i].ClaimRewards()
		if err != nil {
			stepErr = fmt.Errorf("input %d reward claim failed: %w", i, err)
			break
		}
		if !reward.Amount.IsPositive() {
			continue
		}

		settled := reward.Amount
		if reward.Denom != v.params.AssetDenom {
			out, _, err := v.router.DecodeAndSwap(reward.Denom, v.params.AssetDenom, reward.Amount, swapParams[i])
			if err != nil {
				stepErr = fmt.Errorf("input %d reward swap failed: %w", i, err)
				break
			}
			settled = out
		}
		received, err := v.bank.TransferIn(slot.Asset, sdk.NewCoin(v.params.AssetDenom, settled))
		if err != nil {
			stepErr = fmt.Errorf("input %d reward settlement failed: %w", i, err)
			break
		}
		harvested = harvested.Add(received)

		v.log.Info().
			Int("input", i).
			Str("reward", reward.String()).
			Str("settled", received.String()).
			Msg("Input rewards harvested")
	}

	// Whatever remains unrecognized from the previous window rolls into the
	// new expectation and the cooldown restarts. Rewards already settled into
	// custody are booked even when a later input failed; they entered the cash
	// total and must linearize, not land as instant price.
	if stepErr == nil || harvested.IsPositive() {
		age := int64(now.Sub(v.checkpoint.Harvest).Seconds())
		carry := fees.UnrecognizedProfit(v.expectedProfit, age, v.params.ProfitCooldownSeconds)
		v.expectedProfit = carry.Add(harvested)
		v.checkpoint.Harvest = now
	}
	if stepErr != nil {
		return sdkmath.Int{}, stepErr
	}

	v.log.Info().
		Str("harvested", harvested.String()).
		Str("expected_profit", v.expectedProfit.String()).
		Msg("Harvest complete")
	return harvested, nil
}

// Compound harvests all inputs and reinvests through the same invest path.
// Zero amounts skip the reinvest leg, making Compound equivalent to Harvest.
func (v *Vault) Compound(caller string, amounts [types.MaxInputs]sdkmath.Int, swapParams [types.MaxInputs][]byte) (harvested, spent sdkmath.Int, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	harvested, err = v.harvestLocked(caller, swapParams)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	total := sdkmath.ZeroInt()
	for i := range amounts {
		if !amounts[i].IsNil() && amounts[i].IsPositive() {
			total = total.Add(amounts[i])
		}
	}
	if !total.IsPositive() {
		return harvested, sdkmath.ZeroInt(), nil
	}

	spent, err = v.investLocked(caller, amounts, swapParams)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return harvested, spent, nil
}

// positionValue revalues input i's staked position in vault-asset units. This
// is the only place the accounting core consults the oracle; the result is
// cached so share-price reads stay oracle-free.
func (v *Vault) positionValue(i int) (sdkmath.Int, error) {
	staked, err := v.inputAdapters[i].StakedBalance()
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("input %d staked balance unavailable: %w", i, err)
	}
	inputUnits, err := v.inputAdapters[i].StakeToInput(staked)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("input %d stake conversion failed: %w", i, err)
	}
	if v.inputs.Slots[i].Asset == v.params.AssetDenom {
		return inputUnits, nil
	}
	return v.oracleConvert(v.inputs.Slots[i].Asset, inputUnits, v.params.AssetDenom)
}

// refreshPosition revalues input i after an aborted step so the cache tracks
// whatever the collaborators actually did. A failed revaluation is logged and
// leaves the previous value in place.
func (v *Vault) refreshPosition(i int) {
	value, err := v.positionValue(i)
	if err != nil {
		v.log.Error().Err(err).Int("input", i).Msg("Position revaluation failed after aborted step")
		return
	}
	v.invested[i] = value
}

func (v *Vault) oracleConvert(base string, amount sdkmath.Int, quote string) (sdkmath.Int, error) {
	out, err := v.oracle.Convert(base, amount, quote)
	if err != nil {
		return sdkmath.Int{}, errors.Join(types.ErrMissingOracle, err)
	}
	return out, nil
}

// validateAmounts rejects negative entries and positive entries beyond the
// configured inputs, returning the total.
func (v *Vault) validateAmounts(amounts [types.MaxInputs]sdkmath.Int) (sdkmath.Int, error) {
	total := sdkmath.ZeroInt()
	for i := range amounts {
		if amounts[i].IsNil() {
			continue
		}
		if amounts[i].IsNegative() {
			return sdkmath.Int{}, fmt.Errorf("%w: negative amount for input %d", types.ErrInvalidParams, i)
		}
		if amounts[i].IsPositive() && i >= v.inputs.Len {
			return sdkmath.Int{}, fmt.Errorf("%w: amount for unconfigured input %d", types.ErrInvalidParams, i)
		}
		total = total.Add(amounts[i])
	}
	return total, nil
}
