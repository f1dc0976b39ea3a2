package vault

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vce/internal/adapters"
	"github.com/meridianfi/vce/internal/types"
)

// SetInputs replaces the input book wholesale. Slots being removed or
// re-pointed to a different asset must be fully liquidated first; their
// cached position value has to be zero.
func (v *Vault) SetInputs(caller string, slots []types.InputSlot, inputAdapters []adapters.InputAdapter) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireRole(caller, types.RoleAdmin); err != nil {
		return err
	}
	book, err := types.NewInputBook(slots)
	if err != nil {
		return err
	}
	if len(inputAdapters) != book.Len {
		return fmt.Errorf("%w: %d adapters for %d inputs", types.ErrInvalidParams, len(inputAdapters), book.Len)
	}
	for i, a := range inputAdapters {
		if a == nil {
			return fmt.Errorf("%w: input adapter %d is nil", types.ErrInvalidParams, i)
		}
	}

	for i := 0; i < v.inputs.Len; i++ {
		removed := i >= book.Len
		repointed := !removed && book.Slots[i].Asset != v.inputs.Slots[i].Asset
		if (removed || repointed) && v.invested[i].IsPositive() {
			return fmt.Errorf("%w: input %d still holds %s%s, liquidate before replacing it", types.ErrInvalidParams, i, v.invested[i], v.params.AssetDenom)
		}
	}

	v.inputs = book
	for i := range v.inputAdapters {
		if i < book.Len {
			v.inputAdapters[i] = inputAdapters[i]
		} else {
			v.inputAdapters[i] = nil
			v.invested[i] = sdkmath.ZeroInt()
		}
	}

	v.log.Info().
		Str("caller", caller).
		Int("inputs", book.Len).
		Msg("Input book replaced")
	return nil
}

// SetFees replaces the fee schedule after cap validation.
func (v *Vault) SetFees(caller string, schedule types.Fees) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireRole(caller, types.RoleAdmin); err != nil {
		return err
	}
	if err := schedule.Validate(); err != nil {
		return err
	}

	v.params.Fees = schedule
	v.log.Info().
		Str("caller", caller).
		Uint64("perf_bps", schedule.PerfBps).
		Uint64("mgmt_bps", schedule.MgmtBps).
		Uint64("entry_bps", schedule.EntryBps).
		Uint64("exit_bps", schedule.ExitBps).
		Msg("Fee schedule updated")
	return nil
}

// SetFeeExemption adds or removes an account from the entry/exit fee
// exemption set.
func (v *Vault) SetFeeExemption(caller, account string, exempt bool) error {
	if account == "" {
		return fmt.Errorf("%w: account cannot be empty", types.ErrInvalidParams)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireRole(caller, types.RoleAdmin); err != nil {
		return err
	}
	if exempt {
		v.exempt[account] = struct{}{}
	} else {
		delete(v.exempt, account)
	}

	v.log.Info().
		Str("caller", caller).
		Str("account", account).
		Bool("exempt", exempt).
		Msg("Fee exemption updated")
	return nil
}

// IsFeeExempt reports whether an account skips entry and exit fees.
func (v *Vault) IsFeeExempt(account string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.isExempt(account)
}
