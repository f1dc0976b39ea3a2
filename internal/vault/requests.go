package vault

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vce/internal/types"
)

// RequestRedeem queues shares of owner for asynchronous redemption to
// receiver. Repeated requests for the same (owner, receiver) pair aggregate
// into one entry with a size-weighted share price and a refreshed lock clock.
// Returns the request id.
func (v *Vault) RequestRedeem(caller string, shares sdkmath.Int, receiver, owner string) (uint64, error) {
	if caller == "" || receiver == "" || owner == "" {
		return 0, fmt.Errorf("%w: caller, receiver and owner cannot be empty", types.ErrInvalidParams)
	}
	if shares.IsNil() || !shares.IsPositive() {
		return 0, fmt.Errorf("%w: requested shares must be positive", types.ErrAmountTooLow)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	spendable := v.balanceOf(owner).Sub(v.red.RequestedOf(owner))
	if shares.GT(spendable) {
		return 0, fmt.Errorf("%w: requesting %s shares with spendable balance %s", types.ErrAmountTooHigh, shares, spendable)
	}
	if err := v.checkAllowance(owner, caller, shares); err != nil {
		return 0, err
	}

	price := v.sharePrice()
	v.spendAllowance(owner, caller, shares)
	v.requestSeq++
	req := v.red.Add(owner, receiver, caller, v.requestSeq, shares, price, v.now())

	v.log.Info().
		Uint64("request_id", req.ID).
		Str("owner", owner).
		Str("receiver", receiver).
		Str("operator", caller).
		Str("shares", shares.String()).
		Str("locked_price", req.SharePrice.String()).
		Msg("Redemption requested")
	return req.ID, nil
}

// CancelRedeemRequest voids the (owner, receiver) request entirely and
// returns the reserved shares to the owner's spendable balance. If the share
// price rose while the request was pending, the price difference is clawed
// back by burning shares, so cancellation cannot capture upside that was
// already promised away. Returns the shares burned.
func (v *Vault) CancelRedeemRequest(caller, receiver, owner string) (sdkmath.Int, error) {
	if caller == "" || receiver == "" || owner == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: caller, receiver and owner cannot be empty", types.ErrInvalidParams)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	req := v.red.Request(owner, receiver)
	if req == nil || !req.Shares.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: no open request for owner %s, receiver %s", types.ErrAmountTooLow, owner, receiver)
	}
	if caller != owner && caller != req.Operator {
		return sdkmath.Int{}, fmt.Errorf("%w: %s cannot cancel the request of %s", types.ErrUnauthorized, caller, owner)
	}

	price := v.sharePrice()
	burn := sdkmath.ZeroInt()
	if price.GT(req.SharePrice) && price.IsPositive() {
		// Opportunity cost of the pending period, valued at today's price:
		// shares * (price - requestPrice) / price, floored. The quotient is
		// strictly below the request's shares, which stay reserved in the
		// owner's balance, so a burn above the balance means the books are
		// corrupted.
		burn = price.Sub(req.SharePrice).MulInt(req.Shares).Quo(price).TruncateInt()
		if burn.GT(v.balanceOf(owner)) {
			return sdkmath.Int{}, fmt.Errorf("%w: cancellation burn %s exceeds owner balance %s", types.ErrInvariant, burn, v.balanceOf(owner))
		}
	}

	shares := req.Shares
	v.red.Reduce(owner, receiver, shares)
	if burn.IsPositive() {
		if err := v.burn(owner, burn); err != nil {
			return sdkmath.Int{}, err
		}
	}

	v.log.Info().
		Uint64("request_id", req.ID).
		Str("owner", owner).
		Str("receiver", receiver).
		Str("cancelled_shares", shares.String()).
		Str("burned_shares", burn.String()).
		Str("share_price", price.String()).
		Msg("Redemption request cancelled")
	return burn, nil
}

// isClaimableAt reports whether a request made at requested has matured: the
// redemption lock has elapsed, or a liquidation ran after the request was
// placed, whichever comes first.
func (v *Vault) isClaimableAt(requested time.Time) bool {
	unlock := requested.Add(time.Duration(v.params.RedemptionLockSeconds) * time.Second)
	if liq := v.checkpoint.Liquidate; !liq.IsZero() && !liq.Before(requested) && liq.Before(unlock) {
		unlock = liq
	}
	return !v.now().Before(unlock)
}

// claimableSharesOf returns how many of the request's shares can settle right
// now, bounded by the vault-wide claimable counter.
func (v *Vault) claimableSharesOf(req *types.ReceiverRequest) sdkmath.Int {
	if req == nil || !req.Shares.IsPositive() {
		return sdkmath.ZeroInt()
	}
	if !v.isClaimableAt(req.Timestamp) {
		return sdkmath.ZeroInt()
	}
	return sdkmath.MinInt(req.Shares, v.red.TotalClaimableShares)
}

// PendingOf returns the shares queued for (owner, receiver) that are not yet
// claimable.
func (v *Vault) PendingOf(owner, receiver string) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	req := v.red.Request(owner, receiver)
	if req == nil {
		return sdkmath.ZeroInt()
	}
	return req.Shares.Sub(v.claimableSharesOf(req))
}

// ClaimableOf returns the shares of the (owner, receiver) request that can be
// settled immediately.
func (v *Vault) ClaimableOf(owner, receiver string) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.claimableSharesOf(v.red.Request(owner, receiver))
}

// RequestsOf lists the owner's open redemption requests.
func (v *Vault) RequestsOf(owner string) []types.RequestView {
	v.mu.RLock()
	defer v.mu.RUnlock()

	rec, ok := v.red.ByOwner[owner]
	if !ok {
		return nil
	}
	out := make([]types.RequestView, 0, len(rec.ByReceiver))
	for receiver, req := range rec.ByReceiver {
		out = append(out, v.requestView(owner, receiver, req))
	}
	return out
}

// RequestOf returns the single (owner, receiver) request view, if any.
func (v *Vault) RequestOf(owner, receiver string) (types.RequestView, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	req := v.red.Request(owner, receiver)
	if req == nil {
		return types.RequestView{}, false
	}
	return v.requestView(owner, receiver, req), true
}

func (v *Vault) requestView(owner, receiver string, req *types.ReceiverRequest) types.RequestView {
	return types.RequestView{
		ID:         req.ID,
		Owner:      owner,
		Receiver:   receiver,
		Operator:   req.Operator,
		Shares:     req.Shares.String(),
		SharePrice: req.SharePrice.String(),
		Timestamp:  req.Timestamp,
		Claimable:  v.claimableSharesOf(req).IsPositive(),
	}
}
