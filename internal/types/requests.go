package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// ReceiverRequest is a pending redemption for one (owner, receiver) pair.
// Shares only ever shrink, through claim or cancellation. The recorded share
// price is a size-weighted average across aggregated requests.
type ReceiverRequest struct {
	ID         uint64            `json:"id"`
	Shares     sdkmath.Int       `json:"shares"`
	SharePrice sdkmath.LegacyDec `json:"share_price"`
	Operator   string            `json:"operator"`
	Timestamp  time.Time         `json:"timestamp"`
}

// OwnerRequests aggregates an owner's pending redemptions across receivers.
type OwnerRequests struct {
	TotalShares sdkmath.Int                 `json:"total_shares"`
	ByReceiver  map[string]*ReceiverRequest `json:"by_receiver"`
}

// RedemptionBook is the singleton redemption aggregate for a vault.
type RedemptionBook struct {
	TotalShares          sdkmath.Int `json:"total_shares"`
	TotalClaimableShares sdkmath.Int `json:"total_claimable_shares"`
	ByOwner              map[string]*OwnerRequests
}

// NewRedemptionBook returns an empty book.
func NewRedemptionBook() RedemptionBook {
	return RedemptionBook{
		TotalShares:          sdkmath.ZeroInt(),
		TotalClaimableShares: sdkmath.ZeroInt(),
		ByOwner:              make(map[string]*OwnerRequests),
	}
}

// Request returns the request for (owner, receiver), or nil.
func (b *RedemptionBook) Request(owner, receiver string) *ReceiverRequest {
	rec, ok := b.ByOwner[owner]
	if !ok {
		return nil
	}
	return rec.ByReceiver[receiver]
}

// RequestedOf returns the owner's total requested shares.
func (b *RedemptionBook) RequestedOf(owner string) sdkmath.Int {
	rec, ok := b.ByOwner[owner]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return rec.TotalShares
}

// Add aggregates shares into the (owner, receiver) request, recomputing the
// volume-weighted share price, and bumps the book total. A fresh entry is
// created with the supplied id; an existing entry keeps its id.
func (b *RedemptionBook) Add(owner, receiver, operator string, id uint64, shares sdkmath.Int, price sdkmath.LegacyDec, now time.Time) *ReceiverRequest {
	rec, ok := b.ByOwner[owner]
	if !ok {
		rec = &OwnerRequests{
			TotalShares: sdkmath.ZeroInt(),
			ByReceiver:  make(map[string]*ReceiverRequest),
		}
		b.ByOwner[owner] = rec
	}

	req, ok := rec.ByReceiver[receiver]
	if !ok || req.Shares.IsZero() {
		req = &ReceiverRequest{
			ID:         id,
			Shares:     shares,
			SharePrice: price,
			Operator:   operator,
			Timestamp:  now,
		}
		rec.ByReceiver[receiver] = req
	} else {
		// VWAP across the old and new tranche; no other smoothing.
		oldShares := sdkmath.LegacyNewDecFromInt(req.Shares)
		newShares := sdkmath.LegacyNewDecFromInt(shares)
		weighted := oldShares.Mul(req.SharePrice).Add(newShares.Mul(price))
		req.SharePrice = weighted.Quo(oldShares.Add(newShares))
		req.Shares = req.Shares.Add(shares)
		req.Operator = operator
		req.Timestamp = now
	}

	rec.TotalShares = rec.TotalShares.Add(shares)
	b.TotalShares = b.TotalShares.Add(shares)
	return req
}

// Reduce removes claimed or cancelled shares from the (owner, receiver)
// request and both aggregate counters, zeroing the entry when drained.
func (b *RedemptionBook) Reduce(owner, receiver string, shares sdkmath.Int) {
	rec, ok := b.ByOwner[owner]
	if !ok {
		return
	}
	req, ok := rec.ByReceiver[receiver]
	if !ok {
		return
	}
	if shares.GT(req.Shares) {
		shares = req.Shares
	}

	req.Shares = req.Shares.Sub(shares)
	rec.TotalShares = rec.TotalShares.Sub(shares)
	b.TotalShares = b.TotalShares.Sub(shares)
	b.TotalClaimableShares = sdkmath.MaxInt(b.TotalClaimableShares.Sub(shares), sdkmath.ZeroInt())
	if b.TotalClaimableShares.GT(b.TotalShares) {
		b.TotalClaimableShares = b.TotalShares
	}

	if req.Shares.IsZero() {
		delete(rec.ByReceiver, receiver)
	}
	if rec.TotalShares.IsZero() {
		delete(b.ByOwner, owner)
	}
}

// PendingShares returns requested shares not yet marked claimable.
func (b *RedemptionBook) PendingShares() sdkmath.Int {
	return b.TotalShares.Sub(b.TotalClaimableShares)
}

// AdvanceClaimable moves shares from pending to claimable, clamped so the
// claimable counter never exceeds the requested total.
func (b *RedemptionBook) AdvanceClaimable(shares sdkmath.Int) sdkmath.Int {
	pending := b.PendingShares()
	if shares.GT(pending) {
		shares = pending
	}
	if shares.IsNegative() {
		shares = sdkmath.ZeroInt()
	}
	b.TotalClaimableShares = b.TotalClaimableShares.Add(shares)
	return shares
}
