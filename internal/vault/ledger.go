package vault

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridianfi/vce/internal/types"
	"github.com/meridianfi/vce/internal/utils"
)

// Approve lets spender move up to amount of owner's shares. The amount
// replaces any previous allowance.
func (v *Vault) Approve(owner, spender string, amount sdkmath.Int) error {
	if owner == "" || spender == "" {
		return fmt.Errorf("%w: owner and spender cannot be empty", types.ErrInvalidParams)
	}
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("%w: allowance must be non-negative", types.ErrInvalidParams)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.allowances[owner] == nil {
		v.allowances[owner] = make(map[string]sdkmath.Int)
	}
	v.allowances[owner][spender] = amount
	return nil
}

// Allowance returns the remaining shares spender may move on owner's behalf.
func (v *Vault) Allowance(owner, spender string) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.allowanceOf(owner, spender)
}

func (v *Vault) allowanceOf(owner, spender string) sdkmath.Int {
	if grants, ok := v.allowances[owner]; ok {
		if a, ok := grants[spender]; ok {
			return a
		}
	}
	return sdkmath.ZeroInt()
}

func (v *Vault) checkAllowance(owner, spender string, shares sdkmath.Int) error {
	if spender == owner || !shares.IsPositive() {
		return nil
	}
	if v.allowanceOf(owner, spender).LT(shares) {
		return fmt.Errorf("%w: %s spending %s shares of %s", types.ErrAllowanceExceeded, spender, shares, owner)
	}
	return nil
}

// spendAllowance deducts shares from the allowance; callers must have run
// checkAllowance first so this cannot fail mid-mutation.
func (v *Vault) spendAllowance(owner, spender string, shares sdkmath.Int) {
	if spender == owner || !shares.IsPositive() {
		return
	}
	v.allowances[owner][spender] = v.allowanceOf(owner, spender).Sub(shares)
}

// Deposit moves amount of the vault asset from caller into custody and mints
// shares to receiver at the current share price, entry fee deducted in
// shares. Returns the shares credited to receiver.
func (v *Vault) Deposit(caller string, amount sdkmath.Int, receiver string) (sdkmath.Int, error) {
	if caller == "" || receiver == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: caller and receiver cannot be empty", types.ErrInvalidParams)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: deposit amount must be positive", types.ErrAmountTooLow)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	price := v.sharePrice()
	if err := v.checkDepositCap(amount); err != nil {
		return sdkmath.Int{}, err
	}
	if !convertToSharesAt(amount, price, false).IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s%s mints zero shares at price %s", types.ErrAmountTooLow, amount, v.params.AssetDenom, price)
	}

	received, err := v.bank.TransferIn(caller, sdk.NewCoin(v.params.AssetDenom, amount))
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("deposit transfer failed: %w", err)
	}

	// Shares are priced on the amount actually received, so fee-on-transfer
	// assets cannot mint unbacked shares.
	gross := convertToSharesAt(received, price, false)
	if !gross.IsPositive() {
		if refundErr := v.bank.TransferOut(caller, sdk.NewCoin(v.params.AssetDenom, received)); refundErr != nil {
			return sdkmath.Int{}, fmt.Errorf("%w: refund also failed: %w", types.ErrAmountTooLow, refundErr)
		}
		return sdkmath.Int{}, fmt.Errorf("%w: received %s mints zero shares", types.ErrAmountTooLow, received)
	}

	feeShares := sdkmath.ZeroInt()
	if !v.isExempt(receiver) {
		feeShares = utils.BpsCut(gross, v.params.Fees.EntryBps)
	}
	net := gross.Sub(feeShares)

	v.mint(receiver, net)
	v.mint(v.params.FeeCollector, feeShares)

	v.log.Info().
		Str("caller", caller).
		Str("receiver", receiver).
		Str("assets", received.String()).
		Str("shares", net.String()).
		Str("fee_shares", feeShares.String()).
		Str("share_price", price.String()).
		Msg("Deposit executed")
	return net, nil
}

// Mint credits receiver with exactly the requested shares and pulls the asset
// amount that backs them, entry fee included. Returns the assets charged.
func (v *Vault) Mint(caller string, shares sdkmath.Int, receiver string) (sdkmath.Int, error) {
	if caller == "" || receiver == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: caller and receiver cannot be empty", types.ErrInvalidParams)
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: mint shares must be positive", types.ErrAmountTooLow)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	price := v.sharePrice()

	// The entry fee is taken in shares, so gross up the mint to leave exactly
	// the requested shares after the cut.
	gross := shares
	if !v.isExempt(receiver) && v.params.Fees.EntryBps > 0 {
		gross = sdkmath.LegacyNewDecFromInt(shares).
			MulInt64(types.BpsDenominator).
			QuoInt64(types.BpsDenominator - int64(v.params.Fees.EntryBps)).
			Ceil().TruncateInt()
	}
	assets := convertToAssetsAt(gross, price, true)
	if !assets.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s shares cost zero assets at price %s", types.ErrAmountTooLow, shares, price)
	}
	if err := v.checkDepositCap(assets); err != nil {
		return sdkmath.Int{}, err
	}

	received, err := v.bank.TransferIn(caller, sdk.NewCoin(v.params.AssetDenom, assets))
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("mint transfer failed: %w", err)
	}
	if received.LT(assets) {
		// Exact-share semantics cannot hold under a transfer fee; undo.
		if refundErr := v.bank.TransferOut(caller, sdk.NewCoin(v.params.AssetDenom, received)); refundErr != nil {
			return sdkmath.Int{}, fmt.Errorf("%w: refund also failed: %w", types.ErrAmountTooLow, refundErr)
		}
		return sdkmath.Int{}, fmt.Errorf("%w: received %s of %s required assets", types.ErrAmountTooLow, received, assets)
	}

	v.mint(receiver, shares)
	v.mint(v.params.FeeCollector, gross.Sub(shares))

	v.log.Info().
		Str("caller", caller).
		Str("receiver", receiver).
		Str("assets", assets.String()).
		Str("shares", shares.String()).
		Str("fee_shares", gross.Sub(shares).String()).
		Msg("Mint executed")
	return assets, nil
}

func (v *Vault) checkDepositCap(amount sdkmath.Int) error {
	if !v.params.MaxTotalAssets.IsPositive() {
		return nil
	}
	after := v.totalAssets().Add(amount)
	if after.GT(v.params.MaxTotalAssets) {
		return fmt.Errorf("%w: deposit would raise total assets to %s, above the %s cap", types.ErrAmountTooHigh, after, v.params.MaxTotalAssets)
	}
	return nil
}

// Withdraw pays amount of the vault asset to receiver, burning the owner's
// shares. A claimable redemption request for (owner, receiver) is consumed
// first at min(request price, current price); any remainder exits at the
// current price with the exit fee applied. Returns the shares consumed.
func (v *Vault) Withdraw(caller string, amount sdkmath.Int, receiver, owner string) (sdkmath.Int, error) {
	if caller == "" || receiver == "" || owner == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: caller, receiver and owner cannot be empty", types.ErrInvalidParams)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: withdraw amount must be positive", types.ErrAmountTooLow)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	price := v.sharePrice()
	req := v.red.Request(owner, receiver)
	claimAvail := v.claimableSharesOf(req)
	claimPrice := price
	if req != nil && req.SharePrice.LT(price) {
		claimPrice = req.SharePrice
	}

	claimShares := sdkmath.ZeroInt()
	gross := sdkmath.ZeroInt()
	remaining := amount
	if claimAvail.IsPositive() {
		claimValue := convertToAssetsAt(claimAvail, claimPrice, false)
		if remaining.LTE(claimValue) {
			claimShares = sdkmath.MinInt(convertToSharesAt(remaining, claimPrice, true), claimAvail)
			remaining = sdkmath.ZeroInt()
		} else {
			claimShares = claimAvail
			remaining = remaining.Sub(claimValue)
		}
	}
	if remaining.IsPositive() {
		net := convertToSharesAt(remaining, price, true)
		gross = net
		if !v.isExempt(owner) && v.params.Fees.ExitBps > 0 {
			gross = sdkmath.LegacyNewDecFromInt(net).
				MulInt64(types.BpsDenominator).
				QuoInt64(types.BpsDenominator - int64(v.params.Fees.ExitBps)).
				Ceil().TruncateInt()
		}
	}

	if _, err := v.redeemExecute(caller, receiver, owner, req, claimShares, gross, price, claimPrice); err != nil {
		return sdkmath.Int{}, err
	}
	return claimShares.Add(gross), nil
}

// Redeem burns shares of owner and pays the proceeds to receiver. A claimable
// request for (owner, receiver) is consumed first at min(request price,
// current price); the remainder exits at the current price with the exit fee
// applied. Returns the assets paid out.
func (v *Vault) Redeem(caller string, shares sdkmath.Int, receiver, owner string) (sdkmath.Int, error) {
	if caller == "" || receiver == "" || owner == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: caller, receiver and owner cannot be empty", types.ErrInvalidParams)
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: redeem shares must be positive", types.ErrAmountTooLow)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	price := v.sharePrice()
	req := v.red.Request(owner, receiver)
	claimAvail := v.claimableSharesOf(req)
	claimPrice := price
	if req != nil && req.SharePrice.LT(price) {
		claimPrice = req.SharePrice
	}

	claimShares := sdkmath.MinInt(shares, claimAvail)
	gross := shares.Sub(claimShares)

	return v.redeemExecute(caller, receiver, owner, req, claimShares, gross, price, claimPrice)
}

// redeemExecute is the shared exit path behind Withdraw and Redeem: claim
// shares settle at claimPrice with no exit fee, gross shares settle at the
// current price with the exit fee carved out in shares. All validation runs
// before the first mutation.
func (v *Vault) redeemExecute(
	caller, receiver, owner string,
	req *types.ReceiverRequest,
	claimShares, grossShares sdkmath.Int,
	price, claimPrice sdkmath.LegacyDec,
) (sdkmath.Int, error) {
	if claimShares.IsPositive() {
		authorized := caller == owner || caller == receiver || (req != nil && caller == req.Operator)
		if !authorized {
			return sdkmath.Int{}, fmt.Errorf("%w: %s cannot claim the request of %s for %s", types.ErrUnauthorized, caller, owner, receiver)
		}
	}
	if err := v.checkAllowance(owner, caller, grossShares); err != nil {
		return sdkmath.Int{}, err
	}

	feeShares := sdkmath.ZeroInt()
	if grossShares.IsPositive() && !v.isExempt(owner) {
		feeShares = utils.BpsCut(grossShares, v.params.Fees.ExitBps)
	}
	netShares := grossShares.Sub(feeShares)

	claimAssets := convertToAssetsAt(claimShares, claimPrice, false)
	exitAssets := convertToAssetsAt(netShares, price, false)
	assetsOut := claimAssets.Add(exitAssets)
	if !assetsOut.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: redemption pays zero assets", types.ErrAmountTooLow)
	}

	total := claimShares.Add(grossShares)
	balance := v.balanceOf(owner)
	if total.GT(balance) {
		return sdkmath.Int{}, fmt.Errorf("%w: redeeming %s shares from balance %s", types.ErrAmountTooHigh, total, balance)
	}
	// Shares backing open requests stay reserved; only the claimed portion of
	// the request itself may cross that line.
	spendable := balance.Sub(v.red.RequestedOf(owner))
	if grossShares.GT(spendable) {
		return sdkmath.Int{}, fmt.Errorf("%w: %s shares exceed the spendable balance %s", types.ErrAmountTooHigh, grossShares, spendable)
	}

	if exitAssets.GT(v.available()) {
		return sdkmath.Int{}, fmt.Errorf("%w: exit needs %s%s, %s available outside the redemption reserve", types.ErrInsufficientLiquidity, exitAssets, v.params.AssetDenom, v.available())
	}
	if assetsOut.GT(v.availableClaimable()) {
		return sdkmath.Int{}, fmt.Errorf("%w: payout %s%s exceeds cash %s", types.ErrInsufficientLiquidity, assetsOut, v.params.AssetDenom, v.availableClaimable())
	}
	if err := v.checkMinLiquidity(netShares, price); err != nil {
		return sdkmath.Int{}, err
	}

	// Mutations. Order matters: share state first, external transfer last.
	v.spendAllowance(owner, caller, grossShares)
	if err := v.burn(owner, claimShares.Add(netShares)); err != nil {
		return sdkmath.Int{}, err
	}
	if feeShares.IsPositive() {
		v.balances[owner] = v.balanceOf(owner).Sub(feeShares)
		v.balances[v.params.FeeCollector] = v.balanceOf(v.params.FeeCollector).Add(feeShares)
	}
	if claimShares.IsPositive() {
		v.red.Reduce(owner, receiver, claimShares)
	}
	if err := v.bank.TransferOut(receiver, sdk.NewCoin(v.params.AssetDenom, assetsOut)); err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: payout transfer failed: %w", types.ErrInvariant, err)
	}

	v.log.Info().
		Str("caller", caller).
		Str("owner", owner).
		Str("receiver", receiver).
		Str("claim_shares", claimShares.String()).
		Str("exit_shares", grossShares.String()).
		Str("fee_shares", feeShares.String()).
		Str("assets", assetsOut.String()).
		Msg("Redemption executed")
	return assetsOut, nil
}
