package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/wallet"
)

var (
	// ErrSameCurrency indicates source and target wallets hold the same currency.
	ErrSameCurrency = errors.New("cannot convert to the same currency")

	// ErrHoldingWalletUnavailable indicates a required house wallet could not be provisioned.
	ErrHoldingWalletUnavailable = errors.New("holding wallet unavailable")

	// ErrInvalidAmount indicates the conversion amount is missing or not positive.
	ErrInvalidAmount = errors.New("conversion amount must be positive")
)

// Converter moves value between a user's wallets in different currencies. Each
// conversion runs four ledger legs through the per-currency holding wallets,
// all inside one unit of work.
type Converter struct {
	store  wallet.Store
	rates  RateSource
	logger *slog.Logger
}

// NewConverter constructs a currency converter.
func NewConverter(store wallet.Store, rates RateSource, logger *slog.Logger) *Converter {
	return &Converter{store: store, rates: rates, logger: logger}
}

// ConvertInput captures a conversion request.
type ConvertInput struct {
	WalletID       string
	TargetCurrency string
	Amount         decimal.Decimal
	UserID         string
}

// ConvertResult describes the outcome of a conversion.
type ConvertResult struct {
	SourceWallet    wallet.Wallet
	TargetWallet    wallet.Wallet
	Rate            decimal.Decimal
	ConvertedAmount decimal.Decimal
	Reference       string
}

// Convert debits the source wallet, routes both amounts through the holding
// wallets and credits the user's target-currency wallet with amount * rate.
// Any leg failing aborts all four.
func (c *Converter) Convert(ctx context.Context, in ConvertInput) (ConvertResult, error) {
	if in.Amount.Sign() <= 0 {
		return ConvertResult{}, ErrInvalidAmount
	}

	source, err := c.store.GetWallet(ctx, in.WalletID)
	if err != nil {
		return ConvertResult{}, err
	}
	target, err := c.store.GetWalletByOwnerCurrency(ctx, in.UserID, in.TargetCurrency)
	if err != nil {
		return ConvertResult{}, err
	}
	if source.Currency == target.Currency {
		return ConvertResult{}, ErrSameCurrency
	}

	sourceHouse, err := c.store.GetOrCreateHoldingWallet(ctx, source.Currency)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("%w: %s: %v", ErrHoldingWalletUnavailable, source.Currency, err)
	}
	targetHouse, err := c.store.GetOrCreateHoldingWallet(ctx, target.Currency)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("%w: %s: %v", ErrHoldingWalletUnavailable, target.Currency, err)
	}

	rate, err := c.rates.Lookup(ctx, source.Currency, target.Currency)
	if err != nil {
		return ConvertResult{}, err
	}
	converted := in.Amount.Mul(rate.Rate)

	// One base reference ties the four legs together; each leg gets its own
	// suffix so the sparse-unique reference index never collides.
	ref := fmt.Sprintf("conv-%s-%s-%s", uuid.NewString(), source.Currency, target.Currency)

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return ConvertResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	updatedSource, _, err := c.store.Debit(ctx, tx, wallet.DebitInput{
		WalletID: source.ID,
		Amount:   in.Amount,
		Currency: source.Currency,
		Ref:      ref + "-SRC",
		Kind:     wallet.EntryConversion,
	})
	if err != nil {
		return ConvertResult{}, err
	}
	if _, _, err := c.store.Credit(ctx, tx, wallet.CreditInput{
		WalletID: sourceHouse.ID,
		Amount:   in.Amount,
		Currency: source.Currency,
		Ref:      ref + "-SRC-HOUSE",
		Kind:     wallet.EntryConversion,
	}); err != nil {
		return ConvertResult{}, err
	}
	if _, _, err := c.store.Debit(ctx, tx, wallet.DebitInput{
		WalletID: targetHouse.ID,
		Amount:   converted,
		Currency: target.Currency,
		Ref:      ref + "-DST-HOUSE",
		Kind:     wallet.EntryConversion,
	}); err != nil {
		return ConvertResult{}, err
	}
	updatedTarget, _, err := c.store.Credit(ctx, tx, wallet.CreditInput{
		WalletID: target.ID,
		Amount:   converted,
		Currency: target.Currency,
		Ref:      ref + "-DST",
		Kind:     wallet.EntryConversion,
	})
	if err != nil {
		return ConvertResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ConvertResult{}, err
	}

	c.logger.Info("currency converted",
		"source_wallet", source.ID,
		"target_wallet", target.ID,
		"rate", rate.Rate.String(),
		"amount", in.Amount.String(),
		"converted", converted.String(),
	)

	return ConvertResult{
		SourceWallet:    updatedSource,
		TargetWallet:    updatedTarget,
		Rate:            rate.Rate,
		ConvertedAmount: converted,
		Reference:       ref,
	}, nil
}
