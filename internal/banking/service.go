// Package banking is the per-user facade over the transfer engine. It resolves
// the caller's wallets, applies the retry policy around each mutating
// operation and emits audit facts after success.
package banking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/audit"
	"github.com/nile-pay/nile_pay/internal/directory"
	"github.com/nile-pay/nile_pay/internal/fx"
	"github.com/nile-pay/nile_pay/internal/retry"
	"github.com/nile-pay/nile_pay/internal/transfer"
	"github.com/nile-pay/nile_pay/internal/wallet"
)

// Destination is the tagged union of transfer targets. Exactly one variant is
// chosen per request and validated on its own terms.
type Destination interface {
	isDestination()
}

// InternalDestination targets another user's wallet through their account number.
type InternalDestination struct {
	AccountNumber string
}

func (InternalDestination) isDestination() {}

// ExternalDestination targets an account at an external bank.
type ExternalDestination struct {
	AccountNumber string
	Bank          string
}

func (ExternalDestination) isDestination() {}

// Service exposes banking operations for an authenticated user.
type Service struct {
	store         wallet.Store
	transfers     *transfer.Orchestrator
	converter     *fx.Converter
	directory     directory.Directory
	auditor       audit.Recorder
	logger        *slog.Logger
	retryAttempts int
	retryDelay    time.Duration
}

// NewService constructs the banking facade.
func NewService(store wallet.Store, transfers *transfer.Orchestrator, converter *fx.Converter, dir directory.Directory, auditor audit.Recorder, logger *slog.Logger, retryAttempts int, retryDelay time.Duration) *Service {
	if retryAttempts < 1 {
		retryAttempts = retry.DefaultMaxAttempts
	}
	if retryDelay <= 0 {
		retryDelay = retry.DefaultDelay
	}
	return &Service{
		store:         store,
		transfers:     transfers,
		converter:     converter,
		directory:     dir,
		auditor:       auditor,
		logger:        logger,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
	}
}

// Withdraw moves funds out of the user's wallet for the given currency.
func (s *Service) Withdraw(ctx context.Context, userID, currency string, amount decimal.Decimal) (transfer.TransferResult, error) {
	if err := requireUserAndCurrency(userID, currency); err != nil {
		return transfer.TransferResult{}, err
	}

	w, err := s.store.GetWalletByOwnerCurrency(ctx, userID, currency)
	if err != nil {
		return transfer.TransferResult{}, err
	}

	// The reference is minted once so a retried run replays the same logical
	// operation instead of minting a second one.
	ref := uuid.NewString()
	res, err := retry.WithRetry(ctx, func(ctx context.Context) (transfer.TransferResult, error) {
		return s.transfers.Withdraw(ctx, transfer.WithdrawInput{
			SourceWalletID: w.ID,
			Amount:         amount,
			Currency:       currency,
			Ref:            ref,
		})
	}, s.retryAttempts, s.retryDelay)
	if err != nil {
		return transfer.TransferResult{}, err
	}

	s.record(ctx, audit.Fact{
		Action:     "create",
		Resource:   "banking-withdrawal",
		ResourceID: w.ID,
		Changes:    map[string]string{"amount": amount.String(), "currency": currency, "reference": res.Reference},
	})
	return res, nil
}

// DepositInput captures an inbound deposit notification from an external bank.
type DepositInput struct {
	DestinationAccountNumber string
	SourceAccountNumber      string
	SourceBank               string
	Currency                 string
	Amount                   decimal.Decimal
	TransactionRef           string
}

// Deposit credits the wallet of the account-number owner once the inbound
// transfer is confirmed.
func (s *Service) Deposit(ctx context.Context, in DepositInput) (transfer.ReceiveResult, error) {
	if in.Currency == "" {
		return transfer.ReceiveResult{}, fmt.Errorf("%w: currency is required", transfer.ErrValidation)
	}

	account, err := s.directory.Resolve(ctx, in.DestinationAccountNumber)
	if err != nil {
		return transfer.ReceiveResult{}, err
	}
	receiver, err := s.store.GetWalletByOwnerCurrency(ctx, account.UserID, in.Currency)
	if err != nil {
		return transfer.ReceiveResult{}, err
	}

	res, err := retry.WithRetry(ctx, func(ctx context.Context) (transfer.ReceiveResult, error) {
		return s.transfers.ReceiveExternal(ctx, transfer.ReceiveExternalInput{
			ReceiverWalletID:    receiver.ID,
			SourceAccountNumber: in.SourceAccountNumber,
			SourceBank:          in.SourceBank,
			RecipientAccount:    in.DestinationAccountNumber,
			Amount:              in.Amount,
			Currency:            in.Currency,
			Ref:                 in.TransactionRef,
		})
	}, s.retryAttempts, s.retryDelay)
	if err != nil {
		return transfer.ReceiveResult{}, err
	}

	s.record(ctx, audit.Fact{
		Action:     "create",
		Resource:   "banking-deposit",
		ResourceID: receiver.ID,
		Changes:    map[string]string{"amount": in.Amount.String(), "currency": in.Currency, "reference": in.TransactionRef},
		OldValues:  receiver,
	})
	return res, nil
}

// TransferOutcome describes a completed transfer of either variant.
type TransferOutcome struct {
	Reference            string
	SenderWallet         wallet.Wallet
	ReceiverWallet       *wallet.Wallet
	GatewayTransactionID string
	CompletedAt          time.Time
}

// Transfer moves funds from the user's wallet to the destination. The variant
// decides whether the funds stay inside the system or leave through the
// external rail.
func (s *Service) Transfer(ctx context.Context, userID, currency string, amount decimal.Decimal, dest Destination) (TransferOutcome, error) {
	if err := requireUserAndCurrency(userID, currency); err != nil {
		return TransferOutcome{}, err
	}

	sender, err := s.store.GetWalletByOwnerCurrency(ctx, userID, currency)
	if err != nil {
		return TransferOutcome{}, err
	}

	var outcome TransferOutcome
	switch d := dest.(type) {
	case InternalDestination:
		if d.AccountNumber == "" {
			return TransferOutcome{}, fmt.Errorf("%w: destination account number is required", transfer.ErrValidation)
		}
		account, err := s.directory.Resolve(ctx, d.AccountNumber)
		if err != nil {
			return TransferOutcome{}, err
		}
		receiver, err := s.store.GetWalletByOwnerCurrency(ctx, account.UserID, currency)
		if err != nil {
			return TransferOutcome{}, err
		}

		ref := uuid.NewString()
		res, err := retry.WithRetry(ctx, func(ctx context.Context) (transfer.TransferResult, error) {
			return s.transfers.TransferInternal(ctx, transfer.InternalTransferInput{
				SenderWalletID:   sender.ID,
				ReceiverWalletID: receiver.ID,
				Amount:           amount,
				Currency:         currency,
				Ref:              ref,
			})
		}, s.retryAttempts, s.retryDelay)
		if err != nil {
			return TransferOutcome{}, err
		}
		outcome = TransferOutcome{
			Reference:      res.Reference,
			SenderWallet:   res.SenderWallet,
			ReceiverWallet: &res.ReceiverWallet,
			CompletedAt:    res.CompletedAt,
		}

	case ExternalDestination:
		if d.AccountNumber == "" || d.Bank == "" {
			return TransferOutcome{}, fmt.Errorf("%w: destination account number and bank are required", transfer.ErrValidation)
		}
		res, err := retry.WithRetry(ctx, func(ctx context.Context) (transfer.ExternalTransferResult, error) {
			return s.transfers.TransferExternal(ctx, transfer.ExternalTransferInput{
				SenderWalletID:           sender.ID,
				DestinationAccountNumber: d.AccountNumber,
				DestinationBank:          d.Bank,
				Amount:                   amount,
				Currency:                 currency,
			})
		}, s.retryAttempts, s.retryDelay)
		if err != nil {
			return TransferOutcome{}, err
		}
		outcome = TransferOutcome{
			Reference:            res.Reference,
			SenderWallet:         res.SenderWallet,
			GatewayTransactionID: res.GatewayTransactionID,
			CompletedAt:          res.CompletedAt,
		}

	default:
		return TransferOutcome{}, fmt.Errorf("%w: unsupported transfer destination", transfer.ErrValidation)
	}

	s.record(ctx, audit.Fact{
		Action:     "create",
		Resource:   "banking-transfer",
		ResourceID: sender.ID,
		Changes:    map[string]string{"amount": amount.String(), "currency": currency, "reference": outcome.Reference},
		OldValues:  sender,
	})
	return outcome, nil
}

// Convert exchanges funds from the user's wallet in the given currency into
// their wallet in the target currency.
func (s *Service) Convert(ctx context.Context, userID, currency, targetCurrency string, amount decimal.Decimal) (fx.ConvertResult, error) {
	if err := requireUserAndCurrency(userID, currency); err != nil {
		return fx.ConvertResult{}, err
	}
	if targetCurrency == "" {
		return fx.ConvertResult{}, fmt.Errorf("%w: target currency is required", transfer.ErrValidation)
	}

	w, err := s.store.GetWalletByOwnerCurrency(ctx, userID, currency)
	if err != nil {
		return fx.ConvertResult{}, err
	}

	res, err := retry.WithRetry(ctx, func(ctx context.Context) (fx.ConvertResult, error) {
		return s.converter.Convert(ctx, fx.ConvertInput{
			WalletID:       w.ID,
			TargetCurrency: targetCurrency,
			Amount:         amount,
			UserID:         userID,
		})
	}, s.retryAttempts, s.retryDelay)
	if err != nil {
		return fx.ConvertResult{}, err
	}

	s.record(ctx, audit.Fact{
		Action:     "create",
		Resource:   "banking-conversion",
		ResourceID: w.ID,
		Changes: map[string]string{
			"amount":          amount.String(),
			"currency":        currency,
			"target_currency": targetCurrency,
			"rate":            res.Rate.String(),
		},
	})
	return res, nil
}

// History returns the user's ledger entries for a currency, newest first.
func (s *Service) History(ctx context.Context, userID, currency string, page, limit int) ([]wallet.LedgerEntry, int, error) {
	if err := requireUserAndCurrency(userID, currency); err != nil {
		return nil, 0, err
	}
	w, err := s.store.GetWalletByOwnerCurrency(ctx, userID, currency)
	if err != nil {
		return nil, 0, err
	}
	return s.transfers.History(ctx, w.ID, page, limit)
}

// Balance returns the user's balance for a currency.
func (s *Service) Balance(ctx context.Context, userID, currency string) (wallet.Balance, error) {
	if err := requireUserAndCurrency(userID, currency); err != nil {
		return wallet.Balance{}, err
	}
	w, err := s.store.GetWalletByOwnerCurrency(ctx, userID, currency)
	if err != nil {
		return wallet.Balance{}, err
	}
	return s.transfers.Balance(ctx, w.ID)
}

// record ships an audit fact. Audit is best-effort; failures are logged and
// never unwind the financial operation.
func (s *Service) record(ctx context.Context, fact audit.Fact) {
	if s.auditor == nil {
		return
	}
	fact.OccurredAt = time.Now().UTC()
	if err := s.auditor.Record(ctx, fact); err != nil {
		s.logger.Warn("audit record failed", "resource", fact.Resource, "error", err)
	}
}

func requireUserAndCurrency(userID, currency string) error {
	if userID == "" {
		return fmt.Errorf("%w: user is required", transfer.ErrValidation)
	}
	if currency == "" {
		return fmt.Errorf("%w: currency is required", transfer.ErrValidation)
	}
	return nil
}
