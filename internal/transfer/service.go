// Package transfer orchestrates multi-leg wallet operations: internal and
// external transfers, withdrawals, deposits and read queries. It owns no
// state; it sequences wallet-store calls inside explicit units of work and
// drives the external bank gateway with compensation on failure.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/gateway"
	"github.com/nile-pay/nile_pay/internal/wallet"
)

var (
	// ErrValidation indicates malformed or missing input, caught before any mutation.
	ErrValidation = errors.New("invalid input")

	// ErrSelfTransfer indicates sender and receiver are the same wallet.
	ErrSelfTransfer = errors.New("cannot transfer to the same wallet")

	// ErrExternalTransferFailed indicates the gateway declined the transfer or
	// the inbound confirmation was invalid. For outbound transfers it is always
	// accompanied by a completed compensation.
	ErrExternalTransferFailed = errors.New("external transfer failed")

	// ErrCompensationFailed indicates the reversal after a declined external
	// transfer could not be applied. The ledger holds funds in the holding
	// wallet that belong to the sender; this is an unreconciled break and must
	// never be hidden.
	ErrCompensationFailed = errors.New("compensation failed, ledger requires reconciliation")
)

const (
	defaultHistoryPage  = 1
	defaultHistoryLimit = 10
)

// Orchestrator composes the wallet store and the external bank gateway into
// the engine's business operations.
type Orchestrator struct {
	store   wallet.Store
	gateway gateway.Gateway
	logger  *slog.Logger
}

// NewOrchestrator constructs a transaction orchestrator.
func NewOrchestrator(store wallet.Store, gw gateway.Gateway, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{store: store, gateway: gw, logger: logger}
}

// InternalTransferInput captures a wallet-to-wallet transfer. Ref is generated
// when empty.
type InternalTransferInput struct {
	SenderWalletID   string
	ReceiverWalletID string
	Amount           decimal.Decimal
	Currency         string
	Ref              string
}

// TransferResult describes the ledger outcome of a completed operation.
type TransferResult struct {
	SenderWallet   wallet.Wallet
	ReceiverWallet wallet.Wallet
	Entry          wallet.LedgerEntry
	Reference      string
	CompletedAt    time.Time
}

// TransferInternal moves funds between two wallets atomically. Both legs
// commit together or not at all.
func (o *Orchestrator) TransferInternal(ctx context.Context, in InternalTransferInput) (TransferResult, error) {
	if in.Amount.Sign() <= 0 {
		return TransferResult{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.SenderWalletID == "" || in.ReceiverWalletID == "" {
		return TransferResult{}, fmt.Errorf("%w: sender and receiver wallet ids are required", ErrValidation)
	}
	if in.SenderWalletID == in.ReceiverWalletID {
		return TransferResult{}, ErrSelfTransfer
	}

	ref := in.Ref
	if ref == "" {
		ref = uuid.NewString()
	}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	sender, entry, err := o.store.Debit(ctx, tx, wallet.DebitInput{
		WalletID: in.SenderWalletID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      ref,
		Kind:     wallet.EntryTransfer,
	})
	if err != nil {
		return TransferResult{}, err
	}
	receiver, _, err := o.store.Credit(ctx, tx, wallet.CreditInput{
		WalletID: in.ReceiverWalletID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      ref,
		Kind:     wallet.EntryTransfer,
	})
	if err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{
		SenderWallet:   sender,
		ReceiverWallet: receiver,
		Entry:          entry,
		Reference:      ref,
		CompletedAt:    time.Now().UTC(),
	}, nil
}

// ExternalTransferInput captures a transfer to an account at an external bank.
type ExternalTransferInput struct {
	SenderWalletID           string
	DestinationAccountNumber string
	DestinationBank          string
	Amount                   decimal.Decimal
	Currency                 string
}

// ExternalTransferResult describes a completed outbound transfer.
type ExternalTransferResult struct {
	SenderWallet         wallet.Wallet
	Entry                wallet.LedgerEntry
	Reference            string
	GatewayTransactionID string
	CompletedAt          time.Time
}

// TransferExternal debits the sender and parks the funds in the currency's
// holding wallet, commits, then hands the transfer to the gateway. A declined
// transfer is compensated under a freshly minted reference so the sender ends
// where it started.
func (o *Orchestrator) TransferExternal(ctx context.Context, in ExternalTransferInput) (ExternalTransferResult, error) {
	if in.DestinationAccountNumber == "" || in.DestinationBank == "" {
		return ExternalTransferResult{}, fmt.Errorf("%w: destination account number and bank are required", ErrValidation)
	}
	if in.Amount.Sign() <= 0 {
		return ExternalTransferResult{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.SenderWalletID == "" {
		return ExternalTransferResult{}, fmt.Errorf("%w: sender wallet id is required", ErrValidation)
	}

	holding, err := o.store.GetOrCreateHoldingWallet(ctx, in.Currency)
	if err != nil {
		return ExternalTransferResult{}, err
	}

	ref := fmt.Sprintf("ext-%s-%s", uuid.NewString(), in.Currency)

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return ExternalTransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	sender, entry, err := o.store.Debit(ctx, tx, wallet.DebitInput{
		WalletID: in.SenderWalletID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      ref,
		Kind:     wallet.EntryTransfer,
	})
	if err != nil {
		return ExternalTransferResult{}, err
	}
	if _, _, err := o.store.Credit(ctx, tx, wallet.CreditInput{
		WalletID: holding.ID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      ref,
		Kind:     wallet.EntryTransfer,
	}); err != nil {
		return ExternalTransferResult{}, err
	}

	// The internal movement commits before the gateway call; the engine accepts
	// funds sitting in the holding wallet until the rail answers, and reverses
	// explicitly instead of spanning a transaction across the network.
	if err := tx.Commit(ctx); err != nil {
		return ExternalTransferResult{}, err
	}

	resp, gwErr := o.gateway.ProcessTransfer(ctx, gateway.TransferRequest{
		AccountNumber: in.DestinationAccountNumber,
		Bank:          in.DestinationBank,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Reference:     ref,
	})
	if gwErr != nil || !resp.Success {
		reason := resp.Message
		if gwErr != nil {
			reason = gwErr.Error()
		}
		o.logger.Warn("external transfer declined, reversing funds",
			"reference", ref, "reason", reason)

		if compErr := o.compensate(ctx, holding.ID, in.SenderWalletID, in.Amount, in.Currency, ref); compErr != nil {
			o.logger.Error("unreconciled ledger break: compensation failed",
				"reference", ref,
				"holding_wallet", holding.ID,
				"sender_wallet", in.SenderWalletID,
				"amount", in.Amount.String(),
				"currency", in.Currency,
				"error", compErr,
			)
			return ExternalTransferResult{}, fmt.Errorf("%w: %v (original failure: %s)", ErrCompensationFailed, compErr, reason)
		}
		return ExternalTransferResult{}, fmt.Errorf("%w: %s", ErrExternalTransferFailed, reason)
	}

	return ExternalTransferResult{
		SenderWallet:         sender,
		Entry:                entry,
		Reference:            ref,
		GatewayTransactionID: resp.TransactionID,
		CompletedAt:          time.Now().UTC(),
	}, nil
}

// compensate reverses a committed debit/holding-credit pair after the gateway
// declined. A fresh reference is minted so the reversal never trips the
// duplicate detection protecting the original legs.
func (o *Orchestrator) compensate(ctx context.Context, holdingWalletID, senderWalletID string, amount decimal.Decimal, currency, originalRef string) error {
	revRef := "rev-" + uuid.NewString()
	metadata := map[string]string{"reverses": originalRef}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, _, err := o.store.Debit(ctx, tx, wallet.DebitInput{
		WalletID: holdingWalletID,
		Amount:   amount,
		Currency: currency,
		Ref:      revRef,
		Kind:     wallet.EntryTransfer,
		Metadata: metadata,
	}); err != nil {
		return err
	}
	if _, _, err := o.store.Credit(ctx, tx, wallet.CreditInput{
		WalletID: senderWalletID,
		Amount:   amount,
		Currency: currency,
		Ref:      revRef,
		Kind:     wallet.EntryTransfer,
		Metadata: metadata,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ReceiveExternalInput captures an inbound-transfer notification from an
// external bank. Ref is the external reference and is required.
type ReceiveExternalInput struct {
	ReceiverWalletID    string
	SourceAccountNumber string
	SourceBank          string
	RecipientAccount    string
	Amount              decimal.Decimal
	Currency            string
	Ref                 string
}

// ReceiveResult describes funds credited from an inbound transfer.
type ReceiveResult struct {
	ReceiverWallet wallet.Wallet
	Entry          wallet.LedgerEntry
	Reference      string
	CompletedAt    time.Time
}

// ReceiveExternal credits a wallet for a confirmed inbound transfer. A known
// reference is rejected before any gateway call or mutation, and an invalid
// confirmation leaves every wallet untouched.
func (o *Orchestrator) ReceiveExternal(ctx context.Context, in ReceiveExternalInput) (ReceiveResult, error) {
	if in.SourceAccountNumber == "" || in.SourceBank == "" {
		return ReceiveResult{}, fmt.Errorf("%w: source account and bank are required", ErrValidation)
	}
	if in.Amount.Sign() <= 0 {
		return ReceiveResult{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.ReceiverWalletID == "" {
		return ReceiveResult{}, fmt.Errorf("%w: receiver wallet id is required", ErrValidation)
	}
	if in.Ref == "" {
		return ReceiveResult{}, fmt.Errorf("%w: transaction reference is required", ErrValidation)
	}

	exists, err := o.store.ReferenceExists(ctx, in.Ref)
	if err != nil {
		return ReceiveResult{}, err
	}
	if exists {
		return ReceiveResult{}, wallet.ErrDuplicateReference
	}

	resp, err := o.gateway.ConfirmIncomingTransfer(ctx, gateway.ConfirmRequest{
		Reference:        in.Ref,
		Amount:           in.Amount,
		Currency:         in.Currency,
		SenderAccount:    in.SourceAccountNumber,
		RecipientAccount: in.RecipientAccount,
		Bank:             in.SourceBank,
	})
	if err != nil {
		return ReceiveResult{}, err
	}
	if !resp.Valid {
		o.logger.Warn("inbound transfer confirmation rejected",
			"reference", in.Ref, "reason", resp.Message)
		return ReceiveResult{}, fmt.Errorf("%w: %s", ErrExternalTransferFailed, resp.Message)
	}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return ReceiveResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	receiver, entry, err := o.store.Credit(ctx, tx, wallet.CreditInput{
		WalletID: in.ReceiverWalletID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      in.Ref,
		Kind:     wallet.EntryTransfer,
	})
	if err != nil {
		return ReceiveResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ReceiveResult{}, err
	}

	return ReceiveResult{
		ReceiverWallet: receiver,
		Entry:          entry,
		Reference:      in.Ref,
		CompletedAt:    time.Now().UTC(),
	}, nil
}

// WithdrawInput captures a withdrawal; funds leave the system through the
// currency's holding wallet. Ref is generated when empty.
type WithdrawInput struct {
	SourceWalletID string
	Amount         decimal.Decimal
	Currency       string
	Ref            string
}

// Withdraw debits the source wallet and credits the holding wallet.
func (o *Orchestrator) Withdraw(ctx context.Context, in WithdrawInput) (TransferResult, error) {
	if in.SourceWalletID == "" {
		return TransferResult{}, fmt.Errorf("%w: source wallet id is required", ErrValidation)
	}
	if in.Amount.Sign() <= 0 {
		return TransferResult{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	holding, err := o.store.GetOrCreateHoldingWallet(ctx, in.Currency)
	if err != nil {
		return TransferResult{}, err
	}

	ref := in.Ref
	if ref == "" {
		ref = uuid.NewString()
	}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	source, entry, err := o.store.Debit(ctx, tx, wallet.DebitInput{
		WalletID: in.SourceWalletID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      ref,
	})
	if err != nil {
		return TransferResult{}, err
	}
	held, _, err := o.store.Credit(ctx, tx, wallet.CreditInput{
		WalletID: holding.ID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      ref,
	})
	if err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{
		SenderWallet:   source,
		ReceiverWallet: held,
		Entry:          entry,
		Reference:      ref,
		CompletedAt:    time.Now().UTC(),
	}, nil
}

// DepositInput captures a deposit; value enters the system from outside
// through the currency's holding wallet. Ref is generated when empty.
type DepositInput struct {
	DestinationWalletID string
	Amount              decimal.Decimal
	Currency            string
	Ref                 string
}

// Deposit debits the holding wallet and credits the destination wallet.
func (o *Orchestrator) Deposit(ctx context.Context, in DepositInput) (TransferResult, error) {
	if in.DestinationWalletID == "" {
		return TransferResult{}, fmt.Errorf("%w: destination wallet id is required", ErrValidation)
	}
	if in.Amount.Sign() <= 0 {
		return TransferResult{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	holding, err := o.store.GetOrCreateHoldingWallet(ctx, in.Currency)
	if err != nil {
		return TransferResult{}, err
	}

	ref := in.Ref
	if ref == "" {
		ref = uuid.NewString()
	}

	tx, err := o.store.Begin(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	held, entry, err := o.store.Debit(ctx, tx, wallet.DebitInput{
		WalletID: holding.ID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      ref,
	})
	if err != nil {
		return TransferResult{}, err
	}
	destination, _, err := o.store.Credit(ctx, tx, wallet.CreditInput{
		WalletID: in.DestinationWalletID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Ref:      ref,
	})
	if err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{
		SenderWallet:   held,
		ReceiverWallet: destination,
		Entry:          entry,
		Reference:      ref,
		CompletedAt:    time.Now().UTC(),
	}, nil
}

// History returns ledger entries for a wallet, newest first. Page and limit
// fall back to 1 and 10 when not positive.
func (o *Orchestrator) History(ctx context.Context, walletID string, page, limit int) ([]wallet.LedgerEntry, int, error) {
	if walletID == "" {
		return nil, 0, fmt.Errorf("%w: wallet id is required", ErrValidation)
	}
	if page < 1 {
		page = defaultHistoryPage
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}

	entries, err := o.store.History(ctx, walletID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return entries, page, nil
}

// Balance returns the wallet's current balance and currency.
func (o *Orchestrator) Balance(ctx context.Context, walletID string) (wallet.Balance, error) {
	w, err := o.store.GetWallet(ctx, walletID)
	if err != nil {
		return wallet.Balance{}, err
	}
	return wallet.Balance{
		WalletID: w.ID,
		Amount:   w.Balance,
		Currency: w.Currency,
		AsOf:     time.Now().UTC(),
	}, nil
}
