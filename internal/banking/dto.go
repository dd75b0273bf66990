package banking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/fx"
	"github.com/nile-pay/nile_pay/internal/transfer"
	"github.com/nile-pay/nile_pay/internal/wallet"
)

// WithdrawRequest captures a withdrawal from the caller's wallet.
type WithdrawRequest struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// DepositRequest captures an inbound transfer notification from an external bank.
type DepositRequest struct {
	AccountNumber       string          `json:"account_number"`
	SourceAccountNumber string          `json:"source_account_number"`
	SourceBank          string          `json:"source_bank"`
	Currency            string          `json:"currency"`
	Amount              decimal.Decimal `json:"amount"`
	TransactionRef      string          `json:"transaction_ref"`
}

// TransferRequest captures a transfer to either an internal account number or
// an external bank account, discriminated by Type.
type TransferRequest struct {
	Type          string          `json:"type"`
	AccountNumber string          `json:"account_number"`
	Bank          string          `json:"bank"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
}

// ConvertRequest captures a currency conversion inside the caller's wallets.
type ConvertRequest struct {
	Currency       string          `json:"currency"`
	TargetCurrency string          `json:"target_currency"`
	Amount         decimal.Decimal `json:"amount"`
}

// WalletResponse represents a wallet in API responses.
type WalletResponse struct {
	ID       string          `json:"id"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// OperationResponse represents the outcome of a withdrawal or deposit.
type OperationResponse struct {
	Reference   string         `json:"reference"`
	Wallet      WalletResponse `json:"wallet"`
	CompletedAt time.Time      `json:"completed_at"`
}

// TransferResponse represents the outcome of a transfer of either variant.
type TransferResponse struct {
	Reference            string          `json:"reference"`
	SenderWallet         WalletResponse  `json:"sender_wallet"`
	ReceiverWallet       *WalletResponse `json:"receiver_wallet,omitempty"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	CompletedAt          time.Time       `json:"completed_at"`
}

// ConvertResponse represents the outcome of a currency conversion.
type ConvertResponse struct {
	Reference       string          `json:"reference"`
	SourceWallet    WalletResponse  `json:"source_wallet"`
	TargetWallet    WalletResponse  `json:"target_wallet"`
	Rate            decimal.Decimal `json:"rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
}

// EntryResponse represents a single ledger entry.
type EntryResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryResponse represents a page of ledger entries, newest first.
type HistoryResponse struct {
	Entries []EntryResponse `json:"entries"`
	Page    int             `json:"page"`
}

// BalanceResponse represents a wallet balance snapshot.
type BalanceResponse struct {
	WalletID string          `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
	AsOf     time.Time       `json:"as_of"`
}

func toWalletResponse(w wallet.Wallet) WalletResponse {
	return WalletResponse{ID: w.ID, Currency: w.Currency, Balance: w.Balance}
}

func toOperationResponse(res transfer.TransferResult) OperationResponse {
	return OperationResponse{
		Reference:   res.Reference,
		Wallet:      toWalletResponse(res.SenderWallet),
		CompletedAt: res.CompletedAt,
	}
}

func toDepositResponse(res transfer.ReceiveResult) OperationResponse {
	return OperationResponse{
		Reference:   res.Reference,
		Wallet:      toWalletResponse(res.ReceiverWallet),
		CompletedAt: res.CompletedAt,
	}
}

func toTransferResponse(out TransferOutcome) TransferResponse {
	resp := TransferResponse{
		Reference:            out.Reference,
		SenderWallet:         toWalletResponse(out.SenderWallet),
		GatewayTransactionID: out.GatewayTransactionID,
		CompletedAt:          out.CompletedAt,
	}
	if out.ReceiverWallet != nil {
		receiver := toWalletResponse(*out.ReceiverWallet)
		resp.ReceiverWallet = &receiver
	}
	return resp
}

func toConvertResponse(res fx.ConvertResult) ConvertResponse {
	return ConvertResponse{
		Reference:       res.Reference,
		SourceWallet:    toWalletResponse(res.SourceWallet),
		TargetWallet:    toWalletResponse(res.TargetWallet),
		Rate:            res.Rate,
		ConvertedAmount: res.ConvertedAmount,
	}
}

func toHistoryResponse(entries []wallet.LedgerEntry, page int) HistoryResponse {
	resp := HistoryResponse{Page: page, Entries: make([]EntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Amount:    e.Amount,
			Currency:  e.Currency,
			Reference: e.Reference,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp
}
