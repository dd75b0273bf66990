// Package gateway defines the connector to an external bank rail. The engine
// depends only on the request/response shapes, not on any transport.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransferRequest describes an outbound transfer handed to the external rail.
type TransferRequest struct {
	AccountNumber string
	Bank          string
	Amount        decimal.Decimal
	Currency      string
	Reference     string
}

// TransferResponse is the rail's definitive answer to a transfer request.
// Success=false must be treated as final; the engine compensates rather than
// polling for a later outcome.
type TransferResponse struct {
	Success       bool
	Message       string
	TransactionID string
}

// ConfirmRequest describes an inbound-transfer claim awaiting validation.
type ConfirmRequest struct {
	Reference        string
	Amount           decimal.Decimal
	Currency         string
	SenderAccount    string
	RecipientAccount string
	Bank             string
}

// ConfirmResponse reports whether an inbound claim matches the expected transfer.
type ConfirmResponse struct {
	Valid   bool
	Message string
}

// Gateway represents a third-party payment rail.
type Gateway interface {
	ProcessTransfer(ctx context.Context, req TransferRequest) (TransferResponse, error)
	ConfirmIncomingTransfer(ctx context.Context, req ConfirmRequest) (ConfirmResponse, error)
}
