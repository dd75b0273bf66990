package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Simulator stands in for a real bank rail. By default it approves every
// outbound transfer with a synthetic transaction id; a Decide hook can be set
// to exercise decline paths. Inbound confirmations are validated against
// transfers registered with RegisterIncoming, or accepted when unknown.
type Simulator struct {
	// Decide, when set, rules on each outbound transfer. Returning false
	// declines it with the given message.
	Decide func(req TransferRequest) (bool, string)

	mu       sync.Mutex
	expected map[string]ConfirmRequest
}

// NewSimulator constructs a simulator that approves everything.
func NewSimulator() *Simulator {
	return &Simulator{expected: make(map[string]ConfirmRequest)}
}

// ProcessTransfer simulates handing a transfer to the external rail.
func (s *Simulator) ProcessTransfer(_ context.Context, req TransferRequest) (TransferResponse, error) {
	if req.AccountNumber == "" || req.Bank == "" {
		return TransferResponse{Success: false, Message: "destination account and bank are required"}, nil
	}
	if req.Amount.Sign() <= 0 {
		return TransferResponse{Success: false, Message: "amount must be positive"}, nil
	}

	if s.Decide != nil {
		if ok, msg := s.Decide(req); !ok {
			return TransferResponse{Success: false, Message: msg}, nil
		}
	}

	return TransferResponse{
		Success:       true,
		Message:       "transfer completed",
		TransactionID: syntheticTransactionID(),
	}, nil
}

// RegisterIncoming records the expected details of an inbound transfer so a
// later confirmation can be checked against them.
func (s *Simulator) RegisterIncoming(req ConfirmRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expected[req.Reference] = req
}

// ConfirmIncomingTransfer validates an inbound claim. Amount, currency and
// both parties must match the registered transfer before it is valid.
func (s *Simulator) ConfirmIncomingTransfer(_ context.Context, req ConfirmRequest) (ConfirmResponse, error) {
	if req.Reference == "" || req.SenderAccount == "" || req.RecipientAccount == "" || req.Bank == "" {
		return ConfirmResponse{Valid: false, Message: "incomplete transfer details"}, nil
	}
	if req.Amount.Sign() <= 0 {
		return ConfirmResponse{Valid: false, Message: "amount must be positive"}, nil
	}

	s.mu.Lock()
	expected, known := s.expected[req.Reference]
	s.mu.Unlock()
	if !known {
		return ConfirmResponse{Valid: true, Message: "transfer is valid"}, nil
	}

	if !expected.Amount.Equal(req.Amount) || expected.Currency != req.Currency {
		return ConfirmResponse{Valid: false, Message: "transfer details do not match expected values"}, nil
	}
	if expected.SenderAccount != req.SenderAccount || expected.RecipientAccount != req.RecipientAccount {
		return ConfirmResponse{Valid: false, Message: "sender or recipient details do not match"}, nil
	}

	return ConfirmResponse{Valid: true, Message: "transfer is valid"}, nil
}

func syntheticTransactionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("TX-%d-%s", time.Now().UnixMilli(), suffix)
}
