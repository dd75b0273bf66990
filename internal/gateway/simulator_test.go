package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestProcessTransferApprovesByDefault(t *testing.T) {
	s := NewSimulator()

	resp, err := s.ProcessTransfer(context.Background(), TransferRequest{
		AccountNumber: "1234567890",
		Bank:          "First Bank",
		Amount:        decimal.RequireFromString("25"),
		Currency:      "USD",
		Reference:     "ext-1",
	})
	if err != nil {
		t.Fatalf("process transfer: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected approval, got %q", resp.Message)
	}
	if !strings.HasPrefix(resp.TransactionID, "TX-") {
		t.Fatalf("expected synthetic transaction id, got %q", resp.TransactionID)
	}
}

func TestProcessTransferRejectsIncompleteRequests(t *testing.T) {
	s := NewSimulator()

	cases := []struct {
		name string
		req  TransferRequest
	}{
		{"missing bank", TransferRequest{AccountNumber: "123", Amount: decimal.New(1, 0), Currency: "USD"}},
		{"missing account", TransferRequest{Bank: "First Bank", Amount: decimal.New(1, 0), Currency: "USD"}},
		{"zero amount", TransferRequest{AccountNumber: "123", Bank: "First Bank", Currency: "USD"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := s.ProcessTransfer(context.Background(), tc.req)
			if err != nil {
				t.Fatalf("process transfer: %v", err)
			}
			if resp.Success {
				t.Fatal("expected rejection")
			}
			if resp.TransactionID != "" {
				t.Fatalf("rejection must not carry a transaction id, got %q", resp.TransactionID)
			}
		})
	}
}

func TestProcessTransferHonorsDecideHook(t *testing.T) {
	s := NewSimulator()
	s.Decide = func(req TransferRequest) (bool, string) {
		return false, "account frozen"
	}

	resp, err := s.ProcessTransfer(context.Background(), TransferRequest{
		AccountNumber: "123",
		Bank:          "First Bank",
		Amount:        decimal.New(10, 0),
		Currency:      "USD",
	})
	if err != nil {
		t.Fatalf("process transfer: %v", err)
	}
	if resp.Success || resp.Message != "account frozen" {
		t.Fatalf("expected decline with message, got %+v", resp)
	}
}

func TestConfirmIncomingMatchesRegisteredTransfer(t *testing.T) {
	s := NewSimulator()
	s.RegisterIncoming(ConfirmRequest{
		Reference:        "in-1",
		Amount:           decimal.RequireFromString("50"),
		Currency:         "USD",
		SenderAccount:    "111",
		RecipientAccount: "222",
		Bank:             "First Bank",
	})

	resp, err := s.ConfirmIncomingTransfer(context.Background(), ConfirmRequest{
		Reference:        "in-1",
		Amount:           decimal.RequireFromString("50.00"),
		Currency:         "USD",
		SenderAccount:    "111",
		RecipientAccount: "222",
		Bank:             "First Bank",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !resp.Valid {
		t.Fatalf("expected valid confirmation, got %q", resp.Message)
	}
}

func TestConfirmIncomingRejectsMismatches(t *testing.T) {
	s := NewSimulator()
	s.RegisterIncoming(ConfirmRequest{
		Reference:        "in-1",
		Amount:           decimal.RequireFromString("50"),
		Currency:         "USD",
		SenderAccount:    "111",
		RecipientAccount: "222",
		Bank:             "First Bank",
	})

	resp, err := s.ConfirmIncomingTransfer(context.Background(), ConfirmRequest{
		Reference:        "in-1",
		Amount:           decimal.RequireFromString("51"),
		Currency:         "USD",
		SenderAccount:    "111",
		RecipientAccount: "222",
		Bank:             "First Bank",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if resp.Valid {
		t.Fatal("expected mismatched amount to be rejected")
	}
}

func TestConfirmIncomingUnknownReferenceAccepted(t *testing.T) {
	s := NewSimulator()

	resp, err := s.ConfirmIncomingTransfer(context.Background(), ConfirmRequest{
		Reference:        "never-registered",
		Amount:           decimal.New(5, 0),
		Currency:         "USD",
		SenderAccount:    "111",
		RecipientAccount: "222",
		Bank:             "First Bank",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !resp.Valid {
		t.Fatalf("unknown references are accepted, got %q", resp.Message)
	}
}

func TestConfirmIncomingRejectsIncompleteClaims(t *testing.T) {
	s := NewSimulator()

	resp, err := s.ConfirmIncomingTransfer(context.Background(), ConfirmRequest{
		Reference: "in-1",
		Amount:    decimal.New(5, 0),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if resp.Valid {
		t.Fatal("expected incomplete claim to be rejected")
	}
}
