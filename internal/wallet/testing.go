package wallet

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory store. It bypasses the ledger on purpose.
func SeedBalance(s Store, walletID string, balance decimal.Decimal) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.wallets[walletID]; exists {
			w.Balance = balance
		}
	}
}
