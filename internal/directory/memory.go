package directory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

type memoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemory constructs an in-memory account directory for tests and
// database-less runs.
func NewMemory() Directory {
	return &memoryDirectory{accounts: make(map[string]Account)}
}

func (d *memoryDirectory) Resolve(_ context.Context, accountNumber string) (Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	account, ok := d.accounts[accountNumber]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (d *memoryDirectory) Provision(_ context.Context, userID string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		number := randomAccountNumber()
		if _, taken := d.accounts[number]; taken {
			continue
		}
		account := Account{AccountNumber: number, UserID: userID, CreatedAt: time.Now().UTC()}
		d.accounts[number] = account
		return account, nil
	}
}

// randomAccountNumber mints a 10-digit account number.
func randomAccountNumber() string {
	return strconv.FormatInt(1_000_000_000+rand.Int63n(9_000_000_000), 10)
}
