package catalog

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrAccountExists     = errors.New("account already exists")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Ledger is an in-memory account ledger shared by the example classes. It is
// safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]int64)}
}

func (l *Ledger) Open(account string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[account]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, account)
	}
	l.balances[account] = 0
	return nil
}

// Close removes an account. Closing an unknown account is a no-op.
func (l *Ledger) Close(account string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.balances, account)
}

func (l *Ledger) Balance(account string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[account]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, account)
	}
	return b, nil
}

func (l *Ledger) Deposit(account string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[account]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, account)
	}
	l.balances[account] += amount
	return nil
}

func (l *Ledger) Withdraw(account string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.withdraw(account, amount)
}

// Transfer moves amount between two accounts atomically.
func (l *Ledger) Transfer(from, to string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, to)
	}
	if err := l.withdraw(from, amount); err != nil {
		return err
	}
	l.balances[to] += amount
	return nil
}

func (l *Ledger) withdraw(account string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	b, ok := l.balances[account]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, account)
	}
	if b < amount {
		return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, b, amount)
	}
	l.balances[account] = b - amount
	return nil
}

// AuditTrail records ledger operations per account.
type AuditTrail struct {
	mu      sync.Mutex
	entries map[string][]string
}

func NewAuditTrail() *AuditTrail {
	return &AuditTrail{entries: make(map[string][]string)}
}

func (a *AuditTrail) Record(account, entry string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[account] = append(a.entries[account], entry)
}

func (a *AuditTrail) Entries(account string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries[account]...)
}
