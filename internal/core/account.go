package core

import (
	"errors"
	"strings"
	"time"
)

// Account is a funded trading account. Its initial balance is the baseline
// before any ledger record is applied; the aggregator receives the sum of
// all account balances.
type Account struct {
	ID             string
	Name           string
	InitialBalance float64
	Currency       string
	CreatedAt      time.Time
}

var (
	ErrEmptyAccountName = errors.New("empty account name")
	ErrNegativeBalance  = errors.New("initial balance cannot be negative")
)

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if len(a.Name) > 100 {
		return errors.New("account name too long (max 100 characters)")
	}
	if !isFinite(a.InitialBalance) || a.InitialBalance < 0 {
		return ErrNegativeBalance
	}
	if a.Currency == "" {
		return errors.New("empty currency")
	}
	return nil
}
