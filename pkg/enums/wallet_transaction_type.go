package enums

import "fmt"

// WalletTransactionType maps to the wallet_transaction_type enum in Postgres.
type WalletTransactionType string

const (
	WalletTransactionTypeDebit  WalletTransactionType = "debit"
	WalletTransactionTypeCredit WalletTransactionType = "credit"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeDebit,
	WalletTransactionTypeCredit,
}

// IsValid reports whether the value matches the canonical enum.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
