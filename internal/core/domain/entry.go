package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LedgerEntry is an immutable debit or credit posting against one account,
// attributable to one document. Entries are created only when a document is
// submitted and are voided by reversal, never mutated in place.
type LedgerEntry struct {
	EntryID    string          `json:"entryID"`
	DocumentID string          `json:"documentID"`
	AccountID  string          `json:"accountID"`
	Amount     decimal.Decimal `json:"amount"`
	Direction  EntryDirection  `json:"direction"`
	// ReversalOf links a reversing entry back to the entry it voids.
	ReversalOf *string `json:"reversalOf,omitempty"`
	AuditFields
}

// SignedAmount applies the account's nature to the entry amount: a debit to a
// debit-normal account (or a credit to a credit-normal account) increases the
// balance, the opposite decreases it.
func (e LedgerEntry) SignedAmount(accountType AccountType) (decimal.Decimal, error) {
	switch accountType {
	case Asset, Liability, Equity, Revenue, Expense:
	default:
		return decimal.Zero, fmt.Errorf("unknown account type %q for account %s", accountType, e.AccountID)
	}
	isDebit := e.Direction == Debit
	if accountType.IsDebitNormal() == isDebit {
		return e.Amount, nil
	}
	return e.Amount.Neg(), nil
}

// SumByDirection totals entry amounts per direction using exact decimal
// arithmetic. The balance invariant compares these two sums.
func SumByDirection(entries []LedgerEntry) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Direction == Debit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits
}
