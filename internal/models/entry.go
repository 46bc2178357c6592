package models

import "github.com/shopspring/decimal"

// EntryDirection indicates whether an entry is a debit or a credit.
type EntryDirection string

const (
	Debit  EntryDirection = "DEBIT"
	Credit EntryDirection = "CREDIT"
)

// LedgerEntry is the storage representation of an immutable ledger entry.
type LedgerEntry struct {
	EntryID    string          `json:"entryID"`
	DocumentID string          `json:"documentID"`
	AccountID  string          `json:"accountID"`
	Amount     decimal.Decimal `json:"amount"`
	Direction  EntryDirection  `json:"direction"`
	ReversalOf *string         `json:"reversalOf,omitempty"`
	AuditFields
}
