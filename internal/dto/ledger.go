package dto

import (
	"time"

	"github.com/docuflow/docuflow/internal/core/domain"
)

// LedgerEntryResponse is the API representation of a committed ledger entry.
type LedgerEntryResponse struct {
	EntryID    string    `json:"entryID"`
	DocumentID string    `json:"documentID"`
	AccountID  string    `json:"accountID"`
	Amount     string    `json:"amount"`
	Direction  string    `json:"direction"`
	ReversalOf *string   `json:"reversalOf,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ListEntriesParams holds parameters for listing ledger entries.
type ListEntriesParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// ListEntriesResponse is a page of ledger entries plus the next-page token.
type ListEntriesResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}

// ToLedgerEntryResponse converts a domain entry to its API representation.
func ToLedgerEntryResponse(e domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:    e.EntryID,
		DocumentID: e.DocumentID,
		AccountID:  e.AccountID,
		Amount:     e.Amount.String(),
		Direction:  string(e.Direction),
		ReversalOf: e.ReversalOf,
		CreatedAt:  e.CreatedAt,
	}
}

// ToLedgerEntryResponses converts a slice of domain entries.
func ToLedgerEntryResponses(entries []domain.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = ToLedgerEntryResponse(e)
	}
	return out
}
