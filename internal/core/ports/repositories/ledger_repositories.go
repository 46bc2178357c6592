package repositories

import (
	"context"

	"github.com/docuflow/docuflow/internal/core/domain"
)

// LedgerEntryReader defines read operations for committed ledger entries.
// Entries are immutable; there is deliberately no writer interface outside
// the document transition commit.
type LedgerEntryReader interface {
	// FindEntriesByDocumentID retrieves all entries posted by one document,
	// reversals included.
	FindEntriesByDocumentID(ctx context.Context, documentID string) ([]domain.LedgerEntry, error)

	// ListEntriesByAccountID retrieves a paginated list of entries against
	// one account using token-based pagination.
	ListEntriesByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)
}
