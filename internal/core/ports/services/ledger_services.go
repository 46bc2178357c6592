package services

import (
	"context"

	"github.com/docuflow/docuflow/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerSvcFacade is the read-only reporting boundary over committed ledger
// entries and account balances. It never mutates entries.
type LedgerSvcFacade interface {
	// GetEntriesByDocument retrieves every entry posted by one document,
	// reversals included.
	GetEntriesByDocument(ctx context.Context, documentID string) (*dto.ListEntriesResponse, error)

	// ListEntriesByAccount retrieves a paginated list of entries against
	// one account.
	ListEntriesByAccount(ctx context.Context, accountID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)

	// GetAccountBalance returns the account's current balance.
	GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
}
