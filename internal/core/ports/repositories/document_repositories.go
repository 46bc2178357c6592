package repositories

import (
	"context"

	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DocumentReader defines read operations for document data
type DocumentReader interface {
	// FindDocumentByID retrieves a specific document by its unique identifier.
	FindDocumentByID(ctx context.Context, documentID string) (*domain.Document, error)

	// ListDocumentsBySchema retrieves a paginated list of documents of one
	// schema using token-based pagination.
	ListDocumentsBySchema(ctx context.Context, schemaName string, limit int, nextToken *string) ([]domain.Document, *string, error)
}

// DocumentWriter defines write operations for document data
type DocumentWriter interface {
	// SaveDocument persists a document's fields, state and revision. Used
	// for Draft and Saved mutations, which carry no ledger entries.
	SaveDocument(ctx context.Context, doc domain.Document) error

	// CommitTransition atomically persists a state flip together with its
	// ledger entries and the resulting account balance changes. Either all
	// of it becomes visible or none of it does; entries are never committed
	// without their owning document's matching state change.
	CommitTransition(ctx context.Context, doc domain.Document, entries []domain.LedgerEntry, balanceChanges map[string]decimal.Decimal) error
}

// DocumentRepositoryFacade combines all document-related repository interfaces.
type DocumentRepositoryFacade interface {
	DocumentReader
	DocumentWriter
}

// DocumentRepositoryWithTx extends DocumentRepositoryFacade with transaction capabilities
type DocumentRepositoryWithTx interface {
	DocumentRepositoryFacade
	TransactionManager
}
