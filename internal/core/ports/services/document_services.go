package services

import (
	"context"

	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/docuflow/docuflow/internal/dto"
	"github.com/shopspring/decimal"
)

// DocumentReaderSvc defines read operations for document data
type DocumentReaderSvc interface {
	// GetDocumentByID retrieves a specific document by its ID.
	GetDocumentByID(ctx context.Context, documentID string) (*domain.Document, error)

	// ListDocuments retrieves a paginated list of documents of one schema.
	ListDocuments(ctx context.Context, schemaName string, params dto.ListDocumentsParams) (*dto.ListDocumentsResponse, error)
}

// DocumentWriterSvc defines the lifecycle operations of a document.
type DocumentWriterSvc interface {
	// CreateDocument validates and persists a new Draft document.
	CreateDocument(ctx context.Context, req dto.CreateDocumentRequest, creatorUserID string) (*domain.Document, error)

	// UpdateDocument replaces field values on a mutable document.
	UpdateDocument(ctx context.Context, documentID string, req dto.UpdateDocumentRequest, userID string) (*domain.Document, error)

	// SaveDocument transitions Draft/Saved to Saved after validation.
	SaveDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error)

	// SubmitDocument transitions Saved to Submitted, posting balanced
	// ledger entries atomically with the state flip.
	SubmitDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error)

	// CancelDocument transitions Submitted to Cancelled, posting reversing
	// entries atomically with the state flip.
	CancelDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error)
}

// DocumentSvcFacade combines all document lifecycle interfaces.
type DocumentSvcFacade interface {
	DocumentReaderSvc
	DocumentWriterSvc
}

// ValidationSvcFacade runs the validation and formula pipeline against a
// document, mutating only its computed fields.
type ValidationSvcFacade interface {
	// Validate applies defaults, checks required fields, types and
	// constraints, then evaluates formulas in dependency order.
	Validate(ctx context.Context, doc *domain.Document) error

	// CoerceFields converts untyped field input into typed field values
	// according to the named schema.
	CoerceFields(schemaName string, raw map[string]any) (map[string]domain.FieldValue, error)
}

// PostingSvcFacade derives balanced ledger entries from documents.
type PostingSvcFacade interface {
	// BuildEntries evaluates the schema's posting rules into a balanced
	// batch of candidate entries plus the net balance change per account.
	BuildEntries(ctx context.Context, doc *domain.Document, userID string) ([]domain.LedgerEntry, map[string]decimal.Decimal, error)

	// BuildReversalEntries derives the reversing batch for a cancellation
	// and re-verifies the zero-net invariant.
	BuildReversalEntries(ctx context.Context, doc *domain.Document, original []domain.LedgerEntry, userID string) ([]domain.LedgerEntry, map[string]decimal.Decimal, error)
}
