package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/docuflow/docuflow/internal/core/domain"
	portsrepo "github.com/docuflow/docuflow/internal/core/ports/repositories"
	portssvc "github.com/docuflow/docuflow/internal/core/ports/services"
	"github.com/docuflow/docuflow/internal/dto"
	"github.com/docuflow/docuflow/internal/middleware"
	"github.com/docuflow/docuflow/internal/utils/keyedmutex"
)

var (
	ErrIllegalTransition = fmt.Errorf("%w: illegal state transition", apperrors.ErrConflict)
	ErrNotSubmittable    = fmt.Errorf("%w: schema is not submittable", apperrors.ErrConflict)
	ErrDocumentImmutable = fmt.Errorf("%w: document accepts no further mutation", apperrors.ErrConflict)
)

func illegalTransition(from, to domain.DocState) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// documentService owns the document state machine. It serializes transitions
// per document ID and coordinates validation, posting and the atomic commit.
type documentService struct {
	registry   *SchemaRegistry
	validator  portssvc.ValidationSvcFacade
	posting    portssvc.PostingSvcFacade
	docRepo    portsrepo.DocumentRepositoryFacade
	ledgerRepo portsrepo.LedgerEntryReader
	locks      *keyedmutex.KeyedMutex
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(
	registry *SchemaRegistry,
	validator portssvc.ValidationSvcFacade,
	posting portssvc.PostingSvcFacade,
	docRepo portsrepo.DocumentRepositoryFacade,
	ledgerRepo portsrepo.LedgerEntryReader,
) portssvc.DocumentSvcFacade {
	return &documentService{
		registry:   registry,
		validator:  validator,
		posting:    posting,
		docRepo:    docRepo,
		ledgerRepo: ledgerRepo,
		locks:      keyedmutex.New(),
	}
}

var _ portssvc.DocumentSvcFacade = (*documentService)(nil)

// CreateDocument validates and persists a new Draft document.
func (s *documentService) CreateDocument(ctx context.Context, req dto.CreateDocumentRequest, creatorUserID string) (*domain.Document, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	rs, err := s.registry.Get(req.SchemaName)
	if err != nil {
		return nil, err
	}

	fields, err := s.validator.CoerceFields(req.SchemaName, req.Fields)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		DocumentID: uuid.NewString(),
		SchemaName: req.SchemaName,
		State:      domain.Draft,
		Revision:   1,
		Fields:     fields,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.validate(ctx, rs, doc); err != nil {
		return nil, err
	}

	if err := s.docRepo.SaveDocument(ctx, *doc); err != nil {
		logger.Error("Failed to save new document", slog.String("error", err.Error()), slog.String("schema", req.SchemaName))
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	logger.Info("Document created", slog.String("document_id", doc.DocumentID), slog.String("schema", req.SchemaName))
	return doc, nil
}

// UpdateDocument replaces the field values of a Draft or Saved document. An
// update that changes nothing persists nothing and keeps the revision.
func (s *documentService) UpdateDocument(ctx context.Context, documentID string, req dto.UpdateDocumentRequest, userID string) (*domain.Document, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.locks.Lock(documentID)
	defer s.locks.Unlock(documentID)

	doc, err := s.docRepo.FindDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsMutable() {
		return nil, fmt.Errorf("%w: document %s is %s", ErrDocumentImmutable, documentID, doc.State)
	}

	rs, err := s.registry.Get(doc.SchemaName)
	if err != nil {
		return nil, err
	}

	fields, err := s.validator.CoerceFields(doc.SchemaName, req.Fields)
	if err != nil {
		return nil, err
	}

	candidate := *doc
	candidate.Fields = fields
	if err := s.validate(ctx, rs, &candidate); err != nil {
		return nil, err
	}

	if doc.FieldsEqual(candidate.Fields) {
		logger.Debug("Update changed no field values", slog.String("document_id", documentID))
		return doc, nil
	}

	now := time.Now().UTC()
	candidate.Revision++
	candidate.LastUpdatedAt = now
	candidate.LastUpdatedBy = userID

	if err := s.docRepo.SaveDocument(ctx, candidate); err != nil {
		logger.Error("Failed to save document update", slog.String("error", err.Error()), slog.String("document_id", documentID))
		return nil, fmt.Errorf("failed to save document update: %w", err)
	}
	return &candidate, nil
}

// SaveDocument transitions Draft/Saved to Saved. Saving an unchanged Saved
// document is a no-op: no write, no revision bump.
func (s *documentService) SaveDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.locks.Lock(documentID)
	defer s.locks.Unlock(documentID)

	doc, err := s.docRepo.FindDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(doc.State, domain.Saved) {
		return nil, illegalTransition(doc.State, domain.Saved)
	}

	rs, err := s.registry.Get(doc.SchemaName)
	if err != nil {
		return nil, err
	}

	// The candidate gets its own field map: hooks mutate the candidate, and
	// the no-op check below must compare against the loaded snapshot.
	candidate := *doc
	candidate.Fields = doc.CloneFields()
	if err := rs.Hooks().Run(ctx, domain.BeforeSave, &candidate); err != nil {
		return nil, fmt.Errorf("beforeSave hook rejected save: %w", err)
	}
	if err := s.validate(ctx, rs, &candidate); err != nil {
		return nil, err
	}

	if doc.State == domain.Saved && doc.FieldsEqual(candidate.Fields) {
		logger.Debug("Save is a no-op on unchanged document", slog.String("document_id", documentID))
		return doc, nil
	}

	now := time.Now().UTC()
	candidate.State = domain.Saved
	candidate.Revision++
	candidate.LastUpdatedAt = now
	candidate.LastUpdatedBy = userID

	if err := rs.Hooks().Run(ctx, domain.AfterSave, &candidate); err != nil {
		return nil, fmt.Errorf("afterSave hook rejected save: %w", err)
	}

	if err := s.docRepo.SaveDocument(ctx, candidate); err != nil {
		logger.Error("Failed to persist save transition", slog.String("error", err.Error()), slog.String("document_id", documentID))
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	logger.Info("Document saved", slog.String("document_id", documentID), slog.Int64("revision", candidate.Revision))
	return &candidate, nil
}

// SubmitDocument is the one-way trapdoor from Saved to Submitted: it builds
// the balanced posting batch and commits it atomically with the state flip.
func (s *documentService) SubmitDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.locks.Lock(documentID)
	defer s.locks.Unlock(documentID)

	doc, err := s.docRepo.FindDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(doc.State, domain.Submitted) {
		return nil, illegalTransition(doc.State, domain.Submitted)
	}

	rs, err := s.registry.Get(doc.SchemaName)
	if err != nil {
		return nil, err
	}
	if !rs.Schema.Submittable {
		return nil, fmt.Errorf("%w: %s", ErrNotSubmittable, doc.SchemaName)
	}

	candidate := *doc
	candidate.Fields = doc.CloneFields()
	if err := rs.Hooks().Run(ctx, domain.BeforeSubmit, &candidate); err != nil {
		return nil, fmt.Errorf("beforeSubmit hook rejected submit: %w", err)
	}

	// Hooks may have mutated fields; the pipeline re-runs before posting.
	if err := s.validate(ctx, rs, &candidate); err != nil {
		return nil, err
	}

	entries, balanceChanges, err := s.posting.BuildEntries(ctx, &candidate, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	candidate.State = domain.Submitted
	candidate.Revision++
	candidate.LastUpdatedAt = now
	candidate.LastUpdatedBy = userID

	if err := rs.Hooks().Run(ctx, domain.AfterSubmit, &candidate); err != nil {
		return nil, fmt.Errorf("afterSubmit hook rejected submit: %w", err)
	}

	if err := s.docRepo.CommitTransition(ctx, candidate, entries, balanceChanges); err != nil {
		logger.Error("Failed to commit submission", slog.String("error", err.Error()), slog.String("document_id", documentID))
		return nil, err
	}

	logger.Info("Document submitted",
		slog.String("document_id", documentID),
		slog.Int("entry_count", len(entries)),
	)
	return &candidate, nil
}

// CancelDocument transitions Submitted to Cancelled, posting reversing
// entries atomically with the state flip. The document's net ledger effect
// after cancellation is exactly zero.
func (s *documentService) CancelDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.locks.Lock(documentID)
	defer s.locks.Unlock(documentID)

	doc, err := s.docRepo.FindDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(doc.State, domain.Cancelled) {
		return nil, illegalTransition(doc.State, domain.Cancelled)
	}

	rs, err := s.registry.Get(doc.SchemaName)
	if err != nil {
		return nil, err
	}

	candidate := *doc
	candidate.Fields = doc.CloneFields()
	if err := rs.Hooks().Run(ctx, domain.BeforeCancel, &candidate); err != nil {
		return nil, fmt.Errorf("beforeCancel hook rejected cancel: %w", err)
	}

	original, err := s.ledgerRepo.FindEntriesByDocumentID(ctx, documentID)
	if err != nil {
		logger.Error("Failed to load entries for reversal", slog.String("error", err.Error()), slog.String("document_id", documentID))
		return nil, fmt.Errorf("failed to load entries for reversal: %w", err)
	}

	reversals, balanceChanges, err := s.posting.BuildReversalEntries(ctx, &candidate, original, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	candidate.State = domain.Cancelled
	candidate.Revision++
	candidate.LastUpdatedAt = now
	candidate.LastUpdatedBy = userID

	if err := rs.Hooks().Run(ctx, domain.AfterCancel, &candidate); err != nil {
		return nil, fmt.Errorf("afterCancel hook rejected cancel: %w", err)
	}

	if err := s.docRepo.CommitTransition(ctx, candidate, reversals, balanceChanges); err != nil {
		logger.Error("Failed to commit cancellation", slog.String("error", err.Error()), slog.String("document_id", documentID))
		return nil, err
	}

	logger.Info("Document cancelled",
		slog.String("document_id", documentID),
		slog.Int("reversal_count", len(reversals)),
	)
	return &candidate, nil
}

// GetDocumentByID retrieves a document.
func (s *documentService) GetDocumentByID(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docRepo.FindDocumentByID(ctx, documentID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			middleware.GetLoggerFromCtx(ctx).Error("Failed to find document", slog.String("error", err.Error()), slog.String("document_id", documentID))
		}
		return nil, err
	}
	return doc, nil
}

// ListDocuments retrieves a paginated list of documents of one schema.
func (s *documentService) ListDocuments(ctx context.Context, schemaName string, params dto.ListDocumentsParams) (*dto.ListDocumentsResponse, error) {
	if _, err := s.registry.Get(schemaName); err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	docs, nextToken, err := s.docRepo.ListDocumentsBySchema(ctx, schemaName, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return &dto.ListDocumentsResponse{
		Documents: dto.ToDocumentResponses(docs),
		NextToken: nextToken,
	}, nil
}

// validate runs the engine pipeline followed by the schema's validate hooks.
func (s *documentService) validate(ctx context.Context, rs *RegisteredSchema, doc *domain.Document) error {
	if err := s.validator.Validate(ctx, doc); err != nil {
		return err
	}
	if err := rs.Hooks().Run(ctx, domain.ValidateHook, doc); err != nil {
		return fmt.Errorf("validate hook rejected document: %w", err)
	}
	return nil
}
