package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/docuflow/docuflow/internal/core/domain"
	portsrepo "github.com/docuflow/docuflow/internal/core/ports/repositories"
	"github.com/docuflow/docuflow/internal/models"
	"github.com/docuflow/docuflow/internal/utils/mapping"
	"github.com/docuflow/docuflow/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const documentColumns = `document_id, schema_name, state, revision, fields, created_at, created_by, last_updated_at, last_updated_by`

// PgxDocumentRepository persists documents and commits lifecycle transitions
// together with their ledger entries in one database transaction.
type PgxDocumentRepository struct {
	BaseRepository
	accountRepo portsrepo.AccountRepositoryFacade
}

func newPgxDocumentRepository(pool *pgxpool.Pool, accountRepo portsrepo.AccountRepositoryFacade) portsrepo.DocumentRepositoryWithTx {
	return &PgxDocumentRepository{
		BaseRepository: BaseRepository{Pool: pool},
		accountRepo:    accountRepo,
	}
}

var _ portsrepo.DocumentRepositoryWithTx = (*PgxDocumentRepository)(nil)

// SaveDocument inserts or updates a document's fields, state and revision.
// The revision guard rejects writes that lost a race, which should not occur
// under the per-document serialization upstream.
func (r *PgxDocumentRepository) SaveDocument(ctx context.Context, doc domain.Document) error {
	m, err := mapping.ToModelDocument(doc)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode document "+doc.DocumentID, err)
	}
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (document_id) DO UPDATE
		SET state = EXCLUDED.state,
		    revision = EXCLUDED.revision,
		    fields = EXCLUDED.fields,
		    last_updated_at = EXCLUDED.last_updated_at,
		    last_updated_by = EXCLUDED.last_updated_by
		WHERE documents.revision < EXCLUDED.revision;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.DocumentID, m.SchemaName, m.State, m.Revision, m.Fields,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return persistenceError("failed to save document "+m.DocumentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

// FindDocumentByID retrieves a document by its ID.
func (r *PgxDocumentRepository) FindDocumentByID(ctx context.Context, documentID string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE document_id = $1;`
	var m models.Document
	err := r.Pool.QueryRow(ctx, query, documentID).Scan(
		&m.DocumentID, &m.SchemaName, &m.State, &m.Revision, &m.Fields,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, persistenceError("failed to find document "+documentID, err)
	}
	doc, err := mapping.ToDomainDocument(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode document "+documentID, err)
	}
	return &doc, nil
}

// ListDocumentsBySchema retrieves a keyset-paginated page of documents.
func (r *PgxDocumentRepository) ListDocumentsBySchema(ctx context.Context, schemaName string, limit int, nextToken *string) ([]domain.Document, *string, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE schema_name = $1`
	args := []any{schemaName}
	if nextToken != nil {
		afterTime, afterID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid pagination token", err)
		}
		query += ` AND (created_at, document_id) > ($2, $3)`
		args = append(args, afterTime, afterID)
	}
	// Fetch one row past the page to learn whether another page exists.
	query += fmt.Sprintf(` ORDER BY created_at, document_id LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, persistenceError("failed to list documents for schema "+schemaName, err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0, limit)
	hasMore := false
	for rows.Next() {
		var m models.Document
		if err := rows.Scan(
			&m.DocumentID, &m.SchemaName, &m.State, &m.Revision, &m.Fields,
			&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
		); err != nil {
			return nil, nil, persistenceError("failed to scan document row", err)
		}
		if len(docs) == limit {
			hasMore = true
			break
		}
		doc, err := mapping.ToDomainDocument(m)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to decode document "+m.DocumentID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, persistenceError("failed to read document rows", err)
	}
	if hasMore {
		last := docs[len(docs)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.DocumentID)
		return docs, &token, nil
	}
	return docs, nil, nil
}

// CommitTransition atomically persists a state flip with its ledger entries
// and account balance updates. On any failure the transaction rolls back and
// prior state remains observably unchanged.
func (r *PgxDocumentRepository) CommitTransition(ctx context.Context, doc domain.Document, entries []domain.LedgerEntry, balanceChanges map[string]decimal.Decimal) error {
	m, err := mapping.ToModelDocument(doc)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode document "+doc.DocumentID, err)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	// Ignored once the transaction commits.
	defer r.Rollback(ctx, tx)

	// 1. Flip the document state. The revision guard ensures the entries
	// are never committed without their owning document's state change.
	docQuery := `
		UPDATE documents
		SET state = $2, revision = $3, fields = $4, last_updated_at = $5, last_updated_by = $6
		WHERE document_id = $1 AND revision = $3 - 1;
	`
	tag, err := tx.Exec(ctx, docQuery,
		m.DocumentID, m.State, m.Revision, m.Fields, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return persistenceError("failed to update document "+m.DocumentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	// 2. Lock the affected accounts.
	accountIDs := make([]string, 0, len(balanceChanges))
	for accountID := range balanceChanges {
		accountIDs = append(accountIDs, accountID)
	}
	if _, err := r.accountRepo.FindAccountsByIDsForUpdate(ctx, tx, accountIDs); err != nil {
		return err
	}

	// 3. Insert the immutable entries.
	entryQuery := `
		INSERT INTO ledger_entries (entry_id, document_id, account_id, amount, direction, reversal_of, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	batch := &pgx.Batch{}
	for _, entry := range entries {
		em := mapping.ToModelLedgerEntry(entry)
		batch.Queue(entryQuery,
			em.EntryID, em.DocumentID, em.AccountID, em.Amount, em.Direction, em.ReversalOf,
			em.CreatedAt, em.CreatedBy, em.LastUpdatedAt, em.LastUpdatedBy,
		)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return persistenceError("failed to insert ledger entries for document "+m.DocumentID, err)
	}

	// 4. Apply the balance changes under the locks taken above.
	if err := r.accountRepo.UpdateAccountBalancesInTx(ctx, tx, balanceChanges, doc.LastUpdatedBy, doc.LastUpdatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}
