package pgsql

import (
	"context"
	"fmt"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/docuflow/docuflow/internal/core/domain"
	portsrepo "github.com/docuflow/docuflow/internal/core/ports/repositories"
	"github.com/docuflow/docuflow/internal/models"
	"github.com/docuflow/docuflow/internal/utils/mapping"
	"github.com/docuflow/docuflow/internal/utils/pagination"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `entry_id, document_id, account_id, amount, direction, reversal_of, created_at, created_by, last_updated_at, last_updated_by`

// PgxLedgerRepository reads committed ledger entries. Entries are written
// only inside the document transition transaction, so there is no write path
// here.
type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerEntryReader {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerEntryReader = (*PgxLedgerRepository)(nil)

func scanLedgerEntry(row rowScanner) (models.LedgerEntry, error) {
	var m models.LedgerEntry
	err := row.Scan(
		&m.EntryID, &m.DocumentID, &m.AccountID, &m.Amount, &m.Direction, &m.ReversalOf,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

// FindEntriesByDocumentID retrieves all entries posted by one document in
// creation order, reversals included.
func (r *PgxLedgerRepository) FindEntriesByDocumentID(ctx context.Context, documentID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE document_id = $1 ORDER BY created_at, entry_id;`
	rows, err := r.Pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, persistenceError("failed to find entries for document "+documentID, err)
	}
	defer rows.Close()

	var ms []models.LedgerEntry
	for rows.Next() {
		m, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, persistenceError("failed to scan ledger entry row", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("failed to read ledger entry rows", err)
	}
	return mapping.ToDomainLedgerEntrySlice(ms), nil
}

// ListEntriesByAccountID retrieves a keyset-paginated page of entries against
// one account.
func (r *PgxLedgerRepository) ListEntriesByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE account_id = $1`
	args := []any{accountID}
	if nextToken != nil {
		afterTime, afterID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid pagination token", err)
		}
		query += ` AND (created_at, entry_id) > ($2, $3)`
		args = append(args, afterTime, afterID)
	}
	query += fmt.Sprintf(` ORDER BY created_at, entry_id LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, persistenceError("failed to list entries for account "+accountID, err)
	}
	defer rows.Close()

	ms := make([]models.LedgerEntry, 0, limit)
	hasMore := false
	for rows.Next() {
		m, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, nil, persistenceError("failed to scan ledger entry row", err)
		}
		if len(ms) == limit {
			hasMore = true
			break
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, persistenceError("failed to read ledger entry rows", err)
	}
	entries := mapping.ToDomainLedgerEntrySlice(ms)
	if hasMore {
		last := entries[len(entries)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
		return entries, &token, nil
	}
	return entries, nil, nil
}
