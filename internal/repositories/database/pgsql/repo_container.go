package pgsql

import (
	portsrepo "github.com/docuflow/docuflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	documentRepo := newPgxDocumentRepository(dbPool, accountRepo)
	ledgerRepo := newPgxLedgerRepository(dbPool)

	return portsrepo.RepositoryProvider{
		DocumentRepo: documentRepo,
		AccountRepo:  accountRepo,
		LedgerRepo:   ledgerRepo,
	}
}
