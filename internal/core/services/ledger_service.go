package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	portsrepo "github.com/docuflow/docuflow/internal/core/ports/repositories"
	portssvc "github.com/docuflow/docuflow/internal/core/ports/services"
	"github.com/docuflow/docuflow/internal/dto"
)

// ledgerService is the read-only reporting boundary over committed entries
// and account balances.
type ledgerService struct {
	ledgerRepo  portsrepo.LedgerEntryReader
	accountRepo portsrepo.AccountReader
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo portsrepo.LedgerEntryReader, accountRepo portsrepo.AccountReader) portssvc.LedgerSvcFacade {
	return &ledgerService{ledgerRepo: ledgerRepo, accountRepo: accountRepo}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// GetEntriesByDocument retrieves every entry posted by one document,
// reversals included.
func (s *ledgerService) GetEntriesByDocument(ctx context.Context, documentID string) (*dto.ListEntriesResponse, error) {
	entries, err := s.ledgerRepo.FindEntriesByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve entries for document %s: %w", documentID, err)
	}
	return &dto.ListEntriesResponse{Entries: dto.ToLedgerEntryResponses(entries)}, nil
}

// ListEntriesByAccount retrieves a paginated list of entries against one account.
func (s *ledgerService) ListEntriesByAccount(ctx context.Context, accountID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	entries, nextToken, err := s.ledgerRepo.ListEntriesByAccountID(ctx, accountID, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve entries for account %s: %w", accountID, err)
	}
	return &dto.ListEntriesResponse{
		Entries:   dto.ToLedgerEntryResponses(entries),
		NextToken: nextToken,
	}, nil
}

// GetAccountBalance returns the incrementally maintained balance of an account.
func (s *ledgerService) GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}
