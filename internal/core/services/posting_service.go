package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/docuflow/docuflow/internal/core/domain"
	portssvc "github.com/docuflow/docuflow/internal/core/ports/services"
	"github.com/docuflow/docuflow/internal/middleware"
	"github.com/docuflow/docuflow/internal/utils/formula"
)

var (
	ErrUnbalancedPosting = fmt.Errorf("%w: posting entries do not balance", apperrors.ErrValidation)
	ErrAccountNotFound   = fmt.Errorf("%w: posting rule references unknown account", apperrors.ErrValidation)
	ErrAccountInactive   = fmt.Errorf("%w: posting rule references inactive account", apperrors.ErrValidation)
)

// postingService derives balanced ledger entries from submitted documents
// by evaluating the schema's declarative posting rules.
type postingService struct {
	registry   *SchemaRegistry
	accountSvc portssvc.AccountSvcFacade
}

// NewPostingService creates a new PostingService.
func NewPostingService(registry *SchemaRegistry, accountSvc portssvc.AccountSvcFacade) portssvc.PostingSvcFacade {
	return &postingService{registry: registry, accountSvc: accountSvc}
}

var _ portssvc.PostingSvcFacade = (*postingService)(nil)

// BuildEntries evaluates every posting rule up front into a candidate batch,
// verifies the balance invariant, and only then surfaces the entries. An
// unbalanced batch is discarded whole; no partial posting exists.
func (s *postingService) BuildEntries(ctx context.Context, doc *domain.Document, userID string) ([]domain.LedgerEntry, map[string]decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	rs, err := s.registry.Get(doc.SchemaName)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	celDoc := celInput(doc.Fields)
	entries := make([]domain.LedgerEntry, 0, len(rs.Schema.PostingRules))

	for i, rule := range rs.Schema.PostingRules {
		if prg, ok := rs.Condition(i); ok {
			applies, err := evalCondition(prg, celDoc)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: posting rule %d condition: %v", apperrors.ErrValidation, i, err)
			}
			if !applies {
				continue
			}
		}

		accountID, err := s.resolveAccount(doc, rule)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: posting rule %d: %v", apperrors.ErrValidation, i, err)
		}

		amount, err := formula.Eval(rule.AmountExpr, localResolver(doc.Fields))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: posting rule %d amount: %v", apperrors.ErrValidation, i, err)
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			return nil, nil, fmt.Errorf("%w: posting rule %d produced non-positive amount %s", apperrors.ErrValidation, i, amount)
		}

		entries = append(entries, domain.LedgerEntry{
			EntryID:    uuid.NewString(),
			DocumentID: doc.DocumentID,
			AccountID:  accountID,
			Amount:     amount,
			Direction:  rule.Direction,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		})
	}

	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("%w: schema %s produced no applicable posting rules", apperrors.ErrValidation, doc.SchemaName)
	}

	debits, credits := domain.SumByDirection(entries)
	if !debits.Equal(credits) {
		logger.Warn("Discarding unbalanced posting batch",
			slog.String("document_id", doc.DocumentID),
			slog.String("debits", debits.String()),
			slog.String("credits", credits.String()),
		)
		return nil, nil, fmt.Errorf("%w: debits sum is %s and credits sum is %s",
			ErrUnbalancedPosting, debits.String(), credits.String())
	}

	balanceChanges, err := s.balanceChanges(ctx, entries)
	if err != nil {
		return nil, nil, err
	}
	return entries, balanceChanges, nil
}

// BuildReversalEntries emits one reversing entry per original entry, tagged
// with the entry it voids, and re-verifies both the balance invariant of the
// reversal batch and the zero net effect per account of the combined set.
func (s *postingService) BuildReversalEntries(ctx context.Context, doc *domain.Document, original []domain.LedgerEntry, userID string) ([]domain.LedgerEntry, map[string]decimal.Decimal, error) {
	if len(original) == 0 {
		return nil, nil, fmt.Errorf("%w: document %s has no entries to reverse", apperrors.ErrConflict, doc.DocumentID)
	}

	now := time.Now().UTC()
	reversals := make([]domain.LedgerEntry, len(original))
	for i, orig := range original {
		origID := orig.EntryID
		reversals[i] = domain.LedgerEntry{
			EntryID:    uuid.NewString(),
			DocumentID: doc.DocumentID,
			AccountID:  orig.AccountID,
			Amount:     orig.Amount,
			Direction:  orig.Direction.Opposite(),
			ReversalOf: &origID,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
	}

	debits, credits := domain.SumByDirection(reversals)
	if !debits.Equal(credits) {
		return nil, nil, fmt.Errorf("%w: reversal debits sum is %s and credits sum is %s",
			ErrUnbalancedPosting, debits.String(), credits.String())
	}

	balanceChanges, err := s.balanceChanges(ctx, reversals)
	if err != nil {
		return nil, nil, err
	}

	// The combined original and reversal set must net to exactly zero per
	// account before the batch is accepted.
	originalChanges, err := s.balanceChanges(ctx, original)
	if err != nil {
		return nil, nil, err
	}
	for accountID, change := range balanceChanges {
		if !change.Add(originalChanges[accountID]).IsZero() {
			return nil, nil, fmt.Errorf("%w: reversal leaves account %s with non-zero net effect",
				ErrUnbalancedPosting, accountID)
		}
	}

	return reversals, balanceChanges, nil
}

// resolveAccount reads the target account from the rule's document field or
// literal account ID.
func (s *postingService) resolveAccount(doc *domain.Document, rule domain.PostingRule) (string, error) {
	if rule.AccountField == "" {
		return rule.Account, nil
	}
	v, ok := doc.Fields[rule.AccountField]
	if !ok {
		return "", fmt.Errorf("account field %s is not set", rule.AccountField)
	}
	if v.Type != domain.TypeText {
		return "", fmt.Errorf("account field %s must be a text field, got %s", rule.AccountField, v.Type)
	}
	if v.Text == "" {
		return "", fmt.Errorf("account field %s is empty", rule.AccountField)
	}
	return v.Text, nil
}

// balanceChanges aggregates the signed net effect of a batch per account,
// applying each account's debit/credit nature. Unknown or inactive accounts
// reject the whole batch.
func (s *postingService) balanceChanges(ctx context.Context, entries []domain.LedgerEntry) (map[string]decimal.Decimal, error) {
	accountIDs := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.AccountID]; ok {
			continue
		}
		seen[e.AccountID] = struct{}{}
		accountIDs = append(accountIDs, e.AccountID)
	}

	accounts, err := s.accountSvc.GetAccountByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts for posting: %w", err)
	}

	changes := make(map[string]decimal.Decimal, len(accountIDs))
	for _, e := range entries {
		acc, ok := accounts[e.AccountID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, e.AccountID)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrAccountInactive, e.AccountID)
		}
		signed, err := e.SignedAmount(acc.AccountType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
		}
		changes[e.AccountID] = changes[e.AccountID].Add(signed)
	}
	return changes, nil
}

// localResolver resolves formula references against the document's own
// fields. Computed fields are already materialized by validation, so posting
// expressions never reach into linked documents.
func localResolver(fields map[string]domain.FieldValue) formula.Resolver {
	return func(name string) (decimal.Decimal, error) {
		local, _, dotted := splitRef(name)
		if dotted {
			return decimal.Zero, fmt.Errorf("posting expressions cannot dereference links (%s)", name)
		}
		v, ok := fields[local]
		if !ok {
			return decimal.Zero, fmt.Errorf("field %s is not set", local)
		}
		return v.Decimal()
	}
}

func evalCondition(prg cel.Program, celDoc map[string]any) (bool, error) {
	out, _, err := prg.Eval(map[string]any{"doc": celDoc})
	if err != nil {
		return false, err
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("condition did not evaluate to a boolean")
	}
	return ok, nil
}
