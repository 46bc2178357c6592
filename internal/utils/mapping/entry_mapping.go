package mapping

import (
	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/docuflow/docuflow/internal/models"
)

// ToModelLedgerEntry converts a domain LedgerEntry to a model LedgerEntry
func ToModelLedgerEntry(d domain.LedgerEntry) models.LedgerEntry {
	return models.LedgerEntry{
		EntryID:     d.EntryID,
		DocumentID:  d.DocumentID,
		AccountID:   d.AccountID,
		Amount:      d.Amount,
		Direction:   models.EntryDirection(d.Direction),
		ReversalOf:  d.ReversalOf,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainLedgerEntry converts a model LedgerEntry to a domain LedgerEntry
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:     m.EntryID,
		DocumentID:  m.DocumentID,
		AccountID:   m.AccountID,
		Amount:      m.Amount,
		Direction:   domain.EntryDirection(m.Direction),
		ReversalOf:  m.ReversalOf,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainLedgerEntrySlice converts a slice of model entries to domain entries
func ToDomainLedgerEntrySlice(ms []models.LedgerEntry) []domain.LedgerEntry {
	ds := make([]domain.LedgerEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainLedgerEntry(m)
	}
	return ds
}
