package domain_test

import (
	"testing"

	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.DocState
		to   domain.DocState
		want bool
	}{
		{"draft to saved", domain.Draft, domain.Saved, true},
		{"draft to submitted skips save", domain.Draft, domain.Submitted, false},
		{"draft to cancelled", domain.Draft, domain.Cancelled, false},
		{"saved to saved is legal for re-save", domain.Saved, domain.Saved, true},
		{"saved to submitted", domain.Saved, domain.Submitted, true},
		{"saved back to draft", domain.Saved, domain.Draft, false},
		{"submitted to cancelled", domain.Submitted, domain.Cancelled, true},
		{"submitted to saved", domain.Submitted, domain.Saved, false},
		{"submitted to submitted", domain.Submitted, domain.Submitted, false},
		{"cancelled is terminal", domain.Cancelled, domain.Saved, false},
		{"cancelled to cancelled", domain.Cancelled, domain.Cancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsMutable(t *testing.T) {
	assert.True(t, (&domain.Document{State: domain.Draft}).IsMutable())
	assert.True(t, (&domain.Document{State: domain.Saved}).IsMutable())
	assert.False(t, (&domain.Document{State: domain.Submitted}).IsMutable())
	assert.False(t, (&domain.Document{State: domain.Cancelled}).IsMutable())
}

func TestFieldsEqual(t *testing.T) {
	doc := &domain.Document{
		Fields: map[string]domain.FieldValue{
			"customer": domain.TextValue("ACME"),
			"total":    domain.CurrencyValue(decimal.RequireFromString("100.00")),
		},
	}

	t.Run("identical values", func(t *testing.T) {
		assert.True(t, doc.FieldsEqual(map[string]domain.FieldValue{
			"customer": domain.TextValue("ACME"),
			"total":    domain.CurrencyValue(decimal.RequireFromString("100.00")),
		}))
	})

	t.Run("numerically equal with different scale", func(t *testing.T) {
		assert.True(t, doc.FieldsEqual(map[string]domain.FieldValue{
			"customer": domain.TextValue("ACME"),
			"total":    domain.CurrencyValue(decimal.RequireFromString("100.0")),
		}))
	})

	t.Run("changed value", func(t *testing.T) {
		assert.False(t, doc.FieldsEqual(map[string]domain.FieldValue{
			"customer": domain.TextValue("ACME"),
			"total":    domain.CurrencyValue(decimal.RequireFromString("100.01")),
		}))
	})

	t.Run("extra field", func(t *testing.T) {
		assert.False(t, doc.FieldsEqual(map[string]domain.FieldValue{
			"customer": domain.TextValue("ACME"),
			"total":    domain.CurrencyValue(decimal.RequireFromString("100.00")),
			"memo":     domain.TextValue("x"),
		}))
	})
}

func TestCloneFieldsIsDetached(t *testing.T) {
	doc := &domain.Document{
		Fields: map[string]domain.FieldValue{"a": domain.TextValue("original")},
	}
	clone := doc.CloneFields()
	clone["a"] = domain.TextValue("changed")
	clone["b"] = domain.TextValue("new")

	assert.Equal(t, "original", doc.Fields["a"].Text)
	assert.Len(t, doc.Fields, 1)
}
