package dto

import (
	"encoding/json"
	"testing"

	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFileToDomain(t *testing.T) {
	raw := `{
		"name": "Invoice",
		"submittable": true,
		"fields": [
			{"name": "quantity", "type": "NUMERIC", "required": true},
			{"name": "discount", "type": "NUMERIC", "default": "0"},
			{"name": "total", "type": "CURRENCY", "formula": "quantity - discount"},
			{"name": "parent", "type": "LINK", "linkTarget": "Order"}
		],
		"postingRules": [
			{"account": "cash", "direction": "DEBIT", "amountExpr": "total"},
			{"account": "revenue", "direction": "CREDIT", "amountExpr": "total", "condition": "doc.total > 0.0"}
		]
	}`

	var sf SchemaFile
	require.NoError(t, json.Unmarshal([]byte(raw), &sf))

	schema, err := sf.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, "Invoice", schema.Name)
	assert.True(t, schema.Submittable)
	require.Len(t, schema.Fields, 4)

	discount, ok := schema.FieldByName("discount")
	require.True(t, ok)
	require.NotNil(t, discount.Default)
	assert.True(t, discount.Default.Numeric.IsZero())

	parent, ok := schema.FieldByName("parent")
	require.True(t, ok)
	assert.Equal(t, domain.TypeLink, parent.Type)
	assert.Equal(t, "Order", parent.LinkTarget)

	require.Len(t, schema.PostingRules, 2)
	assert.Equal(t, domain.Debit, schema.PostingRules[0].Direction)
	assert.Equal(t, "doc.total > 0.0", schema.PostingRules[1].Condition)
}

func TestSchemaFileToDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		sf   SchemaFile
	}{
		{"missing name", SchemaFile{}},
		{"unknown field type", SchemaFile{Name: "S", Fields: []SchemaFileField{{Name: "a", Type: "BLOB"}}}},
		{"numeric default not a string", SchemaFile{Name: "S", Fields: []SchemaFileField{{Name: "a", Type: "NUMERIC", Default: 5.0}}}},
		{"link with default", SchemaFile{Name: "S", Fields: []SchemaFileField{{Name: "a", Type: "LINK", Default: "doc-1"}}}},
		{"bad rule direction", SchemaFile{Name: "S", PostingRules: []SchemaFileRule{{Account: "cash", Direction: "SIDEWAYS", AmountExpr: "1"}}}},
		{"rule without account", SchemaFile{Name: "S", PostingRules: []SchemaFileRule{{Direction: "DEBIT", AmountExpr: "1"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sf.ToDomain()
			assert.Error(t, err)
		})
	}
}
