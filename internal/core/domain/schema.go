package domain

// Field is a single declarative field definition within a Schema.
type Field struct {
	Name       string     `json:"name"`
	Type       FieldType  `json:"type"`
	Required   bool       `json:"required"`
	Default    *FieldValue `json:"default,omitempty"`
	// Formula makes the field computed: an exact decimal arithmetic
	// expression over sibling fields (and linked-document fields via
	// "linkField.remoteField"). Computed fields are re-evaluated on every
	// validation pass in topological dependency order.
	Formula string `json:"formula,omitempty"`
	// Constraint is a CEL boolean expression over the document's field
	// values; a false result rejects the mutation.
	Constraint string `json:"constraint,omitempty"`
	// LinkTarget names the schema a LINK field must reference.
	LinkTarget string `json:"linkTarget,omitempty"`
}

// EntryDirection indicates whether a posting rule or ledger entry is a
// debit or a credit.
type EntryDirection string

const (
	Debit  EntryDirection = "DEBIT"
	Credit EntryDirection = "CREDIT"
)

// Opposite returns the reversing direction.
func (d EntryDirection) Opposite() EntryDirection {
	if d == Debit {
		return Credit
	}
	return Debit
}

// PostingRule declaratively maps document fields to one candidate ledger
// entry. Account resolution reads AccountField from the document when set,
// otherwise the literal Account ID is used.
type PostingRule struct {
	Account      string         `json:"account,omitempty"`
	AccountField string         `json:"accountField,omitempty"`
	Direction    EntryDirection `json:"direction"`
	// AmountExpr is an exact decimal expression over document fields.
	AmountExpr string `json:"amountExpr"`
	// Condition optionally gates the rule: a CEL boolean expression over
	// the document's fields. An empty condition always applies.
	Condition string `json:"condition,omitempty"`
}

// Schema is the declarative definition of a record type: its ordered fields,
// whether instances may be submitted to the ledger, and the posting rules
// applied on submission. Schemas are immutable after registration.
type Schema struct {
	Name         string        `json:"name"`
	Submittable  bool          `json:"submittable"`
	Fields       []Field       `json:"fields"`
	PostingRules []PostingRule `json:"postingRules,omitempty"`
}

// FieldByName returns the field definition with the given name.
func (s *Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
