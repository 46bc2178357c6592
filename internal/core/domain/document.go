package domain

// DocState is the lifecycle state of a document instance.
type DocState string

const (
	Draft     DocState = "DRAFT"
	Saved     DocState = "SAVED"
	Submitted DocState = "SUBMITTED"
	Cancelled DocState = "CANCELLED"
)

// legalTransitions enumerates every permitted state change. Submit is a
// one-way trapdoor; nothing leaves Cancelled.
var legalTransitions = map[DocState][]DocState{
	Draft:     {Saved},
	Saved:     {Saved, Submitted},
	Submitted: {Cancelled},
	Cancelled: {},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to DocState) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Document is an instance of a Schema: a mapping from field name to value
// plus lifecycle metadata. Revision increments on every persisted mutation.
type Document struct {
	DocumentID string                `json:"documentID"`
	SchemaName string                `json:"schemaName"`
	State      DocState              `json:"state"`
	Revision   int64                 `json:"revision"`
	Fields     map[string]FieldValue `json:"fields"`
	AuditFields
}

// IsMutable reports whether field mutation is still permitted. Submitted and
// Cancelled documents accept no mutation besides the explicit Cancel
// transition.
func (d *Document) IsMutable() bool {
	return d.State == Draft || d.State == Saved
}

// FieldsEqual reports whether the document's field values exactly match the
// given set. Used to keep save() idempotent on unchanged documents.
func (d *Document) FieldsEqual(other map[string]FieldValue) bool {
	if len(d.Fields) != len(other) {
		return false
	}
	for name, v := range d.Fields {
		ov, ok := other[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// CloneFields returns a copy of the document's field map so validation can
// work on a scratch set without touching persisted state.
func (d *Document) CloneFields() map[string]FieldValue {
	out := make(map[string]FieldValue, len(d.Fields))
	for name, v := range d.Fields {
		out[name] = v
	}
	return out
}
