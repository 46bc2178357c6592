package models

// DocState is the persisted lifecycle state of a document.
type DocState string

const (
	Draft     DocState = "DRAFT"
	Saved     DocState = "SAVED"
	Submitted DocState = "SUBMITTED"
	Cancelled DocState = "CANCELLED"
)

// Document is the storage representation of a document instance. Field
// values are stored as a JSONB blob of tagged unions.
type Document struct {
	DocumentID string   `json:"documentID"`
	SchemaName string   `json:"schemaName"`
	State      DocState `json:"state"`
	Revision   int64    `json:"revision"`
	Fields     []byte   `json:"fields"` // JSONB
	AuditFields
}
