package dto

import (
	"time"

	"github.com/docuflow/docuflow/internal/core/domain"
)

// CreateDocumentRequest creates a new Draft document of the named schema.
// Field values arrive untyped and are coerced against the schema; numeric and
// currency values should be sent as strings to preserve exactness.
type CreateDocumentRequest struct {
	SchemaName string         `json:"schemaName" binding:"required"`
	Fields     map[string]any `json:"fields" binding:"required"`
}

// UpdateDocumentRequest replaces field values on a Draft or Saved document.
type UpdateDocumentRequest struct {
	Fields map[string]any `json:"fields" binding:"required"`
}

// DocumentResponse is the API representation of a document.
type DocumentResponse struct {
	DocumentID string         `json:"documentID"`
	SchemaName string         `json:"schemaName"`
	State      string         `json:"state"`
	Revision   int64          `json:"revision"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// ListDocumentsParams holds parameters for listing documents of a schema.
type ListDocumentsParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// ListDocumentsResponse is a page of documents plus the token for the next page.
type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
	NextToken *string            `json:"nextToken,omitempty"`
}

// ToDocumentResponse converts a domain document to its API representation.
func ToDocumentResponse(doc *domain.Document) DocumentResponse {
	fields := make(map[string]any, len(doc.Fields))
	for name, v := range doc.Fields {
		fields[name] = fieldValueToAny(v)
	}
	return DocumentResponse{
		DocumentID: doc.DocumentID,
		SchemaName: doc.SchemaName,
		State:      string(doc.State),
		Revision:   doc.Revision,
		Fields:     fields,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.LastUpdatedAt,
	}
}

// ToDocumentResponses converts a slice of domain documents.
func ToDocumentResponses(docs []domain.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = ToDocumentResponse(&docs[i])
	}
	return out
}

// fieldValueToAny renders a field value for JSON output. Numerics become
// strings so clients never see binary floating point.
func fieldValueToAny(v domain.FieldValue) any {
	switch v.Type {
	case domain.TypeText:
		return v.Text
	case domain.TypeNumeric, domain.TypeCurrency:
		return v.Numeric.String()
	case domain.TypeDate:
		return v.Date.Format(time.RFC3339)
	case domain.TypeBoolean:
		return v.Bool
	case domain.TypeLink:
		return v.Link
	}
	return nil
}
