package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/docuflow/docuflow/internal/models"
)

// ToModelDocument converts a domain Document to a model Document, encoding
// the field values as the JSONB tagged-union blob.
func ToModelDocument(d domain.Document) (models.Document, error) {
	fields, err := json.Marshal(d.Fields)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to encode document fields: %w", err)
	}
	return models.Document{
		DocumentID:  d.DocumentID,
		SchemaName:  d.SchemaName,
		State:       models.DocState(d.State),
		Revision:    d.Revision,
		Fields:      fields,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}, nil
}

// ToDomainDocument converts a model Document to a domain Document.
func ToDomainDocument(m models.Document) (domain.Document, error) {
	var fields map[string]domain.FieldValue
	if len(m.Fields) > 0 {
		if err := json.Unmarshal(m.Fields, &fields); err != nil {
			return domain.Document{}, fmt.Errorf("failed to decode document fields: %w", err)
		}
	}
	if fields == nil {
		fields = make(map[string]domain.FieldValue)
	}
	return domain.Document{
		DocumentID:  m.DocumentID,
		SchemaName:  m.SchemaName,
		State:       domain.DocState(m.State),
		Revision:    m.Revision,
		Fields:      fields,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}, nil
}
