package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/docuflow/docuflow/internal/core/domain"
	portsrepo "github.com/docuflow/docuflow/internal/core/ports/repositories"
	portssvc "github.com/docuflow/docuflow/internal/core/ports/services"
	"github.com/docuflow/docuflow/internal/utils/formula"
)

var (
	ErrRequiredFieldMissing    = fmt.Errorf("%w: required field missing", apperrors.ErrValidation)
	ErrFieldTypeMismatch       = fmt.Errorf("%w: field type mismatch", apperrors.ErrValidation)
	ErrFieldConstraintViolated = fmt.Errorf("%w: field constraint violated", apperrors.ErrValidation)
)

// validationService runs the validation and formula pipeline: defaults,
// required-presence, type checks, CEL constraints, then formula evaluation
// in the registry's precomputed topological order.
type validationService struct {
	registry *SchemaRegistry
	docRepo  portsrepo.DocumentReader
}

// NewValidationService creates a new ValidationService. The document reader
// resolves link fields when formulas dereference linked documents.
func NewValidationService(registry *SchemaRegistry, docRepo portsrepo.DocumentReader) portssvc.ValidationSvcFacade {
	return &validationService{registry: registry, docRepo: docRepo}
}

var _ portssvc.ValidationSvcFacade = (*validationService)(nil)

// Validate checks the document against its schema and evaluates computed
// fields. On success only the computed fields of the document are mutated;
// on failure the document is untouched.
func (s *validationService) Validate(ctx context.Context, doc *domain.Document) error {
	rs, err := s.registry.Get(doc.SchemaName)
	if err != nil {
		return err
	}
	schema := rs.Schema

	// Work on a scratch copy so a failing pass leaves the document as it was.
	fields := doc.CloneFields()

	// 0. Defaults for absent fields.
	for _, f := range schema.Fields {
		if _, present := fields[f.Name]; present || f.Default == nil {
			continue
		}
		fields[f.Name] = *f.Default
	}

	// 1. Required-field presence. Computed fields are exempt, they are
	// derived below.
	for _, f := range schema.Fields {
		if !f.Required || f.Formula != "" {
			continue
		}
		if _, present := fields[f.Name]; !present {
			return fmt.Errorf("%w: %s", ErrRequiredFieldMissing, f.Name)
		}
	}

	// 2. Type checks, unknown-field rejection and link target checks.
	for name, v := range fields {
		f, ok := schema.FieldByName(name)
		if !ok {
			return fmt.Errorf("%w: schema %s has no field %s", apperrors.ErrValidation, schema.Name, name)
		}
		if v.Type != f.Type {
			return fmt.Errorf("%w: field %s expects %s, got %s", ErrFieldTypeMismatch, name, f.Type, v.Type)
		}
		if f.Type == domain.TypeLink && v.Link != "" {
			if err := s.checkLinkTarget(ctx, f, v.Link); err != nil {
				return err
			}
		}
	}

	// 3. Per-field CEL constraints over the pre-formula values.
	celDoc := celInput(fields)
	for _, f := range schema.Fields {
		prg, ok := rs.Constraint(f.Name)
		if !ok {
			continue
		}
		v, present := fields[f.Name]
		if !present {
			continue
		}
		if err := evalConstraint(prg, celDoc, celValue(v)); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrFieldConstraintViolated, f.Name, err)
		}
	}

	// 4. Formula evaluation in topological order, ties already broken by
	// declaration order at registration.
	for _, name := range rs.EvalOrder {
		f, _ := schema.FieldByName(name)
		result, err := formula.Eval(f.Formula, s.resolver(ctx, fields))
		if err != nil {
			return fmt.Errorf("%w: formula for field %s: %v", apperrors.ErrValidation, name, err)
		}
		fields[name] = domain.FieldValue{Type: f.Type, Numeric: result}
	}

	doc.Fields = fields
	return nil
}

// CoerceFields converts the untyped field input of an API request into typed
// field values according to the named schema. Computed fields may not be
// supplied by callers.
func (s *validationService) CoerceFields(schemaName string, raw map[string]any) (map[string]domain.FieldValue, error) {
	rs, err := s.registry.Get(schemaName)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.FieldValue, len(raw))
	for name, rawValue := range raw {
		f, ok := rs.Schema.FieldByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: schema %s has no field %s", apperrors.ErrValidation, schemaName, name)
		}
		if f.Formula != "" {
			return nil, fmt.Errorf("%w: field %s is computed and cannot be set", apperrors.ErrValidation, name)
		}
		v, err := coerceValue(f.Type, rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrFieldTypeMismatch, name, err)
		}
		out[name] = v
	}
	return out, nil
}

func (s *validationService) checkLinkTarget(ctx context.Context, f domain.Field, linkedID string) error {
	linked, err := s.docRepo.FindDocumentByID(ctx, linkedID)
	if err != nil {
		return fmt.Errorf("%w: field %s references unknown document %s", apperrors.ErrValidation, f.Name, linkedID)
	}
	if f.LinkTarget != "" && linked.SchemaName != f.LinkTarget {
		return fmt.Errorf("%w: field %s must reference a %s document, got %s", apperrors.ErrValidation, f.Name, f.LinkTarget, linked.SchemaName)
	}
	return nil
}

// resolver supplies decimal values to formula evaluation. A dotted name
// dereferences a link field and reads the referenced document at evaluation
// time only; linked changes never retroactively re-trigger formulas.
func (s *validationService) resolver(ctx context.Context, fields map[string]domain.FieldValue) formula.Resolver {
	return func(name string) (decimal.Decimal, error) {
		local, remote, dotted := splitRef(name)
		v, present := fields[local]
		if !present {
			return decimal.Zero, fmt.Errorf("field %s is not set", local)
		}
		if !dotted {
			return v.Decimal()
		}
		if v.Type != domain.TypeLink {
			return decimal.Zero, fmt.Errorf("field %s is not a link", local)
		}
		if v.Link == "" {
			return decimal.Zero, fmt.Errorf("link field %s is empty", local)
		}
		linked, err := s.docRepo.FindDocumentByID(ctx, v.Link)
		if err != nil {
			return decimal.Zero, fmt.Errorf("linked document %s: %w", v.Link, err)
		}
		remoteVal, ok := linked.Fields[remote]
		if !ok {
			return decimal.Zero, fmt.Errorf("linked document %s has no field %s", v.Link, remote)
		}
		return remoteVal.Decimal()
	}
}

func splitRef(name string) (local, remote string, dotted bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], true
		}
	}
	return name, "", false
}

// evalConstraint runs a compiled CEL constraint. A non-true result or an
// evaluation error rejects the field.
func evalConstraint(prg cel.Program, celDoc map[string]any, value any) error {
	out, _, err := prg.Eval(map[string]any{
		"doc":   celDoc,
		"value": value,
	})
	if err != nil {
		return fmt.Errorf("constraint evaluation failed: %v", err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return fmt.Errorf("constraint did not evaluate to a boolean")
	}
	if !ok {
		return fmt.Errorf("constraint evaluated to false")
	}
	return nil
}

// celInput converts field values to the dynamic map CEL expressions see.
// Numerics are presented as floats for comparison; exact arithmetic never
// happens inside CEL.
func celInput(fields map[string]domain.FieldValue) map[string]any {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		out[name] = celValue(v)
	}
	return out
}

func celValue(v domain.FieldValue) any {
	switch v.Type {
	case domain.TypeText:
		return v.Text
	case domain.TypeNumeric, domain.TypeCurrency:
		return v.Numeric.InexactFloat64()
	case domain.TypeDate:
		return v.Date
	case domain.TypeBoolean:
		return v.Bool
	case domain.TypeLink:
		return v.Link
	}
	return nil
}

// coerceValue converts one untyped input value to the field's type. Numerics
// accept decimal strings (preferred) and JSON numbers.
func coerceValue(ft domain.FieldType, raw any) (domain.FieldValue, error) {
	switch ft {
	case domain.TypeText:
		s, ok := raw.(string)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("expected string, got %T", raw)
		}
		return domain.TextValue(s), nil
	case domain.TypeNumeric, domain.TypeCurrency:
		d, err := coerceDecimal(raw)
		if err != nil {
			return domain.FieldValue{}, err
		}
		return domain.FieldValue{Type: ft, Numeric: d}, nil
	case domain.TypeDate:
		s, ok := raw.(string)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("expected RFC3339 string, got %T", raw)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return domain.FieldValue{}, fmt.Errorf("invalid date %q: %v", s, err)
		}
		return domain.DateValue(t), nil
	case domain.TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("expected bool, got %T", raw)
		}
		return domain.BoolValue(b), nil
	case domain.TypeLink:
		s, ok := raw.(string)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("expected document ID string, got %T", raw)
		}
		return domain.LinkValue(s), nil
	}
	return domain.FieldValue{}, fmt.Errorf("unsupported field type %s", ft)
}

func coerceDecimal(raw any) (decimal.Decimal, error) {
	switch n := raw.(type) {
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal %q", n)
		}
		return d, nil
	case float64:
		// JSON numbers arrive as float64; format through strconv to get
		// the shortest exact representation before parsing as decimal.
		d, err := decimal.NewFromString(strconv.FormatFloat(n, 'f', -1, 64))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid number %v", n)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	default:
		return decimal.Zero, fmt.Errorf("expected decimal string or number, got %T", raw)
	}
}
