package dto

import (
	"fmt"
	"time"

	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SchemaFile is the on-disk form of a schema definition, as produced by the
// external schema loader. It is converted to the domain form before being
// handed to the registry.
type SchemaFile struct {
	Name         string            `json:"name"`
	Submittable  bool              `json:"submittable"`
	Fields       []SchemaFileField `json:"fields"`
	PostingRules []SchemaFileRule  `json:"postingRules,omitempty"`
}

// SchemaFileField is one declarative field definition.
type SchemaFileField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Required   bool   `json:"required"`
	Default    any    `json:"default,omitempty"`
	Formula    string `json:"formula,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	LinkTarget string `json:"linkTarget,omitempty"`
}

// SchemaFileRule is one declarative posting rule.
type SchemaFileRule struct {
	Account      string `json:"account,omitempty"`
	AccountField string `json:"accountField,omitempty"`
	Direction    string `json:"direction"`
	AmountExpr   string `json:"amountExpr"`
	Condition    string `json:"condition,omitempty"`
}

var fieldTypes = map[string]domain.FieldType{
	"TEXT":     domain.TypeText,
	"NUMERIC":  domain.TypeNumeric,
	"DATE":     domain.TypeDate,
	"BOOLEAN":  domain.TypeBoolean,
	"LINK":     domain.TypeLink,
	"CURRENCY": domain.TypeCurrency,
}

// ToDomain converts the file form into a domain schema, rejecting unknown
// type tags and malformed defaults.
func (sf SchemaFile) ToDomain() (domain.Schema, error) {
	if sf.Name == "" {
		return domain.Schema{}, fmt.Errorf("schema file is missing a name")
	}
	fields := make([]domain.Field, 0, len(sf.Fields))
	for _, ff := range sf.Fields {
		ft, ok := fieldTypes[ff.Type]
		if !ok {
			return domain.Schema{}, fmt.Errorf("schema %s field %s: unknown type %q", sf.Name, ff.Name, ff.Type)
		}
		field := domain.Field{
			Name:       ff.Name,
			Type:       ft,
			Required:   ff.Required,
			Formula:    ff.Formula,
			Constraint: ff.Constraint,
			LinkTarget: ff.LinkTarget,
		}
		if ff.Default != nil {
			def, err := defaultValue(ft, ff.Default)
			if err != nil {
				return domain.Schema{}, fmt.Errorf("schema %s field %s: %w", sf.Name, ff.Name, err)
			}
			field.Default = &def
		}
		fields = append(fields, field)
	}
	rules := make([]domain.PostingRule, 0, len(sf.PostingRules))
	for i, fr := range sf.PostingRules {
		dir := domain.EntryDirection(fr.Direction)
		if dir != domain.Debit && dir != domain.Credit {
			return domain.Schema{}, fmt.Errorf("schema %s posting rule %d: unknown direction %q", sf.Name, i, fr.Direction)
		}
		if fr.Account == "" && fr.AccountField == "" {
			return domain.Schema{}, fmt.Errorf("schema %s posting rule %d: needs an account or accountField", sf.Name, i)
		}
		rules = append(rules, domain.PostingRule{
			Account:      fr.Account,
			AccountField: fr.AccountField,
			Direction:    dir,
			AmountExpr:   fr.AmountExpr,
			Condition:    fr.Condition,
		})
	}
	return domain.Schema{
		Name:         sf.Name,
		Submittable:  sf.Submittable,
		Fields:       fields,
		PostingRules: rules,
	}, nil
}

func defaultValue(ft domain.FieldType, raw any) (domain.FieldValue, error) {
	switch ft {
	case domain.TypeText:
		s, ok := raw.(string)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("default for text field must be a string")
		}
		return domain.TextValue(s), nil
	case domain.TypeNumeric, domain.TypeCurrency:
		s, ok := raw.(string)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("default for numeric field must be a decimal string")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return domain.FieldValue{}, fmt.Errorf("invalid decimal default %q: %w", s, err)
		}
		return domain.FieldValue{Type: ft, Numeric: d}, nil
	case domain.TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("default for boolean field must be a bool")
		}
		return domain.BoolValue(b), nil
	case domain.TypeDate:
		s, ok := raw.(string)
		if !ok {
			return domain.FieldValue{}, fmt.Errorf("default for date field must be an RFC3339 string")
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return domain.FieldValue{}, fmt.Errorf("invalid date default %q: %w", s, err)
		}
		return domain.DateValue(t), nil
	case domain.TypeLink:
		return domain.FieldValue{}, fmt.Errorf("link fields cannot carry defaults")
	}
	return domain.FieldValue{}, fmt.Errorf("unsupported default for type %s", ft)
}
