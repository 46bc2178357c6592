package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FieldType tags the kind of value a schema field holds.
type FieldType string

const (
	TypeText     FieldType = "TEXT"
	TypeNumeric  FieldType = "NUMERIC"
	TypeDate     FieldType = "DATE"
	TypeBoolean  FieldType = "BOOLEAN"
	TypeLink     FieldType = "LINK"
	TypeCurrency FieldType = "CURRENCY"
)

const dateFormat = time.RFC3339

// FieldValue is a tagged union over the schema field types. Numeric and
// currency values are backed by decimal.Decimal; native floats never enter
// the arithmetic path.
type FieldValue struct {
	Type    FieldType       `json:"type"`
	Text    string          `json:"text,omitempty"`
	Numeric decimal.Decimal `json:"numeric,omitempty"`
	Date    time.Time       `json:"date,omitempty"`
	Bool    bool            `json:"bool,omitempty"`
	Link    string          `json:"link,omitempty"`
}

// TextValue creates a TEXT field value.
func TextValue(s string) FieldValue {
	return FieldValue{Type: TypeText, Text: s}
}

// NumericValue creates a NUMERIC field value.
func NumericValue(d decimal.Decimal) FieldValue {
	return FieldValue{Type: TypeNumeric, Numeric: d}
}

// CurrencyValue creates a CURRENCY field value.
func CurrencyValue(d decimal.Decimal) FieldValue {
	return FieldValue{Type: TypeCurrency, Numeric: d}
}

// DateValue creates a DATE field value.
func DateValue(t time.Time) FieldValue {
	return FieldValue{Type: TypeDate, Date: t}
}

// BoolValue creates a BOOLEAN field value.
func BoolValue(b bool) FieldValue {
	return FieldValue{Type: TypeBoolean, Bool: b}
}

// LinkValue creates a LINK field value holding the referenced document ID.
// Links are non-owning relations resolved by lookup, never embedded copies.
func LinkValue(documentID string) FieldValue {
	return FieldValue{Type: TypeLink, Link: documentID}
}

// IsNumeric reports whether the value carries decimal arithmetic content.
func (v FieldValue) IsNumeric() bool {
	return v.Type == TypeNumeric || v.Type == TypeCurrency
}

// Decimal returns the decimal content of a numeric or currency value.
func (v FieldValue) Decimal() (decimal.Decimal, error) {
	if !v.IsNumeric() {
		return decimal.Zero, fmt.Errorf("field value of type %s has no numeric content", v.Type)
	}
	return v.Numeric, nil
}

// Equal reports exact value equality. Numeric comparison uses decimal
// equality, so 100.0 and 100.00 compare equal.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeText:
		return v.Text == other.Text
	case TypeNumeric, TypeCurrency:
		return v.Numeric.Equal(other.Numeric)
	case TypeDate:
		return v.Date.Equal(other.Date)
	case TypeBoolean:
		return v.Bool == other.Bool
	case TypeLink:
		return v.Link == other.Link
	}
	return false
}

// fieldValueJSON is the wire form of a FieldValue: a type tag plus a single
// value slot. Numerics travel as strings to preserve exactness.
type fieldValueJSON struct {
	Type  FieldType `json:"type"`
	Value string    `json:"value"`
	Bool  *bool     `json:"bool,omitempty"`
}

// MarshalJSON encodes the tagged union for storage.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	out := fieldValueJSON{Type: v.Type}
	switch v.Type {
	case TypeText:
		out.Value = v.Text
	case TypeNumeric, TypeCurrency:
		out.Value = v.Numeric.String()
	case TypeDate:
		out.Value = v.Date.Format(dateFormat)
	case TypeBoolean:
		b := v.Bool
		out.Bool = &b
	case TypeLink:
		out.Value = v.Link
	default:
		return nil, fmt.Errorf("cannot marshal field value of unknown type %q", v.Type)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged union from storage.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var in fieldValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Type {
	case TypeText:
		*v = TextValue(in.Value)
	case TypeNumeric, TypeCurrency:
		d, err := decimal.NewFromString(in.Value)
		if err != nil {
			return fmt.Errorf("invalid numeric field value %q: %w", in.Value, err)
		}
		*v = FieldValue{Type: in.Type, Numeric: d}
	case TypeDate:
		t, err := time.Parse(dateFormat, in.Value)
		if err != nil {
			return fmt.Errorf("invalid date field value %q: %w", in.Value, err)
		}
		*v = DateValue(t)
	case TypeBoolean:
		b := false
		if in.Bool != nil {
			b = *in.Bool
		}
		*v = BoolValue(b)
	case TypeLink:
		*v = LinkValue(in.Value)
	default:
		return fmt.Errorf("cannot unmarshal field value of unknown type %q", in.Type)
	}
	return nil
}
