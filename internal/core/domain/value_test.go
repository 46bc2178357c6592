package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/docuflow/docuflow/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValueEqual(t *testing.T) {
	t.Run("numeric equality ignores scale", func(t *testing.T) {
		a := domain.NumericValue(decimal.RequireFromString("100.0"))
		b := domain.NumericValue(decimal.RequireFromString("100.00"))
		assert.True(t, a.Equal(b))
	})

	t.Run("different types never equal", func(t *testing.T) {
		n := domain.NumericValue(decimal.NewFromInt(1))
		c := domain.CurrencyValue(decimal.NewFromInt(1))
		assert.False(t, n.Equal(c))
	})

	t.Run("dates compare by instant", func(t *testing.T) {
		utc := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		offset := utc.In(time.FixedZone("IST", 5*3600+1800))
		assert.True(t, domain.DateValue(utc).Equal(domain.DateValue(offset)))
	})

	t.Run("links compare by ID", func(t *testing.T) {
		assert.True(t, domain.LinkValue("doc-1").Equal(domain.LinkValue("doc-1")))
		assert.False(t, domain.LinkValue("doc-1").Equal(domain.LinkValue("doc-2")))
	})
}

func TestFieldValueDecimal(t *testing.T) {
	v := domain.CurrencyValue(decimal.RequireFromString("19.99"))
	d, err := v.Decimal()
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("19.99")))

	_, err = domain.TextValue("not a number").Decimal()
	assert.Error(t, err)
}

func TestFieldValueJSONNumericsTravelAsStrings(t *testing.T) {
	v := domain.CurrencyValue(decimal.RequireFromString("0.1"))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":"0.1"`)

	var back domain.FieldValue
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, v.Equal(back))
}

func TestFieldValueJSONRoundtrip(t *testing.T) {
	values := []domain.FieldValue{
		domain.TextValue("hello"),
		domain.NumericValue(decimal.RequireFromString("-42.5")),
		domain.DateValue(time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)),
		domain.BoolValue(true),
		domain.BoolValue(false),
		domain.LinkValue("doc-abc"),
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		var back domain.FieldValue
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, v.Equal(back), "roundtrip changed %v", v)
	}
}

func TestFieldValueJSONRejectsUnknownType(t *testing.T) {
	var v domain.FieldValue
	err := json.Unmarshal([]byte(`{"type":"BLOB","value":"x"}`), &v)
	assert.Error(t, err)

	_, err = json.Marshal(domain.FieldValue{Type: "BLOB"})
	assert.Error(t, err)
}

func TestFieldValueJSONRejectsBadNumeric(t *testing.T) {
	var v domain.FieldValue
	err := json.Unmarshal([]byte(`{"type":"NUMERIC","value":"1,23"}`), &v)
	assert.Error(t, err)
}
