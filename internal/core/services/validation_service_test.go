package services_test

import (
	"context"
	"testing"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/docuflow/docuflow/internal/core/domain"
	portssvc "github.com/docuflow/docuflow/internal/core/ports/services"
	"github.com/docuflow/docuflow/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ValidationServiceTestSuite struct {
	suite.Suite
	registry    *services.SchemaRegistry
	mockDocRepo *MockDocumentRepository
	validator   portssvc.ValidationSvcFacade
}

func (suite *ValidationServiceTestSuite) SetupTest() {
	registry, err := services.NewSchemaRegistry()
	suite.Require().NoError(err)
	suite.registry = registry

	suite.Require().NoError(registry.Register(domain.Schema{
		Name:        "Invoice",
		Submittable: true,
		Fields: []domain.Field{
			{Name: "customer", Type: domain.TypeText, Required: true},
			{Name: "quantity", Type: domain.TypeNumeric, Required: true, Constraint: "value > 0.0"},
			{Name: "unit_price", Type: domain.TypeCurrency, Required: true},
			{Name: "discount", Type: domain.TypeNumeric, Default: fieldValuePtr(domain.NumericValue(decimal.Zero))},
			{Name: "subtotal", Type: domain.TypeCurrency, Formula: "quantity * unit_price"},
			{Name: "total", Type: domain.TypeCurrency, Formula: "subtotal - discount"},
		},
	}))
	suite.Require().NoError(registry.Register(domain.Schema{
		Name: "Payment",
		Fields: []domain.Field{
			{Name: "invoice", Type: domain.TypeLink, LinkTarget: "Invoice"},
			{Name: "amount", Type: domain.TypeCurrency, Required: true},
			{Name: "outstanding", Type: domain.TypeCurrency, Formula: "invoice.total - amount"},
		},
	}))
	registry.Freeze()

	suite.mockDocRepo = new(MockDocumentRepository)
	suite.validator = services.NewValidationService(registry, suite.mockDocRepo)
}

func fieldValuePtr(v domain.FieldValue) *domain.FieldValue {
	return &v
}

func (suite *ValidationServiceTestSuite) invoiceDoc() *domain.Document {
	return &domain.Document{
		DocumentID: "inv-1",
		SchemaName: "Invoice",
		State:      domain.Draft,
		Revision:   1,
		Fields: map[string]domain.FieldValue{
			"customer":   domain.TextValue("ACME"),
			"quantity":   domain.NumericValue(decimal.NewFromInt(3)),
			"unit_price": domain.CurrencyValue(decimal.RequireFromString("19.99")),
		},
	}
}

func (suite *ValidationServiceTestSuite) TestValidateComputesFormulas() {
	doc := suite.invoiceDoc()
	suite.Require().NoError(suite.validator.Validate(context.Background(), doc))

	// Default applied.
	suite.True(doc.Fields["discount"].Numeric.IsZero())
	// Formulas evaluated in dependency order with exact arithmetic.
	suite.True(doc.Fields["subtotal"].Numeric.Equal(decimal.RequireFromString("59.97")),
		"subtotal = %s", doc.Fields["subtotal"].Numeric)
	suite.True(doc.Fields["total"].Numeric.Equal(decimal.RequireFromString("59.97")))
	suite.Equal(domain.TypeCurrency, doc.Fields["total"].Type)
}

func (suite *ValidationServiceTestSuite) TestValidateRequiredMissing() {
	doc := suite.invoiceDoc()
	delete(doc.Fields, "customer")

	err := suite.validator.Validate(context.Background(), doc)
	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrRequiredFieldMissing)
	suite.ErrorIs(err, apperrors.ErrValidation)
	// The document is untouched on failure.
	suite.NotContains(doc.Fields, "subtotal")
}

func (suite *ValidationServiceTestSuite) TestValidateTypeMismatch() {
	doc := suite.invoiceDoc()
	doc.Fields["quantity"] = domain.TextValue("three")

	err := suite.validator.Validate(context.Background(), doc)
	suite.ErrorIs(err, services.ErrFieldTypeMismatch)
}

func (suite *ValidationServiceTestSuite) TestValidateUnknownField() {
	doc := suite.invoiceDoc()
	doc.Fields["surprise"] = domain.TextValue("x")

	err := suite.validator.Validate(context.Background(), doc)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ValidationServiceTestSuite) TestValidateConstraintViolated() {
	doc := suite.invoiceDoc()
	doc.Fields["quantity"] = domain.NumericValue(decimal.NewFromInt(-1))

	err := suite.validator.Validate(context.Background(), doc)
	suite.ErrorIs(err, services.ErrFieldConstraintViolated)
}

func (suite *ValidationServiceTestSuite) TestValidateLinkDereference() {
	linked := suite.invoiceDoc()
	suite.Require().NoError(suite.validator.Validate(context.Background(), linked))
	suite.mockDocRepo.On("FindDocumentByID", mock.Anything, "inv-1").Return(linked, nil)

	doc := &domain.Document{
		DocumentID: "pay-1",
		SchemaName: "Payment",
		State:      domain.Draft,
		Revision:   1,
		Fields: map[string]domain.FieldValue{
			"invoice": domain.LinkValue("inv-1"),
			"amount":  domain.CurrencyValue(decimal.RequireFromString("20.00")),
		},
	}
	suite.Require().NoError(suite.validator.Validate(context.Background(), doc))
	suite.True(doc.Fields["outstanding"].Numeric.Equal(decimal.RequireFromString("39.97")),
		"outstanding = %s", doc.Fields["outstanding"].Numeric)
}

func (suite *ValidationServiceTestSuite) TestValidateRejectsDanglingLink() {
	suite.mockDocRepo.On("FindDocumentByID", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)

	doc := &domain.Document{
		DocumentID: "pay-2",
		SchemaName: "Payment",
		Fields: map[string]domain.FieldValue{
			"invoice": domain.LinkValue("ghost"),
			"amount":  domain.CurrencyValue(decimal.NewFromInt(1)),
		},
	}
	err := suite.validator.Validate(context.Background(), doc)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ValidationServiceTestSuite) TestValidateRejectsWrongLinkTarget() {
	other := &domain.Document{DocumentID: "pay-9", SchemaName: "Payment"}
	suite.mockDocRepo.On("FindDocumentByID", mock.Anything, "pay-9").Return(other, nil)

	doc := &domain.Document{
		DocumentID: "pay-3",
		SchemaName: "Payment",
		Fields: map[string]domain.FieldValue{
			"invoice": domain.LinkValue("pay-9"), // points at a Payment, not an Invoice
			"amount":  domain.CurrencyValue(decimal.NewFromInt(1)),
		},
	}
	err := suite.validator.Validate(context.Background(), doc)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ValidationServiceTestSuite) TestCoerceFields() {
	fields, err := suite.validator.CoerceFields("Invoice", map[string]any{
		"customer":   "ACME",
		"quantity":   "3",
		"unit_price": "19.99",
	})
	suite.Require().NoError(err)
	suite.Equal(domain.TypeText, fields["customer"].Type)
	suite.True(fields["quantity"].Numeric.Equal(decimal.NewFromInt(3)))
	suite.True(fields["unit_price"].Numeric.Equal(decimal.RequireFromString("19.99")))
}

func (suite *ValidationServiceTestSuite) TestCoerceFieldsRejectsComputed() {
	_, err := suite.validator.CoerceFields("Invoice", map[string]any{
		"total": "999",
	})
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "computed")
}

func (suite *ValidationServiceTestSuite) TestCoerceFieldsRejectsUnknownField() {
	_, err := suite.validator.CoerceFields("Invoice", map[string]any{
		"surprise": "x",
	})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ValidationServiceTestSuite) TestCoerceFieldsRejectsBadDecimal() {
	_, err := suite.validator.CoerceFields("Invoice", map[string]any{
		"quantity": "three",
	})
	suite.ErrorIs(err, services.ErrFieldTypeMismatch)
}

func TestValidationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ValidationServiceTestSuite))
}

func TestCoerceFieldsAcceptsJSONNumbers(t *testing.T) {
	registry, err := services.NewSchemaRegistry()
	require.NoError(t, err)
	require.NoError(t, registry.Register(domain.Schema{
		Name:   "Simple",
		Fields: []domain.Field{{Name: "n", Type: domain.TypeNumeric}},
	}))
	registry.Freeze()

	validator := services.NewValidationService(registry, new(MockDocumentRepository))
	fields, err := validator.CoerceFields("Simple", map[string]any{"n": 2.5})
	require.NoError(t, err)
	assert.True(t, fields["n"].Numeric.Equal(decimal.RequireFromString("2.5")))
}
