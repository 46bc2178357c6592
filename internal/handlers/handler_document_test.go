package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/docuflow/docuflow/internal/core/domain"
	portssvc "github.com/docuflow/docuflow/internal/core/ports/services"
	"github.com/docuflow/docuflow/internal/dto"
	"github.com/docuflow/docuflow/internal/handlers"
	"github.com/docuflow/docuflow/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock DocumentService ---
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) CreateDocument(ctx context.Context, req dto.CreateDocumentRequest, creatorUserID string) (*domain.Document, error) {
	args := m.Called(ctx, req, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) UpdateDocument(ctx context.Context, documentID string, req dto.UpdateDocumentRequest, userID string) (*domain.Document, error) {
	args := m.Called(ctx, documentID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) SaveDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error) {
	args := m.Called(ctx, documentID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) SubmitDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error) {
	args := m.Called(ctx, documentID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) CancelDocument(ctx context.Context, documentID string, userID string) (*domain.Document, error) {
	args := m.Called(ctx, documentID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) GetDocumentByID(ctx context.Context, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) ListDocuments(ctx context.Context, schemaName string, params dto.ListDocumentsParams) (*dto.ListDocumentsResponse, error) {
	args := m.Called(ctx, schemaName, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListDocumentsResponse), args.Error(1)
}

var _ portssvc.DocumentSvcFacade = (*MockDocumentService)(nil)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetEntriesByDocument(ctx context.Context, documentID string) (*dto.ListEntriesResponse, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListEntriesResponse), args.Error(1)
}

func (m *MockLedgerService) ListEntriesByAccount(ctx context.Context, accountID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	args := m.Called(ctx, accountID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListEntriesResponse), args.Error(1)
}

func (m *MockLedgerService) GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	args := m.Called(ctx, req, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) DeactivateAccount(ctx context.Context, accountID string, userID string) error {
	args := m.Called(ctx, accountID, userID)
	return args.Error(0)
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Test Suite ---

type DocumentHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockDocSvc  *MockDocumentService
	mockAccSvc  *MockAccountService
	mockLedgSvc *MockLedgerService
}

func (suite *DocumentHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.mockDocSvc = new(MockDocumentService)
	suite.mockAccSvc = new(MockAccountService)
	suite.mockLedgSvc = new(MockLedgerService)

	suite.router = gin.New()
	handlers.RegisterRoutes(suite.router, &config.Config{}, &portssvc.ServiceContainer{
		Document: suite.mockDocSvc,
		Account:  suite.mockAccSvc,
		Ledger:   suite.mockLedgSvc,
	})
}

func (suite *DocumentHandlerTestSuite) performRequest(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "tester")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func sampleDocument(state domain.DocState, revision int64) *domain.Document {
	return &domain.Document{
		DocumentID: "doc-1",
		SchemaName: "Invoice",
		State:      state,
		Revision:   revision,
		Fields: map[string]domain.FieldValue{
			"total": domain.CurrencyValue(decimal.RequireFromString("99.90")),
		},
	}
}

func (suite *DocumentHandlerTestSuite) TestCreateDocument() {
	suite.mockDocSvc.On("CreateDocument", mock.Anything, mock.MatchedBy(func(req dto.CreateDocumentRequest) bool {
		return req.SchemaName == "Invoice"
	}), "tester").Return(sampleDocument(domain.Draft, 1), nil).Once()

	w := suite.performRequest(http.MethodPost, "/api/v1/documents", gin.H{
		"schemaName": "Invoice",
		"fields":     gin.H{"total": "99.90"},
	})

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.DocumentResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("doc-1", resp.DocumentID)
	suite.Equal("DRAFT", resp.State)
	suite.Equal("99.90", resp.Fields["total"])
	suite.mockDocSvc.AssertExpectations(suite.T())
}

func (suite *DocumentHandlerTestSuite) TestCreateDocumentMissingBody() {
	w := suite.performRequest(http.MethodPost, "/api/v1/documents", gin.H{"fields": gin.H{}})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockDocSvc.AssertNotCalled(suite.T(), "CreateDocument", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *DocumentHandlerTestSuite) TestGetDocumentNotFound() {
	suite.mockDocSvc.On("GetDocumentByID", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)

	w := suite.performRequest(http.MethodGet, "/api/v1/documents/ghost", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *DocumentHandlerTestSuite) TestSubmitDocument() {
	suite.mockDocSvc.On("SubmitDocument", mock.Anything, "doc-1", "tester").
		Return(sampleDocument(domain.Submitted, 3), nil).Once()

	w := suite.performRequest(http.MethodPost, "/api/v1/documents/doc-1/submit", nil)
	suite.Equal(http.StatusOK, w.Code)

	var resp dto.DocumentResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("SUBMITTED", resp.State)
	suite.EqualValues(3, resp.Revision)
}

func (suite *DocumentHandlerTestSuite) TestSubmitDocumentConflict() {
	suite.mockDocSvc.On("SubmitDocument", mock.Anything, "doc-1", "tester").
		Return(nil, apperrors.ErrConflict).Once()

	w := suite.performRequest(http.MethodPost, "/api/v1/documents/doc-1/submit", nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *DocumentHandlerTestSuite) TestSubmitDocumentValidationFailure() {
	suite.mockDocSvc.On("SubmitDocument", mock.Anything, "doc-1", "tester").
		Return(nil, apperrors.ErrValidation).Once()

	w := suite.performRequest(http.MethodPost, "/api/v1/documents/doc-1/submit", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *DocumentHandlerTestSuite) TestCancelDocument() {
	suite.mockDocSvc.On("CancelDocument", mock.Anything, "doc-1", "tester").
		Return(sampleDocument(domain.Cancelled, 4), nil).Once()

	w := suite.performRequest(http.MethodPost, "/api/v1/documents/doc-1/cancel", nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *DocumentHandlerTestSuite) TestListDocuments() {
	suite.mockDocSvc.On("ListDocuments", mock.Anything, "Invoice", mock.Anything).
		Return(&dto.ListDocumentsResponse{
			Documents: []dto.DocumentResponse{},
		}, nil).Once()

	w := suite.performRequest(http.MethodGet, "/api/v1/schemas/Invoice/documents?limit=10", nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *DocumentHandlerTestSuite) TestHealthCheck() {
	w := suite.performRequest(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("OK", w.Body.String())
}

func TestDocumentHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(DocumentHandlerTestSuite))
}
