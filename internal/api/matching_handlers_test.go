package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lending-core/internal/common/config"
	"lending-core/internal/common/logger"
	"lending-core/internal/matching"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatchingStack(t *testing.T, products matching.ProductRepository, apps matching.ApplicationRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := matching.NewService(matching.ServiceConfig{
		MinScore:     0.3,
		Limit:        50,
		CacheTTL:     5 * time.Minute,
		CacheEnabled: false,
	}, products, apps, nil, logger.NewNoOpLogger())

	handler := NewMatchingHandler(svc, logger.NewNoOpLogger())
	return NewRouter(config.AppConfig{Name: "lending-core", Environment: "test"}, logger.NewNoOpLogger(), nil, handler)
}

const findBody = `{
	"application": {
		"requestedAmount": 75000,
		"purpose": "Equipment purchase",
		"country": "Canada",
		"creditScore": 720
	},
	"candidates": [
		{
			"id": "prod-001",
			"name": "Business Growth Loan",
			"minimumLendingAmount": 10000,
			"maximumLendingAmount": 100000,
			"countryOffered": "Canada",
			"minimumCreditScore": 650,
			"productCategory": "business_loan"
		},
		{
			"id": "prod-002",
			"name": "French Mortgage",
			"minimumLendingAmount": 200000,
			"maximumLendingAmount": 900000,
			"countryOffered": "France",
			"productCategory": "mortgage"
		}
	]
}`

func TestMatchingAPI_FindMatches(t *testing.T) {
	engine := testMatchingStack(t, nil, nil)

	w := postJSON(t, engine, "/api/matching/find", findBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Matches []matching.MatchResult `json:"matches"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "prod-001", resp.Matches[0].ProductID)
	assert.Equal(t, 1.0, resp.Matches[0].Score)
	assert.Contains(t, resp.Matches[0].MatchingKeywords, "equipment")
}

func TestMatchingAPI_FindMatchesValidation(t *testing.T) {
	engine := testMatchingStack(t, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "negative requested amount",
			body: `{"application": {"requestedAmount": -5, "country": "Canada"}}`,
		},
		{
			name: "credit score outside the valid band",
			body: `{"application": {"requestedAmount": 1000, "country": "Canada", "creditScore": 900}}`,
		},
		{
			name: "neither application nor applicationId",
			body: `{"minScore": 0.3}`,
		},
		{
			name: "not JSON at all",
			body: `amount=1000`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, engine, "/api/matching/find", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestMatchingAPI_FindMatchesByApplicationID(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectQuery(`SELECT id, requested_amount`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_amount", "purpose", "country", "credit_score"}).
			AddRow("app-001", 75000.0, "Equipment purchase", "Canada", 720))

	dbMock.ExpectQuery(`SELECT id, name, minimum_lending_amount`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "minimum_lending_amount", "maximum_lending_amount",
			"country_offered", "minimum_credit_score", "product_category",
		}).AddRow("prod-001", "Business Growth Loan", 10000.0, 100000.0, "Canada", 650, "business_loan"))

	engine := testMatchingStack(t,
		matching.NewPostgresProductRepository(db),
		matching.NewPostgresApplicationRepository(db))

	w := postJSON(t, engine, "/api/matching/find", `{"applicationId": "app-001"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "prod-001")

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestMatchingAPI_FindMatchesUnknownApplication(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectQuery(`SELECT id, requested_amount`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_amount", "purpose", "country", "credit_score"}))

	engine := testMatchingStack(t, nil, matching.NewPostgresApplicationRepository(db))

	w := postJSON(t, engine, "/api/matching/find", `{"applicationId": "missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "APPLICATION_NOT_FOUND")
}

func TestMatchingAPI_NoCatalogConfigured(t *testing.T) {
	engine := testMatchingStack(t, nil, nil)

	// No repository wired: the handlers answer with a structured error
	// body instead of a recovered panic.
	req := httptest.NewRequest(http.MethodGet, "/api/matching/products", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "PRODUCT_QUERY_FAILED")
	assert.Contains(t, w.Body.String(), `"category":"MATCHING"`)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	w = postJSON(t, engine, "/api/matching/find", `{"application": {"requestedAmount": 1000, "country": "Canada"}}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "PRODUCT_QUERY_FAILED")
}

func TestMatchingAPI_ListProducts(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectQuery(`SELECT id, name, minimum_lending_amount`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "minimum_lending_amount", "maximum_lending_amount",
			"country_offered", "minimum_credit_score", "product_category",
		}).
			AddRow("prod-001", "Business Growth Loan", 10000.0, 100000.0, "Canada", 650, "business_loan").
			AddRow("prod-002", "Global Working Capital", 50000.0, 200000.0, "Global", nil, "business_loan"))

	engine := testMatchingStack(t, matching.NewPostgresProductRepository(db), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/matching/products", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Products []matching.LenderProduct `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 2)
}
