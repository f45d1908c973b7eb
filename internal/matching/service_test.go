package matching

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"lending-core/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		MinScore:     0.3,
		Limit:        50,
		CacheTTL:     5 * time.Minute,
		CacheEnabled: true,
	}
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "minimum_lending_amount", "maximum_lending_amount",
		"country_offered", "minimum_credit_score", "product_category",
	}).
		AddRow("prod-001", "Business Growth Loan", 10000.0, 100000.0, "Canada", 650, "business_loan").
		AddRow("prod-002", "Global Working Capital", 50000.0, 200000.0, "Global", nil, "business_loan")
}

func TestService_FindMatches_CacheMiss(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectQuery(`SELECT id, name, minimum_lending_amount`).
		WillReturnRows(productRows())

	rdb, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet(productCacheKey).RedisNil()
	redisMock.Regexp().ExpectSet(productCacheKey, `.+`, 5*time.Minute).SetVal("OK")

	svc := NewService(testServiceConfig(), NewPostgresProductRepository(db), nil, rdb, logger.NewNoOpLogger())

	results, err := svc.FindMatches(context.Background(), testApplication(), nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "prod-001", results[0].ProductID)

	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestService_FindMatches_CacheHit(t *testing.T) {
	cached := []LenderProduct{*testProduct()}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	rdb, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet(productCacheKey).SetVal(string(data))

	// No repository wired: a cache hit must not touch Postgres.
	svc := NewService(testServiceConfig(), nil, nil, rdb, logger.NewNoOpLogger())

	results, err := svc.FindMatches(context.Background(), testApplication(), nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "prod-001", results[0].ProductID)

	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestService_FindMatches_ExplicitCandidatesSkipCatalog(t *testing.T) {
	svc := NewService(testServiceConfig(), nil, nil, nil, logger.NewNoOpLogger())

	candidates := []LenderProduct{*testProduct()}
	results, err := svc.FindMatches(context.Background(), testApplication(), candidates, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestService_FindMatchesForApplication(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectQuery(`SELECT id, requested_amount, purpose, country, credit_score`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_amount", "purpose", "country", "credit_score"}).
			AddRow("app-001", 75000.0, "Equipment purchase", "Canada", 720))

	dbMock.ExpectQuery(`SELECT id, name, minimum_lending_amount`).
		WillReturnRows(productRows())

	cfg := testServiceConfig()
	cfg.CacheEnabled = false
	svc := NewService(cfg,
		NewPostgresProductRepository(db),
		NewPostgresApplicationRepository(db),
		nil, logger.NewNoOpLogger())

	results, err := svc.FindMatchesForApplication(context.Background(), "app-001", 0, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestService_NoCatalogConfigured(t *testing.T) {
	cfg := testServiceConfig()
	cfg.CacheEnabled = false
	svc := NewService(cfg, nil, nil, nil, logger.NewNoOpLogger())

	t.Run("catalog listing returns a structured error", func(t *testing.T) {
		_, err := svc.ListProducts(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PRODUCT_QUERY_FAILED")
	})

	t.Run("matching without candidates returns a structured error", func(t *testing.T) {
		_, err := svc.FindMatches(context.Background(), testApplication(), nil, 0, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PRODUCT_QUERY_FAILED")
	})

	t.Run("application lookup returns a structured error", func(t *testing.T) {
		_, err := svc.FindMatchesForApplication(context.Background(), "app-001", 0, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PRODUCT_QUERY_FAILED")
	})
}

func TestService_FindMatchesForApplication_NotFound(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectQuery(`SELECT id, requested_amount`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_amount", "purpose", "country", "credit_score"}))

	cfg := testServiceConfig()
	cfg.CacheEnabled = false
	svc := NewService(cfg, nil, NewPostgresApplicationRepository(db), nil, logger.NewNoOpLogger())

	_, err = svc.FindMatchesForApplication(context.Background(), "missing", 0, 0)
	assert.Error(t, err)
}
