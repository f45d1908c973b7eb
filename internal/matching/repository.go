package matching

import (
	"context"
	"database/sql"
	stderrors "errors"

	"lending-core/internal/common/errors"
)

// ProductRepository provides read access to the lender product catalog.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]LenderProduct, error)
}

// ApplicationRepository provides read access to loan application snapshots.
type ApplicationRepository interface {
	GetApplication(ctx context.Context, id string) (*LoanApplication, error)
}

// PostgresProductRepository reads the catalog from Postgres.
type PostgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func (r *PostgresProductRepository) ListProducts(ctx context.Context) ([]LenderProduct, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, minimum_lending_amount, maximum_lending_amount,
		       country_offered, minimum_credit_score, product_category
		FROM lender_products
		ORDER BY id`)
	if err != nil {
		return nil, errors.NewProductQueryFailedError(err)
	}
	defer rows.Close()

	var products []LenderProduct
	for rows.Next() {
		var p LenderProduct
		var minCredit sql.NullInt64
		var category string
		if err := rows.Scan(
			&p.ID, &p.Name, &p.MinimumLendingAmount, &p.MaximumLendingAmount,
			&p.CountryOffered, &minCredit, &category,
		); err != nil {
			return nil, errors.NewProductQueryFailedError(err)
		}
		if minCredit.Valid {
			v := int(minCredit.Int64)
			p.MinimumCreditScore = &v
		}
		p.Category = ProductCategory(category)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewProductQueryFailedError(err)
	}
	return products, nil
}

// PostgresApplicationRepository reads application snapshots from Postgres.
type PostgresApplicationRepository struct {
	db *sql.DB
}

func NewPostgresApplicationRepository(db *sql.DB) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

func (r *PostgresApplicationRepository) GetApplication(ctx context.Context, id string) (*LoanApplication, error) {
	var app LoanApplication
	var creditScore sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, requested_amount, purpose, country, credit_score
		FROM loan_applications
		WHERE id = $1`, id).Scan(
		&app.ID, &app.RequestedAmount, &app.Purpose, &app.Country, &creditScore,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewApplicationNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewProductQueryFailedError(err)
	}
	if creditScore.Valid {
		v := int(creditScore.Int64)
		app.CreditScore = &v
	}
	return &app, nil
}
