// pkg/catalog/catalog.go
package catalog

import (
	"context"
	"encoding/json"
	"os"

	"lending-core/internal/matching"
)

// File is the on-disk lender product catalog. It backs deployments that
// run without Postgres and seeds local development.
type File struct {
	Version     string                   `json:"version"`
	LastUpdated string                   `json:"lastUpdated"`
	Products    []matching.LenderProduct `json:"products"`
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	err = json.Unmarshal(data, &f)
	return &f, err
}

// Repository serves a loaded catalog file as a product repository.
type Repository struct {
	products []matching.LenderProduct
}

func NewRepository(f *File) *Repository {
	products := make([]matching.LenderProduct, len(f.Products))
	copy(products, f.Products)
	return &Repository{products: products}
}

func (r *Repository) ListProducts(_ context.Context) ([]matching.LenderProduct, error) {
	out := make([]matching.LenderProduct, len(r.products))
	copy(out, r.products)
	return out, nil
}
