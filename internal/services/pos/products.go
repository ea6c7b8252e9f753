package pos

import (
	"context"
	"fmt"

	"nusapos/internal/database/models"
	"nusapos/internal/store"
)

// Cart-building lookups. Master-data management lives elsewhere; the register
// only ever reads.

func (s *Service) SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error) {
	return s.repo.SearchProducts(ctx, query, limit)
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode required", store.ErrInvalidInput)
	}
	return s.repo.GetProductByBarcode(ctx, barcode)
}

func (s *Service) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	if sku == "" {
		return nil, fmt.Errorf("%w: sku required", store.ErrInvalidInput)
	}
	return s.repo.GetProductBySKU(ctx, sku)
}
