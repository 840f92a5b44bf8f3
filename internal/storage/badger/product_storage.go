package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// productStorage implements interfaces.ProductStorage backed by Badger
type productStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewProductStorage creates a new product storage service
func NewProductStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ProductStorage {
	return &productStorage{
		db:     db,
		logger: logger,
	}
}

// SaveProduct stores or updates a product record keyed by code
func (s *productStorage) SaveProduct(ctx context.Context, product *models.ProductRecord) error {
	if product == nil {
		return fmt.Errorf("product cannot be nil")
	}
	if product.Code == "" {
		return fmt.Errorf("product code cannot be empty")
	}

	if err := s.db.Store().Upsert(product.Code, product); err != nil {
		return fmt.Errorf("failed to save product %s: %w", product.Code, err)
	}
	return nil
}

// GetProduct retrieves a product by code
func (s *productStorage) GetProduct(ctx context.Context, code string) (*models.ProductRecord, error) {
	var product models.ProductRecord
	if err := s.db.Store().Get(code, &product); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("product not found: %s", code)
		}
		return nil, fmt.Errorf("failed to get product %s: %w", code, err)
	}
	return &product, nil
}

// ListProductCodes returns all product codes in lexical order
func (s *productStorage) ListProductCodes(ctx context.Context) ([]string, error) {
	var products []*models.ProductRecord
	if err := s.db.Store().Find(&products, nil); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	codes := make([]string, 0, len(products))
	for _, product := range products {
		codes = append(codes, product.Code)
	}
	sort.Strings(codes)
	return codes, nil
}

// CountProducts returns the number of stored products
func (s *productStorage) CountProducts(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ProductRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return int(count), nil
}
