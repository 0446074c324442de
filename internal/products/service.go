package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartzfindery/storefront-backend/pkg/db/models"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
)

// Service exposes catalog operations for the storefront and its admin.
type Service interface {
	ListProducts(ctx context.Context, filters ListFilters) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]string, error)
	GetPriceRange(ctx context.Context) (*PriceRange, error)
	SeedCatalog(ctx context.Context) (int, error)
}

type catalogRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filters ListFilters) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Categories(ctx context.Context) ([]string, error)
	GetPriceRange(ctx context.Context) (*PriceRange, error)
	CreateBatch(ctx context.Context, products []models.Product) ([]models.Product, error)
	Count(ctx context.Context) (int64, error)
}

type service struct {
	repo catalogRepo
}

// NewService builds the catalog service with the required dependencies.
func NewService(repo catalogRepo) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, filters ListFilters) ([]models.Product, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return rows, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching product")
	}
	return row, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	row := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		Image:       strings.TrimSpace(input.Image),
		Category:    strings.TrimSpace(input.Category),
		HasVAT:      input.HasVAT,
		Description: input.Description,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return created, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	row, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		row.Name = name
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
		}
		row.Price = *input.Price
	}
	if input.Image != nil {
		row.Image = strings.TrimSpace(*input.Image)
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product category cannot be empty")
		}
		row.Category = category
	}
	if input.HasVAT != nil {
		row.HasVAT = *input.HasVAT
	}
	if input.Description != nil {
		row.Description = input.Description
	}

	updated, err := s.repo.Update(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return updated, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}
	return categories, nil
}

func (s *service) GetPriceRange(ctx context.Context) (*PriceRange, error) {
	priceRange, err := s.repo.GetPriceRange(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching price range")
	}
	return priceRange, nil
}

// SeedCatalog inserts the bundled sample products and returns how many
// rows were written. Seeding only fills an empty catalog.
func (s *service) SeedCatalog(ctx context.Context) (int, error) {
	existing, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting products")
	}
	if existing > 0 {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "catalog already has products")
	}

	samples := sampleProducts()
	if _, err := s.repo.CreateBatch(ctx, samples); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seeding catalog")
	}
	return len(samples), nil
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Price       decimal.Decimal
	Image       string
	Category    string
	HasVAT      bool
	Description *string
}

func (in CreateProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if in.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}
	if strings.TrimSpace(in.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product category is required")
	}
	return nil
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Price       *decimal.Decimal
	Image       *string
	Category    *string
	HasVAT      *bool
	Description *string
}
