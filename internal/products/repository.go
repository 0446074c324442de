package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartzfindery/storefront-backend/pkg/db/models"
)

// Sort options accepted by the browse endpoint.
const (
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
	SortNewest    = "newest"
)

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	Search   string
	Category string
	Sort     string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// PriceRange is the min/max unit price across the catalog.
type PriceRange struct {
	MinPrice decimal.Decimal `json:"minPrice"`
	MaxPrice decimal.Decimal `json:"maxPrice"`
}

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List applies search, category, price-range and sort filters.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]models.Product, error) {
	tx := r.db.WithContext(ctx).Model(&models.Product{})

	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		tx = tx.Where(
			"LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ? OR LOWER(category) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	tx = applyCategoryFilter(tx, filters.Category)

	if filters.MinPrice != nil {
		tx = tx.Where("price >= ?", filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		tx = tx.Where("price <= ?", filters.MaxPrice)
	}

	tx = tx.Order(orderClause(filters.Sort))

	var rows []models.Product
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// The "other" bucket and "all-" prefixes mirror how the storefront groups
// its category navigation.
func applyCategoryFilter(tx *gorm.DB, category string) *gorm.DB {
	category = strings.TrimSpace(category)
	switch {
	case category == "" || category == "all":
		return tx
	case category == "other":
		return tx.Where("category IN ?", []string{"electronics", "beauty", "toy"})
	case strings.HasPrefix(category, "all-"):
		group := strings.TrimPrefix(category, "all-")
		return tx.Where("LOWER(category) LIKE ?", strings.ToLower(group)+"%")
	default:
		return tx.Where("category = ?", category)
	}
}

func orderClause(sort string) string {
	switch sort {
	case SortPriceLow:
		return "price ASC"
	case SortPriceHigh:
		return "price DESC"
	case SortNameAsc:
		return "name ASC"
	case SortNameDesc:
		return "name DESC"
	case SortNewest:
		return "created_at DESC"
	default:
		return "created_at DESC"
	}
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update saves an existing product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product by ID and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Categories returns the distinct category names in the catalog.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).
		Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// GetPriceRange returns catalog-wide min/max prices. An empty catalog
// reports the 0..10000 default the storefront slider expects.
func (r *Repository) GetPriceRange(ctx context.Context) (*PriceRange, error) {
	var row struct {
		MinPrice *decimal.Decimal
		MaxPrice *decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("MIN(price) AS min_price, MAX(price) AS max_price").
		Scan(&row).
		Error
	if err != nil {
		return nil, err
	}
	if row.MinPrice == nil || row.MaxPrice == nil {
		return &PriceRange{MinPrice: decimal.Zero, MaxPrice: decimal.NewFromInt(10000)}, nil
	}
	return &PriceRange{MinPrice: *row.MinPrice, MaxPrice: *row.MaxPrice}, nil
}

// Count reports the catalog size.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CreateBatch inserts several products at once (seeding).
func (r *Repository) CreateBatch(ctx context.Context, products []models.Product) ([]models.Product, error) {
	if len(products) == 0 {
		return products, nil
	}
	if err := r.db.WithContext(ctx).Create(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
