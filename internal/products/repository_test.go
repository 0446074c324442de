package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartzfindery/storefront-backend/pkg/db/models"
)

func TestRepositoryCatalogFlow(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Product{
		Name:     "Repo Shirt",
		Price:    decimal.NewFromInt(1200),
		Category: "men-shirt",
		HasVAT:   true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected product id to be generated")
	}

	fetched, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	if fetched.Name != "Repo Shirt" {
		t.Fatalf("unexpected name %q", fetched.Name)
	}

	fetched.Price = decimal.NewFromInt(999)
	if _, err := repo.Update(ctx, fetched); err != nil {
		t.Fatalf("update product: %v", err)
	}

	rows, err := repo.List(ctx, ListFilters{Category: "men-shirt", Sort: SortPriceLow})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	found := false
	for _, row := range rows {
		if row.ID == created.ID {
			found = true
			if !row.Price.Equal(decimal.NewFromInt(999)) {
				t.Fatalf("expected updated price, got %s", row.Price)
			}
		}
	}
	if !found {
		t.Fatal("expected created product in category listing")
	}

	categories, err := repo.Categories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) == 0 {
		t.Fatal("expected at least one category")
	}

	priceRange, err := repo.GetPriceRange(ctx)
	if err != nil {
		t.Fatalf("price range: %v", err)
	}
	if priceRange.MaxPrice.LessThan(priceRange.MinPrice) {
		t.Fatalf("invalid price range %s..%s", priceRange.MinPrice, priceRange.MaxPrice)
	}

	deleted, err := repo.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to affect a row")
	}

	deleted, err = repo.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("expected second delete to be a no-op")
	}
}

func TestRepositorySearchFilter(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	if _, err := repo.CreateBatch(ctx, sampleProducts()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := repo.List(ctx, ListFilters{Search: "henley"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("expected search to match the henley shirt")
	}

	min := decimal.NewFromInt(4000)
	rows, err = repo.List(ctx, ListFilters{MinPrice: &min})
	if err != nil {
		t.Fatalf("price filter: %v", err)
	}
	for _, row := range rows {
		if row.Price.LessThan(min) {
			t.Fatalf("price filter leaked %s", row.Price)
		}
	}
}
