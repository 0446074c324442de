package product

import (
	"github.com/shopspring/decimal"

	"github.com/smartzfindery/storefront-backend/pkg/db/models"
)

func strPtr(s string) *string { return &s }

// sampleProducts is the starter catalog inserted by the seed endpoint.
func sampleProducts() []models.Product {
	return []models.Product{
		{
			Name:        "Henley Shirt",
			Price:       decimal.NewFromInt(1200),
			Image:       "https://5.imimg.com/data5/SELLER/Default/2021/3/YI/QC/TM/126748308/mens-henley-t-shirt-500x500.jpg",
			Category:    "men-henley",
			HasVAT:      true,
			Description: strPtr("Comfortable henley shirt"),
		},
		{
			Name:        "Formal Shirt",
			Price:       decimal.NewFromInt(2500),
			Image:       "https://5.imimg.com/data5/SELLER/Default/2023/11/359533772/VR/MK/CS/7756942/mens-formal-shirt-500x500.jpg",
			Category:    "men-shirt",
			HasVAT:      true,
			Description: strPtr("Professional formal shirt"),
		},
		{
			Name:        "Women Chain Watch",
			Price:       decimal.NewFromInt(4200),
			Image:       "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcQbPgNCps0U59-9ul7cbFVypicnMFOFVhJHGA&s",
			Category:    "women-watch",
			HasVAT:      true,
			Description: strPtr("Stylish chain watch for women"),
		},
	}
}
