package store

import (
	"github.com/shopspring/decimal"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// SampleItems returns the records loaded at startup when seeding is enabled.
func SampleItems() []model.Item {
	return []model.Item{
		{
			Name:        "Laptop",
			Description: "High-performance laptop with 16GB RAM",
			Price:       decimal.RequireFromString("899.99"),
			Stock:       15,
			Category:    "Electronics",
		},
		{
			Name:        "Smartphone",
			Description: "Latest 5G smartphone with 128GB storage",
			Price:       decimal.RequireFromString("699.99"),
			Stock:       25,
			Category:    "Electronics",
		},
		{
			Name:        "Headphones",
			Description: "Wireless noise-cancelling headphones",
			Price:       decimal.RequireFromString("199.99"),
			Stock:       50,
			Category:    "Accessories",
		},
		{
			Name:        "Coffee Maker",
			Description: "Automatic drip coffee maker with timer",
			Price:       decimal.RequireFromString("79.99"),
			Stock:       30,
			Category:    "Home Appliances",
		},
		{
			Name:        "Running Shoes",
			Description: "Lightweight running shoes for all terrains",
			Price:       decimal.RequireFromString("89.99"),
			Stock:       40,
			Category:    "Sports",
		},
	}
}

// Seed inserts SampleItems into s and returns the stored records.
func Seed(s Store) []model.Item {
	samples := SampleItems()

	seeded := make([]model.Item, 0, len(samples))
	for _, item := range samples {
		seeded = append(seeded, s.Create(item))
	}

	return seeded
}
