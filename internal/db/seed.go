package db

import (
	"context"
	"fmt"

	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/coupon"
)

// SeedResult counts the rows Seed inserted.
type SeedResult struct {
	Products int
	Coupons  int
}

// Seed loads the initial catalog and coupons into empty repositories.
// Repositories that already hold rows are left untouched.
func Seed(ctx context.Context, products catalog.Repository, coupons coupon.Repository) (SeedResult, error) {
	var res SeedResult

	existing, err := products.List(ctx)
	if err != nil {
		return res, fmt.Errorf("seed products: %w", err)
	}
	if len(existing) == 0 {
		for _, p := range catalog.InitialProducts() {
			if err := products.Insert(ctx, p); err != nil {
				return res, fmt.Errorf("seed product %s: %w", p.ID, err)
			}
			res.Products++
		}
	}

	existingCoupons, err := coupons.List(ctx)
	if err != nil {
		return res, fmt.Errorf("seed coupons: %w", err)
	}
	if len(existingCoupons) == 0 {
		for _, c := range coupon.InitialCoupons() {
			if err := coupons.Insert(ctx, c); err != nil {
				return res, fmt.Errorf("seed coupon %s: %w", c.Code, err)
			}
			res.Coupons++
		}
	}
	return res, nil
}
