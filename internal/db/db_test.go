package db

import (
	"context"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/coupon"
)

func TestMigrationURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/toko?sslmode=disable": "pgx5://u:p@localhost:5432/toko?sslmode=disable",
		"postgresql://localhost/toko":                        "pgx5://localhost/toko",
		"pgx5://localhost/toko":                              "pgx5://localhost/toko",
	}
	for in, want := range cases {
		require.Equal(t, want, MigrationURL(in), in)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	src, err := iofs.New(migrations, "migrations")
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	count := 1
	for {
		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
		count++
	}
	require.Equal(t, 3, count)

	ups, err := fs.Glob(migrations, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrations, "migrations/*.down.sql")
	require.NoError(t, err)
	require.Len(t, downs, len(ups))
}

func TestSeedFillsEmptyRepositories(t *testing.T) {
	ctx := context.Background()
	products := catalog.NewMemoryRepository()
	coupons := coupon.NewMemoryRepository()

	res, err := Seed(ctx, products, coupons)
	require.NoError(t, err)
	require.Equal(t, len(catalog.InitialProducts()), res.Products)
	require.Equal(t, len(coupon.InitialCoupons()), res.Coupons)

	p1, err := products.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(10000), p1.Price)

	res, err = Seed(ctx, products, coupons)
	require.NoError(t, err)
	require.Zero(t, res.Products)
	require.Zero(t, res.Coupons)
}

func TestSeedSkipsPopulatedCatalog(t *testing.T) {
	ctx := context.Background()
	products := catalog.NewMemoryRepository(catalog.Product{ID: "custom", Name: "x", Price: 1, Stock: 1})
	res, err := Seed(ctx, products, coupon.NewMemoryRepository())
	require.NoError(t, err)
	require.Zero(t, res.Products)
	require.NotZero(t, res.Coupons)

	all, err := products.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
