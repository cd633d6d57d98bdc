package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/auth"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/coupon"
	"github.com/noah-isme/toko-cart/internal/db"
	"github.com/noah-isme/toko-cart/internal/obs"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
	hashPassword := flag.String("hash-password", "", "print an argon2id hash for ADMIN_PASSWORD_HASH and exit")
	skipMigrate := flag.Bool("skip-migrate", false, "seed without applying migrations")
	flag.Parse()

	logger := obs.NewLogger("console", "info", "toko-cart-seeder")

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("hash password")
		}
		fmt.Println(hash)
		return
	}

	if *dsn == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if err := run(*dsn, !*skipMigrate, logger); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}
}

func run(dsn string, migrate bool, logger zerolog.Logger) error {
	if migrate {
		if err := db.Migrate(dsn); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, dsn, "toko-cart-seeder")
	if err != nil {
		return err
	}
	defer pool.Close()

	res, err := db.Seed(ctx, catalog.NewPostgresRepository(pool), coupon.NewPostgresRepository(pool))
	if err != nil {
		return err
	}
	logger.Info().Int("products", res.Products).Int("coupons", res.Coupons).Msg("seeding completed")
	return nil
}
