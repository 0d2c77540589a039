// Command seed-db loads the demo catalog, discounts, and API keys into
// PostgreSQL. It is idempotent: re-running it upserts the same rows.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/aurelia-shop/pricing-engine/internal/domain/auth"
	"github.com/aurelia-shop/pricing-engine/internal/domain/catalog"
	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
	"github.com/aurelia-shop/pricing-engine/internal/repository"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or AURELIA_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or AURELIA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("AURELIA_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or AURELIA_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("AURELIA_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedDiscounts(ctx, repository.NewDiscountRepository(pool)); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []catalog.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedDiscounts(ctx context.Context, repo *repository.DiscountRepository) error {
	slog.Info("seeding demo discounts")

	now := time.Now().UTC()
	discounts := []pricing.Discount{
		{
			ID:        "spring15",
			Type:      pricing.DiscountPercentage,
			Value:     decimal.NewFromInt(15),
			StartDate: now,
			EndDate:   ptr(now.AddDate(0, 3, 0)),
			Active:    true,
		},
		{
			ID:          "meridian50",
			Type:        pricing.DiscountFixed,
			Value:       decimal.NewFromInt(50),
			StartDate:   now,
			Active:      true,
			MinQuantity: 1,
			Items:       []string{"pendant-opal-01", "bracelet-link-01"},
		},
		{
			ID:          "studs-3for2",
			Type:        pricing.DiscountBuyXGetY,
			StartDate:   now,
			Active:      true,
			MinQuantity: 2,
			MaxQuantity: 3,
			Items:       []string{"studs-pearl-01"},
		},
	}

	for _, d := range discounts {
		if err := repo.Upsert(ctx, d); err != nil {
			return errors.Wrapf(err, "upsert discount %s", d.ID)
		}
		slog.Info("upserted discount", slog.String("id", d.ID), slog.String("type", string(d.Type)))
	}

	// Demo entitlement: the vip-demo user sees the user-scoped pool.
	if err := repo.GrantEntitlement(ctx, "vip-demo", "spring15"); err != nil {
		return errors.Wrap(err, "grant demo entitlement")
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	key := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: keyHash,
		Name:    "Default test key",
		Scopes:  []string{auth.ScopePlaceOrder, auth.ScopeManageCatalog},
	}
	if err := repo.Upsert(ctx, key, true); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", key.ID), slog.String("name", key.Name))

	return nil
}

func ptr[T any](v T) *T { return &v }
