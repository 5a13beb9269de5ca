package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"brontie-core/internal/config"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/repository"
	pg "brontie-core/internal/infra/db/postgres"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	merchantRepo := pg.NewMerchantRepo(pool)
	giftItemRepo := pg.NewGiftItemRepo(pool)

	// If merchants already exist, do nothing
	merchants, err := merchantRepo.ListAll(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list merchants: %v", err)
	}
	if len(merchants) > 0 {
		fmt.Printf("%d merchants already present. No changes.\n", len(merchants))
		for _, m := range merchants {
			fmt.Printf("  - %s (id=%s, commission_active=%v)\n", m.Name, m.ID, m.FeeSettings.IsActive)
		}
		return
	}

	seed := []struct {
		Name    string
		Active  bool
		AgeDays int
		Items   []struct {
			Name  string
			SKU   string
			Price string
		}
	}{
		{
			Name: "Café Fleur", Active: true, AgeDays: 180,
			Items: []struct{ Name, SKU, Price string }{
				{"Flat White", "CF-FW", "4.20"},
				{"Carrot Cake", "CF-CC", "5.50"},
			},
		},
		{
			Name: "Espresso Lab", Active: false, AgeDays: 30,
			Items: []struct{ Name, SKU, Price string }{
				{"Double Espresso", "EL-DE", "3.10"},
				{"Croissant", "", "2.80"},
			},
		},
	}

	for _, s := range seed {
		m, err := model.NewMerchant(uuid.NewString(), s.Name, "")
		if err != nil {
			log.Fatalf("new merchant %q: %v", s.Name, err)
		}
		m.CreatedAt = time.Now().AddDate(0, 0, -s.AgeDays)
		m.FeeSettings.IsActive = s.Active
		if err := merchantRepo.Save(ctx, repository.NoTX, m); err != nil {
			log.Fatalf("save merchant %q: %v", s.Name, err)
		}
		fmt.Printf("seeded merchant: %s (id=%s)\n", m.Name, m.ID)

		for _, it := range s.Items {
			price, err := decimal.NewFromString(it.Price)
			if err != nil {
				log.Fatalf("price %q: %v", it.Price, err)
			}
			gi, err := model.NewGiftItem(uuid.NewString(), m.ID, it.Name, it.SKU, price, "EUR")
			if err != nil {
				log.Fatalf("new gift item %q: %v", it.Name, err)
			}
			if err := giftItemRepo.Save(ctx, repository.NoTX, gi); err != nil {
				log.Fatalf("save gift item %q: %v", it.Name, err)
			}
			fmt.Printf("  seeded item: %s (%s) %s EUR\n", gi.Name, gi.ProductKey(), gi.Price.StringFixed(2))
		}
	}

	fmt.Println("✅ Seeding complete.")
}
