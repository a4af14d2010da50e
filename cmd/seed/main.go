package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dinendash-system/config"
	"dinendash-system/internal/cache"
	"dinendash-system/internal/database"
	"dinendash-system/internal/database/models"
	"dinendash-system/internal/logging"
)

const (
	sampleRestaurantID = "e740fa98-8926-4b5b-81f3-13e5090dedac"
	sampleTableID      = "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
)

type seedItem struct {
	name        string
	description string
	category    string
	price       string
}

var sampleMenu = []seedItem{
	{"Classic Burger", "Beef patty, cheddar, pickles", "Mains", "85.00"},
	{"Chicken Shawarma", "Garlic sauce, pickled turnip", "Mains", "70.00"},
	{"Margherita Pizza", "Tomato, mozzarella, basil", "Mains", "120.00"},
	{"Caesar Salad", "Romaine, parmesan, croutons", "Starters", "55.00"},
	{"French Fries", "", "Sides", "30.00"},
	{"Fresh Lemonade", "With mint", "Drinks", "25.00"},
	{"Molten Cake", "Served with vanilla ice cream", "Desserts", "60.00"},
}

// menuItemID keeps item ids stable across runs so reseeding updates rows in place.
func menuItemID(name string) string {
	return uuid.NewSHA1(uuid.MustParse(sampleRestaurantID), []byte(name)).String()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(cfg.DB.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to connect to db", zap.Error(err))
	}
	if err := database.MigrateDiningDB(db); err != nil {
		logger.Fatal("Failed to migrate dining database", zap.Error(err))
	}

	if err := seed(db); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	// the seeded tax rate replaces whatever the server cached
	ctx := context.Background()
	redisClient, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, cached tax rate left in place", zap.Error(err))
	} else {
		defer redisClient.Close()
		rates := cache.NewTaxRates(redisClient, database.NewLedger(db), decimal.NewFromFloat(cfg.Settlement.DefaultTaxRate), cfg.Settlement.TaxCacheTTL, logger)
		if err := rates.Invalidate(ctx, sampleRestaurantID); err != nil {
			logger.Warn("Failed to invalidate cached tax rate", zap.Error(err))
		}
	}

	logger.Info("Seed complete",
		zap.String("restaurant_id", sampleRestaurantID),
		zap.String("table_id", sampleTableID),
		zap.Int("menu_items", len(sampleMenu)))
}

func seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		restaurant := models.Restaurant{
			ID:          sampleRestaurantID,
			Name:        "Sample Restaurant",
			Description: "Demo restaurant for table ordering",
			ThemeColor:  "#E4572E",
			BgColor:     "#FFF8F0",
			TaxRate:     decimal.RequireFromString("0.14"),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "theme_color", "bg_color", "tax_rate", "updated_at"}),
		}).Create(&restaurant).Error; err != nil {
			return err
		}

		items := make([]models.MenuItem, 0, len(sampleMenu))
		for _, s := range sampleMenu {
			items = append(items, models.MenuItem{
				ID:           menuItemID(s.name),
				RestaurantID: sampleRestaurantID,
				Name:         s.name,
				Description:  s.description,
				Category:     s.category,
				Price:        decimal.RequireFromString(s.price),
				IsAvailable:  true,
			})
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "category", "price", "is_available", "updated_at"}),
		}).Create(&items).Error; err != nil {
			return err
		}

		table := models.Table{
			ID:           sampleTableID,
			TableNumber:  1,
			QRCode:       "/table/" + sampleTableID,
			RestaurantID: sampleRestaurantID,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"table_number", "qr_code", "updated_at"}),
		}).Create(&table).Error
	})
}
