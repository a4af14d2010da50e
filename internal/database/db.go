package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dinendash-system/internal/database/models"
)

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

// openSessionIndex allows at most one active, unpaid session per table.
const openSessionIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_table_sessions_open
	ON table_sessions (table_id) WHERE is_active AND NOT is_paid`

func MigrateDiningDB(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.Table{},
		&models.MenuItem{},
		&models.Cart{},
		&models.CartItem{},
		&models.TableSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		return fmt.Errorf("failed to migrate dining schema: %w", err)
	}

	if err := db.Exec(openSessionIndex).Error; err != nil {
		return fmt.Errorf("failed to create open session index: %w", err)
	}
	return nil
}
