package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(128);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Logo        *string         `gorm:"type:varchar(256)" json:"logo,omitempty"`
	ThemeColor  string          `gorm:"type:varchar(16)" json:"themeColor"`
	BgColor     string          `gorm:"type:varchar(16)" json:"bgColor"`
	TaxRate     decimal.Decimal `gorm:"type:numeric(5,4);not null;default:0.14" json:"taxRate"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	MenuItems []MenuItem `gorm:"foreignKey:RestaurantID" json:"menuItems,omitempty"`
}

type Table struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	TableNumber  int32     `gorm:"not null" json:"tableNumber"`
	QRCode       string    `gorm:"type:varchar(256)" json:"qrCode"`
	RestaurantID string    `gorm:"type:uuid;not null;index" json:"restaurantId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Restaurant *Restaurant `gorm:"foreignKey:RestaurantID" json:"restaurant,omitempty"`
}

type MenuItem struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID string          `gorm:"type:uuid;not null;index" json:"restaurantId"`
	Name         string          `gorm:"type:varchar(128);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Category     string          `gorm:"type:varchar(64)" json:"category"`
	Image        *string         `gorm:"type:varchar(256)" json:"image,omitempty"`
	IsAvailable  bool            `gorm:"not null;default:true" json:"isAvailable"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Cart struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;index" json:"userId"`
	RestaurantID string    `gorm:"type:uuid;not null;index" json:"restaurantId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	CartID      string    `gorm:"type:uuid;not null;index" json:"cartId"`
	MenuItemID  string    `gorm:"type:uuid;not null" json:"menuItemId"`
	Quantity    int32     `gorm:"not null" json:"quantity"`
	SpecialNote *string   `gorm:"type:text" json:"specialNote,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	MenuItem *MenuItem `gorm:"foreignKey:MenuItemID" json:"menuItem,omitempty"`
}
