package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string          `gorm:"type:uuid;not null;index" json:"userId"`
	RestaurantID   string          `gorm:"type:uuid;not null;index" json:"restaurantId"`
	TableID        string          `gorm:"type:uuid;not null;index" json:"tableId"`
	TableSessionID *string         `gorm:"type:uuid;index" json:"tableSessionId"`
	Status         OrderStatus     `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(32);not null;default:'UNPAID'" json:"paymentStatus"`
	SplitMethod    *SplitMethod    `gorm:"type:varchar(16)" json:"splitMethod"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"taxAmount"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// ItemsTotal is the sum of quantity × snapshot price over the order's items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

type OrderItem struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     string          `gorm:"type:uuid;not null;index" json:"orderId"`
	MenuItemID  string          `gorm:"type:uuid;not null" json:"menuItemId"`
	Quantity    int32           `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	SpecialNote *string         `gorm:"type:text" json:"specialNote,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	MenuItem *MenuItem `gorm:"foreignKey:MenuItemID" json:"menuItem,omitempty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt32(i.Quantity))
}

// TableSession groups every order placed at a table between the table opening
// and the bill being settled.
type TableSession struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	TableID      string          `gorm:"type:uuid;not null;index" json:"tableId"`
	RestaurantID string          `gorm:"type:uuid;not null;index" json:"restaurantId"`
	IsActive     bool            `gorm:"not null;default:true" json:"isActive"`
	IsPaid       bool            `gorm:"not null;default:false" json:"isPaid"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"totalAmount"`
	TaxAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"taxAmount"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Payment struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID        string          `gorm:"type:uuid;not null;uniqueIndex" json:"orderId"`
	UserID         string          `gorm:"type:uuid;not null;index" json:"userId"`
	TableSessionID *string         `gorm:"type:uuid;index" json:"tableSessionId"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method         PaymentMethod   `gorm:"type:varchar(8);not null" json:"method"`
	Status         PaymentStatus   `gorm:"type:varchar(32);not null" json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
