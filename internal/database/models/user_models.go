package models

import "time"

type User struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(128);not null" json:"name"`
	Email     string     `gorm:"type:varchar(256);uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
