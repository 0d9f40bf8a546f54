package models

import "time"

const (
	RoleAdmin    = "admin"
	RoleCustomer = "user"
)

type User struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Username  string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null" json:"-"`
	Role      string `gorm:"not null;default:'user'"`
	IsActive  bool   `gorm:"default:true"`
	Version   int    `gorm:"default:1"`
}
