package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"default:user"` // user, admin
}

// Child is a learner profile owned by a parent User.
type Child struct {
	gorm.Model
	UserID uint   `gorm:"index;not null"`
	Name   string `gorm:"not null"`
	Grade  *int
}
