// Package models contains data structures for the application's domain models.
package models

import "time"

// User is the authentication identity. Everything user-facing lives on Profile.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Profile      *Profile   `gorm:"foreignKey:ID;references:ID" json:"profile,omitempty"`
}
