// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered user of the Workhive marketplace.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	FullName  string         `gorm:"not null" json:"full_name"`
	Place     string         `json:"place"`
	Skills    string         `json:"skills"`
	Pic       string         `json:"pic"`
	CV        string         `json:"cv"`
	IsAdmin   bool           `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	JobPosts  []JobPost      `gorm:"foreignKey:UserID" json:"job_posts,omitempty"`
}
