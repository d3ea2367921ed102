// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// JobFlag is the moderation state of a job post.
type JobFlag string

const (
	JobFlagPending  JobFlag = "Pending"
	JobFlagApproved JobFlag = "Approved"
	JobFlagRejected JobFlag = "Rejected"
)

// PayType distinguishes daily from hourly pay.
type PayType string

const (
	PayTypeDaily  PayType = "Daily"
	PayTypeHourly PayType = "Hourly"
)

// MaxJobAttachments caps the number of reference photos per post, on both the
// create and edit paths.
const MaxJobAttachments = 3

// JobPost represents a job ad. Flag starts at Pending and is moved to
// Approved or Rejected by an admin; Approved/Rejected are terminal states.
type JobPost struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	User        *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Skills      string         `gorm:"not null" json:"skills"`
	Location    string         `gorm:"not null" json:"location"`
	Pay         string         `gorm:"not null" json:"pay"`
	PayType     PayType        `gorm:"not null;default:'Daily'" json:"pay_type"`
	URLList     []string       `gorm:"serializer:json" json:"url_list"`
	Flag        JobFlag        `gorm:"not null;default:'Pending';index" json:"flag"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// ValidPayType reports whether s is one of the accepted pay types.
func ValidPayType(s string) bool {
	return PayType(s) == PayTypeDaily || PayType(s) == PayTypeHourly
}

// ValidModerationDecision reports whether f is a decision an admin can apply.
func ValidModerationDecision(f JobFlag) bool {
	return f == JobFlagApproved || f == JobFlagRejected
}

// ValidModerationState reports whether f is any recognized flag value.
func ValidModerationState(f JobFlag) bool {
	return f == JobFlagPending || ValidModerationDecision(f)
}
