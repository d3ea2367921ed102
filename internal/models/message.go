// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Message file types.
const (
	FileTypeText  = "text"
	FileTypeImage = "image"
)

// MessageFlagUnread is the initial read-state marker. It is written on every
// message and never transitioned in the current scope.
const MessageFlagUnread = "unread"

// ChatMessage is one copy of a delivered message. Every logical message is
// stored twice, once in the sender's partition and once in the receiver's,
// both rows sharing the same MessageID and payload. PartitionOwnerID names the
// user whose conversation view this row belongs to.
type ChatMessage struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	MessageID        string    `gorm:"not null;index:idx_partition_message,priority:2;index" json:"id"`
	PartitionOwnerID uint      `gorm:"not null;index:idx_partition_message,priority:1;index" json:"-"`
	SenderID         uint      `gorm:"not null;index" json:"sender_id"`
	ReceiverID       uint      `gorm:"not null;index" json:"receiver_id"`
	Date             string    `gorm:"not null" json:"date"`
	Time             string    `gorm:"not null" json:"time"`
	Message          string    `gorm:"type:text" json:"message"`
	FileType         string    `gorm:"not null;default:'text'" json:"file_type"`
	FileName         string    `json:"file_name"`
	PicURL           string    `json:"pic_url"`
	SenderName       string    `json:"sender_name"`
	SenderPic        string    `json:"sender_pic"`
	Flag             string    `gorm:"not null;default:'unread'" json:"flag"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Counterparty returns the other participant from the partition owner's
// point of view.
func (m *ChatMessage) Counterparty() uint {
	if m.SenderID == m.PartitionOwnerID {
		return m.ReceiverID
	}
	return m.SenderID
}

// FormatMessageDate renders t as the DD-MM-YYYY wire format.
func FormatMessageDate(t time.Time) string {
	return t.Format("02-01-2006")
}

// FormatMessageTime renders t as the 12-hour h:mm AM/PM wire format.
func FormatMessageTime(t time.Time) string {
	return t.Format("3:04 PM")
}
