package repository

import (
	"context"
	"time"

	"workhive/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines persistence operations for partitioned chat messages.
//
// Every delivered message is written twice: once into the sender's partition
// and once into the receiver's partition, both rows carrying the same
// MessageID. All reads are scoped to a single partition owner.
type ChatRepository interface {
	Deliver(ctx context.Context, senderCopy, receiverCopy *models.ChatMessage) error
	ListConversation(ctx context.Context, ownerID, peerID uint, limit, offset int) ([]models.ChatMessage, error)
	DistinctPeerIDs(ctx context.Context, ownerID uint) ([]uint, error)
	DeletePartitionMessage(ctx context.Context, ownerID uint, messageID string) error

	// Reconciliation support: find message copies whose twin row is missing
	// and re-insert the missing copy.
	FindSingletonCopies(ctx context.Context, olderThan time.Time, limit int) ([]models.ChatMessage, error)
	InsertCopy(ctx context.Context, msg *models.ChatMessage) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository returns a new ChatRepository implementation.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// Deliver writes both partition copies in a single transaction so a message
// never becomes visible to only one side. Self-messages occupy a single
// partition and get a single row.
func (r *chatRepository) Deliver(ctx context.Context, senderCopy, receiverCopy *models.ChatMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(senderCopy).Error; err != nil {
			return err
		}
		if receiverCopy.PartitionOwnerID == senderCopy.PartitionOwnerID {
			return nil
		}
		return tx.Create(receiverCopy).Error
	})
	if err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (r *chatRepository) ListConversation(ctx context.Context, ownerID, peerID uint, limit, offset int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	q := r.db.WithContext(ctx).Where("partition_owner_id = ?", ownerID)
	if peerID == ownerID {
		// Self-conversation: both endpoints are the owner.
		q = q.Where("sender_id = ? AND receiver_id = ?", ownerID, ownerID)
	} else {
		q = q.Where("sender_id = ? OR receiver_id = ?", peerID, peerID)
	}
	if err := q.Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return messages, nil
}

func (r *chatRepository) DistinctPeerIDs(ctx context.Context, ownerID uint) ([]uint, error) {
	var peerIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("partition_owner_id = ?", ownerID).
		Distinct("CASE WHEN sender_id = partition_owner_id THEN receiver_id ELSE sender_id END").
		Where("sender_id <> ? OR receiver_id <> ?", ownerID, ownerID).
		Pluck("CASE WHEN sender_id = partition_owner_id THEN receiver_id ELSE sender_id END", &peerIDs).
		Error
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	return peerIDs, nil
}

func (r *chatRepository) DeletePartitionMessage(ctx context.Context, ownerID uint, messageID string) error {
	res := r.db.WithContext(ctx).
		Where("partition_owner_id = ? AND message_id = ?", ownerID, messageID).
		Delete(&models.ChatMessage{})
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("ChatMessage", messageID)
	}
	return nil
}

// FindSingletonCopies returns message rows older than the given cutoff whose
// message_id appears in exactly one partition even though sender and receiver
// differ. These are the survivors of interrupted dual writes.
func (r *chatRepository) FindSingletonCopies(ctx context.Context, olderThan time.Time, limit int) ([]models.ChatMessage, error) {
	var copies []models.ChatMessage
	// The copy count runs over every row; the age cutoff only gates which
	// survivors are eligible, so a freshly repaired twin immediately heals
	// its partner.
	sub := r.db.Model(&models.ChatMessage{}).
		Select("message_id").
		Group("message_id").
		Having("COUNT(*) = 1")
	if err := r.db.WithContext(ctx).
		Where("sender_id <> receiver_id").
		Where("created_at < ?", olderThan).
		Where("message_id IN (?)", sub).
		Limit(limit).
		Find(&copies).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return copies, nil
}

func (r *chatRepository) InsertCopy(ctx context.Context, msg *models.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}
