package repository

import (
	"context"
	"testing"
	"time"

	"workhive/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCopies(senderID, receiverID uint, body string) (*models.ChatMessage, *models.ChatMessage) {
	now := time.Now()
	base := models.ChatMessage{
		MessageID:  uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Date:       models.FormatMessageDate(now),
		Time:       models.FormatMessageTime(now),
		Message:    body,
		FileType:   models.FileTypeText,
		Flag:       models.MessageFlagUnread,
	}
	senderCopy := base
	senderCopy.PartitionOwnerID = senderID
	receiverCopy := base
	receiverCopy.PartitionOwnerID = receiverID
	return &senderCopy, &receiverCopy
}

func TestChatRepository_DeliverWritesBothPartitions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	senderCopy, receiverCopy := makeCopies(1, 2, "hello")
	require.NoError(t, repo.Deliver(ctx, senderCopy, receiverCopy))

	var rows []models.ChatMessage
	require.NoError(t, db.Where("message_id = ?", senderCopy.MessageID).Find(&rows).Error)
	require.Len(t, rows, 2)

	owners := map[uint]bool{}
	for _, row := range rows {
		owners[row.PartitionOwnerID] = true
		assert.Equal(t, senderCopy.MessageID, row.MessageID)
		assert.Equal(t, "hello", row.Message)
		assert.Equal(t, models.MessageFlagUnread, row.Flag)
	}
	assert.True(t, owners[1])
	assert.True(t, owners[2])
}

func TestChatRepository_DeliverSelfMessageSingleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	senderCopy, receiverCopy := makeCopies(5, 5, "note to self")
	require.NoError(t, repo.Deliver(ctx, senderCopy, receiverCopy))

	var count int64
	require.NoError(t, db.Model(&models.ChatMessage{}).
		Where("message_id = ?", senderCopy.MessageID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestChatRepository_ListConversationFiltersByPeer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	// User 1 talks to user 2 and user 3.
	s, r := makeCopies(1, 2, "to two")
	require.NoError(t, repo.Deliver(ctx, s, r))
	s, r = makeCopies(3, 1, "from three")
	require.NoError(t, repo.Deliver(ctx, s, r))
	s, r = makeCopies(2, 1, "reply from two")
	require.NoError(t, repo.Deliver(ctx, s, r))

	msgs, err := repo.ListConversation(ctx, 1, 2, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "to two", msgs[0].Message)
	assert.Equal(t, "reply from two", msgs[1].Message)
	for _, m := range msgs {
		assert.Equal(t, uint(1), m.PartitionOwnerID)
	}

	msgs, err = repo.ListConversation(ctx, 1, 3, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "from three", msgs[0].Message)
}

func TestChatRepository_ListConversationSelf(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	s, r := makeCopies(4, 4, "self note")
	require.NoError(t, repo.Deliver(ctx, s, r))
	s, r = makeCopies(4, 9, "outbound")
	require.NoError(t, repo.Deliver(ctx, s, r))

	msgs, err := repo.ListConversation(ctx, 4, 4, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "self note", msgs[0].Message)
}

func TestChatRepository_DistinctPeerIDsExcludesSelf(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	s, r := makeCopies(1, 2, "a")
	require.NoError(t, repo.Deliver(ctx, s, r))
	s, r = makeCopies(3, 1, "b")
	require.NoError(t, repo.Deliver(ctx, s, r))
	s, r = makeCopies(1, 2, "c")
	require.NoError(t, repo.Deliver(ctx, s, r))
	s, r = makeCopies(1, 1, "self")
	require.NoError(t, repo.Deliver(ctx, s, r))

	peers, err := repo.DistinctPeerIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{2, 3}, peers)
}

func TestChatRepository_DeletePartitionMessageIsOneSided(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	s, r := makeCopies(1, 2, "keep my copy")
	require.NoError(t, repo.Deliver(ctx, s, r))

	require.NoError(t, repo.DeletePartitionMessage(ctx, 1, s.MessageID))

	// Sender's partition no longer sees it.
	msgs, err := repo.ListConversation(ctx, 1, 2, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Receiver's copy is untouched.
	msgs, err = repo.ListConversation(ctx, 2, 1, 50, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// Deleting again reports not found.
	err = repo.DeletePartitionMessage(ctx, 1, s.MessageID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestChatRepository_FindSingletonCopies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	// Healthy dual write.
	s, r := makeCopies(1, 2, "complete")
	require.NoError(t, repo.Deliver(ctx, s, r))

	// Simulate an interrupted dual write by inserting only one copy.
	orphan, _ := makeCopies(3, 4, "orphaned")
	require.NoError(t, db.Create(orphan).Error)

	// Self-messages are single-row on purpose and must not be flagged.
	s, r = makeCopies(5, 5, "self")
	require.NoError(t, repo.Deliver(ctx, s, r))

	// Backdate everything so the cutoff includes all rows.
	require.NoError(t, db.Model(&models.ChatMessage{}).
		Where("1 = 1").
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	singletons, err := repo.FindSingletonCopies(ctx, time.Now().Add(-time.Minute), 100)
	require.NoError(t, err)
	require.Len(t, singletons, 1)
	assert.Equal(t, orphan.MessageID, singletons[0].MessageID)

	// Repair it and verify the scan comes back clean.
	twin := singletons[0]
	twin.ID = 0
	twin.PartitionOwnerID = twin.ReceiverID
	require.NoError(t, repo.InsertCopy(ctx, &twin))
	require.NoError(t, db.Model(&models.ChatMessage{}).
		Where("1 = 1").
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	singletons, err = repo.FindSingletonCopies(ctx, time.Now().Add(-time.Minute), 100)
	require.NoError(t, err)
	assert.Empty(t, singletons)
}
