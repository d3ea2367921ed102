package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"workhive/internal/cache"
	"workhive/internal/middleware"
	"workhive/internal/models"
	"workhive/internal/notifications"
	"workhive/internal/observability"
	"workhive/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ChatService provides partitioned message delivery business logic.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	notifier *notifications.Notifier
	now      func() time.Time
}

// SendMessageInput is the input for sending a message. PicURL is the already
// uploaded attachment URL, empty for plain text.
type SendMessageInput struct {
	SenderID   uint
	ReceiverID uint
	Message    string
	FileName   string
	PicURL     string
}

// NewChatService returns a new ChatService.
func NewChatService(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	notifier *notifications.Notifier,
) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		notifier: notifier,
		now:      time.Now,
	}
}

// Send validates the message, writes both partition copies atomically and
// publishes the result to both participants' partition channels.
func (s *ChatService) Send(ctx context.Context, in SendMessageInput) (*models.ChatMessage, error) {
	span, ctx := observability.NewSpan(ctx, "chat.send")
	defer span.End()
	span.AddAttributes(
		attribute.Int("chat.sender_id", int(in.SenderID)),
		attribute.Int("chat.receiver_id", int(in.ReceiverID)),
	)

	// Whitespace-only text does not count as content.
	if strings.TrimSpace(in.Message) == "" && in.PicURL == "" {
		return nil, models.NewValidationError("a message needs text or an image")
	}

	sender, err := s.userRepo.GetByID(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, in.ReceiverID); err != nil {
		return nil, err
	}

	fileType := models.FileTypeText
	if in.PicURL != "" {
		fileType = models.FileTypeImage
	}

	now := s.now()
	base := models.ChatMessage{
		MessageID:  uuid.NewString(),
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Date:       models.FormatMessageDate(now),
		Time:       models.FormatMessageTime(now),
		Message:    in.Message,
		FileType:   fileType,
		FileName:   in.FileName,
		PicURL:     in.PicURL,
		SenderName: sender.FullName,
		SenderPic:  sender.Pic,
		Flag:       models.MessageFlagUnread,
	}

	senderCopy := base
	senderCopy.PartitionOwnerID = in.SenderID
	receiverCopy := base
	receiverCopy.PartitionOwnerID = in.ReceiverID

	if err := s.chatRepo.Deliver(ctx, &senderCopy, &receiverCopy); err != nil {
		middleware.MessagesDelivered.WithLabelValues("error").Inc()
		span.SetError(err)
		return nil, err
	}
	middleware.MessagesDelivered.WithLabelValues("ok").Inc()

	cache.InvalidateChatPeers(ctx, in.SenderID)
	cache.InvalidateChatPeers(ctx, in.ReceiverID)

	s.publishDelivery(ctx, &senderCopy)
	if receiverCopy.PartitionOwnerID != senderCopy.PartitionOwnerID {
		s.publishDelivery(ctx, &receiverCopy)
	}

	return &senderCopy, nil
}

// publishDelivery pushes a delivered copy onto its partition channel. Fan-out
// failures are logged, never surfaced: the message is already persisted.
func (s *ChatService) publishDelivery(ctx context.Context, msg *models.ChatMessage) {
	if s.notifier == nil {
		return
	}
	event := notifications.ChatEvent{
		Type:             "message",
		PartitionOwnerID: msg.PartitionOwnerID,
		UserID:           msg.SenderID,
		Payload:          msg,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to marshal chat event", "error", err)
		return
	}
	if err := s.notifier.PublishPartition(ctx, msg.PartitionOwnerID, string(payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish chat event", "error", err)
	}
}

// GetConversation returns the caller's partition filtered to one counterparty,
// in insertion order.
func (s *ChatService) GetConversation(ctx context.Context, ownerID, peerID uint, limit, offset int) ([]models.ChatMessage, error) {
	return s.chatRepo.ListConversation(ctx, ownerID, peerID, limit, offset)
}

// ListConversationPeers resolves the distinct counterparties in the caller's
// partition to user profiles. The caller never appears in their own list.
// Results are cached briefly; Send invalidates both parties' entries.
func (s *ChatService) ListConversationPeers(ctx context.Context, ownerID uint) ([]models.User, error) {
	peers := []models.User{}
	err := cache.Aside(ctx, cache.ChatPeersKey(ownerID), &peers, cache.ChatPeersTTL, func() error {
		peerIDs, err := s.chatRepo.DistinctPeerIDs(ctx, ownerID)
		if err != nil {
			return err
		}
		for _, id := range peerIDs {
			user, err := s.userRepo.GetByID(ctx, id)
			if err != nil {
				// A deleted counterparty should not break the whole list.
				var appErr *models.AppError
				if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
					continue
				}
				return err
			}
			peers = append(peers, *user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return peers, nil
}

// DeleteMessage removes one copy from the caller's partition. The
// counterparty's copy is untouched.
func (s *ChatService) DeleteMessage(ctx context.Context, ownerID uint, messageID string) error {
	return s.chatRepo.DeletePartitionMessage(ctx, ownerID, messageID)
}

// ConversationSubscription streams conversation snapshots. Updates carries the
// full ordered conversation on subscribe and after every delivery touching the
// subscriber's partition; Err reports at most one failure; Unsubscribe
// releases the underlying channel subscription.
type ConversationSubscription struct {
	Updates <-chan []models.ChatMessage
	Err     <-chan error

	cancel context.CancelFunc
}

// Unsubscribe releases the subscription. Safe to call more than once.
func (sub *ConversationSubscription) Unsubscribe() {
	sub.cancel()
}

// SubscribeToConversation delivers the current snapshot immediately and a
// refreshed one whenever the subscriber's partition changes. Without Redis the
// subscription still yields the initial snapshot.
func (s *ChatService) SubscribeToConversation(ctx context.Context, ownerID, peerID uint) (*ConversationSubscription, error) {
	snapshot, err := s.chatRepo.ListConversation(ctx, ownerID, peerID, 500, 0)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	updates := make(chan []models.ChatMessage, 8)
	errs := make(chan error, 1)

	sub := &ConversationSubscription{
		Updates: updates,
		Err:     errs,
		cancel:  cancel,
	}

	updates <- snapshot

	if s.notifier == nil {
		return sub, nil
	}
	pubsub := s.notifier.SubscribePartition(subCtx, ownerID)
	if pubsub == nil {
		// No fan-out available; the caller keeps the initial snapshot.
		return sub, nil
	}

	go func() {
		defer close(updates)
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				refreshed, err := s.chatRepo.ListConversation(subCtx, ownerID, peerID, 500, 0)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					return
				}
				select {
				case updates <- refreshed:
				default:
					// Subscriber is not draining; skip this snapshot, the
					// next delivery produces a fresh one anyway.
				}
			}
		}
	}()

	return sub, nil
}
