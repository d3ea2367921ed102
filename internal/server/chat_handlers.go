package server

import (
	"io"

	"workhive/internal/featureflags"
	"workhive/internal/models"
	"workhive/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetChatPeers handles GET /api/chat/peers: every user the viewer has a
// conversation with, with live presence from the hub.
func (s *Server) GetChatPeers(c *fiber.Ctx) error {
	peers, err := s.chatService.ListConversationPeers(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	out := make([]fiber.Map, 0, len(peers))
	for i := range peers {
		entry := publicProfile(&peers[i])
		entry["online"] = s.chatHub.IsUserOnline(peers[i].ID)
		out = append(out, entry)
	}
	return c.JSON(out)
}

// GetConversationMessages handles GET /api/chat/:peerId/messages. Only the
// viewer's own partition is read, so a counterparty's deletions never affect
// what the viewer sees.
func (s *Server) GetConversationMessages(c *fiber.Ctx) error {
	peerID, err := s.parseID(c, "peerId", "peer ID")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	messages, err := s.chatService.GetConversation(c.UserContext(), currentUserID(c), peerID, p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// SendChatMessage handles POST /api/chat/:peerId/messages. The body is
// multipart: a message text field, an optional image file, or both.
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
	peerID, err := s.parseID(c, "peerId", "peer ID")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	in := service.SendMessageInput{
		SenderID:   currentUserID(c),
		ReceiverID: peerID,
		Message:    c.FormValue("message"),
	}

	if header, ferr := c.FormFile("image"); ferr == nil {
		if !s.flags.Enabled(featureflags.FlagChatImages, in.SenderID) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("image attachments are currently disabled"))
		}
		if err := checkUploadSize(header); err != nil {
			return respondError(c, err)
		}
		url, err := uploadFormFile(header, func(body io.Reader) (string, error) {
			return s.uploadService.UploadChatImage(ctx, header.Filename, body)
		})
		if err != nil {
			return respondError(c, err)
		}
		in.PicURL = url
		in.FileName = header.Filename
	}

	msg, err := s.chatService.Send(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// DeleteChatMessage handles DELETE /api/chat/:peerId/messages/:messageId.
// Deletion removes the viewer's partition copy only; the counterparty keeps
// theirs.
func (s *Server) DeleteChatMessage(c *fiber.Ctx) error {
	messageID := c.Params("messageId")
	if _, err := uuid.Parse(messageID); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("invalid message ID"))
	}

	if err := s.chatService.DeleteMessage(c.UserContext(), currentUserID(c), messageID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "message deleted"})
}
