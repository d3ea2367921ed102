package server

import (
	"io"

	"workhive/internal/models"
	"workhive/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. The request is multipart; scalar
// fields left empty keep their stored values, and new pic/cv files replace the
// stored URLs when present.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	in := service.UpdateProfileInput{
		UserID:   userID,
		FullName: c.FormValue("full_name"),
		Place:    c.FormValue("place"),
		Skills:   c.FormValue("skills"),
	}

	if picHeader, err := c.FormFile("pic"); err == nil {
		if err := checkUploadSize(picHeader); err != nil {
			return respondError(c, err)
		}
		url, err := uploadFormFile(picHeader, func(body io.Reader) (string, error) {
			return s.uploadService.UploadProfilePic(ctx, userID, picHeader.Filename, body)
		})
		if err != nil {
			return respondError(c, err)
		}
		in.Pic = url
	}

	if cvHeader, err := c.FormFile("cv"); err == nil {
		if err := checkUploadSize(cvHeader); err != nil {
			return respondError(c, err)
		}
		url, err := uploadFormFile(cvHeader, func(body io.Reader) (string, error) {
			return s.uploadService.UploadCV(ctx, userID, cvHeader.Filename, body)
		})
		if err != nil {
			return respondError(c, err)
		}
		in.CV = url
	}

	user, err := s.userService.UpdateProfile(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id. Anyone authenticated can see a
// public profile, for example the counterparty of a chat or a job poster.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "user ID")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	// Profiles of other users omit private contact data.
	if id != currentUserID(c) {
		return c.JSON(publicProfile(user))
	}
	return c.JSON(user)
}

// publicProfile is the view of a user shown to other users.
func publicProfile(u *models.User) fiber.Map {
	return fiber.Map{
		"id":        u.ID,
		"full_name": u.FullName,
		"place":     u.Place,
		"skills":    u.Skills,
		"pic":       u.Pic,
	}
}
