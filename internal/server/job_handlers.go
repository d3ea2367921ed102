package server

import (
	"io"
	"mime/multipart"

	"workhive/internal/models"
	"workhive/internal/service"

	"github.com/gofiber/fiber/v2"
)

// jobPhotoHeaders pulls the uploaded photo file headers out of the multipart
// form. A request without photos yields an empty slice.
func jobPhotoHeaders(c *fiber.Ctx) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	return form.File["photos"], nil
}

// uploadJobPhotos stores each photo and returns the public URLs, in form order.
func (s *Server) uploadJobPhotos(c *fiber.Ctx, userID uint, headers []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(headers))
	for _, header := range headers {
		if err := checkUploadSize(header); err != nil {
			return nil, err
		}
		url, err := uploadFormFile(header, func(body io.Reader) (string, error) {
			return s.uploadService.UploadJobPhoto(c.UserContext(), userID, header.Filename, body)
		})
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// CreateJob handles POST /api/jobs. The form is validated, attachment count
// included, before any photo is uploaded; a rejected request leaves no
// objects behind in storage.
func (s *Server) CreateJob(c *fiber.Ctx) error {
	userID := currentUserID(c)

	in := service.CreateJobInput{
		UserID:      userID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Skills:      c.FormValue("skills"),
		Location:    c.FormValue("location"),
		Pay:         c.FormValue("pay"),
		PayType:     c.FormValue("pay_type"),
	}

	photos, _ := jobPhotoHeaders(c)
	if err := s.jobService.ValidateNewJob(in, len(photos)); err != nil {
		return respondError(c, err)
	}

	urls, err := s.uploadJobPhotos(c, userID, photos)
	if err != nil {
		return respondError(c, err)
	}

	job, err := s.jobService.Create(c.UserContext(), in, urls)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

// GetJobs handles GET /api/jobs: the approved-only browse feed, excluding
// the viewer's own posts, with optional search over title/skills/location.
func (s *Server) GetJobs(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	search := c.Query("search")

	jobs, err := s.jobService.Browse(c.UserContext(), currentUserID(c), search, p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(jobs)
}

// GetMyJobs handles GET /api/jobs/mine: all of the viewer's posts in every
// moderation state.
func (s *Server) GetMyJobs(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	jobs, err := s.jobService.Mine(c.UserContext(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(jobs)
}

// GetJob handles GET /api/jobs/:id. Unapproved posts are visible only to
// their owner and admins; everyone else gets a 404, not a 403, so the post's
// existence is not leaked.
func (s *Server) GetJob(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "job ID")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	job, err := s.jobService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	if job.Flag != models.JobFlagApproved && job.UserID != userID {
		isAdmin, err := s.userService.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return respondError(c, err)
		}
		if !isAdmin {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("JobPost", id))
		}
	}

	return c.JSON(job)
}

// UpdateJob handles PUT /api/jobs/:id. Ownership and the attachment cap are
// checked before any new photo is uploaded. New photos append to the existing
// list; the combined count stays within the cap.
func (s *Server) UpdateJob(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "job ID")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	photos, _ := jobPhotoHeaders(c)
	if _, err := s.jobService.ValidateEdit(c.UserContext(), id, userID, len(photos)); err != nil {
		return respondError(c, err)
	}

	urls, err := s.uploadJobPhotos(c, userID, photos)
	if err != nil {
		return respondError(c, err)
	}

	job, err := s.jobService.Update(c.UserContext(), service.UpdateJobInput{
		JobID:       id,
		UserID:      userID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Skills:      c.FormValue("skills"),
		Location:    c.FormValue("location"),
		Pay:         c.FormValue("pay"),
		PayType:     c.FormValue("pay_type"),
	}, urls)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(job)
}

// DeleteJob handles DELETE /api/jobs/:id: owners may remove their own posts.
func (s *Server) DeleteJob(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "job ID")
	if err != nil {
		return nil
	}

	if err := s.jobService.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "job post deleted"})
}
