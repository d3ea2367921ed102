package server

import (
	"workhive/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AdminListJobs handles GET /api/admin/jobs. The flag query filters by
// moderation state; without it the full queue is returned, every state.
func (s *Server) AdminListJobs(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	jobs, err := s.jobService.AdminList(c.UserContext(), c.Query("flag"), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}

	pending, err := s.jobService.PendingCount(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"jobs":          jobs,
		"pending_count": pending,
	})
}

// ApproveJob handles POST /api/admin/jobs/:id/approve
func (s *Server) ApproveJob(c *fiber.Ctx) error {
	return s.moderateJob(c, models.JobFlagApproved)
}

// RejectJob handles POST /api/admin/jobs/:id/reject
func (s *Server) RejectJob(c *fiber.Ctx) error {
	return s.moderateJob(c, models.JobFlagRejected)
}

// moderateJob applies a moderation decision. Repeating a decision is a no-op
// returning the current state; reversing one is a conflict.
func (s *Server) moderateJob(c *fiber.Ctx, decision models.JobFlag) error {
	id, err := s.parseID(c, "id", "job ID")
	if err != nil {
		return nil
	}

	job, err := s.jobService.Moderate(c.UserContext(), id, decision)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(job)
}

// AdminDeleteJob handles DELETE /api/admin/jobs/:id: removal of any post
// regardless of owner.
func (s *Server) AdminDeleteJob(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "job ID")
	if err != nil {
		return nil
	}

	if err := s.jobService.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "job post deleted"})
}
