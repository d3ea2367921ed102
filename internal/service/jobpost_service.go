package service

import (
	"context"
	"strings"

	"workhive/internal/models"
	"workhive/internal/repository"
)

// JobPostService provides job posting lifecycle business logic.
type JobPostService struct {
	jobRepo repository.JobPostRepository
	isAdmin func(ctx context.Context, userID uint) (bool, error)
}

// CreateJobInput is the input for posting a new job.
type CreateJobInput struct {
	UserID      uint
	Title       string
	Description string
	Skills      string
	Location    string
	Pay         string
	PayType     string
}

// UpdateJobInput is the input for editing an existing job. Empty scalar fields
// keep their stored values.
type UpdateJobInput struct {
	JobID       uint
	UserID      uint
	Title       string
	Description string
	Skills      string
	Location    string
	Pay         string
	PayType     string
}

// NewJobPostService returns a new JobPostService.
func NewJobPostService(
	jobRepo repository.JobPostRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *JobPostService {
	return &JobPostService{jobRepo: jobRepo, isAdmin: isAdmin}
}

// ValidateNewJob checks the form before any attachment upload happens, so a
// bad request never leaves stray objects in storage.
func (s *JobPostService) ValidateNewJob(in CreateJobInput, attachments int) error {
	if in.Title == "" || in.Description == "" || in.Skills == "" || in.Location == "" || in.Pay == "" {
		return models.NewValidationError("title, description, skills, location and pay are required")
	}
	if !models.ValidPayType(in.PayType) {
		return models.NewValidationError("pay type must be Daily or Hourly")
	}
	if attachments < 1 {
		return models.NewValidationError("at least one photo is required")
	}
	if attachments > models.MaxJobAttachments {
		return models.NewValidationError("a job post can have at most 3 photos")
	}
	return nil
}

// Create persists a new job post. Attachments were uploaded beforehand; the
// record starts Pending regardless of who posts it.
func (s *JobPostService) Create(ctx context.Context, in CreateJobInput, urls []string) (*models.JobPost, error) {
	if err := s.ValidateNewJob(in, len(urls)); err != nil {
		return nil, err
	}

	job := &models.JobPost{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		Skills:      in.Skills,
		Location:    in.Location,
		Pay:         in.Pay,
		PayType:     models.PayType(in.PayType),
		URLList:     urls,
		Flag:        models.JobFlagPending,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ValidateEdit loads the post, checks ownership and verifies the attachment
// cap against the count of new uploads before any of them are stored.
func (s *JobPostService) ValidateEdit(ctx context.Context, jobID, userID uint, newAttachments int) (*models.JobPost, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, models.NewUnauthorizedError("you can only edit your own job posts")
	}
	if len(job.URLList)+newAttachments > models.MaxJobAttachments {
		return nil, models.NewValidationError("a job post can have at most 3 photos")
	}
	return job, nil
}

// Update merges the non-empty fields and appends freshly uploaded attachment
// URLs. Ownership and the cap are re-checked to keep the operation safe when
// called directly.
func (s *JobPostService) Update(ctx context.Context, in UpdateJobInput, appendURLs []string) (*models.JobPost, error) {
	job, err := s.ValidateEdit(ctx, in.JobID, in.UserID, len(appendURLs))
	if err != nil {
		return nil, err
	}

	if in.Title != "" {
		job.Title = in.Title
	}
	if in.Description != "" {
		job.Description = in.Description
	}
	if in.Skills != "" {
		job.Skills = in.Skills
	}
	if in.Location != "" {
		job.Location = in.Location
	}
	if in.Pay != "" {
		job.Pay = in.Pay
	}
	if in.PayType != "" {
		if !models.ValidPayType(in.PayType) {
			return nil, models.NewValidationError("pay type must be Daily or Hourly")
		}
		job.PayType = models.PayType(in.PayType)
	}
	job.URLList = append(job.URLList, appendURLs...)

	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns a single job post.
func (s *JobPostService) Get(ctx context.Context, id uint) (*models.JobPost, error) {
	return s.jobRepo.GetByID(ctx, id)
}

// Browse lists approved posts from other users, optionally filtered by a
// case-insensitive search term over title, skills and location.
func (s *JobPostService) Browse(ctx context.Context, viewerID uint, search string, limit, offset int) ([]models.JobPost, error) {
	search = strings.TrimSpace(search)
	if search != "" {
		return s.jobRepo.Search(ctx, models.JobFlagApproved, search, viewerID, limit, offset)
	}
	return s.jobRepo.ListBrowse(ctx, viewerID, limit, offset)
}

// Mine lists the caller's own posts in every flag state.
func (s *JobPostService) Mine(ctx context.Context, userID uint, limit, offset int) ([]models.JobPost, error) {
	return s.jobRepo.ListByUser(ctx, userID, limit, offset)
}

// AdminList lists posts for the moderation dashboard, optionally restricted
// to one flag.
func (s *JobPostService) AdminList(ctx context.Context, flag string, limit, offset int) ([]models.JobPost, error) {
	if flag == "" {
		return s.jobRepo.ListAll(ctx, limit, offset)
	}
	f := models.JobFlag(flag)
	if !models.ValidModerationState(f) {
		return nil, models.NewValidationError("flag must be Pending, Approved or Rejected")
	}
	return s.jobRepo.ListByFlag(ctx, f, limit, offset)
}

// Moderate applies an admin decision. Approved and Rejected are terminal:
// repeating the standing decision is a no-op, switching it is a conflict.
func (s *JobPostService) Moderate(ctx context.Context, jobID uint, decision models.JobFlag) (*models.JobPost, error) {
	if !models.ValidModerationDecision(decision) {
		return nil, models.NewValidationError("decision must be Approved or Rejected")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Flag == decision {
		return job, nil
	}
	if job.Flag != models.JobFlagPending {
		return nil, models.NewConflictError("job post has already been " + strings.ToLower(string(job.Flag)))
	}

	job.Flag = decision
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Delete removes a post. Owners can delete their own posts; admins can delete
// any post regardless of flag.
func (s *JobPostService) Delete(ctx context.Context, jobID, actorID uint) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	if job.UserID != actorID {
		admin, err := s.isAdmin(ctx, actorID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewUnauthorizedError("you can only delete your own job posts")
		}
	}

	return s.jobRepo.Delete(ctx, jobID)
}

// PendingCount reports how many posts await moderation.
func (s *JobPostService) PendingCount(ctx context.Context) (int64, error) {
	return s.jobRepo.CountByFlag(ctx, models.JobFlagPending)
}
