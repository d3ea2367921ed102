package repository

import (
	"context"
	"errors"

	"workhive/internal/cache"
	"workhive/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobPostRepository defines persistence operations for job posts.
type JobPostRepository interface {
	Create(ctx context.Context, job *models.JobPost) error
	GetByID(ctx context.Context, id uint) (*models.JobPost, error)
	Update(ctx context.Context, job *models.JobPost) error
	Delete(ctx context.Context, id uint) error
	ListByFlag(ctx context.Context, flag models.JobFlag, limit, offset int) ([]models.JobPost, error)
	ListBrowse(ctx context.Context, viewerID uint, limit, offset int) ([]models.JobPost, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.JobPost, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.JobPost, error)
	Search(ctx context.Context, flag models.JobFlag, term string, excludeUserID uint, limit, offset int) ([]models.JobPost, error)
	CountByFlag(ctx context.Context, flag models.JobFlag) (int64, error)
}

type jobPostRepository struct {
	db *gorm.DB
}

// NewJobPostRepository returns a new JobPostRepository implementation.
func NewJobPostRepository(db *gorm.DB) JobPostRepository {
	return &jobPostRepository{db: db}
}

func (r *jobPostRepository) Create(ctx context.Context, job *models.JobPost) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *jobPostRepository) GetByID(ctx context.Context, id uint) (*models.JobPost, error) {
	var job models.JobPost
	err := cache.Aside(ctx, cache.JobKey(id), &job, cache.JobTTL, func() error {
		if err := r.db.WithContext(ctx).Preload("User").First(&job, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("JobPost", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobPostRepository) Update(ctx context.Context, job *models.JobPost) error {
	// The job is usually loaded with its User preloaded; never write back
	// through the association.
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(job).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateJob(ctx, job.ID)
	return nil
}

func (r *jobPostRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.JobPost{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateJob(ctx, id)
	return nil
}

func (r *jobPostRepository) ListByFlag(ctx context.Context, flag models.JobFlag, limit, offset int) ([]models.JobPost, error) {
	var jobs []models.JobPost
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("flag = ?", flag).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return jobs, nil
}

// ListBrowse returns approved posts from everyone except the viewer.
func (r *jobPostRepository) ListBrowse(ctx context.Context, viewerID uint, limit, offset int) ([]models.JobPost, error) {
	var jobs []models.JobPost
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("flag = ?", models.JobFlagApproved).
		Where("user_id <> ?", viewerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return jobs, nil
}

func (r *jobPostRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.JobPost, error) {
	var jobs []models.JobPost
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return jobs, nil
}

func (r *jobPostRepository) ListAll(ctx context.Context, limit, offset int) ([]models.JobPost, error) {
	var jobs []models.JobPost
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return jobs, nil
}

func (r *jobPostRepository) Search(ctx context.Context, flag models.JobFlag, term string, excludeUserID uint, limit, offset int) ([]models.JobPost, error) {
	var jobs []models.JobPost
	pattern := "%" + term + "%"
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("flag = ?", flag)
	if excludeUserID != 0 {
		q = q.Where("user_id <> ?", excludeUserID)
	}
	if err := q.Where(
		r.db.Where("LOWER(title) LIKE LOWER(?)", pattern).
			Or("LOWER(skills) LIKE LOWER(?)", pattern).
			Or("LOWER(location) LIKE LOWER(?)", pattern),
	).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return jobs, nil
}

func (r *jobPostRepository) CountByFlag(ctx context.Context, flag models.JobFlag) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JobPost{}).
		Where("flag = ?", flag).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
