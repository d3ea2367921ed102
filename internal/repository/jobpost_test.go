package repository

import (
	"context"
	"testing"

	"workhive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, repo UserRepository, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    email,
		Password: "hashed",
		FullName: "Test User",
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestJobPostRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	jobs := NewJobPostRepository(db)
	ctx := context.Background()

	owner := seedUser(t, users, "owner@example.com")

	job := &models.JobPost{
		UserID:      owner.ID,
		Title:       "Garden maintenance",
		Description: "Weekly garden upkeep",
		Skills:      "gardening",
		Location:    "Kochi",
		Pay:         "500",
		PayType:     models.PayTypeDaily,
		URLList:     []string{"https://storage.local/jobposts/1/a.jpg"},
		Flag:        models.JobFlagPending,
	}
	require.NoError(t, jobs.Create(ctx, job))
	require.NotZero(t, job.ID)

	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Garden maintenance", got.Title)
	assert.Equal(t, models.JobFlagPending, got.Flag)
	assert.Equal(t, []string{"https://storage.local/jobposts/1/a.jpg"}, got.URLList)
	require.NotNil(t, got.User)
	assert.Equal(t, "owner@example.com", got.User.Email)
}

func TestJobPostRepository_GetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	jobs := NewJobPostRepository(db)

	_, err := jobs.GetByID(context.Background(), 999)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestJobPostRepository_ListByFlag(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	jobs := NewJobPostRepository(db)
	ctx := context.Background()

	owner := seedUser(t, users, "owner@example.com")

	for _, tc := range []struct {
		title string
		flag  models.JobFlag
	}{
		{"approved one", models.JobFlagApproved},
		{"pending one", models.JobFlagPending},
		{"approved two", models.JobFlagApproved},
		{"rejected one", models.JobFlagRejected},
	} {
		require.NoError(t, jobs.Create(ctx, &models.JobPost{
			UserID:  owner.ID,
			Title:   tc.title,
			Pay:     "100",
			PayType: models.PayTypeHourly,
			Flag:    tc.flag,
		}))
	}

	approved, err := jobs.ListByFlag(ctx, models.JobFlagApproved, 50, 0)
	require.NoError(t, err)
	assert.Len(t, approved, 2)
	for _, j := range approved {
		assert.Equal(t, models.JobFlagApproved, j.Flag)
	}

	count, err := jobs.CountByFlag(ctx, models.JobFlagPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestJobPostRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	jobs := NewJobPostRepository(db)
	ctx := context.Background()

	owner := seedUser(t, users, "owner@example.com")

	require.NoError(t, jobs.Create(ctx, &models.JobPost{
		UserID: owner.ID, Title: "Plumbing repair", Skills: "plumbing", Location: "Kochi",
		Pay: "100", PayType: models.PayTypeHourly, Flag: models.JobFlagApproved,
	}))
	require.NoError(t, jobs.Create(ctx, &models.JobPost{
		UserID: owner.ID, Title: "House painting", Skills: "painting", Location: "Thrissur",
		Pay: "100", PayType: models.PayTypeDaily, Flag: models.JobFlagApproved,
	}))
	require.NoError(t, jobs.Create(ctx, &models.JobPost{
		UserID: owner.ID, Title: "Pending plumbing", Skills: "plumbing", Location: "Kochi",
		Pay: "100", PayType: models.PayTypeHourly, Flag: models.JobFlagPending,
	}))

	// Matches title/skills case-insensitively, only approved posts.
	results, err := jobs.Search(ctx, models.JobFlagApproved, "PLUMB", 0, 50, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Plumbing repair", results[0].Title)

	results, err = jobs.Search(ctx, models.JobFlagApproved, "thrissur", 0, 50, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "House painting", results[0].Title)
}

func TestJobPostRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	jobs := NewJobPostRepository(db)
	ctx := context.Background()

	owner := seedUser(t, users, "owner@example.com")
	job := &models.JobPost{UserID: owner.ID, Title: "short gig", Pay: "50", PayType: models.PayTypeHourly}
	require.NoError(t, jobs.Create(ctx, job))

	require.NoError(t, jobs.Delete(ctx, job.ID))

	_, err := jobs.GetByID(ctx, job.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}
