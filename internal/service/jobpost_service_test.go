package service

import (
	"context"
	"testing"

	"workhive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validJob(userID uint) CreateJobInput {
	return CreateJobInput{
		UserID:      userID,
		Title:       "Garden maintenance",
		Description: "Weekly upkeep of a small garden",
		Skills:      "gardening",
		Location:    "Kochi",
		Pay:         "500",
		PayType:     "Daily",
	}
}

func signupUser(t *testing.T, env *testEnv, email string) *models.User {
	t.Helper()
	user, err := env.userSvc.Signup(context.Background(), validSignup(email))
	require.NoError(t, err)
	return user
}

func TestJobPostService_CreateStartsPending(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	owner := signupUser(t, env, "owner@example.com")

	job, err := env.jobSvc.Create(ctx, validJob(owner.ID), []string{"https://storage.local/jobposts/1/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, models.JobFlagPending, job.Flag)
	assert.Len(t, job.URLList, 1)
}

func TestJobPostService_CreateValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	owner := signupUser(t, env, "owner@example.com")

	tests := []struct {
		name string
		in   CreateJobInput
		urls []string
	}{
		{"missing title", func() CreateJobInput { in := validJob(owner.ID); in.Title = ""; return in }(), []string{"u"}},
		{"bad pay type", func() CreateJobInput { in := validJob(owner.ID); in.PayType = "Weekly"; return in }(), []string{"u"}},
		{"no attachments", validJob(owner.ID), nil},
		{"too many attachments", validJob(owner.ID), []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.jobSvc.Create(ctx, tt.in, tt.urls)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeValidation, appErr.Code)
		})
	}
}

func TestJobPostService_UpdateEnforcesCapAndOwnership(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	owner := signupUser(t, env, "owner@example.com")
	stranger := signupUser(t, env, "stranger@example.com")

	job, err := env.jobSvc.Create(ctx, validJob(owner.ID), []string{"a", "b"})
	require.NoError(t, err)

	// Edit that would exceed the cap fails before anything changes.
	_, err = env.jobSvc.Update(ctx, UpdateJobInput{JobID: job.ID, UserID: owner.ID}, []string{"c", "d"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	// A stranger cannot edit at all.
	_, err = env.jobSvc.Update(ctx, UpdateJobInput{JobID: job.ID, UserID: stranger.ID, Title: "hijack"}, nil)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)

	// A legal edit merges fields and appends within the cap.
	updated, err := env.jobSvc.Update(ctx, UpdateJobInput{JobID: job.ID, UserID: owner.ID, Pay: "600"}, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, "600", updated.Pay)
	assert.Equal(t, "Garden maintenance", updated.Title)
	assert.Len(t, updated.URLList, 3)
}

func TestJobPostService_ModerateLifecycle(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	owner := signupUser(t, env, "owner@example.com")

	job, err := env.jobSvc.Create(ctx, validJob(owner.ID), []string{"a"})
	require.NoError(t, err)

	// Pending -> Approved.
	approved, err := env.jobSvc.Moderate(ctx, job.ID, models.JobFlagApproved)
	require.NoError(t, err)
	assert.Equal(t, models.JobFlagApproved, approved.Flag)

	// Same decision again is an idempotent no-op.
	again, err := env.jobSvc.Moderate(ctx, job.ID, models.JobFlagApproved)
	require.NoError(t, err)
	assert.Equal(t, models.JobFlagApproved, again.Flag)

	// Flipping a terminal state conflicts.
	_, err = env.jobSvc.Moderate(ctx, job.ID, models.JobFlagRejected)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)

	// Pending is not a decision.
	_, err = env.jobSvc.Moderate(ctx, job.ID, models.JobFlagPending)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestJobPostService_BrowseExcludesOwnPosts(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	owner := signupUser(t, env, "owner@example.com")
	viewer := signupUser(t, env, "viewer@example.com")

	job, err := env.jobSvc.Create(ctx, validJob(owner.ID), []string{"a"})
	require.NoError(t, err)
	_, err = env.jobSvc.Moderate(ctx, job.ID, models.JobFlagApproved)
	require.NoError(t, err)

	mine, err := env.jobSvc.Create(ctx, validJob(viewer.ID), []string{"a"})
	require.NoError(t, err)
	_, err = env.jobSvc.Moderate(ctx, mine.ID, models.JobFlagApproved)
	require.NoError(t, err)

	listed, err := env.jobSvc.Browse(ctx, viewer.ID, "", 50, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, owner.ID, listed[0].UserID)

	// Search also respects the exclusion and the approved filter.
	listed, err = env.jobSvc.Browse(ctx, viewer.ID, "garden", 50, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, owner.ID, listed[0].UserID)
}

func TestJobPostService_DeleteOwnerAndAdmin(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	owner := signupUser(t, env, "owner@example.com")
	stranger := signupUser(t, env, "stranger@example.com")
	require.NoError(t, env.userSvc.EnsureAdmin(ctx, "admin@example.com", "adminpassword"))
	admin, err := env.userSvc.Login(ctx, "admin@example.com", "adminpassword")
	require.NoError(t, err)

	job, err := env.jobSvc.Create(ctx, validJob(owner.ID), []string{"a"})
	require.NoError(t, err)

	// Stranger cannot delete.
	err = env.jobSvc.Delete(ctx, job.ID, stranger.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)

	// Owner can.
	require.NoError(t, env.jobSvc.Delete(ctx, job.ID, owner.ID))

	// Admin can delete anyone's post regardless of flag.
	job2, err := env.jobSvc.Create(ctx, validJob(owner.ID), []string{"a"})
	require.NoError(t, err)
	require.NoError(t, env.jobSvc.Delete(ctx, job2.ID, admin.ID))
}
