package service

import (
	"os"
	"testing"

	"workhive/internal/database"
	"workhive/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

type testEnv struct {
	db      *gorm.DB
	users   repository.UserRepository
	jobs    repository.JobPostRepository
	chats   repository.ChatRepository
	userSvc *UserService
	jobSvc  *JobPostService
	chatSvc *ChatService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	users := repository.NewUserRepository(db)
	jobs := repository.NewJobPostRepository(db)
	chats := repository.NewChatRepository(db)

	userSvc := NewUserService(users)
	jobSvc := NewJobPostService(jobs, userSvc.IsAdmin)
	chatSvc := NewChatService(chats, users, nil)

	return &testEnv{
		db:      db,
		users:   users,
		jobs:    jobs,
		chats:   chats,
		userSvc: userSvc,
		jobSvc:  jobSvc,
		chatSvc: chatSvc,
	}
}
