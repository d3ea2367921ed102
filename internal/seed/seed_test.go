package seed

import (
	"testing"

	"workhive/internal/database"
	"workhive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestSeederRun(t *testing.T) {
	db := setupSeedDB(t)
	s := NewSeeder(db)

	require.NoError(t, s.Run(Options{
		NumUsers:    5,
		NumJobs:     10,
		NumMessages: 20,
		ShouldClean: true,
	}))

	var userCount, jobCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.JobPost{}).Count(&jobCount).Error)
	assert.EqualValues(t, 5, userCount)
	assert.EqualValues(t, 10, jobCount)

	// Every seeded message went through the dual-write path: two rows per
	// message ID, one per partition.
	type copyCount struct {
		MessageID string
		N         int64
	}
	var counts []copyCount
	require.NoError(t, db.Model(&models.ChatMessage{}).
		Select("message_id, COUNT(*) as n").
		Group("message_id").
		Scan(&counts).Error)
	for _, c := range counts {
		assert.EqualValues(t, 2, c.N, "message %s", c.MessageID)
	}
}

func TestSeederClearAll(t *testing.T) {
	db := setupSeedDB(t)
	s := NewSeeder(db)

	require.NoError(t, s.Run(Options{NumUsers: 3, NumJobs: 4, NumMessages: 5}))
	require.NoError(t, s.ClearAll())

	for _, model := range []interface{}{&models.User{}, &models.JobPost{}, &models.ChatMessage{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
}
