// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"workhive/internal/models"
	"workhive/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Every seeded account shares this password so seeded logins are easy.
const DemoPassword = "password123"

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumJobs     int
	NumMessages int
	ShouldClean bool
}

// Seeder populates the database with demo users, job posts and chats.
type Seeder struct {
	db   *gorm.DB
	chat repository.ChatRepository
	rng  *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:   db,
		chat: repository.NewChatRepository(db),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll wipes the seeded tables. Chats first, then jobs, then users, to
// respect foreign keys.
func (s *Seeder) ClearAll() error {
	for _, table := range []string{"chat_messages", "job_posts", "users"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Run seeds the database according to opts.
func (s *Seeder) Run(opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	users, err := s.SeedUsers(opts.NumUsers)
	if err != nil {
		return err
	}
	if _, err := s.SeedJobs(users, opts.NumJobs); err != nil {
		return err
	}
	if err := s.SeedChats(users, opts.NumMessages); err != nil {
		return err
	}

	log.Printf("seeded %d users, %d jobs, %d messages", opts.NumUsers, opts.NumJobs, opts.NumMessages)
	return nil
}

// SeedUsers creates n users with the shared demo password.
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		user := models.User{
			Email:    fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			Password: string(hash),
			FullName: gofakeit.Name(),
			Place:    gofakeit.City(),
			Skills:   gofakeit.JobTitle(),
			Pic:      fmt.Sprintf("https://picsum.photos/seed/%s/200/200", gofakeit.UUID()),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("seed user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

var jobTitles = []string{
	"Kitchen sink repair", "Garden fencing", "House painting", "Wardrobe assembly",
	"Roof tile replacement", "Bathroom retiling", "Electrical rewiring", "AC servicing",
	"Furniture restoration", "Driveway paving",
}

// SeedJobs creates n job posts spread across users and moderation states.
// Roughly two thirds come out approved so the browse feed has content.
func (s *Seeder) SeedJobs(users []models.User, n int) ([]models.JobPost, error) {
	if len(users) == 0 {
		return nil, nil
	}

	flags := []models.JobFlag{
		models.JobFlagApproved, models.JobFlagApproved, models.JobFlagApproved,
		models.JobFlagApproved, models.JobFlagPending, models.JobFlagRejected,
	}
	payTypes := []models.PayType{models.PayTypeDaily, models.PayTypeHourly}

	jobs := make([]models.JobPost, 0, n)
	for i := 0; i < n; i++ {
		owner := users[s.rng.Intn(len(users))]
		job := models.JobPost{
			UserID:      owner.ID,
			Title:       jobTitles[s.rng.Intn(len(jobTitles))],
			Description: gofakeit.Paragraph(1, 3, 8, " "),
			Skills:      gofakeit.JobDescriptor(),
			Location:    owner.Place,
			Pay:         fmt.Sprintf("%d", 100+s.rng.Intn(1900)),
			PayType:     payTypes[s.rng.Intn(len(payTypes))],
			Flag:        flags[s.rng.Intn(len(flags))],
		}
		for p := 0; p < s.rng.Intn(models.MaxJobAttachments+1); p++ {
			job.URLList = append(job.URLList,
				fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID()))
		}
		if err := s.db.Create(&job).Error; err != nil {
			return nil, fmt.Errorf("seed job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// SeedChats creates n messages between random user pairs, delivered through
// the repository so both partition copies land exactly as production writes
// them.
func (s *Seeder) SeedChats(users []models.User, n int) error {
	if len(users) < 2 {
		return nil
	}
	ctx := context.Background()

	for i := 0; i < n; i++ {
		sender := users[s.rng.Intn(len(users))]
		receiver := users[s.rng.Intn(len(users))]
		if sender.ID == receiver.ID {
			continue
		}

		at := time.Now().Add(-time.Duration(s.rng.Intn(72)) * time.Hour)
		base := models.ChatMessage{
			MessageID:  gofakeit.UUID(),
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Date:       models.FormatMessageDate(at),
			Time:       models.FormatMessageTime(at),
			Message:    gofakeit.HipsterSentence(6),
			FileType:   models.FileTypeText,
			SenderName: sender.FullName,
			SenderPic:  sender.Pic,
			Flag:       models.MessageFlagUnread,
		}

		senderCopy := base
		senderCopy.PartitionOwnerID = sender.ID
		receiverCopy := base
		receiverCopy.PartitionOwnerID = receiver.ID

		if err := s.chat.Deliver(ctx, &senderCopy, &receiverCopy); err != nil {
			return fmt.Errorf("seed chat: %w", err)
		}
	}
	return nil
}
