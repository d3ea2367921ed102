// Command main runs the database seeder for Workhive.
package main

import (
	"flag"
	"log"

	"workhive/internal/config"
	"workhive/internal/database"
	"workhive/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numJobs := flag.Int("jobs", 80, "Number of job posts to create")
	numMessages := flag.Int("messages", 200, "Number of chat messages to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if err := s.Run(seed.Options{
		NumUsers:    *numUsers,
		NumJobs:     *numJobs,
		NumMessages: *numMessages,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done. Every seeded account logs in with password %q.", seed.DemoPassword)
}
