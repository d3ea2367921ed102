// Command main applies the GORM schema migrations. Production deploys run it
// explicitly; in other environments the server migrates at startup.
package main

import (
	"log"

	"workhive/internal/config"
	"workhive/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations applied.")
}
