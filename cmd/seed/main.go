// Command seed fills the database with demo freelancers.
package main

import (
	"context"
	"flag"
	"log"

	"gigfolio/internal/config"
	"gigfolio/internal/database"
	"gigfolio/internal/seed"
	"gigfolio/internal/storage"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of freelancers to create")
	numFiles := flag.Int("files", 2, "Portfolio files per freelancer")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("rand-seed", 0, "Seed for reproducible fake data (0 = random)")
	flag.Parse()

	log.Printf("Seeding %d freelancers with %d files each, clean=%v", *numUsers, *numFiles, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	dir, err := storage.NewDir(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to open upload directory: %v", err)
	}

	s := seed.NewSeeder(db, dir, *randSeed)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	users, err := s.SeedFreelancers(context.Background(), seed.Options{Users: *numUsers, FilesPerUser: *numFiles})
	if err != nil {
		log.Fatalf("Seeding failed after %d users: %v", len(users), err)
	}

	log.Printf("Created %d freelancers", len(users))
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
