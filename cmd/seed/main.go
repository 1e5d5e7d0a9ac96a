// Command seed populates the database with demo FarmLink data.
package main

import (
	"context"
	"flag"
	"log"

	"farmlink/internal/config"
	"farmlink/internal/database"
	"farmlink/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.AccountsPerRole, "accounts", opts.AccountsPerRole, "Number of accounts to create per role")
	flag.IntVar(&opts.Posts, "posts", opts.Posts, "Number of posts to create")
	flag.IntVar(&opts.MaxDays, "days", opts.MaxDays, "Spread post timestamps over this many days")
	flag.Int64Var(&opts.Seed, "seed", 0, "Random seed for reproducible data (0 is random)")
	flag.BoolVar(&opts.Clean, "clean", false, "Delete existing data before seeding")
	flag.BoolVar(&opts.SkipSchemes, "skip-schemes", false, "Leave the government scheme catalogue untouched")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d accounts per role, %d posts, clean=%v\n", opts.AccountsPerRole, opts.Posts, opts.Clean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.Seed(context.Background(), db, opts)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Created %d accounts and %d posts, upserted %d schemes.\n", summary.Accounts, summary.Posts, summary.Schemes)
	log.Printf("📱 All seeded accounts have the password: %s\n", seed.DefaultPassword)
}
