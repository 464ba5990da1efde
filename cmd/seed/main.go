// Command seed populates the database with demo data for development.
package main

import (
	"flag"
	"log"

	"quad/internal/config"
	"quad/internal/database"
	"quad/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store plaintext placeholder passwords (faster for large runs)")
	maxDays := flag.Int("max-days", 90, "Spread post timestamps over this many days")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		SkipBcrypt:  *skipBcrypt,
		MaxDays:     *maxDays,
	}
	if err := seed.Seed(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done. Test users have the password: password123")
}
