// Command seed fills the configured database with demo marketplace data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"resort/internal/config"
	"resort/internal/database"
	"resort/internal/middleware"
	"resort/internal/seed"
)

func main() {
	preset := flag.String("preset", "", "YAML preset file")
	profiles := flag.Int("profiles", 0, "number of guest profiles")
	hosts := flag.Int("hosts", 0, "number of host profiles")
	listings := flag.Int("listings", 0, "number of listings")
	seedValue := flag.Int64("seed", 0, "random seed")
	fast := flag.Bool("fast", false, "hash passwords at minimum bcrypt cost")
	flag.Parse()

	opts := seed.DefaultOptions()
	if *preset != "" {
		var err error
		if opts, err = seed.LoadPreset(*preset, opts); err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
	}
	// explicit flags win over the preset
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "profiles":
			opts.Profiles = *profiles
		case "hosts":
			opts.Hosts = *hosts
		case "listings":
			opts.Listings = *listings
		case "seed":
			opts.Seed = *seedValue
		case "fast":
			opts.Fast = *fast
		}
	})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sum, err := seed.NewSeeder(db, opts).Run(context.Background())
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Printf("Seeded %d profiles, %d accommodations, %d experiences, %d connections, %d messages, %d comments, %d favorites, %d events, %d host applications\n",
		sum.Profiles, sum.Accommodations, sum.Experiences, sum.Connections, sum.Messages,
		sum.Comments, sum.Favorites, sum.Events, sum.HostApplications)
	fmt.Printf("All seeded accounts use the password %q\n", opts.Password)
}
