// Command seed loads the preference catalog and optional demo data.
package main

import (
	"flag"
	"log"
	"time"

	"pulsevote/internal/bootstrap"
	"pulsevote/internal/config"
	"pulsevote/internal/seed"
)

func main() {
	demo := flag.Bool("demo", false, "Also create fake profiles, groups, surveys and votes")
	clean := flag.Bool("clean", false, "Remove existing demo rows before seeding")
	profiles := flag.Int("profiles", seed.DefaultOptions.Profiles, "Number of demo profiles")
	surveys := flag.Int("surveys", seed.DefaultOptions.Surveys, "Number of demo public surveys")
	groups := flag.Int("groups", seed.DefaultOptions.Groups, "Number of demo groups")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for repeatable demo data")
	flag.Parse()

	log.Println("🌱 Database Seeder")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedCatalog: true})
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if !*demo {
		log.Println("✨ Preference catalog seeded.")
		return
	}

	opts := seed.DefaultOptions
	opts.Profiles = *profiles
	opts.Surveys = *surveys
	opts.Groups = *groups
	s := seed.NewSeeder(db, opts, *randSeed)

	if *clean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	res, err := s.Demo()
	if err != nil {
		log.Fatalf("❌ Demo seeding failed: %v", err)
	}
	log.Printf("✨ All done! Admin profile: %s (%s)", res.Admin.ID, res.Admin.Email)
}
