// Command main seeds the thoughts table from a fixture file or with fake data.
package main

import (
	"flag"
	"log/slog"
	"os"

	"happythoughts/internal/config"
	"happythoughts/internal/database"
	"happythoughts/internal/middleware"
	"happythoughts/internal/seed"
)

func main() {
	file := flag.String("file", "", "yaml fixture file to load")
	count := flag.Int("count", 50, "Number of fake thoughts to generate when no -file is given")
	reset := flag.Bool("reset", false, "Delete all thoughts before seeding")
	seedValue := flag.Uint64("rand-seed", 0, "Seed for fake data (0 picks a random one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)
	log := middleware.Logger

	db, err := database.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = database.Close(db) }()

	s := seed.NewSeeder(db)
	if *reset {
		if err := s.Reset(); err != nil {
			log.Error("Cleanup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var n int
	if *file != "" {
		fixtures, err := seed.LoadFixtures(*file)
		if err != nil {
			log.Error("Failed to load fixtures", slog.String("error", err.Error()))
			os.Exit(1)
		}
		n, err = s.SeedFixtures(fixtures)
		if err != nil {
			log.Error("Fixture seeding failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		n, err = s.SeedFake(seed.NewFactory(*seedValue), *count)
		if err != nil {
			log.Error("Fake seeding failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	log.Info("Seeding complete", slog.Int("thoughts", n))
}
