// Command main runs the database seeder for warbler.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numMessages := flag.Int("messages", defaults.NumMessages, "Number of messages to create")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Follows per user")
	likes := flag.Int("likes", defaults.LikesPerUser, "Likes per user")
	conversations := flag.Int("conversations", defaults.Conversations, "Number of conversations to open")
	dms := flag.Int("dms", defaults.DMsPerConversation, "Direct messages per conversation")
	shouldClean := flag.Bool("clean", defaults.ShouldClean, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a built-in preset ("+strings.Join(seed.BuiltinPresetNames(), ", ")+")")
	presetFile := flag.String("preset-file", "", "Apply a preset read from a YAML file")
	fast := flag.Bool("fast", false, "Hash passwords at minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Build entities without writing anything")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible runs")
	flag.Parse()

	log := middleware.Logger

	opts := seed.Options{
		NumUsers:           *numUsers,
		NumMessages:        *numMessages,
		FollowsPerUser:     *follows,
		LikesPerUser:       *likes,
		Conversations:      *conversations,
		DMsPerConversation: *dms,
		ShouldClean:        *shouldClean,
		FastHash:           *fast,
		DryRun:             *dryRun,
		MaxDays:            defaults.MaxDays,
		BatchSize:          defaults.BatchSize,
		RandSeed:           *randSeed,
	}

	p, err := loadPreset(*preset, *presetFile)
	if err != nil {
		fatal("Invalid preset", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fatal("Failed to load configuration", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		fatal("Failed to connect to database", err)
	}
	defer func() { _ = database.Close() }()

	s := seed.NewSeeder(db, opts)

	var summary seed.Summary
	if p != nil {
		log.Info("Applying preset, count flags are taken from the preset fill", slog.String("preset", p.Name))
		if opts.ShouldClean {
			if err := s.ClearAll(); err != nil {
				fatal("Cleanup failed", err)
			}
		}
		if err := s.ApplyPreset(p); err != nil {
			fatal("Preset seeding failed", err)
		}
		summary = s.Summary()
	} else {
		summary, err = s.Run()
		if err != nil {
			fatal("Seeding failed", err)
		}
	}

	fmt.Println(summary.String())
	fmt.Printf("All generated users have the password: %s\n", seed.DefaultPassword)
}

func loadPreset(name, file string) (*seed.Preset, error) {
	switch {
	case name != "" && file != "":
		return nil, fmt.Errorf("-preset and -preset-file are mutually exclusive")
	case file != "":
		return seed.LoadPreset(file)
	case name != "":
		return seed.BuiltinPreset(name)
	}
	return nil, nil
}

func fatal(msg string, err error) {
	middleware.Logger.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}
