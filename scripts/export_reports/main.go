package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fieldbook/internal/database"
	"fieldbook/internal/export"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		dbPath  = flag.String("db", "./data/fieldbook.db", "path to sqlite db")
		outPath = flag.String("out", "./exports", "directory for xlsx files")
		from    = flag.String("from", "", "period start, YYYY-MM-DD (default: today)")
		days    = flag.Int("days", 7, "period length in days")
	)
	flag.Parse()

	start := time.Now().UTC().Truncate(24 * time.Hour)
	if *from != "" {
		parsed, err := time.Parse("2006-01-02", *from)
		if err != nil {
			return fmt.Errorf("parse -from: %w", err)
		}
		start = parsed
	}
	end := start.AddDate(0, 0, *days)

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	exporter := export.NewExporter(db, *outPath, &logger)

	schedulePath, err := exporter.ExportSchedule(ctx, start, end)
	if err != nil {
		return fmt.Errorf("export schedule: %w", err)
	}
	fmt.Printf("schedule: %s\n", schedulePath)

	revenuePath, err := exporter.ExportRevenue(ctx, start, end)
	if err != nil {
		return fmt.Errorf("export revenue: %w", err)
	}
	fmt.Printf("revenue: %s\n", revenuePath)
	return nil
}
