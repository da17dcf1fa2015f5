package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"fieldbook/internal/database"
	"fieldbook/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type FieldsConfig struct {
	Fields []models.Field `yaml:"fields"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		fieldsPath = flag.String("fields", "configs/config.yaml", "path to yaml with a fields section")
		dbPath     = flag.String("db", "./data/fieldbook.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*fieldsPath)
	if err != nil {
		return fmt.Errorf("read fields: %w", err)
	}
	var cfg FieldsConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse fields: %w", err)
	}
	if len(cfg.Fields) == 0 {
		return fmt.Errorf("no fields in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	updated := 0
	for i := range cfg.Fields {
		f := &cfg.Fields[i]
		if f.ID <= 0 || f.Name == "" {
			continue
		}
		_, err = db.GetField(ctx, f.ID)
		switch {
		case err == nil:
			updated++
		case errors.Is(err, database.ErrNotFound):
			created++
		default:
			return fmt.Errorf("get field %d: %w", f.ID, err)
		}
		if err = db.UpsertField(ctx, f); err != nil {
			return fmt.Errorf("upsert field %d: %w", f.ID, err)
		}
	}

	fmt.Printf("done: created=%d updated=%d\n", created, updated)
	return nil
}
