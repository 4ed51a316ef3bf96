package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"go-reports/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// PostgresDB wraps the primary relational store.
type PostgresDB struct {
	DB *sql.DB
}

// NewPostgres opens the report store and registers lifecycle hooks.
func NewPostgres(lc fx.Lifecycle, cfg *config.Config) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	log.Println("Connected to PostgreSQL!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Closing PostgreSQL connection...")
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}
