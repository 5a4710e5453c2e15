package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/benvon/portfolio/internal/config"
	"github.com/benvon/portfolio/internal/database"
	"github.com/jedib0t/go-pretty/v6/table"
)

// errNoDatabase is returned when DATABASE_URL is unset.
var errNoDatabase = errors.New("DATABASE_URL is not set; operator configuration lives in Postgres")

// openDB loads configuration and connects to the operator database, creating
// the configuration tables if needed.
func openDB(ctx context.Context) (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, errNoDatabase
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return cfg, db, nil
}

// newTable returns a rounded table writing to w on Render.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}
