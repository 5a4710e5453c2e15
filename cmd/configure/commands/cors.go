package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benvon/portfolio/internal/database"
	"github.com/benvon/portfolio/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors command. The policy applies to /api/v1 only;
// the static site is same-origin.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage API CORS origins",
		Long:  "Show, set or reset the allowed origins for /api/v1. Without a stored policy the server allows FRONTEND_URL.",
	}
	cmd.AddCommand(newCorsListCmd())
	cmd.AddCommand(newCorsSetCmd())
	cmd.AddCommand(newCorsResetCmd())
	return cmd
}

func newCorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the CORS policy in force",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return listCors(ctx, cmd.OutOrStdout(), database.NewCorsConfigRepository(db), cfg.FrontendURL)
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Store a CORS policy",
		Example: "  portfolio-configure cors set --origins https://example.dev,https://www.example.dev",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &models.CorsConfig{
				ConfigKey:        models.CorsConfigKeyAPI,
				AllowedOrigins:   origins,
				AllowCredentials: allowCreds,
				MaxAge:           maxAge,
			}
			// Reject bad input before opening a connection.
			if err := c.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			_, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return setCors(ctx, cmd.OutOrStdout(), database.NewCorsConfigRepository(db), c)
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", false, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", defaultCorsMaxAge, "Access-Control-Max-Age (seconds)")
	_ = cmd.MarkFlagRequired("origins")
	return cmd
}

func newCorsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the stored policy and fall back to FRONTEND_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return resetCors(ctx, cmd.OutOrStdout(), database.NewCorsConfigRepository(db))
		},
	}
}

const defaultCorsMaxAge = 86400

func setCors(ctx context.Context, w io.Writer, store database.CorsConfigStore, c *models.CorsConfig) error {
	if err := store.Set(ctx, c); err != nil {
		return fmt.Errorf("set cors config: %w", err)
	}
	fmt.Fprintf(w, "API CORS origins set to %s. Servers pick this up on their next reload.\n", strings.Join(c.Origins(), ", "))
	return nil
}

func resetCors(ctx context.Context, w io.Writer, store database.CorsConfigStore) error {
	existed, err := store.Delete(ctx)
	if err != nil {
		return fmt.Errorf("reset cors config: %w", err)
	}
	if !existed {
		fmt.Fprintln(w, "No stored CORS policy; FRONTEND_URL is already in force.")
		return nil
	}
	fmt.Fprintln(w, "Stored CORS policy removed; servers fall back to FRONTEND_URL on their next reload.")
	return nil
}

func listCors(ctx context.Context, w io.Writer, store database.CorsConfigStore, frontendURL string) error {
	c, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("get cors config: %w", err)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Setting", "Value"})
	if c == nil {
		t.AppendRow(table.Row{"Allowed origins", strings.Join(models.SplitOrigins(frontendURL), "\n")})
		t.AppendRow(table.Row{"Allow credentials", false})
		t.AppendRow(table.Row{"Max-Age", defaultCorsMaxAge})
		t.AppendRow(table.Row{"Source", "FRONTEND_URL (no stored policy)"})
		t.Render()
		return nil
	}
	t.AppendRow(table.Row{"Allowed origins", strings.Join(c.Origins(), "\n")})
	t.AppendRow(table.Row{"Allow credentials", c.AllowCredentials})
	t.AppendRow(table.Row{"Max-Age", c.MaxAge})
	t.AppendRow(table.Row{"Updated", c.UpdatedAt.UTC().Format(time.RFC3339)})
	t.AppendRow(table.Row{"Source", "database"})
	t.Render()
	return nil
}
