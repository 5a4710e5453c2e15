package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benvon/portfolio/internal/database"
	"github.com/benvon/portfolio/internal/models"
	"github.com/benvon/portfolio/internal/ratelimit"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage gate rate limits",
		Long:  "List or update the page and contact gate rates (e.g. 100-M, 5-M). Stored in database; servers pick changes up on their next reload.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			defaults := map[string]string{
				models.RatelimitKeyPage:    cfg.PageRateLimit,
				models.RatelimitKeyContact: cfg.ContactRateLimit,
			}
			return listRatelimits(ctx, cmd.OutOrStdout(), database.NewRatelimitConfigRepository(db), defaults)
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var gate, rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a gate's rate limit",
		Long:  "Update the rate of one gate (page or contact), e.g. --gate page --rate 100-M.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate before connecting.
			if _, err := parseGateRate(gate, rate); err != nil {
				return err
			}
			ctx := cmd.Context()
			_, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := setRatelimit(ctx, database.NewRatelimitConfigRepository(db), gate, rate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate limit for %s gate set to %s.\n", gate, strings.TrimSpace(rate))
			return nil
		},
	}
	cmd.Flags().StringVar(&gate, "gate", "", "Gate to configure: "+strings.Join(models.RatelimitKeys, " or ")+" (required)")
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}

// parseGateRate checks the gate name and parses the rate.
func parseGateRate(gate, rate string) (ratelimit.Policy, error) {
	cfg := &models.RatelimitConfig{ConfigKey: gate, Rate: rate}
	if err := database.ValidateRatelimitConfig(cfg); err != nil {
		return ratelimit.Policy{}, err
	}
	return ratelimit.ParsePolicy(rate)
}

func setRatelimit(ctx context.Context, store database.RatelimitConfigStore, gate, rate string) error {
	if _, err := parseGateRate(gate, rate); err != nil {
		return err
	}
	if err := store.Set(ctx, &models.RatelimitConfig{ConfigKey: gate, Rate: strings.TrimSpace(rate)}); err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}
	return nil
}

// listRatelimits prints one row per gate. Gates without a stored row show the
// configured default the server would seed.
func listRatelimits(ctx context.Context, w io.Writer, store database.RatelimitConfigStore, defaults map[string]string) error {
	stored, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list ratelimit config: %w", err)
	}
	byKey := make(map[string]*models.RatelimitConfig, len(stored))
	for _, c := range stored {
		byKey[c.ConfigKey] = c
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Gate", "Rate", "Limit", "Window", "Source", "Updated"})
	for _, key := range models.RatelimitKeys {
		rate, source, updated := defaults[key], "default", "-"
		if c, ok := byKey[key]; ok {
			rate, source, updated = c.Rate, "database", c.UpdatedAt.UTC().Format(time.RFC3339)
		}
		limit, window := "invalid", "-"
		if p, err := ratelimit.ParsePolicy(rate); err == nil {
			limit, window = fmt.Sprint(p.Limit), p.Window.String()
		}
		t.AppendRow(table.Row{key, rate, limit, window, source, updated})
	}
	t.Render()
	return nil
}
