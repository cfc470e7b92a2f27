// vecquizctl is an operator CLI for a running vecquiz server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vecquiz/internal/version"
	"github.com/kailas-cloud/vecquiz/pkg/sdk"
)

var (
	addr    string
	apiKey  string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vecquizctl",
		Short:         "Inspect a vecquiz server",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&addr, "addr", envOr("VECQUIZ_ADDR", "http://localhost:8080"), "server base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("VECQUIZ_API_KEY"), "bearer API key")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	var limit int
	leaderboardCmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLeaderboard(cmd.Context(), limit)
		},
	}
	leaderboardCmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries")

	var period string
	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Show embedding token usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUsage(cmd.Context(), period)
		},
	}
	usageCmd.Flags().StringVarP(&period, "period", "p", "day", "budget period (day or month)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Check server health",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return runHealth(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "active",
			Short: "Count active players",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return runActive(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "best <player>",
			Short: "Show a player's high score",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return runBest(cmd.Context(), args[0]) },
		},
		leaderboardCmd,
		usageCmd,
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newClient() (*sdk.Client, error) {
	c, err := sdk.New(addr,
		sdk.WithAPIKey(apiKey),
		sdk.WithTimeout(timeout),
		sdk.WithUserAgent("vecquizctl/"+version.Version),
	)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	return c, nil
}

func runHealth(ctx context.Context) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	h, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	printStatus := func(label, status string) {
		if status == "ok" {
			green.Printf("%-20s %s\n", label, status)
			return
		}
		red.Printf("%-20s %s\n", label, status)
	}

	printStatus("status", h.Status)
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printStatus("  "+name, h.Checks[name])
	}
	if h.Status != "ok" {
		return errors.New("server is degraded")
	}
	return nil
}

func runLeaderboard(ctx context.Context, limit int) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	entries, err := c.Leaderboard(ctx, limit)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	if len(entries) == 0 {
		color.New(color.FgHiBlack).Println("no scores yet")
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("%4s  %-32s %s\n", "RANK", "PLAYER", "HIGH SCORE")
	for _, e := range entries {
		fmt.Printf("%4d  %-32s %d\n", e.Rank, e.Player, e.HighScore)
	}
	return nil
}

func runBest(ctx context.Context, player string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	best, err := c.PlayerBest(ctx, player)
	if errors.Is(err, sdk.ErrPlayerNotFound) {
		color.New(color.FgHiBlack).Printf("%s has not finished a game\n", player)
		return nil
	}
	if err != nil {
		return fmt.Errorf("player best: %w", err)
	}
	fmt.Printf("%s  %d\n", best.Player, best.HighScore)
	return nil
}

func runActive(ctx context.Context) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	a, err := c.ActivePlayers(ctx)
	if err != nil {
		return fmt.Errorf("active players: %w", err)
	}
	fmt.Printf("%d active in the last %s\n", a.Active, time.Duration(a.WindowSeconds)*time.Second)
	return nil
}

func runUsage(ctx context.Context, period string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	u, err := c.Usage(ctx, period)
	if err != nil {
		return fmt.Errorf("usage: %w", err)
	}

	fmt.Printf("period     %s (%s - %s)\n", u.Period,
		u.PeriodStart.Format(time.RFC3339), u.PeriodEnd.Format(time.RFC3339))
	fmt.Printf("used       %d\n", u.TokensUsed)
	if u.TokensRemaining == nil {
		color.New(color.FgHiBlack).Println("limit      unlimited")
		return nil
	}
	fmt.Printf("limit      %d\n", u.TokensLimit)

	remaining := color.New(color.FgGreen)
	if u.Exhausted {
		remaining = color.New(color.FgRed, color.Bold)
	}
	remaining.Printf("remaining  %d\n", *u.TokensRemaining)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
