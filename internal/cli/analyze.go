package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	service "github.com/okian/leakscan/internal/app"
	"github.com/okian/leakscan/internal/config"
	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/pkg/logger"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <username>",
		Short: "Analyze a player's openings and print the leaks",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}

	cmd.Flags().IntP("games", "g", 0, "Number of recent games to fetch (default from config)")
	cmd.Flags().IntP("moves", "m", 0, "Opening moves per game to replay (default from config)")
	cmd.Flags().IntP("threshold", "t", 0, "Centipawn loss above which a habit is a leak (default from config)")
	cmd.Flags().String("games-url", "", "Override games_base_url")
	cmd.Flags().String("oracle-url", "", "Override oracle_base_url")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := resolveFormat(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	games, _ := cmd.Flags().GetInt("games")
	moves, _ := cmd.Flags().GetInt("moves")
	threshold, _ := cmd.Flags().GetInt("threshold")

	svc := service.NewFromConfig(cfg, service.WithLogger(logger.Get().Named("service")))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer svc.Stop()

	report, err := svc.Analyze(ctx, args[0], model.Options{
		MaxGames:        games,
		MaxOpeningMoves: moves,
		CPLossThreshold: threshold,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == formatText {
		return renderText(out, report)
	}
	return renderJSON(out, report)
}

// loadConfig loads configuration, applies flag overrides and points logs at
// stderr so stdout carries only the report.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if u, _ := cmd.Flags().GetString("games-url"); u != "" {
		cfg.GamesBaseURL = u
	}
	if u, _ := cmd.Flags().GetString("oracle-url"); u != "" {
		cfg.OracleBaseURL = u
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	if err := logger.InitWith(os.Stderr, logger.Format(cfg.LogFormat)); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}
