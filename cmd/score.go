package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/business"
	"github.com/suburbmates/directory-cli/internal/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score [businessId]",
	Short: "Compute quality scores",
	Long: `Recompute quality scores for directory listings.

With a business ID, scores that listing and prints the factor breakdown.
Without arguments, rescores every listing matching the filters and
refreshes the cached scores.

Examples:
  # Score one business with full breakdown
  score 42

  # Rescore every listing in a suburb
  score --suburb Richmond

  # Rescore everything with 8 workers
  score --workers 8`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("suburb", "", "only rescore listings in this suburb")
	f.Int("limit", 0, "maximum listings to rescore (0=config default)")
	f.Int("workers", 4, "concurrent scoring workers")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := newScoreService(store)

	// Single-business mode.
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Errorf("score: invalid business id %q", args[0])
		}
		score, err := svc.Calculate(ctx, id)
		if err != nil {
			return eris.Wrapf(err, "score: business %d", id)
		}
		printScore(score)
		return nil
	}

	suburb, _ := cmd.Flags().GetString("suburb")
	limit, _ := cmd.Flags().GetInt("limit")
	workers, _ := cmd.Flags().GetInt("workers")
	if limit <= 0 {
		limit = cfg.Dedupe.MaxRecords
	}

	zap.L().Info("rescoring listings",
		zap.String("suburb", suburb),
		zap.Int("limit", limit),
		zap.Int("workers", workers),
	)

	n, err := svc.RescoreAll(ctx, business.Filter{Suburb: suburb, Limit: limit}, workers)
	if err != nil {
		return eris.Wrap(err, "score: rescore all")
	}

	fmt.Printf("Rescored %d listings\n", n)
	return nil
}

func printScore(s *model.QualityScore) {
	fmt.Printf("Business: %d\n", s.BusinessID)
	fmt.Printf("Base:     %d\n", s.BaseScore)
	if s.BoostTotal != 0 {
		fmt.Printf("Boosts:   %+d\n", s.BoostTotal)
	}
	fmt.Printf("Score:    %d / 100 (%s)\n", s.EffectiveScore, s.Band)

	fmt.Println("\nBreakdown:")
	for _, f := range s.Breakdown {
		fmt.Printf("  %-18s %3d / %-3d %s\n", f.Name, f.Earned, f.Max, f.Status)
	}

	if len(s.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range s.Recommendations {
			fmt.Printf("  [%-6s] %s\n", rec.Priority, rec.Message)
		}
	}
}
