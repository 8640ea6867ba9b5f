package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/suburbmates/directory-cli/internal/scorer"
)

var boostCmd = &cobra.Command{
	Use:   "boost",
	Short: "Manage manual quality score boosts",
}

var boostApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a manual boost to a listing",
	Long: `Apply a manual score adjustment. The amount may be negative
and is bounded by scorer.max_boost. A reason is required.

Examples:
  boost apply --business 42 --amount 10 --reason "featured partner"
  boost apply --business 42 --amount -5 --reason "stale photos" --expires 720h`,
	RunE: runBoostApply,
}

var boostRemoveCmd = &cobra.Command{
	Use:   "remove <boostId>",
	Short: "Remove a boost and restore the computed score",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoostRemove,
}

var boostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List boosts for a listing",
	RunE:  runBoostList,
}

var boostPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired boosts",
	Long: `Delete expired boost rows. Expired boosts already contribute
nothing to scores; this just clears them out of the table.`,
	RunE: runBoostPurge,
}

func init() {
	f := boostApplyCmd.Flags()
	f.Int64("business", 0, "business id (required)")
	f.Int("amount", 0, "boost amount, positive or negative (required)")
	f.String("reason", "", "reason for the adjustment (required)")
	f.String("category", "", "optional boost category")
	f.Duration("expires", 0, "optional lifetime, e.g. 720h (0 = permanent)")
	_ = boostApplyCmd.MarkFlagRequired("business")
	_ = boostApplyCmd.MarkFlagRequired("amount")
	_ = boostApplyCmd.MarkFlagRequired("reason")

	boostListCmd.Flags().Int64("business", 0, "business id (required)")
	_ = boostListCmd.MarkFlagRequired("business")

	boostCmd.AddCommand(boostApplyCmd, boostRemoveCmd, boostListCmd, boostPurgeCmd)
	rootCmd.AddCommand(boostCmd)
}

func runBoostApply(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	businessID, _ := cmd.Flags().GetInt64("business")
	amount, _ := cmd.Flags().GetInt("amount")
	reason, _ := cmd.Flags().GetString("reason")
	category, _ := cmd.Flags().GetString("category")
	expires, _ := cmd.Flags().GetDuration("expires")

	req := scorer.BoostRequest{
		BusinessID: businessID,
		Amount:     amount,
		Reason:     reason,
		Category:   category,
	}
	if expires > 0 {
		t := time.Now().Add(expires)
		req.ExpiresAt = &t
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := newScoreService(store)
	boost, score, err := svc.ApplyBoost(ctx, req)
	if err != nil {
		return eris.Wrap(err, "boost apply")
	}

	auditRecorder(store).Record(ctx, "cli", "quality.boost_apply",
		strconv.FormatInt(businessID, 10), boost)

	fmt.Printf("Boost %s applied: %d -> %d (%+d)\n",
		boost.ID, boost.OriginalScore, score.EffectiveScore, boost.BoostAmount)
	return nil
}

func runBoostRemove(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := newScoreService(store)
	score, err := svc.RemoveBoost(ctx, args[0])
	if err != nil {
		return eris.Wrap(err, "boost remove")
	}

	auditRecorder(store).Record(ctx, "cli", "quality.boost_remove", args[0], nil)

	fmt.Printf("Boost removed; score is now %d (%s)\n", score.EffectiveScore, score.Band)
	return nil
}

func runBoostList(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	businessID, _ := cmd.Flags().GetInt64("business")

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	boosts, err := store.ListBoosts(ctx, businessID)
	if err != nil {
		return eris.Wrap(err, "boost list")
	}
	if len(boosts) == 0 {
		fmt.Println("No boosts.")
		return nil
	}

	now := time.Now()
	for _, b := range boosts {
		status := "active"
		if !b.Active(now) {
			status = "expired"
		}
		expiry := "never"
		if b.ExpiresAt != nil {
			expiry = b.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %+4d  %-8s expires=%s  %s\n", b.ID, b.BoostAmount, status, expiry, b.Reason)
	}
	return nil
}

func runBoostPurge(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.PurgeExpiredBoosts(ctx)
	if err != nil {
		return eris.Wrap(err, "boost purge")
	}

	fmt.Printf("Purged %d expired boosts\n", n)
	return nil
}
