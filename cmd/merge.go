package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge duplicate listings into a primary",
	Long: `Fold duplicate listings into a primary record.

Empty fields on the primary are backfilled from the duplicates, boosts
are re-pointed, the duplicate rows are deleted, and the primary is
rescored.

Example:
  merge --primary 42 --dups 57,91`,
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.Int64("primary", 0, "primary business id (required)")
	f.String("dups", "", "comma-separated duplicate ids (required)")
	_ = mergeCmd.MarkFlagRequired("primary")
	_ = mergeCmd.MarkFlagRequired("dups")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	primaryID, _ := cmd.Flags().GetInt64("primary")
	dupsRaw, _ := cmd.Flags().GetString("dups")

	dupIDs, err := parseIDList(dupsRaw)
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	merged, err := store.MergeBusinesses(ctx, primaryID, dupIDs)
	if err != nil {
		return eris.Wrap(err, "merge")
	}

	svc := newScoreService(store)
	score, err := svc.Calculate(ctx, primaryID)
	if err != nil {
		zap.L().Warn("merge: rescore failed", zap.Int64("primary_id", primaryID), zap.Error(err))
	}

	auditRecorder(store).Record(ctx, "cli", "duplicates.merge",
		strconv.FormatInt(primaryID, 10), map[string]any{"duplicate_ids": dupIDs})

	fmt.Printf("Merged %d listings into #%d (%s, %s)\n", len(dupIDs), merged.ID, merged.Name, merged.Suburb)
	if score != nil {
		fmt.Printf("New quality score: %d (%s)\n", score.EffectiveScore, score.Band)
	}
	return nil
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, eris.Errorf("invalid id %q in list", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, eris.New("no ids given")
	}
	return ids, nil
}
