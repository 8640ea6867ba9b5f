package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/suburbmates/directory-cli/internal/business"
	"github.com/suburbmates/directory-cli/internal/dedupe"
	"github.com/suburbmates/directory-cli/internal/model"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Detect duplicate listings",
	Long: `Scan the directory for duplicate business listings.

Strict matches share a normalized phone number, website hostname, or
name+suburb. Loose matches are same-suburb listings with fuzzy-similar
names. Transitively connected records are reported as one group.

Examples:
  # Report to stdout as a table
  duplicates

  # Narrow to one suburb, emit YAML for review
  duplicates --suburb Richmond --format yaml --output dups.yaml`,
	RunE: runDuplicates,
}

func init() {
	f := duplicatesCmd.Flags()
	f.String("suburb", "", "only scan listings in this suburb")
	f.Int("limit", 0, "maximum listings to scan (0=config default)")
	f.String("format", "table", "output format: table, json, or yaml")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(duplicatesCmd)
}

func runDuplicates(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" && format != "yaml" {
		return eris.Errorf("duplicates: --format must be table, json, or yaml (got %q)", format)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	suburb, _ := cmd.Flags().GetString("suburb")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cfg.Dedupe.MaxRecords
	}

	listings, err := store.ListBusinesses(ctx, business.Filter{Suburb: suburb, Limit: limit})
	if err != nil {
		return eris.Wrap(err, "duplicates: list businesses")
	}

	detector := dedupe.NewDetector(cfg.Dedupe.LooseThreshold)
	groups := detector.Detect(listings)

	zap.L().Info("duplicate detection complete",
		zap.Int("scanned", len(listings)),
		zap.Int("groups", len(groups)),
	)

	outputPath, _ := cmd.Flags().GetString("output")
	w := os.Stdout
	if outputPath != "" {
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "duplicates: create output file %s", outputPath)
		}
		defer w.Close()
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	case "yaml":
		return yaml.NewEncoder(w).Encode(groups)
	default:
		writeGroupTable(w, groups)
		return nil
	}
}

func writeGroupTable(w *os.File, groups []model.DuplicateGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No duplicate groups found.")
		return
	}

	for i, g := range groups {
		fmt.Fprintf(w, "Group %d: %s match, confidence %d, priority %s\n",
			i+1, g.MatchType, g.Confidence, g.Recommendation.Priority)
		for _, b := range g.Businesses {
			marker := " "
			if b.ID == g.Recommendation.SuggestedPrimaryID {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s #%-6d %-40s %s\n", marker, b.ID, truncate(b.Name, 40), b.Suburb)
		}
		fmt.Fprintf(w, "  %s\n", g.Recommendation.Reasoning)
		if len(g.Recommendation.PotentialDataLoss) > 0 {
			fmt.Fprintf(w, "  potential data loss: %s\n", strings.Join(g.Recommendation.PotentialDataLoss, ", "))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d groups. * = suggested primary.\n", len(groups))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
