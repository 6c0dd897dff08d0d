package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/reconcile"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Query reconciled regions",
	Long:  "Loads every source (cache first), reconciles them and prints the resulting regions.",
}

// -- regions list --

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every reconciled region",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := loadSnapshot(cmd.Context(), cfg, newSources(cfg))
		if err != nil {
			return err
		}
		logWarnings(snap)

		format, _ := cmd.Flags().GetString("output")
		return printEntities(os.Stdout, format, snap.Entities())
	},
}

// -- regions get --

var regionsGetCmd = &cobra.Command{
	Use:   "get <ags|object-id>",
	Short: "Show one region by AGS or, with --object-id, by RKI object ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context(), cfg, newSources(cfg))
		if err != nil {
			return err
		}

		byObject, _ := cmd.Flags().GetBool("object-id")
		var (
			ent model.UnifiedEntity
			ok  bool
		)
		if byObject {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid object id %q", args[0])
			}
			ent, ok = snap.ByObjectID(id)
		} else {
			ent, ok = snap.ByKey(args[0])
		}
		if !ok {
			return fmt.Errorf("region not found: %s", args[0])
		}

		format, _ := cmd.Flags().GetString("output")
		if format == "" || format == "table" {
			format = "yaml"
		}
		return printEntities(os.Stdout, format, []model.UnifiedEntity{ent})
	},
}

// -- regions find --

var regionsFindCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Find regions by name or state (case-insensitive)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context(), cfg, newSources(cfg))
		if err != nil {
			return err
		}

		found := snap.FindByName(args[0])
		if len(found) == 0 {
			fmt.Fprintln(os.Stderr, "No regions found.")
			return nil
		}

		format, _ := cmd.Flags().GetString("output")
		return printEntities(os.Stdout, format, found)
	},
}

// logWarnings summarizes the reconciliation warnings of a pass.
func logWarnings(snap *reconcile.Snapshot) {
	counts := make(map[reconcile.WarningKind]int)
	for _, w := range snap.Warnings() {
		counts[w.Kind]++
	}
	if len(counts) == 0 {
		return
	}
	zap.L().Info("reconciliation warnings",
		zap.Int("missing_key", counts[reconcile.WarnMissingKey]),
		zap.Int("no_match", counts[reconcile.WarnNoMatch]),
		zap.Int("disagreement", counts[reconcile.WarnDisagreement]),
	)
}

func init() {
	regionsCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
	regionsGetCmd.Flags().Bool("object-id", false, "look up by RKI object ID instead of AGS")

	regionsCmd.AddCommand(regionsListCmd)
	regionsCmd.AddCommand(regionsGetCmd)
	regionsCmd.AddCommand(regionsFindCmd)
	rootCmd.AddCommand(regionsCmd)
}
