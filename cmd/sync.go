package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/reconcile"
	"github.com/sells-group/regionsync/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push reconciled data to the remote case store",
	Long:  "Pushes regions, current case totals, age/gender distribution or reconstructed history. Pushes are sequential; failed pushes are reported and recorded in the run log, never retried.",
}

// pushFunc is one of the snapshot push operations of the syncer.
type pushFunc func(s *syncer.Syncer, ctx context.Context, ents []model.UnifiedEntity) (*syncer.Result, error)

func snapshotSyncCmd(use, short string, push pushFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := cfg.Validate("sync"); err != nil {
				return err
			}

			snap, err := loadSnapshot(ctx, cfg, newSources(cfg))
			if err != nil {
				return err
			}
			logWarnings(snap)

			runs, err := openRunLog(ctx, cfg)
			if err != nil {
				return err
			}
			defer runs.Close() //nolint:errcheck

			s := newSyncer(cfg, newCasesClient(cfg), runs)
			res, err := push(s, ctx, snap.Entities())
			if res != nil {
				formatSyncResult(os.Stdout, use, res)
			}
			return err
		},
	}
}

var (
	syncRegionsCmd      = snapshotSyncCmd("regions", "Create every region", (*syncer.Syncer).PushRegions)
	syncCasesCmd        = snapshotSyncCmd("cases", "Push today's case totals per region", (*syncer.Syncer).PushCases)
	syncDistributionCmd = snapshotSyncCmd("distribution", "Push age/gender buckets per region", (*syncer.Syncer).PushDistribution)
	syncAllCmd          = snapshotSyncCmd("all", "Push region, cases and distribution per region", (*syncer.Syncer).Run)
)

// -- sync history --

var syncHistoryCmd = &cobra.Command{
	Use:   "history [ags...]",
	Short: "Reconstruct and push the cumulative case series of regions",
	Long:  "Rebuilds each region's cumulative series from the RKI daily reports, merges it with the series already stored remotely and pushes the days that changed. Today is never pushed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if len(args) == 0 && !all {
			return eris.New("specify region codes or --all")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := cfg.Validate("sync"); err != nil {
			return err
		}

		src := newSources(cfg)
		snap, err := loadSnapshot(ctx, cfg, src)
		if err != nil {
			return err
		}

		regions, err := selectRegions(snap, args)
		if err != nil {
			return err
		}

		runs, err := openRunLog(ctx, cfg)
		if err != nil {
			return err
		}
		defer runs.Close() //nolint:errcheck

		client := newCasesClient(cfg)
		recon := newReconstructor(client)
		seriesFn := func(ctx context.Context, region model.Region) ([]model.DayRecord, []model.DayRecord, error) {
			reports, err := src.rki.Reports(ctx, region.AGS)
			if err != nil {
				return nil, nil, err
			}
			return recon.Series(ctx, region.AGS, reports, region.Population)
		}

		res, err := newSyncer(cfg, client, runs).PushHistory(ctx, regions, seriesFn)
		if res != nil {
			formatSyncResult(os.Stdout, "history", res)
		}
		return err
	},
}

// selectRegions resolves region codes against the snapshot; no codes
// selects every region.
func selectRegions(snap *reconcile.Snapshot, codes []string) ([]model.Region, error) {
	if len(codes) == 0 {
		return snap.Regions(), nil
	}
	regions := make([]model.Region, 0, len(codes))
	for _, code := range codes {
		ent, ok := snap.ByKey(code)
		if !ok {
			return nil, fmt.Errorf("region not found: %s", code)
		}
		regions = append(regions, ent.Region)
	}
	zap.L().Debug("regions selected", zap.Int("count", len(regions)))
	return regions, nil
}

func init() {
	syncHistoryCmd.Flags().Bool("all", false, "reconstruct every region")

	syncCmd.AddCommand(syncRegionsCmd)
	syncCmd.AddCommand(syncCasesCmd)
	syncCmd.AddCommand(syncDistributionCmd)
	syncCmd.AddCommand(syncAllCmd)
	syncCmd.AddCommand(syncHistoryCmd)
	rootCmd.AddCommand(syncCmd)
}
