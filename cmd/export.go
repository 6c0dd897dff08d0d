package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/regionsync/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the reconciled regions to a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		snap, err := loadSnapshot(cmd.Context(), cfg, newSources(cfg))
		if err != nil {
			return err
		}
		logWarnings(snap)

		var out io.Writer = os.Stdout
		if outPath != "" && outPath != "-" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", outPath)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := export.Write(out, format, snap.Entities()); err != nil {
			return err
		}
		zap.L().Info("export written",
			zap.String("format", format),
			zap.String("out", outPath),
			zap.Int("regions", snap.Len()),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", export.FormatJSON, "json, yaml or xlsx")
	exportCmd.Flags().String("out", "-", "output file (- for stdout)")
	rootCmd.AddCommand(exportCmd)
}
