package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionsync/internal/export"
	"github.com/sells-group/regionsync/internal/model"
	"github.com/sells-group/regionsync/internal/runlog"
	"github.com/sells-group/regionsync/internal/syncer"
)

// printEntities writes entities as a table, JSON or YAML.
func printEntities(out io.Writer, format string, entities []model.UnifiedEntity) error {
	switch format {
	case "", "table":
		formatRegionTable(out, entities)
		return nil
	case export.FormatJSON, export.FormatYAML:
		return export.Write(out, format, entities)
	default:
		return eris.Errorf("unknown output format %q (table, json, yaml)", format)
	}
}

func formatRegionTable(out io.Writer, entities []model.UnifiedEntity) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AGS\tNAME\tSTATE\tPOPULATION\tINFECTED\tDEATHS\tPER_100K")
	_, _ = fmt.Fprintln(w, "---\t----\t-----\t----------\t--------\t------\t--------")

	for _, e := range entities {
		name := e.Region.DisplayName()
		if len(name) > 32 {
			name = name[:29] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.1f\n",
			e.Region.AGS,
			name,
			e.Region.State,
			e.Region.Population,
			e.Data.InfectedTotal,
			e.Data.DeathsTotal,
			e.Data.InfectedPer100k,
		)
	}
	_ = w.Flush()
}

func formatSyncResult(out io.Writer, kind string, res *syncer.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Sync:\t%s\n", kind)
	if res.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run ID:\t%s\n", res.RunID)
	}
	_, _ = fmt.Fprintf(w, "Units:\t%d\n", res.Units)
	_, _ = fmt.Fprintf(w, "Succeeded:\t%d\n", res.Succeeded)
	_, _ = fmt.Fprintf(w, "Skipped:\t%d\n", res.Skipped)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", res.Failed())
	_ = w.Flush()

	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(out, "  ! %s\n", f.Error())
	}
}

func formatRunsList(out io.Writer, runs []runlog.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSTATUS\tSTARTED\tDURATION\tUNITS\tFAILED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------\t--------\t-----\t------")

	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID,
			r.Kind,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.Summary.Units,
			r.Summary.Failed,
		)
	}
	_ = w.Flush()
}

func formatFailures(out io.Writer, failures []runlog.FailureRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tAGS\tNAME\tDATE\tERROR")
	_, _ = fmt.Fprintln(w, "----\t---\t----\t----\t-----")

	for _, f := range failures {
		msg := f.Error
		if len(msg) > 80 {
			msg = msg[:77] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Kind, f.AGS, f.Name, f.Date, msg)
	}
	_ = w.Flush()
}
