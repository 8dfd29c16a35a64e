package cmd

import (
	"context"
	"log/slog"

	"github.com/secops-tools/falcon-report-diff/pkg/config"
	"github.com/secops-tools/falcon-report-diff/pkg/diff"
	"github.com/secops-tools/falcon-report-diff/pkg/falcon"
	"github.com/secops-tools/falcon-report-diff/pkg/report"
)

func runReportDiff(ctx context.Context, cfg config.Config) error {
	client := falcon.NewAPIClient(ctx, cfg.Falcon.ClientID, cfg.Falcon.ClientSecret, cfg.APIBaseURL())
	return runPipeline(ctx, client, cfg.Report.ID, cfg.Output.Dir)
}

// runPipeline is the whole tool: look up executions, fetch their
// statuses, materialize the two most recent as workbooks, and compare
// them. The two lookup stages are fatal on error; everything after is
// best-effort.
func runPipeline(ctx context.Context, client falcon.Client, reportID, outDir string) error {
	slog.Info("searching for report executions", "report", reportID)
	ids, err := client.QueryExecutions(ctx, reportID)
	if err != nil {
		return err
	}
	slog.Info("found executions of this report", "count", len(ids))
	if len(ids) == 0 {
		slog.Info("nothing to download or compare")
		return nil
	}

	execs, err := client.GetExecutions(ctx, ids)
	if err != nil {
		return err
	}
	slog.Info("execution statuses retrieved", "count", len(execs))

	results := report.Process(ctx, client, execs, outDir)
	saved := report.Saved(results)
	if len(saved) < 2 {
		slog.Info("not enough files saved for comparison", "saved", len(saved))
		return nil
	}

	// Process returns newest first: saved[0] is the latest execution,
	// saved[1] the one before it.
	out, err := diff.Compare(saved[0], saved[1], outDir)
	if err != nil {
		return err
	}
	slog.Info("comparison saved", "file", out)
	return nil
}
