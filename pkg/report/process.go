// Package report turns a report's execution records into saved .xlsx
// files: pick the two most recent, download the finished ones, and
// transcode each CSV payload into a workbook.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/secops-tools/falcon-report-diff/pkg/falcon"
	"github.com/secops-tools/falcon-report-diff/pkg/xlsx"
)

// Result is the outcome of materializing one execution. Exactly one of
// Filename or Reason is set.
type Result struct {
	ExecutionID string
	Filename    string // path of the saved workbook, on success
	Reason      string // why the execution was skipped, otherwise
}

// Saved reports whether the execution produced a file.
func (r Result) Saved() bool { return r.Filename != "" }

// ExecutionFilename is the output path for one execution's workbook.
func ExecutionFilename(dir, execID, dateSuffix string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", execID, dateSuffix))
}

// Process materializes the two most recent executions into workbooks
// under outDir and returns one Result per selected execution, newest
// first. Every failure past selection is a logged skip, never an abort:
// an in-progress execution, a missing or non-CSV payload, and a
// transcoding error all just drop that execution from the output.
func Process(ctx context.Context, client falcon.Client, execs []falcon.Execution, outDir string) []Result {
	selected := SelectLatest(execs)
	results := make([]Result, 0, len(selected))

	for _, exec := range selected {
		res := Result{ExecutionID: exec.ID}

		suffix := DateSuffix(exec.CreatedOn)
		if suffix == "unknown" && exec.CreatedOn != "" {
			slog.Warn("unparseable created_on, using unknown suffix",
				"execution", exec.ID, "created_on", exec.CreatedOn)
		}

		if !strings.EqualFold(exec.Status, "DONE") {
			slog.Info("skipping execution, not yet finished",
				"execution", exec.ID, "status", exec.Status)
			res.Reason = fmt.Sprintf("status %q, not finished", exec.Status)
			results = append(results, res)
			continue
		}

		slog.Info("retrieving report detail", "execution", exec.ID,
			"report", exec.ScheduledReportID)
		data, err := client.DownloadExecution(ctx, exec.ID)
		if err != nil {
			slog.Warn("unable to retrieve report content",
				"execution", exec.ID, "report", exec.ScheduledReportID, "error", err)
			res.Reason = err.Error()
			results = append(results, res)
			continue
		}
		if len(data) == 0 {
			slog.Warn("execution returned no report content",
				"execution", exec.ID, "report", exec.ScheduledReportID)
			res.Reason = "empty report payload"
			results = append(results, res)
			continue
		}

		filename := ExecutionFilename(outDir, exec.ID, suffix)
		if err := xlsx.WriteCSV(data, filename); err != nil {
			slog.Warn("failed to process report", "execution", exec.ID, "error", err)
			res.Reason = err.Error()
			results = append(results, res)
			continue
		}

		slog.Info("execution saved", "execution", exec.ID, "file", filename)
		res.Filename = filename
		results = append(results, res)
	}

	return results
}

// Saved extracts the filenames of successful results, preserving order.
func Saved(results []Result) []string {
	var files []string
	for _, r := range results {
		if r.Saved() {
			files = append(files, r.Filename)
		}
	}
	return files
}
