package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/secops-tools/falcon-report-diff/pkg/config"
)

var (
	configFile string
	reportID   string
	outputDir  string
	logFormat  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "falcon-report-diff",
	Short: "Diff the two most recent runs of a CrowdStrike vulnerability report",
	Long: `Fetch the two most recent executions of a scheduled CrowdStrike
vulnerability report, save each one as an .xlsx workbook, and compare
them to surface newly appearing findings (keyed by CVE ID and image
coordinates).

Credentials and the report ID come from CROWDSTRIKE_CLIENT_ID,
CROWDSTRIKE_CLIENT_SECRET and CROWDSTRIKE_REPORT_ID, a YAML config
file, or flags.`,
	Example: `  # Everything from the environment
  falcon-report-diff

  # Explicit report and output directory
  falcon-report-diff --report-id 1a2b3c --output-dir ./reports

  # Config file with env overrides
  falcon-report-diff --config falcon.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		// Flags beat file and env
		if reportID != "" {
			cfg.Report.ID = reportID
		}
		if outputDir != "" {
			cfg.Output.Dir = outputDir
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		initLogger(cfg.Logging.Format, cfg.Logging.Level)
		return runReportDiff(cmd.Context(), cfg)
	},
}

// Execute runs the root cobra command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&reportID, "report-id", "", "Scheduled report ID (default: CROWDSTRIKE_REPORT_ID)")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for saved workbooks (default \".\")")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "Log format: text or json (default \"text\")")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("falcon-report-diff {{.Version}}\n")
}

func initLogger(format, level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(h))
}
