package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raphaelgruber/fairprobe/internal/db"
	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/raphaelgruber/fairprobe/internal/report"
	"github.com/spf13/cobra"
)

// maxReportBatch bounds how many jobs --all will regenerate in one go.
const maxReportBatch = 1000

var (
	reportOut string
	reportAll bool
	reportDir string
)

var reportCmd = &cobra.Command{
	Use:   "report [job-id]",
	Short: "Export the report of a completed analysis",
	Long: `Export the report artifact of a completed analysis as JSON.

Without --out the report is written to stdout. With --all, every
completed job gets its artifact regenerated into --dir.

Examples:
  fairprobe report abc12345
  fairprobe report abc12345 --out report.json
  fairprobe report --all --dir ./reports`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to this file instead of stdout")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "export every completed job")
	reportCmd.Flags().StringVar(&reportDir, "dir", "reports", "output directory for --all")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if reportAll {
		if len(args) != 0 {
			return fmt.Errorf("--all takes no job id")
		}
		return exportAllReports(ctx)
	}

	if len(args) != 1 {
		return fmt.Errorf("job id required (or use --all)")
	}
	return exportReport(ctx, args[0])
}

func exportReport(ctx context.Context, id string) error {
	s, err := getService()
	if err != nil {
		return err
	}

	artifact, err := s.GetReportArtifact(ctx, id)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	renderer := report.JSONRenderer{}
	if reportOut == "" {
		return renderer.Render(os.Stdout, artifact)
	}

	f, err := os.Create(reportOut)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := renderer.Render(f, artifact); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	fmt.Printf("Wrote report to %s\n", reportOut)
	return nil
}

func exportAllReports(ctx context.Context) error {
	s, err := getService()
	if err != nil {
		return err
	}

	status := models.StatusCompleted
	jobs, err := s.ListAnalyses(ctx, db.ListOptions{Status: &status, Limit: maxReportBatch})
	if err != nil {
		return fmt.Errorf("list analyses: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No completed analyses to export.")
		return nil
	}

	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	fmt.Printf("Exporting %d reports...\n", len(jobs))

	renderer := report.JSONRenderer{}
	exported := 0
	for _, job := range jobs {
		id := models.MustRecordIDString(job.ID)

		artifact, err := s.GetReportArtifact(ctx, id)
		if err != nil {
			fmt.Printf("Warning: skipping %s: %v\n", id, err)
			continue
		}

		filename := filepath.Join(reportDir, id+"."+renderer.Ext())
		f, err := os.Create(filename)
		if err != nil {
			fmt.Printf("Warning: failed to create %s: %v\n", filename, err)
			continue
		}
		err = renderer.Render(f, artifact)
		f.Close()
		if err != nil {
			fmt.Printf("Warning: failed to render %s: %v\n", filename, err)
			continue
		}
		exported++

		if verbose {
			fmt.Printf("  Exported: %s\n", filename)
		}
	}

	fmt.Printf("\nExported %d reports to %s\n", exported, reportDir)
	return nil
}
