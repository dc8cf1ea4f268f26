package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/fairprobe/internal/db"
	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/spf13/cobra"
)

var (
	jobsLimit  int
	jobsSkip   int
	jobsStatus string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect analysis jobs",
	Long: `List analysis jobs or inspect a specific job by ID.

Examples:
  fairprobe jobs                    # List recent jobs
  fairprobe jobs --status failed    # Only failed jobs
  fairprobe jobs abc12345           # Show details for job abc12345`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "max results")
	jobsCmd.Flags().IntVar(&jobsSkip, "skip", 0, "results to skip (pagination)")
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status")

	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// If job ID provided, show that specific job
	if len(args) == 1 {
		return showJob(ctx, args[0])
	}

	// List jobs
	return listJobs(ctx)
}

func knownStatus(s models.JobStatus) bool {
	switch s {
	case models.StatusCreated, models.StatusGeneratingData, models.StatusQueryingModel,
		models.StatusAnalyzing, models.StatusCompleted, models.StatusFailed:
		return true
	}
	return false
}

func listJobs(ctx context.Context) error {
	s, err := getService()
	if err != nil {
		return err
	}

	opts := db.ListOptions{Limit: jobsLimit, Skip: jobsSkip}
	if jobsStatus != "" {
		status := models.JobStatus(jobsStatus)
		if !knownStatus(status) {
			return fmt.Errorf("unknown status: %s", jobsStatus)
		}
		opts.Status = &status
	}

	jobs, err := s.ListAnalyses(ctx, opts)
	if err != nil {
		return fmt.Errorf("list analyses: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No analysis jobs found")
		return nil
	}

	fmt.Printf("%-10s %-16s %-9s %-7s %-10s %s\n", "ID", "STATUS", "PROGRESS", "BIAS", "CREATED", "ENDPOINT")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, job := range jobs {
		bias := "-"
		if job.OverallBiasScore != nil {
			bias = fmt.Sprintf("%.3f", *job.OverallBiasScore)
		}
		progress := fmt.Sprintf("%d%%", job.Progress)
		created := job.CreatedAt.Format("15:04:05")
		fmt.Printf("%-10s %-16s %-9s %-7s %-10s %s\n",
			models.MustRecordIDString(job.ID), job.Status, progress, bias, created, job.TargetEndpoint)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	s, err := getService()
	if err != nil {
		return err
	}

	job, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return fmt.Errorf("get analysis: %w", err)
	}

	fmt.Printf("Job: %s\n", models.MustRecordIDString(job.ID))
	fmt.Printf("  Endpoint: %s\n", job.TargetEndpoint)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Progress: %d%%\n", job.Progress)
	fmt.Printf("  Records: %d generated, %d scored\n", len(job.SyntheticInputs), len(job.ModelOutputs))

	options := fmt.Sprintf("count=%d", job.Options.Count)
	if job.Options.Seed != nil {
		options += fmt.Sprintf(" seed=%d", *job.Options.Seed)
	}
	fmt.Printf("  Options: %s\n", options)

	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Finished: %s\n", job.CompletedAt.Format(time.RFC3339))
		duration := job.CompletedAt.Sub(job.CreatedAt)
		fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
	}

	if job.ErrorDetail != nil && *job.ErrorDetail != "" {
		fmt.Printf("  Error: %s\n", *job.ErrorDetail)
	}

	if job.Results != nil {
		printResults(job.Results)
	}

	return nil
}

// printResults renders the full metric set of a completed analysis.
func printResults(r *models.AnalysisResult) {
	fmt.Println("\nResults:")
	fmt.Printf("  Overall bias score: %.3f\n", r.OverallBiasScore)

	if len(r.FairnessMetrics) > 0 {
		fmt.Println("\n  Fairness metrics:")
		for _, m := range r.FairnessMetrics {
			fmt.Printf("    %-20s %-20s %.3f\n", m.Name, m.Group, m.Value)
		}
	}

	if len(r.FeatureInfluence) > 0 {
		fmt.Println("\n  Feature influence:")
		for _, fi := range r.FeatureInfluence {
			fmt.Printf("    %-20s %.3f\n", fi.Feature, fi.Influence)
		}
	}

	if len(r.GroupOutcomeBreakdown) > 0 {
		fmt.Println("\n  Mean score by group:")
		for _, g := range r.GroupOutcomeBreakdown {
			fmt.Printf("    %-28s %.3f\n", g.Group, g.Value)
		}
	}
}
