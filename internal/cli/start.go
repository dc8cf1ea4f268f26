package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/raphaelgruber/fairprobe/internal/service"
	"github.com/spf13/cobra"
)

var (
	startCount       int
	startSeed        int64
	startSchemaFile  string
	startConcurrency int
	startPlain       bool
)

var startCmd = &cobra.Command{
	Use:   "start <endpoint>",
	Short: "Start a bias analysis against a prediction endpoint",
	Long: `Start a bias analysis run against a prediction HTTP endpoint.

A synthetic population is generated from the feature schema, each record
is sent to the endpoint, and the scored responses are analyzed for group
disparities. The job runs in this process; the command stays attached
with a progress view until the run reaches a terminal state.

Examples:
  fairprobe start http://localhost:8099/predict
  fairprobe start localhost:8099/predict --count 500 --seed 42
  fairprobe start http://localhost:8099/predict --schema ./features.yaml
  fairprobe start http://localhost:8099/predict --plain`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVarP(&startCount, "count", "n", 0, "population size (defaults to FAIRPROBE_POPULATION_SIZE)")
	startCmd.Flags().Int64Var(&startSeed, "seed", 0, "RNG seed for a reproducible population")
	startCmd.Flags().StringVar(&startSchemaFile, "schema", "", "feature schema file (YAML)")
	startCmd.Flags().IntVar(&startConcurrency, "concurrency", 0, "parallel model calls (defaults to FAIRPROBE_CONCURRENCY)")
	startCmd.Flags().BoolVar(&startPlain, "plain", false, "poll with plain status lines instead of the interactive view")
}

func runStart(cmd *cobra.Command, args []string) error {
	endpoint := args[0]
	ctx := context.Background()

	// Flag overrides must land before the service is built
	if startSchemaFile != "" {
		cfg.SchemaFile = startSchemaFile
	}
	if startConcurrency > 0 {
		cfg.Concurrency = startConcurrency
	}

	s, err := getService()
	if err != nil {
		return err
	}

	opts := service.StartOptions{Count: startCount}
	if cmd.Flags().Changed("seed") {
		opts.Seed = &startSeed
	}

	job, err := s.StartAnalysis(ctx, endpoint, opts)
	if err != nil {
		return fmt.Errorf("start analysis: %w", err)
	}

	id := models.MustRecordIDString(job.ID)
	fmt.Printf("Started analysis %s against %s\n", id, job.TargetEndpoint)

	if startPlain {
		err = watchPlain(ctx, s, id)
	} else {
		err = RunJobProgress(s, job, true)
	}

	if verbose {
		printRunStats(collector.Snapshot())
	}
	return err
}

// watchPlain polls the job record and prints a line whenever the status or
// progress changes. Used instead of the interactive view for logs and CI.
func watchPlain(ctx context.Context, s *service.AnalysisService, id string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastStatus := models.JobStatus("")
	lastProgress := -1
	for {
		job, err := s.GetAnalysis(ctx, id)
		if err != nil {
			return fmt.Errorf("fetch analysis: %w", err)
		}

		if job.Status != lastStatus || job.Progress != lastProgress {
			fmt.Printf("[%s] %d%%\n", job.Status, job.Progress)
			lastStatus, lastProgress = job.Status, job.Progress
		}

		if job.Status.IsTerminal() {
			return printOutcome(job)
		}

		<-ticker.C
	}
}

// printOutcome reports the terminal state of a finished run.
func printOutcome(job *models.AnalysisJob) error {
	id := models.MustRecordIDString(job.ID)

	if job.Status == models.StatusFailed {
		if job.ErrorDetail != nil {
			return fmt.Errorf("analysis %s failed: %s", id, *job.ErrorDetail)
		}
		return fmt.Errorf("analysis %s failed", id)
	}

	if job.Results != nil {
		fmt.Printf("\nOverall bias score: %.3f\n", job.Results.OverallBiasScore)
	}
	fmt.Printf("Completed. Run 'fairprobe report %s' for the full report.\n", id)
	return nil
}
