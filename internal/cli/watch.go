package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Attach a progress view to an analysis job",
	Long: `Attach the interactive progress view to an analysis job.

The job itself runs in the process that started it; watch only reads the
persisted record, so it works from any terminal sharing the database.
For jobs that already finished, the detail view is shown instead.

Examples:
  fairprobe watch abc12345`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := context.Background()

	s, err := getService()
	if err != nil {
		return err
	}

	job, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return fmt.Errorf("get analysis: %w", err)
	}

	// Terminal jobs have nothing left to watch
	if job.Status.IsTerminal() {
		return showJob(ctx, id)
	}

	return RunJobProgress(s, job, false)
}
