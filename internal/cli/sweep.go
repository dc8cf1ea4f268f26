package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepOlderThan time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark abandoned analysis jobs as failed",
	Long: `Mark non-terminal analysis jobs as failed when their record has not
been updated recently. A job is left behind when the process running it
dies; its record would otherwise sit in a running state forever.

Examples:
  fairprobe sweep
  fairprobe sweep --older-than 1h`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepOlderThan, "older-than", 15*time.Minute, "minimum age since the last update")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, err := getService()
	if err != nil {
		return err
	}

	ids, err := s.Sweep(ctx, sweepOlderThan)
	if err != nil {
		return fmt.Errorf("sweep jobs: %w", err)
	}

	if len(ids) == 0 {
		fmt.Println("No abandoned jobs found")
		return nil
	}

	fmt.Printf("Marked %d jobs as failed:\n", len(ids))
	for _, id := range ids {
		fmt.Printf("  - %s\n", id)
	}

	return nil
}
