package cli

import (
	"fmt"

	"github.com/raphaelgruber/fairprobe/internal/metrics"
)

// printRunStats displays the in-memory collector state after a run.
func printRunStats(stats metrics.Snapshot) {
	fmt.Printf("\nRun statistics (in-memory, this process)\n")
	fmt.Printf("═══════════════════════════════════════\n")

	if stats.Generate != nil {
		fmt.Printf("\nPopulation generation:\n")
		printOpStats(stats.Generate)
	}

	if stats.ModelInvoke != nil {
		fmt.Printf("\nModel calls:\n")
		printOpStats(stats.ModelInvoke)
		printCallStats(stats.ModelInvoke)
	}

	if stats.Analyze != nil {
		fmt.Printf("\nAnalysis:\n")
		printOpStats(stats.Analyze)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot) {
	fmt.Printf("  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

// printCallStats displays retry and drop counters if available.
func printCallStats(op *metrics.OperationSnapshot) {
	if op.Retries != nil {
		fmt.Printf("  Retries: %d\n", *op.Retries)
	}
	if op.Drops != nil && op.DropRate != nil {
		fmt.Printf("  Drops: %d (%.1f%%)\n", *op.Drops, *op.DropRate*100)
	}
}
