package predict

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/fairprobe/internal/models"
)

// failFastProbe is the number of leading attempts that must all fail before
// the batch is abandoned early. A dead or auth-walled endpoint rejects
// everything; there is no point burning the full population on it.
const failFastProbe = 10

// Options configures a batch invocation.
type Options struct {
	// Concurrency bounds parallel in-flight calls (default 4).
	Concurrency int
	// DropRateThreshold fails the batch when the final dropped fraction
	// exceeds it (default 0.5).
	DropRateThreshold float64
	// OnResult, when set, is invoked serially from a single collector
	// goroutine as attempts finish. outcome is nil for dropped records;
	// attempted counts finished attempts including drops.
	OnResult func(outcome *models.OutcomeRecord, attempted, total int)
}

// InvokeAll runs Invoke for every record under a bounded worker pool and
// returns the usable outcomes in completion order. Dropped records shorten
// the result legitimately; the batch as a whole fails with
// models.ErrModelUnreachable when the endpoint rejects the leading
// failFastProbe attempts outright or the final drop rate exceeds the
// threshold.
func (c *Client) InvokeAll(ctx context.Context, endpoint string, records []models.FeatureRecord, opts Options) ([]models.OutcomeRecord, error) {
	if len(records) == 0 {
		return []models.OutcomeRecord{}, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	threshold := opts.DropRateThreshold
	if threshold <= 0 {
		threshold = 0.5
	}

	total := len(records)
	slog.Info("starting model invocation", "endpoint", endpoint, "records", total, "concurrency", concurrency)

	// Derived context lets the fail-fast path stop in-flight work
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type attempt struct {
		outcome *models.OutcomeRecord
	}

	workChan := make(chan models.FeatureRecord, total)
	resultChan := make(chan attempt, total)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for record := range workChan {
				if ctx.Err() != nil {
					return
				}

				outcome, err := c.Invoke(ctx, endpoint, record)
				if err != nil {
					slog.Debug("record dropped", "record_id", record.RecordID, "worker", workerID, "error", err)
					resultChan <- attempt{}
					continue
				}
				resultChan <- attempt{outcome: &outcome}
			}
		}(i)
	}

	// Send records to workers
	for _, record := range records {
		workChan <- record
	}
	close(workChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Single collector: serializes OnResult and the drop accounting.
	// resultChan is buffered to total, so workers never block on it even
	// after an early return.
	outcomes := make([]models.OutcomeRecord, 0, total)
	attempted := 0
	for res := range resultChan {
		attempted++
		if res.outcome != nil {
			outcomes = append(outcomes, *res.outcome)
		}
		if opts.OnResult != nil {
			opts.OnResult(res.outcome, attempted, total)
		}

		if attempted >= failFastProbe && len(outcomes) == 0 {
			cancel()
			slog.Warn("endpoint rejected every leading request, abandoning batch",
				"endpoint", endpoint, "attempted", attempted)
			return outcomes, fmt.Errorf("%w: first %d requests all failed", models.ErrModelUnreachable, attempted)
		}
	}

	if attempted < total {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
	}

	dropped := total - len(outcomes)
	slog.Info("model invocation complete", "endpoint", endpoint, "succeeded", len(outcomes), "dropped", dropped)

	if float64(dropped)/float64(total) > threshold {
		return outcomes, fmt.Errorf("%w: %d of %d records dropped", models.ErrModelUnreachable, dropped, total)
	}
	return outcomes, nil
}
