package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// updatableJobFields is the set of columns UpdateAnalysisJob may touch.
// updated_at is always maintained by the query itself.
var updatableJobFields = map[string]bool{
	"status":           true,
	"progress":         true,
	"synthetic_inputs": true,
	"model_outputs":    true,
	"results":          true,
	"error_detail":     true,
	"completed_at":     true,
}

// CreateAnalysisJob creates a new analysis job record.
// Timestamps are assigned server-side; the returned job carries them.
func (c *Client) CreateAnalysisJob(
	ctx context.Context,
	id string,
	targetEndpoint string,
	options models.JobOptions,
) (*models.AnalysisJob, error) {
	sql := `
		CREATE type::record("analysis_job", $id) SET
			target_endpoint = $target_endpoint,
			status = $status,
			progress = 0,
			options = $options,
			synthetic_inputs = [],
			model_outputs = [],
			created_at = time::now(),
			updated_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.AnalysisJob](ctx, c.db, sql, map[string]any{
		"id":              id,
		"target_endpoint": targetEndpoint,
		"status":          string(models.StatusCreated),
		"options":         options,
	})
	if err != nil {
		return nil, fmt.Errorf("create analysis job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create analysis job: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetAnalysisJob retrieves a job by ID.
// Returns nil if not found.
func (c *Client) GetAnalysisJob(ctx context.Context, id string) (*models.AnalysisJob, error) {
	results, err := surrealdb.Query[[]models.AnalysisJob](ctx, c.db, `
		SELECT * FROM type::record("analysis_job", $id)
	`, map[string]any{"id": id})

	if err != nil {
		return nil, fmt.Errorf("get analysis job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// UpdateAnalysisJob applies a partial field update to a job. Only fields in
// updatableJobFields are accepted; updated_at is refreshed on every call.
// Fields absent from the map are left untouched.
func (c *Client) UpdateAnalysisJob(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	// Sorted keys keep the generated SQL stable for logging and tests
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !updatableJobFields[k] {
			return fmt.Errorf("update analysis job: unknown field %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys)+1)
	vars := map[string]any{"id": id}
	for _, k := range keys {
		clauses = append(clauses, fmt.Sprintf("%s = $%s", k, k))
		vars[k] = fields[k]
	}
	clauses = append(clauses, "updated_at = time::now()")

	sql := fmt.Sprintf(`UPDATE type::record("analysis_job", $id) SET %s`, strings.Join(clauses, ", "))

	_, err := surrealdb.Query[any](ctx, c.db, sql, vars)
	if err != nil {
		return fmt.Errorf("update analysis job: %w", wrapQueryError(err))
	}
	return nil
}

// AppendModelOutput appends one outcome record to a job's model_outputs and
// advances progress, without rewriting the accumulated array.
func (c *Client) AppendModelOutput(
	ctx context.Context,
	id string,
	record models.OutcomeRecord,
	progress int,
) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("analysis_job", $id) SET
			model_outputs += $record,
			progress = $progress,
			updated_at = time::now()
	`, map[string]any{
		"id":       id,
		"record":   record,
		"progress": progress,
	})
	if err != nil {
		return fmt.Errorf("append model output: %w", wrapQueryError(err))
	}
	return nil
}

// ListOptions controls ListAnalysisJobs filtering and pagination.
type ListOptions struct {
	Status *models.JobStatus
	Limit  int
	Skip   int
}

// ListAnalysisJobs returns job summaries newest first. The projection omits
// the input/output arrays; overall_bias_score is only present on jobs that
// carry results.
func (c *Client) ListAnalysisJobs(ctx context.Context, opts ListOptions) ([]models.AnalysisSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	statusClause := ""
	vars := map[string]any{"limit": limit, "skip": opts.Skip}
	if opts.Status != nil {
		statusClause = "WHERE status = $status"
		vars["status"] = string(*opts.Status)
	}

	sql := fmt.Sprintf(`
		SELECT id, target_endpoint, status, progress,
			results.overall_bias_score AS overall_bias_score,
			error_detail, created_at, completed_at
		FROM analysis_job %s
		ORDER BY created_at DESC
		LIMIT $limit START $skip
	`, statusClause)

	results, err := surrealdb.Query[[]models.AnalysisSummary](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list analysis jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.AnalysisSummary{}, nil
	}
	return (*results)[0].Result, nil
}

// MarkStaleJobsFailed fails every non-terminal job whose last write is older
// than the given age. Returns the IDs of the jobs swept. Used to clean up
// after interrupted processes; running jobs touch updated_at on every
// progress write and stay clear of the cutoff.
func (c *Client) MarkStaleJobsFailed(ctx context.Context, olderThanSecs int, detail string) ([]string, error) {
	sql := `
		UPDATE analysis_job SET
			status = $failed,
			error_detail = $detail,
			completed_at = time::now(),
			updated_at = time::now()
		WHERE status NOT IN $terminal
			AND updated_at < time::now() - duration::from::secs($secs)
		RETURN id
	`

	results, err := surrealdb.Query[[]struct {
		ID surrealmodels.RecordID `json:"id"`
	}](ctx, c.db, sql, map[string]any{
		"failed":   string(models.StatusFailed),
		"terminal": []string{string(models.StatusCompleted), string(models.StatusFailed)},
		"secs":     olderThanSecs,
		"detail":   detail,
	})
	if err != nil {
		return nil, fmt.Errorf("mark stale jobs failed: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len((*results)[0].Result))
	for _, row := range (*results)[0].Result {
		id, err := models.RecordIDString(row.ID)
		if err != nil {
			return nil, fmt.Errorf("mark stale jobs failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
