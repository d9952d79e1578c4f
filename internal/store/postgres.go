package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

const apiKeyColumns = `id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at`

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Backlog ---

// ListJobs returns every job with its tasks in sequence order.
func (s *PostgresStore) ListJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, reference, quantity, deadline, priority, created_at, updated_at
		 FROM jobs ORDER BY reference`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Reference, &j.Quantity, &j.Deadline, &j.Priority,
			&j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		index[j.ID] = len(jobs)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	taskRows, err := s.pool.Query(ctx,
		`SELECT id, job_id, sequence, capability, minutes_per_unit, COALESCE(preferred_machine, ''),
		        completion_status, completed_units, actual_minutes
		 FROM tasks ORDER BY job_id, sequence`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer taskRows.Close()

	for taskRows.Next() {
		var (
			t          models.Task
			capability string
			status     string
		)
		if err := taskRows.Scan(&t.ID, &t.JobID, &t.Sequence, &capability, &t.MinutesPerUnit,
			&t.PreferredMachine, &status, &t.Completion.CompletedUnits, &t.Completion.ActualMinutes); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Capability = models.Capability(capability)
		t.Completion.State = models.CompletionState(status)
		if i, ok := index[t.JobID]; ok {
			jobs[i].Tasks = append(jobs[i].Tasks, t)
		}
	}
	return jobs, taskRows.Err()
}

func (s *PostgresStore) ListMachines(ctx context.Context) ([]models.Machine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, milling, three_axis, four_axis, turning, efficiency, downtime_probability,
		        daily_budget_minutes, active, COALESCE(current_setup, ''), updated_at
		 FROM machines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()

	var machines []models.Machine
	for rows.Next() {
		var (
			m     models.Machine
			setup string
		)
		if err := rows.Scan(&m.Name, &m.Capabilities.Milling, &m.Capabilities.ThreeAxis,
			&m.Capabilities.FourAxis, &m.Capabilities.Turning, &m.Efficiency, &m.DowntimeProbability,
			&m.DailyBudgetMinutes, &m.Active, &setup, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		m.CurrentSetup = models.Capability(setup)
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

func (s *PostgresStore) ListShiftReports(ctx context.Context) ([]models.ShiftReport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, machine, completed_units, actual_minutes, reported_at
		 FROM shift_reports ORDER BY reported_at`)
	if err != nil {
		return nil, fmt.Errorf("list shift reports: %w", err)
	}
	defer rows.Close()

	var reports []models.ShiftReport
	for rows.Next() {
		var r models.ShiftReport
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Machine, &r.CompletedUnits, &r.ActualMinutes, &r.ReportedAt); err != nil {
			return nil, fmt.Errorf("scan shift report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// --- Plan Runs ---

func (s *PostgresStore) CreatePlanRun(ctx context.Context, run *models.PlanRun) error {
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO plan_runs (id, status, warnings, assignment_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Status, warnings, run.AssignmentCount, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create plan run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlanRun(ctx context.Context, id uuid.UUID) (*models.PlanRun, error) {
	var r models.PlanRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, warnings, assignment_count, error_message, started_at, completed_at, created_at, updated_at
		 FROM plan_runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.Status, &r.Warnings, &r.AssignmentCount, &r.ErrorMessage,
		&r.StartedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan run: %w", err)
	}
	return &r, nil
}

var validTransitions = map[string][]string{
	models.RunStatusPending: {models.RunStatusRunning, models.RunStatusFailed},
	models.RunStatusRunning: {models.RunStatusCompleted, models.RunStatusFailed},
}

func (s *PostgresStore) UpdatePlanRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error {
	params := &runUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM plan_runs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get plan run status: %w", err)
	}

	allowed := validTransitions[currentStatus]
	valid := false
	for _, a := range allowed {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: plan run %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE plan_runs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.RunStatusRunning {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.RunStatusCompleted || status == models.RunStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.Warnings != nil {
		query += fmt.Sprintf(", warnings = $%d", argIdx)
		args = append(args, params.Warnings)
		argIdx++
	}
	if params.AssignmentCount != nil {
		query += fmt.Sprintf(", assignment_count = $%d", argIdx)
		args = append(args, *params.AssignmentCount)
		argIdx++
	}

	query += " WHERE id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update plan run status: %w", err)
	}
	return nil
}

// --- Assignments ---

const assignmentColumns = `id, job_id, task_id, machine, planned_start, planned_end, quantity,
	run_minutes, setup_minutes, buffer_minutes, status, rescheduled_at, reschedule_reason, created_at, updated_at`

func scanAssignment(row pgx.Row) (models.Assignment, error) {
	var (
		a      models.Assignment
		status string
	)
	err := row.Scan(&a.ID, &a.JobID, &a.TaskID, &a.Machine, &a.Start, &a.End, &a.Quantity,
		&a.RunMinutes, &a.SetupMinutes, &a.BufferMinutes, &status, &a.RescheduledAt,
		&a.RescheduleReason, &a.CreatedAt, &a.UpdatedAt)
	a.Status = models.AssignmentStatus(status)
	return a, err
}

func collectAssignments(rows pgx.Rows) ([]models.Assignment, error) {
	defer rows.Close()

	out := []models.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReplaceSchedule swaps the published assignments and alerts for a new set in
// one transaction. Readers see either the old set or the new one.
func (s *PostgresStore) ReplaceSchedule(ctx context.Context, assignments []models.Assignment, alerts []models.Alert) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace schedule: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM alerts`); err != nil {
		return fmt.Errorf("clear alerts: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM assignments`); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}

	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(
			`INSERT INTO assignments (`+assignmentColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			a.ID, a.JobID, a.TaskID, a.Machine, a.Start, a.End, a.Quantity,
			a.RunMinutes, a.SetupMinutes, a.BufferMinutes, string(a.Status), a.RescheduledAt,
			a.RescheduleReason, a.CreatedAt, a.UpdatedAt)
	}
	for _, al := range alerts {
		batch.Queue(
			`INSERT INTO alerts (id, kind, severity, job_id, task_id, message, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			al.ID, al.Kind, al.Severity, al.JobID, al.TaskID, al.Message, al.Status, al.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert schedule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace schedule: %w", err)
	}
	return nil
}

// ListSchedule returns the whole published assignment set ordered by start.
func (s *PostgresStore) ListSchedule(ctx context.Context) ([]models.Assignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignments ORDER BY planned_start, machine, id`)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	return collectAssignments(rows)
}

func (s *PostgresStore) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int, error) {
	// Build WHERE clause dynamically
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Machine != "" {
		conditions = append(conditions, fmt.Sprintf("machine = $%d", argIdx))
		args = append(args, filter.Machine)
		argIdx++
	}
	if filter.JobID != nil {
		conditions = append(conditions, fmt.Sprintf("job_id = $%d", argIdx))
		args = append(args, *filter.JobID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM assignments WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	// Normalize pagination
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM assignments WHERE %s ORDER BY planned_start, machine, id LIMIT $%d OFFSET $%d`,
		assignmentColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}
	assignments, err := collectAssignments(rows)
	if err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}

func (s *PostgresStore) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	a, err := scanAssignment(s.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &a, nil
}

// UpdateAssignments writes the mutable fields of every given assignment in
// one transaction. A missing assignment aborts the whole update.
func (s *PostgresStore) UpdateAssignments(ctx context.Context, assignments []models.Assignment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update assignments: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range assignments {
		tag, err := tx.Exec(ctx,
			`UPDATE assignments SET machine = $2, planned_start = $3, planned_end = $4,
			   run_minutes = $5, setup_minutes = $6, buffer_minutes = $7, status = $8,
			   rescheduled_at = $9, reschedule_reason = $10, updated_at = $11
			 WHERE id = $1`,
			a.ID, a.Machine, a.Start, a.End, a.RunMinutes, a.SetupMinutes, a.BufferMinutes,
			string(a.Status), a.RescheduledAt, a.RescheduleReason, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update assignment %s: %w", a.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update assignment %s: %w", a.ID, ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update assignments: %w", err)
	}
	return nil
}

// --- Alerts ---

func (s *PostgresStore) ListAlerts(ctx context.Context, status string) ([]models.Alert, error) {
	query := `SELECT id, kind, severity, job_id, task_id, message, status, created_at FROM alerts`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, kind, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.Kind, &a.Severity, &a.JobID, &a.TaskID, &a.Message, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
