// Package planning runs the scheduler against the persisted shop state and
// publishes its results. Runs and replans are serialized per process and
// across replicas.
package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/internal/analysis"
	"github.com/kiranshivaraju/shopplan/internal/cache"
	"github.com/kiranshivaraju/shopplan/internal/execution"
	"github.com/kiranshivaraju/shopplan/internal/scheduler"
	"github.com/kiranshivaraju/shopplan/internal/store"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// ErrPlanningInProgress is returned when another run or replan holds the planning lock.
var ErrPlanningInProgress = errors.New("planning already in progress")

const (
	statusTTL = 30 * time.Minute
	// openDayCount is how many open days MachineDays lists for a booking size.
	openDayCount = 5
)

// Enqueuer hands a pending run to the background worker.
type Enqueuer interface {
	EnqueuePlanRun(ctx context.Context, runID uuid.UUID) error
}

// MachineDays is the day-level breakdown of one machine's bookings.
type MachineDays struct {
	Machine     string         `json:"machine"`
	Days        []analysis.Day `json:"days"`
	Blocked     []string       `json:"blocked_days"`
	FullyLoaded []string       `json:"fully_loaded_days"`
	// OpenDays are the next working days that still take a booking of the
	// requested size. Empty unless a size was requested.
	OpenDays []string `json:"open_days,omitempty"`
}

// Service orchestrates planning runs, replans and plan analytics.
type Service struct {
	store    store.Store
	cache    cache.Cache
	engine   *scheduler.Engine
	enqueuer Enqueuer
	lockTTL  time.Duration

	mu sync.Mutex
}

// NewService creates a new Service.
func NewService(st store.Store, ca cache.Cache, engine *scheduler.Engine, enq Enqueuer, lockTTL time.Duration) *Service {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Service{
		store:    st,
		cache:    ca,
		engine:   engine,
		enqueuer: enq,
		lockTTL:  lockTTL,
	}
}

// TriggerRun records a pending run and enqueues it. It returns without
// waiting for the run to start.
func (s *Service) TriggerRun(ctx context.Context) (*models.PlanRun, error) {
	now := time.Now().UTC()
	run := &models.PlanRun{
		ID:        uuid.New(),
		Status:    models.RunStatusPending,
		Warnings:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreatePlanRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating plan run: %w", err)
	}
	_ = s.cache.SetRunStatus(ctx, run.ID, models.RunStatusPending, statusTTL)

	if err := s.enqueuer.EnqueuePlanRun(ctx, run.ID); err != nil {
		s.failRun(run.ID, fmt.Sprintf("enqueue: %v", err))
		return nil, fmt.Errorf("enqueueing plan run: %w", err)
	}

	slog.Info("plan run triggered", "run_id", run.ID)
	return run, nil
}

// ExecuteRun plans the whole backlog and replaces the published schedule.
// If the planning lock is held the run is left pending and
// ErrPlanningInProgress is returned so the caller can retry later. Any other
// failure, panics included, marks the run failed.
func (s *Service) ExecuteRun(ctx context.Context, runID uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in ExecuteRun", "error", r, "run_id", runID)
			s.failRun(runID, fmt.Sprintf("panic: %v", r))
			err = fmt.Errorf("plan run %s: panic: %v", runID, r)
		}
	}()

	return s.withLock(ctx, func() error {
		if err := s.store.UpdatePlanRunStatus(ctx, runID, models.RunStatusRunning); err != nil {
			return fmt.Errorf("starting plan run: %w", err)
		}
		_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusRunning, statusTTL)

		in, err := s.snapshot(ctx)
		if err != nil {
			s.failRun(runID, err.Error())
			return err
		}

		res, err := s.engine.Plan(ctx, in)
		if err != nil {
			s.failRun(runID, err.Error())
			return err
		}

		if err := s.store.ReplaceSchedule(ctx, res.Assignments, res.Alerts); err != nil {
			s.failRun(runID, fmt.Sprintf("publishing schedule: %v", err))
			return fmt.Errorf("publishing schedule: %w", err)
		}

		warnings := make([]string, len(res.Warnings))
		for i, w := range res.Warnings {
			warnings[i] = w.String()
		}
		if err := s.store.UpdatePlanRunStatus(ctx, runID, models.RunStatusCompleted,
			store.WithWarnings(warnings),
			store.WithAssignmentCount(len(res.Assignments))); err != nil {
			return fmt.Errorf("completing plan run: %w", err)
		}
		_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusCompleted, statusTTL)

		slog.Info("plan run completed",
			"run_id", runID,
			"assignments", len(res.Assignments),
			"alerts", len(res.Alerts),
			"warnings", len(warnings),
		)
		return nil
	})
}

// GetRun returns a run. While it is still pending or running the cached
// status is enough; finished runs are read from the store for their details.
func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (*models.PlanRun, error) {
	status, found, err := s.cache.GetRunStatus(ctx, runID)
	if err == nil && found && (status == models.RunStatusPending || status == models.RunStatusRunning) {
		return &models.PlanRun{ID: runID, Status: status, Warnings: []string{}}, nil
	}

	run, err := s.store.GetPlanRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteSetup applies a setup completion and persists every assignment it moved.
func (s *Service) CompleteSetup(ctx context.Context, ev scheduler.SetupCompletion) (*scheduler.ReplanResult, error) {
	var res *scheduler.ReplanResult
	err := s.withLock(ctx, func() error {
		in, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		res, err = s.engine.CompleteSetup(ctx, ev, in)
		if err != nil {
			return err
		}
		return s.publishReplan(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("setup completed",
		"assignment_id", ev.AssignmentID,
		"machine", res.Updated.Machine,
		"shifted", len(res.Shifted),
	)
	return res, nil
}

// EditAssignment applies a manual edit and persists every assignment it moved.
func (s *Service) EditAssignment(ctx context.Context, edit scheduler.AssignmentEdit) (*scheduler.ReplanResult, error) {
	var res *scheduler.ReplanResult
	err := s.withLock(ctx, func() error {
		in, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		res, err = s.engine.EditAssignment(ctx, edit, in)
		if err != nil {
			return err
		}
		return s.publishReplan(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("assignment edited",
		"assignment_id", edit.AssignmentID,
		"machine", res.Updated.Machine,
		"shifted", len(res.Shifted),
	)
	return res, nil
}

func (s *Service) ListAssignments(ctx context.Context, filter store.AssignmentFilter) ([]models.Assignment, int, error) {
	return s.store.ListAssignments(ctx, filter)
}

func (s *Service) ListAlerts(ctx context.Context, status string) ([]models.Alert, error) {
	return s.store.ListAlerts(ctx, status)
}

// MachineLoad reports load statistics for every machine over the published schedule.
func (s *Service) MachineLoad(ctx context.Context) ([]analysis.MachineLoadStats, error) {
	machines, err := s.store.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	assignments, err := s.store.ListSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing schedule: %w", err)
	}
	return s.engine.Options().Rules.MachineLoad(machines, assignments), nil
}

// MachineDays breaks one machine's bookings down by day. With minutes > 0 it
// also lists the next working days that can take a booking of that size.
func (s *Service) MachineDays(ctx context.Context, name string, minutes int) (*MachineDays, error) {
	machines, err := s.store.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	var machine *models.Machine
	for i := range machines {
		if machines[i].Name == name {
			machine = &machines[i]
			break
		}
	}
	if machine == nil {
		return nil, fmt.Errorf("machine %q: %w", name, scheduler.ErrUnknownMachine)
	}

	assignments, err := s.store.ListSchedule(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing schedule: %w", err)
	}

	opts := s.engine.Options()
	rules := opts.Rules
	days := &MachineDays{
		Machine:     name,
		Days:        rules.DayLoads(name, assignments),
		Blocked:     rules.BlockedDays(name, assignments),
		FullyLoaded: rules.FullyLoadedDays(*machine, assignments),
	}
	if minutes <= 0 {
		return days, nil
	}

	cal := s.engine.Calendar()
	day := cal.NextWorkingInstant(s.engine.Now())
	for i := 0; i < opts.MaxWaitDays && len(days.OpenDays) < openDayCount; i++ {
		if rules.CanAddOnDay(*machine, day, minutes, assignments) {
			days.OpenDays = append(days.OpenDays, rules.DayKey(day))
		}
		day = cal.NextWorkingDayStart(day)
	}
	return days, nil
}

// snapshot loads the engine input, with shift reports folded into task completion.
func (s *Service) snapshot(ctx context.Context) (scheduler.Input, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("listing jobs: %w", err)
	}
	machines, err := s.store.ListMachines(ctx)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("listing machines: %w", err)
	}
	reports, err := s.store.ListShiftReports(ctx)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("listing shift reports: %w", err)
	}
	current, err := s.store.ListSchedule(ctx)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("listing schedule: %w", err)
	}

	return scheduler.Input{
		Jobs:        execution.Apply(jobs, reports),
		Machines:    machines,
		Assignments: current,
	}, nil
}

func (s *Service) publishReplan(ctx context.Context, res *scheduler.ReplanResult) error {
	changed := []models.Assignment{res.Updated}
	for _, a := range res.Shifted {
		if a.ID != res.Updated.ID {
			changed = append(changed, a)
		}
	}
	if err := s.store.UpdateAssignments(ctx, changed); err != nil {
		return fmt.Errorf("publishing replan: %w", err)
	}
	return nil
}

// withLock runs fn while holding both the process mutex and the shared
// planning lock. Neither is waited for.
func (s *Service) withLock(ctx context.Context, fn func() error) error {
	if !s.mu.TryLock() {
		return ErrPlanningInProgress
	}
	defer s.mu.Unlock()

	token := uuid.NewString()
	if err := s.cache.AcquireLock(ctx, cache.PlanningLockKey, token, s.lockTTL); err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return ErrPlanningInProgress
		}
		return fmt.Errorf("acquiring planning lock: %w", err)
	}
	defer func() {
		if err := s.cache.ReleaseLock(context.Background(), cache.PlanningLockKey, token); err != nil {
			slog.Error("releasing planning lock", "error", err)
		}
	}()

	return fn()
}

func (s *Service) failRun(runID uuid.UUID, msg string) {
	ctx := context.Background()
	slog.Error("plan run failed", "run_id", runID, "error", msg)
	_ = s.store.UpdatePlanRunStatus(ctx, runID, models.RunStatusFailed, store.WithErrorMessage(msg))
	_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusFailed, statusTTL)
}
