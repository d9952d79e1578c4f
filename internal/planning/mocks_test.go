package planning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/internal/cache"
	"github.com/kiranshivaraju/shopplan/internal/store"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// --- mocks ---

type mockStore struct {
	mu sync.Mutex

	jobs     []models.Job
	machines []models.Machine
	reports  []models.ShiftReport
	schedule []models.Assignment
	alerts   []models.Alert
	runs     map[uuid.UUID]*models.PlanRun

	statusUpdates []statusUpdate
	updated       []models.Assignment
	replaceCalls  int

	listJobsErr  error
	replaceErr    error
	panicOnList   bool
	createRunErr  error
}

type statusUpdate struct {
	ID     uuid.UUID
	Status string
	Opts   int
}

func newMockStore() *mockStore {
	return &mockStore{runs: make(map[uuid.UUID]*models.PlanRun)}
}

func (s *mockStore) Ping(_ context.Context) error { return nil }
func (s *mockStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) { return nil, nil }
func (s *mockStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *mockStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error { return nil }
func (s *mockStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) { return nil, nil }
func (s *mockStore) RevokeAPIKey(_ context.Context, _ uuid.UUID) error { return nil }

func (s *mockStore) ListJobs(_ context.Context) ([]models.Job, error) {
	if s.panicOnList {
		panic("boom")
	}
	if s.listJobsErr != nil {
		return nil, s.listJobsErr
	}
	return s.jobs, nil
}

func (s *mockStore) ListMachines(_ context.Context) ([]models.Machine, error) {
	return s.machines, nil
}

func (s *mockStore) ListShiftReports(_ context.Context) ([]models.ShiftReport, error) {
	return s.reports, nil
}

func (s *mockStore) CreatePlanRun(_ context.Context, run *models.PlanRun) error {
	if s.createRunErr != nil {
		return s.createRunErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *mockStore) GetPlanRun(_ context.Context, id uuid.UUID) (*models.PlanRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return run, nil
}

func (s *mockStore) UpdatePlanRunStatus(_ context.Context, id uuid.UUID, status string, opts ...store.RunUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	run.Status = status
	s.statusUpdates = append(s.statusUpdates, statusUpdate{ID: id, Status: status, Opts: len(opts)})
	return nil
}

func (s *mockStore) ReplaceSchedule(_ context.Context, assignments []models.Assignment, alerts []models.Alert) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	s.schedule = append([]models.Assignment(nil), assignments...)
	s.alerts = append([]models.Alert(nil), alerts...)
	return nil
}

func (s *mockStore) ListSchedule(_ context.Context) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Assignment(nil), s.schedule...), nil
}

func (s *mockStore) ListAssignments(_ context.Context, _ store.AssignmentFilter) ([]models.Assignment, int, error) {
	return s.schedule, len(s.schedule), nil
}

func (s *mockStore) GetAssignment(_ context.Context, id uuid.UUID) (*models.Assignment, error) {
	for _, a := range s.schedule {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *mockStore) UpdateAssignments(_ context.Context, assignments []models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, assignments...)
	for _, a := range assignments {
		for i := range s.schedule {
			if s.schedule[i].ID == a.ID {
				s.schedule[i] = a
			}
		}
	}
	return nil
}

func (s *mockStore) ListAlerts(_ context.Context, _ string) ([]models.Alert, error) {
	return s.alerts, nil
}

func (s *mockStore) statuses(id uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, u := range s.statusUpdates {
		if u.ID == id {
			out = append(out, u.Status)
		}
	}
	return out
}

type mockCache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
	lockHeld bool
	lockErr  error
	acquired int
	released int
}

func newMockCache() *mockCache {
	return &mockCache{statuses: make(map[uuid.UUID]string)}
}

func (c *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *mockCache) Delete(_ context.Context, _ string) error                          { return nil }
func (c *mockCache) Ping(_ context.Context) error                                      { return nil }
func (c *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, nil
}

func (c *mockCache) SetRunStatus(_ context.Context, runID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[runID] = status
	return nil
}

func (c *mockCache) GetRunStatus(_ context.Context, runID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[runID]
	return s, ok, nil
}

func (c *mockCache) AcquireLock(_ context.Context, _ string, _ string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lockErr != nil {
		return c.lockErr
	}
	if c.lockHeld {
		return cache.ErrLockHeld
	}
	c.lockHeld = true
	c.acquired++
	return nil
}

func (c *mockCache) ReleaseLock(_ context.Context, _ string, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockHeld = false
	c.released++
	return nil
}

type mockEnqueuer struct {
	runs []uuid.UUID
	err  error
}

func (e *mockEnqueuer) EnqueuePlanRun(_ context.Context, runID uuid.UUID) error {
	if e.err != nil {
		return e.err
	}
	e.runs = append(e.runs, runID)
	return nil
}

var errBoom = errors.New("boom")
