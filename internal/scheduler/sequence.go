package scheduler

import (
	"sort"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shopplan/pkg/models"
)

// Sequence returns the job's tasks in execution order. Each task depends only
// on the one before it.
func Sequence(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// taskIndex locates tasks and their predecessors across a job snapshot.
type taskIndex struct {
	jobs  map[uuid.UUID]models.Job
	tasks map[uuid.UUID]models.Task
	// prev maps a task to the task before it in its job, absent for the first.
	prev map[uuid.UUID]uuid.UUID
	// next maps a task to the tasks after it in its job, in order.
	next map[uuid.UUID][]uuid.UUID
}

func newTaskIndex(jobs []models.Job) taskIndex {
	idx := taskIndex{
		jobs:  make(map[uuid.UUID]models.Job, len(jobs)),
		tasks: make(map[uuid.UUID]models.Task),
		prev:  make(map[uuid.UUID]uuid.UUID),
		next:  make(map[uuid.UUID][]uuid.UUID),
	}
	for _, j := range jobs {
		idx.jobs[j.ID] = j
		seq := Sequence(j.Tasks)
		for i, t := range seq {
			idx.tasks[t.ID] = t
			if i > 0 {
				idx.prev[t.ID] = seq[i-1].ID
			}
			for _, later := range seq[i+1:] {
				idx.next[t.ID] = append(idx.next[t.ID], later.ID)
			}
		}
	}
	return idx
}
