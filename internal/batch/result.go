package batch

import "time"

// Result aggregates the outcome of one batch run.
// It is owned by the run loop and only updated from it.
type Result struct {
	// ID identifies the run in logs.
	ID string
	// Root is the scanned directory.
	Root string
	// Found is the number of discovered files.
	Found int
	// Processed is the number of files written successfully.
	Processed int
	// Errors is the number of files that failed.
	Errors int
	// TotalTrimmedSeconds sums the silence removed from processed files.
	TotalTrimmedSeconds float64
	// Tasks holds one entry per attempted file, in discovery order.
	Tasks []*Task
	// Cancelled is set when a stop signal ended the run before every file
	// was attempted.
	Cancelled bool
	// StartedAt is when the run started.
	StartedAt time.Time
	// FinishedAt is when the run finished.
	FinishedAt time.Time
}

// AverageTrimmedSeconds returns the mean silence removed per processed file,
// or 0 when nothing was processed.
func (r *Result) AverageTrimmedSeconds() float64 {
	return r.TotalTrimmedSeconds / float64(max(r.Processed, 1))
}

// Failed returns the tasks that ended in ERROR.
func (r *Result) Failed() []*Task {
	var failed []*Task
	for _, t := range r.Tasks {
		if t.Stage == StageError {
			failed = append(failed, t)
		}
	}
	return failed
}

func (r *Result) record(t *Task) {
	r.Tasks = append(r.Tasks, t)
	if t.Succeeded() {
		r.Processed++
		r.TotalTrimmedSeconds += t.TrimmedSeconds
		return
	}
	r.Errors++
}
