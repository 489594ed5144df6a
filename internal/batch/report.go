package batch

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Observer receives progress events from Service.Run, in order, from the
// run goroutine.
type Observer interface {
	// OnStart is called once discovery found at least one file.
	OnStart(r *Result)
	// OnFileStart is called before file i of n (1-based) is processed.
	OnFileStart(i, n int, path string)
	// OnFileDone is called once the task reached a terminal stage.
	OnFileDone(i, n int, t *Task)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnStart(*Result)              {}
func (NopObserver) OnFileStart(int, int, string) {}
func (NopObserver) OnFileDone(int, int, *Task)   {}

// ConsoleObserver prints one progress line and one outcome line per file.
type ConsoleObserver struct {
	w io.Writer
}

// NewConsoleObserver creates a ConsoleObserver writing to w.
func NewConsoleObserver(w io.Writer) *ConsoleObserver {
	return &ConsoleObserver{w: w}
}

func (o *ConsoleObserver) OnStart(r *Result) {
	fmt.Fprintf(o.w, "Found %d audio files to process...\n", r.Found)
}

func (o *ConsoleObserver) OnFileStart(i, n int, path string) {
	fmt.Fprintf(o.w, "[%d/%d] %s\n", i, n, path)
}

func (o *ConsoleObserver) OnFileDone(_, _ int, t *Task) {
	fmt.Fprintln(o.w, FormatOutcome(t))
}

// FormatOutcome renders the one-line outcome of a finished task.
func FormatOutcome(t *Task) string {
	if !t.Succeeded() {
		cause := "unknown error"
		if t.Err != nil {
			cause = t.Err.Err.Error()
		}
		return fmt.Sprintf("✗ Error processing %s: %s", t.InputPath, cause)
	}

	name := filepath.Base(t.InputPath)
	if t.TrimOffset > 0 {
		return fmt.Sprintf("✓ %s: Trimmed %.3fs from start, added 1.0s silence", name, t.TrimmedSeconds)
	}
	return fmt.Sprintf("✓ %s: No silence detected at start, added 1.0s silence", name)
}

const summaryRule = 50

// WriteSummary writes the fixed-format processing summary for r.
func WriteSummary(w io.Writer, r *Result) error {
	rule := strings.Repeat("=", summaryRule)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(rule + "\n")
	b.WriteString("PROCESSING SUMMARY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total files found: %d\n", r.Found)
	fmt.Fprintf(&b, "Successfully processed: %d\n", r.Processed)
	fmt.Fprintf(&b, "Errors: %d\n", r.Errors)
	fmt.Fprintf(&b, "Total silence trimmed: %.3f seconds\n", r.TotalTrimmedSeconds)
	fmt.Fprintf(&b, "Average silence per file: %.3f seconds\n", r.AverageTrimmedSeconds())

	_, err := io.WriteString(w, b.String())
	return err
}

var (
	_ Observer = NopObserver{}
	_ Observer = (*ConsoleObserver)(nil)
)
