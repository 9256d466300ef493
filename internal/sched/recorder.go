package sched

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Recorder is an Observer that writes status events as CSV rows and logs
// them at debug level. Tick events are skipped for the brevity of output.
type Recorder struct {
	csvWriter *csv.Writer
	closer    io.Closer
	logger    *slog.Logger
	ranTotals map[TaskID]int64 // resumptions per task
	err       error
}

// NewRecorder writes the CSV header to w and returns the recorder.
func NewRecorder(w io.Writer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = discardLogger()
	}
	r := &Recorder{
		csvWriter: csv.NewWriter(w),
		logger:    logger.With("component", "recorder"),
		ranTotals: make(map[TaskID]int64),
	}
	r.write([]string{"timestamp", "tick", "event", "task_id", "priority", "ordinal", "ran", "budget", "consumed"})
	return r
}

// CreateRecorder opens path for CSV logging of events.
func CreateRecorder(path string, logger *slog.Logger) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := NewRecorder(f, logger)
	r.closer = f
	return r, nil
}

// Observe records ev; pass it to WithObserver.
func (r *Recorder) Observe(ev StatusEvent) {
	if ev.Kind == StatusTick {
		return
	}
	if ev.Kind == StatusResume {
		r.ranTotals[ev.TaskID]++
	}

	r.logger.Debug(ev.Kind.String(),
		"tick", ev.Tick,
		"task_id", ev.TaskID,
		"priority", ev.Priority,
		"ran", r.ranTotals[ev.TaskID],
		"ordinal", ev.Ordinal)

	r.write([]string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatInt(ev.Tick, 10),
		ev.Kind.String(),
		strconv.FormatUint(uint64(ev.TaskID), 10),
		ev.Priority.String(),
		strconv.FormatUint(ev.Ordinal, 10),
		strconv.FormatInt(r.ranTotals[ev.TaskID], 10),
		strconv.Itoa(ev.Budget),
		strconv.Itoa(ev.Consumed),
	})
}

// Runs returns how many times the task was resumed.
func (r *Recorder) Runs(id TaskID) int64 { return r.ranTotals[id] }

// Err returns the first write error.
func (r *Recorder) Err() error { return r.err }

// Close flushes the CSV output and closes the file opened by CreateRecorder.
func (r *Recorder) Close() error {
	r.csvWriter.Flush()
	if err := r.csvWriter.Error(); err != nil && r.err == nil {
		r.err = err
	}
	if r.closer != nil {
		if err := r.closer.Close(); err != nil && r.err == nil {
			r.err = err
		}
	}
	return r.err
}

func (r *Recorder) write(rec []string) {
	if r.err != nil {
		return
	}
	if err := r.csvWriter.Write(rec); err != nil {
		r.err = err
	}
}
