package reembed

import (
	"fmt"
	"io"
	"time"
)

// ProgressTracker reports migration progress in terms of the batches
// the migrator completes. Reports are throttled to every reportEvery
// chunks so large migrations do not flood the output.
type ProgressTracker struct {
	writer      io.Writer
	totalChunks int
	reportEvery int
	doneChunks  int
	batches     int
	sinceReport int
	startTime   time.Time
}

// NewProgressTracker creates a tracker writing to w.
// reportEvery values below 1 report after every batch.
func NewProgressTracker(w io.Writer, totalChunks, reportEvery int) *ProgressTracker {
	if reportEvery < 1 {
		reportEvery = 1
	}
	return &ProgressTracker{
		writer:      w,
		totalChunks: totalChunks,
		reportEvery: reportEvery,
		startTime:   time.Now(),
	}
}

// BatchDone records a completed batch of the given chunk count and
// emits a progress line once enough chunks have accumulated.
func (pt *ProgressTracker) BatchDone(chunks int) {
	pt.doneChunks += chunks
	pt.batches++
	pt.sinceReport += chunks

	if pt.sinceReport >= pt.reportEvery && pt.doneChunks < pt.totalChunks {
		pt.report()
		pt.sinceReport = 0
	}
}

// Finish emits the final summary line.
func (pt *ProgressTracker) Finish() {
	elapsed := time.Since(pt.startTime)
	fmt.Fprintf(pt.writer, "Migration complete. Processed %d chunks in %d batches (%v, %.1f chunks/sec)\n",
		pt.doneChunks, pt.batches, elapsed.Round(time.Second), rate(pt.doneChunks, elapsed))
}

func (pt *ProgressTracker) report() {
	percent := float64(0)
	if pt.totalChunks > 0 {
		percent = float64(pt.doneChunks) / float64(pt.totalChunks) * 100
	}
	fmt.Fprintf(pt.writer, "Migrated %d/%d chunks (%.1f%%) in %d batches, %.1f chunks/sec\n",
		pt.doneChunks, pt.totalChunks, percent, pt.batches, rate(pt.doneChunks, time.Since(pt.startTime)))
}

// rate guards against a zero elapsed duration on very fast runs.
func rate(chunks int, elapsed time.Duration) float64 {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(chunks) / seconds
}
