package reembed

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsAtInterval(t *testing.T) {
	var out bytes.Buffer
	tracker := NewProgressTracker(&out, 10, 4)

	tracker.BatchDone(3)
	assert.Empty(t, out.String(), "below the interval, nothing reported yet")

	tracker.BatchDone(3)
	assert.Contains(t, out.String(), "Migrated 6/10 chunks (60.0%) in 2 batches")
}

func TestProgressTracker_NoIntermediateReportOnFinalBatch(t *testing.T) {
	var out bytes.Buffer
	tracker := NewProgressTracker(&out, 5, 1)

	tracker.BatchDone(5)
	assert.Empty(t, out.String(), "the final batch is covered by the summary")

	tracker.Finish()
	assert.Contains(t, out.String(), "Migration complete. Processed 5 chunks in 1 batches")
}

func TestProgressTracker_FinishCountsBatches(t *testing.T) {
	var out bytes.Buffer
	tracker := NewProgressTracker(&out, 30, 100)

	for range 3 {
		tracker.BatchDone(10)
	}
	tracker.Finish()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 1, "interval of 100 suppresses intermediate reports")
	assert.Contains(t, lines[0], "Processed 30 chunks in 3 batches")
}
