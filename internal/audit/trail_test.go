package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presswork/internal/testing/mock"
)

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestTrailWritesOneRecordPerLine(t *testing.T) {
	dir := t.TempDir()
	clock := mock.NewMockClock(time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC))

	trail, err := Open(dir, "task-123", clock)
	require.NoError(t, err)

	trail.Append(Record{Action: ActionRunStarted, Provider: "dom"})
	clock.Advance(3 * time.Second)
	trail.PhaseStarted("LOGIN", "dom")
	clock.Advance(2 * time.Second)
	trail.PhaseCompleted("LOGIN", "dom", 1, 2*time.Second)
	require.NoError(t, trail.Close())

	recs := readRecords(t, trail.Path())
	require.Len(t, recs, 3)

	assert.Equal(t, ActionRunStarted, recs[0].Action)
	assert.Equal(t, "task-123", recs[0].TaskID)
	assert.Equal(t, time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC), recs[0].Timestamp)

	assert.Equal(t, ActionPhaseStarted, recs[1].Action)
	assert.Equal(t, "LOGIN", recs[1].Phase)

	assert.Equal(t, ActionPhaseCompleted, recs[2].Action)
	assert.Equal(t, "success", recs[2].Outcome)
	assert.Equal(t, float64(1), recs[2].Details["attempts"])
	assert.Equal(t, "2s", recs[2].Details["duration"])
}

func TestTrailFileNamedAfterTask(t *testing.T) {
	dir := t.TempDir()
	trail, err := Open(dir, "9f2c1a", nil)
	require.NoError(t, err)
	defer trail.Close()

	assert.Equal(t, filepath.Join(dir, "9f2c1a.jsonl"), trail.Path())
}

func TestTrailSanitizesTaskID(t *testing.T) {
	dir := t.TempDir()
	trail, err := Open(dir, "../evil/task", nil)
	require.NoError(t, err)
	defer trail.Close()

	// The file stays inside dir.
	rel, err := filepath.Rel(dir, trail.Path())
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rel))
	assert.NotContains(t, rel, "..")
}

func TestTrailFailureHelpers(t *testing.T) {
	dir := t.TempDir()
	trail, err := Open(dir, "task-fail", nil)
	require.NoError(t, err)

	trail.PhaseRetried("FILL_CONTENT", "dom", 2, errors.New("element not found"))
	trail.PhaseFailed("FILL_CONTENT", "dom", errors.New("element not found"), "ab/abcd.png")
	trail.Fallback("dom", "vision", "PROVIDER_EXHAUSTED")
	require.NoError(t, trail.Close())

	recs := readRecords(t, trail.Path())
	require.Len(t, recs, 3)

	assert.Equal(t, ActionPhaseRetried, recs[0].Action)
	assert.Equal(t, float64(2), recs[0].Details["attempt"])
	assert.Equal(t, "element not found", recs[0].Error)

	assert.Equal(t, ActionPhaseFailed, recs[1].Action)
	assert.Equal(t, "ab/abcd.png", recs[1].ScreenshotRef)

	assert.Equal(t, ActionFallback, recs[2].Action)
	assert.Equal(t, "vision", recs[2].Provider)
	assert.Equal(t, "dom", recs[2].Details["from"])
}

func TestNilTrailIsSafe(t *testing.T) {
	var trail *Trail

	assert.NotPanics(t, func() {
		trail.Append(Record{Action: ActionRunStarted})
		trail.PhaseStarted("LOGIN", "dom")
		assert.Equal(t, "", trail.Path())
		assert.NoError(t, trail.Close())
	})
}

func TestAppendAfterCloseIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	trail, err := Open(dir, "task-closed", nil)
	require.NoError(t, err)

	trail.Append(Record{Action: ActionRunStarted})
	require.NoError(t, trail.Close())
	trail.Append(Record{Action: ActionRunFinished})

	recs := readRecords(t, trail.Path())
	assert.Len(t, recs, 1)
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	trail, err := Open(dir, "task-dir", nil)
	require.NoError(t, err)
	defer trail.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
