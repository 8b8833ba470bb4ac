//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/velmed/callscore/internal/lmsync"
	"github.com/velmed/callscore/internal/model"
)

func TestFormatStatusEntries_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatStatusEntries(&buf, nil)

	output := buf.String()
	// Header prints even with no entries.
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "PROCESSED")
}

func TestFormatStatusEntries_SingleEntry(t *testing.T) {
	started := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	completed := started.Add(42 * time.Second)

	entries := []lmsync.SyncEntry{
		{
			ID:          uuid.MustParse("5a0e8e1c-9f3d-4c6a-8a11-2b7f0d9e4c55"),
			Status:      "complete",
			StartedAt:   started,
			CompletedAt: &completed,
			Processed:   187,
			Skipped:     3,
		},
	}

	var buf bytes.Buffer
	formatStatusEntries(&buf, entries)

	output := buf.String()
	assert.Contains(t, output, "5a0e8e1c")
	assert.NotContains(t, output, "9f3d-4c6a", "id should be shortened")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "2026-08-30 09:15")
	assert.Contains(t, output, "42s")
	assert.Contains(t, output, "187")
}

func TestFormatStatusEntries_RunningAndFailed(t *testing.T) {
	started := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)

	entries := []lmsync.SyncEntry{
		{ID: uuid.New(), Status: "running", StartedAt: started},
		{ID: uuid.New(), Status: "failed", StartedAt: started, Error: "lmsync: batch aborted"},
	}

	var buf bytes.Buffer
	formatStatusEntries(&buf, entries)

	output := buf.String()
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "batch aborted")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := "this error message is definitely much longer than the limit allows"
	got := truncate(long, 20)
	assert.Len(t, got, 20)
	assert.Contains(t, got, "...")
}

func TestFormatTerms(t *testing.T) {
	terms := []model.DictionaryTerm{
		{Term: "refund my money", MatchType: model.MatchPhrase, Weight: 10, Version: "v1"},
		{Term: "lawyer|legal action", MatchType: model.MatchRegex, Weight: 8, IsNegative: false, Version: "v1"},
	}

	var buf bytes.Buffer
	formatTerms(&buf, terms)

	output := buf.String()
	assert.Contains(t, output, "refund my money")
	assert.Contains(t, output, "regex")
	assert.Contains(t, output, "10.0")
}
