package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletMonitor/internal/model"
)

func readJournal(t *testing.T, path string) []model.JournalEntry {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var entries []model.JournalEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry model.JournalEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestDailyJournalRotatesByDay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	journal := NewDailyJournal(dir)
	defer journal.Close()

	late := time.Date(2024, 3, 9, 23, 59, 59, 0, time.UTC)
	next := late.Add(2 * time.Second)

	require.NoError(t, journal.Record(model.JournalEntry{ReceivedAt: late, Signature: "sig-1", Outcome: "stored"}))
	require.NoError(t, journal.Record(model.JournalEntry{ReceivedAt: late, Signature: "sig-2", Outcome: "skipped", Reason: "excluded source"}))
	require.NoError(t, journal.Record(model.JournalEntry{ReceivedAt: next, Signature: "sig-3", Outcome: "duplicate"}))

	first := readJournal(t, filepath.Join(dir, "events-2024-03-09.jsonl"))
	require.Len(t, first, 2)
	assert.Equal(t, "sig-1", first[0].Signature)
	assert.Equal(t, "excluded source", first[1].Reason)

	second := readJournal(t, journal.Path(next))
	require.Len(t, second, 1)
	assert.Equal(t, "duplicate", second[0].Outcome)
	assert.True(t, second[0].ReceivedAt.Equal(next))
}

func TestDailyJournalAppendsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))

	journal := NewDailyJournal(dir)
	require.NoError(t, journal.Record(model.JournalEntry{ReceivedAt: at, Signature: "sig-1", Outcome: "stored"}))
	require.NoError(t, journal.Close())

	journal = NewDailyJournal(dir)
	require.NoError(t, journal.Record(model.JournalEntry{ReceivedAt: at, Signature: "sig-2", Outcome: "stored"}))
	require.NoError(t, journal.Close())

	entries := readJournal(t, filepath.Join(dir, "events-2024-03-09.jsonl"))
	require.Len(t, entries, 2)
	assert.Equal(t, "sig-2", entries[1].Signature)
}
