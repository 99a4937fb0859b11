package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"walletMonitor/internal/model"
)

const journalDayLayout = "2006-01-02"

// DailyJournal appends entries as JSON lines to one file per UTC day,
// named events-YYYY-MM-DD.jsonl. The file of the current day stays open
// until an entry for another day arrives.
type DailyJournal struct {
	dir string

	mu   sync.Mutex
	day  string
	file *os.File
}

var _ Journal = (*DailyJournal)(nil)

func NewDailyJournal(dir string) *DailyJournal {
	return &DailyJournal{dir: dir}
}

// Path returns the file that holds entries received on day.
func (j *DailyJournal) Path(day time.Time) string {
	return filepath.Join(j.dir, "events-"+day.UTC().Format(journalDayLayout)+".jsonl")
}

// Record appends entry to the file of its receive day. A zero ReceivedAt
// is set to the current time.
func (j *DailyJournal) Record(entry model.JournalEntry) error {
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now()
	}
	entry.ReceivedAt = entry.ReceivedAt.UTC()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.rotate(entry.ReceivedAt); err != nil {
		return err
	}
	if _, err := j.file.Write(line); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	return nil
}

func (j *DailyJournal) rotate(at time.Time) error {
	day := at.Format(journalDayLayout)
	if j.file != nil && j.day == day {
		return nil
	}
	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("close journal %s: %w", j.day, err)
		}
		j.file = nil
	}

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	file, err := os.OpenFile(j.Path(at), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	j.file = file
	j.day = day
	return nil
}

// Close closes the open day file.
func (j *DailyJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	j.day = ""
	return err
}
