// Package history persists an audit record of verification and repair
// runs as one JSON file per run. Records are written atomically and
// listed newest-first; old records can be pruned by age.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// Operation is the kind of run being recorded.
type Operation string

const (
	// OpVerify records a verification pass.
	OpVerify Operation = "verify"
	// OpRepair records a repair pass.
	OpRepair Operation = "repair"
)

// ProblemRecord is one problem as persisted in a history entry.
type ProblemRecord struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Summary aggregates a run's counters.
type Summary struct {
	FilesChecked int   `json:"files_checked"`
	FilesValid   int   `json:"files_valid"`
	FilesMissing int   `json:"files_missing"`
	BytesHashed  int64 `json:"bytes_hashed"`
}

// Entry is one persisted run record.
type Entry struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Operation  Operation       `json:"operation"`
	Repository string          `json:"repository"`
	Revision   string          `json:"revision"`
	Valid      bool            `json:"valid"`
	Problems   []ProblemRecord `json:"problems,omitempty"`
	Summary    Summary         `json:"summary"`
}

// Log manages run records in a directory.
type Log struct {
	dir string
	mu  sync.Mutex
}

// New creates a Log rooted at dir. The directory is created lazily on
// first write.
func New(dir string) (*Log, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &Log{dir: dir}, nil
}

// Record persists a new entry for the given run and returns it with ID
// and timestamp filled in.
func (l *Log) Record(op Operation, repo, revision string, valid bool, problems types.ProblemSet, summary Summary) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &Entry{
		ID:         fmt.Sprintf("%s-%s", op, uuid.NewString()),
		Timestamp:  time.Now().UTC(),
		Operation:  op,
		Repository: repo,
		Revision:   revision,
		Valid:      valid,
		Summary:    summary,
	}
	for _, p := range problems {
		entry.Problems = append(entry.Problems, ProblemRecord{Name: p.Name, Reason: p.Reason()})
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	if err := l.writeEntry(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// writeEntry writes an entry atomically via temp file and rename.
func (l *Log) writeEntry(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history entry: %w", err)
	}

	path := filepath.Join(l.dir, entry.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing history entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming history entry: %w", err)
	}
	return nil
}

// List returns entries sorted newest-first. A limit <= 0 returns all.
func (l *Log) List(limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	files, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.dir, f.Name()))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			// Skip corrupt records rather than fail the listing.
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (l *Log) Get(id string) (*Entry, error) {
	entries, err := l.List(0)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id || strings.HasPrefix(entries[i].ID, id) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("history entry %q not found", id)
}

// Prune removes entries older than the retention period and returns the
// number removed.
func (l *Log) Prune(retention time.Duration) (int, error) {
	entries, err := l.List(0)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().UTC().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.Timestamp.After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, entry.ID+".json")); err != nil {
			return removed, fmt.Errorf("pruning %s: %w", entry.ID, err)
		}
		removed++
	}
	return removed, nil
}
