package state

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/silene/opam/pkg/model"
)

// JournalEntry records one planned action of an accepted solution.
// Entries are written before execution starts and marked done one by
// one, so an interrupted run can be diagnosed on the next load.
type JournalEntry struct {
	Op   string    `json:"op"`
	NV   string    `json:"nv"`
	Was  string    `json:"was,omitempty"`
	Done bool      `json:"done"`
	At   time.Time `json:"at"`
}

// WriteJournal rewrites the journal with the given entries, one JSON
// record per line.
func (r *Root) WriteJournal(ctx context.Context, entries []JournalEntry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		b, err := jsoniter.Marshal(e)
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return r.writeAtomic(model.GetJournalPath(), buf.Bytes())
}

// Journal reads every recorded entry. A missing file reads as empty.
func (r *Root) Journal(ctx context.Context) ([]JournalEntry, error) {
	f, err := r.fs.Open(r.Join(model.GetJournalPath()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var entries []JournalEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e JournalEntry
		if err := jsoniter.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// PendingJournal returns the entries not yet marked done.
func (r *Root) PendingJournal(ctx context.Context) ([]JournalEntry, error) {
	entries, err := r.Journal(ctx)
	if err != nil {
		return nil, err
	}
	var pending []JournalEntry
	for _, e := range entries {
		if !e.Done {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// ClearJournal removes the journal once a solution ran to completion.
func (r *Root) ClearJournal(ctx context.Context) error {
	err := r.fs.Remove(r.Join(model.GetJournalPath()))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
