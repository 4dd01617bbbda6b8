package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// LedgerEntry is one line of the dedup ledger.
type LedgerEntry struct {
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
}

// Ledger is an append-only, newline-delimited JSON record of every article id
// the pipeline has ever fetched. It is single-writer by pipeline design.
type Ledger struct {
	path string
}

// NewLedger creates a ledger backed by the given file path. The file is
// created lazily on the first Record call.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Record appends an entry for the given id. Once recorded, an id is never
// re-fetched by a later scrape.
func (l *Ledger) Record(id string) error {
	entry := LedgerEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		ID:        id,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding ledger entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending to ledger %s: %w", l.path, err)
	}
	return nil
}

// AllIDs returns the set of every previously recorded id. Lines that fail to
// parse are skipped rather than aborting the read; a missing ledger file
// yields an empty set.
func (l *Ledger) AllIDs() (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}
		return nil, fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry LedgerEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			log.Printf("Skipping corrupt ledger line: %v", err)
			continue
		}
		if entry.ID != "" {
			ids[entry.ID] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", l.path, err)
	}

	return ids, nil
}
