package dtc

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultSource is used when no DTC source path is configured.
const DefaultSource = "dtcs.txt"

// Store is the DTC table, loaded once and read-only afterwards. Safe to
// share across concurrent sessions.
type Store struct {
	records []Record
}

// NewStore builds a store from in-memory records.
func NewStore(records ...Record) *Store {
	rec := make([]Record, len(records))
	copy(rec, records)
	return &Store{records: rec}
}

// Load reads the DTC source file. An unreadable or malformed source is an
// error, the service must not come up against an accidentally empty table.
// An empty path falls back to DefaultSource.
func Load(path string) (*Store, error) {
	if path == "" {
		path = DefaultSource
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open DTC source: %w", err)
	}
	defer f.Close()

	s := &Store{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rec, err := ParseRecord(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		s.records = append(s.records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read DTC source: %w", err)
	}
	return s, nil
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns the table in load order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Filter returns the records whose status passes the mask, in load order.
func (s *Store) Filter(mask byte) []Record {
	var out []Record
	for _, rec := range s.records {
		if Match(rec.Status, mask) {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns the number of records whose status passes the mask.
func (s *Store) Count(mask byte) int {
	n := 0
	for _, rec := range s.records {
		if Match(rec.Status, mask) {
			n++
		}
	}
	return n
}
