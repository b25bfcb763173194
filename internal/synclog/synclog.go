// Package synclog records one CSV row per sync run under logs/sync-log.csv.
package synclog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one row in the sync log.
type Entry struct {
	Timestamp       time.Time
	Trigger         string // "sync", "watch" or "dry-run"
	Scanned         int
	Skipped         int
	Unrecognized    int
	NewTransactions int
	CreditEvents    int
	FeeMonths       int
	// Cursor is the newest message timestamp seen by the run.
	Cursor time.Time
	Error  string
}

// OK reports whether the run finished without error.
func (e Entry) OK() bool {
	return e.Error == ""
}

// Header is the CSV header for sync-log.csv.
const Header = "timestamp,trigger,scanned,skipped,unrecognized,new_transactions,credit_events,fee_months,cursor,error"

const (
	numFields   = 10
	logDir      = "logs"
	logFile     = "logs/sync-log.csv"
	colTime     = 0
	colTrigger  = 1
	colScanned  = 2
	colSkipped  = 3
	colUnrecog  = 4
	colNew      = 5
	colCredit   = 6
	colFeeMonth = 7
	colCursor   = 8
	colError    = 9
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.Format(time.RFC3339)
	row[colTrigger] = e.Trigger
	row[colScanned] = strconv.Itoa(e.Scanned)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colUnrecog] = strconv.Itoa(e.Unrecognized)
	row[colNew] = strconv.Itoa(e.NewTransactions)
	row[colCredit] = strconv.Itoa(e.CreditEvents)
	row[colFeeMonth] = strconv.Itoa(e.FeeMonths)
	if !e.Cursor.IsZero() {
		row[colCursor] = e.Cursor.Format(time.RFC3339)
	}
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}

	e := Entry{
		Timestamp: ts,
		Trigger:   record[colTrigger],
		Error:     record[colError],
	}

	for _, f := range []struct {
		name string
		col  int
		dst  *int
	}{
		{"scanned", colScanned, &e.Scanned},
		{"skipped", colSkipped, &e.Skipped},
		{"unrecognized", colUnrecog, &e.Unrecognized},
		{"new_transactions", colNew, &e.NewTransactions},
		{"credit_events", colCredit, &e.CreditEvents},
		{"fee_months", colFeeMonth, &e.FeeMonths},
	} {
		if *f.dst, err = strconv.Atoi(record[f.col]); err != nil {
			return Entry{}, fmt.Errorf("parsing %s %q: %w", f.name, record[f.col], err)
		}
	}

	if record[colCursor] != "" {
		if e.Cursor, err = time.Parse(time.RFC3339, record[colCursor]); err != nil {
			return Entry{}, fmt.Errorf("parsing cursor %q: %w", record[colCursor], err)
		}
	}
	return e, nil
}

// Append writes entries to <root>/logs/sync-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening sync log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <root>/logs/sync-log.csv.
// Returns nil if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening sync log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading sync log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
