package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// CSVParser reads message exports with the columns
// external_id,sender,body,timestamp. Timestamps are RFC 3339 or Unix
// milliseconds.
type CSVParser struct{}

const (
	csvNumFields = 4
	csvColID     = 0
	csvColSender = 1
	csvColBody   = 2
	csvColTime   = 3
)

// Ext returns ".csv".
func (p *CSVParser) Ext() string { return ".csv" }

// Parse reads a CSV export including its header row.
func (p *CSVParser) Parse(r io.Reader) ([]model.RawMessage, error) {
	return ReadMessages(r)
}

// ReadMessages reads a message CSV including its header row.
func ReadMessages(r io.Reader) ([]model.RawMessage, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = csvNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading messages CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var msgs []model.RawMessage
	for i, rec := range records[1:] {
		msg, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// WriteMessages writes msgs as CSV with a header row.
func WriteMessages(w io.Writer, msgs []model.RawMessage) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"external_id", "sender", "body", "timestamp"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, m := range msgs {
		row := []string{m.ExternalID, m.Sender, m.Body, m.Timestamp.Format(time.RFC3339)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

func parseRow(rec []string) (model.RawMessage, error) {
	id := strings.TrimSpace(rec[csvColID])
	if id == "" {
		return model.RawMessage{}, fmt.Errorf("empty external_id")
	}
	ts, err := parseTimestamp(rec[csvColTime])
	if err != nil {
		return model.RawMessage{}, err
	}
	return model.RawMessage{
		ExternalID: id,
		Sender:     rec[csvColSender],
		Body:       rec[csvColBody],
		Timestamp:  ts,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
