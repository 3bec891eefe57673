package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/guregu/null/v5"

	"outagewatch/internal/storage"
)

// CSVHeader is the fixed column order of exported outages.
var CSVHeader = []string{"id", "start_time", "end_time", "duration_seconds"}

// WriteCSV serialises records with a header row. Open outages have empty
// end_time and duration_seconds columns.
func WriteCSV(w io.Writer, records []storage.OutageRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			formatCSVTime(rec.StartTime),
			"",
			"",
		}
		if rec.EndTime.Valid {
			row[2] = formatCSVTime(rec.EndTime.Time)
		}
		if rec.DurationSeconds.Valid {
			row[3] = strconv.FormatInt(rec.DurationSeconds.Int64, 10)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportCSV writes records to path, replacing any existing file.
func ExportCSV(path string, records []storage.OutageRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(file, records); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ParseCSV reads records produced by WriteCSV.
func ParseCSV(r io.Reader) ([]storage.OutageRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}
	for i, name := range CSVHeader {
		if rows[0][i] != name {
			return nil, fmt.Errorf("read csv: unexpected column %q at position %d", rows[0][i], i)
		}
	}

	records := make([]storage.OutageRecord, 0, len(rows)-1)
	for line, row := range rows[1:] {
		rec, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseCSVRow(row []string) (storage.OutageRecord, error) {
	var rec storage.OutageRecord

	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return rec, fmt.Errorf("parse id: %w", err)
	}
	rec.ID = id

	if rec.StartTime, err = parseCSVTime(row[1]); err != nil {
		return rec, fmt.Errorf("parse start_time: %w", err)
	}
	if row[2] != "" {
		end, err := parseCSVTime(row[2])
		if err != nil {
			return rec, fmt.Errorf("parse end_time: %w", err)
		}
		rec.EndTime = null.TimeFrom(end)
	}
	if row[3] != "" {
		duration, err := strconv.ParseInt(row[3], 10, 64)
		if err != nil {
			return rec, fmt.Errorf("parse duration_seconds: %w", err)
		}
		rec.DurationSeconds = null.IntFrom(duration)
	}
	return rec, nil
}

func formatCSVTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseCSVTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
