package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"outagewatch/internal/storage"
)

func TestWriteDowntimeChart(t *testing.T) {
	records := []storage.OutageRecord{
		closedOutage(1, time.Date(2024, time.January, 3, 8, 0, 0, 0, time.UTC), 600),
		closedOutage(2, time.Date(2024, time.February, 9, 8, 0, 0, 0, time.UTC), 1800),
	}
	cost, err := Cost(records, decimal.Zero)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}

	path := filepath.Join(t.TempDir(), "charts", "downtime.png")
	if err := WriteDowntimeChart(path, cost); err != nil {
		t.Fatalf("write chart: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatal("chart is not a PNG")
	}
}

func TestWriteDowntimeChartRequiresData(t *testing.T) {
	if err := WriteDowntimeChart(filepath.Join(t.TempDir(), "empty.png"), CostReport{}); err == nil {
		t.Fatal("expected an error for an empty report")
	}
}
