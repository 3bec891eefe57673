package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"outagewatch/internal/config"
	"outagewatch/internal/report"
	"outagewatch/internal/storage"
)

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:      config.DriverSQLite,
			Path:        filepath.Join(t.TempDir(), "internet_outages.db"),
			BusyTimeout: time.Second,
		},
		Watch: config.WatchConfig{
			TargetIP:     "127.0.0.1",
			TargetPort:   53,
			Interval:     50 * time.Millisecond,
			ProbeTimeout: 20 * time.Millisecond,
		},
		Report: config.ReportConfig{Currency: "€", RecentLimit: 5},
	}
	var out bytes.Buffer
	a := NewApp(cfg, zerolog.Nop())
	a.Out = &out
	return a, &out
}

func seed(t *testing.T, a *App, outages [][2]time.Time) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.OpenSQLite(ctx, a.Config.Database.Path, time.Second)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	for _, o := range outages {
		id, err := store.OpenOutage(ctx, o[0])
		if err != nil {
			t.Fatalf("open outage: %v", err)
		}
		if o[1].IsZero() {
			continue
		}
		if _, err := store.CloseOutage(ctx, id, o[1]); err != nil {
			t.Fatalf("close outage: %v", err)
		}
	}
}

func TestStatsEmptyStorage(t *testing.T) {
	a, out := testApp(t)
	if err := a.Stats(context.Background()); err != nil {
		t.Fatalf("stats on empty storage: %v", err)
	}
	if !strings.Contains(out.String(), "Total number of outages: 0") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestStatsWithOngoingOutage(t *testing.T) {
	a, out := testApp(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, a, [][2]time.Time{
		{base, base.Add(10 * time.Second)},
		{base.Add(time.Hour), base.Add(time.Hour + 30*time.Second)},
		{base.Add(2 * time.Hour), {}},
	})

	if err := a.Stats(context.Background()); err != nil {
		t.Fatalf("stats: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"Total number of outages: 2",
		"Total outage duration: 40 seconds",
		"Average outage duration: 20.00 seconds",
		"Longest outage: 30 seconds",
		"Ongoing outage since:",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
}

func TestRecent(t *testing.T) {
	a, out := testApp(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, a, [][2]time.Time{
		{base, base.Add(11 * time.Second)},
		{base.Add(time.Hour), base.Add(time.Hour + 22*time.Second)},
	})

	if err := a.Recent(context.Background(), RecentOptions{Limit: 1}); err != nil {
		t.Fatalf("recent: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %q", out.String())
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[1]), "22") {
		t.Fatalf("expected the newest outage first, got %q", lines[1])
	}

	if err := a.Recent(context.Background(), RecentOptions{Limit: -1}); !errors.Is(err, report.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestExportToFileAndStdout(t *testing.T) {
	a, out := testApp(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, a, [][2]time.Time{{base, base.Add(10 * time.Second)}})

	path := filepath.Join(t.TempDir(), "export", "outages.csv")
	if err := a.Export(context.Background(), ExportOptions{CSVPath: path}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	want := "id,start_time,end_time,duration_seconds\n1,2024-01-01T00:00:00Z,2024-01-01T00:00:10Z,10\n"
	if string(data) != want {
		t.Fatalf("unexpected export:\n%s", data)
	}

	if err := a.Export(context.Background(), ExportOptions{}); err != nil {
		t.Fatalf("export to stdout: %v", err)
	}
	if out.String() != want {
		t.Fatalf("unexpected stdout export:\n%s", out.String())
	}
}

func TestCostReport(t *testing.T) {
	a, out := testApp(t)
	start := time.Date(2023, time.June, 10, 12, 0, 0, 0, time.UTC)
	seed(t, a, [][2]time.Time{{start, start.Add(time.Hour)}})

	if err := a.Cost(context.Background(), CostOptions{Rate: "30"}); err != nil {
		t.Fatalf("cost: %v", err)
	}
	text := out.String()
	for _, want := range []string{"June", "01:00:00", "0.139%", "€0.042", "Total cost of outages"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}

	if err := a.Cost(context.Background(), CostOptions{Rate: "lots"}); !errors.Is(err, report.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWatchRejectsInvalidInterval(t *testing.T) {
	a, _ := testApp(t)
	if err := a.Watch(context.Background(), WatchOptions{Interval: lo.ToPtr(-5)}); !errors.Is(err, report.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWatchRejectsExplicitZeroOverrides(t *testing.T) {
	cases := map[string]WatchOptions{
		"zero interval": {Interval: lo.ToPtr(0)},
		"zero port":     {Port: lo.ToPtr(0)},
		"empty ip":      {IP: lo.ToPtr("")},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			a, _ := testApp(t)
			if err := a.Watch(context.Background(), opts); !errors.Is(err, report.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestWatchOneSecondIntervalWithDerivedTimeout(t *testing.T) {
	port := acceptingListener(t)
	a, out := testApp(t)
	a.Config.Watch.Interval = 5 * time.Second
	a.Config.Watch.ProbeTimeout = 0

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	if err := a.Watch(ctx, WatchOptions{Port: &port, Interval: lo.ToPtr(1)}); err != nil {
		t.Fatalf("watch with 1s interval: %v", err)
	}
	if !strings.Contains(out.String(), "every 1s") {
		t.Fatalf("interval override not applied: %q", out.String())
	}
}

func TestWatchRejectsExplicitTimeoutAboveInterval(t *testing.T) {
	a, _ := testApp(t)
	a.Config.Watch.ProbeTimeout = 2 * time.Second
	if err := a.Watch(context.Background(), WatchOptions{Interval: lo.ToPtr(1)}); !errors.Is(err, report.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func acceptingListener(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestWatchStopsOnCancel(t *testing.T) {
	port := acceptingListener(t)
	a, out := testApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	if err := a.Watch(ctx, WatchOptions{Port: &port}); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out.String(), "Starting internet connectivity monitoring") {
		t.Fatalf("banner missing: %q", out.String())
	}
	if strings.Contains(out.String(), "connection lost") {
		t.Fatalf("reachable target must not record outages: %q", out.String())
	}
}
