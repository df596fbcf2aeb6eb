package diag

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"metarisk/logger"
)

func init() {
	logger.Init("error")
}

type fakeProfile struct {
	content string
}

func (f fakeProfile) WriteTo(w io.Writer, debug int) error {
	_, err := io.WriteString(w, f.content)
	return err
}

func TestCheckWritesStallReport(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	d := NewWatchdog(Options{
		StallThreshold: 2 * time.Second,
		Dir:            dir,
		FilesDone:      func() int64 { return 42 },
		DumpTrace: func(path string) error {
			return os.WriteFile(path, []byte("flight"), 0o600)
		},
		Now: func() time.Time { return now },
	})
	d.lastCount = 42
	d.lastMoveAt = now

	d.check(now.Add(3 * time.Second))

	reports, _ := filepath.Glob(filepath.Join(dir, "metarisk-stall-*.json"))
	if len(reports) != 1 {
		t.Fatalf("expected one stall report, got %d", len(reports))
	}
	data, err := os.ReadFile(reports[0])
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report StallReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.FilesDone != 42 || report.StalledMS != 3000 || report.ThresholdMS != 2000 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, err := os.Stat(report.TraceFile); err != nil {
		t.Fatalf("trace file missing: %v", err)
	}

	// a second check inside the threshold window must not dump again
	d.check(now.Add(4 * time.Second))
	reports, _ = filepath.Glob(filepath.Join(dir, "metarisk-stall-*.json"))
	if len(reports) != 1 {
		t.Fatalf("expected dump rate limiting, got %d reports", len(reports))
	}
}

func TestCheckResetsOnProgress(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	var done int64 = 1
	d := NewWatchdog(Options{
		StallThreshold: time.Second,
		Dir:            dir,
		FilesDone:      func() int64 { return done },
		Now:            func() time.Time { return now },
	})
	d.lastCount = 0
	d.lastMoveAt = now

	d.check(now.Add(5 * time.Second))
	if reports, _ := filepath.Glob(filepath.Join(dir, "*.json")); len(reports) != 0 {
		t.Fatal("progress should not produce a stall report")
	}
	if !d.lastMoveAt.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("last progress time not updated: %v", d.lastMoveAt)
	}
}

func TestWriteProfile(t *testing.T) {
	dir := t.TempDir()
	d := NewWatchdog(Options{
		Dir: dir,
		lookupProfile: func(name string) profileWriter {
			if name == "goroutine" {
				return fakeProfile{content: "goroutine-profile"}
			}
			return nil
		},
	})
	path, err := d.writeProfile("goroutine", 0)
	if err != nil {
		t.Fatalf("write profile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "goroutine-profile" {
		t.Fatalf("unexpected profile content %q: %v", data, err)
	}
	if _, err := d.writeProfile("heap-missing", 0); err == nil {
		t.Fatal("expected error for unavailable profile")
	}
}

func TestCloseWritesGoroutineDump(t *testing.T) {
	dir := t.TempDir()
	d := NewWatchdog(Options{
		Dir:           dir,
		GoroutineDump: true,
		lookupProfile: func(name string) profileWriter {
			return fakeProfile{content: "leak"}
		},
	})
	d.Close()
	matches, _ := filepath.Glob(filepath.Join(dir, "metarisk-goroutine-*.pprof"))
	if len(matches) != 1 {
		t.Fatalf("expected 1 goroutine dump, got %d", len(matches))
	}
}

func TestStartStopsOnClose(t *testing.T) {
	var done atomic.Int64
	d := NewWatchdog(Options{
		StallThreshold: 10 * time.Millisecond,
		Dir:            t.TempDir(),
		FilesDone:      done.Load,
	})
	d.Start(context.Background())
	done.Add(1)
	d.Close()
	if d.stopCh != nil {
		t.Fatal("watchdog still running after Close")
	}
}

func TestStartDisabledWithoutThreshold(t *testing.T) {
	d := NewWatchdog(Options{FilesDone: func() int64 { return 0 }})
	d.Start(context.Background())
	if d.stopCh != nil {
		t.Fatal("watchdog should not start without a threshold")
	}
	d.Close()
}
