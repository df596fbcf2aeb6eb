// Package diag watches a running analysis for stalls. When the file counter
// has not moved for longer than the configured threshold it writes a stall
// report and, if a flight recorder is running, the recent execution trace.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"metarisk/logger"
)

const artifactPrefix = "metarisk-"

type profileWriter interface {
	WriteTo(w io.Writer, debug int) error
}

type Options struct {
	// StallThreshold is how long the file counter may stay unchanged before
	// a stall report is written. Zero disables the watchdog.
	StallThreshold time.Duration
	Dir            string
	// GoroutineDump writes a goroutine profile on Close, useful for finding
	// workers that never returned.
	GoroutineDump bool
	FilesDone     func() int64
	DumpTrace     func(path string) error
	Now           func() time.Time
	lookupProfile func(name string) profileWriter
}

// StallReport is the JSON document written when the analysis stalls.
type StallReport struct {
	Event       string `json:"event"`
	Timestamp   string `json:"timestamp"`
	FilesDone   int64  `json:"files_done"`
	ThresholdMS int64  `json:"threshold_ms"`
	StalledMS   int64  `json:"stalled_ms"`
	Goroutines  int    `json:"goroutines"`
	TraceFile   string `json:"trace_file,omitempty"`
}

type Watchdog struct {
	opts Options

	mu         sync.Mutex
	lastCount  int64
	lastMoveAt time.Time
	lastDumpAt time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWatchdog(opts Options) *Watchdog {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.lookupProfile == nil {
		opts.lookupProfile = func(name string) profileWriter {
			if p := pprof.Lookup(name); p != nil {
				return p
			}
			return nil
		}
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return &Watchdog{opts: opts}
}

// Start polls the file counter until ctx is done or Close is called. It is a
// no-op when no threshold or counter is configured.
func (d *Watchdog) Start(ctx context.Context) {
	if d == nil || d.opts.StallThreshold <= 0 || d.opts.FilesDone == nil || d.stopCh != nil {
		return
	}

	d.mu.Lock()
	d.lastCount = d.opts.FilesDone()
	d.lastMoveAt = d.opts.Now()
	d.lastDumpAt = time.Time{}
	d.mu.Unlock()

	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	interval := min(max(d.opts.StallThreshold/2, 250*time.Millisecond), 2*time.Second)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(d.doneCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stopCh:
				return
			case <-ticker.C:
				d.check(d.opts.Now())
			}
		}
	}()
}

func (d *Watchdog) Close() {
	if d == nil {
		return
	}
	if d.stopCh != nil {
		close(d.stopCh)
		<-d.doneCh
		d.stopCh = nil
		d.doneCh = nil
	}
	if d.opts.GoroutineDump {
		if _, err := d.writeProfile("goroutine", 2); err != nil {
			logger.Warnf("Goroutine dump failed: %v", err)
		}
	}
}

func (d *Watchdog) check(now time.Time) {
	count := d.opts.FilesDone()

	d.mu.Lock()
	if count != d.lastCount || d.lastMoveAt.IsZero() {
		d.lastCount = count
		d.lastMoveAt = now
		d.mu.Unlock()
		return
	}
	stalled := now.Sub(d.lastMoveAt)
	threshold := d.opts.StallThreshold
	dump := stalled >= threshold && (d.lastDumpAt.IsZero() || now.Sub(d.lastDumpAt) >= threshold)
	if dump {
		d.lastDumpAt = now
	}
	d.mu.Unlock()

	if !dump {
		return
	}
	path, err := d.writeStallReport(now, count, stalled)
	if err != nil {
		logger.Warnf("Stall report failed: %v", err)
		return
	}
	logger.WithField("report", path).Warnf("No file progress for %s", stalled.Round(time.Millisecond))
}

func (d *Watchdog) writeStallReport(now time.Time, count int64, stalled time.Duration) (string, error) {
	if err := os.MkdirAll(d.opts.Dir, 0o755); err != nil {
		return "", err
	}
	ts := now.UTC().Format("20060102-150405.000")
	report := StallReport{
		Event:       "analysis_stalled",
		Timestamp:   now.UTC().Format(time.RFC3339Nano),
		FilesDone:   count,
		ThresholdMS: d.opts.StallThreshold.Milliseconds(),
		StalledMS:   stalled.Milliseconds(),
		Goroutines:  runtime.NumGoroutine(),
	}
	if d.opts.DumpTrace != nil {
		tracePath := filepath.Join(d.opts.Dir, fmt.Sprintf("%sstall-trace-%s.out", artifactPrefix, ts))
		if err := d.opts.DumpTrace(tracePath); err != nil {
			logger.Debugf("Flight recorder dump skipped: %v", err)
		} else if _, err := os.Stat(tracePath); err == nil {
			report.TraceFile = tracePath
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(d.opts.Dir, fmt.Sprintf("%sstall-%s.json", artifactPrefix, ts))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (d *Watchdog) writeProfile(name string, debug int) (string, error) {
	profile := d.opts.lookupProfile(name)
	if profile == nil {
		return "", fmt.Errorf("pprof profile %q unavailable", name)
	}
	if err := os.MkdirAll(d.opts.Dir, 0o755); err != nil {
		return "", err
	}
	ts := d.opts.Now().UTC().Format("20060102-150405.000")
	path := filepath.Join(d.opts.Dir, fmt.Sprintf("%s%s-%s.pprof", artifactPrefix, name, ts))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := profile.WriteTo(f, debug); err != nil {
		return "", err
	}
	return path, nil
}
