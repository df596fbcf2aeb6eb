// Package scanner walks the configured paths, extracts and scores the
// metadata of every file on a bounded worker pool and streams the records
// to an output writer.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"metarisk/config"
	"metarisk/hasher"
	"metarisk/history"
	"metarisk/logger"
	"metarisk/output"
	"metarisk/risk"
	"metarisk/utils"
)

type fileScanTask struct {
	seq  int
	path string
	info os.FileInfo
}

type scanResult struct {
	seq        int
	assessment risk.Assessment
}

type options struct {
	history *history.Store
	known   *hasher.KnownSet
}

type Option func(*options)

// WithHistory attaches previous assessments to re-scanned files and stores
// the new ones.
func WithHistory(store *history.Store) Option {
	return func(o *options) { o.history = store }
}

// WithKnownSet skips files whose digest is in set.
func WithKnownSet(set *hasher.KnownSet) Option {
	return func(o *options) { o.known = set }
}

// ScanFiles analyzes every file under cfg.StartPaths and returns the batch
// summary, aggregated in walk order. Per-file failures are logged and the
// file is left out; only cancellation ends the scan early.
func ScanFiles(ctx context.Context, cfg *config.Config, analyzer *risk.Analyzer, metrics *output.Metrics, w *output.Writer, opts ...Option) (*risk.BatchSummary, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if metrics == nil {
		metrics = &output.Metrics{}
	}

	lastScanTime := resolveLastScanTime(cfg)
	matcher := utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)
	var walk walker = stackWalker{}

	var bar *progressbar.ProgressBar
	if cfg.SkipCount {
		logger.Info("Skipping total file count")
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Analyzing files"),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetVisibility(progressVisible()),
			progressbar.OptionFullWidth(),
		)
	} else {
		logger.Info("Counting total number of files...")
		totalFiles := 0
		for _, startPath := range cfg.StartPaths {
			count, err := countTotalFiles(ctx, startPath, cfg, lastScanTime, matcher)
			if err != nil {
				logger.Warnf("Failed to count files in %s: %v", startPath, err)
				continue
			}
			totalFiles += count
		}
		logger.Infof("Total files to analyze: %d", totalFiles)
		metrics.TotalFiles = totalFiles

		bar = progressbar.NewOptions(totalFiles,
			progressbar.OptionSetDescription("Analyzing files"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetVisibility(progressVisible()),
			progressbar.OptionFullWidth(),
		)
	}

	adjustConcurrency(cfg)
	if cfg.ConcurrencyLevel < 1 {
		cfg.ConcurrencyLevel = 1
	}

	var ioLimiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		ioLimiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}

	processor := newFileProcessor(cfg, analyzer, w, o)
	filesChan := make(chan fileScanTask, cfg.ConcurrencyLevel)

	progressCh := make(chan int, max(cfg.ConcurrencyLevel*4, 64))
	var progressWG sync.WaitGroup
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		for delta := range progressCh {
			_ = bar.Add(delta)
		}
	}()

	go func() {
		defer close(filesChan)
		seq := 0
		for _, startPath := range cfg.StartPaths {
			err := walk.Walk(ctx, startPath, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					logger.Warnf("Failed to access %s: %v", path, err)
					return nil
				}
				if d == nil || d.IsDir() {
					return nil
				}
				info, ok := admit(path, d, cfg, lastScanTime, matcher)
				if !ok {
					return nil
				}
				if ioLimiter != nil {
					if err := ioLimiter.Wait(ctx); err != nil {
						return err
					}
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case filesChan <- fileScanTask{seq: seq, path: path, info: info}:
					seq++
				}
				return nil
			})
			if err != nil {
				logger.Warnf("Error walking path %s: %v", startPath, err)
			}
		}
	}()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []scanResult
	)
	for range cfg.ConcurrencyLevel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range filesChan {
				select {
				case <-ctx.Done():
					continue
				default:
				}
				if a, ok := processor.process(ctx, task.path, task.info); ok {
					mu.Lock()
					results = append(results, scanResult{seq: task.seq, assessment: a})
					mu.Unlock()
				}
				progressCh <- 1
			}
		}()
	}

	wg.Wait()
	close(progressCh)
	progressWG.Wait()
	_ = bar.Finish()

	sort.Slice(results, func(i, j int) bool { return results[i].seq < results[j].seq })
	summary := risk.NewBatchSummary()
	for _, r := range results {
		summary.Add(r.assessment)
	}

	metrics.FilesScanned = w.FilesScanned()
	metrics.FilesProcessed = w.FilesProcessed()
	if cfg.SkipCount {
		metrics.TotalFiles = metrics.FilesScanned
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if cfg.DeltaScan && cfg.LastScanFile != "" {
		if err := os.WriteFile(cfg.LastScanFile, []byte(time.Now().UTC().Format(time.RFC3339)), 0600); err != nil {
			logger.Warnf("Failed to write last scan time: %v", err)
		}
	}
	return summary, nil
}

// resolveLastScanTime returns the cut-off for a delta scan: an explicit
// --last-scan time wins over the one recorded in the last-scan file.
func resolveLastScanTime(cfg *config.Config) time.Time {
	if cfg.LastScanTime != "" {
		t, err := time.Parse(time.RFC3339, cfg.LastScanTime)
		if err == nil {
			return t
		}
		logger.Warnf("Invalid last scan time: %v", err)
		return time.Time{}
	}
	if cfg.DeltaScan && cfg.LastScanFile != "" {
		data, err := os.ReadFile(cfg.LastScanFile)
		if err != nil {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// admit applies the walk filters to a non-directory entry. Only regular
// files pass.
func admit(path string, d fs.DirEntry, cfg *config.Config, lastScanTime time.Time, matcher *utils.PatternMatcher) (os.FileInfo, bool) {
	if !d.Type().IsRegular() || !matcher.ShouldInclude(path) {
		return nil, false
	}
	info, err := d.Info()
	if err != nil {
		logger.Warnf("Failed to stat %s: %v", path, err)
		return nil, false
	}
	if cfg.DeltaScan && info.ModTime().Before(lastScanTime) {
		return nil, false
	}
	if cfg.MaxFileSize > 0 && info.Size() > cfg.MaxFileSize {
		return nil, false
	}
	return info, true
}

func countTotalFiles(ctx context.Context, startPath string, cfg *config.Config, lastScanTime time.Time, matcher *utils.PatternMatcher) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var total int
	err := stackWalker{}.Walk(ctx, startPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warnf("Failed to access %s: %v", path, err)
			return nil
		}
		if d == nil || d.IsDir() {
			return nil
		}
		if _, ok := admit(path, d, cfg, lastScanTime, matcher); ok {
			total++
		}
		return nil
	})
	return total, err
}

func adjustConcurrency(cfg *config.Config) {
	if cfg.ConcurrencySet {
		return
	}
	numCPU := runtime.NumCPU()
	switch cfg.NiceLevel {
	case "high":
		cfg.ConcurrencyLevel = numCPU
	case "medium":
		cfg.ConcurrencyLevel = max(numCPU/2, 1)
	case "low":
		cfg.ConcurrencyLevel = 1
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("METARISK_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
