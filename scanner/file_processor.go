package scanner

import (
	"context"
	"errors"
	"os"
	"time"

	"metarisk/config"
	"metarisk/hasher"
	"metarisk/history"
	"metarisk/logger"
	"metarisk/output"
	"metarisk/risk"
	"metarisk/tracing"
	"metarisk/utils"
)

// fileProcessor carries everything a worker needs to turn one path into a
// written record. It is shared by all workers; every field is read-only or
// safe for concurrent use.
type fileProcessor struct {
	cfg      *config.Config
	analyzer *risk.Analyzer
	w        *output.Writer
	history  *history.Store
	known    *hasher.KnownSet
	guard    *utils.PathGuard
	modules  []FileModule
	now      func() time.Time
}

func newFileProcessor(cfg *config.Config, analyzer *risk.Analyzer, w *output.Writer, o options) *fileProcessor {
	return &fileProcessor{
		cfg:      cfg,
		analyzer: analyzer,
		w:        w,
		history:  o.history,
		known:    o.known,
		guard:    utils.NewPathGuard(cfg.StartPaths),
		modules:  buildFileModules(),
		now:      time.Now,
	}
}

// process analyzes path and writes its record. ok is false when the file was
// skipped, in which case it does not count towards the batch summary.
func (p *fileProcessor) process(ctx context.Context, path string, info os.FileInfo) (assessment risk.Assessment, ok bool) {
	ctx, endTask := tracing.StartFile(ctx, path)
	defer endTask()

	select {
	case <-ctx.Done():
		return risk.Assessment{}, false
	default:
	}
	if !p.guard.Contains(path) {
		logger.Warnf("Skipping file outside target paths: %s", path)
		return risk.Assessment{}, false
	}

	if info == nil {
		var err error
		info, err = os.Stat(path)
		if err != nil {
			logger.Warnf("Failed to stat file %s: %v", path, err)
			return risk.Assessment{}, false
		}
	}
	if !info.Mode().IsRegular() {
		return risk.Assessment{}, false
	}
	if p.cfg.MaxFileSize > 0 && info.Size() > p.cfg.MaxFileSize {
		logger.Debugf("Skipping large file %s", path)
		return risk.Assessment{}, false
	}

	p.w.IncrementScanned()

	rec := output.FileRecord{Path: path}
	fc := newFileContext(path, info, p.cfg, p.known)
	endRegion := tracing.StartRegion(ctx, "collect")
	err := p.collect(ctx, fc, &rec)
	endRegion()
	if err != nil {
		if errors.Is(err, errKnownFile) {
			p.w.IncrementSkipped()
		}
		return risk.Assessment{}, false
	}

	endRegion = tracing.StartRegion(ctx, "analyze")
	rec.Assessment = p.analyzer.AnalyzeFile(fc.Metadata(), path, fc.Fallback())
	endRegion()

	p.recordHistory(&rec)
	p.w.WriteRecord(rec)
	return rec.Assessment, true
}

func (p *fileProcessor) collect(ctx context.Context, fc *FileContext, rec *output.FileRecord) error {
	for _, module := range p.modules {
		if !module.Enabled(p.cfg) {
			continue
		}
		if err := module.Collect(ctx, fc, rec); err != nil {
			if errors.Is(err, errKnownFile) || errors.Is(err, context.Canceled) {
				return err
			}
			logger.Debugf("Module %s failed for %s: %v", module.Name(), fc.Path, err)
		}
	}
	return ctx.Err()
}

// recordHistory attaches the previous result for the path, if any, and
// stores the current one.
func (p *fileProcessor) recordHistory(rec *output.FileRecord) {
	if p.history == nil {
		return
	}
	prev, found, err := p.history.Latest(rec.Path)
	if err != nil {
		logger.Warnf("Failed to read history for %s: %v", rec.Path, err)
	} else if found {
		rec.Previous = &output.PreviousAssessment{
			ScannedAt: prev.ScannedAt.UTC().Format(time.RFC3339),
			RiskScore: prev.Assessment.RiskScore,
			RiskLevel: prev.Assessment.RiskLevel,
		}
	}
	entry := history.Entry{
		Path:       rec.Path,
		ScannedAt:  p.now().UTC(),
		Assessment: rec.Assessment,
		Hashes:     rec.Hashes,
	}
	if err := p.history.Put(entry); err != nil {
		logger.Warnf("Failed to store history for %s: %v", rec.Path, err)
	}
}
