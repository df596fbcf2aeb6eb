package scanner

import (
	"context"
	"errors"
	"os"
	"time"

	"metarisk/config"
	"metarisk/fuzzy"
	"metarisk/hasher"
	"metarisk/logger"
	"metarisk/metadata"
	"metarisk/output"
	"metarisk/risk"
)

// errKnownFile stops the module chain for a file whose digest is in the
// known-hash set.
var errKnownFile = errors.New("known file")

// FileModule contributes one part of a file record. Modules run in order and
// may leave state on the FileContext for the ones that follow.
type FileModule interface {
	Name() string
	Enabled(cfg *config.Config) bool
	Collect(ctx context.Context, fc *FileContext, rec *output.FileRecord) error
}

type FileContext struct {
	Path  string
	Info  os.FileInfo
	Cfg   *config.Config
	Known *hasher.KnownSet

	mimeLoaded bool
	mimeType   string
	metadata   risk.Metadata
	fallback   risk.Metadata
}

func newFileContext(path string, info os.FileInfo, cfg *config.Config, known *hasher.KnownSet) *FileContext {
	return &FileContext{Path: path, Info: info, Cfg: cfg, Known: known}
}

func (fc *FileContext) MimeType() string {
	if fc.mimeLoaded {
		return fc.mimeType
	}
	mimeType, err := metadata.DetectMIME(fc.Path)
	if err != nil || mimeType == "" {
		if err != nil {
			logger.Debugf("MIME detection failed for %s: %v", fc.Path, err)
		}
		mimeType = metadata.Unknown
	}
	fc.mimeType = mimeType
	fc.mimeLoaded = true
	return fc.mimeType
}

// Metadata returns what the metadata module extracted, or nil when it has
// not run.
func (fc *FileContext) Metadata() risk.Metadata { return fc.metadata }

// Fallback returns the filesystem timestamps gathered for the timeline.
func (fc *FileContext) Fallback() risk.Metadata { return fc.fallback }

func buildFileModules() []FileModule {
	return []FileModule{
		baseModule{},
		timesModule{now: time.Now},
		mimeModule{},
		hashModule{},
		metadataModule{},
		fuzzyModule{},
	}
}

type baseModule struct{}

func (m baseModule) Name() string { return "base" }

func (m baseModule) Enabled(cfg *config.Config) bool { return true }

func (m baseModule) Collect(ctx context.Context, fc *FileContext, rec *output.FileRecord) error {
	rec.Name = fc.Info.Name()
	rec.Size = fc.Info.Size()
	rec.ModTime = fc.Info.ModTime().UTC().Format(time.RFC3339)
	return nil
}

// timesModule runs before anything reads the file so the access time is
// the one the file had when the scan reached it.
type timesModule struct {
	now func() time.Time
}

func (m timesModule) Name() string { return "times" }

func (m timesModule) Enabled(cfg *config.Config) bool { return cfg.FallbackTimestamps }

func (m timesModule) Collect(ctx context.Context, fc *FileContext, rec *output.FileRecord) error {
	ft, err := fileTimes(fc.Path)
	if err != nil {
		ft = FileTimes{Modify: fc.Info.ModTime()}
		logger.Debugf("Filesystem times unavailable for %s: %v", fc.Path, err)
	}
	fc.fallback = fallbackTimestamps(ft, m.now())
	return nil
}

type mimeModule struct{}

func (m mimeModule) Name() string { return "mime" }

func (m mimeModule) Enabled(cfg *config.Config) bool { return true }

func (m mimeModule) Collect(ctx context.Context, fc *FileContext, rec *output.FileRecord) error {
	rec.MimeType = fc.MimeType()
	return nil
}

type hashModule struct{}

func (m hashModule) Name() string { return "hashes" }

func (m hashModule) Enabled(cfg *config.Config) bool { return len(cfg.HashAlgorithms) > 0 }

func (m hashModule) Collect(ctx context.Context, fc *FileContext, rec *output.FileRecord) error {
	hashes := hasher.ComputeHashes(fc.Path, fc.Cfg.HashAlgorithms)
	if len(hashes) > 0 {
		rec.Hashes = hashes
	}
	if digest, ok := fc.Known.Match(hashes); ok {
		logger.Debugf("Skipping known file %s (%s)", fc.Path, digest)
		return errKnownFile
	}
	return nil
}

type metadataModule struct{}

func (m metadataModule) Name() string { return "metadata" }

func (m metadataModule) Enabled(cfg *config.Config) bool { return true }

func (m metadataModule) Collect(ctx context.Context, fc *FileContext, rec *output.FileRecord) error {
	fc.metadata = metadata.Extract(fc.Path, fc.MimeType(), fc.Cfg.MetadataMaxBytes)
	rec.Metadata = fc.metadata
	return nil
}

type fuzzyModule struct{}

func (m fuzzyModule) Name() string { return "fuzzy" }

func (m fuzzyModule) Enabled(cfg *config.Config) bool {
	return cfg.FuzzyHash && len(cfg.FuzzyAlgorithms) > 0
}

func (m fuzzyModule) Collect(ctx context.Context, fc *FileContext, rec *output.FileRecord) error {
	size := fc.Info.Size()
	if size < fc.Cfg.FuzzyMinSize {
		return nil
	}
	if fc.Cfg.FuzzyMaxSize > 0 && size > fc.Cfg.FuzzyMaxSize {
		return nil
	}
	if results := fuzzy.Compute(fc.Path, fc.Cfg.FuzzyAlgorithms); len(results) > 0 {
		rec.FuzzyHashes = results
	}
	return nil
}
