package rename

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	underscoreRun  = regexp.MustCompile(`_+`)
)

// Renamer applies the configured naming rules to files.
type Renamer struct {
	cfg     Config
	log     *zap.Logger
	allowed map[string]struct{}
	ignored map[string]struct{}

	now    func() time.Time
	settle time.Duration
}

// New builds a Renamer from cfg. A nil logger disables logging.
func New(cfg Config, log *zap.Logger) *Renamer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renamer{
		cfg:     cfg,
		log:     log,
		allowed: extSet(cfg.AllowedExtensions),
		ignored: extSet(cfg.IgnoredExtensions),
		now:     time.Now,
		settle:  time.Second,
	}
}

func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// ShouldProcess reports whether the extension filters admit path. Ignored
// extensions always lose; a non-empty allowed set admits only its members.
func (r *Renamer) ShouldProcess(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if _, ok := r.ignored[ext]; ok {
		r.log.Debug("skipping ignored extension", zap.String("path", path))
		return false
	}
	if len(r.allowed) > 0 {
		if _, ok := r.allowed[ext]; !ok {
			r.log.Debug("skipping unallowed extension", zap.String("path", path))
			return false
		}
	}
	return true
}

// CleanName replaces forbidden characters and whitespace with underscores
// and collapses the result.
func (r *Renamer) CleanName(name string) string {
	if !r.cfg.CleanNames {
		return name
	}
	cleaned := forbiddenChars.ReplaceAllString(name, "_")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, "_")
	cleaned = underscoreRun.ReplaceAllString(cleaned, "_")
	return strings.Trim(cleaned, "_")
}

// NewName generates the target file name for path according to the naming
// pattern, with prefix and suffix applied.
func (r *Renamer) NewName(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	stem = r.CleanName(stem)

	var name string
	switch r.cfg.NamingPattern {
	case PatternTimestamp:
		name = r.now().Format(r.cfg.TimestampFormat) + "_" + stem
	case PatternSequential:
		dir := filepath.Dir(path)
		for counter := 1; ; counter++ {
			name = fmt.Sprintf("%s_%03d", stem, counter)
			candidate := filepath.Join(dir, r.cfg.Prefix+name+r.cfg.Suffix+ext)
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				break
			}
		}
	default:
		// clean_only and unknown patterns keep the cleaned stem.
		name = stem
	}

	return r.cfg.Prefix + name + r.cfg.Suffix + ext
}

// resolveDuplicate appends _NNN until the target does not exist.
func (r *Renamer) resolveDuplicate(target string) string {
	if !r.cfg.HandleDuplicates {
		return target
	}
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(filepath.Base(target), ext)
	dir := filepath.Dir(target)

	for counter := 1; ; counter++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			return target
		}
		target = filepath.Join(dir, fmt.Sprintf("%s_%03d%s", stem, counter, ext))
	}
}

// Rename applies the rules to one file. It returns the new path, or empty
// when the file was skipped.
func (r *Renamer) Rename(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		r.log.Warn("file no longer exists", zap.String("path", path))
		return "", nil
	}
	if !r.ShouldProcess(path) {
		return "", nil
	}

	target := filepath.Join(filepath.Dir(path), r.NewName(path))
	if target == path {
		r.log.Info("no renaming needed", zap.String("path", path))
		return "", nil
	}
	target = r.resolveDuplicate(target)

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	r.log.Info("renamed file",
		zap.String("from", filepath.Base(path)),
		zap.String("to", filepath.Base(target)))
	return target, nil
}

// ProcessExisting runs the rules once over every regular file in the watch
// directory. Individual failures are logged, not fatal.
func (r *Renamer) ProcessExisting() error {
	entries, err := os.ReadDir(r.cfg.WatchDirectory)
	if err != nil {
		return fmt.Errorf("reading %s: %w", r.cfg.WatchDirectory, err)
	}
	r.log.Info("processing existing files", zap.String("path", r.cfg.WatchDirectory))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(r.cfg.WatchDirectory, entry.Name())
		if _, err := r.Rename(path); err != nil {
			r.log.Error("processing existing file", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}
