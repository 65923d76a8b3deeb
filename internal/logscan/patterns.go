package logscan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// DefaultConfigPath is where logsift looks for its pattern file.
const DefaultConfigPath = "config/patterns.toml"

// Pattern is one named, compiled expression.
type Pattern struct {
	Name string
	Expr string
	re   *regexp.Regexp
}

// Category is an ordered group of patterns tried first to last.
type Category struct {
	Name     string
	Patterns []Pattern
}

// Set holds the categories in file order. Match order is significant:
// the first pattern that hits wins.
type Set struct {
	Categories []Category

	// Invalid counts patterns dropped because their expression did not
	// compile.
	Invalid int
}

// Category returns the named category, or nil.
func (s *Set) Category(name string) *Category {
	for i := range s.Categories {
		if s.Categories[i].Name == name {
			return &s.Categories[i]
		}
	}
	return nil
}

// defaultPatterns are the stock expressions written on first run, covering
// web server access logs, syslog, application logs, and free-form sniffing.
var defaultPatterns = []struct {
	category string
	name     string
	expr     string
}{
	{"apache", "common", `^(\S+) \S+ \S+ \[([^\]]+)\] "([^"]*)" (\d+) (\d+|-)`},
	{"apache", "combined", `^(\S+) \S+ \S+ \[([^\]]+)\] "([^"]*)" (\d+) (\d+|-) "([^"]*)" "([^"]*)"`},
	{"apache", "error", `^\[([^\]]+)\] \[([^\]]+)\] (.+)`},
	{"syslog", "standard", `^(\w+\s+\d+\s+\d+:\d+:\d+) (\S+) ([^:]+): (.+)`},
	{"syslog", "auth", `^(\w+\s+\d+\s+\d+:\d+:\d+) (\S+) sshd\[(\d+)\]: (.+)`},
	{"syslog", "kernel", `^(\w+\s+\d+\s+\d+:\d+:\d+) (\S+) kernel: (.+)`},
	{"application", "timestamp_level", `^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) \[(\w+)\] (.+)`},
	{"application", "java_exception", `^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}.\d+) (\w+) (.+Exception.+)`},
	{"application", "python_traceback", `^Traceback \(most recent call last\):`},
	{"custom", "ip_address", `\b(?:\d{1,3}\.){3}\d{1,3}\b`},
	{"custom", "email", `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`},
	{"custom", "url", "https?://[^\\s<>\"{}|\\\\^`\\[\\]]*"},
	{"custom", "credit_card", `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`},
}

// DefaultSet compiles the stock patterns.
func DefaultSet() *Set {
	set := &Set{}
	for _, p := range defaultPatterns {
		cat := set.Category(p.category)
		if cat == nil {
			set.Categories = append(set.Categories, Category{Name: p.category})
			cat = &set.Categories[len(set.Categories)-1]
		}
		cat.Patterns = append(cat.Patterns, Pattern{
			Name: p.name,
			Expr: p.expr,
			re:   regexp.MustCompile(p.expr),
		})
	}
	return set
}

// WriteDefault writes the stock pattern file to path, creating parent
// directories. Expressions are written as TOML literal strings so the
// backslashes survive round-tripping.
func WriteDefault(path string) error {
	var b strings.Builder
	b.WriteString("# logsift patterns. Order matters: first match wins.\n")
	current := ""
	for _, p := range defaultPatterns {
		if p.category != current {
			fmt.Fprintf(&b, "\n[%s]\n", p.category)
			current = p.category
		}
		fmt.Fprintf(&b, "%s = '%s'\n", p.name, p.expr)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing default patterns: %w", err)
	}
	return nil
}

// LoadPatterns reads the pattern file at path, preserving the file's
// category and pattern order. A missing file is created with the stock
// patterns first. Patterns that do not compile are dropped and counted.
func LoadPatterns(path string, log *zap.Logger) (*Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn("pattern file not found, creating defaults", zap.String("path", path))
		if err := WriteDefault(path); err != nil {
			return nil, err
		}
	}

	raw := map[string]map[string]string{}
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("loading patterns %s: %w", path, err)
	}

	set := &Set{}
	index := map[string]int{}
	for _, key := range md.Keys() {
		switch len(key) {
		case 1:
			name := key[0]
			if _, ok := raw[name]; !ok {
				continue
			}
			if _, ok := index[name]; !ok {
				index[name] = len(set.Categories)
				set.Categories = append(set.Categories, Category{Name: name})
			}
		case 2:
			ci, ok := index[key[0]]
			if !ok {
				continue
			}
			expr := raw[key[0]][key[1]]
			re, err := regexp.Compile(expr)
			if err != nil {
				log.Error("invalid pattern",
					zap.String("pattern", key[0]+"."+key[1]), zap.Error(err))
				set.Invalid++
				continue
			}
			cat := &set.Categories[ci]
			cat.Patterns = append(cat.Patterns, Pattern{Name: key[1], Expr: expr, re: re})
		}
	}

	log.Info("loaded pattern categories", zap.Int("count", len(set.Categories)))
	return set, nil
}
