package logscan

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of matching one log line.
type Result struct {
	Original    string            `json:"original"`
	Matched     bool              `json:"matched"`
	PatternUsed string            `json:"pattern_used,omitempty"`
	Groups      []string          `json:"groups,omitempty"`
	Named       map[string]string `json:"named_groups,omitempty"`
	LineNumber  int               `json:"line_number"`
	FilePath    string            `json:"file_path"`
}

// Stats accumulate over every file a Scanner processes.
type Stats struct {
	TotalLines     int
	MatchedLines   int
	UnmatchedLines int
	Errors         int
	Start          time.Time
}

// Scanner matches log lines against a pattern set.
type Scanner struct {
	set   *Set
	log   *zap.Logger
	stats Stats
}

// NewScanner wraps set. A nil logger disables logging.
func NewScanner(set *Set, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{
		set:   set,
		log:   log,
		stats: Stats{Errors: set.Invalid, Start: time.Now()},
	}
}

// Stats returns a copy of the accumulated counters.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// ParseLine tries the patterns against line, restricted to one category
// when category is non-empty. First match wins.
func (s *Scanner) ParseLine(line, category string) Result {
	res := Result{Original: strings.TrimSpace(line)}

	categories := s.set.Categories
	if category != "" {
		c := s.set.Category(category)
		if c == nil {
			return res
		}
		categories = []Category{*c}
	}

	for _, cat := range categories {
		for _, p := range cat.Patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			res.Matched = true
			res.PatternUsed = cat.Name + "." + p.Name
			if len(m) > 1 {
				res.Groups = m[1:]
			}
			for i, name := range p.re.SubexpNames() {
				if name == "" || i >= len(m) {
					continue
				}
				if res.Named == nil {
					res.Named = map[string]string{}
				}
				res.Named[name] = m[i]
			}
			return res
		}
	}
	return res
}

// ParseFile matches every non-blank line of the file at path. A positive
// maxLines caps processing. Blank lines count toward the total but produce
// no result.
func (s *Scanner) ParseFile(path, category string, maxLines int) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var results []Result
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for sc.Scan() {
		lineNum++
		if maxLines > 0 && lineNum > maxLines {
			break
		}
		s.stats.TotalLines++

		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		res := s.ParseLine(line, category)
		res.LineNumber = lineNum
		res.FilePath = path
		if res.Matched {
			s.stats.MatchedLines++
		} else {
			s.stats.UnmatchedLines++
		}
		results = append(results, res)

		if lineNum%10000 == 0 {
			s.log.Info("processed lines", zap.Int("count", lineNum))
		}
	}
	if err := sc.Err(); err != nil {
		return results, fmt.Errorf("reading %s: %w", path, err)
	}
	return results, nil
}
