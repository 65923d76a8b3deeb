package logscan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	maxUnmatchedSamples = 10
	sampleLineLength    = 100
)

// PatternCount records how often one pattern matched.
type PatternCount struct {
	Pattern string
	Count   int
}

// Sample is a truncated unmatched line kept for the report.
type Sample struct {
	LineNumber int
	Line       string
}

// Report summarizes a parsing run.
type Report struct {
	Stats            Stats
	MatchRate        float64 // percent
	Elapsed          time.Duration
	PatternUsage     []PatternCount // sorted by count, then name
	UnmatchedSamples []Sample
}

// BuildReport aggregates results into a Report. now is the end of the run.
func BuildReport(results []Result, stats Stats, now time.Time) Report {
	rep := Report{
		Stats:   stats,
		Elapsed: now.Sub(stats.Start),
	}

	total := stats.TotalLines
	if total < 1 {
		total = 1
	}
	rep.MatchRate = float64(stats.MatchedLines) / float64(total) * 100

	usage := map[string]int{}
	for _, res := range results {
		if res.Matched {
			usage[res.PatternUsed]++
		}
		if !res.Matched && len(rep.UnmatchedSamples) < maxUnmatchedSamples {
			line := res.Original
			if len(line) > sampleLineLength {
				line = line[:sampleLineLength]
			}
			rep.UnmatchedSamples = append(rep.UnmatchedSamples, Sample{
				LineNumber: res.LineNumber,
				Line:       line,
			})
		}
	}

	for pattern, count := range usage {
		rep.PatternUsage = append(rep.PatternUsage, PatternCount{Pattern: pattern, Count: count})
	}
	sort.Slice(rep.PatternUsage, func(i, j int) bool {
		if rep.PatternUsage[i].Count != rep.PatternUsage[j].Count {
			return rep.PatternUsage[i].Count > rep.PatternUsage[j].Count
		}
		return rep.PatternUsage[i].Pattern < rep.PatternUsage[j].Pattern
	})

	return rep
}

// FormatReport renders the report banner printed by --report.
func FormatReport(rep Report) string {
	var b strings.Builder
	rule := strings.Repeat("=", 50)

	b.WriteString(rule + "\n")
	b.WriteString("PARSING REPORT\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total lines processed: %d\n", rep.Stats.TotalLines)
	fmt.Fprintf(&b, "Matched lines: %d\n", rep.Stats.MatchedLines)
	fmt.Fprintf(&b, "Unmatched lines: %d\n", rep.Stats.UnmatchedLines)
	fmt.Fprintf(&b, "Match rate: %.2f%%\n", rep.MatchRate)
	fmt.Fprintf(&b, "Processing time: %s\n", rep.Elapsed)
	fmt.Fprintf(&b, "Errors: %d\n", rep.Stats.Errors)

	if len(rep.PatternUsage) > 0 {
		b.WriteString("\nPattern usage:\n")
		for _, pc := range rep.PatternUsage {
			fmt.Fprintf(&b, "  %s: %d matches\n", pc.Pattern, pc.Count)
		}
	}
	if len(rep.UnmatchedSamples) > 0 {
		b.WriteString("\nSample unmatched lines:\n")
		for _, s := range rep.UnmatchedSamples {
			fmt.Fprintf(&b, "  Line %d: %s\n", s.LineNumber, s.Line)
		}
	}
	b.WriteString(rule + "\n")
	return b.String()
}
