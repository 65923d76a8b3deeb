package logscan

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FormatJSON renders results as indented JSON.
func FormatJSON(results []Result) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	return string(data), nil
}

// FormatCSV renders results as CSV with a header row.
func FormatCSV(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write([]string{"line_number", "file_path", "matched", "pattern_used", "original_line"})
	for _, res := range results {
		w.Write([]string{
			strconv.Itoa(res.LineNumber),
			res.FilePath,
			strconv.FormatBool(res.Matched),
			res.PatternUsed,
			res.Original,
		})
	}
	w.Flush()
	return b.String()
}

// FormatText renders results as a human-readable listing.
func FormatText(results []Result) string {
	var b strings.Builder
	for _, res := range results {
		fmt.Fprintf(&b, "Line %d: %s\n", res.LineNumber, res.Original)
		if res.Matched {
			fmt.Fprintf(&b, "  ✓ Matched pattern: %s\n", res.PatternUsed)
			if len(res.Groups) > 0 {
				fmt.Fprintf(&b, "  Groups: %v\n", res.Groups)
			}
		} else {
			b.WriteString("  ✗ No pattern matched\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
