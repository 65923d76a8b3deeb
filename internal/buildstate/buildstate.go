package buildstate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultLogDir is where the build scripts leave their state and logs.
const DefaultLogDir = "/var/log/lfs-build"

// phaseProgress maps build phases onto estimated completion percentages,
// in build order.
var phaseProgress = map[string]float64{
	"host-prep":     5,
	"partitions":    10,
	"cross-tools":   25,
	"temp-system":   50,
	"final-system":  85,
	"system-config": 95,
	"bootloader":    100,
}

// State mirrors build-state.json as the build scripts write it.
type State struct {
	State          string `json:"state"`
	Phase          string `json:"phase"`
	CurrentPackage string `json:"current_package"`
	Timestamp      string `json:"timestamp"`
}

// Status is one evaluated snapshot of the build.
type Status struct {
	Phase     string
	Package   string
	Progress  float64 // percent
	State     string
	Errors    int
	Warnings  int
	BuildTime time.Duration
	HasTime   bool
}

// Complete reports whether the build finished.
func (s Status) Complete() bool {
	return s.State == "full-build-complete"
}

// Failed reports whether the build state records an error.
func (s Status) Failed() bool {
	return strings.Contains(strings.ToLower(s.State), "error")
}

// Monitor reads build progress from a log directory.
type Monitor struct {
	LogDir string
}

// New returns a Monitor over logDir.
func New(logDir string) *Monitor {
	return &Monitor{LogDir: logDir}
}

func (m *Monitor) statePath() string {
	return filepath.Join(m.LogDir, "build-state.json")
}

// MainLog is the path of the primary build log.
func (m *Monitor) MainLog() string {
	return filepath.Join(m.LogDir, "main.log")
}

// LoadState reads build-state.json. Missing or unreadable files yield a
// zero state; the build scripts rewrite it constantly, so transient read
// failures are not errors.
func (m *Monitor) LoadState() State {
	data, err := os.ReadFile(m.statePath())
	if err != nil {
		return State{}
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}
	}
	return st
}

// Snapshot evaluates the build status at now.
func (m *Monitor) Snapshot(now time.Time) Status {
	st := m.LoadState()
	s := Status{
		Phase:    st.Phase,
		Package:  st.CurrentPackage,
		State:    st.State,
		Progress: phaseProgress[st.Phase],
	}
	if s.Phase == "" {
		s.Phase = "unknown"
	}
	if s.Package == "" {
		s.Package = "unknown"
	}
	s.Errors, s.Warnings = m.LogStats()
	if start, ok := parseTimestamp(st.Timestamp); ok && now.After(start) {
		s.BuildTime = now.Sub(start)
		s.HasTime = true
	}
	return s
}

// LogStats counts ERROR: and WARN: markers in the main log. A line with
// both counts once, as an error.
func (m *Monitor) LogStats() (errors, warnings int) {
	f, err := os.Open(m.MainLog())
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		switch line := sc.Text(); {
		case strings.Contains(line, "ERROR:"):
			errors++
		case strings.Contains(line, "WARN:"):
			warnings++
		}
	}
	return errors, warnings
}

// TailLines returns up to n trailing non-blank lines of the main log.
func (m *Monitor) TailLines(n int) []string {
	f, err := os.Open(m.MainLog())
	if err != nil {
		return nil
	}
	defer f.Close()

	const window = 64 * 1024
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil
	}
	offset := size - window
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}

	lines := strings.Split(string(data), "\n")
	if offset > 0 && len(lines) > 0 {
		// The window may open mid-line.
		lines = lines[1:]
	}
	var out []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// parseTimestamp accepts both RFC 3339 stamps and the zone-less form the
// older build scripts wrote.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EstimateRemaining projects time left from elapsed time and progress,
// assuming a constant build rate.
func EstimateRemaining(elapsed time.Duration, progress float64) (string, bool) {
	if elapsed <= 0 || progress <= 0 {
		return "", false
	}
	total := time.Duration(float64(elapsed) * 100 / progress)
	remaining := total - elapsed
	if remaining <= 0 {
		return "Completing soon...", true
	}
	return FormatDelta(remaining), true
}

// FormatDelta renders a duration as 1d 2h 3m, dropping leading zero units.
func FormatDelta(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatBuildTime renders elapsed build time with the day count always
// present, matching the status display.
func FormatBuildTime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}
