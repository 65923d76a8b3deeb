// Package hostreq validates that a host system satisfies the LFS build
// requirements: tool versions, plain command presence, disk and memory
// headroom, and kernel configuration.
package hostreq

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

const (
	commandTimeout = 30 * time.Second

	defaultDiskPath    = "/tmp"
	defaultMinDiskGB   = 10
	defaultMinMemoryMB = 1024
)

// Report is the outcome of a validation run.
type Report struct {
	Passed   int
	Total    int
	Errors   []string
	Warnings []string
}

// OK reports whether the run produced no errors. Warnings never fail a run.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Validator runs the host requirement checks and accumulates results.
// Probing is done through replaceable function fields so tests can stand in
// for the real system.
type Validator struct {
	log *zap.SugaredLogger

	diskPath    string
	minDiskGB   int
	minMemoryMB int

	filesystemsPath   string
	kernelConfigPaths []string

	lookPath   func(name string) (string, error)
	runVersion func(args []string) (string, error)
	runQuiet   func(args []string) error
	diskFree   func(path string) (uint64, error)
	memTotal   func() (uint64, error)
	groups     func() ([]string, error)

	errors   []string
	warnings []string
	passed   int
	total    int
}

// New returns a Validator wired to the live system. A nil logger silences
// the progress output.
func New(log *zap.SugaredLogger) *Validator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Validator{
		log:         log,
		diskPath:    defaultDiskPath,
		minDiskGB:   defaultMinDiskGB,
		minMemoryMB: defaultMinMemoryMB,

		filesystemsPath: "/proc/filesystems",
		kernelConfigPaths: []string{
			"/proc/config.gz",
			"/boot/config-" + kernelRelease(),
			"/usr/src/linux/.config",
		},

		lookPath:   exec.LookPath,
		runVersion: runFirstLine,
		runQuiet:   runSilent,
		diskFree:   freeBytes,
		memTotal:   totalMemory,
		groups:     currentGroups,
	}
}

// Run executes every check in order and logs a summary. It returns true
// only when no check recorded an error.
func (v *Validator) Run() bool {
	v.log.Info("Starting LFS host system validation...")
	v.log.Info(strings.Repeat("=", 50))

	v.log.Info("Checking tool versions...")
	for _, t := range RequiredTools {
		v.checkTool(t)
	}
	v.checkCommands()

	v.log.Info("Checking system resources...")
	v.checkDiskSpace()
	v.checkMemory()

	v.log.Info("Checking system configuration...")
	v.checkKernelFeatures()
	v.checkFilesystems()
	v.checkUserPermissions()

	v.log.Info(strings.Repeat("=", 50))
	v.log.Infof("Validation complete: %d/%d checks passed", v.passed, v.total)

	if len(v.warnings) > 0 {
		v.log.Warnf("Warnings (%d):", len(v.warnings))
		for _, w := range v.warnings {
			v.log.Warnf("  - %s", w)
		}
	}
	if len(v.errors) > 0 {
		v.log.Errorf("Errors (%d):", len(v.errors))
		for _, e := range v.errors {
			v.log.Errorf("  - %s", e)
		}
		v.log.Error("Host system validation FAILED")
		return false
	}
	v.log.Info("Host system validation PASSED")
	return true
}

// Report returns the accumulated results so far.
func (v *Validator) Report() Report {
	return Report{
		Passed:   v.passed,
		Total:    v.total,
		Errors:   append([]string(nil), v.errors...),
		Warnings: append([]string(nil), v.warnings...),
	}
}

func (v *Validator) checkTool(t Tool) bool {
	v.total++

	if _, err := v.lookPath(t.VersionArgs[0]); err != nil {
		v.errors = append(v.errors, fmt.Sprintf("Required tool not found: %s", t.Name))
		return false
	}

	banner, err := v.runVersion(t.VersionArgs)
	if err != nil || banner == "" {
		// A tool that exists but will not reveal its version is not a
		// build blocker.
		v.warnings = append(v.warnings, fmt.Sprintf("Could not determine version for %s", t.Name))
		v.passed++
		return true
	}

	cur, err := ExtractVersion(banner)
	if err != nil {
		v.warnings = append(v.warnings, fmt.Sprintf("Could not determine version for %s", t.Name))
		v.passed++
		return true
	}
	req, err := ExtractVersion(t.MinVersion)
	if err != nil {
		v.warnings = append(v.warnings, fmt.Sprintf("Could not determine version for %s", t.Name))
		v.passed++
		return true
	}

	if cur.Compare(req) < 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s version %s is too old (need >= %s)",
			t.Name, cur.Original(), t.MinVersion))
		return false
	}

	v.log.Infof("✓ %s: %s (>= %s)", t.Name, cur.Original(), t.MinVersion)
	v.passed++
	return true
}

func (v *Validator) checkCommands() bool {
	v.log.Info("Checking required commands...")

	var missing []string
	for _, cmd := range requiredCommands {
		v.total++
		if _, err := v.lookPath(cmd); err != nil {
			missing = append(missing, cmd)
		} else {
			v.passed++
		}
	}

	if len(missing) > 0 {
		v.errors = append(v.errors, fmt.Sprintf("Missing required commands: %s", strings.Join(missing, ", ")))
		return false
	}
	v.log.Infof("✓ All %d required commands found", len(requiredCommands))
	return true
}

func (v *Validator) checkDiskSpace() bool {
	v.total++

	free, err := v.diskFree(v.diskPath)
	if err != nil {
		v.warnings = append(v.warnings, fmt.Sprintf("Could not check disk space: %v", err))
		v.passed++
		return true
	}

	gb := float64(free) / (1 << 30)
	if gb >= float64(v.minDiskGB) {
		v.log.Infof("✓ Disk space: %.1fGB available (>= %dGB required)", gb, v.minDiskGB)
		v.passed++
		return true
	}
	v.errors = append(v.errors, fmt.Sprintf("Insufficient disk space: %.1fGB available, %dGB required",
		gb, v.minDiskGB))
	return false
}

func (v *Validator) checkMemory() bool {
	v.total++

	total, err := v.memTotal()
	if err != nil {
		v.warnings = append(v.warnings, fmt.Sprintf("Could not check memory: %v", err))
		v.passed++
		return true
	}

	mb := float64(total) / (1 << 20)
	if mb >= float64(v.minMemoryMB) {
		v.log.Infof("✓ Memory: %.0fMB available (>= %dMB required)", mb, v.minMemoryMB)
		v.passed++
		return true
	}
	v.errors = append(v.errors, fmt.Sprintf("Insufficient memory: %.0fMB available, %dMB required",
		mb, v.minMemoryMB))
	return false
}

func (v *Validator) checkKernelFeatures() bool {
	v.total++

	var content string
	for _, path := range v.kernelConfigPaths {
		data, err := readMaybeGzip(path)
		if err != nil {
			continue
		}
		content = string(data)
		break
	}
	if content == "" {
		v.warnings = append(v.warnings, "Could not find kernel configuration file")
		v.passed++
		return true
	}

	var missing []string
	for _, feature := range kernelFeatures {
		if !strings.Contains(content, feature) {
			missing = append(missing, feature)
		}
	}
	if len(missing) > 0 {
		v.warnings = append(v.warnings, fmt.Sprintf("Missing recommended kernel features: %s",
			strings.Join(missing, ", ")))
	} else {
		v.log.Info("✓ Kernel configuration looks good")
	}
	v.passed++
	return true
}

func (v *Validator) checkFilesystems() bool {
	v.total++

	data, err := os.ReadFile(v.filesystemsPath)
	if err != nil {
		v.warnings = append(v.warnings, fmt.Sprintf("Could not check file system support: %v", err))
		v.passed++
		return true
	}

	filesystems := string(data)
	var missing []string
	for _, fs := range requiredFilesystems {
		if !strings.Contains(filesystems, fs) {
			missing = append(missing, fs)
		}
	}
	if len(missing) > 0 {
		v.warnings = append(v.warnings, fmt.Sprintf("Missing file system support: %s",
			strings.Join(missing, ", ")))
	} else {
		v.log.Info("✓ Required file systems supported")
	}
	v.passed++
	return true
}

func (v *Validator) checkUserPermissions() bool {
	v.total++

	if err := v.runQuiet([]string{"sudo", "-n", "true"}); err != nil {
		v.warnings = append(v.warnings, "User does not have passwordless sudo access")
	}

	names, err := v.groups()
	if err != nil {
		v.warnings = append(v.warnings, fmt.Sprintf("Could not check user groups: %v", err))
	} else {
		have := make(map[string]bool, len(names))
		for _, name := range names {
			have[name] = true
		}
		var missing []string
		for _, g := range recommendedGroups {
			if !have[g] {
				missing = append(missing, g)
			}
		}
		if len(missing) > 0 {
			v.warnings = append(v.warnings, fmt.Sprintf("User not in recommended groups: %s",
				strings.Join(missing, ", ")))
		}
	}

	v.log.Info("✓ User permissions checked")
	v.passed++
	return true
}

// runFirstLine executes args and returns the first line of stdout, the way
// version banners are read.
func runFirstLine(args []string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
	if err != nil {
		return "", err
	}
	s := string(out)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s), nil
}

func runSilent(args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return exec.CommandContext(ctx, args[0], args[1:]...).Run()
}

func freeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func totalMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

func currentGroups() ([]string, error) {
	u, err := user.Current()
	if err != nil {
		return nil, err
	}
	ids, err := u.GroupIds()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		g, err := user.LookupGroupId(id)
		if err != nil {
			continue
		}
		names = append(names, g.Name)
	}
	return names, nil
}

func readMaybeGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return io.ReadAll(f)
}

func kernelRelease() string {
	var u syscall.Utsname
	if err := syscall.Uname(&u); err != nil {
		return ""
	}
	b := make([]byte, 0, len(u.Release))
	for _, c := range u.Release {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
