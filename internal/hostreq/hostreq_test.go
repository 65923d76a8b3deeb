package hostreq

import (
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	dir := t.TempDir()

	fsPath := filepath.Join(dir, "filesystems")
	if err := os.WriteFile(fsPath, []byte("nodev\tsysfs\nnodev\ttmpfs\nnodev\tdevtmpfs\n\text2\n\text3\n\text4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config")
	if err := os.WriteFile(cfgPath, []byte(strings.Join(kernelFeatures, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	v := New(zap.NewNop().Sugar())
	v.filesystemsPath = fsPath
	v.kernelConfigPaths = []string{cfgPath}
	v.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	v.runVersion = func(args []string) (string, error) { return "9.9.9", nil }
	v.runQuiet = func(args []string) error { return nil }
	v.diskFree = func(path string) (uint64, error) { return 50 << 30, nil }
	v.memTotal = func() (uint64, error) { return 8 << 30, nil }
	v.groups = func() ([]string, error) { return []string{"disk", "wheel", "sudo"}, nil }
	return v
}

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		banner string
		want   string
	}{
		{"GNU bash, version 5.1.16(1)-release (x86_64-pc-linux-gnu)", "5.1.16"},
		{"6.1.0-13-amd64", "6.1.0"},
		{"version='5.36.0';", "5.36.0"},
		{"Python 3.10.12", "3.10.12"},
		{"GNU Make 4.3", "4.3"},
	}
	for _, tt := range tests {
		v, err := ExtractVersion(tt.banner)
		if err != nil {
			t.Errorf("ExtractVersion(%q) error: %v", tt.banner, err)
			continue
		}
		if v.Original() != tt.want {
			t.Errorf("ExtractVersion(%q) = %q, want %q", tt.banner, v.Original(), tt.want)
		}
	}

	if _, err := ExtractVersion("no digits here"); err == nil {
		t.Error("ExtractVersion with no digits: expected error")
	}
}

func TestMeetsMinimum(t *testing.T) {
	tests := []struct {
		banner string
		min    string
		want   bool
	}{
		{"GNU Make 4.3", "4.0", true},
		{"GNU Make 3.81", "4.0", false},
		{"grep (GNU grep) 2.5.1", "2.5.1a", true},
		{"Python 3.4.0", "3.4", true},
		{"ld (GNU Binutils) 2.25", "2.25.1", false},
		{"tar (GNU tar) 1.34", "1.22", true},
	}
	for _, tt := range tests {
		got, err := MeetsMinimum(tt.banner, tt.min)
		if err != nil {
			t.Errorf("MeetsMinimum(%q, %q) error: %v", tt.banner, tt.min, err)
			continue
		}
		if got != tt.want {
			t.Errorf("MeetsMinimum(%q, %q) = %v, want %v", tt.banner, tt.min, got, tt.want)
		}
	}
}

func TestCheckToolPasses(t *testing.T) {
	v := newTestValidator(t)
	v.runVersion = func(args []string) (string, error) { return "gcc (GNU) 11.4.0", nil }

	ok := v.checkTool(Tool{Name: "gcc", MinVersion: "5.1", VersionArgs: []string{"gcc", "--version"}})
	if !ok {
		t.Fatal("checkTool = false for satisfied version")
	}
	r := v.Report()
	if r.Passed != 1 || r.Total != 1 || len(r.Errors) != 0 {
		t.Fatalf("Report() = %+v, want 1/1 with no errors", r)
	}
}

func TestCheckToolMissing(t *testing.T) {
	v := newTestValidator(t)
	v.lookPath = func(name string) (string, error) { return "", errors.New("not found") }

	ok := v.checkTool(Tool{Name: "gcc", MinVersion: "5.1", VersionArgs: []string{"gcc", "--version"}})
	if ok {
		t.Fatal("checkTool = true for missing tool")
	}
	r := v.Report()
	if len(r.Errors) != 1 || r.Errors[0] != "Required tool not found: gcc" {
		t.Fatalf("Errors = %#v, want missing-tool error", r.Errors)
	}
	if r.Passed != 0 {
		t.Fatalf("Passed = %d after missing tool, want 0", r.Passed)
	}
}

func TestCheckToolTooOld(t *testing.T) {
	v := newTestValidator(t)
	v.runVersion = func(args []string) (string, error) { return "gcc (Ubuntu) 4.8.0", nil }

	ok := v.checkTool(Tool{Name: "gcc", MinVersion: "5.1", VersionArgs: []string{"gcc", "--version"}})
	if ok {
		t.Fatal("checkTool = true for stale version")
	}
	r := v.Report()
	want := "gcc version 4.8.0 is too old (need >= 5.1)"
	if len(r.Errors) != 1 || r.Errors[0] != want {
		t.Fatalf("Errors = %#v, want %q", r.Errors, want)
	}
}

func TestCheckToolUnreadableVersionWarns(t *testing.T) {
	v := newTestValidator(t)
	v.runVersion = func(args []string) (string, error) { return "", errors.New("exit status 1") }

	ok := v.checkTool(Tool{Name: "bc", MinVersion: "1.06", VersionArgs: []string{"bc", "--version"}})
	if !ok {
		t.Fatal("checkTool = false for undetectable version, want pass with warning")
	}
	r := v.Report()
	if len(r.Warnings) != 1 || r.Warnings[0] != "Could not determine version for bc" {
		t.Fatalf("Warnings = %#v, want version warning", r.Warnings)
	}
	if r.Passed != 1 {
		t.Fatalf("Passed = %d, want 1", r.Passed)
	}
}

func TestCheckCommandsMissing(t *testing.T) {
	v := newTestValidator(t)
	v.lookPath = func(name string) (string, error) {
		if name == "wget" || name == "mkfifo" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	if v.checkCommands() {
		t.Fatal("checkCommands = true with missing commands")
	}
	r := v.Report()
	want := "Missing required commands: mkfifo, wget"
	if len(r.Errors) != 1 || r.Errors[0] != want {
		t.Fatalf("Errors = %#v, want %q", r.Errors, want)
	}
	if r.Passed != len(requiredCommands)-2 {
		t.Fatalf("Passed = %d, want %d", r.Passed, len(requiredCommands)-2)
	}
}

func TestCheckDiskSpaceInsufficient(t *testing.T) {
	v := newTestValidator(t)
	v.diskFree = func(path string) (uint64, error) { return 5 << 30, nil }

	if v.checkDiskSpace() {
		t.Fatal("checkDiskSpace = true with 5GB free")
	}
	r := v.Report()
	want := "Insufficient disk space: 5.0GB available, 10GB required"
	if len(r.Errors) != 1 || r.Errors[0] != want {
		t.Fatalf("Errors = %#v, want %q", r.Errors, want)
	}
}

func TestCheckDiskSpaceUnreadableWarns(t *testing.T) {
	v := newTestValidator(t)
	v.diskFree = func(path string) (uint64, error) { return 0, errors.New("statfs failed") }

	if !v.checkDiskSpace() {
		t.Fatal("checkDiskSpace = false on probe failure, want pass with warning")
	}
	r := v.Report()
	if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], "Could not check disk space") {
		t.Fatalf("Warnings = %#v, want disk warning", r.Warnings)
	}
}

func TestCheckMemoryInsufficient(t *testing.T) {
	v := newTestValidator(t)
	v.memTotal = func() (uint64, error) { return 512 << 20, nil }

	if v.checkMemory() {
		t.Fatal("checkMemory = true with 512MB")
	}
	r := v.Report()
	want := "Insufficient memory: 512MB available, 1024MB required"
	if len(r.Errors) != 1 || r.Errors[0] != want {
		t.Fatalf("Errors = %#v, want %q", r.Errors, want)
	}
}

func TestCheckKernelFeaturesMissingWarns(t *testing.T) {
	v := newTestValidator(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config")
	if err := os.WriteFile(cfg, []byte("CONFIG_DEVTMPFS=y\nCONFIG_CGROUPS=y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v.kernelConfigPaths = []string{cfg}

	if !v.checkKernelFeatures() {
		t.Fatal("checkKernelFeatures = false, kernel checks never fail")
	}
	r := v.Report()
	if len(r.Warnings) != 1 {
		t.Fatalf("Warnings = %#v, want one entry", r.Warnings)
	}
	for _, feature := range []string{"CONFIG_INOTIFY_USER=y", "CONFIG_EPOLL=y"} {
		if !strings.Contains(r.Warnings[0], feature) {
			t.Errorf("warning %q missing %q", r.Warnings[0], feature)
		}
	}
}

func TestCheckKernelFeaturesReadsGzip(t *testing.T) {
	v := newTestValidator(t)
	dir := t.TempDir()
	gz := filepath.Join(dir, "config.gz")

	f, err := os.Create(gz)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	fmt.Fprint(zw, strings.Join(kernelFeatures, "\n")+"\n")
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	v.kernelConfigPaths = []string{gz}

	v.checkKernelFeatures()
	if r := v.Report(); len(r.Warnings) != 0 {
		t.Fatalf("Warnings = %#v, want none for complete gzipped config", r.Warnings)
	}
}

func TestCheckKernelFeaturesNoConfigWarns(t *testing.T) {
	v := newTestValidator(t)
	v.kernelConfigPaths = []string{filepath.Join(t.TempDir(), "absent")}

	v.checkKernelFeatures()
	r := v.Report()
	if len(r.Warnings) != 1 || r.Warnings[0] != "Could not find kernel configuration file" {
		t.Fatalf("Warnings = %#v, want missing-config warning", r.Warnings)
	}
	if r.Passed != 1 {
		t.Fatalf("Passed = %d, want 1", r.Passed)
	}
}

func TestCheckFilesystemsMissingWarns(t *testing.T) {
	v := newTestValidator(t)
	fsPath := filepath.Join(t.TempDir(), "filesystems")
	if err := os.WriteFile(fsPath, []byte("nodev\ttmpfs\nnodev\tdevtmpfs\n\text2\n\text3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v.filesystemsPath = fsPath

	v.checkFilesystems()
	r := v.Report()
	want := "Missing file system support: ext4"
	if len(r.Warnings) != 1 || r.Warnings[0] != want {
		t.Fatalf("Warnings = %#v, want %q", r.Warnings, want)
	}
}

func TestCheckUserPermissionsWarnsOnGroups(t *testing.T) {
	v := newTestValidator(t)
	v.runQuiet = func(args []string) error { return errors.New("sudo: a password is required") }
	v.groups = func() ([]string, error) { return []string{"users", "audio"}, nil }

	if !v.checkUserPermissions() {
		t.Fatal("checkUserPermissions = false, permission checks never fail")
	}
	r := v.Report()
	if len(r.Warnings) != 2 {
		t.Fatalf("Warnings = %#v, want sudo and group warnings", r.Warnings)
	}
	if r.Warnings[0] != "User does not have passwordless sudo access" {
		t.Errorf("Warnings[0] = %q", r.Warnings[0])
	}
	if want := "User not in recommended groups: disk, wheel, sudo"; r.Warnings[1] != want {
		t.Errorf("Warnings[1] = %q, want %q", r.Warnings[1], want)
	}
}

func TestRunAllChecksPass(t *testing.T) {
	v := newTestValidator(t)

	if !v.Run() {
		t.Fatalf("Run() = false on a healthy host, report: %+v", v.Report())
	}
	r := v.Report()
	wantTotal := len(RequiredTools) + len(requiredCommands) + 5
	if r.Total != wantTotal || r.Passed != wantTotal {
		t.Fatalf("Report() = %d/%d, want %d/%d", r.Passed, r.Total, wantTotal, wantTotal)
	}
	if !r.OK() {
		t.Fatalf("OK() = false, errors: %#v", r.Errors)
	}
}

func TestRunFailsOnStaleTool(t *testing.T) {
	v := newTestValidator(t)
	v.runVersion = func(args []string) (string, error) {
		if args[0] == "gcc" {
			return "gcc (GNU) 4.8.0", nil
		}
		return "9.9.9", nil
	}

	if v.Run() {
		t.Fatal("Run() = true with a stale gcc")
	}
	r := v.Report()
	if r.OK() {
		t.Fatal("OK() = true with errors present")
	}
	if len(r.Errors) != 1 || !strings.Contains(r.Errors[0], "gcc version 4.8.0 is too old") {
		t.Fatalf("Errors = %#v, want stale gcc error", r.Errors)
	}
}
