package hostreq

// Tool is one host package requirement. VersionArgs[0] is the executable
// probed for presence and invoked to produce the version banner.
type Tool struct {
	Name        string
	MinVersion  string
	VersionArgs []string
}

// RequiredTools lists the host packages an LFS build depends on, with the
// minimum versions from the book's host system requirements chapter.
var RequiredTools = []Tool{
	{Name: "bash", MinVersion: "3.2", VersionArgs: []string{"bash", "--version"}},
	{Name: "bc", MinVersion: "1.06", VersionArgs: []string{"bc", "--version"}},
	{Name: "binutils", MinVersion: "2.25", VersionArgs: []string{"ld", "--version"}},
	{Name: "bison", MinVersion: "2.7", VersionArgs: []string{"bison", "--version"}},
	{Name: "coreutils", MinVersion: "6.9", VersionArgs: []string{"ls", "--version"}},
	{Name: "diffutils", MinVersion: "2.8.1", VersionArgs: []string{"diff", "--version"}},
	{Name: "findutils", MinVersion: "4.2.31", VersionArgs: []string{"find", "--version"}},
	{Name: "gawk", MinVersion: "4.0.1", VersionArgs: []string{"gawk", "--version"}},
	{Name: "gcc", MinVersion: "5.1", VersionArgs: []string{"gcc", "--version"}},
	{Name: "glibc", MinVersion: "2.11", VersionArgs: []string{"ldd", "--version"}},
	{Name: "grep", MinVersion: "2.5.1a", VersionArgs: []string{"grep", "--version"}},
	{Name: "gzip", MinVersion: "1.3.12", VersionArgs: []string{"gzip", "--version"}},
	{Name: "linux-kernel", MinVersion: "4.14", VersionArgs: []string{"uname", "-r"}},
	{Name: "m4", MinVersion: "1.4.10", VersionArgs: []string{"m4", "--version"}},
	{Name: "make", MinVersion: "4.0", VersionArgs: []string{"make", "--version"}},
	{Name: "patch", MinVersion: "2.5.4", VersionArgs: []string{"patch", "--version"}},
	{Name: "perl", MinVersion: "5.8.8", VersionArgs: []string{"perl", "-V:version"}},
	{Name: "python", MinVersion: "3.4", VersionArgs: []string{"python3", "--version"}},
	{Name: "sed", MinVersion: "4.1.5", VersionArgs: []string{"sed", "--version"}},
	{Name: "tar", MinVersion: "1.22", VersionArgs: []string{"tar", "--version"}},
	{Name: "texinfo", MinVersion: "4.7", VersionArgs: []string{"makeinfo", "--version"}},
	{Name: "xz", MinVersion: "5.0.0", VersionArgs: []string{"xz", "--version"}},
}

// requiredCommands must merely exist on PATH; no version is enforced.
var requiredCommands = []string{
	"awk", "cat", "chmod", "chown", "cp", "cut", "du", "echo",
	"expr", "head", "install", "ln", "ls", "mkdir", "mkfifo",
	"mknod", "mktemp", "mv", "pwd", "rm", "rmdir", "sort",
	"stat", "tail", "touch", "tr", "uniq", "wc", "wget", "which",
}

// kernelFeatures are option lines the running kernel's config should carry.
var kernelFeatures = []string{
	"CONFIG_DEVTMPFS=y",
	"CONFIG_CGROUPS=y",
	"CONFIG_INOTIFY_USER=y",
	"CONFIG_SIGNALFD=y",
	"CONFIG_TIMERFD=y",
	"CONFIG_EPOLL=y",
}

var requiredFilesystems = []string{"ext2", "ext3", "ext4", "tmpfs", "devtmpfs"}

var recommendedGroups = []string{"disk", "wheel", "sudo"}
