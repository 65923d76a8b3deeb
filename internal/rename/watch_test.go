package rename

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchRenamesNewFiles(t *testing.T) {
	r, dir := newTestRenamer(t, nil)
	r.settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	// Let the watcher install itself before creating the file.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "new file.pdf"))

	want := filepath.Join(dir, "20240315_093000_new_file.pdf")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(want); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("renamed file %s never appeared", want)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatchDoesNotReprocessOwnOutput(t *testing.T) {
	r, dir := newTestRenamer(t, nil)
	r.settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "report.pdf"))

	want := filepath.Join(dir, "20240315_093000_report.pdf")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(want); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("renamed file %s never appeared", want)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// If the Create event for the target were processed, a doubled name
	// would appear shortly after.
	time.Sleep(200 * time.Millisecond)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != filepath.Base(want) {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory = %v, want only %s", names, filepath.Base(want))
	}

	cancel()
	<-done
}

func TestWatchMissingDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WatchDirectory = filepath.Join(t.TempDir(), "absent")
	r := New(cfg, nil)
	if err := r.Watch(context.Background()); err == nil {
		t.Error("Watch() error = nil, want missing-directory error")
	}
}
