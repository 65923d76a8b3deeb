package playback

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeHandle struct {
	pid  int
	dead atomic.Bool
}

func (h *fakeHandle) PID() int { return h.pid }
func (h *fakeHandle) Alive() bool { return !h.dead.Load() }
func (h *fakeHandle) Wait(time.Duration) bool { return h.dead.Load() }

type startCall struct {
	path   string
	volume int
}

type signalCall struct {
	op  string
	pid int
}

// fakeSupervisor records every call so tests can assert on the exact
// sequence of process operations.
type fakeSupervisor struct {
	mu       sync.Mutex
	nextPID  int
	startErr error
	starts   []startCall
	signals  []signalCall
	handles  []*fakeHandle
}

func (f *fakeSupervisor) Start(path string, volume int) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.nextPID++
	h := &fakeHandle{pid: f.nextPID}
	f.starts = append(f.starts, startCall{path: path, volume: volume})
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeSupervisor) Pause(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, signalCall{op: "pause", pid: h.PID()})
	return nil
}

func (f *fakeSupervisor) Resume(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, signalCall{op: "resume", pid: h.PID()})
	return nil
}

func (f *fakeSupervisor) Stop(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, signalCall{op: "stop", pid: h.PID()})
	if fh, ok := h.(*fakeHandle); ok {
		fh.dead.Store(true)
	}
	return nil
}

func (f *fakeSupervisor) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func newTestController(sup Supervisor, playlist []string, opts func(*Options)) *Controller {
	o := Options{
		Supervisor: sup,
		Playlist:   playlist,
		Volume:     70,
		Repeat:     true,
		Output:     &bytes.Buffer{},
		Logger:     zap.NewNop(),
		Rand:       rand.New(rand.NewSource(1)),
	}
	if opts != nil {
		opts(&o)
	}
	return New(o)
}

func TestTrackEndedAdvancesAndWraps(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3", "b.mp3", "c.mp3"}, nil)

	c.playPause()
	if c.state.Status != Playing || c.state.Index != 0 {
		t.Fatalf("after play: status=%v index=%d, want playing 0", c.state.Status, c.state.Index)
	}

	for _, want := range []int{1, 2, 0} {
		c.handleRequest(request{cmd: cmdTrackEnded, ended: c.handle})
		if c.state.Index != want {
			t.Fatalf("after track end: index = %d, want %d", c.state.Index, want)
		}
		if c.state.Status != Playing {
			t.Fatalf("after track end: status = %v, want playing", c.state.Status)
		}
	}

	paths := make([]string, 0, len(sup.starts))
	for _, s := range sup.starts {
		paths = append(paths, s.path)
	}
	if got, want := strings.Join(paths, " "), "a.mp3 b.mp3 c.mp3 a.mp3"; got != want {
		t.Fatalf("started tracks %q, want %q", got, want)
	}
}

func TestTrackEndedWithoutRepeatStops(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3", "b.mp3", "c.mp3"}, func(o *Options) {
		o.Repeat = false
	})

	c.state.Index = 2
	c.playCurrent()
	c.handleRequest(request{cmd: cmdTrackEnded, ended: c.handle})

	if c.state.Status != Stopped {
		t.Fatalf("status = %v, want stopped", c.state.Status)
	}
	if c.state.Index != 2 {
		t.Fatalf("index = %d, want unchanged 2", c.state.Index)
	}
	if c.handle != nil {
		t.Fatalf("handle not cleared after final track ended")
	}
}

func TestStaleTrackEndedIsDropped(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3", "b.mp3"}, nil)

	c.playPause()
	old := c.handle
	c.next() // replaces the handle

	before := c.state
	c.handleRequest(request{cmd: cmdTrackEnded, ended: old})
	if c.state != before {
		t.Fatalf("stale track-ended mutated state: %+v -> %+v", before, c.state)
	}
	if sup.startCount() != 2 {
		t.Fatalf("stale track-ended started a track: %d starts, want 2", sup.startCount())
	}
}

func TestEmptyPlaylistCommandsAreNoops(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, nil, nil)

	for _, cmd := range []Command{CmdPlayPause, CmdNext, CmdPrevious} {
		c.handleRequest(request{cmd: cmd})
		if c.state.Status != Stopped {
			t.Fatalf("command %d on empty playlist: status = %v, want stopped", cmd, c.state.Status)
		}
	}
	if sup.startCount() != 0 {
		t.Fatalf("empty playlist caused %d decoder starts", sup.startCount())
	}
}

func TestPauseResumeSignalsSameProcessOnce(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3"}, nil)

	c.playPause() // start
	c.playPause() // pause
	c.playPause() // resume

	if len(sup.signals) != 2 {
		t.Fatalf("signals = %v, want exactly pause then resume", sup.signals)
	}
	if sup.signals[0].op != "pause" || sup.signals[1].op != "resume" {
		t.Fatalf("signal order = %v, want pause before resume", sup.signals)
	}
	if sup.signals[0].pid != sup.signals[1].pid {
		t.Fatalf("pause pid %d and resume pid %d differ", sup.signals[0].pid, sup.signals[1].pid)
	}
	if c.state.Status != Playing {
		t.Fatalf("status after resume = %v, want playing", c.state.Status)
	}
}

func TestPausedImpliesLiveHandle(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3"}, nil)

	c.playPause()
	c.playPause()
	if c.state.Status != Paused {
		t.Fatalf("status = %v, want paused", c.state.Status)
	}
	if c.handle == nil {
		t.Fatalf("paused with no decoder handle")
	}
}

func TestStopWhenStoppedIsNoop(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3"}, nil)

	before := c.state
	c.stopPlayback()
	if c.state != before {
		t.Fatalf("stop while stopped changed state: %+v -> %+v", before, c.state)
	}
	if len(sup.signals) != 0 {
		t.Fatalf("stop while stopped signalled the supervisor: %v", sup.signals)
	}
}

func TestVolumeChangeWhilePlayingRestartsTrack(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3"}, nil)

	c.playPause()
	c.handleRequest(request{cmd: CmdVolumeUp})

	if got := sup.startCount(); got != 2 {
		t.Fatalf("decoder starts = %d, want 2 (restart at new volume)", got)
	}
	if sup.starts[1].volume != 75 {
		t.Fatalf("restart volume = %d, want 75", sup.starts[1].volume)
	}
	if c.state.Status != Playing {
		t.Fatalf("status = %v, want playing", c.state.Status)
	}
}

func TestVolumeChangeWhilePausedDoesNotRestart(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3"}, nil)

	c.playPause()
	c.playPause() // pause
	c.handleRequest(request{cmd: CmdSetVolume, volume: 30})

	if got := sup.startCount(); got != 1 {
		t.Fatalf("decoder starts = %d, want 1", got)
	}
	if c.state.Volume != 30 {
		t.Fatalf("volume = %d, want 30", c.state.Volume)
	}
}

func TestSetVolumeClampedThroughController(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3"}, nil)

	c.handleRequest(request{cmd: CmdSetVolume, volume: 150})
	if c.state.Volume != 100 {
		t.Fatalf("volume = %d, want clamped to 100", c.state.Volume)
	}
	c.handleRequest(request{cmd: CmdSetVolume, volume: -10})
	if c.state.Volume != 0 {
		t.Fatalf("volume = %d, want clamped to 0", c.state.Volume)
	}
}

func TestSpawnErrorReturnsToStopped(t *testing.T) {
	sup := &fakeSupervisor{startErr: errors.New("exec format error")}
	c := newTestController(sup, []string{"a.mp3"}, nil)

	c.playPause()
	if c.state.Status != Stopped {
		t.Fatalf("status after failed spawn = %v, want stopped", c.state.Status)
	}
	if c.handle != nil {
		t.Fatalf("handle set after failed spawn")
	}
}

func TestClearPlaylistStopsAndResets(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3", "b.mp3"}, nil)

	c.playPause()
	c.next()
	c.clearPlaylist()

	if len(c.playlist) != 0 || c.state.Index != 0 || c.state.Status != Stopped {
		t.Fatalf("after clear: playlist=%d index=%d status=%v", len(c.playlist), c.state.Index, c.state.Status)
	}
	last := sup.signals[len(sup.signals)-1]
	if last.op != "stop" {
		t.Fatalf("clear did not stop the decoder; last signal %v", last)
	}
}

func TestMonitorAdvancesWhenProcessExits(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3", "b.mp3"}, func(o *Options) {
		o.PollInterval = 5 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Submit(CmdPlayPause)
	waitFor(t, func() bool { return sup.startCount() == 1 })

	sup.mu.Lock()
	sup.handles[0].dead.Store(true)
	sup.mu.Unlock()

	waitFor(t, func() bool { return sup.startCount() == 2 })

	c.Submit(CmdQuit)
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("controller did not shut down after quit")
	}

	if c.state.Index != 1 {
		t.Fatalf("index after auto-advance = %d, want 1", c.state.Index)
	}
	if sup.starts[1].path != "b.mp3" {
		t.Fatalf("auto-advance started %q, want b.mp3", sup.starts[1].path)
	}
}

func TestQuitStopsLiveDecoder(t *testing.T) {
	sup := &fakeSupervisor{}
	c := newTestController(sup, []string{"a.mp3"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Submit(CmdPlayPause)
	waitFor(t, func() bool { return sup.startCount() == 1 })

	c.Submit(CmdQuit)
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("controller did not shut down after quit")
	}

	sup.mu.Lock()
	defer sup.mu.Unlock()
	last := sup.signals[len(sup.signals)-1]
	if last.op != "stop" {
		t.Fatalf("quit did not stop the decoder; signals %v", sup.signals)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached within deadline")
}
