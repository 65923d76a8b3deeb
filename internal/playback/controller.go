package playback

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Command identifies one controller operation. The input loop and the CLI
// produce Commands; the controller loop is the only consumer.
type Command int

const (
	CmdNone Command = iota
	CmdPlayPause
	CmdNext
	CmdPrevious
	CmdToggleShuffle
	CmdToggleRepeat
	CmdVolumeUp
	CmdVolumeDown
	CmdSetVolume
	CmdList
	CmdClear
	CmdHelp
	CmdQuit

	// Internal events, enqueued only by the controller's own goroutines.
	cmdTrackEnded
	cmdDaemonTick
)

const (
	volumeStep  = 5
	listPreview = 10
)

// request is one unit of work for the controller loop.
type request struct {
	cmd    Command
	volume int    // CmdSetVolume argument
	ended  Handle // cmdTrackEnded: the handle the monitor saw exit
}

// Options configure a Controller.
type Options struct {
	Supervisor Supervisor
	Playlist   []string
	Volume     int
	Shuffle    bool
	Repeat     bool
	Autoplay   bool

	// Daemon runs without user-facing output and periodically re-evaluates
	// whether playback should auto-advance.
	Daemon bool

	Output    io.Writer // status lines; defaults to os.Stdout
	RawOutput bool      // terminal is in raw mode, so lines need CR LF endings
	Logger    *zap.Logger

	PollInterval   time.Duration // liveness monitor tick, default 1s
	DaemonInterval time.Duration // daemon auto-advance tick, default 60s

	Rand *rand.Rand // shuffle source; defaults to a time-seeded one
}

// Controller owns the player state and the decoder supervisor. All mutation
// happens on the Run goroutine; the liveness monitor and the input loop only
// enqueue requests onto a single queue, which keeps the state single-writer.
type Controller struct {
	sup      Supervisor
	playlist []string
	state    State
	handle   Handle

	opts Options
	log  *zap.Logger
	out  io.Writer
	rng  *rand.Rand

	reqs     chan request
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

// New builds a Controller; Run must be called for commands to take effect.
func New(opts Options) *Controller {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.DaemonInterval <= 0 {
		opts.DaemonInterval = time.Minute
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	c := &Controller{
		sup:      opts.Supervisor,
		playlist: append([]string(nil), opts.Playlist...),
		opts:     opts,
		log:      opts.Logger,
		out:      opts.Output,
		rng:      rng,
		reqs:     make(chan request, 16),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.state.Shuffle = opts.Shuffle
	c.state.Repeat = opts.Repeat
	c.state.SetVolume(opts.Volume)
	return c
}

// Submit enqueues a user command. Safe to call from any goroutine.
func (c *Controller) Submit(cmd Command) {
	c.enqueue(request{cmd: cmd})
}

// SubmitVolume enqueues an absolute volume change.
func (c *Controller) SubmitVolume(v int) {
	c.enqueue(request{cmd: CmdSetVolume, volume: v})
}

func (c *Controller) enqueue(r request) {
	select {
	case c.reqs <- r:
	case <-c.quit:
	}
}

// Done is closed once Run has returned and the decoder is stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run processes requests until a quit command or context cancellation, then
// stops any live decoder. Requests are applied strictly in enqueue order.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	defer c.shutdown()

	if c.opts.Daemon {
		go c.daemonTicker(ctx)
	}
	if c.opts.Autoplay && len(c.playlist) > 0 {
		c.playCurrent()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case r := <-c.reqs:
			if c.handleRequest(r) {
				return
			}
		}
	}
}

// shutdown stops any live decoder. It runs on the Run goroutine only, is
// idempotent, and is safe against a signal racing a normal quit.
func (c *Controller) shutdown() {
	c.quitOnce.Do(func() {
		close(c.quit)
		if c.handle != nil {
			if err := c.sup.Stop(c.handle); err != nil {
				c.log.Warn("stopping decoder at shutdown", zap.Error(err))
			}
			c.handle = nil
		}
		c.log.Info("player stopped")
	})
}

func (c *Controller) handleRequest(r request) (quit bool) {
	switch r.cmd {
	case CmdPlayPause:
		c.playPause()
	case CmdNext:
		c.next()
	case CmdPrevious:
		c.previous()
	case CmdToggleShuffle:
		c.toggleShuffle()
	case CmdToggleRepeat:
		c.toggleRepeat()
	case CmdVolumeUp:
		c.setVolume(c.state.Volume + volumeStep)
	case CmdVolumeDown:
		c.setVolume(c.state.Volume - volumeStep)
	case CmdSetVolume:
		c.setVolume(r.volume)
	case CmdList:
		c.listPlaylist()
	case CmdClear:
		c.clearPlaylist()
	case CmdHelp:
		c.showHelp()
	case CmdQuit:
		c.log.Info("quit requested")
		return true
	case cmdTrackEnded:
		c.trackEnded(r.ended)
	case cmdDaemonTick:
		c.daemonTick()
	}
	return false
}

func (c *Controller) playPause() {
	switch c.state.Status {
	case Stopped:
		if len(c.playlist) == 0 {
			c.printf("Playlist is empty")
			return
		}
		c.playCurrent()
	case Playing:
		if err := c.sup.Pause(c.handle); err != nil {
			c.controlError("pausing", err)
			return
		}
		c.state.Status = Paused
		c.log.Info("playback paused")
		c.printf("Paused")
	case Paused:
		if err := c.sup.Resume(c.handle); err != nil {
			c.controlError("resuming", err)
			return
		}
		c.state.Status = Playing
		c.log.Info("playback resumed")
		c.printf("Resumed")
	}
}

func (c *Controller) next() {
	if len(c.playlist) == 0 {
		c.printf("Playlist is empty")
		return
	}
	c.state.Advance(len(c.playlist), c.rng)
	c.playCurrent()
}

func (c *Controller) previous() {
	if len(c.playlist) == 0 {
		c.printf("Playlist is empty")
		return
	}
	c.state.Retreat(len(c.playlist), c.rng)
	c.playCurrent()
}

// playCurrent starts the decoder for the current index. A failed spawn is
// logged and leaves the player Stopped; it never crashes the controller.
func (c *Controller) playCurrent() {
	if len(c.playlist) == 0 || c.state.Index < 0 || c.state.Index >= len(c.playlist) {
		return
	}
	track := c.playlist[c.state.Index]

	h, err := c.sup.Start(track, c.state.Volume)
	if err != nil {
		c.log.Error("starting playback", zap.String("track", track), zap.Error(err))
		c.printf("Cannot play %s: %v", filepath.Base(track), err)
		c.handle = nil
		c.state.Status = Stopped
		return
	}

	c.handle = h
	c.state.Status = Playing
	c.log.Info("now playing", zap.String("track", filepath.Base(track)))
	c.printf("Now playing: %s", filepath.Base(track))
	c.printf("Volume: %d%% | Shuffle: %s | Repeat: %s",
		c.state.Volume, onOff(c.state.Shuffle), onOff(c.state.Repeat))

	go c.watch(h)
}

// watch is the liveness monitor for one decoder handle. It polls on a fixed
// interval and enqueues a single track-ended event when the process exits,
// then terminates. Events for a superseded handle are dropped by trackEnded.
func (c *Controller) watch(h Handle) {
	t := time.NewTicker(c.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-c.quit:
			return
		case <-t.C:
			if !h.Alive() {
				c.enqueue(request{cmd: cmdTrackEnded, ended: h})
				return
			}
		}
	}
}

func (c *Controller) trackEnded(h Handle) {
	if h != c.handle {
		// Stale event for a decoder we already replaced or stopped.
		return
	}
	c.handle = nil
	if c.state.Repeat && len(c.playlist) > 0 {
		c.state.Advance(len(c.playlist), c.rng)
		c.playCurrent()
		return
	}
	c.state.Status = Stopped
	c.log.Info("playback finished")
	c.printf("Playback finished")
}

func (c *Controller) daemonTicker(ctx context.Context) {
	t := time.NewTicker(c.opts.DaemonInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		case <-t.C:
			c.enqueue(request{cmd: cmdDaemonTick})
		}
	}
}

func (c *Controller) daemonTick() {
	if c.state.Status == Stopped && c.state.Repeat && len(c.playlist) > 0 {
		c.next()
	}
}

func (c *Controller) setVolume(v int) {
	c.state.SetVolume(v)
	c.log.Info("volume changed", zap.Int("volume", c.state.Volume))
	c.printf("Volume: %d%%", c.state.Volume)

	// The decoder has no live volume channel; restart the current track at
	// the new scale. Playback position resets to the start of the track.
	if c.state.Status == Playing {
		c.playCurrent()
	}
}

func (c *Controller) toggleShuffle() {
	c.state.Shuffle = !c.state.Shuffle
	c.log.Info("shuffle toggled", zap.Bool("shuffle", c.state.Shuffle))
	c.printf("Shuffle: %s", onOff(c.state.Shuffle))
}

func (c *Controller) toggleRepeat() {
	c.state.Repeat = !c.state.Repeat
	c.log.Info("repeat toggled", zap.Bool("repeat", c.state.Repeat))
	c.printf("Repeat: %s", onOff(c.state.Repeat))
}

func (c *Controller) listPlaylist() {
	if len(c.playlist) == 0 {
		c.printf("Playlist is empty")
		return
	}
	c.printf("Playlist (%d tracks):", len(c.playlist))
	for i, track := range c.playlist {
		if i == listPreview {
			c.printf("   ... and %d more", len(c.playlist)-listPreview)
			break
		}
		marker := "   "
		if i == c.state.Index {
			marker = " > "
		}
		c.printf("%s%2d. %s", marker, i+1, filepath.Base(track))
	}
}

func (c *Controller) clearPlaylist() {
	c.stopPlayback()
	c.playlist = c.playlist[:0]
	c.state.Index = 0
	c.printf("Playlist cleared")
}

// stopPlayback stops the decoder if one is live and returns to Stopped.
// Calling it while already Stopped changes nothing.
func (c *Controller) stopPlayback() {
	if c.handle != nil {
		if err := c.sup.Stop(c.handle); err != nil {
			c.log.Warn("stopping decoder", zap.Error(err))
		}
		c.handle = nil
	}
	c.state.Status = Stopped
}

func (c *Controller) showHelp() {
	current := "None"
	if len(c.playlist) > 0 && c.state.Index >= 0 && c.state.Index < len(c.playlist) {
		current = filepath.Base(c.playlist[c.state.Index])
	}
	c.printf("Controls:\n"+
		"  SPACE or p    play/pause\n"+
		"  n or right    next track\n"+
		"  b or left     previous track\n"+
		"  s             toggle shuffle\n"+
		"  r             toggle repeat\n"+
		"  + or =        volume up\n"+
		"  - or _        volume down\n"+
		"  q or ESC      quit\n"+
		"  h or ?        show this help\n"+
		"  l             list playlist\n"+
		"  c             clear playlist\n"+
		"\n"+
		"Currently playing: %s", current)
}

// controlError handles a failed signal delivery: log it and drop the handle
// so the state machine cannot keep pointing at a process it cannot control.
func (c *Controller) controlError(what string, err error) {
	c.log.Error(what+" decoder failed", zap.Error(err))
	c.handle = nil
	c.state.Status = Stopped
}

// printf writes a status line for the interactive session. Daemon mode is
// silent; in raw terminal mode lines need explicit carriage returns.
func (c *Controller) printf(format string, args ...any) {
	if c.opts.Daemon {
		return
	}
	line := fmt.Sprintf(format, args...)
	if c.opts.RawOutput {
		line = strings.ReplaceAll(line, "\n", "\r\n") + "\r\n"
		io.WriteString(c.out, line)
		return
	}
	fmt.Fprintln(c.out, line)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
