package input

import "homebin/internal/playback"

const (
	keyEsc   = 0x1b
	keyCtrlC = 0x03
)

// Decode maps one raw terminal read to a command. Arrow keys arrive as a
// multi-byte escape sequence within a single read; a bare ESC quits.
func Decode(buf []byte) playback.Command {
	if len(buf) == 0 {
		return playback.CmdNone
	}

	if buf[0] == keyEsc {
		if len(buf) >= 3 && buf[1] == '[' {
			switch buf[2] {
			case 'C': // right arrow
				return playback.CmdNext
			case 'D': // left arrow
				return playback.CmdPrevious
			}
			return playback.CmdNone
		}
		return playback.CmdQuit
	}

	switch buf[0] {
	case ' ', 'p':
		return playback.CmdPlayPause
	case 'n':
		return playback.CmdNext
	case 'b':
		return playback.CmdPrevious
	case 's':
		return playback.CmdToggleShuffle
	case 'r':
		return playback.CmdToggleRepeat
	case '+', '=':
		return playback.CmdVolumeUp
	case '-', '_':
		return playback.CmdVolumeDown
	case 'q', keyCtrlC:
		return playback.CmdQuit
	case 'h', '?':
		return playback.CmdHelp
	case 'l':
		return playback.CmdList
	case 'c':
		return playback.CmdClear
	}
	return playback.CmdNone
}
