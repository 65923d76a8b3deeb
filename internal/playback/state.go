package playback

import "math/rand"

// Status is the playback state of the controller.
type Status int

const (
	Stopped Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// State holds everything the controller mutates in response to commands.
// It has exactly one writer: the controller loop.
type State struct {
	Index   int
	Status  Status
	Shuffle bool
	Repeat  bool
	Volume  int
}

// Advance selects the next track index for a playlist of length n.
// In shuffle mode the index is drawn uniformly from [0, n).
func (s *State) Advance(n int, rng *rand.Rand) {
	if n <= 0 {
		return
	}
	if s.Shuffle {
		s.Index = rng.Intn(n)
		return
	}
	s.Index = (s.Index + 1) % n
}

// Retreat selects the previous track index, wrapping to n-1 from 0.
func (s *State) Retreat(n int, rng *rand.Rand) {
	if n <= 0 {
		return
	}
	if s.Shuffle {
		s.Index = rng.Intn(n)
		return
	}
	s.Index = (s.Index - 1 + n) % n
}

// SetVolume clamps v to [0, 100] and stores it.
func (s *State) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	s.Volume = v
}
