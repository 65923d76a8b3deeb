package meta

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Track holds display information for one audio file.
type Track struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Probe reads tags and duration for path. It never fails: unreadable tags
// fall back to the filename stem and unknown durations stay zero.
func Probe(path string) Track {
	t := readTags(path)
	if t.Title == "" {
		base := filepath.Base(path)
		t.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	t.Duration = probeDuration(path)
	return t
}

// DisplayTitle returns "Artist - Title" when the artist is known.
func (t Track) DisplayTitle() string {
	if t.Artist != "" {
		return t.Artist + " - " + t.Title
	}
	return t.Title
}

func readTags(path string) Track {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Track{}
	}
	defer tag.Close()
	return Track{
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
		Album:  strings.TrimSpace(tag.Album()),
	}
}

// probeDuration decodes just enough of the stream headers to compute length.
// Formats without a native prober report zero.
func probeDuration(path string) time.Duration {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3Duration(f)
	case ".wav":
		return wavDuration(f)
	case ".flac":
		return flacDuration(f)
	case ".ogg":
		return oggDuration(f)
	}
	return 0
}

func mp3Duration(f *os.File) time.Duration {
	dec, err := mp3.NewDecoder(f)
	if err != nil || dec.SampleRate() <= 0 {
		return 0
	}
	// Decoded output is 16-bit stereo, 4 bytes per sample frame.
	frames := dec.Length() / 4
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate())
}

func wavDuration(f *os.File) time.Duration {
	d, err := wav.NewDecoder(f).Duration()
	if err != nil {
		return 0
	}
	return d
}

func flacDuration(f *os.File) time.Duration {
	stream, err := flac.New(f)
	if err != nil || stream.Info.SampleRate == 0 {
		return 0
	}
	return time.Duration(stream.Info.NSamples) * time.Second / time.Duration(stream.Info.SampleRate)
}

func oggDuration(f *os.File) time.Duration {
	r, err := oggvorbis.NewReader(f)
	if err != nil || r.SampleRate() <= 0 {
		return 0
	}
	return time.Duration(r.Length()) * time.Second / time.Duration(r.SampleRate())
}
