package domain

import (
	"fmt"
	"time"
)

type StreamKind int

const (
	KindVideo StreamKind = iota
	KindAudio
	KindSubtitle
	KindAttachment
	KindImage
	KindData
)

func (k StreamKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindSubtitle:
		return "subtitle"
	case KindAttachment:
		return "attachment"
	case KindImage:
		return "image"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k StreamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// StreamDescriptor is the probed, read-only description of one elementary stream.
type StreamDescriptor struct {
	Index int
	Kind  StreamKind
	Codec string
	// Tag is the container-level fourcc, empty when the container carries none.
	Tag     string
	Profile string

	Width          int
	Height         int
	SampleAspect   Rational
	PixelFormat    string
	ColorTransfer  string
	ColorPrimaries string
	ColorSpace     string
	FieldOrder     string
	FrameRate      Rational

	Channels   int
	SampleRate int

	Duration time.Duration
	Size     int64
	Language string
	Default  bool
}

func (s StreamDescriptor) Pixels() int { return s.Width * s.Height }

func (s StreamDescriptor) Interlaced() bool {
	switch s.FieldOrder {
	case "tt", "bb", "tb", "bt":
		return true
	}
	return false
}

// NonSquarePixels reports whether the stream declares a sample aspect ratio other than 1:1.
func (s StreamDescriptor) NonSquarePixels() bool {
	return s.SampleAspect.Valid() && !s.SampleAspect.IsOne()
}

// Inventory is everything the probe step learned about a source.
type Inventory struct {
	Path     string
	Format   string
	Brand    string
	Duration time.Duration
	Size     int64
	Streams  []StreamDescriptor
}

func (inv *Inventory) OfKind(kind StreamKind) []StreamDescriptor {
	var out []StreamDescriptor
	for _, s := range inv.Streams {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (inv *Inventory) Count(kind StreamKind) int {
	n := 0
	for _, s := range inv.Streams {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// StreamDuration returns the advertised stream duration, falling back to the container's.
func (inv *Inventory) StreamDuration(s StreamDescriptor) time.Duration {
	if s.Duration > 0 {
		return s.Duration
	}
	return inv.Duration
}
