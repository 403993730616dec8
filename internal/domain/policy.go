package domain

import (
	"slices"
	"time"
)

type ReencodeMode int

const (
	// ReencodeCopyOnly re-encodes only when compliance demands it.
	ReencodeCopyOnly ReencodeMode = iota
	ReencodeAlways
	// ReencodePickSmallest encodes speculatively and keeps whichever of copy
	// and re-encode is smaller.
	ReencodePickSmallest

	reencodeModeCount
)

func (m ReencodeMode) String() string {
	switch m {
	case ReencodeCopyOnly:
		return "copy"
	case ReencodeAlways:
		return "always"
	case ReencodePickSmallest:
		return "smallest"
	}
	return "unknown"
}

type MetadataMode int

const (
	MetadataNone MetadataMode = iota
	MetadataPreferred
	MetadataRequired
	MetadataThumbnailOnly

	metadataModeCount
)

func (m MetadataMode) String() string {
	switch m {
	case MetadataNone:
		return "none"
	case MetadataPreferred:
		return "preferred"
	case MetadataRequired:
		return "required"
	case MetadataThumbnailOnly:
		return "thumbnail"
	}
	return "unknown"
}

type FrameRateMode int

const (
	FrameRateUnlimited FrameRateMode = iota
	FrameRateExact
	FrameRateDivide

	frameRateModeCount
)

func (m FrameRateMode) String() string {
	switch m {
	case FrameRateUnlimited:
		return "unlimited"
	case FrameRateExact:
		return "exact"
	case FrameRateDivide:
		return "divide"
	}
	return "unknown"
}

type HDRMode int

const (
	HDRKeep HDRMode = iota
	// HDRRemapOnReencode tone maps HDR streams that are re-encoded anyway.
	HDRRemapOnReencode
	// HDRForceSDR makes an HDR stream ineligible for copy.
	HDRForceSDR

	hdrModeCount
)

func (m HDRMode) String() string {
	switch m {
	case HDRKeep:
		return "keep"
	case HDRRemapOnReencode:
		return "remap"
	case HDRForceSDR:
		return "sdr"
	}
	return "unknown"
}

// Chroma orders subsampling schemes by chroma resolution. The zero value means no ceiling.
type Chroma int

const (
	ChromaAny Chroma = iota
	Chroma400
	Chroma420
	Chroma422
	Chroma444
)

func (c Chroma) String() string {
	switch c {
	case Chroma400:
		return "400"
	case Chroma420:
		return "420"
	case Chroma422:
		return "422"
	case Chroma444:
		return "444"
	}
	return "any"
}

// EvenWidth reports whether the scheme stores chroma in blocks two pixels wide.
func (c Chroma) EvenWidth() bool { return c == Chroma420 || c == Chroma422 }

// EvenHeight reports whether the scheme stores chroma in blocks two pixels tall.
func (c Chroma) EvenHeight() bool { return c == Chroma420 }

type StreamPolicy struct {
	Source []Codec
	Result []Codec
	Mode   ReencodeMode
}

// SourceRules constrain a source before anything is decided. Zero fields are unchecked.
type SourceRules struct {
	MinStreams int
	MaxStreams int

	MinWidth  int
	MaxWidth  int
	MinHeight int
	MaxHeight int
	MinPixels int
	MaxPixels int

	MinDuration time.Duration
	MaxDuration time.Duration

	MinMeasuredDuration time.Duration
	MaxMeasuredDuration time.Duration
}

func (r SourceRules) NeedsMeasurement() bool {
	return r.MinMeasuredDuration > 0 || r.MaxMeasuredDuration > 0
}

type Bounds struct {
	Width  int
	Height int
}

type FrameRateLimit struct {
	Mode FrameRateMode
	Max  Rational
}

// Policy is an immutable processing request configuration. Derive variants with With.
type Policy struct {
	SourceExtensions []string
	SourceContainers []ContainerID
	ResultContainers []ContainerID

	Video StreamPolicy
	Audio StreamPolicy

	ValidateVideo      SourceRules
	ValidateAudio      SourceRules
	ValidateAllStreams bool

	Resize        Bounds
	FrameRate     FrameRateLimit
	MaxChroma     Chroma
	MaxBitDepth   int
	MaxChannels   int
	MaxSampleRate int
	HDR           HDRMode
	Metadata      MetadataMode

	FastStart         bool
	ForceProgressive  bool
	ForceSquarePixels bool
	KeepUnrecognized  bool
	RemoveAudio       bool
	FailOnNoChange    bool

	Progress func(float64)
}

type PolicyOption func(*Policy)

// With returns a copy of p with opts applied. p itself is never modified.
func (p Policy) With(opts ...PolicyOption) Policy {
	c := p.clone()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (p Policy) clone() Policy {
	c := p
	c.SourceExtensions = slices.Clone(p.SourceExtensions)
	c.SourceContainers = slices.Clone(p.SourceContainers)
	c.ResultContainers = slices.Clone(p.ResultContainers)
	c.Video = p.Video.clone()
	c.Audio = p.Audio.clone()
	return c
}

func (s StreamPolicy) clone() StreamPolicy {
	return StreamPolicy{
		Source: slices.Clone(s.Source),
		Result: slices.Clone(s.Result),
		Mode:   s.Mode,
	}
}

// Streams returns the stream policy governing kind, or nil for kinds the policy does not cover.
func (p *Policy) Streams(kind StreamKind) *StreamPolicy {
	switch kind {
	case KindVideo:
		return &p.Video
	case KindAudio:
		return &p.Audio
	}
	return nil
}

func (p *Policy) Rules(kind StreamKind) SourceRules {
	if kind == KindAudio {
		return p.ValidateAudio
	}
	return p.ValidateVideo
}

// PixelCeiling reports whether any chroma or bit-depth ceiling is active.
func (p *Policy) PixelCeiling() bool {
	return p.MaxChroma != ChromaAny || p.MaxBitDepth > 0
}
