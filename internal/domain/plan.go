package domain

import (
	"context"
	"io"
)

type Action int

const (
	ActionCopy Action = iota
	// ActionRemux keeps the stream bytes and rewrites only the container-level tag.
	ActionRemux
	ActionReencode

	actionCount
)

func (a Action) String() string {
	switch a {
	case ActionCopy:
		return "copy"
	case ActionRemux:
		return "remux"
	case ActionReencode:
		return "reencode"
	}
	return "unknown"
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

type VideoParams struct {
	Width       int
	Height      int
	PixelFormat string
	// FrameRate is zero when the source rate is kept.
	FrameRate    Rational
	Deinterlace  bool
	SquarePixels bool
	ToneMap      bool
}

type AudioParams struct {
	Channels   int
	SampleRate int
}

type EncodeParams struct {
	Encoder string
	Video   VideoParams
	Audio   AudioParams
}

type StreamDecision struct {
	Source StreamDescriptor
	Action Action
	Codec  Codec
	// Tag is the container-level tag to write, empty to let the muxer choose.
	Tag         string
	Params      *EncodeParams
	OutputIndex int

	// Arbitrate marks a re-encode that still has to be compared against
	// FallbackAction by size before the plan can run.
	Arbitrate      bool
	FallbackAction Action
	FallbackTag    string
	// Artifact is an already encoded file holding this stream's output.
	Artifact string

	Reasons []string
}

type Omission struct {
	Stream StreamDescriptor
	Reason string
}

// EncodingPlan is the complete, snapshotted outcome of deciding a request.
type EncodingPlan struct {
	SourceContainer ContainerID
	Container       ContainerID
	Muxer           string
	Extension       string

	Decisions []StreamDecision
	Omitted   []Omission

	MetadataMode  MetadataMode
	StripMetadata bool
	FastStart     bool
	// ForceRewrite is set when the output must be rewritten even if every stream is copied.
	ForceRewrite bool

	finalized bool
}

type ArbitrationOutcome struct {
	Stream      int
	CopyWins    bool
	CopySize    int64
	EncodedSize int64
	Artifact    string
}

func (p *EncodingPlan) Pending() []int {
	var out []int
	for i, d := range p.Decisions {
		if d.Arbitrate {
			out = append(out, i)
		}
	}
	return out
}

func (p *EncodingPlan) Finalized() bool { return p.finalized }

// Passthrough reports whether the source bytes already are the result.
func (p *EncodingPlan) Passthrough() bool {
	if p.ForceRewrite || p.StripMetadata || p.Container != p.SourceContainer || len(p.Omitted) > 0 {
		return false
	}
	for _, d := range p.Decisions {
		if d.Action != ActionCopy || d.Arbitrate {
			return false
		}
	}
	return true
}

// Resolve applies arbitration outcomes to pending decisions and finalizes the plan.
func (p *EncodingPlan) Resolve(outcomes []ArbitrationOutcome) {
	for _, o := range outcomes {
		for i := range p.Decisions {
			d := &p.Decisions[i]
			if !d.Arbitrate || d.Source.Index != o.Stream {
				continue
			}
			d.Arbitrate = false
			if o.CopyWins {
				d.Action = d.FallbackAction
				d.Tag = d.FallbackTag
				d.Params = nil
				d.Codec = Codec{Kind: d.Source.Kind, Name: d.Source.Codec, Tag: d.FallbackTag, Profile: d.Source.Profile}
				d.Reasons = append(d.Reasons, "copy is not larger than re-encode")
			} else {
				d.Artifact = o.Artifact
				d.Reasons = append(d.Reasons, "re-encode is smaller than copy")
			}
		}
	}
	p.Finalize()
}

// Finalize resolves metadata handling and assigns output indices. It must run
// once nothing is pending arbitration, since metadata stripping depends on
// whether the plan turned out to be a passthrough.
func (p *EncodingPlan) Finalize() {
	switch p.MetadataMode {
	case MetadataNone, MetadataThumbnailOnly:
		p.StripMetadata = false
	case MetadataRequired:
		p.StripMetadata = true
	case MetadataPreferred:
		p.StripMetadata = false
		p.StripMetadata = !p.Passthrough()
	}
	if p.StripMetadata || p.MetadataMode == MetadataThumbnailOnly {
		kept := p.Decisions[:0]
		for _, d := range p.Decisions {
			if d.Source.Kind == KindImage {
				p.Omitted = append(p.Omitted, Omission{Stream: d.Source, Reason: "embedded thumbnail stripped"})
				continue
			}
			kept = append(kept, d)
		}
		p.Decisions = kept
	}
	for i := range p.Decisions {
		p.Decisions[i].OutputIndex = i
	}
	p.finalized = true
}

// Destination accepts a finished output and returns a durable handle for it.
type Destination interface {
	Put(ctx context.Context, r io.ReadSeeker, ext string) (string, error)
}
