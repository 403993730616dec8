// Package conformer normalizes media files into a policy-compliant container
// and codec set while changing as little as possible.
//
// A request probes the source, validates it against the policy, decides per
// stream whether to copy, remux or re-encode, and then drives ffmpeg to
// produce the result. Sources that already comply are passed through
// untouched.
//
// # Basic Usage
//
//	engine := conformer.NewEngine(conformer.Options{})
//
//	policy := conformer.Policy{}.With(
//	    conformer.WithResultContainers(conformer.MP4),
//	    conformer.WithVideoResult(conformer.H264, conformer.HEVCHVC1),
//	    conformer.WithMaxChannels(2),
//	    conformer.WithProgress(func(f float64) { fmt.Printf("%.0f%%\n", f*100) }),
//	)
//
//	res, err := engine.Process(ctx, "/media/input.mkv", policy)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer res.Close()
//
// # Decisions
//
// Each video and audio stream is copied when the policy already accepts it,
// remuxed when only its container tag must change, and re-encoded otherwise.
// The pick-smallest mode encodes speculatively and keeps whichever of the
// copy and the re-encode is smaller. Plan runs the decision step alone.
//
// # Errors
//
// Failures are *Failure values whose Error text is stable. Use errors.Is with
// the Err* kinds to classify them; cancellation wraps ErrCancelled and the
// context's error.
package conformer

import (
	"github.com/eleven-am/conformer/internal/catalog"
	"github.com/eleven-am/conformer/internal/domain"
)

type (
	// Policy is an immutable request configuration. Build variants with With.
	Policy       = domain.Policy
	PolicyOption = domain.PolicyOption
	StreamPolicy = domain.StreamPolicy
	SourceRules  = domain.SourceRules

	// Inventory is the probed description of a source file.
	Inventory        = domain.Inventory
	StreamDescriptor = domain.StreamDescriptor
	StreamKind       = domain.StreamKind

	// EncodingPlan is the snapshotted outcome of deciding a request.
	EncodingPlan   = domain.EncodingPlan
	StreamDecision = domain.StreamDecision
	Action         = domain.Action

	Codec       = domain.Codec
	ContainerID = domain.ContainerID
	Rational    = domain.Rational

	ReencodeMode  = domain.ReencodeMode
	MetadataMode  = domain.MetadataMode
	FrameRateMode = domain.FrameRateMode
	HDRMode       = domain.HDRMode
	Chroma        = domain.Chroma

	// Destination receives finished outputs in ProcessTo.
	Destination = domain.Destination

	// Failure is the concrete type of every request-terminal error.
	Failure = domain.Failure
)

const (
	CopyOnly     = domain.ReencodeCopyOnly
	Always       = domain.ReencodeAlways
	PickSmallest = domain.ReencodePickSmallest

	MetadataNone          = domain.MetadataNone
	MetadataPreferred     = domain.MetadataPreferred
	MetadataRequired      = domain.MetadataRequired
	MetadataThumbnailOnly = domain.MetadataThumbnailOnly

	FrameRateUnlimited = domain.FrameRateUnlimited
	FrameRateExact     = domain.FrameRateExact
	FrameRateDivide    = domain.FrameRateDivide

	HDRKeep            = domain.HDRKeep
	HDRRemapOnReencode = domain.HDRRemapOnReencode
	HDRForceSDR        = domain.HDRForceSDR

	Chroma400 = domain.Chroma400
	Chroma420 = domain.Chroma420
	Chroma422 = domain.Chroma422
	Chroma444 = domain.Chroma444

	ActionCopy     = domain.ActionCopy
	ActionRemux    = domain.ActionRemux
	ActionReencode = domain.ActionReencode

	MP4      = catalog.MP4
	MOV      = catalog.MOV
	ThreeGP  = catalog.ThreeGP
	Matroska = catalog.Matroska
	WebM     = catalog.WebM
	MPEGTS   = catalog.MPEGTS
	Ogg      = catalog.Ogg
	MP3Audio = catalog.MP3Audio
)

var (
	ErrUnsupportedExtension    = domain.ErrUnsupportedExtension
	ErrUnsupportedSourceFormat = domain.ErrUnsupportedSourceFormat
	ErrUnsupportedSourceCodec  = domain.ErrUnsupportedSourceCodec
	ErrSourceValidation        = domain.ErrSourceValidation
	ErrNoMediaStreams          = domain.ErrNoMediaStreams
	ErrAudioRemovalInfeasible  = domain.ErrAudioRemovalInfeasible
	ErrResizeInfeasible        = domain.ErrResizeInfeasible
	ErrProbe                   = domain.ErrProbe
	ErrEncode                  = domain.ErrEncode
	ErrNoChange                = domain.ErrNoChange
	ErrCancelled               = domain.ErrCancelled
)

var (
	H264     = catalog.H264
	H264AVC1 = catalog.H264AVC1
	H264AVC3 = catalog.H264AVC3
	HEVC     = catalog.HEVC
	HEVCHVC1 = catalog.HEVCHVC1
	HEVCHEV1 = catalog.HEVCHEV1
	VP8      = catalog.VP8
	VP9      = catalog.VP9
	AV1      = catalog.AV1
	AAC      = catalog.AAC
	AACLC    = catalog.AACLC
	HEAAC    = catalog.HEAAC
	MP3      = catalog.MP3
	Opus     = catalog.Opus
	Vorbis   = catalog.Vorbis
	FLAC     = catalog.FLAC
	AC3      = catalog.AC3
	EAC3     = catalog.EAC3
)

// NewRational returns num/den in lowest terms.
func NewRational(num, den int64) Rational { return domain.NewRational(num, den) }
