package conformer

import (
	"slices"
	"time"
)

func WithSourceExtensions(exts ...string) PolicyOption {
	return func(p *Policy) { p.SourceExtensions = slices.Clone(exts) }
}

func WithSourceContainers(ids ...ContainerID) PolicyOption {
	return func(p *Policy) { p.SourceContainers = slices.Clone(ids) }
}

// WithResultContainers lists acceptable output containers in preference order.
func WithResultContainers(ids ...ContainerID) PolicyOption {
	return func(p *Policy) { p.ResultContainers = slices.Clone(ids) }
}

func WithVideoSource(codecs ...Codec) PolicyOption {
	return func(p *Policy) { p.Video.Source = slices.Clone(codecs) }
}

func WithVideoResult(codecs ...Codec) PolicyOption {
	return func(p *Policy) { p.Video.Result = slices.Clone(codecs) }
}

func WithAudioSource(codecs ...Codec) PolicyOption {
	return func(p *Policy) { p.Audio.Source = slices.Clone(codecs) }
}

func WithAudioResult(codecs ...Codec) PolicyOption {
	return func(p *Policy) { p.Audio.Result = slices.Clone(codecs) }
}

func WithVideoMode(m ReencodeMode) PolicyOption {
	return func(p *Policy) { p.Video.Mode = m }
}

func WithAudioMode(m ReencodeMode) PolicyOption {
	return func(p *Policy) { p.Audio.Mode = m }
}

func WithVideoRules(r SourceRules) PolicyOption {
	return func(p *Policy) { p.ValidateVideo = r }
}

func WithAudioRules(r SourceRules) PolicyOption {
	return func(p *Policy) { p.ValidateAudio = r }
}

// WithMaxDuration caps the advertised duration of video and audio streams.
func WithMaxDuration(d time.Duration) PolicyOption {
	return func(p *Policy) {
		p.ValidateVideo.MaxDuration = d
		p.ValidateAudio.MaxDuration = d
	}
}

func WithValidateAllStreams() PolicyOption {
	return func(p *Policy) { p.ValidateAllStreams = true }
}

// WithResize bounds video dimensions. Sources are never upscaled to fill them.
func WithResize(width, height int) PolicyOption {
	return func(p *Policy) {
		p.Resize.Width = width
		p.Resize.Height = height
	}
}

func WithFrameRateLimit(mode FrameRateMode, max Rational) PolicyOption {
	return func(p *Policy) {
		p.FrameRate.Mode = mode
		p.FrameRate.Max = max
	}
}

func WithMaxChroma(c Chroma) PolicyOption {
	return func(p *Policy) { p.MaxChroma = c }
}

func WithMaxBitDepth(bits int) PolicyOption {
	return func(p *Policy) { p.MaxBitDepth = bits }
}

func WithMaxChannels(n int) PolicyOption {
	return func(p *Policy) { p.MaxChannels = n }
}

func WithMaxSampleRate(hz int) PolicyOption {
	return func(p *Policy) { p.MaxSampleRate = hz }
}

func WithHDR(m HDRMode) PolicyOption {
	return func(p *Policy) { p.HDR = m }
}

func WithMetadata(m MetadataMode) PolicyOption {
	return func(p *Policy) { p.Metadata = m }
}

// WithFastStart moves the index ahead of the media data where the container allows it.
func WithFastStart() PolicyOption {
	return func(p *Policy) { p.FastStart = true }
}

func WithForceProgressive() PolicyOption {
	return func(p *Policy) { p.ForceProgressive = true }
}

func WithForceSquarePixels() PolicyOption {
	return func(p *Policy) { p.ForceSquarePixels = true }
}

func WithKeepUnrecognized() PolicyOption {
	return func(p *Policy) { p.KeepUnrecognized = true }
}

func WithRemoveAudio() PolicyOption {
	return func(p *Policy) { p.RemoveAudio = true }
}

// WithFailOnNoChange makes a request that would return the source unchanged fail with ErrNoChange.
func WithFailOnNoChange() PolicyOption {
	return func(p *Policy) { p.FailOnNoChange = true }
}

// WithProgress registers a callback that receives strictly increasing values ending at 1.
func WithProgress(fn func(float64)) PolicyOption {
	return func(p *Policy) { p.Progress = fn }
}
