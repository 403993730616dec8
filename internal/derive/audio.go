package derive

import (
	"github.com/eleven-am/conformer/internal/catalog"
	"github.com/eleven-am/conformer/internal/domain"
)

// Audio derives channel and sample-rate targets for encoding s with codec.
func Audio(s domain.StreamDescriptor, p domain.Policy, codec catalog.CodecInfo) Result {
	r := Result{Params: domain.EncodeParams{Encoder: codec.Encoder}}

	channels := s.Channels
	if p.MaxChannels > 0 && channels > p.MaxChannels {
		channels = p.MaxChannels
		r.because(ReasonChannels)
	}
	if codec.MaxChannels > 0 && channels > codec.MaxChannels {
		channels = codec.MaxChannels
	}

	rate := s.SampleRate
	if p.MaxSampleRate > 0 && rate > p.MaxSampleRate {
		rate = p.MaxSampleRate
		r.because(ReasonSampleRate)
	}
	if rate > 0 {
		rate = codec.SnapSampleRate(rate)
	}

	r.Params.Audio = domain.AudioParams{Channels: channels, SampleRate: rate}
	return r
}
