package catalog

import (
	"slices"

	"github.com/eleven-am/conformer/internal/domain"
)

var (
	H264     = video("h264", "")
	H264AVC1 = video("h264", "avc1")
	H264AVC3 = video("h264", "avc3")
	HEVC     = video("hevc", "")
	HEVCHVC1 = video("hevc", "hvc1")
	HEVCHEV1 = video("hevc", "hev1")
	VP8      = video("vp8", "")
	VP9      = video("vp9", "")
	AV1      = video("av1", "")
	MPEG4    = video("mpeg4", "")
	MPEG2    = video("mpeg2video", "")
	Theora   = video("theora", "")

	AAC    = audio("aac", "")
	AACLC  = audio("aac", "LC")
	HEAAC  = audio("aac", "HE-AAC")
	MP3    = audio("mp3", "")
	Opus   = audio("opus", "")
	Vorbis = audio("vorbis", "")
	FLAC   = audio("flac", "")
	AC3    = audio("ac3", "")
	EAC3   = audio("eac3", "")
	PCM    = audio("pcm_s16le", "")
)

func video(name, tag string) domain.Codec {
	return domain.Codec{Kind: domain.KindVideo, Name: name, Tag: tag}
}

func audio(name, profile string) domain.Codec {
	return domain.Codec{Kind: domain.KindAudio, Name: name, Profile: profile}
}

// CodecInfo describes what the encoding tool can produce for a codec.
type CodecInfo struct {
	Kind       domain.StreamKind
	Name       string
	Encoder    string
	EncodeArgs []string

	MinWidth     int
	MinHeight    int
	PixelFormats []string

	// SampleRates lists natively supported rates, highest first. Empty means any rate.
	SampleRates []int
	MaxChannels int
}

var codecs = map[string]CodecInfo{
	"h264": {
		Kind:         domain.KindVideo,
		Name:         "h264",
		Encoder:      "libx264",
		EncodeArgs:   []string{"-preset", "medium", "-crf", "23"},
		PixelFormats: []string{"yuv420p", "yuv422p", "yuv444p", "yuv420p10le", "yuv422p10le", "yuv444p10le", "gray", "gray10le"},
	},
	"hevc": {
		Kind:       domain.KindVideo,
		Name:       "hevc",
		Encoder:    "libx265",
		EncodeArgs: []string{"-preset", "medium", "-crf", "28"},
		MinWidth:   64,
		MinHeight:  64,
		PixelFormats: []string{
			"yuv420p", "yuv422p", "yuv444p",
			"yuv420p10le", "yuv422p10le", "yuv444p10le",
			"yuv420p12le", "yuv422p12le", "yuv444p12le",
			"gray", "gray10le", "gray12le",
		},
	},
	"vp8": {
		Kind:         domain.KindVideo,
		Name:         "vp8",
		Encoder:      "libvpx",
		EncodeArgs:   []string{"-crf", "10", "-b:v", "1M"},
		PixelFormats: []string{"yuv420p"},
	},
	"vp9": {
		Kind:       domain.KindVideo,
		Name:       "vp9",
		Encoder:    "libvpx-vp9",
		EncodeArgs: []string{"-crf", "31", "-b:v", "0", "-row-mt", "1"},
		PixelFormats: []string{
			"yuv420p", "yuv422p", "yuv444p",
			"yuv420p10le", "yuv422p10le", "yuv444p10le",
			"yuv420p12le", "yuv422p12le", "yuv444p12le",
		},
	},
	"av1": {
		Kind:         domain.KindVideo,
		Name:         "av1",
		Encoder:      "libsvtav1",
		EncodeArgs:   []string{"-preset", "8", "-crf", "35"},
		PixelFormats: []string{"yuv420p", "yuv420p10le"},
	},
	"mpeg4": {
		Kind:         domain.KindVideo,
		Name:         "mpeg4",
		Encoder:      "mpeg4",
		EncodeArgs:   []string{"-q:v", "5"},
		PixelFormats: []string{"yuv420p"},
	},
	"mpeg2video": {
		Kind:         domain.KindVideo,
		Name:         "mpeg2video",
		Encoder:      "mpeg2video",
		EncodeArgs:   []string{"-q:v", "4"},
		PixelFormats: []string{"yuv420p", "yuv422p"},
	},
	"theora": {
		Kind:         domain.KindVideo,
		Name:         "theora",
		Encoder:      "libtheora",
		EncodeArgs:   []string{"-q:v", "7"},
		PixelFormats: []string{"yuv420p", "yuv422p", "yuv444p"},
	},

	"aac": {
		Kind:        domain.KindAudio,
		Name:        "aac",
		Encoder:     "aac",
		EncodeArgs:  []string{"-b:a", "128k"},
		SampleRates: []int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000},
		MaxChannels: 8,
	},
	"mp3": {
		Kind:        domain.KindAudio,
		Name:        "mp3",
		Encoder:     "libmp3lame",
		EncodeArgs:  []string{"-q:a", "2"},
		SampleRates: []int{48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000},
		MaxChannels: 2,
	},
	"opus": {
		Kind:        domain.KindAudio,
		Name:        "opus",
		Encoder:     "libopus",
		EncodeArgs:  []string{"-b:a", "128k"},
		SampleRates: []int{48000, 24000, 16000, 12000, 8000},
		MaxChannels: 8,
	},
	"vorbis": {
		Kind:        domain.KindAudio,
		Name:        "vorbis",
		Encoder:     "libvorbis",
		EncodeArgs:  []string{"-q:a", "5"},
		MaxChannels: 8,
	},
	"flac": {
		Kind:        domain.KindAudio,
		Name:        "flac",
		Encoder:     "flac",
		MaxChannels: 8,
	},
	"ac3": {
		Kind:        domain.KindAudio,
		Name:        "ac3",
		Encoder:     "ac3",
		EncodeArgs:  []string{"-b:a", "448k"},
		SampleRates: []int{48000, 44100, 32000},
		MaxChannels: 6,
	},
	"eac3": {
		Kind:        domain.KindAudio,
		Name:        "eac3",
		Encoder:     "eac3",
		SampleRates: []int{48000, 44100, 32000},
		MaxChannels: 8,
	},
	"pcm_s16le": {
		Kind:        domain.KindAudio,
		Name:        "pcm_s16le",
		Encoder:     "pcm_s16le",
		MaxChannels: 8,
	},
}

// Lookup returns what the catalog knows about encoding codec name.
func Lookup(name string) (CodecInfo, bool) {
	info, ok := codecs[name]
	return info, ok
}

func (c CodecInfo) SupportsPixelFormat(pix string) bool {
	return slices.Contains(c.PixelFormats, pix)
}

// SnapSampleRate returns the smallest supported rate at or above rate, or the
// highest supported rate when rate exceeds them all.
func (c CodecInfo) SnapSampleRate(rate int) int {
	if len(c.SampleRates) == 0 {
		return rate
	}
	best := 0
	for _, r := range c.SampleRates {
		if r >= rate && (best == 0 || r < best) {
			best = r
		}
	}
	if best == 0 {
		return slices.Max(c.SampleRates)
	}
	return best
}

func (c CodecInfo) SupportsSampleRate(rate int) bool {
	return len(c.SampleRates) == 0 || slices.Contains(c.SampleRates, rate)
}
