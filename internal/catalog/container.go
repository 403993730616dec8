package catalog

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/eleven-am/conformer/internal/domain"
)

const (
	MP4      domain.ContainerID = "mp4"
	MOV      domain.ContainerID = "mov"
	ThreeGP  domain.ContainerID = "3gp"
	Matroska domain.ContainerID = "matroska"
	WebM     domain.ContainerID = "webm"
	MPEGTS   domain.ContainerID = "mpegts"
	Ogg      domain.ContainerID = "ogg"
	MP3Audio domain.ContainerID = "mp3"
)

// TagRule lists the container tags a codec may carry and the one the muxer should write.
type TagRule struct {
	Accepted  []string
	Preferred string
}

type Container struct {
	ID    domain.ContainerID
	Muxer string
	// ProbeNames are the tokens the probing tool reports in its format name.
	ProbeNames []string
	Brands     []string
	// Extensions are lower case with the leading dot. The first one names outputs.
	Extensions []string

	Video        []string
	Audio        []string
	Subtitles    []string
	AnySubtitle  bool
	Attachments  bool
	Images       bool
	Data         bool
	DefaultVideo string
	DefaultAudio string

	MaxWidth  int
	MaxHeight int
	Tags      map[string]TagRule
	FastStart bool
}

var isoTags = map[string]TagRule{
	"h264": {Accepted: []string{"avc1", "avc3"}, Preferred: "avc1"},
	"hevc": {Accepted: []string{"hvc1", "hev1"}, Preferred: "hvc1"},
}

var containers = []Container{
	{
		ID:           MP4,
		Muxer:        "mp4",
		ProbeNames:   []string{"mp4", "m4a"},
		Brands:       []string{"isom", "iso2", "iso4", "iso5", "iso6", "mp41", "mp42", "avc1", "dash", "m4v", "m4a", "mp71"},
		Extensions:   []string{".mp4", ".m4v", ".m4a"},
		Video:        []string{"h264", "hevc", "av1", "vp9", "mpeg4", "mpeg2video"},
		Audio:        []string{"aac", "mp3", "opus", "flac", "ac3", "eac3", "alac"},
		Subtitles:    []string{"mov_text"},
		Images:       true,
		DefaultVideo: "h264",
		DefaultAudio: "aac",
		Tags:         isoTags,
		FastStart:    true,
	},
	{
		ID:           MOV,
		Muxer:        "mov",
		ProbeNames:   []string{"mov"},
		Brands:       []string{"qt"},
		Extensions:   []string{".mov", ".qt"},
		Video:        []string{"h264", "hevc", "mpeg4", "mpeg2video", "prores", "mjpeg"},
		Audio:        []string{"aac", "mp3", "alac", "ac3", "pcm_s16le", "pcm_s24le"},
		Subtitles:    []string{"mov_text"},
		Images:       true,
		Data:         true,
		DefaultVideo: "h264",
		DefaultAudio: "aac",
		Tags: map[string]TagRule{
			"h264": {Accepted: []string{"avc1"}, Preferred: "avc1"},
			"hevc": {Accepted: []string{"hvc1"}, Preferred: "hvc1"},
		},
		FastStart: true,
	},
	{
		ID:           ThreeGP,
		Muxer:        "3gp",
		ProbeNames:   []string{"3gp", "3g2"},
		Brands:       []string{"3gp4", "3gp5", "3gp6", "3gg6", "3g2a", "3g2b"},
		Extensions:   []string{".3gp", ".3g2"},
		Video:        []string{"h264", "mpeg4", "h263"},
		Audio:        []string{"aac", "amr_nb", "amr_wb"},
		Subtitles:    []string{"mov_text"},
		DefaultVideo: "h264",
		DefaultAudio: "aac",
		MaxWidth:     1408,
		MaxHeight:    1152,
		Tags:         isoTags,
		FastStart:    true,
	},
	{
		ID:           Matroska,
		Muxer:        "matroska",
		ProbeNames:   []string{"matroska"},
		Extensions:   []string{".mkv", ".mka", ".mks"},
		Video:        []string{"h264", "hevc", "vp8", "vp9", "av1", "mpeg4", "mpeg2video", "theora", "prores", "mjpeg"},
		Audio:        []string{"aac", "mp3", "opus", "vorbis", "flac", "ac3", "eac3", "dts", "truehd", "alac", "pcm_s16le", "pcm_s24le"},
		AnySubtitle:  true,
		Attachments:  true,
		Images:       true,
		DefaultVideo: "h264",
		DefaultAudio: "aac",
	},
	{
		ID:           WebM,
		Muxer:        "webm",
		ProbeNames:   []string{"webm"},
		Extensions:   []string{".webm"},
		Video:        []string{"vp8", "vp9", "av1"},
		Audio:        []string{"opus", "vorbis"},
		Subtitles:    []string{"webvtt"},
		DefaultVideo: "vp9",
		DefaultAudio: "opus",
	},
	{
		ID:           MPEGTS,
		Muxer:        "mpegts",
		ProbeNames:   []string{"mpegts"},
		Extensions:   []string{".ts", ".m2ts", ".mts"},
		Video:        []string{"h264", "hevc", "mpeg2video", "mpeg4"},
		Audio:        []string{"aac", "mp3", "mp2", "ac3", "eac3", "opus"},
		Subtitles:    []string{"dvb_subtitle", "dvb_teletext"},
		Data:         true,
		DefaultVideo: "h264",
		DefaultAudio: "aac",
	},
	{
		ID:           Ogg,
		Muxer:        "ogg",
		ProbeNames:   []string{"ogg"},
		Extensions:   []string{".ogg", ".ogv", ".oga", ".opus"},
		Video:        []string{"theora", "vp8"},
		Audio:        []string{"vorbis", "opus", "flac", "speex"},
		DefaultVideo: "theora",
		DefaultAudio: "vorbis",
	},
	{
		ID:           MP3Audio,
		Muxer:        "mp3",
		ProbeNames:   []string{"mp3"},
		Extensions:   []string{".mp3"},
		Audio:        []string{"mp3"},
		Images:       true,
		DefaultAudio: "mp3",
	},
}

func LookupContainer(id domain.ContainerID) (Container, bool) {
	for _, c := range containers {
		if c.ID == id {
			return c, true
		}
	}
	return Container{}, false
}

func Containers() []Container {
	return slices.Clone(containers)
}

// Identify picks the container for a probed format name. The probing tool
// reports families such as "mov,mp4,m4a,3gp,3g2,mj2", so candidates are
// narrowed by major brand, then by file extension, then catalog order.
func Identify(format, brand, path string) (domain.ContainerID, bool) {
	tokens := strings.Split(strings.ToLower(format), ",")
	var candidates []Container
	for _, c := range containers {
		for _, name := range c.ProbeNames {
			if slices.Contains(tokens, name) {
				candidates = append(candidates, c)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	brand = strings.ToLower(strings.TrimSpace(brand))
	if brand != "" {
		if narrowed := filter(candidates, func(c Container) bool { return slices.Contains(c.Brands, brand) }); len(narrowed) > 0 {
			candidates = narrowed
		}
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != "" {
		if narrowed := filter(candidates, func(c Container) bool { return slices.Contains(c.Extensions, ext) }); len(narrowed) > 0 {
			candidates = narrowed
		}
	}
	return candidates[0].ID, true
}

func filter(in []Container, keep func(Container) bool) []Container {
	var out []Container
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// ByExtension reports the container whose extension list contains ext.
func ByExtension(ext string) (domain.ContainerID, bool) {
	ext = strings.ToLower(ext)
	for _, c := range containers {
		if slices.Contains(c.Extensions, ext) {
			return c.ID, true
		}
	}
	return "", false
}

func (c Container) Extension() string {
	if len(c.Extensions) == 0 {
		return ""
	}
	return c.Extensions[0]
}

func (c Container) SupportsCodec(kind domain.StreamKind, name string) bool {
	switch kind {
	case domain.KindVideo:
		return slices.Contains(c.Video, name)
	case domain.KindAudio:
		return slices.Contains(c.Audio, name)
	case domain.KindSubtitle:
		return c.AnySubtitle || slices.Contains(c.Subtitles, name)
	}
	return false
}

// Accepts reports whether the container can carry s as-is, ignoring tags and dimensions.
func (c Container) Accepts(s domain.StreamDescriptor) bool {
	switch s.Kind {
	case domain.KindVideo, domain.KindAudio, domain.KindSubtitle:
		return c.SupportsCodec(s.Kind, s.Codec)
	case domain.KindAttachment:
		return c.Attachments
	case domain.KindImage:
		return c.Images
	case domain.KindData:
		return c.Data
	}
	return false
}

// Fits reports whether width x height is within the container's size limits.
func (c Container) Fits(width, height int) bool {
	if c.MaxWidth > 0 && width > c.MaxWidth {
		return false
	}
	if c.MaxHeight > 0 && height > c.MaxHeight {
		return false
	}
	return true
}

// OutputTag resolves the tag to write for codec given the source's tag. It
// reports false when the source tag must be rewritten.
func (c Container) OutputTag(codec, sourceTag string) (string, bool) {
	rule, ok := c.Tags[codec]
	if !ok {
		return "", true
	}
	for _, t := range rule.Accepted {
		if strings.EqualFold(t, sourceTag) {
			return t, true
		}
	}
	if sourceTag == "" {
		return rule.Preferred, true
	}
	return rule.Preferred, false
}

func (c Container) DefaultCodec(kind domain.StreamKind) string {
	if kind == domain.KindAudio {
		return c.DefaultAudio
	}
	return c.DefaultVideo
}
