package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/conformer/internal/domain"
)

func TestIdentify(t *testing.T) {
	cases := []struct {
		format, brand, path string
		want                domain.ContainerID
	}{
		{"mov,mp4,m4a,3gp,3g2,mj2", "isom", "a.mp4", MP4},
		{"mov,mp4,m4a,3gp,3g2,mj2", "qt  ", "a.mov", MOV},
		{"mov,mp4,m4a,3gp,3g2,mj2", "qt  ", "a.mp4", MOV},
		{"mov,mp4,m4a,3gp,3g2,mj2", "3gp4", "a.3gp", ThreeGP},
		{"mov,mp4,m4a,3gp,3g2,mj2", "", "a.mov", MOV},
		{"mov,mp4,m4a,3gp,3g2,mj2", "", "upload", MP4},
		{"matroska,webm", "", "a.webm", WebM},
		{"matroska,webm", "", "a.mkv", Matroska},
		{"matroska,webm", "", "blob", Matroska},
		{"mpegts", "", "a.ts", MPEGTS},
		{"ogg", "", "a.opus", Ogg},
		{"mp3", "", "a.mp3", MP3Audio},
	}
	for _, tc := range cases {
		got, ok := Identify(tc.format, tc.brand, tc.path)
		require.True(t, ok, tc.format)
		assert.Equal(t, tc.want, got, "%s %q %s", tc.format, tc.brand, tc.path)
	}

	_, ok := Identify("avi", "", "a.avi")
	assert.False(t, ok)
}

func TestExtensionsAreCanonicalFirst(t *testing.T) {
	for _, c := range Containers() {
		require.NotEmpty(t, c.Extensions, c.ID)
		id, ok := ByExtension(c.Extension())
		require.True(t, ok)
		assert.Equal(t, c.ID, id)
	}
}

func TestOutputTag(t *testing.T) {
	mp4, _ := LookupContainer(MP4)
	mov, _ := LookupContainer(MOV)
	mkv, _ := LookupContainer(Matroska)

	tag, ok := mp4.OutputTag("hevc", "hev1")
	assert.True(t, ok)
	assert.Equal(t, "hev1", tag)

	tag, ok = mov.OutputTag("hevc", "hev1")
	assert.False(t, ok)
	assert.Equal(t, "hvc1", tag)

	tag, ok = mp4.OutputTag("hevc", "")
	assert.True(t, ok)
	assert.Equal(t, "hvc1", tag)

	tag, ok = mkv.OutputTag("hevc", "hev1")
	assert.True(t, ok)
	assert.Empty(t, tag)
}

func TestDefaultCodecsAreEncodable(t *testing.T) {
	for _, c := range Containers() {
		for _, name := range []string{c.DefaultVideo, c.DefaultAudio} {
			if name == "" {
				continue
			}
			info, ok := Lookup(name)
			require.True(t, ok, "%s default %s", c.ID, name)
			assert.True(t, c.SupportsCodec(info.Kind, name), "%s default %s", c.ID, name)
		}
	}
}

func TestEncodersSupportStandardFormats(t *testing.T) {
	for name, info := range codecs {
		if info.Kind != domain.KindVideo {
			continue
		}
		assert.True(t, info.SupportsPixelFormat("yuv420p"), name)
		for _, pix := range info.PixelFormats {
			assert.True(t, LookupPixelFormat(pix).Standard, "%s encodes %s", name, pix)
		}
	}
}

func TestSnapSampleRate(t *testing.T) {
	opus, _ := Lookup("opus")
	assert.Equal(t, 48000, opus.SnapSampleRate(44100))
	assert.Equal(t, 24000, opus.SnapSampleRate(22050))
	assert.Equal(t, 8000, opus.SnapSampleRate(8000))
	assert.Equal(t, 48000, opus.SnapSampleRate(96000))

	flac, _ := Lookup("flac")
	assert.Equal(t, 44100, flac.SnapSampleRate(44100))
}

func TestPixelFormats(t *testing.T) {
	pf := LookupPixelFormat("yuv420p10le")
	assert.Equal(t, domain.Chroma420, pf.Chroma)
	assert.Equal(t, 10, pf.BitDepth)
	assert.True(t, pf.Standard)

	assert.False(t, LookupPixelFormat("yuvj420p").Standard)
	assert.False(t, LookupPixelFormat("x2rgb10le").Standard)

	assert.Equal(t, "yuv420p", StandardPixelFormat(domain.Chroma420, 8))
	assert.Equal(t, "yuv422p10le", StandardPixelFormat(domain.Chroma422, 10))
	assert.Equal(t, "gray12le", StandardPixelFormat(domain.Chroma400, 16))
}

func TestIsHDR(t *testing.T) {
	assert.True(t, IsHDR(domain.StreamDescriptor{ColorTransfer: "smpte2084"}))
	assert.True(t, IsHDR(domain.StreamDescriptor{ColorTransfer: "arib-std-b67"}))
	assert.True(t, IsHDR(domain.StreamDescriptor{ColorPrimaries: "bt2020"}))
	assert.False(t, IsHDR(domain.StreamDescriptor{ColorTransfer: "bt709", ColorPrimaries: "bt709"}))
}
