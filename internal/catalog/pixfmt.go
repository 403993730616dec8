package catalog

import (
	"strings"

	"github.com/eleven-am/conformer/internal/domain"
)

type PixelFormat struct {
	Name     string
	Chroma   domain.Chroma
	BitDepth int
	// Standard formats are safe to copy under any chroma or depth ceiling they satisfy.
	Standard bool
}

var pixelFormats = map[string]PixelFormat{}

func init() {
	add := func(name string, chroma domain.Chroma, depth int, standard bool) {
		pixelFormats[name] = PixelFormat{Name: name, Chroma: chroma, BitDepth: depth, Standard: standard}
	}

	add("gray", domain.Chroma400, 8, true)
	add("gray10le", domain.Chroma400, 10, true)
	add("gray12le", domain.Chroma400, 12, true)
	add("yuv420p", domain.Chroma420, 8, true)
	add("yuv420p10le", domain.Chroma420, 10, true)
	add("yuv420p12le", domain.Chroma420, 12, true)
	add("yuv422p", domain.Chroma422, 8, true)
	add("yuv422p10le", domain.Chroma422, 10, true)
	add("yuv422p12le", domain.Chroma422, 12, true)
	add("yuv444p", domain.Chroma444, 8, true)
	add("yuv444p10le", domain.Chroma444, 10, true)
	add("yuv444p12le", domain.Chroma444, 12, true)

	add("yuvj420p", domain.Chroma420, 8, false)
	add("yuvj422p", domain.Chroma422, 8, false)
	add("yuvj444p", domain.Chroma444, 8, false)
	add("nv12", domain.Chroma420, 8, false)
	add("nv21", domain.Chroma420, 8, false)
	add("p010le", domain.Chroma420, 10, false)
	add("yuv420p16le", domain.Chroma420, 16, false)
	add("yuv422p16le", domain.Chroma422, 16, false)
	add("yuv444p16le", domain.Chroma444, 16, false)
	add("yuva420p", domain.Chroma420, 8, false)
	add("yuv411p", domain.Chroma420, 8, false)
	add("yuv410p", domain.Chroma420, 8, false)
	add("rgb24", domain.Chroma444, 8, false)
	add("bgr24", domain.Chroma444, 8, false)
	add("rgba", domain.Chroma444, 8, false)
	add("bgra", domain.Chroma444, 8, false)
	add("gbrp", domain.Chroma444, 8, false)
	add("gbrp10le", domain.Chroma444, 10, false)
	add("gbrp12le", domain.Chroma444, 12, false)
}

// LookupPixelFormat describes pix. Unknown formats are reported as non-standard
// 4:4:4 at the depth implied by their name.
func LookupPixelFormat(pix string) PixelFormat {
	if pf, ok := pixelFormats[pix]; ok {
		return pf
	}
	depth := 8
	switch {
	case strings.Contains(pix, "16"):
		depth = 16
	case strings.Contains(pix, "12"):
		depth = 12
	case strings.Contains(pix, "10"):
		depth = 10
	}
	return PixelFormat{Name: pix, Chroma: domain.Chroma444, BitDepth: depth}
}

// StandardPixelFormat names the planar format with the given layout. Depths
// snap to 8, 10 or 12.
func StandardPixelFormat(chroma domain.Chroma, depth int) string {
	var base string
	switch chroma {
	case domain.Chroma400:
		base = "gray"
	case domain.Chroma422:
		base = "yuv422p"
	case domain.Chroma444:
		base = "yuv444p"
	default:
		base = "yuv420p"
	}
	switch {
	case depth > 10:
		return base + "12le"
	case depth > 8:
		return base + "10le"
	}
	return base
}

var hdrTransfers = map[string]bool{
	"smpte2084":    true,
	"arib-std-b67": true,
}

// IsHDR reports whether a video stream carries a PQ or HLG transfer or BT.2020 primaries.
func IsHDR(s domain.StreamDescriptor) bool {
	return hdrTransfers[s.ColorTransfer] || strings.HasPrefix(s.ColorPrimaries, "bt2020")
}
