package conformer

import (
	"os"
	"strings"

	"github.com/eleven-am/conformer/internal/config"
	"github.com/eleven-am/conformer/internal/domain"
)

// Options configures the Engine's external tools.
type Options struct {
	// FFmpegPath is the encoder binary.
	// Default: "ffmpeg" from PATH.
	FFmpegPath string

	// FFprobePath is the probing binary.
	// Default: "ffprobe" from PATH.
	FFprobePath string

	// TempDir holds per-request work directories.
	// Default: os.TempDir().
	TempDir string

	// HWAccel selects a hardware encoder for H.264 and HEVC re-encodes:
	// "none", "auto", "cuda", "qsv", "videotoolbox" or "vaapi".
	// Default: "none".
	HWAccel string
}

// OptionsFromEnv reads Options from the CONFORMER_* environment variables.
func OptionsFromEnv() Options {
	t := config.LoadTools()
	return Options{
		FFmpegPath:  t.FFmpeg,
		FFprobePath: t.FFprobe,
		TempDir:     t.TempDir,
		HWAccel:     t.HWAccel,
	}
}

func (o *Options) setDefaults() {
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.FFprobePath == "" {
		o.FFprobePath = "ffprobe"
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	o.HWAccel = strings.ToLower(strings.TrimSpace(o.HWAccel))
	if o.HWAccel == "" {
		o.HWAccel = string(domain.AccelNone)
	}
}

func (o *Options) validate() {
	switch domain.Accelerator(o.HWAccel) {
	case domain.AccelNone, "auto", domain.AccelCUDA, domain.AccelQSV, domain.AccelVideoToolbox, domain.AccelVAAPI:
	default:
		panic("conformer: unknown HWAccel " + o.HWAccel)
	}
}
