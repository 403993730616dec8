package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvFFmpegBin  = "CONFORMER_FFMPEG_BIN"
	EnvFFprobeBin = "CONFORMER_FFPROBE_BIN"
	EnvTempDir    = "CONFORMER_TMPDIR"
	EnvHWAccel    = "CONFORMER_HWACCEL"
)

// Tools locates the external binaries and scratch space.
type Tools struct {
	FFmpeg  string
	FFprobe string
	TempDir string
	HWAccel string
}

// LoadTools reads tool settings from the environment. When only the ffmpeg
// path is given, ffprobe is expected next to it.
func LoadTools() Tools {
	t := Tools{
		FFmpeg:  strings.TrimSpace(os.Getenv(EnvFFmpegBin)),
		FFprobe: strings.TrimSpace(os.Getenv(EnvFFprobeBin)),
		TempDir: strings.TrimSpace(os.Getenv(EnvTempDir)),
		HWAccel: strings.TrimSpace(os.Getenv(EnvHWAccel)),
	}
	if t.FFprobe == "" && t.FFmpeg != "" && strings.ContainsRune(t.FFmpeg, filepath.Separator) {
		t.FFprobe = filepath.Join(filepath.Dir(t.FFmpeg), "ffprobe")
	}
	return t
}
