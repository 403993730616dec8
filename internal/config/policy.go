// Package config loads processing policies from YAML and tool settings from the environment.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eleven-am/conformer/internal/domain"
)

// PolicyFile is the on-disk form of a domain.Policy.
type PolicyFile struct {
	Source             SourceSection `yaml:"source"`
	Result             ResultSection `yaml:"result"`
	Video              StreamSection `yaml:"video"`
	Audio              StreamSection `yaml:"audio"`
	ValidateAllStreams bool          `yaml:"validate_all_streams"`

	Resize        BoundsSection    `yaml:"resize"`
	FrameRate     FrameRateSection `yaml:"frame_rate"`
	MaxChroma     string           `yaml:"max_chroma"`
	MaxBitDepth   int              `yaml:"max_bit_depth"`
	MaxChannels   int              `yaml:"max_channels"`
	MaxSampleRate int              `yaml:"max_sample_rate"`
	HDR           string           `yaml:"hdr"`
	Metadata      string           `yaml:"metadata"`

	FastStart         bool `yaml:"fast_start"`
	ForceProgressive  bool `yaml:"force_progressive"`
	ForceSquarePixels bool `yaml:"force_square_pixels"`
	KeepUnrecognized  bool `yaml:"keep_unrecognized"`
	RemoveAudio       bool `yaml:"remove_audio"`
	FailOnNoChange    bool `yaml:"fail_on_no_change"`
}

type SourceSection struct {
	Extensions []string `yaml:"extensions"`
	Containers []string `yaml:"containers"`
}

type ResultSection struct {
	Containers []string `yaml:"containers"`
}

type StreamSection struct {
	Source   []string     `yaml:"source"`
	Result   []string     `yaml:"result"`
	Mode     string       `yaml:"mode"`
	Validate RulesSection `yaml:"validate"`
}

type RulesSection struct {
	MinStreams int `yaml:"min_streams"`
	MaxStreams int `yaml:"max_streams"`
	MinWidth   int `yaml:"min_width"`
	MaxWidth   int `yaml:"max_width"`
	MinHeight  int `yaml:"min_height"`
	MaxHeight  int `yaml:"max_height"`
	MinPixels  int `yaml:"min_pixels"`
	MaxPixels  int `yaml:"max_pixels"`

	MinDuration         string `yaml:"min_duration"`
	MaxDuration         string `yaml:"max_duration"`
	MinMeasuredDuration string `yaml:"min_measured_duration"`
	MaxMeasuredDuration string `yaml:"max_measured_duration"`
}

type BoundsSection struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type FrameRateSection struct {
	Mode string `yaml:"mode"`
	Max  string `yaml:"max"`
}

// LoadPolicy reads a policy file. Unknown keys are rejected.
func LoadPolicy(path string) (domain.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (domain.Policy, error) {
	var f PolicyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return domain.Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	return f.Policy()
}

// Policy converts the file into a domain.Policy.
func (f PolicyFile) Policy() (domain.Policy, error) {
	p := domain.Policy{
		SourceExtensions:   f.Source.Extensions,
		SourceContainers:   containerIDs(f.Source.Containers),
		ResultContainers:   containerIDs(f.Result.Containers),
		ValidateAllStreams: f.ValidateAllStreams,
		Resize:             domain.Bounds{Width: f.Resize.Width, Height: f.Resize.Height},
		MaxBitDepth:        f.MaxBitDepth,
		MaxChannels:        f.MaxChannels,
		MaxSampleRate:      f.MaxSampleRate,
		FastStart:          f.FastStart,
		ForceProgressive:   f.ForceProgressive,
		ForceSquarePixels:  f.ForceSquarePixels,
		KeepUnrecognized:   f.KeepUnrecognized,
		RemoveAudio:        f.RemoveAudio,
		FailOnNoChange:     f.FailOnNoChange,
	}

	var err error
	if p.Video, p.ValidateVideo, err = f.Video.convert(domain.KindVideo); err != nil {
		return p, err
	}
	if p.Audio, p.ValidateAudio, err = f.Audio.convert(domain.KindAudio); err != nil {
		return p, err
	}
	if p.FrameRate, err = f.FrameRate.convert(); err != nil {
		return p, err
	}
	if p.MaxChroma, err = parseChroma(f.MaxChroma); err != nil {
		return p, err
	}
	if p.HDR, err = parseHDR(f.HDR); err != nil {
		return p, err
	}
	if p.Metadata, err = parseMetadata(f.Metadata); err != nil {
		return p, err
	}
	return p, nil
}

func (s StreamSection) convert(kind domain.StreamKind) (domain.StreamPolicy, domain.SourceRules, error) {
	var sp domain.StreamPolicy
	var err error
	if sp.Source, err = parseCodecs(kind, s.Source); err != nil {
		return sp, domain.SourceRules{}, err
	}
	if sp.Result, err = parseCodecs(kind, s.Result); err != nil {
		return sp, domain.SourceRules{}, err
	}
	if sp.Mode, err = parseMode(s.Mode); err != nil {
		return sp, domain.SourceRules{}, fmt.Errorf("%s: %w", kind, err)
	}
	rules, err := s.Validate.convert()
	if err != nil {
		return sp, rules, fmt.Errorf("%s validate: %w", kind, err)
	}
	return sp, rules, nil
}

func (r RulesSection) convert() (domain.SourceRules, error) {
	rules := domain.SourceRules{
		MinStreams: r.MinStreams,
		MaxStreams: r.MaxStreams,
		MinWidth:   r.MinWidth,
		MaxWidth:   r.MaxWidth,
		MinHeight:  r.MinHeight,
		MaxHeight:  r.MaxHeight,
		MinPixels:  r.MinPixels,
		MaxPixels:  r.MaxPixels,
	}
	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{r.MinDuration, &rules.MinDuration},
		{r.MaxDuration, &rules.MaxDuration},
		{r.MinMeasuredDuration, &rules.MinMeasuredDuration},
		{r.MaxMeasuredDuration, &rules.MaxMeasuredDuration},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return rules, fmt.Errorf("invalid duration %q: %w", d.raw, err)
		}
		*d.dst = v
	}
	return rules, nil
}

func (s FrameRateSection) convert() (domain.FrameRateLimit, error) {
	var limit domain.FrameRateLimit
	switch strings.ToLower(s.Mode) {
	case "", "unlimited":
		limit.Mode = domain.FrameRateUnlimited
	case "exact":
		limit.Mode = domain.FrameRateExact
	case "divide":
		limit.Mode = domain.FrameRateDivide
	default:
		return limit, fmt.Errorf("unknown frame rate mode %q", s.Mode)
	}
	if s.Max == "" {
		if limit.Mode != domain.FrameRateUnlimited {
			return limit, fmt.Errorf("frame rate mode %q needs a max", s.Mode)
		}
		return limit, nil
	}
	r, err := domain.ParseRational(s.Max)
	if err != nil || !r.Valid() {
		return limit, fmt.Errorf("invalid frame rate %q", s.Max)
	}
	limit.Max = r
	return limit, nil
}

func parseCodecs(kind domain.StreamKind, names []string) ([]domain.Codec, error) {
	var out []domain.Codec
	for _, n := range names {
		c, err := domain.ParseCodec(kind, n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func containerIDs(names []string) []domain.ContainerID {
	var out []domain.ContainerID
	for _, n := range names {
		out = append(out, domain.ContainerID(strings.ToLower(strings.TrimSpace(n))))
	}
	return out
}

func parseMode(s string) (domain.ReencodeMode, error) {
	switch strings.ToLower(s) {
	case "", "copy":
		return domain.ReencodeCopyOnly, nil
	case "always":
		return domain.ReencodeAlways, nil
	case "smallest":
		return domain.ReencodePickSmallest, nil
	}
	return 0, fmt.Errorf("unknown re-encode mode %q", s)
}

func parseMetadata(s string) (domain.MetadataMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return domain.MetadataNone, nil
	case "preferred":
		return domain.MetadataPreferred, nil
	case "required":
		return domain.MetadataRequired, nil
	case "thumbnail":
		return domain.MetadataThumbnailOnly, nil
	}
	return 0, fmt.Errorf("unknown metadata mode %q", s)
}

func parseHDR(s string) (domain.HDRMode, error) {
	switch strings.ToLower(s) {
	case "", "keep":
		return domain.HDRKeep, nil
	case "remap":
		return domain.HDRRemapOnReencode, nil
	case "sdr":
		return domain.HDRForceSDR, nil
	}
	return 0, fmt.Errorf("unknown hdr mode %q", s)
}

func parseChroma(s string) (domain.Chroma, error) {
	switch strings.TrimPrefix(strings.ToLower(s), "yuv") {
	case "", "any":
		return domain.ChromaAny, nil
	case "400":
		return domain.Chroma400, nil
	case "420":
		return domain.Chroma420, nil
	case "422":
		return domain.Chroma422, nil
	case "444":
		return domain.Chroma444, nil
	}
	return 0, fmt.Errorf("unknown chroma ceiling %q", s)
}
