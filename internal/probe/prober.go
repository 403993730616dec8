package probe

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/conformer/internal/domain"
	"github.com/eleven-am/conformer/internal/log"
	"github.com/eleven-am/conformer/internal/metrics"
)

type Prober struct {
	bin string
}

func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{bin: bin}
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  *ffprobeFormat  `json:"format"`
}

type ffprobeStream struct {
	Index             int               `json:"index"`
	CodecName         string            `json:"codec_name"`
	CodecType         string            `json:"codec_type"`
	CodecTagString    string            `json:"codec_tag_string"`
	Profile           string            `json:"profile"`
	Width             int               `json:"width"`
	Height            int               `json:"height"`
	SampleAspectRatio string            `json:"sample_aspect_ratio"`
	PixFmt            string            `json:"pix_fmt"`
	ColorTransfer     string            `json:"color_transfer"`
	ColorPrimaries    string            `json:"color_primaries"`
	ColorSpace        string            `json:"color_space"`
	FieldOrder        string            `json:"field_order"`
	RFrameRate        string            `json:"r_frame_rate"`
	AvgFrameRate      string            `json:"avg_frame_rate"`
	Channels          int               `json:"channels"`
	SampleRate        string            `json:"sample_rate"`
	Duration          string            `json:"duration"`
	BitRate           string            `json:"bit_rate"`
	NbFrames          string            `json:"nb_frames"`
	Tags              map[string]string `json:"tags"`
	Disposition       ffprobeDisp       `json:"disposition"`
}

type ffprobeFormat struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	Tags       map[string]string `json:"tags"`
}

type ffprobeDisp struct {
	Default     int `json:"default"`
	AttachedPic int `json:"attached_pic"`
}

var stillCodecs = map[string]bool{
	"mjpeg": true,
	"png":   true,
	"bmp":   true,
	"gif":   true,
	"webp":  true,
	"tiff":  true,
}

// Probe runs the probing tool once and returns the typed inventory of path.
func (p *Prober) Probe(ctx context.Context, path string) (*domain.Inventory, error) {
	logger := log.For(ctx, "probe")
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	logger.Debug().Str(log.FieldPath, path).Str("command", cmd.String()).Msg("probing source")

	output, err := cmd.Output()
	if err != nil {
		metrics.ToolRuns.WithLabelValues("ffprobe", "error").Inc()
		return nil, toolError(ctx, err)
	}
	metrics.ToolRuns.WithLabelValues("ffprobe", "ok").Inc()

	inv, err := parse(output)
	if err != nil {
		return nil, err
	}
	inv.Path = path
	return inv, nil
}

func toolError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return domain.Cancelled(ctx.Err())
	}
	var diag string
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		diag = strings.TrimSpace(string(exitErr.Stderr))
	}
	return domain.ToolFailure(domain.ErrProbe, fmt.Sprintf("probe failed: %v", err), diag, err)
}

func parse(output []byte) (*domain.Inventory, error) {
	var ff ffprobeOutput
	if err := json.Unmarshal(output, &ff); err != nil {
		return nil, domain.ToolFailure(domain.ErrProbe, fmt.Sprintf("probe failed: unreadable output: %v", err), string(output), err)
	}
	if ff.Format == nil || ff.Format.FormatName == "" {
		return nil, domain.Fail(domain.ErrProbe, "probe failed: missing container format")
	}

	inv := &domain.Inventory{
		Format:   ff.Format.FormatName,
		Brand:    strings.TrimSpace(ff.Format.Tags["major_brand"]),
		Duration: parseSeconds(ff.Format.Duration),
	}
	inv.Size, _ = strconv.ParseInt(ff.Format.Size, 10, 64)

	for _, s := range ff.Streams {
		desc, err := describe(s)
		if err != nil {
			return nil, err
		}
		inv.Streams = append(inv.Streams, desc)
	}
	return inv, nil
}

func describe(s ffprobeStream) (domain.StreamDescriptor, error) {
	d := domain.StreamDescriptor{
		Index:    s.Index,
		Kind:     kindOf(s),
		Codec:    s.CodecName,
		Tag:      tagOf(s.CodecTagString),
		Profile:  s.Profile,
		Language: s.Tags["language"],
		Default:  s.Disposition.Default == 1,
		Duration: parseSeconds(s.Duration),
	}
	if d.Duration == 0 {
		d.Duration = parseClock(tagValue(s.Tags, "DURATION"))
	}

	switch d.Kind {
	case domain.KindVideo, domain.KindImage:
		if s.CodecName == "" {
			return d, domain.StreamFailure(domain.ErrProbe, s.Index, "probe failed: stream %d has no codec", s.Index)
		}
		if s.Width <= 0 || s.Height <= 0 {
			return d, domain.StreamFailure(domain.ErrProbe, s.Index, "probe failed: stream %d has no dimensions", s.Index)
		}
		d.Width = s.Width
		d.Height = s.Height
		d.SampleAspect, _ = domain.ParseRational(s.SampleAspectRatio)
		d.PixelFormat = s.PixFmt
		d.ColorTransfer = s.ColorTransfer
		d.ColorPrimaries = s.ColorPrimaries
		d.ColorSpace = s.ColorSpace
		d.FieldOrder = s.FieldOrder
		d.FrameRate = frameRate(s)
	case domain.KindAudio:
		if s.CodecName == "" {
			return d, domain.StreamFailure(domain.ErrProbe, s.Index, "probe failed: stream %d has no codec", s.Index)
		}
		rate, err := strconv.Atoi(s.SampleRate)
		if err != nil || rate <= 0 || s.Channels <= 0 {
			return d, domain.StreamFailure(domain.ErrProbe, s.Index, "probe failed: stream %d has no sample layout", s.Index)
		}
		d.SampleRate = rate
		d.Channels = s.Channels
	}

	d.Size = streamSize(s, d.Duration)
	return d, nil
}

func kindOf(s ffprobeStream) domain.StreamKind {
	switch s.CodecType {
	case "video":
		if s.Disposition.AttachedPic == 1 {
			return domain.KindImage
		}
		if stillCodecs[s.CodecName] && s.NbFrames == "1" {
			return domain.KindImage
		}
		return domain.KindVideo
	case "audio":
		return domain.KindAudio
	case "subtitle":
		return domain.KindSubtitle
	case "attachment":
		return domain.KindAttachment
	}
	return domain.KindData
}

// tagOf drops numeric placeholders such as "[0][0][0][0]" that containers without fourccs report.
func tagOf(s string) string {
	if s == "" || strings.HasPrefix(s, "[") {
		return ""
	}
	return s
}

func frameRate(s ffprobeStream) domain.Rational {
	if r, err := domain.ParseRational(s.RFrameRate); err == nil && r.Valid() {
		return r
	}
	r, _ := domain.ParseRational(s.AvgFrameRate)
	return r
}

func streamSize(s ffprobeStream, dur time.Duration) int64 {
	if v := tagValue(s.Tags, "NUMBER_OF_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	bps, err := strconv.ParseInt(s.BitRate, 10, 64)
	if err != nil || dur <= 0 {
		return 0
	}
	return int64(float64(bps) * dur.Seconds() / 8)
}

// tagValue finds key, also accepting language-suffixed variants like "DURATION-eng".
func tagValue(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	for k, v := range tags {
		if strings.HasPrefix(k, key+"-") {
			return v
		}
	}
	return ""
}

func parseSeconds(s string) time.Duration {
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return time.Duration(math.Round(v * float64(time.Second)))
}

// parseClock reads "HH:MM:SS.fraction" as written by Matroska muxers.
func parseClock(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec := parseSeconds(parts[2])
	if err1 != nil || err2 != nil {
		return 0
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + sec
}

// MeasureDuration walks every packet of one stream and returns the span
// between the earliest timestamp and the end of the last packet.
func (p *Prober) MeasureDuration(ctx context.Context, path string, index int) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-select_streams", strconv.Itoa(index),
		"-show_entries", "packet=pts_time,duration_time",
		"-of", "csv=p=0",
		path,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		metrics.ToolRuns.WithLabelValues("ffprobe", "error").Inc()
		return 0, toolError(ctx, err)
	}

	first, end := math.Inf(1), math.Inf(-1)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), ",")
		pts, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		var dur float64
		if len(parts) > 1 {
			dur, _ = strconv.ParseFloat(parts[1], 64)
		}
		first = math.Min(first, pts)
		end = math.Max(end, pts+dur)
	}

	if err := cmd.Wait(); err != nil {
		metrics.ToolRuns.WithLabelValues("ffprobe", "error").Inc()
		if ctx.Err() != nil {
			return 0, domain.Cancelled(ctx.Err())
		}
		return 0, domain.ToolFailure(domain.ErrProbe, fmt.Sprintf("probe failed: %v", err), strings.TrimSpace(stderr.String()), err)
	}
	metrics.ToolRuns.WithLabelValues("ffprobe", "ok").Inc()

	if math.IsInf(first, 1) || end < first {
		return 0, nil
	}
	return time.Duration(math.Round((end - first) * float64(time.Second))), nil
}
