package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/eleven-am/conformer/internal/catalog"
	"github.com/eleven-am/conformer/internal/domain"
)

// ArtifactMuxer holds single-stream outputs produced during arbitration. It
// carries every codec the catalog knows, so copy and re-encode sizes are
// measured under the same container overhead.
const (
	ArtifactMuxer     = "matroska"
	ArtifactExtension = ".mkv"
)

const toneMapFilter = "zscale=t=linear:npl=100,format=gbrpf32le,zscale=p=bt709,tonemap=tonemap=hable:desat=0,zscale=t=bt709:m=bt709:r=tv"

type CommandBuilder struct {
	HWAccel *domain.HWAccelConfig
}

func NewCommandBuilder(hwAccel *domain.HWAccelConfig) *CommandBuilder {
	return &CommandBuilder{HWAccel: hwAccel}
}

func preamble() []string {
	return []string{
		"-hide_banner", "-nostdin", "-nostats", "-loglevel", "error",
		"-progress", "pipe:1", "-y",
	}
}

// Plan builds the final pass for a finalized plan. Decisions that carry an
// arbitration artifact are read from that file instead of the source.
func (b *CommandBuilder) Plan(input, output string, plan *domain.EncodingPlan) []string {
	args := preamble()

	for _, d := range plan.Decisions {
		if d.Artifact == "" && b.usesDevice(d) {
			args = append(args, b.HWAccel.DeviceFlags...)
			break
		}
	}

	args = append(args, "-i", input)
	inputs := make(map[int]int)
	for i, d := range plan.Decisions {
		if d.Artifact != "" {
			inputs[i] = len(inputs) + 1
			args = append(args, "-i", d.Artifact)
		}
	}

	for i, d := range plan.Decisions {
		n := d.OutputIndex
		if in, ok := inputs[i]; ok {
			args = append(args, "-map", fmt.Sprintf("%d:0", in), streamOpt("-c", n), "copy")
		} else {
			args = append(args, "-map", fmt.Sprintf("0:%d", d.Source.Index))
			args = append(args, b.streamArgs(d, n)...)
		}
		if d.Tag != "" {
			args = append(args, streamOpt("-tag", n), d.Tag)
		}
	}

	if plan.StripMetadata {
		args = append(args, "-map_metadata", "-1")
	} else {
		args = append(args, "-map_metadata", "0")
	}
	// Artifacts were written without tags or dispositions; take both from the source stream.
	for i, d := range plan.Decisions {
		if _, ok := inputs[i]; !ok {
			continue
		}
		n := d.OutputIndex
		if !plan.StripMetadata {
			args = append(args, streamOpt("-map_metadata:s", n), fmt.Sprintf("0:s:%d", d.Source.Index))
		}
		disposition := "0"
		if d.Source.Default {
			disposition = "default"
		}
		args = append(args, streamOpt("-disposition", n), disposition)
	}
	for _, d := range plan.Decisions {
		if d.Source.Language != "" {
			args = append(args, streamOpt("-metadata:s", d.OutputIndex), "language="+d.Source.Language)
		}
	}

	if plan.FastStart {
		args = append(args, "-movflags", "+faststart")
	}

	return append(args, "-f", plan.Muxer, output)
}

// Candidate encodes the single stream of d the way the final pass would.
func (b *CommandBuilder) Candidate(input, output string, d domain.StreamDecision) []string {
	args := preamble()
	if b.usesDevice(d) {
		args = append(args, b.HWAccel.DeviceFlags...)
	}
	args = append(args, "-i", input, "-map", fmt.Sprintf("0:%d", d.Source.Index))
	args = append(args, b.streamArgs(d, 0)...)
	return append(args, "-map_metadata", "-1", "-f", ArtifactMuxer, output)
}

// Extract copies the single stream of d unchanged.
func (b *CommandBuilder) Extract(input, output string, d domain.StreamDecision) []string {
	args := preamble()
	args = append(args,
		"-i", input,
		"-map", fmt.Sprintf("0:%d", d.Source.Index),
		"-c:0", "copy",
		"-map_metadata", "-1",
		"-f", ArtifactMuxer, output,
	)
	return args
}

func (b *CommandBuilder) streamArgs(d domain.StreamDecision, n int) []string {
	if d.Action != domain.ActionReencode || d.Params == nil {
		return []string{streamOpt("-c", n), "copy"}
	}

	switch d.Source.Kind {
	case domain.KindVideo:
		return b.videoArgs(d, n)
	case domain.KindAudio:
		return audioArgs(d, n)
	}
	return []string{streamOpt("-c", n), "copy"}
}

func (b *CommandBuilder) videoArgs(d domain.StreamDecision, n int) []string {
	p := d.Params.Video
	encoder, encodeArgs := d.Params.Encoder, encoderArgs(d.Codec.Name)
	hw, useHW := b.hwEncoder(d)
	if useHW {
		encoder, encodeArgs = hw.Name, hw.Args
	}

	var filters []string
	if p.Deinterlace {
		filters = append(filters, "yadif")
	}
	if p.ToneMap {
		filters = append(filters, toneMapFilter)
	}
	if p.Width != d.Source.Width || p.Height != d.Source.Height || p.SquarePixels {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", p.Width, p.Height))
	}
	if p.SquarePixels {
		filters = append(filters, "setsar=1")
	}
	if p.PixelFormat != "" {
		filters = append(filters, "format="+p.PixelFormat)
	}
	if p.FrameRate.Valid() {
		filters = append(filters, "fps="+p.FrameRate.String())
	}
	if useHW && b.HWAccel.UploadFilter != "" {
		filters = append(filters, b.HWAccel.UploadFilter)
	}

	args := []string{streamOpt("-c", n), encoder}
	args = append(args, specify(encodeArgs, n)...)
	if len(filters) > 0 {
		args = append(args, streamOpt("-filter", n), strings.Join(filters, ","))
	}
	if p.ToneMap {
		args = append(args,
			streamOpt("-color_primaries", n), "bt709",
			streamOpt("-color_trc", n), "bt709",
			streamOpt("-colorspace", n), "bt709",
		)
	}
	return args
}

func audioArgs(d domain.StreamDecision, n int) []string {
	p := d.Params.Audio
	args := []string{streamOpt("-c", n), d.Params.Encoder}
	args = append(args, specify(encoderArgs(d.Codec.Name), n)...)
	if p.Channels > 0 {
		args = append(args, streamOpt("-ac", n), fmt.Sprint(p.Channels))
	}
	if p.SampleRate > 0 {
		args = append(args, streamOpt("-ar", n), fmt.Sprint(p.SampleRate))
	}
	return args
}

// hwEncoder reports the hardware encoder for d. Hardware encoders are only
// fed 8-bit 4:2:0 frames.
func (b *CommandBuilder) hwEncoder(d domain.StreamDecision) (domain.HWEncoder, bool) {
	if d.Action != domain.ActionReencode || d.Params == nil || d.Source.Kind != domain.KindVideo {
		return domain.HWEncoder{}, false
	}
	if pix := d.Params.Video.PixelFormat; pix != "" && pix != "yuv420p" {
		return domain.HWEncoder{}, false
	}
	return b.HWAccel.Encoder(d.Codec.Name)
}

func (b *CommandBuilder) usesDevice(d domain.StreamDecision) bool {
	_, ok := b.hwEncoder(d)
	return ok && len(b.HWAccel.DeviceFlags) > 0
}

func encoderArgs(codec string) []string {
	info, ok := catalog.Lookup(codec)
	if !ok {
		return nil
	}
	return info.EncodeArgs
}

func streamOpt(flag string, n int) string {
	return fmt.Sprintf("%s:%d", flag, n)
}

// specify scopes flag/value pairs to output stream n, replacing any
// media-type specifier the flag already carries.
func specify(args []string, n int) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if i%2 == 0 && strings.HasPrefix(a, "-") {
			if c := strings.IndexByte(a, ':'); c > 0 {
				a = a[:c]
			}
			a = streamOpt(a, n)
		}
		out[i] = a
	}
	return out
}
