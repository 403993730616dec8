package conformer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/conformer/internal/store"
)

const probeOutput = `#!/bin/sh
cat <<'EOF'
{"streams":[
 {"index":0,"codec_name":"h264","codec_type":"video","codec_tag_string":"avc1","profile":"High","width":128,"height":72,"sample_aspect_ratio":"1:1","pix_fmt":"yuv420p","field_order":"progressive","r_frame_rate":"25/1","avg_frame_rate":"25/1","duration":"2.000000","disposition":{"default":1}},
 {"index":1,"codec_name":"aac","codec_type":"audio","codec_tag_string":"mp4a","profile":"LC","channels":2,"sample_rate":"44100","duration":"2.000000","tags":{"language":"eng"},"disposition":{"default":1}}
],"format":{"format_name":"mov,mp4,m4a,3gp,3g2,mj2","duration":"2.000000","size":"4096","tags":{"major_brand":"isom"}}}
EOF
`

// encoderScript writes the fake encoder's arguments to argsFile, reports
// progress and writes body to the output path, which is always the last argument.
func encoderScript(argsFile, body string) string {
	return fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$*" >> %q
for last; do :; done
%s
printf 'out_time_us=500000\nprogress=continue\nout_time_us=1000000\nprogress=continue\nprogress=end\n'
`, argsFile, body)
}

type harness struct {
	engine  *Engine
	input   string
	workDir string
	args    string
}

func newHarness(t *testing.T, encoderBody string) *harness {
	t.Helper()
	bin := t.TempDir()
	h := &harness{
		input:   filepath.Join(t.TempDir(), "input.mp4"),
		workDir: t.TempDir(),
		args:    filepath.Join(bin, "args.log"),
	}
	require.NoError(t, os.WriteFile(h.input, []byte("source bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "ffprobe"), []byte(probeOutput), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "ffmpeg"), []byte(encoderScript(h.args, encoderBody)), 0o755))

	h.engine = NewEngine(Options{
		FFmpegPath:  filepath.Join(bin, "ffmpeg"),
		FFprobePath: filepath.Join(bin, "ffprobe"),
		TempDir:     h.workDir,
	})
	return h
}

func (h *harness) invocations(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(h.args)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func (h *harness) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.workDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type recorder struct {
	values []float64
}

func (r *recorder) report(v float64) { r.values = append(r.values, v) }

func (r *recorder) assertComplete(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, r.values)
	for i := 1; i < len(r.values); i++ {
		assert.Greater(t, r.values[i], r.values[i-1], "progress went backwards: %v", r.values)
	}
	assert.Equal(t, 1.0, r.values[len(r.values)-1])
}

func basePolicy() Policy {
	return Policy{}.With(
		WithResultContainers(MP4),
		WithVideoResult(H264),
		WithAudioResult(AAC),
	)
}

func TestProcessPassesCompliantSourceThrough(t *testing.T) {
	h := newHarness(t, `printf encoded > "$last"`)
	rec := &recorder{}

	res, err := h.engine.Process(context.Background(), h.input, basePolicy().With(WithProgress(rec.report)))
	require.NoError(t, err)
	defer res.Close()

	assert.True(t, res.Passthrough)
	assert.Equal(t, h.input, res.Path)
	assert.Equal(t, MP4, res.Container)
	assert.Equal(t, ".mp4", res.Extension)
	assert.Empty(t, h.invocations(t), "a passthrough must not run the encoder")
	assert.Empty(t, h.leftovers(t))
	assert.Equal(t, []float64{1}, rec.values)

	require.NoError(t, res.Close())
	_, err = os.Stat(h.input)
	assert.NoError(t, err, "closing a passthrough result must keep the source")
}

func TestProcessDownmixReportsMonotonicProgress(t *testing.T) {
	h := newHarness(t, `printf encoded > "$last"`)
	rec := &recorder{}

	res, err := h.engine.Process(context.Background(), h.input, basePolicy().With(
		WithMaxChannels(1),
		WithProgress(rec.report),
	))
	require.NoError(t, err)

	assert.False(t, res.Passthrough)
	assert.Equal(t, ".mp4", filepath.Ext(res.Path))
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "encoded", string(data))

	rec.assertComplete(t)
	assert.InDelta(t, 0.2475, rec.values[0], 1e-9)

	calls := h.invocations(t)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "-map 0:0 -c:0 copy")
	assert.Contains(t, calls[0], "-map 0:1 -c:1 aac")
	assert.Contains(t, calls[0], "-ac:1 1")
	assert.Contains(t, calls[0], "-f mp4")

	require.NoError(t, res.Close())
	assert.Empty(t, h.leftovers(t))
}

func TestProcessFailOnNoChange(t *testing.T) {
	h := newHarness(t, `printf encoded > "$last"`)

	_, err := h.engine.Process(context.Background(), h.input, basePolicy().With(WithFailOnNoChange()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoChange))
	assert.Equal(t, "source already satisfies the policy", err.Error())
	assert.Empty(t, h.leftovers(t))
}

func TestProcessRejectsExtensionBeforeProbing(t *testing.T) {
	h := newHarness(t, `printf encoded > "$last"`)
	h.engine.prober = nil

	_, err := h.engine.Process(context.Background(), h.input, basePolicy().With(WithSourceExtensions(".mkv", "webm")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedExtension))
	assert.Equal(t, `unsupported file extension ".mp4"`, err.Error())
}

func TestProcessEncoderFailure(t *testing.T) {
	h := newHarness(t, `echo "Conversion failed!" >&2; exit 1`)

	_, err := h.engine.Process(context.Background(), h.input, basePolicy().With(WithMaxChannels(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncode))
	assert.Equal(t, "encoding failed: Conversion failed!", err.Error())

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Contains(t, f.Diagnostics, "Conversion failed!")
	assert.Empty(t, h.leftovers(t))
}

func TestProcessCancellation(t *testing.T) {
	h := newHarness(t, `sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := h.engine.Process(ctx, h.input, basePolicy().With(WithMaxChannels(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrEncode))
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Empty(t, h.leftovers(t))
}

func TestProcessPickSmallestKeepsSmallerEncode(t *testing.T) {
	h := newHarness(t, `case "$*" in
  *"-c:0 copy"*) head -c 100 /dev/zero > "$last" ;;
  *) head -c 10 /dev/zero > "$last" ;;
esac`)
	rec := &recorder{}

	res, err := h.engine.Process(context.Background(), h.input, basePolicy().With(
		WithVideoMode(PickSmallest),
		WithProgress(rec.report),
	))
	require.NoError(t, err)
	defer res.Close()

	require.Len(t, res.Plan.Decisions, 2)
	v := res.Plan.Decisions[0]
	assert.Equal(t, ActionReencode, v.Action)
	assert.NotEmpty(t, v.Artifact)
	rec.assertComplete(t)

	calls := h.invocations(t)
	require.Len(t, calls, 3, "extract, candidate and final pass")
	assert.Contains(t, calls[2], "-i "+v.Artifact)

	require.NoError(t, res.Close())
	assert.Empty(t, h.leftovers(t))
}

func TestProcessToStoresOutput(t *testing.T) {
	h := newHarness(t, `printf encoded > "$last"`)
	fs, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	rec := &recorder{}

	handle, err := h.engine.ProcessTo(context.Background(), h.input, basePolicy().With(
		WithMaxChannels(1),
		WithProgress(rec.report),
	), fs)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(handle, ".mp4"))

	path, err := fs.Path(handle)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "encoded", string(data))

	rec.assertComplete(t)
	assert.Empty(t, h.leftovers(t))
}

func TestProcessToPassthroughStoresSource(t *testing.T) {
	h := newHarness(t, `printf encoded > "$last"`)
	fs, err := store.NewFS(t.TempDir())
	require.NoError(t, err)

	handle, err := h.engine.ProcessTo(context.Background(), h.input, basePolicy(), fs)
	require.NoError(t, err)

	path, err := fs.Path(handle)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "source bytes", string(data))

	_, err = os.Stat(h.input)
	assert.NoError(t, err)
}

func TestPlanLeavesArbitrationPending(t *testing.T) {
	h := newHarness(t, `printf encoded > "$last"`)

	plan, err := h.engine.Plan(context.Background(), h.input, basePolicy().With(
		WithVideoMode(PickSmallest),
		WithAudioMode(PickSmallest),
	))
	require.NoError(t, err)
	assert.False(t, plan.Finalized())
	assert.Equal(t, []int{0, 1}, plan.Pending())
	assert.Empty(t, h.invocations(t))
}

func TestProbeReturnsInventory(t *testing.T) {
	h := newHarness(t, `printf encoded > "$last"`)

	inv, err := h.engine.Probe(context.Background(), h.input)
	require.NoError(t, err)
	require.Len(t, inv.Streams, 2)
	assert.Equal(t, "h264", inv.Streams[0].Codec)
	assert.Equal(t, 2*time.Second, inv.Duration)
}

func TestNewEnginePanicsOnUnknownAccelerator(t *testing.T) {
	assert.Panics(t, func() { NewEngine(Options{HWAccel: "quantum"}) })
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{HWAccel: " NONE "}
	o.setDefaults()
	assert.Equal(t, "ffmpeg", o.FFmpegPath)
	assert.Equal(t, "ffprobe", o.FFprobePath)
	assert.Equal(t, os.TempDir(), o.TempDir)
	assert.Equal(t, "none", o.HWAccel)
}

func TestPolicyOptionsDoNotAlias(t *testing.T) {
	codecs := []Codec{H264}
	base := Policy{}.With(WithVideoResult(codecs...))
	codecs[0] = VP9

	derived := base.With(WithVideoResult(HEVC), WithMaxChannels(2))
	assert.Equal(t, []Codec{H264}, base.Video.Result)
	assert.Equal(t, 0, base.MaxChannels)
	assert.Equal(t, []Codec{HEVC}, derived.Video.Result)
	assert.Equal(t, 2, derived.MaxChannels)
}
