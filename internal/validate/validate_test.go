package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/conformer/internal/catalog"
	"github.com/eleven-am/conformer/internal/domain"
)

type fakeMeasurer struct {
	durations map[int]time.Duration
	calls     []int
	err       error
}

func (f *fakeMeasurer) MeasureDuration(_ context.Context, _ string, index int) (time.Duration, error) {
	f.calls = append(f.calls, index)
	return f.durations[index], f.err
}

func mp4Source() *domain.Inventory {
	return &domain.Inventory{
		Path:     "/media/clip.mp4",
		Format:   "mov,mp4,m4a,3gp,3g2,mj2",
		Brand:    "isom",
		Duration: 2 * time.Second,
		Streams: []domain.StreamDescriptor{
			{Index: 0, Kind: domain.KindVideo, Codec: "h264", Tag: "avc1", Width: 128, Height: 72, Duration: 2 * time.Second, Default: true},
			{Index: 1, Kind: domain.KindAudio, Codec: "aac", Profile: "LC", Channels: 2, SampleRate: 48000, Default: true},
		},
	}
}

func requireMessage(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	assert.Equal(t, msg, err.Error())
}

func TestCheckExtension(t *testing.T) {
	policy := domain.Policy{SourceExtensions: []string{".mp4", "MOV"}}

	require.NoError(t, CheckExtension("/a/b.MP4", policy))
	require.NoError(t, CheckExtension("/a/b.mov", policy))
	requireMessage(t, CheckExtension("/a/b.avi", policy), domain.ErrUnsupportedExtension, `unsupported file extension ".avi"`)
	require.NoError(t, CheckExtension("/a/b.avi", domain.Policy{}))
}

func TestAllowListsRunBeforeRules(t *testing.T) {
	inv := mp4Source()

	policy := domain.Policy{
		SourceContainers: []domain.ContainerID{catalog.Matroska},
		ValidateVideo:    domain.SourceRules{MaxStreams: 0, MaxWidth: 10},
	}
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrUnsupportedSourceFormat, `unsupported source container "mp4"`)

	policy.SourceContainers = []domain.ContainerID{catalog.MP4}
	policy.Video.Source = []domain.Codec{catalog.HEVC}
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrUnsupportedSourceCodec, `unsupported video codec "h264" in stream 0`)

	policy.Video.Source = []domain.Codec{catalog.H264AVC3}
	require.Error(t, Validate(context.Background(), inv, policy, nil))

	policy.Video.Source = []domain.Codec{catalog.H264}
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrSourceValidation, "video stream 0: width 128 exceeds maximum 10")
}

func TestUnknownContainerRejectedWhenRestricted(t *testing.T) {
	inv := mp4Source()
	inv.Format = "avi"
	policy := domain.Policy{SourceContainers: []domain.ContainerID{catalog.MP4}}
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrUnsupportedSourceFormat, `unsupported source container "avi"`)
}

func TestNoMediaStreams(t *testing.T) {
	inv := &domain.Inventory{Streams: []domain.StreamDescriptor{{Index: 0, Kind: domain.KindSubtitle, Codec: "subrip"}}}
	requireMessage(t, Validate(context.Background(), inv, domain.Policy{}, nil), domain.ErrNoMediaStreams, "source contains no audio or video streams")
}

func TestStreamCounts(t *testing.T) {
	inv := mp4Source()
	inv.Streams = append(inv.Streams, domain.StreamDescriptor{Index: 2, Kind: domain.KindVideo, Codec: "h264", Width: 64, Height: 36})

	policy := domain.Policy{ValidateVideo: domain.SourceRules{MaxStreams: 1}}
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrSourceValidation, "too many video streams: 2 (maximum 1)")

	inv = mp4Source()
	inv.Streams = inv.Streams[:1]
	policy = domain.Policy{ValidateAudio: domain.SourceRules{MinStreams: 1}}
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrSourceValidation, "too few audio streams: 0 (minimum 1)")
}

func TestDurationChecks(t *testing.T) {
	inv := mp4Source()

	policy := domain.Policy{ValidateVideo: domain.SourceRules{MaxDuration: 1500 * time.Millisecond}}
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrSourceValidation, "video stream 0: duration 2s exceeds maximum 1.5s")

	policy = domain.Policy{ValidateAudio: domain.SourceRules{MinDuration: 3 * time.Second}}
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrSourceValidation, "audio stream 1: duration 2s is below minimum 3s")
}

func TestMeasuredDurationIsAnAdditionalCheck(t *testing.T) {
	inv := mp4Source()
	inv.Duration = 500 * time.Millisecond
	inv.Streams[0].Duration = 500 * time.Millisecond

	m := &fakeMeasurer{durations: map[int]time.Duration{0: time.Second}}
	policy := domain.Policy{ValidateVideo: domain.SourceRules{
		MaxDuration:         1500 * time.Millisecond,
		MaxMeasuredDuration: 500 * time.Millisecond,
	}}
	requireMessage(t, Validate(context.Background(), inv, policy, m), domain.ErrSourceValidation, "video stream 0: measured duration 1s exceeds maximum 500ms")
	assert.Equal(t, []int{0}, m.calls)

	m = &fakeMeasurer{err: domain.Cancelled(context.Canceled)}
	err := Validate(context.Background(), inv, policy, m)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
}

func TestMeasurementSkippedWithoutRules(t *testing.T) {
	m := &fakeMeasurer{}
	require.NoError(t, Validate(context.Background(), mp4Source(), domain.Policy{}, m))
	assert.Empty(t, m.calls)
}

func TestDimensionChecks(t *testing.T) {
	cases := []struct {
		rules domain.SourceRules
		msg   string
	}{
		{domain.SourceRules{MinWidth: 256}, "video stream 0: width 128 is below minimum 256"},
		{domain.SourceRules{MaxHeight: 64}, "video stream 0: height 72 exceeds maximum 64"},
		{domain.SourceRules{MinHeight: 100}, "video stream 0: height 72 is below minimum 100"},
		{domain.SourceRules{MaxPixels: 9000}, "video stream 0: pixel count 9216 exceeds maximum 9000"},
		{domain.SourceRules{MinPixels: 10000}, "video stream 0: pixel count 9216 is below minimum 10000"},
	}
	for _, tc := range cases {
		policy := domain.Policy{ValidateVideo: tc.rules}
		requireMessage(t, Validate(context.Background(), mp4Source(), policy, nil), domain.ErrSourceValidation, tc.msg)
	}
}

func TestSampleVersusExhaustive(t *testing.T) {
	inv := mp4Source()
	inv.Streams = append(inv.Streams, domain.StreamDescriptor{Index: 2, Kind: domain.KindVideo, Codec: "h264", Width: 4096, Height: 2160})
	policy := domain.Policy{ValidateVideo: domain.SourceRules{MaxWidth: 1920}}

	require.NoError(t, Validate(context.Background(), inv, policy, nil))

	policy.ValidateAllStreams = true
	requireMessage(t, Validate(context.Background(), inv, policy, nil), domain.ErrSourceValidation, "video stream 2: width 4096 exceeds maximum 1920")
}
