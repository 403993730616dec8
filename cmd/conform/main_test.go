package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/conformer/internal/config"
)

const fakeProbe = `#!/bin/sh
cat <<'EOF'
{"streams":[
 {"index":0,"codec_name":"h264","codec_type":"video","codec_tag_string":"[0][0][0][0]","width":640,"height":360,"pix_fmt":"yuv420p","r_frame_rate":"25/1","disposition":{"default":1}},
 {"index":1,"codec_name":"opus","codec_type":"audio","channels":2,"sample_rate":"48000","disposition":{"default":1}}
],"format":{"format_name":"matroska,webm","duration":"1.000000"}}
EOF
`

const fakeEncoder = `#!/bin/sh
for last; do :; done
printf remuxed > "$last"
printf 'progress=end\n'
`

func setupTools(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ffprobe"), []byte(fakeProbe), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(fakeEncoder), 0o755))
	t.Setenv(config.EnvFFmpegBin, filepath.Join(dir, "ffmpeg"))
	t.Setenv(config.EnvFFprobeBin, "")
	t.Setenv(config.EnvTempDir, t.TempDir())
	t.Setenv(config.EnvHWAccel, "")

	input := filepath.Join(t.TempDir(), "clip.mkv")
	require.NoError(t, os.WriteFile(input, []byte("mkv"), 0o644))
	return input
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProbeCommandPrintsInventory(t *testing.T) {
	input := setupTools(t)

	out, err := run(t, "probe", input)
	require.NoError(t, err)

	var inv struct {
		Format  string
		Streams []struct {
			Kind  string
			Codec string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &inv))
	assert.Equal(t, "matroska,webm", inv.Format)
	require.Len(t, inv.Streams, 2)
	assert.Equal(t, "video", inv.Streams[0].Kind)
	assert.Equal(t, "opus", inv.Streams[1].Codec)
}

func TestPlanCommandUsesPolicyFile(t *testing.T) {
	input := setupTools(t)
	policy := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("result:\n  containers: [mp4]\n"), 0o644))

	out, err := run(t, "plan", "--policy", policy, input)
	require.NoError(t, err)

	var plan struct {
		Container string
		Decisions []struct{ Action string }
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "mp4", plan.Container)
	require.Len(t, plan.Decisions, 2)
	assert.Equal(t, "copy", plan.Decisions[0].Action)
}

func TestProcessCommandStoresResult(t *testing.T) {
	input := setupTools(t)
	policy := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("result:\n  containers: [mp4]\n"), 0o644))
	outDir := t.TempDir()

	out, err := run(t, "process", "--policy", policy, "--out", outDir, input)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(path, outDir))
	assert.Equal(t, ".mp4", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "remuxed", string(data))
}

func TestPlanCommandRejectsUnknownPolicyKeys(t *testing.T) {
	input := setupTools(t)
	policy := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("containers: [mp4]\n"), 0o644))

	_, err := run(t, "plan", "--policy", policy, input)
	assert.Error(t, err)
}

func TestProbeCommandRequiresFile(t *testing.T) {
	setupTools(t)
	_, err := run(t, "probe")
	assert.Error(t, err)
}
