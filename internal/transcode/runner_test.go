package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/eleven-am/conformer/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return script
}

func TestRunReportsProgress(t *testing.T) {
	bin := writeScript(t, `printf 'out_time_us=N/A\nprogress=continue\nout_time_us=500000\nprogress=continue\nout_time_us=1000000\nprogress=end\n'
`)
	var got []float64
	err := NewRunner(bin).Run(context.Background(), []string{"-i", "in"}, 2*time.Second, func(f float64) { got = append(got, f) })
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 1}, got)
}

func TestRunFailureCarriesDiagnostics(t *testing.T) {
	bin := writeScript(t, `echo "[in#0] Error opening input" >&2
echo "in: Invalid data found when processing input" >&2
exit 1
`)
	err := NewRunner(bin).Run(context.Background(), nil, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEncode))
	assert.False(t, errors.Is(err, domain.ErrCancelled))
	assert.EqualError(t, err, "encoding failed: in: Invalid data found when processing input")

	var f *domain.Failure
	require.True(t, errors.As(err, &f))
	assert.Contains(t, f.Diagnostics, "Error opening input")
}

func TestRunRejectsUnparseableProgress(t *testing.T) {
	bin := writeScript(t, `echo "garbage"
exit 0
`)
	err := NewRunner(bin).Run(context.Background(), nil, time.Second, nil)
	assert.True(t, errors.Is(err, domain.ErrEncode))
	assert.EqualError(t, err, `encoding failed: malformed progress line "garbage"`)
}

func TestRunMissingBinary(t *testing.T) {
	err := NewRunner(filepath.Join(t.TempDir(), "missing")).Run(context.Background(), nil, 0, nil)
	assert.True(t, errors.Is(err, domain.ErrEncode))
}

func TestRunCancellationKillsProcessGroup(t *testing.T) {
	bin := writeScript(t, `sleep 5
echo "progress=end"
`)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewRunner(bin).Run(ctx, nil, time.Second, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, domain.ErrEncode))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunAlreadyCancelled(t *testing.T) {
	bin := writeScript(t, `echo "progress=end"
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRunner(bin).Run(ctx, nil, time.Second, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, domain.ErrEncode))
}
