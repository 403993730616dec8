package transcode

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/eleven-am/conformer/internal/domain"
	"github.com/eleven-am/conformer/internal/ffmpeg"
	"github.com/eleven-am/conformer/internal/log"
	"github.com/eleven-am/conformer/internal/metrics"
)

const (
	stderrLines = 40
	waitDelay   = 5 * time.Second
)

// Runner executes encoding tool passes.
type Runner struct {
	bin string
}

func NewRunner(bin string) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Runner{bin: bin}
}

// Run executes one pass. Progress is reported as the fraction of duration
// the tool has written; report may be nil. Cancelling ctx kills the tool's
// whole process group and yields an error wrapping domain.ErrCancelled.
func (r *Runner) Run(ctx context.Context, args []string, duration time.Duration, report func(float64)) error {
	logger := log.For(ctx, "transcode")
	logger.Debug().Str(log.FieldTool, r.bin).Strs("args", args).Msg("starting encoder")

	cmd := exec.CommandContext(ctx, r.bin, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	stderr := ffmpeg.NewLineRing(stderrLines)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			metrics.ToolRuns.WithLabelValues("ffmpeg", "cancelled").Inc()
			return domain.Cancelled(ctx.Err())
		}
		metrics.ToolRuns.WithLabelValues("ffmpeg", "error").Inc()
		return domain.ToolFailure(domain.ErrEncode, fmt.Sprintf("encoding failed: %v", err), "", err)
	}

	scanErr := ffmpeg.ScanProgress(stdout, func(p ffmpeg.Progress) {
		if report == nil {
			return
		}
		switch {
		case p.Done:
			report(1)
		case duration > 0:
			report(float64(p.OutTime) / float64(duration))
		}
	})
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()
	metrics.EncodeSeconds.Observe(time.Since(start).Seconds())

	switch {
	case ctx.Err() != nil:
		metrics.ToolRuns.WithLabelValues("ffmpeg", "cancelled").Inc()
		logger.Debug().Msg("encoder cancelled")
		return domain.Cancelled(ctx.Err())
	case waitErr != nil:
		metrics.ToolRuns.WithLabelValues("ffmpeg", "error").Inc()
		diag := stderr.String()
		logger.Warn().Err(waitErr).Str("stderr", diag).Msg("encoder failed")
		return domain.ToolFailure(domain.ErrEncode, "encoding failed: "+summary(stderr, waitErr), diag, waitErr)
	case scanErr != nil:
		metrics.ToolRuns.WithLabelValues("ffmpeg", "error").Inc()
		logger.Warn().Err(scanErr).Msg("unreadable encoder progress")
		return domain.ToolFailure(domain.ErrEncode, "encoding failed: "+scanErr.Error(), stderr.String(), scanErr)
	}

	metrics.ToolRuns.WithLabelValues("ffmpeg", "ok").Inc()
	logger.Debug().Dur("elapsed", time.Since(start)).Msg("encoder finished")
	return nil
}

// summary prefers the tool's last diagnostic line over the exit status.
func summary(stderr *ffmpeg.LineRing, err error) string {
	if last := stderr.LastN(1); len(last) == 1 {
		return last[0]
	}
	return err.Error()
}
