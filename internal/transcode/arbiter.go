package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/conformer/internal/domain"
	"github.com/eleven-am/conformer/internal/ffmpeg"
	"github.com/eleven-am/conformer/internal/log"
	"github.com/eleven-am/conformer/internal/metrics"
)

// Arbiter settles pick-smallest decisions by producing both the copied and
// the re-encoded stream and keeping the smaller one.
type Arbiter struct {
	runner  *Runner
	builder *ffmpeg.CommandBuilder
	workDir string
}

func NewArbiter(runner *Runner, builder *ffmpeg.CommandBuilder, workDir string) *Arbiter {
	return &Arbiter{runner: runner, builder: builder, workDir: workDir}
}

// Arbitrate compares every pending decision of plan in turn. A winning
// re-encode is left in the work directory as the outcome's artifact; every
// other file it creates is removed before it returns.
func (a *Arbiter) Arbitrate(ctx context.Context, input string, inv *domain.Inventory, plan *domain.EncodingPlan, report func(float64)) ([]domain.ArbitrationOutcome, error) {
	pending := plan.Pending()
	outcomes := make([]domain.ArbitrationOutcome, 0, len(pending))
	tracker := NewTracker(report)

	for i, idx := range pending {
		d := plan.Decisions[idx]
		lo := float64(i) / float64(len(pending))
		hi := float64(i+1) / float64(len(pending))

		o, err := a.compare(ctx, input, inv, d, tracker.Range(lo, hi))
		if err != nil {
			for _, done := range outcomes {
				_ = os.Remove(done.Artifact)
			}
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func (a *Arbiter) compare(ctx context.Context, input string, inv *domain.Inventory, d domain.StreamDecision, report func(float64)) (domain.ArbitrationOutcome, error) {
	logger := log.For(ctx, "arbiter")
	s := d.Source
	copyPath := filepath.Join(a.workDir, fmt.Sprintf("copy-%d%s", s.Index, ffmpeg.ArtifactExtension))
	encPath := filepath.Join(a.workDir, fmt.Sprintf("encode-%d%s", s.Index, ffmpeg.ArtifactExtension))
	defer os.Remove(copyPath)

	// Both passes always run to completion; one failing does not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		return a.runner.Run(ctx, a.builder.Extract(input, copyPath, d), 0, nil)
	})
	g.Go(func() error {
		return a.runner.Run(ctx, a.builder.Candidate(input, encPath, d), inv.StreamDuration(s), report)
	})
	if err := g.Wait(); err != nil {
		_ = os.Remove(encPath)
		return domain.ArbitrationOutcome{}, err
	}

	copySize, err := fileSize(copyPath)
	if err != nil {
		_ = os.Remove(encPath)
		return domain.ArbitrationOutcome{}, err
	}
	encSize, err := fileSize(encPath)
	if err != nil {
		_ = os.Remove(encPath)
		return domain.ArbitrationOutcome{}, err
	}

	o := domain.ArbitrationOutcome{
		Stream:      s.Index,
		CopyWins:    copySize <= encSize,
		CopySize:    copySize,
		EncodedSize: encSize,
	}
	winner := "reencode"
	if o.CopyWins {
		winner = "copy"
		_ = os.Remove(encPath)
	} else {
		o.Artifact = encPath
	}
	metrics.Arbitrations.WithLabelValues(s.Kind.String(), winner).Inc()
	logger.Debug().
		Int(log.FieldStream, s.Index).
		Int64("copy_bytes", copySize).
		Int64("encoded_bytes", encSize).
		Str("winner", winner).
		Msg("arbitration settled")
	return o, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	return info.Size(), nil
}
