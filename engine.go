package conformer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eleven-am/conformer/internal/decide"
	"github.com/eleven-am/conformer/internal/domain"
	"github.com/eleven-am/conformer/internal/ffmpeg"
	"github.com/eleven-am/conformer/internal/hwaccel"
	"github.com/eleven-am/conformer/internal/log"
	"github.com/eleven-am/conformer/internal/metrics"
	"github.com/eleven-am/conformer/internal/probe"
	"github.com/eleven-am/conformer/internal/transcode"
	"github.com/eleven-am/conformer/internal/validate"
)

const (
	// arbitrationShare is the part of the progress range spent on pick-smallest comparisons.
	arbitrationShare = 0.5
	finalShare       = 0.99
)

// Engine runs processing requests. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	opts    Options
	prober  *probe.Prober
	runner  *transcode.Runner
	builder *ffmpeg.CommandBuilder
}

// NewEngine creates an Engine with the given options.
// It panics if HWAccel names an unknown accelerator.
//
// With HWAccel "auto" the ffmpeg binary is queried once for usable hardware
// encoders; detection failures fall back to software encoding.
func NewEngine(opts Options) *Engine {
	opts.setDefaults()
	opts.validate()

	hwConfig, err := hwaccel.Parse(context.Background(), opts.HWAccel, opts.FFmpegPath)
	if err != nil {
		panic("conformer: " + err.Error())
	}

	return &Engine{
		opts:    opts,
		prober:  probe.NewProber(opts.FFprobePath),
		runner:  transcode.NewRunner(opts.FFmpegPath),
		builder: ffmpeg.NewCommandBuilder(hwConfig),
	}
}

// Probe returns the stream inventory of path without applying any policy.
func (e *Engine) Probe(ctx context.Context, path string) (*Inventory, error) {
	return e.prober.Probe(ctx, path)
}

// Plan probes and validates path and decides every stream without encoding
// anything. Streams in pick-smallest mode are left pending arbitration, so
// the returned plan may not be finalized.
func (e *Engine) Plan(ctx context.Context, path string, policy Policy) (*EncodingPlan, error) {
	_, plan, err := e.plan(ctx, path, policy)
	return plan, err
}

func (e *Engine) plan(ctx context.Context, path string, policy Policy) (*Inventory, *EncodingPlan, error) {
	if err := validate.CheckExtension(path, policy); err != nil {
		return nil, nil, err
	}
	inv, err := e.prober.Probe(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if err := validate.Validate(ctx, inv, policy, e.prober); err != nil {
		return nil, nil, err
	}
	plan, err := decide.Build(inv, policy)
	if err != nil {
		return nil, nil, err
	}
	return inv, plan, nil
}

// Result is a finished output. When Passthrough is set, Path is the source
// itself and nothing was written.
type Result struct {
	Path        string
	Container   ContainerID
	Extension   string
	Plan        *EncodingPlan
	Passthrough bool

	workDir string
}

// Open opens the output for reading.
func (r *Result) Open() (*os.File, error) {
	return os.Open(r.Path)
}

// Close removes the output and every temporary file of its request. The
// source is never touched.
func (r *Result) Close() error {
	if r.workDir == "" {
		return nil
	}
	return os.RemoveAll(r.workDir)
}

// Process conforms path to policy. On success the progress callback has
// received 1 and the caller owns the Result until Close.
//
// Errors are *Failure values, except cancellation which wraps ErrCancelled
// and the context's error.
func (e *Engine) Process(ctx context.Context, path string, policy Policy) (*Result, error) {
	ctx = log.ContextWithRequestID(ctx, uuid.NewString())
	tracker := transcode.NewTracker(policy.Progress)
	start := time.Now()

	res, err := e.process(ctx, path, policy, tracker)
	e.finish(ctx, path, start, err)
	if err != nil {
		return nil, err
	}
	tracker.Finish()
	return res, nil
}

// ProcessTo conforms path to policy and hands the output to dst, returning
// the handle dst assigned. No temporary files outlive the call.
func (e *Engine) ProcessTo(ctx context.Context, path string, policy Policy, dst Destination) (string, error) {
	ctx = log.ContextWithRequestID(ctx, uuid.NewString())
	tracker := transcode.NewTracker(policy.Progress)
	start := time.Now()

	handle, err := e.processTo(ctx, path, policy, dst, tracker)
	e.finish(ctx, path, start, err)
	if err != nil {
		return "", err
	}
	tracker.Finish()
	return handle, nil
}

func (e *Engine) processTo(ctx context.Context, path string, policy Policy, dst Destination, tracker *transcode.Tracker) (string, error) {
	res, err := e.process(ctx, path, policy, tracker)
	if err != nil {
		return "", err
	}
	defer res.Close()

	f, err := res.Open()
	if err != nil {
		return "", fmt.Errorf("open result: %w", err)
	}
	defer f.Close()

	handle, err := dst.Put(ctx, f, res.Extension)
	if err != nil {
		if ctx.Err() != nil {
			return "", domain.Cancelled(ctx.Err())
		}
		return "", fmt.Errorf("store result: %w", err)
	}
	return handle, nil
}

func (e *Engine) finish(ctx context.Context, path string, start time.Time, err error) {
	logger := log.For(ctx, "engine")
	metrics.Requests.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldPath, path).Dur("elapsed", time.Since(start)).Msg("request failed")
		return
	}
	logger.Info().Str(log.FieldPath, path).Dur("elapsed", time.Since(start)).Msg("request complete")
}

func (e *Engine) process(ctx context.Context, path string, policy Policy, tracker *transcode.Tracker) (*Result, error) {
	inv, plan, err := e.plan(ctx, path, policy)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(e.opts.TempDir, "conformer-"+log.RequestIDFromContext(ctx)+"-")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	res, err := e.execute(ctx, inv, plan, policy, workDir, tracker)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return nil, err
	}
	return res, nil
}

func (e *Engine) execute(ctx context.Context, inv *Inventory, plan *EncodingPlan, policy Policy, workDir string, tracker *transcode.Tracker) (*Result, error) {
	logger := log.For(ctx, "engine")

	split := 0.0
	if len(plan.Pending()) > 0 {
		split = arbitrationShare
		arbiter := transcode.NewArbiter(e.runner, e.builder, workDir)
		outcomes, err := arbiter.Arbitrate(ctx, inv.Path, inv, plan, tracker.Range(0, split))
		if err != nil {
			return nil, err
		}
		plan.Resolve(outcomes)
	}

	for _, d := range plan.Decisions {
		metrics.StreamDecisions.WithLabelValues(d.Source.Kind.String(), d.Action.String()).Inc()
		logger.Debug().
			Int(log.FieldStream, d.Source.Index).
			Str(log.FieldAction, d.Action.String()).
			Str(log.FieldCodec, d.Codec.String()).
			Strs("reasons", d.Reasons).
			Msg("stream decided")
	}
	for _, o := range plan.Omitted {
		logger.Debug().Int(log.FieldStream, o.Stream.Index).Str("reason", o.Reason).Msg("stream omitted")
	}

	if plan.Passthrough() {
		if policy.FailOnNoChange {
			return nil, domain.Fail(domain.ErrNoChange, "source already satisfies the policy")
		}
		_ = os.RemoveAll(workDir)
		logger.Debug().Str(log.FieldContainer, string(plan.Container)).Msg("source passes through unchanged")
		ext := strings.ToLower(filepath.Ext(inv.Path))
		if ext == "" {
			ext = plan.Extension
		}
		return &Result{
			Path:        inv.Path,
			Container:   plan.Container,
			Extension:   ext,
			Plan:        plan,
			Passthrough: true,
		}, nil
	}

	output := filepath.Join(workDir, "output"+plan.Extension)
	args := e.builder.Plan(inv.Path, output, plan)
	if err := e.runner.Run(ctx, args, inv.Duration, tracker.Range(split, finalShare)); err != nil {
		return nil, err
	}

	logger.Debug().Str(log.FieldContainer, string(plan.Container)).Str(log.FieldPath, output).Msg("output written")
	return &Result{
		Path:      output,
		Container: plan.Container,
		Extension: plan.Extension,
		Plan:      plan,
		workDir:   workDir,
	}, nil
}
