// Package validate enforces a policy's source-side constraints before anything is decided.
package validate

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/eleven-am/conformer/internal/catalog"
	"github.com/eleven-am/conformer/internal/domain"
)

// Measurer walks a stream to find its decodable duration.
type Measurer interface {
	MeasureDuration(ctx context.Context, path string, index int) (time.Duration, error)
}

// CheckExtension rejects paths whose extension the policy does not list. It
// runs before the source is opened.
func CheckExtension(path string, policy domain.Policy) error {
	if len(policy.SourceExtensions) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range policy.SourceExtensions {
		if normalizeExt(allowed) == ext {
			return nil
		}
	}
	return domain.Fail(domain.ErrUnsupportedExtension, "unsupported file extension %q", ext)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Validate applies allow-lists, then structural rules. The first violation is returned.
func Validate(ctx context.Context, inv *domain.Inventory, policy domain.Policy, m Measurer) error {
	if len(policy.SourceContainers) > 0 {
		id, ok := catalog.Identify(inv.Format, inv.Brand, inv.Path)
		if !ok {
			return domain.Fail(domain.ErrUnsupportedSourceFormat, "unsupported source container %q", inv.Format)
		}
		if !slices.Contains(policy.SourceContainers, id) {
			return domain.Fail(domain.ErrUnsupportedSourceFormat, "unsupported source container %q", id)
		}
	}

	for _, s := range inv.Streams {
		sp := policy.Streams(s.Kind)
		if sp == nil {
			continue
		}
		if !domain.MatchesAny(sp.Source, s) {
			return domain.StreamFailure(domain.ErrUnsupportedSourceCodec, s.Index,
				"unsupported %s codec %q in stream %d", s.Kind, s.Codec, s.Index)
		}
	}

	if inv.Count(domain.KindVideo) == 0 && inv.Count(domain.KindAudio) == 0 {
		return domain.Fail(domain.ErrNoMediaStreams, "source contains no audio or video streams")
	}

	kinds := []domain.StreamKind{domain.KindVideo, domain.KindAudio}
	for _, kind := range kinds {
		if err := checkCount(kind, inv.Count(kind), policy.Rules(kind)); err != nil {
			return err
		}
	}

	for _, kind := range kinds {
		rules := policy.Rules(kind)
		streams := inv.OfKind(kind)
		if !policy.ValidateAllStreams {
			streams = sample(streams)
		}
		for _, s := range streams {
			if err := checkStream(ctx, inv, s, rules, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// sample picks the stream a player would select by default, else the first.
func sample(streams []domain.StreamDescriptor) []domain.StreamDescriptor {
	for _, s := range streams {
		if s.Default {
			return []domain.StreamDescriptor{s}
		}
	}
	if len(streams) == 0 {
		return nil
	}
	return streams[:1]
}

func checkCount(kind domain.StreamKind, n int, r domain.SourceRules) error {
	if r.MaxStreams > 0 && n > r.MaxStreams {
		return domain.Fail(domain.ErrSourceValidation, "too many %s streams: %d (maximum %d)", kind, n, r.MaxStreams)
	}
	if r.MinStreams > 0 && n < r.MinStreams {
		return domain.Fail(domain.ErrSourceValidation, "too few %s streams: %d (minimum %d)", kind, n, r.MinStreams)
	}
	return nil
}

func checkStream(ctx context.Context, inv *domain.Inventory, s domain.StreamDescriptor, r domain.SourceRules, m Measurer) error {
	fail := func(format string, args ...any) error {
		prefix := []any{s.Kind, s.Index}
		return domain.StreamFailure(domain.ErrSourceValidation, s.Index, "%s stream %d: "+format, append(prefix, args...)...)
	}

	dur := inv.StreamDuration(s)
	if r.MaxDuration > 0 && dur > r.MaxDuration {
		return fail("duration %v exceeds maximum %v", dur, r.MaxDuration)
	}
	if r.MinDuration > 0 && dur < r.MinDuration {
		return fail("duration %v is below minimum %v", dur, r.MinDuration)
	}

	if r.NeedsMeasurement() && m != nil {
		measured, err := m.MeasureDuration(ctx, inv.Path, s.Index)
		if err != nil {
			return err
		}
		if r.MaxMeasuredDuration > 0 && measured > r.MaxMeasuredDuration {
			return fail("measured duration %v exceeds maximum %v", measured, r.MaxMeasuredDuration)
		}
		if r.MinMeasuredDuration > 0 && measured < r.MinMeasuredDuration {
			return fail("measured duration %v is below minimum %v", measured, r.MinMeasuredDuration)
		}
	}

	if s.Kind != domain.KindVideo {
		return nil
	}
	if r.MaxWidth > 0 && s.Width > r.MaxWidth {
		return fail("width %d exceeds maximum %d", s.Width, r.MaxWidth)
	}
	if r.MinWidth > 0 && s.Width < r.MinWidth {
		return fail("width %d is below minimum %d", s.Width, r.MinWidth)
	}
	if r.MaxHeight > 0 && s.Height > r.MaxHeight {
		return fail("height %d exceeds maximum %d", s.Height, r.MaxHeight)
	}
	if r.MinHeight > 0 && s.Height < r.MinHeight {
		return fail("height %d is below minimum %d", s.Height, r.MinHeight)
	}
	if r.MaxPixels > 0 && s.Pixels() > r.MaxPixels {
		return fail("pixel count %d exceeds maximum %d", s.Pixels(), r.MaxPixels)
	}
	if r.MinPixels > 0 && s.Pixels() < r.MinPixels {
		return fail("pixel count %d is below minimum %d", s.Pixels(), r.MinPixels)
	}
	return nil
}
