// Package decide turns a probed inventory and a policy into an EncodingPlan.
// Everything here is pure: no tools are run and nothing is written.
package decide

import (
	"github.com/eleven-am/conformer/internal/catalog"
	"github.com/eleven-am/conformer/internal/derive"
	"github.com/eleven-am/conformer/internal/domain"
)

const (
	reasonCodecNotAllowed  = "codec not allowed in result"
	reasonContainerCodec   = "codec not supported by container"
	reasonTagRewrite       = "container requires a different tag"
	reasonAudioRemoved     = "audio removal requested"
	reasonKindNotPreserved = "unrecognized streams are not preserved"
	reasonKindNotSupported = "container cannot carry this stream kind"
	reasonNoEncoder        = "no encoder available, stream copied"
)

// Build decides every stream of inv. The returned plan is finalized unless
// some stream is waiting on pick-smallest arbitration.
func Build(inv *domain.Inventory, policy domain.Policy) (*domain.EncodingPlan, error) {
	for _, s := range inv.Streams {
		if sp := policy.Streams(s.Kind); sp != nil && !domain.MatchesAny(sp.Source, s) {
			return nil, domain.StreamFailure(domain.ErrUnsupportedSourceCodec, s.Index,
				"unsupported %s codec %q in stream %d", s.Kind, s.Codec, s.Index)
		}
	}

	hasVideo := inv.Count(domain.KindVideo) > 0
	if !hasVideo && inv.Count(domain.KindAudio) == 0 {
		return nil, domain.Fail(domain.ErrNoMediaStreams, "source contains no audio or video streams")
	}
	if policy.RemoveAudio && !hasVideo {
		return nil, domain.Fail(domain.ErrAudioRemovalInfeasible, "cannot remove audio from a source without video")
	}

	source, _ := catalog.Identify(inv.Format, inv.Brand, inv.Path)
	container := chooseContainer(inv, policy, source)

	plan := &domain.EncodingPlan{
		SourceContainer: source,
		Container:       container.ID,
		Muxer:           container.Muxer,
		Extension:       container.Extension(),
		MetadataMode:    policy.Metadata,
		FastStart:       policy.FastStart && container.FastStart,
	}
	plan.ForceRewrite = policy.Metadata == domain.MetadataRequired || plan.FastStart

	for _, s := range inv.Streams {
		switch {
		case s.Kind == domain.KindAudio && policy.RemoveAudio:
			plan.Omitted = append(plan.Omitted, domain.Omission{Stream: s, Reason: reasonAudioRemoved})
		case s.Kind == domain.KindVideo || s.Kind == domain.KindAudio:
			d, err := decideStream(s, policy, container)
			if err != nil {
				return nil, err
			}
			plan.Decisions = append(plan.Decisions, d)
		case !policy.KeepUnrecognized:
			plan.Omitted = append(plan.Omitted, domain.Omission{Stream: s, Reason: reasonKindNotPreserved})
		case !container.Accepts(s):
			plan.Omitted = append(plan.Omitted, domain.Omission{Stream: s, Reason: reasonKindNotSupported})
		default:
			plan.Decisions = append(plan.Decisions, domain.StreamDecision{
				Source: s,
				Action: domain.ActionCopy,
				Codec:  domain.Codec{Kind: s.Kind, Name: s.Codec, Tag: s.Tag},
			})
		}
	}

	if len(plan.Pending()) == 0 {
		plan.Finalize()
	}
	return plan, nil
}

// chooseContainer picks the first listed container the source already
// satisfies, else the first listed.
func chooseContainer(inv *domain.Inventory, policy domain.Policy, source domain.ContainerID) catalog.Container {
	ids := policy.ResultContainers
	if len(ids) == 0 {
		if _, ok := catalog.LookupContainer(source); ok {
			ids = []domain.ContainerID{source}
		} else {
			ids = []domain.ContainerID{catalog.Matroska}
		}
	}

	var known []catalog.Container
	for _, id := range ids {
		if c, ok := catalog.LookupContainer(id); ok {
			known = append(known, c)
		}
	}
	if len(known) == 0 {
		c, _ := catalog.LookupContainer(catalog.Matroska)
		return c
	}

	for _, c := range known {
		if satisfies(inv, policy, c) {
			return c
		}
	}
	return known[0]
}

func satisfies(inv *domain.Inventory, policy domain.Policy, c catalog.Container) bool {
	for _, s := range inv.Streams {
		switch s.Kind {
		case domain.KindVideo:
			if !c.SupportsCodec(s.Kind, s.Codec) || !c.Fits(s.Width, s.Height) {
				return false
			}
		case domain.KindAudio:
			if !policy.RemoveAudio && !c.SupportsCodec(s.Kind, s.Codec) {
				return false
			}
		}
	}
	return true
}

func decideStream(s domain.StreamDescriptor, policy domain.Policy, container catalog.Container) (domain.StreamDecision, error) {
	sp := policy.Streams(s.Kind)
	d := domain.StreamDecision{Source: s}

	blockers := copyBlockers(s, policy, container)
	wouldCopy := len(blockers) == 0

	target, info, ok := targetCodec(s, *sp, container)
	if !ok && !wouldCopy {
		return d, domain.StreamFailure(domain.ErrEncode, s.Index, "no %s encoder available for container %s (stream %d)", s.Kind, container.ID, s.Index)
	}

	reencode := func() error {
		r, err := derivation(s, policy, info, container)
		if err != nil {
			return err
		}
		params := r.Params
		d.Action = domain.ActionReencode
		d.Codec = target
		d.Tag = target.Tag
		if d.Tag == "" {
			d.Tag, _ = container.OutputTag(target.Name, "")
		}
		d.Params = &params
		return nil
	}

	copyAction, copyTag := domain.ActionCopy, ""
	if tag, tagOK := container.OutputTag(s.Codec, s.Tag); tagOK {
		copyTag = tag
	} else {
		copyAction, copyTag = domain.ActionRemux, tag
	}
	copyIt := func() {
		d.Action = copyAction
		d.Tag = copyTag
		d.Codec = domain.Codec{Kind: s.Kind, Name: s.Codec, Tag: copyTag, Profile: s.Profile}
		if copyAction == domain.ActionRemux {
			d.Reasons = append(d.Reasons, reasonTagRewrite)
		}
	}

	mode := sp.Mode
	if !ok && mode != domain.ReencodeCopyOnly {
		mode = domain.ReencodeCopyOnly
		d.Reasons = append(d.Reasons, reasonNoEncoder)
	}
	switch mode {
	case domain.ReencodeCopyOnly:
		if wouldCopy {
			copyIt()
			return d, nil
		}
	case domain.ReencodeAlways:
	case domain.ReencodePickSmallest:
		if wouldCopy {
			if err := reencode(); err != nil {
				return d, err
			}
			d.Arbitrate = true
			d.FallbackAction = copyAction
			d.FallbackTag = copyTag
			return d, nil
		}
	}

	if err := reencode(); err != nil {
		return d, err
	}
	d.Reasons = append(d.Reasons, blockers...)
	return d, nil
}

// copyBlockers lists every reason s cannot be carried into container unchanged.
func copyBlockers(s domain.StreamDescriptor, policy domain.Policy, container catalog.Container) []string {
	sp := policy.Streams(s.Kind)
	var blockers []string
	if !domain.MatchesAny(sp.Result, s) {
		blockers = append(blockers, reasonCodecNotAllowed)
	}
	if !container.SupportsCodec(s.Kind, s.Codec) {
		blockers = append(blockers, reasonContainerCodec)
	}

	// A resize failure here only means the source codec's floor conflicts with
	// the bounds; the re-encode derivation decides whether that is fatal.
	info, _ := catalog.Lookup(s.Codec)
	r, err := derivation(s, policy, info, container)
	if err != nil {
		return append(blockers, derive.ReasonCodecMinimum)
	}
	return append(blockers, r.Reasons...)
}

func derivation(s domain.StreamDescriptor, policy domain.Policy, info catalog.CodecInfo, container catalog.Container) (derive.Result, error) {
	if s.Kind == domain.KindAudio {
		return derive.Audio(s, policy, info), nil
	}
	return derive.Video(s, policy, info, container)
}

// targetCodec picks the re-encode codec: the source codec when it is allowed
// and encodable, else the first allowed codec the container carries, else the
// container's default.
func targetCodec(s domain.StreamDescriptor, sp domain.StreamPolicy, container catalog.Container) (domain.Codec, catalog.CodecInfo, bool) {
	usable := func(name string) (catalog.CodecInfo, bool) {
		info, ok := catalog.Lookup(name)
		if !ok || info.Kind != s.Kind || !container.SupportsCodec(s.Kind, name) {
			return catalog.CodecInfo{}, false
		}
		return info, true
	}

	if domain.MatchesAny(sp.Result, s) {
		if info, ok := usable(s.Codec); ok {
			return domain.Codec{Kind: s.Kind, Name: s.Codec, Tag: tagOf(sp.Result, s)}, info, true
		}
	}
	for _, c := range sp.Result {
		if info, ok := usable(c.Name); ok {
			return domain.Codec{Kind: s.Kind, Name: c.Name, Tag: c.Tag}, info, true
		}
	}
	if info, ok := usable(container.DefaultCodec(s.Kind)); ok {
		return domain.Codec{Kind: s.Kind, Name: info.Name}, info, true
	}
	return domain.Codec{}, catalog.CodecInfo{}, false
}

// tagOf returns the tag demanded by the result entry s matched, if any.
func tagOf(result []domain.Codec, s domain.StreamDescriptor) string {
	for _, c := range result {
		if c.Matches(s) {
			return c.Tag
		}
	}
	return ""
}
