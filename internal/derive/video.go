// Package derive computes the encode parameters a stream needs to satisfy a
// policy, together with the reasons a plain copy would not.
package derive

import (
	"math/big"

	"github.com/eleven-am/conformer/internal/catalog"
	"github.com/eleven-am/conformer/internal/domain"
)

const (
	ReasonResizeBounds    = "exceeds resize bounds"
	ReasonContainerLimit  = "exceeds container size limit"
	ReasonCodecMinimum    = "below codec minimum dimensions"
	ReasonNonSquarePixels = "non-square pixels"
	ReasonChroma          = "chroma subsampling exceeds ceiling"
	ReasonBitDepth        = "bit depth exceeds ceiling"
	ReasonPixelFormat     = "non-standard pixel format"
	ReasonFrameRate       = "frame rate exceeds limit"
	ReasonInterlaced      = "interlaced frames"
	ReasonHDR             = "HDR transfer"
	ReasonChannels        = "channel count exceeds ceiling"
	ReasonSampleRate      = "sample rate exceeds ceiling"
)

// Result holds derived parameters and the constraints the source violates.
// A stream with no reasons can be copied as far as its parameters go.
type Result struct {
	Params  domain.EncodeParams
	Reasons []string
}

func (r *Result) because(reason string) { r.Reasons = append(r.Reasons, reason) }

// Video derives parameters for encoding s with codec into container.
func Video(s domain.StreamDescriptor, p domain.Policy, codec catalog.CodecInfo, container catalog.Container) (Result, error) {
	r := Result{Params: domain.EncodeParams{Encoder: codec.Encoder}}

	pix := pixelFormat(&r, s, p, codec)
	r.Params.Video.PixelFormat = pix

	if err := resize(&r, s, p, codec, container, catalog.LookupPixelFormat(pix).Chroma); err != nil {
		return r, err
	}

	r.Params.Video.FrameRate = frameRate(&r, s.FrameRate, p.FrameRate)

	if p.ForceProgressive && s.Interlaced() {
		r.Params.Video.Deinterlace = true
		r.because(ReasonInterlaced)
	}

	if p.HDR != domain.HDRKeep && catalog.IsHDR(s) {
		r.Params.Video.ToneMap = true
		if p.HDR == domain.HDRForceSDR {
			r.because(ReasonHDR)
		}
	}
	return r, nil
}

func pixelFormat(r *Result, s domain.StreamDescriptor, p domain.Policy, codec catalog.CodecInfo) string {
	name := s.PixelFormat
	if name == "" {
		name = "yuv420p"
	}
	src := catalog.LookupPixelFormat(name)

	chroma, depth := src.Chroma, src.BitDepth
	if p.MaxChroma != domain.ChromaAny && chroma > p.MaxChroma {
		chroma = p.MaxChroma
		r.because(ReasonChroma)
	}
	if p.MaxBitDepth > 0 && depth > p.MaxBitDepth {
		depth = p.MaxBitDepth
		r.because(ReasonBitDepth)
	}
	if p.PixelCeiling() && !src.Standard {
		r.because(ReasonPixelFormat)
	}

	if src.Standard && chroma == src.Chroma && depth == src.BitDepth && (len(codec.PixelFormats) == 0 || codec.SupportsPixelFormat(name)) {
		return name
	}
	return encodable(codec, chroma, depth)
}

// encodable finds the richest standard format codec can encode without
// exceeding chroma or depth.
func encodable(codec catalog.CodecInfo, chroma domain.Chroma, depth int) string {
	if len(codec.PixelFormats) == 0 {
		return catalog.StandardPixelFormat(chroma, depth)
	}
	floor := domain.Chroma420
	if chroma == domain.Chroma400 {
		floor = domain.Chroma400
	}
	for c := chroma; c >= floor; c-- {
		for _, d := range []int{12, 10, 8} {
			if d > depth {
				continue
			}
			if pix := catalog.StandardPixelFormat(c, d); codec.SupportsPixelFormat(pix) {
				return pix
			}
		}
	}
	return "yuv420p"
}

func resize(r *Result, s domain.StreamDescriptor, p domain.Policy, codec catalog.CodecInfo, container catalog.Container, chroma domain.Chroma) error {
	w := new(big.Rat).SetInt64(int64(s.Width))
	h := new(big.Rat).SetInt64(int64(s.Height))

	if p.ForceSquarePixels && s.NonSquarePixels() {
		w.Mul(w, s.SampleAspect.Rat())
		r.Params.Video.SquarePixels = true
		r.because(ReasonNonSquarePixels)
	}

	scale := big.NewRat(1, 1)
	shrink := func(bw, bh int, reason string) {
		f := fitFactor(w, h, bw, bh)
		if f.Cmp(scale) < 0 {
			scale = f
			r.because(reason)
		}
	}
	shrink(p.Resize.Width, p.Resize.Height, ReasonResizeBounds)
	shrink(container.MaxWidth, container.MaxHeight, ReasonContainerLimit)

	maxW, maxH := minPositive(p.Resize.Width, container.MaxWidth), minPositive(p.Resize.Height, container.MaxHeight)

	tw := new(big.Rat).Mul(w, scale)
	th := new(big.Rat).Mul(h, scale)
	if below(tw, codec.MinWidth) || below(th, codec.MinHeight) {
		up := new(big.Rat)
		if codec.MinWidth > 0 {
			up = maxRat(up, new(big.Rat).Quo(big.NewRat(int64(codec.MinWidth), 1), w))
		}
		if codec.MinHeight > 0 {
			up = maxRat(up, new(big.Rat).Quo(big.NewRat(int64(codec.MinHeight), 1), h))
		}
		tw.Mul(w, up)
		th.Mul(h, up)
		if above(tw, maxW) || above(th, maxH) {
			return domain.StreamFailure(domain.ErrResizeInfeasible, s.Index, "cannot re-encode to fit within specified dimensions")
		}
		r.because(ReasonCodecMinimum)
	}

	r.Params.Video.Width = snap(tw, chroma.EvenWidth(), maxW, codec.MinWidth)
	r.Params.Video.Height = snap(th, chroma.EvenHeight(), maxH, codec.MinHeight)
	return nil
}

// fitFactor returns the largest factor that fits w x h within bw x bh. Zero bounds are ignored.
func fitFactor(w, h *big.Rat, bw, bh int) *big.Rat {
	f := big.NewRat(1, 1)
	if bw > 0 {
		if q := new(big.Rat).Quo(big.NewRat(int64(bw), 1), w); q.Cmp(f) < 0 {
			f = q
		}
	}
	if bh > 0 {
		if q := new(big.Rat).Quo(big.NewRat(int64(bh), 1), h); q.Cmp(f) < 0 {
			f = q
		}
	}
	return f
}

// snap rounds v to the nearest integer, or nearest even integer when even is
// set, with ties rounding up. The result is then nudged back inside hi and lo.
func snap(v *big.Rat, even bool, hi, lo int) int {
	step := int64(1)
	if even {
		step = 2
	}
	q := new(big.Rat).Quo(v, big.NewRat(step, 1))
	q.Add(q, big.NewRat(1, 2))
	n := new(big.Int).Quo(q.Num(), q.Denom()).Int64() * step

	if hi > 0 && n > int64(hi) {
		n -= step
	}
	if lo > 0 && n < int64(lo) {
		n += step
	}
	if n < step {
		n = step
	}
	return int(n)
}

func below(v *big.Rat, lo int) bool {
	return lo > 0 && v.Cmp(big.NewRat(int64(lo), 1)) < 0
}

func above(v *big.Rat, hi int) bool {
	return hi > 0 && v.Cmp(big.NewRat(int64(hi), 1)) > 0
}

func maxRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func minPositive(a, b int) int {
	switch {
	case a <= 0:
		return b
	case b <= 0:
		return a
	case a < b:
		return a
	}
	return b
}

// frameRate applies the policy limit to src. It returns the zero Rational when src is kept.
func frameRate(r *Result, src domain.Rational, limit domain.FrameRateLimit) domain.Rational {
	if !src.Valid() || !limit.Max.Valid() || src.Cmp(limit.Max) <= 0 {
		return domain.Rational{}
	}
	switch limit.Mode {
	case domain.FrameRateUnlimited:
		return domain.Rational{}
	case domain.FrameRateExact:
		r.because(ReasonFrameRate)
		return limit.Max
	case domain.FrameRateDivide:
		r.because(ReasonFrameRate)
		return src.Div(Divisor(src, limit.Max))
	}
	return domain.Rational{}
}

// Divisor returns the smallest positive k with src/k <= target.
func Divisor(src, target domain.Rational) int64 {
	if !src.Valid() || !target.Valid() {
		return 1
	}
	num := new(big.Int).Mul(big.NewInt(src.Num), big.NewInt(target.Den))
	den := new(big.Int).Mul(big.NewInt(src.Den), big.NewInt(target.Num))
	k, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() > 0 {
		k.Add(k, big.NewInt(1))
	}
	if k.Sign() <= 0 {
		return 1
	}
	return k.Int64()
}
