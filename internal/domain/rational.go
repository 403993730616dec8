package domain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Rational is an exact fraction. The zero value means "unknown".
type Rational struct {
	Num int64
	Den int64
}

func NewRational(num, den int64) Rational {
	if den == 0 {
		return Rational{}
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	if g > 1 {
		num /= g
		den /= g
	}
	return Rational{Num: num, Den: den}
}

// ParseRational accepts "num/den", "num:den" or a plain integer.
// "0/0" and "N/A" yield the zero Rational without error.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return Rational{}, nil
	}
	sep := strings.IndexAny(s, "/:")
	if sep < 0 {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
		return NewRational(n, 1), nil
	}
	num, err := strconv.ParseInt(s[:sep], 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	den, err := strconv.ParseInt(s[sep+1:], 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	return NewRational(num, den), nil
}

func (r Rational) Valid() bool { return r.Num > 0 && r.Den > 0 }

func (r Rational) IsOne() bool { return r.Valid() && r.Num == r.Den }

func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) Rat() *big.Rat {
	if r.Den == 0 {
		return new(big.Rat)
	}
	return big.NewRat(r.Num, r.Den)
}

// Cmp compares r and o exactly.
func (r Rational) Cmp(o Rational) int {
	return r.Rat().Cmp(o.Rat())
}

// Div divides r by a positive integer.
func (r Rational) Div(k int64) Rational {
	if k <= 0 || !r.Valid() {
		return r
	}
	return NewRational(r.Num, r.Den*k)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func (r Rational) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
