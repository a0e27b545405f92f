// Package fraction implements exact rational arithmetic for rhythmic time.
//
// Tick positions and durations are kept as fractions so that voices with
// different subdivisions (triplets against duplets, nested tuplets) compare
// exactly equal when they land on the same instant. Floating point is only
// used at the edges, via [Fraction.Value].
//
// Arithmetic methods mutate the receiver and return it, so calls chain:
//
//	f := fraction.New(1, 4)
//	f.Add(fraction.New(1, 8)).Mul(fraction.New(2, 3)) // f == 1/4
//
// A zero denominator is a precondition violation. Constructors and every
// arithmetic or comparison method panic with an errors.ErrCodePrecondition
// error when one is produced or passed in (including the zero value
// Fraction{}); [Checked] and [Parse] report it as an error instead.
package fraction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/engrave/pkg/errors"
)

// Fraction is a numerator/denominator pair. The zero value is not usable;
// construct with [New], [FromInt] or [Parse].
type Fraction struct {
	Num int64
	Den int64
}

// New returns num/den simplified. It panics if den is zero.
func New(num, den int64) Fraction {
	f := Fraction{}
	f.Set(num, den)
	return f
}

// FromInt returns n/1.
func FromInt(n int64) Fraction {
	return Fraction{Num: n, Den: 1}
}

// Checked is like [New] but returns an error instead of panicking.
func Checked(num, den int64) (Fraction, error) {
	if den == 0 {
		return Fraction{}, zeroDenominator(num)
	}
	return New(num, den), nil
}

// Parse reads "n/d" or "n". Whitespace around the parts is ignored.
func Parse(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	numStr, denStr, hasDen := strings.Cut(s, "/")
	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return Fraction{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse fraction %q", s)
	}
	if !hasDen {
		return FromInt(num), nil
	}
	den, err := strconv.ParseInt(strings.TrimSpace(denStr), 10, 64)
	if err != nil {
		return Fraction{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse fraction %q", s)
	}
	return Checked(num, den)
}

func zeroDenominator(num int64) *errors.Error {
	return errors.New(errors.ErrCodePrecondition, "fraction %d/0 has a zero denominator", num)
}

// mustValid panics when any operand has a zero denominator, which is what
// the zero value Fraction{} looks like.
func mustValid(fs ...Fraction) {
	for _, f := range fs {
		if f.Den == 0 {
			panic(zeroDenominator(f.Num))
		}
	}
}

// Set replaces the value with num/den, simplified.
func (f *Fraction) Set(num, den int64) *Fraction {
	if den == 0 {
		panic(zeroDenominator(num))
	}
	f.Num, f.Den = num, den
	return f.Simplify()
}

// Simplify divides both parts by their gcd and keeps the denominator positive.
func (f *Fraction) Simplify() *Fraction {
	if f.Den == 0 {
		panic(zeroDenominator(f.Num))
	}
	g := GCD(f.Num, f.Den)
	f.Num /= g
	f.Den /= g
	if f.Den < 0 {
		f.Num, f.Den = -f.Num, -f.Den
	}
	return f
}

// Add sets f = f + o.
func (f *Fraction) Add(o Fraction) *Fraction {
	mustValid(*f, o)
	l := LCM(f.Den, o.Den)
	return f.Set(f.Num*(l/f.Den)+o.Num*(l/o.Den), l)
}

// Sub sets f = f - o.
func (f *Fraction) Sub(o Fraction) *Fraction {
	mustValid(*f, o)
	l := LCM(f.Den, o.Den)
	return f.Set(f.Num*(l/f.Den)-o.Num*(l/o.Den), l)
}

// Mul sets f = f * o.
func (f *Fraction) Mul(o Fraction) *Fraction {
	mustValid(*f, o)
	return f.Set(f.Num*o.Num, f.Den*o.Den)
}

// Div sets f = f / o. It panics if o is zero.
func (f *Fraction) Div(o Fraction) *Fraction {
	mustValid(*f, o)
	if o.Num == 0 {
		panic(errors.New(errors.ErrCodePrecondition, "division of %s by zero", f))
	}
	return f.Set(f.Num*o.Den, f.Den*o.Num)
}

// MulInt sets f = f * n.
func (f *Fraction) MulInt(n int64) *Fraction {
	mustValid(*f)
	return f.Set(f.Num*n, f.Den)
}

// Clone returns an independent copy.
func (f Fraction) Clone() Fraction {
	return f
}

// Value returns the float64 quotient.
func (f Fraction) Value() float64 {
	mustValid(f)
	return float64(f.Num) / float64(f.Den)
}

// Quotient returns the integer part of the division, truncated toward zero.
func (f Fraction) Quotient() int64 {
	mustValid(f)
	return f.Num / f.Den
}

// Remainder returns Num mod Den with the sign of Num.
func (f Fraction) Remainder() int64 {
	mustValid(f)
	return f.Num % f.Den
}

// IsZero reports whether the fraction equals zero.
func (f Fraction) IsZero() bool {
	return f.Num == 0
}

// Equals compares simplified forms.
func (f Fraction) Equals(o Fraction) bool {
	a, b := f, o
	a.Simplify()
	b.Simplify()
	return a.Num == b.Num && a.Den == b.Den
}

// Compare returns -1, 0 or +1 from the sign of f - o.
func (f Fraction) Compare(o Fraction) int {
	mustValid(f, o)
	d := f
	d.Sub(o)
	switch {
	case d.Num > 0:
		return 1
	case d.Num < 0:
		return -1
	}
	return 0
}

func (f Fraction) GreaterThan(o Fraction) bool       { return f.Compare(o) > 0 }
func (f Fraction) GreaterThanEquals(o Fraction) bool { return f.Compare(o) >= 0 }
func (f Fraction) LessThan(o Fraction) bool          { return f.Compare(o) < 0 }
func (f Fraction) LessThanEquals(o Fraction) bool    { return f.Compare(o) <= 0 }

// String formats as "n/d".
func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// MixedString formats as "q r/d" when the value exceeds one.
func (f Fraction) MixedString() string {
	s := f
	s.Simplify()
	q, r := s.Quotient(), s.Remainder()
	switch {
	case r == 0:
		return strconv.FormatInt(q, 10)
	case q == 0:
		return s.String()
	}
	if r < 0 {
		r = -r
	}
	return fmt.Sprintf("%d %d/%d", q, r, s.Den)
}

// GCD returns the greatest common divisor of a and b, always positive
// unless both are zero.
func GCD(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// LCM returns the least common multiple of a and b.
func LCM(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	l := a / GCD(a, b) * b
	if l < 0 {
		return -l
	}
	return l
}

// LCMM returns the least common multiple of all values, or 1 for none.
func LCMM(values ...int64) int64 {
	out := int64(1)
	for _, v := range values {
		out = LCM(out, v)
	}
	return out
}
