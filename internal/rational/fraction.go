// Package rational provides exact non-negative rational arithmetic.
//
// Capacities in the simulator can be fractional (e.g. 1/2), and the capacity
// carry-over accumulator must be exact: floating point would drift and break
// the determinism the simulator guarantees. Fraction keeps numerator and
// denominator as int64 and promotes cross-multiplication to math/big so
// legitimate 64-bit-range values never spuriously overflow.
package rational

import (
	"fmt"
	"math/big"

	"flowsim/pkg/apperror"
)

// Fraction is a non-negative rational number numerator/denominator, with
// denominator always strictly positive. Values are not kept in reduced form
// automatically; call Reduce to canonicalize.
type Fraction struct {
	Numerator   int64
	Denominator int64
}

// New constructs a Fraction, requiring n >= 0 and d > 0.
func New(n, d int64) (Fraction, error) {
	if n < 0 {
		return Fraction{}, apperror.New(apperror.CodeNegativeNumerator,
			fmt.Sprintf("fraction numerator must be non-negative, got %d", n))
	}
	if d <= 0 {
		return Fraction{}, apperror.New(apperror.CodeNonPositiveDenominator,
			fmt.Sprintf("fraction denominator must be positive, got %d", d))
	}
	return Fraction{Numerator: n, Denominator: d}, nil
}

// MustNew is New but panics on error; only safe for compile-time constants.
func MustNew(n, d int64) Fraction {
	f, err := New(n, d)
	if err != nil {
		panic(err)
	}
	return f
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// Reduce returns the canonical form of f, with gcd(numerator, denominator) = 1.
func (f Fraction) Reduce() Fraction {
	if f.Numerator == 0 {
		return Fraction{Numerator: 0, Denominator: 1}
	}
	g := gcd(f.Numerator, f.Denominator)
	if g <= 1 {
		return f
	}
	return Fraction{Numerator: f.Numerator / g, Denominator: f.Denominator / g}
}

// Floor returns floor(numerator/denominator) as an integer.
func (f Fraction) Floor() int64 {
	return f.Numerator / f.Denominator
}

// crossMultiply computes a.Numerator*b.Denominator and b.Numerator*a.Denominator
// using math/big, so 64-bit-range operands never wrap around silently.
func crossMultiply(a, b Fraction) (*big.Int, *big.Int) {
	left := new(big.Int).Mul(big.NewInt(a.Numerator), big.NewInt(b.Denominator))
	right := new(big.Int).Mul(big.NewInt(b.Numerator), big.NewInt(a.Denominator))
	return left, right
}

// Cmp returns -1, 0, or 1 as f is less than, equal to, or greater than g.
func (f Fraction) Cmp(g Fraction) int {
	left, right := crossMultiply(f, g)
	return left.Cmp(right)
}

// Equal reports whether f and g denote the same rational value.
func (f Fraction) Equal(g Fraction) bool {
	return f.Cmp(g) == 0
}

// Less reports whether f < g.
func (f Fraction) Less(g Fraction) bool {
	return f.Cmp(g) < 0
}

// LessEq reports whether f <= g.
func (f Fraction) LessEq(g Fraction) bool {
	return f.Cmp(g) <= 0
}

func bigToInt64(v *big.Int, opName string) (int64, error) {
	if !v.IsInt64() {
		return 0, apperror.New(apperror.CodeOverflow,
			fmt.Sprintf("fraction %s overflowed int64", opName))
	}
	return v.Int64(), nil
}

// Add returns f + g, exact.
func (f Fraction) Add(g Fraction) (Fraction, error) {
	num := new(big.Int).Add(
		new(big.Int).Mul(big.NewInt(f.Numerator), big.NewInt(g.Denominator)),
		new(big.Int).Mul(big.NewInt(g.Numerator), big.NewInt(f.Denominator)),
	)
	den := new(big.Int).Mul(big.NewInt(f.Denominator), big.NewInt(g.Denominator))
	n, err := bigToInt64(num, "add numerator")
	if err != nil {
		return Fraction{}, err
	}
	d, err := bigToInt64(den, "add denominator")
	if err != nil {
		return Fraction{}, err
	}
	return Fraction{Numerator: n, Denominator: d}.Reduce(), nil
}

// Sub returns f - g. Requires f >= g, since Fraction is non-negative only.
func (f Fraction) Sub(g Fraction) (Fraction, error) {
	if f.Less(g) {
		return Fraction{}, apperror.New(apperror.CodeNegativeNumerator,
			fmt.Sprintf("fraction subtraction would be negative: %d/%d - %d/%d",
				f.Numerator, f.Denominator, g.Numerator, g.Denominator))
	}
	num := new(big.Int).Sub(
		new(big.Int).Mul(big.NewInt(f.Numerator), big.NewInt(g.Denominator)),
		new(big.Int).Mul(big.NewInt(g.Numerator), big.NewInt(f.Denominator)),
	)
	den := new(big.Int).Mul(big.NewInt(f.Denominator), big.NewInt(g.Denominator))
	n, err := bigToInt64(num, "sub numerator")
	if err != nil {
		return Fraction{}, err
	}
	d, err := bigToInt64(den, "sub denominator")
	if err != nil {
		return Fraction{}, err
	}
	return Fraction{Numerator: n, Denominator: d}.Reduce(), nil
}

// Mul returns f * g, exact.
func (f Fraction) Mul(g Fraction) (Fraction, error) {
	num := new(big.Int).Mul(big.NewInt(f.Numerator), big.NewInt(g.Numerator))
	den := new(big.Int).Mul(big.NewInt(f.Denominator), big.NewInt(g.Denominator))
	n, err := bigToInt64(num, "mul numerator")
	if err != nil {
		return Fraction{}, err
	}
	d, err := bigToInt64(den, "mul denominator")
	if err != nil {
		return Fraction{}, err
	}
	return Fraction{Numerator: n, Denominator: d}.Reduce(), nil
}

// Div returns f / g. Requires g to be non-zero (guaranteed by the
// non-negative/positive-denominator invariant, except when g's numerator is 0).
func (f Fraction) Div(g Fraction) (Fraction, error) {
	if g.Numerator == 0 {
		return Fraction{}, apperror.New(apperror.CodeNonPositiveDenominator,
			"division by zero fraction")
	}
	num := new(big.Int).Mul(big.NewInt(f.Numerator), big.NewInt(g.Denominator))
	den := new(big.Int).Mul(big.NewInt(f.Denominator), big.NewInt(g.Numerator))
	n, err := bigToInt64(num, "div numerator")
	if err != nil {
		return Fraction{}, err
	}
	d, err := bigToInt64(den, "div denominator")
	if err != nil {
		return Fraction{}, err
	}
	return Fraction{Numerator: n, Denominator: d}.Reduce(), nil
}

// String renders the fraction as "numerator/denominator".
func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// Zero is the additive identity.
var Zero = Fraction{Numerator: 0, Denominator: 1}

// One is the multiplicative identity.
var One = Fraction{Numerator: 1, Denominator: 1}
