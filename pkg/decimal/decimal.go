// Package decimal renders a final tape as a radix-r fraction.
//
// Cells are sampled from a start offset with a fixed stride. A cell whose
// value is below the radix contributes that digit; the first cell at or
// above the radix ends the digit string. The digits d1 d2 ... dn are read
// as the fraction 0.d1d2...dn in the given radix and printed in base 10.
package decimal

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

const (
	// MinRadix and MaxRadix bound the digit radix.
	MinRadix = 2
	MaxRadix = 36

	// DefaultDigits is the rendering precision used when Options.Digits
	// is zero.
	DefaultDigits = 1000
)

// Options selects which cells form the digit string and how the fraction
// is rendered.
type Options struct {
	// Radix is the base the digits are read in.
	Radix uint16

	// Start is the index of the first sampled cell.
	Start int

	// Stride is the distance between sampled cells.
	Stride int

	// Digits is the rendering precision in significant digits. Zero
	// means DefaultDigits.
	Digits int
}

// DefaultOptions mirrors the conventional tape layout: digits on even
// squares starting at position 2, read in binary.
func DefaultOptions() Options {
	return Options{Radix: 2, Start: 2, Stride: 2, Digits: DefaultDigits}
}

// Zero is the rendering of a tape with no digits, and of a fraction whose
// digits are all zero.
const Zero = "0.0"

// Interpret renders the fractional interpretation of cells under opts.
func Interpret(cells []uint16, opts Options) (string, error) {
	if opts.Radix < MinRadix || opts.Radix > MaxRadix {
		return "", fmt.Errorf("radix %d out of range [%d, %d]", opts.Radix, MinRadix, MaxRadix)
	}
	if opts.Start < 0 {
		return "", fmt.Errorf("start %d is negative", opts.Start)
	}
	if opts.Stride < 1 {
		return "", fmt.Errorf("stride %d is not positive", opts.Stride)
	}
	digits := opts.Digits
	if digits == 0 {
		digits = DefaultDigits
	}
	if digits < 1 {
		return "", fmt.Errorf("digits %d is not positive", opts.Digits)
	}

	var sampled []uint16
	for i := opts.Start; i < len(cells); i += opts.Stride {
		if cells[i] >= opts.Radix {
			break
		}
		sampled = append(sampled, cells[i])
	}
	if len(sampled) == 0 {
		return Zero, nil
	}

	radix := big.NewInt(int64(opts.Radix))
	num := new(big.Int)
	for _, d := range sampled {
		num.Mul(num, radix)
		num.Add(num, big.NewInt(int64(d)))
	}
	den := new(big.Int).Exp(radix, big.NewInt(int64(len(sampled))), nil)

	ctx := apd.BaseContext.WithPrecision(uint32(digits))
	n := new(apd.Decimal)
	n.Coeff.SetMathBigInt(num)
	d := new(apd.Decimal)
	d.Coeff.SetMathBigInt(den)

	q := new(apd.Decimal)
	if _, err := ctx.Quo(q, n, d); err != nil {
		return "", fmt.Errorf("rendering fraction: %w", err)
	}
	// Drop trailing zeros so exact fractions print without padding.
	q.Reduce(q)

	out := q.Text('f')
	if allZero(out) {
		return Zero, nil
	}
	return out, nil
}

// allZero reports whether every digit character in s is '0'.
func allZero(s string) bool {
	return !strings.ContainsAny(s, "123456789")
}
