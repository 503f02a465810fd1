package scheme

import (
	"math/big"
)

// Number is an exact integer or rational. Values are never mutated after
// construction; every operation allocates a fresh result.
type Number struct {
	r big.Rat
}

func NewInt(n int64) *Number {
	num := &Number{}
	num.r.SetInt64(n)
	return num
}

func NewBigInt(n *big.Int) *Number {
	num := &Number{}
	num.r.SetInt(n)
	return num
}

// NewRat returns num/den in lowest terms. den must be nonzero.
func NewRat(num, den *big.Int) *Number {
	n := &Number{}
	n.r.SetFrac(num, den)
	return n
}

func (n *Number) IsInteger() bool { return n.r.IsInt() }

func (n *Number) Sign() int { return n.r.Sign() }

func (n *Number) Cmp(o *Number) int { return n.r.Cmp(&o.r) }

// Int64 returns the value as an int64 when it is an integer that fits.
func (n *Number) Int64() (int64, bool) {
	if !n.r.IsInt() || !n.r.Num().IsInt64() {
		return 0, false
	}
	return n.r.Num().Int64(), true
}

func (n *Number) Numerator() *Number   { return NewBigInt(n.r.Num()) }
func (n *Number) Denominator() *Number { return NewBigInt(n.r.Denom()) }

func (n *Number) Add(o *Number) *Number {
	res := &Number{}
	res.r.Add(&n.r, &o.r)
	return res
}

func (n *Number) Sub(o *Number) *Number {
	res := &Number{}
	res.r.Sub(&n.r, &o.r)
	return res
}

func (n *Number) Mul(o *Number) *Number {
	res := &Number{}
	res.r.Mul(&n.r, &o.r)
	return res
}

// Quo divides n by o, promoting to a rational when the result is not integral.
func (n *Number) Quo(o *Number) (*Number, error) {
	if o.Sign() == 0 {
		return nil, &ArithmeticError{Op: "/", Reason: "division by zero"}
	}
	res := &Number{}
	res.r.Quo(&n.r, &o.r)
	return res, nil
}

func (n *Number) Neg() *Number {
	res := &Number{}
	res.r.Neg(&n.r)
	return res
}

func (n *Number) Abs() *Number {
	res := &Number{}
	res.r.Abs(&n.r)
	return res
}

// IntDiv implements quotient, remainder and modulo on integers.
// Quotient truncates toward zero; modulo takes the sign of the divisor.
func IntDiv(op string, a, b *Number) (*Number, error) {
	if !a.IsInteger() || !b.IsInteger() {
		return nil, &TypeError{Op: op, Want: "integer", Got: "rational"}
	}
	x, y := a.r.Num(), b.r.Num()
	if y.Sign() == 0 {
		return nil, &ArithmeticError{Op: op, Reason: "division by zero"}
	}
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	switch op {
	case "quotient":
		return NewBigInt(q), nil
	case "remainder":
		return NewBigInt(r), nil
	default:
		if r.Sign() != 0 && r.Sign() != y.Sign() {
			r.Add(r, y)
		}
		return NewBigInt(r), nil
	}
}

func (n *Number) String() string {
	if n.r.IsInt() {
		return n.r.Num().String()
	}
	return n.r.String()
}
