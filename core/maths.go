package core

import "math/big"

// Amounts are 18 decimal fixed point numbers ("wads"), the token's own unit.
var (
	wad     = big.NewInt(1e18)
	halfWad = big.NewInt(5e17)
)

// percent returns p percent as a wad.
func percent(p int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(p), big.NewInt(1e16))
}

// wmul multiplies two wads rounding half up.
func wmul(x, y *big.Int) *big.Int {
	r := new(big.Int).Mul(x, y)
	r.Add(r, halfWad)
	return r.Quo(r, wad)
}

// wdiv divides two wads rounding half up. y must not be zero.
func wdiv(x, y *big.Int) *big.Int {
	r := new(big.Int).Mul(x, wad)
	r.Add(r, new(big.Int).Quo(y, big.NewInt(2)))
	return r.Quo(r, y)
}

// wsquare is the quadratic cost of allocating |x| votes.
func wsquare(x *big.Int) *big.Int {
	a := new(big.Int).Abs(x)
	return wmul(a, a)
}

func add(x, y *big.Int) *big.Int {
	return new(big.Int).Add(x, y)
}

func sub(x, y *big.Int) *big.Int {
	return new(big.Int).Sub(x, y)
}

// ninetyPercent is the slate budget cap of a period's funds.
func ninetyPercent(x *big.Int) *big.Int {
	r := new(big.Int).Mul(x, big.NewInt(9))
	return r.Quo(r, big.NewInt(10))
}

// tenth is the delegate reward pool share of a period's funds.
func tenth(x *big.Int) *big.Int {
	return new(big.Int).Quo(x, big.NewInt(10))
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
