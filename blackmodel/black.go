// Package blackmodel prices options on forwards under lognormal (Black) and
// normal (Bachelier) dynamics and inverts both for implied volatility.
package blackmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/hwbermudan/numerics"
)

// Call and Put select the option side in all pricing functions.
const (
	Call = 1.0
	Put  = -1.0
)

// minStdDev is the total standard deviation below which prices collapse to intrinsic value.
const minStdDev = 1.0e-12

var normal = distuv.UnitNormal

// Black prices an option on a lognormal forward.
//
// stdDev is the total standard deviation sigma*sqrt(T); annuity scales the undiscounted price.
// A non-positive strike or forward has no lognormal law and prices at intrinsic value.
func Black(strike, forward, stdDev, annuity, callOrPut float64) float64 {
	if stdDev < minStdDev || strike <= 0 || forward <= 0 {
		return annuity * math.Max(callOrPut*(forward-strike), 0.0)
	}
	d1 := math.Log(forward/strike)/stdDev + stdDev/2.0
	d2 := d1 - stdDev
	return annuity * callOrPut * (forward*normal.CDF(callOrPut*d1) - strike*normal.CDF(callOrPut*d2))
}

// BlackImpliedVol inverts Black for sigma over [lo, hi].
func BlackImpliedVol(price, strike, forward, T, callOrPut float64, b numerics.Bracket) (float64, error) {
	obj := func(sigma float64) float64 {
		return Black(strike, forward, sigma*math.Sqrt(T), 1.0, callOrPut) - price
	}
	v, err := numerics.Brent(obj, b, numerics.DefaultRootOptions)
	if err != nil {
		return 0, fmt.Errorf("BlackImpliedVol: price %g strike %g forward %g: %w", price, strike, forward, err)
	}
	return v, nil
}

// Bachelier prices an undiscounted option on a normal forward.
func Bachelier(strike, forward, sigma, T, callOrPut float64) float64 {
	stdDev := sigma * math.Sqrt(T)
	if stdDev < minStdDev {
		return math.Max(callOrPut*(forward-strike), 0.0)
	}
	d := callOrPut * (forward - strike) / stdDev
	return stdDev * (d*normal.CDF(d) + normal.Prob(d))
}

// BachelierVega is the derivative of Bachelier with respect to sigma.
func BachelierVega(strike, forward, sigma, T float64) float64 {
	stdDev := sigma * math.Sqrt(T)
	if stdDev < minStdDev {
		return 0.0
	}
	d := (forward - strike) / stdDev
	return math.Sqrt(T) * normal.Prob(d)
}

// BachelierImpliedVol inverts Bachelier for sigma over the given bracket.
func BachelierImpliedVol(price, strike, forward, T, callOrPut float64, b numerics.Bracket) (float64, error) {
	obj := func(sigma float64) float64 {
		return Bachelier(strike, forward, sigma, T, callOrPut) - price
	}
	v, err := numerics.Brent(obj, b, numerics.DefaultRootOptions)
	if err != nil {
		return 0, fmt.Errorf("BachelierImpliedVol: price %g strike %g forward %g: %w", price, strike, forward, err)
	}
	return v, nil
}

// Default implied volatility search ranges.
var (
	BlackVolBracket     = numerics.Bracket{Lower: 0.01, Upper: 1.0}
	BachelierVolBracket = numerics.Bracket{Lower: 1.0e-4, Upper: 0.1}
)
