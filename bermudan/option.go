// Package bermudan drives backward induction over exercise dates with any
// roll-back engine.
package bermudan

import (
	"context"
	"fmt"
	"math"

	"github.com/meenmo/hwbermudan/internal/logger"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/payoff"
	"github.com/meenmo/hwbermudan/utils"
)

// Method is the roll-back engine contract.
//
// XSet returns the native state set at t. RollBack receives exercise values U1 and
// hold values H1 on x1 at T1 and returns the state set and hold values at T0.
type Method interface {
	Name() string
	XSet(t float64) []float64
	RollBack(T0, T1 float64, x1, U1, H1 []float64) ([]float64, []float64, error)
}

// StepError identifies the roll-back step that failed. Step is the index of
// the exercise date at T1 (1-based); the final roll to time zero is step 0.
type StepError struct {
	Engine string
	Step   int
	T0     float64
	T1     float64
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s roll-back step %d [%g, %g]: %v", e.Engine, e.Step, e.T0, e.T1, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Option is a valued Bermudan option: the state set and hold values at time zero.
type Option struct {
	expiryTimes []float64
	underlyings []payoff.Payoff
	method      string
	x           []float64
	H           []float64
}

// NewOption values the option exercisable into underlyings[k] at expiryTimes[k].
func NewOption(ctx context.Context, expiryTimes []float64, underlyings []payoff.Payoff, method Method) (*Option, error) {
	if len(expiryTimes) != len(underlyings) {
		return nil, fmt.Errorf("bermudan.NewOption: %d expiries, %d underlyings: %w", len(expiryTimes), len(underlyings), numerics.ErrDimensionMismatch)
	}
	if len(expiryTimes) == 0 {
		return nil, fmt.Errorf("bermudan.NewOption: no exercise dates: %w", numerics.ErrInvalidInput)
	}
	if method == nil {
		return nil, fmt.Errorf("bermudan.NewOption: nil method: %w", numerics.ErrInvalidInput)
	}
	prev := 0.0
	for i, t := range expiryTimes {
		if !(t > prev) {
			return nil, fmt.Errorf("bermudan.NewOption: expiry times must be positive and ascending (index %d, t=%g): %w", i, t, numerics.ErrInvalidInput)
		}
		if underlyings[i] == nil {
			return nil, fmt.Errorf("bermudan.NewOption: nil underlying at index %d: %w", i, numerics.ErrInvalidInput)
		}
		if math.Abs(underlyings[i].ObservationTime()-t) > utils.TimeTolerance {
			logger.Warn(ctx, "underlying observed off its exercise date",
				"index", i, "expiry", t, "observation", underlyings[i].ObservationTime())
		}
		prev = t
	}

	o := &Option{
		expiryTimes: append([]float64(nil), expiryTimes...),
		underlyings: append([]payoff.Payoff(nil), underlyings...),
		method:      method.Name(),
	}
	if err := o.induct(ctx, method); err != nil {
		return nil, err
	}
	logger.Info(ctx, "bermudan option valued",
		"engine", o.method, "exercises", len(o.expiryTimes), "npv", o.NPV())
	return o, nil
}

// NewEuropean values a single exercise date.
func NewEuropean(ctx context.Context, expiry float64, underlying payoff.Payoff, method Method) (*Option, error) {
	return NewOption(ctx, []float64{expiry}, []payoff.Payoff{underlying}, method)
}

func (o *Option) induct(ctx context.Context, method Method) error {
	K := len(o.expiryTimes)
	var x, U, H []float64
	for k := K; k >= 1; k-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		T := o.expiryTimes[k-1]
		if k == K {
			x = method.XSet(T)
			if len(x) == 0 {
				return &StepError{Engine: method.Name(), Step: k, T0: T, T1: T,
					Err: fmt.Errorf("empty state set: %w", numerics.ErrInvalidInput)}
			}
			H = make([]float64, len(x))
		} else {
			var err error
			T1 := o.expiryTimes[k]
			x, H, err = method.RollBack(T, T1, x, U, H)
			if err != nil {
				return &StepError{Engine: method.Name(), Step: k + 1, T0: T, T1: T1, Err: err}
			}
			logger.Debug(ctx, "rolled back", "engine", method.Name(), "step", k+1, "t0", T, "t1", T1, "states", len(x))
		}
		U = payoff.OnGrid(o.underlyings[k-1], x)
	}
	T1 := o.expiryTimes[0]
	x, H, err := method.RollBack(0.0, T1, x, U, H)
	if err != nil {
		return &StepError{Engine: method.Name(), Step: 0, T0: 0.0, T1: T1, Err: err}
	}
	logger.Debug(ctx, "rolled back", "engine", method.Name(), "step", 0, "t0", 0.0, "t1", T1, "states", len(x))
	o.x, o.H = x, H
	return nil
}

// NPV is H[0] on a single state, else H interpolated at x = 0.
func (o *Option) NPV() float64 {
	if len(o.H) == 1 {
		return o.H[0]
	}
	return utils.Interp(0.0, o.x, o.H)
}

// State returns the time-zero state set and hold values.
func (o *Option) State() ([]float64, []float64) { return o.x, o.H }

// ExpiryTimes returns the exercise schedule.
func (o *Option) ExpiryTimes() []float64 { return append([]float64(nil), o.expiryTimes...) }

// Engine returns the name of the method used.
func (o *Option) Engine() string { return o.method }
