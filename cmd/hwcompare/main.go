package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/meenmo/hwbermudan/amc"
	"github.com/meenmo/hwbermudan/bermudan"
	"github.com/meenmo/hwbermudan/config"
	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/density"
	"github.com/meenmo/hwbermudan/engine"
	"github.com/meenmo/hwbermudan/hullwhite"
	"github.com/meenmo/hwbermudan/internal/logger"
	"github.com/meenmo/hwbermudan/mcsim"
	"github.com/meenmo/hwbermudan/payoff"
	"github.com/meenmo/hwbermudan/pde"
)

type row struct {
	method string
	price  float64
	stdErr float64
}

func main() {
	rate := flag.Float64("rate", 0.03, "flat continuously-compounded rate")
	a := flag.Float64("a", 0.05, "mean reversion")
	vol := flag.Float64("vol", 0.01, "flat short-rate volatility")
	expiry := flag.Int("expiry", 12, "option expiry in years")
	maturity := flag.Int("maturity", 20, "bond maturity in years")
	coupon := flag.Float64("coupon", 0.03, "annual coupon")
	callOrPut := flag.Float64("cp", 1.0, "1 for a call on the bond, -1 for a put")
	configPath := flag.String("config", "", "engine configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	if err := logger.Init(cfg.Logger); err != nil {
		fail(err)
	}
	if *maturity <= *expiry {
		fail(fmt.Errorf("maturity %d must exceed expiry %d", *maturity, *expiry))
	}

	T := float64(*expiry)
	payTimes := []float64{T}
	cashFlows := []float64{-1.0}
	for k := *expiry + 1; k <= *maturity; k++ {
		payTimes = append(payTimes, float64(k))
		cashFlows = append(cashFlows, *coupon)
	}
	payTimes = append(payTimes, float64(*maturity))
	cashFlows = append(cashFlows, 1.0)

	m, err := hullwhite.NewModelWithOptions(curve.Flat{Rate: *rate}, *a, []float64{float64(*maturity)}, []float64{*vol}, cfg.HullWhiteOptions())
	if err != nil {
		fail(err)
	}
	bond, err := payoff.NewCouponBond(m, T, payTimes, cashFlows)
	if err != nil {
		fail(err)
	}
	option := payoff.VanillaOption{Underlying: bond, Strike: 0.0, CallOrPut: *callOrPut}

	analytic, err := m.CouponBondOption(T, payTimes, cashFlows, 0.0, *callOrPut)
	if err != nil {
		fail(err)
	}
	rows := []row{{method: "analytic", price: analytic}}

	ctx := context.Background()
	methods, err := buildMethods(ctx, m, *cfg, T)
	if err != nil {
		fail(err)
	}
	for _, method := range methods {
		o, err := bermudan.NewEuropean(ctx, T, option, method)
		if err != nil {
			fail(err)
		}
		rows = append(rows, row{method: method.Name(), price: o.NPV(), stdErr: math.NaN()})
	}

	sim, err := mcsim.NewSimulation(ctx, m, engine.SimulationTimes([]float64{T}, cfg.AMC.SimulationStep), cfg.SimulationSettings())
	if err != nil {
		fail(err)
	}
	est, err := sim.NPV(payoff.Pay{Payoff: option, Time: T})
	if err != nil {
		fail(err)
	}
	rows = append(rows, row{method: "monte-carlo", price: est.Mean, stdErr: est.StdErr})

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Method", "Price", "Diff (bp)", "Std Err")
	for _, r := range rows {
		se := "-"
		if !math.IsNaN(r.stdErr) && r.stdErr > 0 {
			se = fmt.Sprintf("%.8f", r.stdErr)
		}
		_ = table.Append(r.method, fmt.Sprintf("%.8f", r.price), fmt.Sprintf("%.4f", 1e4*(r.price-analytic)), se)
	}
	_ = table.Render()
}

func buildMethods(ctx context.Context, m *hullwhite.Model, cfg config.Config, T float64) ([]bermudan.Method, error) {
	var out []bermudan.Method
	p, err := pde.NewSolver(m, cfg.PDESettings())
	if err != nil {
		return nil, err
	}
	out = append(out, p)

	ds := cfg.DensitySettings()
	exact, err := density.NewCubicSplineExact(m, ds)
	if err != nil {
		return nil, err
	}
	simpson, err := density.NewSimpson(m, ds)
	if err != nil {
		return nil, err
	}
	hermite, err := density.NewHermite(m, cfg.Density.HermiteDegree, ds)
	if err != nil {
		return nil, err
	}
	out = append(out, exact, density.NewBreakEven(exact), simpson, density.NewBreakEven(simpson), hermite, density.NewBreakEven(hermite))

	sim, err := mcsim.NewSimulation(ctx, m, engine.SimulationTimes([]float64{T}, cfg.AMC.SimulationStep), cfg.SimulationSettings())
	if err != nil {
		return nil, err
	}
	for _, st := range []amc.Strategy{amc.ExerciseBoundary, amc.ContinuationValue} {
		s, err := cfg.AMCSettings()
		if err != nil {
			return nil, err
		}
		s.Strategy = st
		solver, err := amc.NewSolver(sim, s)
		if err != nil {
			return nil, err
		}
		out = append(out, solver)
	}
	return out, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "hwcompare:", err)
	os.Exit(1)
}
