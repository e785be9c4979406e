package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/hwbermudan/config"
)

const parSwapRequest = `{
  "task_id": "atm-3nc1",
  "as_of": "2024-01-15",
  "calendar": "TARGET",
  "curve": {"par_swaps": {"quotes": {"1Y": 0.031, "2Y": 0.032, "5Y": 0.034, "10Y": 0.036}, "freq_months": 12}},
  "model": {"mean_reversion": 0.03, "volatility_times": [1, 2, 3], "volatility_values": [0.006, 0.0065, 0.007]},
  "engine": "pde",
  "call_or_put": 1,
  "swaption": {"expiries": ["1Y", "2Y", "3Y"], "maturity": "6Y", "atm": true}
}`

func TestParseInputs(t *testing.T) {
	t.Parallel()

	in, isArray, err := parseInputs([]byte(parSwapRequest), false)
	require.NoError(t, err)
	assert.False(t, isArray)
	require.Len(t, in, 1)
	assert.Equal(t, "atm-3nc1", in[0].TaskID)
	require.NotNil(t, in[0].Curve.ParSwaps)
	assert.Equal(t, 0.034, in[0].Curve.ParSwaps.Quotes["5Y"])
	assert.True(t, in[0].Swaption.ATM)

	in, isArray, err = parseInputs([]byte("["+parSwapRequest+","+parSwapRequest+"]"), false)
	require.NoError(t, err)
	assert.True(t, isArray)
	assert.Len(t, in, 2)

	yamlReq := `
task_id: flat
curve:
  flat_rate: 0.03
model:
  mean_reversion: 0.03
  volatility_times: [1]
  volatility_values: [0.007]
exercises:
  - expiry: 1
    pay_times: [1, 2]
    cash_flows: [-1, 1.03]
`
	in, isArray, err = parseInputs([]byte(yamlReq), true)
	require.NoError(t, err)
	assert.False(t, isArray)
	require.Len(t, in, 1)
	require.NotNil(t, in[0].Curve.FlatRate)
	assert.Equal(t, []float64{-1, 1.03}, in[0].Exercises[0].CashFlows)

	_, _, err = parseInputs([]byte("  "), false)
	require.Error(t, err)
	_, _, err = parseInputs([]byte("[]"), false)
	require.Error(t, err)
}

func TestProcess_ParSwapATM(t *testing.T) {
	t.Parallel()

	in, _, err := parseInputs([]byte(parSwapRequest), false)
	require.NoError(t, err)
	out, err := process(context.Background(), in[0], config.DefaultConfig)
	require.NoError(t, err)

	assert.Equal(t, "pde", out.Engine)
	require.Len(t, out.Europeans, 3)
	require.Len(t, out.ExpiryTimes, 3)
	for _, p := range out.Europeans {
		assert.Greater(t, p, 0.0)
	}
	assert.Greater(t, out.NPV, 0.0)
	assert.Greater(t, out.SwitchOption, -1.0e-4)

	var buf bytes.Buffer
	renderTable(&buf, []valuationOutput{*out})
	assert.Contains(t, buf.String(), "atm-3nc1")
}

func TestProcess_Errors(t *testing.T) {
	t.Parallel()

	noCurve := valuationRequest{
		Model: modelJSON{MeanReversion: 0.03, VolatilityTimes: []float64{1}, VolatilityValues: []float64{0.007}},
	}
	_, err := process(context.Background(), noCurve, config.DefaultConfig)
	require.Error(t, err)

	rate := 0.03
	noExercise := noCurve
	noExercise.Curve = curveJSON{FlatRate: &rate}
	_, err = process(context.Background(), noExercise, config.DefaultConfig)
	require.Error(t, err)
}
