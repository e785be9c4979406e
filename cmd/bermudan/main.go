package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/meenmo/hwbermudan/bermudan"
	"github.com/meenmo/hwbermudan/calibration"
	"github.com/meenmo/hwbermudan/config"
	"github.com/meenmo/hwbermudan/engine"
	"github.com/meenmo/hwbermudan/internal/logger"
)

type valuationOutput struct {
	TaskID       string    `json:"task_id,omitempty"`
	Engine       string    `json:"engine,omitempty"`
	NPV          float64   `json:"npv"`
	ExpiryTimes  []float64 `json:"expiry_times,omitempty"`
	Europeans    []float64 `json:"europeans,omitempty"`
	MaxEuropean  float64   `json:"max_european"`
	SwitchOption float64   `json:"switch_option"`
	Error        string    `json:"error,omitempty"`
}

func main() {
	inputPath := flag.String("input", "", "JSON or YAML request path (reads stdin if omitted)")
	configPath := flag.String("config", "", "engine configuration file (TOML, YAML or JSON)")
	format := flag.String("format", "json", "output format: json or table")
	asYAML := flag.Bool("yaml", false, "parse stdin as YAML")
	help := flag.Bool("h", false, "Show help")
	flag.BoolVar(help, "help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Fprintln(os.Stderr, "Usage: bermudan -input <path> [-config <path>] [-format json|table]")
		fmt.Fprintln(os.Stderr, "Value a Bermudan coupon-bond option under Hull-White with the pde, density or amc engine.")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		exitError(fmt.Sprintf("load config: %v", err))
	}
	if err := logger.Init(cfg.Logger); err != nil {
		exitError(fmt.Sprintf("init logger: %v", err))
	}

	path := strings.TrimSpace(*inputPath)
	if path == "" {
		if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			fmt.Fprintln(os.Stderr, "Usage: bermudan -input <path>")
			os.Exit(2)
		}
	}
	raw, err := readInput(path)
	if err != nil {
		exitError(fmt.Sprintf("read input: %v", err))
	}
	isYAML := *asYAML || strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
	inputs, isArray, err := parseInputs(raw, isYAML)
	if err != nil {
		exitError(fmt.Sprintf("parse input: %v", err))
	}

	ctx := context.Background()
	hadError := false
	outputs := make([]valuationOutput, 0, len(inputs))
	for i, in := range inputs {
		id := in.TaskID
		if id == "" {
			id = fmt.Sprintf("%s#%d", filepath.Base(path), i)
		}
		out, err := process(logger.WithValuationID(ctx, id), in, *cfg)
		if err != nil {
			hadError = true
			logger.Error(ctx, "valuation failed", "task_id", in.TaskID, "error", err)
			outputs = append(outputs, valuationOutput{TaskID: in.TaskID, Error: err.Error()})
			continue
		}
		outputs = append(outputs, *out)
	}

	switch *format {
	case "table":
		renderTable(os.Stdout, outputs)
	default:
		var b []byte
		if isArray {
			b, _ = json.Marshal(outputs)
		} else {
			b, _ = json.Marshal(outputs[0])
		}
		fmt.Println(string(b))
	}

	if hadError {
		os.Exit(1)
	}
}

func process(ctx context.Context, in valuationRequest, cfg config.Config) (*valuationOutput, error) {
	vc, err := in.valuationContext()
	if err != nil {
		return nil, err
	}
	m, err := in.model(vc.Curve, cfg.HullWhiteOptions())
	if err != nil {
		return nil, err
	}
	helpers, err := in.helpers(vc)
	if err != nil {
		return nil, err
	}
	times, underlyings, err := calibration.BermudanUnderlyings(m, helpers)
	if err != nil {
		return nil, err
	}
	kind := in.Engine
	if kind == "" {
		kind = "pde"
	}
	method, err := engine.New(ctx, kind, m, cfg, times)
	if err != nil {
		return nil, err
	}
	done := logger.LogDuration(ctx, "bermudan valuation", "engine", method.Name())
	option, err := bermudan.NewOption(ctx, times, underlyings, method)
	done()
	if err != nil {
		return nil, err
	}

	europeans, err := calibration.EuropeanPricer(helpers)(m)
	if err != nil {
		return nil, err
	}
	maxEuropean := math.Inf(-1)
	for _, p := range europeans {
		maxEuropean = math.Max(maxEuropean, p)
	}
	return &valuationOutput{
		TaskID:       in.TaskID,
		Engine:       option.Engine(),
		NPV:          option.NPV(),
		ExpiryTimes:  times,
		Europeans:    europeans,
		MaxEuropean:  maxEuropean,
		SwitchOption: option.NPV() - maxEuropean,
	}, nil
}

func renderTable(w io.Writer, outputs []valuationOutput) {
	table := tablewriter.NewWriter(w)
	table.Header("Task", "Engine", "NPV", "Max European", "Switch Option", "Error")
	for _, o := range outputs {
		_ = table.Append(
			o.TaskID,
			o.Engine,
			fmt.Sprintf("%.8f", o.NPV),
			fmt.Sprintf("%.8f", o.MaxEuropean),
			fmt.Sprintf("%.8f", o.SwitchOption),
			o.Error,
		)
	}
	_ = table.Render()
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

func parseInputs(raw []byte, isYAML bool) ([]valuationRequest, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	if isYAML {
		var inputs []valuationRequest
		if err := yaml.Unmarshal(trimmed, &inputs); err == nil {
			if len(inputs) == 0 {
				return nil, true, fmt.Errorf("empty input list")
			}
			return inputs, true, nil
		}
		var input valuationRequest
		if err := yaml.Unmarshal(trimmed, &input); err != nil {
			return nil, false, err
		}
		return []valuationRequest{input}, false, nil
	}
	if trimmed[0] == '[' {
		var inputs []valuationRequest
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return inputs, true, nil
	}
	var input valuationRequest
	if err := json.Unmarshal(trimmed, &input); err != nil {
		return nil, false, err
	}
	return []valuationRequest{input}, false, nil
}

func exitError(msg string) {
	b, _ := json.Marshal(valuationOutput{Error: msg})
	fmt.Println(string(b))
	os.Exit(1)
}
