package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge/codec/libopus"
	"github.com/plasmoverse/opusbridge/engine"
	"github.com/plasmoverse/opusbridge/errors"
	"github.com/plasmoverse/opusbridge/linker"
	"github.com/plasmoverse/opusbridge/runtime"
)

func main() {
	var (
		wasmFile      = flag.String("wasm", "", "Path to core wasm module")
		funcName      = flag.String("func", "", "Function to call (default: _start, run or main)")
		cliArgs       = flag.String("argv", "", "CLI arguments (comma-separated)")
		hostModule    = flag.String("host", linker.OpusModuleName, "Import module name of the bridge")
		noWASI        = flag.Bool("no-wasi", false, "Do not provide WASI preview1")
		list          = flag.Bool("list", false, "List imports and exports and exit")
		verbose       = flag.Bool("v", false, "Debug logging")
		metrics       = flag.Bool("metrics", false, "Print bridge metrics after the call")
		engineVersion = flag.Bool("engine-version", false, "Print the codec engine version and exit")
	)
	flag.Parse()

	eng := libopus.New()
	if *engineVersion {
		fmt.Printf("%s %s\n", eng.Name(), eng.Version())
		return
	}

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-func name] [-argv a,b] [-v] [-metrics]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -engine-version")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
		engine.SetLogger(l.Named("engine"))
		linker.SetLogger(l.Named("linker"))
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()

	cfg := runtime.DefaultConfig(eng)
	cfg.Bridge.Logger = logger
	cfg.Bridge.Registerer = reg
	cfg.WASI = !*noWASI
	cfg.HostModule = *hostModule

	var argv []string
	if *cliArgs != "" {
		argv = strings.Split(*cliArgs, ",")
	}

	err := run(cfg, *wasmFile, *funcName, argv, *list)
	if *metrics {
		printMetrics(reg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(cfg runtime.Config, wasmFile, funcName string, argv []string, listOnly bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	module, err := rt.LoadWASM(ctx, data)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}

	eng := rt.Bridge().Engine()
	fmt.Printf("Engine: %s %s\n", eng.Name(), eng.Version())
	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("\nImports:\n")
	for _, name := range module.Imports() {
		fmt.Printf("  %s\n", name)
	}
	exports := module.Exports()
	fmt.Printf("\nExported functions:\n")
	for _, name := range exports {
		fmt.Printf("  %s\n", name)
	}

	if listOnly {
		return nil
	}

	// If no function specified, try common entry points
	if funcName == "" {
		for _, name := range []string{"_start", "run", "main"} {
			if contains(exports, name) {
				funcName = name
				break
			}
		}
		if funcName == "" && len(exports) == 1 {
			funcName = exports[0]
		}
		if funcName == "" {
			fmt.Printf("\nNo function specified and no common entry point found.\n")
			fmt.Printf("Use -func to specify a function to call.\n")
			return nil
		}
	}

	fmt.Printf("\nInstantiating module...\n")
	instance, err := module.InstantiateWithOptions(ctx, runtime.InstanceOptions{
		Args:   append([]string{wasmFile}, argv...),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer instance.Close(ctx)

	fmt.Printf("\nCalling %s()...\n", funcName)
	results, err := instance.Call(ctx, funcName)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	fmt.Printf("Result: %v\n", results)
	fmt.Printf("Live sessions: %d\n", rt.Bridge().Len())
	if msg := instance.LastError(); msg != "" {
		fmt.Printf("Last bridge error: %s\n", msg)
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// exitCode maps failures to process exit codes: 2 for bad input, 1 otherwise.
func exitCode(err error) int {
	if errors.KindOf(err) == errors.KindArgument {
		return 2
	}
	return 1
}

func printMetrics(g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gather metrics: %v\n", err)
		return
	}

	fmt.Printf("\n--- metrics ---\n")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Printf("%s%s %s\n", mf.GetName(), labels(m), value(mf.GetType(), m))
		}
	}
}

func labels(m *dto.Metric) string {
	pairs := m.GetLabel()
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func value(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "?"
	}
}
