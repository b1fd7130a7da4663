package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/san-kum/cosim/internal/config"
	"github.com/san-kum/cosim/internal/cosim"
	"github.com/san-kum/cosim/internal/logging"
	"github.com/san-kum/cosim/internal/slave"
	"github.com/san-kum/cosim/internal/surface"
	"github.com/san-kum/cosim/internal/wasmmodel"
)

const sliderLogFile = "cosim.log"

// loadModel is replaced in tests.
var loadModel = openModel

// resolveConfig layers defaults, a preset, the config file, the environment
// and finally any flags set on the command line.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	model := ""
	if len(args) > 0 {
		model = args[0]
	}

	if preset != "" {
		name := model
		if name == "" {
			name = cfg.Model
		}
		p := config.GetPreset(name, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if model != "" {
		cfg.Model = model
	}

	f := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	setFloat := func(name string, dst *float64, v float64) {
		if f.Changed(name) {
			*dst = v
		}
	}
	setString("integrator", &cfg.Integrator, integrator)
	setFloat("max-sub-step", &cfg.MaxSubStep, maxSub)
	setFloat("start", &cfg.StartTime, startTime)
	setFloat("stop", &cfg.StopTime, stopTime)
	setFloat("step", &cfg.StepSize, stepSize)
	setFloat("tolerance", &cfg.Tolerance, tolerance)
	setFloat("speed", &cfg.Speed, speed)
	setString("input", &cfg.Input, input)
	setString("output", &cfg.Output, output)
	setString("surface", &cfg.Surface, surfaceArg)
	setString("addr", &cfg.HTTP.Addr, httpAddr)
	setFloat("min", &cfg.Slider.Min, sliderMin)
	setFloat("max", &cfg.Slider.Max, sliderMax)
	setFloat("initial", &cfg.Slider.Initial, initial)
	setString("log-level", &cfg.Log.Level, logLevel)
	setString("log-format", &cfg.Log.Format, logFormat)
	setString("log-file", &cfg.Log.File, logFile)
	if f.Changed("open") {
		cfg.HTTP.Open = openPage
	}
	if f.Changed("no-apply-initial") {
		cfg.Slider.ApplyInitial = !noInitial
	}
	if f.Changed("script") {
		cfg.Script = scriptFile
		if !f.Changed("surface") {
			cfg.Surface = config.SurfaceScript
		}
	}
	if len(params) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		for k, v := range params {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("--param %s: %w", k, err)
			}
			cfg.Params[k] = x
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isWasm(model string) bool {
	return strings.HasSuffix(strings.ToLower(model), ".wasm")
}

// openModel loads the model and resolves the input and output references.
func openModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cosim.Model, cosim.ValueRef, cosim.ValueRef, error) {
	if isWasm(cfg.Model) {
		m, err := wasmmodel.LoadFile(ctx, cfg.Model, wasmmodel.Config{Logger: logger})
		if err != nil {
			return nil, 0, 0, err
		}
		lookup := func(name string) (cosim.ValueRef, bool) { return 0, false }
		in, err := resolveRef(cfg.Input, lookup)
		if err == nil {
			var out cosim.ValueRef
			if out, err = resolveRef(cfg.Output, lookup); err == nil {
				return m, in, out, nil
			}
		}
		m.Close()
		return nil, 0, 0, err
	}

	s, err := slave.NewRegistry().Open(slave.Spec{
		Model:      cfg.Model,
		Integrator: cfg.Integrator,
		MaxSubStep: cfg.MaxSubStep,
		Params:     cfg.Params,
	})
	if err != nil {
		return nil, 0, 0, err
	}
	lookup := func(name string) (cosim.ValueRef, bool) {
		v, ok := s.Lookup(name)
		return v.Ref, ok
	}
	in, err := resolveRef(cfg.Input, lookup)
	if err != nil {
		return nil, 0, 0, err
	}
	out, err := resolveRef(cfg.Output, lookup)
	if err != nil {
		return nil, 0, 0, err
	}
	return s, in, out, nil
}

func resolveRef(s string, lookup func(string) (cosim.ValueRef, bool)) (cosim.ValueRef, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return cosim.ValueRef(n), nil
	}
	if ref, ok := lookup(s); ok {
		return ref, nil
	}
	return 0, fmt.Errorf("unknown variable %q", s)
}

func pickSurface(cfg *config.Config) string {
	if cfg.Surface != config.SurfaceAuto {
		return cfg.Surface
	}
	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	switch {
	case stdinTTY && term.IsTerminal(int(os.Stdout.Fd())):
		return config.SurfaceSlider
	case !stdinTTY:
		return config.SurfaceStdin
	}
	return config.SurfaceNone
}

func runModel(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	kind := pickSurface(cfg)

	if kind == config.SurfaceSlider && cfg.Log.File == "" {
		cfg.Log.File = sliderLogFile
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	atexit.Register(func() { _ = closeLog() })

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model, in, out, err := loadModel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	// The engine releases the model once it runs. Until then a failed
	// surface setup has to.
	engineOwned := false
	defer func() {
		if !engineOwned {
			releaseModel(model, logger)
		}
	}()

	runID := xid.New().String()
	ecfg := cfg.Engine(in, out)
	mb := cosim.NewMailbox()

	text := cosim.NewTextReporter(cmd.OutOrStdout())
	text.Warnings = cmd.ErrOrStderr()
	var (
		reporter cosim.Reporter = text
		surf     surface.Surface
		slider   *surface.Slider
	)

	switch kind {
	case config.SurfaceSlider:
		slider = surface.NewSlider(surface.SliderConfig{
			Title:        fmt.Sprintf("cosim %s  run %s", cfg.Model, runID),
			Label:        cfg.Input,
			Ref:          in,
			Min:          cfg.Slider.Min,
			Max:          cfg.Slider.Max,
			Step:         cfg.Slider.Step,
			Coarse:       cfg.Slider.Coarse,
			Initial:      cfg.Slider.Initial,
			ApplyInitial: cfg.Slider.ApplyInitial,
			Steps:        ecfg.Steps(),
		}, mb, cancel)
		reporter, surf = slider, slider
	case config.SurfaceHTTP:
		h := surface.NewHTTP(surface.HTTPConfig{
			Addr:    cfg.HTTP.Addr,
			RunID:   runID,
			Label:   cfg.Input,
			Ref:     in,
			Min:     cfg.Slider.Min,
			Max:     cfg.Slider.Max,
			Step:    cfg.Slider.Step,
			Initial: cfg.Slider.Initial,
			Steps:   ecfg.Steps(),
		}, mb, logger)
		ln, err := h.Listen()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "control page: %s\n", h.URL())
		if cfg.HTTP.Open {
			if err := h.Open(); err != nil {
				logger.Warn("open browser", zap.Error(err))
			}
		}
		if cfg.Slider.ApplyInitial {
			mb.Send(cosim.ParameterUpdate{Ref: in, Value: cfg.Slider.Initial})
		}
		reporter = cosim.MultiReporter{text, h}
		surf = serveFunc(func(ctx context.Context) error { return h.Serve(ctx, ln) })
	case config.SurfaceStdin:
		surf = surface.NewLines(cmd.InOrStdin(), in, mb, logger)
	case config.SurfaceScript:
		events, err := surface.LoadScript(cfg.Script)
		if err != nil {
			return err
		}
		surf = surface.NewScript(events, in, cfg.Speed, mb, logger)
	}

	engineOwned = true
	eng := cosim.New(model, ecfg,
		cosim.WithLogger(logger),
		cosim.WithReporter(reporter),
		cosim.WithUpdates(mb.Updates()),
		cosim.WithRunID(runID))

	var (
		sum    cosim.Summary
		runErr error
	)
	if slider != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			sum, runErr = eng.Run(ctx)
			slider.Finish(sum, runErr)
		}()
		if err := slider.Run(ctx); err != nil {
			cancel()
			<-done
			return err
		}
		<-done
	} else {
		if surf != nil {
			go func() {
				if err := surf.Run(ctx); err != nil {
					logger.Warn("control surface stopped", zap.String("surface", kind), zap.Error(err))
				}
			}()
		}
		sum, runErr = eng.Run(ctx)
		cancel()
	}

	printSummary(cmd.ErrOrStderr(), sum)
	if runErr != nil && errors.Is(runErr, cosim.ErrCanceled) {
		fmt.Fprintln(cmd.ErrOrStderr(), "run stopped")
		return nil
	}
	return runErr
}

func releaseModel(m cosim.Model, logger *zap.Logger) {
	if c, ok := m.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("release model", zap.Error(err))
		}
	}
}

type serveFunc func(ctx context.Context) error

func (f serveFunc) Run(ctx context.Context) error { return f(ctx) }

func printSummary(w io.Writer, s cosim.Summary) {
	fmt.Fprintf(w, "run %s: %d steps to t=%.4f, %d reported, slept %d times (%s), max lag %s, %d updates applied, %d rejected\n",
		s.RunID, s.Steps, s.FinalTime, s.Reported, s.Sleeps, s.Slept, s.MaxLag, s.UpdatesApplied, s.WriteRejections)
}
