package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cosim/internal/config"
	"github.com/san-kum/cosim/internal/slave"
)

var (
	configFile string
	preset     string
	envFile    string
	integrator string
	maxSub     float64
	params     map[string]string
	startTime  float64
	stopTime   float64
	stepSize   float64
	tolerance  float64
	speed      float64
	input      string
	output     string
	surfaceArg string
	scriptFile string
	httpAddr   string
	openPage   bool
	sliderMin  float64
	sliderMax  float64
	initial    float64
	noInitial  bool
	logLevel   string
	logFormat  string
	logFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cosim",
		Short:         "real-time co-simulation stepper",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run [model|file.wasm]",
		Short: "step a model in real time",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runModel,
	}
	addConfigFlags(runCmd)

	configCmd := &cobra.Command{
		Use:   "config [model|file.wasm]",
		Short: "print the resolved run configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	addConfigFlags(configCmd)

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		RunE:  listModels,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, e := range slave.NewRegistry().ListModels() {
				if len(args) > 0 && args[0] != e.Name {
					continue
				}
				fmt.Fprintf(out, "%s:\n", e.Name)
				for _, p := range config.ListPresets(e.Name) {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, configCmd, modelsCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&envFile, "env-file", ".env", "dotenv file with COSIM_* overrides")
	f.StringVar(&integrator, "integrator", "", "integrator for built-in models (euler, rk4, verlet)")
	f.Float64Var(&maxSub, "max-sub-step", 0, "largest internal integration step")
	f.StringToStringVar(&params, "param", nil, "model parameter, e.g. --param tau=0.2")
	f.Float64Var(&startTime, "start", 0, "start time")
	f.Float64Var(&stopTime, "stop", config.DefaultStopTime, "stop time")
	f.Float64Var(&stepSize, "step", config.DefaultStepSize, "communication step size")
	f.Float64Var(&tolerance, "tolerance", 0, "tolerance passed to the model (0 leaves it undefined)")
	f.Float64Var(&speed, "speed", config.DefaultSpeed, "real-time factor, 0 runs unpaced")
	f.StringVar(&input, "input", "", "input variable name or value reference")
	f.StringVar(&output, "output", "", "output variable name or value reference")
	f.StringVar(&surfaceArg, "surface", config.SurfaceAuto, "control surface: auto, slider, http, stdin, script, none")
	f.StringVar(&scriptFile, "script", "", "yaml script of timed updates (implies --surface script)")
	f.StringVar(&httpAddr, "addr", config.DefaultHTTPAddr, "listen address for the http surface")
	f.BoolVar(&openPage, "open", false, "open the http control page in a browser")
	f.Float64Var(&sliderMin, "min", config.DefaultSliderMin, "slider minimum")
	f.Float64Var(&sliderMax, "max", config.DefaultSliderMax, "slider maximum")
	f.Float64Var(&initial, "initial", config.DefaultInitial, "initial slider value")
	f.BoolVar(&noInitial, "no-apply-initial", false, "do not write the initial slider value before the first step")
	f.StringVar(&logLevel, "log-level", "info", "log level")
	f.StringVar(&logFormat, "log-format", "console", "log format: console or json")
	f.StringVar(&logFile, "log-file", "", "log file (slider mode defaults to cosim.log)")
}

func listModels(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tREF\tVARIABLE\tCAUSALITY\tDESCRIPTION")

	for _, e := range slave.NewRegistry().ListModels() {
		for i, v := range slave.Variables(e.New()) {
			name, desc := "", ""
			if i == 0 {
				name, desc = e.Name, e.Description
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", name, v.Ref, v.Name, v.Causality, desc)
		}
	}

	return w.Flush()
}
