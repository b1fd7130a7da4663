// Package wasmmodel runs co-simulation models compiled to core WebAssembly.
//
// A model module exports the following functions. Every function returns a
// status as its last result: 0 is ok, 1 is a warning, anything else is an
// error.
//
//	setup_experiment(start f64, stop f64, tolerance_defined i32, tolerance f64) -> i32
//	enter_initialization_mode() -> i32
//	exit_initialization_mode() -> i32
//	set_real(ref i32, value f64) -> i32
//	get_real(ref i32) -> (f64, i32)
//	do_step(current_time f64, step_size f64, no_prior_state i32) -> i32
//	terminate() -> i32
package wasmmodel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/san-kum/cosim/internal/cosim"
)

const (
	StatusOK      int32 = 0
	StatusWarning int32 = 1
	StatusDiscard int32 = 2
	StatusError   int32 = 3
	StatusFatal   int32 = 4
)

var (
	ErrMissingExport = errors.New("wasmmodel: missing export")
	ErrSignature     = errors.New("wasmmodel: export has wrong signature")
	ErrStatus        = errors.New("wasmmodel: model returned error status")
)

// CallError carries a non-success status returned by the module.
type CallError struct {
	Func   string
	Status int32
}

func (e *CallError) Error() string {
	return fmt.Sprintf("wasmmodel: %s returned status %d", e.Func, e.Status)
}

func (e *CallError) Unwrap() error { return ErrStatus }

var (
	i32 = api.ValueTypeI32
	f64 = api.ValueTypeF64
)

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

var exports = map[string]signature{
	"setup_experiment":          {[]api.ValueType{f64, f64, i32, f64}, []api.ValueType{i32}},
	"enter_initialization_mode": {nil, []api.ValueType{i32}},
	"exit_initialization_mode":  {nil, []api.ValueType{i32}},
	"set_real":                  {[]api.ValueType{i32, f64}, []api.ValueType{i32}},
	"get_real":                  {[]api.ValueType{i32}, []api.ValueType{f64, i32}},
	"do_step":                   {[]api.ValueType{f64, f64, i32}, []api.ValueType{i32}},
	"terminate":                 {nil, []api.ValueType{i32}},
}

// Config tunes the wazero runtime hosting a model.
type Config struct {
	// MemoryLimitPages caps linear memory in 64KiB pages. Zero keeps the
	// wazero default.
	MemoryLimitPages uint32
	Logger           *zap.Logger
}

// Model is a loaded WebAssembly module. It implements cosim.Model and
// io.Closer.
type Model struct {
	name    string
	ctx     context.Context
	runtime wazero.Runtime
	module  api.Module
	funcs   map[string]api.Function
	logger  *zap.Logger
}

// Load compiles and instantiates wasm. ctx bounds loading only: calls into
// the module keep its values but not its cancellation, so a run canceled
// through the same context can still terminate the model.
func Load(ctx context.Context, name string, wasm []byte, cfg Config) (*Model, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	if err := checkExports(compiled.ExportedFunctions()); err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("instantiate %s: %w", name, err)
	}

	m := &Model{
		name:    name,
		ctx:     context.WithoutCancel(ctx),
		runtime: r,
		module:  mod,
		funcs:   make(map[string]api.Function, len(exports)),
		logger:  logger.With(zap.String("model", name)),
	}
	for fn := range exports {
		m.funcs[fn] = mod.ExportedFunction(fn)
	}
	m.logger.Debug("wasm model loaded", zap.Int("bytes", len(wasm)))
	return m, nil
}

// LoadFile reads and loads a .wasm file, naming the model after the file.
func LoadFile(ctx context.Context, path string, cfg Config) (*Model, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return Load(ctx, name[:len(name)-len(filepath.Ext(name))], wasm, cfg)
}

func checkExports(defs map[string]api.FunctionDefinition) error {
	for name, sig := range exports {
		def, ok := defs[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingExport, name)
		}
		if !slices.Equal(def.ParamTypes(), sig.params) || !slices.Equal(def.ResultTypes(), sig.results) {
			return fmt.Errorf("%w: %s", ErrSignature, name)
		}
	}
	return nil
}

func (m *Model) Name() string { return m.name }

func (m *Model) call(name string, params ...uint64) ([]uint64, error) {
	res, err := m.funcs[name].Call(m.ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("wasmmodel: %s: %w", name, err)
	}

	status := api.DecodeI32(res[len(res)-1])
	switch status {
	case StatusOK:
	case StatusWarning:
		m.logger.Warn("model warning", zap.String("func", name))
	default:
		return nil, &CallError{Func: name, Status: status}
	}
	return res, nil
}

func boolI32(b bool) uint64 {
	if b {
		return api.EncodeI32(1)
	}
	return api.EncodeI32(0)
}

func (m *Model) SetupExperiment(exp cosim.Experiment) error {
	_, err := m.call("setup_experiment",
		api.EncodeF64(exp.StartTime),
		api.EncodeF64(exp.StopTime),
		boolI32(exp.ToleranceDefined),
		api.EncodeF64(exp.Tolerance))
	return err
}

func (m *Model) EnterInitializationMode() error {
	_, err := m.call("enter_initialization_mode")
	return err
}

func (m *Model) ExitInitializationMode() error {
	_, err := m.call("exit_initialization_mode")
	return err
}

func (m *Model) SetReal(ref cosim.ValueRef, value float64) error {
	_, err := m.call("set_real", api.EncodeI32(int32(ref)), api.EncodeF64(value))
	return err
}

func (m *Model) GetReal(ref cosim.ValueRef) (float64, error) {
	res, err := m.call("get_real", api.EncodeI32(int32(ref)))
	if err != nil {
		return 0, err
	}
	return api.DecodeF64(res[0]), nil
}

func (m *Model) DoStep(currentTime, stepSize float64, noSetFMUStatePriorToCurrentPoint bool) error {
	_, err := m.call("do_step",
		api.EncodeF64(currentTime),
		api.EncodeF64(stepSize),
		boolI32(noSetFMUStatePriorToCurrentPoint))
	return err
}

func (m *Model) Terminate() error {
	_, err := m.call("terminate")
	return err
}

// Close releases the module and its runtime.
func (m *Model) Close() error {
	return m.runtime.Close(context.Background())
}
