package cosim

import "io"

// State is the lifecycle position of a model behind a Handle.
type State int

const (
	StateInstantiated State = iota
	StateConfigured
	StateInitializing
	StateStepping
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInstantiated:
		return "instantiated"
	case StateConfigured:
		return "configured"
	case StateInitializing:
		return "initializing"
	case StateStepping:
		return "stepping"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Handle owns a Model for the duration of one run and rejects calls made
// out of lifecycle order before they reach the model. A state only advances
// when the model call succeeds.
type Handle struct {
	model    Model
	state    State
	released bool
}

func NewHandle(m Model) *Handle {
	return &Handle{model: m}
}

func (h *Handle) State() State { return h.state }

func (h *Handle) expect(op string, allowed ...State) error {
	for _, s := range allowed {
		if h.state == s {
			return nil
		}
	}
	return illegalState("%s not allowed while %s", op, h.state)
}

func (h *Handle) SetupExperiment(exp Experiment) error {
	if err := h.expect("setup experiment", StateInstantiated); err != nil {
		return err
	}
	if err := h.model.SetupExperiment(exp); err != nil {
		return err
	}
	h.state = StateConfigured
	return nil
}

func (h *Handle) EnterInitializationMode() error {
	if err := h.expect("enter initialization mode", StateConfigured); err != nil {
		return err
	}
	if err := h.model.EnterInitializationMode(); err != nil {
		return err
	}
	h.state = StateInitializing
	return nil
}

func (h *Handle) ExitInitializationMode() error {
	if err := h.expect("exit initialization mode", StateInitializing); err != nil {
		return err
	}
	if err := h.model.ExitInitializationMode(); err != nil {
		return err
	}
	h.state = StateStepping
	return nil
}

func (h *Handle) SetReal(ref ValueRef, value float64) error {
	if err := h.expect("set real", StateInitializing, StateStepping); err != nil {
		return err
	}
	return h.model.SetReal(ref, value)
}

func (h *Handle) GetReal(ref ValueRef) (float64, error) {
	if err := h.expect("get real", StateInitializing, StateStepping); err != nil {
		return 0, err
	}
	return h.model.GetReal(ref)
}

func (h *Handle) DoStep(currentTime, stepSize float64, noSetFMUStatePriorToCurrentPoint bool) error {
	if err := h.expect("do step", StateStepping); err != nil {
		return err
	}
	return h.model.DoStep(currentTime, stepSize, noSetFMUStatePriorToCurrentPoint)
}

// Terminate ends the model's lifecycle and releases it. It is the only call
// allowed from every live state, and it succeeds at most once. A model that
// was never configured is released without a terminate call.
func (h *Handle) Terminate() error {
	if h.state == StateTerminated {
		return illegalState("terminate not allowed while %s", h.state)
	}

	var err error
	if h.state != StateInstantiated {
		err = h.model.Terminate()
	}
	h.state = StateTerminated

	if closeErr := h.release(); err == nil {
		err = closeErr
	}
	return err
}

func (h *Handle) release() error {
	if h.released {
		return nil
	}
	h.released = true
	if c, ok := h.model.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
