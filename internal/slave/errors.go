package slave

import "errors"

var (
	// ErrUnknownRef indicates a value reference outside the variable table.
	ErrUnknownRef = errors.New("slave: unknown value reference")

	// ErrNotWritable indicates a write to a state outside initialization mode.
	ErrNotWritable = errors.New("slave: variable is not writable in this mode")

	// ErrCommunicationPoint indicates a DoStep whose current time does not
	// match the end of the previous step.
	ErrCommunicationPoint = errors.New("slave: step does not start at the last communication point")

	// ErrDiverged indicates the state became NaN or Inf.
	ErrDiverged = errors.New("slave: state diverged")

	// ErrLifecycle indicates a call made out of order.
	ErrLifecycle = errors.New("slave: call not allowed in current mode")
)
