// Package surface provides the operator controls that feed parameter updates
// into a running engine. Every surface writes into a single cosim.Mailbox
// from one goroutine.
package surface

import (
	"context"
	"math"
)

// Surface is a control source running alongside the engine. Run returns when
// the source is exhausted, the operator quits, or ctx is done.
type Surface interface {
	Run(ctx context.Context) error
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
