package cosim

import (
	"math"
	"time"
)

// Clock is the wall-clock source used for pacing. Sleep is a plain timed
// block.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type wallClock struct{}

func (wallClock) Now() time.Time        { return time.Now() }
func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }

// WallClock is the real system clock.
var WallClock Clock = wallClock{}

// pacer keeps simulated time from running ahead of wall-clock time. It never
// compensates for lag: an overrun only shortens the following sleeps.
type pacer struct {
	clock  Clock
	anchor time.Time
	speed  float64

	sleeps int
	slept  time.Duration
	maxLag time.Duration
}

func newPacer(clock Clock, speed float64) pacer {
	return pacer{clock: clock, speed: speed}
}

// start captures the wall-clock anchor for simulated time zero.
func (p *pacer) start() {
	p.anchor = p.clock.Now()
}

// wait blocks until simElapsed seconds of simulated time are due.
func (p *pacer) wait(simElapsed float64) {
	if p.speed <= 0 {
		return
	}

	due := time.Duration(math.Round(simElapsed / p.speed * float64(time.Second)))
	elapsed := p.clock.Now().Sub(p.anchor)

	if elapsed < due {
		d := due - elapsed
		p.clock.Sleep(d)
		p.sleeps++
		p.slept += d
		return
	}

	if lag := elapsed - due; lag > p.maxLag {
		p.maxLag = lag
	}
}
