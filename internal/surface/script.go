package surface

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cosim/internal/cosim"
)

// ScriptEvent sets a value At seconds of simulated time after the run
// starts. Ref defaults to the run's input.
type ScriptEvent struct {
	At    float64 `yaml:"at"`
	Value float64 `yaml:"value"`
	Ref   *uint32 `yaml:"ref,omitempty"`
}

// LoadScript reads a YAML list of events.
func LoadScript(path string) ([]ScriptEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) ([]ScriptEvent, error) {
	var events []ScriptEvent
	if err := yaml.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(events) == 0 {
		return nil, errors.New("script has no events")
	}
	prev := 0.0
	for i, e := range events {
		if !finite(e.At) || e.At < prev {
			return nil, fmt.Errorf("event %d: times must be finite, non-negative and ascending", i+1)
		}
		if !finite(e.Value) {
			return nil, fmt.Errorf("event %d: value must be finite", i+1)
		}
		prev = e.At
	}
	return events, nil
}

// Script replays events against the wall clock. With speed s, an event at
// simulated time t is sent t/s seconds after Run starts; speed <= 0 sends
// everything at once.
type Script struct {
	events  []ScriptEvent
	ref     cosim.ValueRef
	speed   float64
	clock   cosim.Clock
	mailbox *cosim.Mailbox
	logger  *zap.Logger
}

func NewScript(events []ScriptEvent, ref cosim.ValueRef, speed float64, mb *cosim.Mailbox, logger *zap.Logger) *Script {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Script{
		events:  events,
		ref:     ref,
		speed:   speed,
		clock:   cosim.WallClock,
		mailbox: mb,
		logger:  logger,
	}
}

// WithClock replaces the wall clock.
func (s *Script) WithClock(c cosim.Clock) *Script {
	s.clock = c
	return s
}

func (s *Script) Run(ctx context.Context) error {
	start := s.clock.Now()
	for i, e := range s.events {
		if s.speed > 0 {
			due := time.Duration(math.Round(e.At / s.speed * float64(time.Second)))
			if wait := due - s.clock.Now().Sub(start); wait > 0 {
				s.clock.Sleep(wait)
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		u := cosim.ParameterUpdate{Ref: s.ref, Value: e.Value}
		if e.Ref != nil {
			u.Ref = cosim.ValueRef(*e.Ref)
		}
		if s.mailbox.Send(u) {
			s.logger.Debug("script update replaced a pending one", zap.Int("event", i+1))
		}
	}
	return nil
}
