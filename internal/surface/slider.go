package surface

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cosim/internal/cosim"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(10)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	trackStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	fillStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	graphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

const (
	sliderWidth   = 40
	historyLen    = 60
	eventBuffer   = 256
	defaultLabel  = "input"
	defaultCoarse = 1.0
)

type SliderConfig struct {
	Title   string
	Label   string
	Ref     cosim.ValueRef
	Min     float64
	Max     float64
	Step    float64
	Coarse  float64
	Initial float64
	// ApplyInitial queues Initial so it is written before the first step.
	ApplyInitial bool
	// Steps is the number of steps the run takes, for the progress bar.
	Steps int
}

type keyMap struct {
	Dec       key.Binding
	Inc       key.Binding
	CoarseDec key.Binding
	CoarseInc key.Binding
	Min       key.Binding
	Max       key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dec, k.Inc, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dec, k.Inc, k.CoarseDec, k.CoarseInc},
		{k.Min, k.Max, k.Help, k.Quit},
	}
}

func newKeyMap(step, coarse float64) keyMap {
	return keyMap{
		Dec:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", fmt.Sprintf("-%g", step))),
		Inc:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", fmt.Sprintf("+%g", step))),
		CoarseDec: key.NewBinding(key.WithKeys("down", "j", "pgdown"), key.WithHelp("↓/j", fmt.Sprintf("-%g", coarse))),
		CoarseInc: key.NewBinding(key.WithKeys("up", "k", "pgup"), key.WithHelp("↑/k", fmt.Sprintf("+%g", coarse))),
		Min:       key.NewBinding(key.WithKeys("home", "0"), key.WithHelp("home", "min")),
		Max:       key.NewBinding(key.WithKeys("end", "$"), key.WithHelp("end", "max")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "stop run")),
	}
}

type (
	resultMsg   cosim.StepResult
	warningMsg  struct{ err error }
	finishedMsg struct {
		summary cosim.Summary
		err     error
	}
)

// Slider is an interactive terminal slider. It is also the run's Reporter
// and WarningSink: results are handed to the UI through a buffered channel
// and dropped when the UI falls behind, so Report never blocks the engine.
type Slider struct {
	cfg     SliderConfig
	mailbox *cosim.Mailbox
	stop    func()
	events  chan tea.Msg
	quit    chan struct{}
	dropped atomic.Int64
	opts    []tea.ProgramOption
}

// NewSlider creates a slider writing into mb. stop is called when the
// operator quits and should cancel the run.
func NewSlider(cfg SliderConfig, mb *cosim.Mailbox, stop func(), opts ...tea.ProgramOption) *Slider {
	if cfg.Label == "" {
		cfg.Label = defaultLabel
	}
	if cfg.Coarse <= 0 {
		cfg.Coarse = defaultCoarse
	}
	s := &Slider{
		cfg:     cfg,
		mailbox: mb,
		stop:    stop,
		events:  make(chan tea.Msg, eventBuffer),
		quit:    make(chan struct{}),
		opts:    opts,
	}
	if cfg.ApplyInitial {
		mb.Send(cosim.ParameterUpdate{Ref: cfg.Ref, Value: cfg.Initial})
	}
	return s
}

func (s *Slider) offer(msg tea.Msg) {
	select {
	case s.events <- msg:
	default:
		s.dropped.Add(1)
	}
}

func (s *Slider) Report(r cosim.StepResult) { s.offer(resultMsg(r)) }

func (s *Slider) Warn(err error) { s.offer(warningMsg{err}) }

// Dropped returns how many results and warnings the UI never saw.
func (s *Slider) Dropped() int64 { return s.dropped.Load() }

// Finish tells the UI the run is over. It is a no-op once the UI has exited.
func (s *Slider) Finish(sum cosim.Summary, err error) {
	select {
	case s.events <- finishedMsg{summary: sum, err: err}:
	case <-s.quit:
	}
}

// Run shows the slider until the run finishes or the operator quits.
func (s *Slider) Run(ctx context.Context) error {
	defer close(s.quit)

	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, s.opts...)
	p := tea.NewProgram(newSliderModel(s.cfg, s.send, s.stop), opts...)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case msg := <-s.events:
				p.Send(msg)
			case <-done:
				return
			}
		}
	}()

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Slider) send(v float64) {
	s.mailbox.Send(cosim.ParameterUpdate{Ref: s.cfg.Ref, Value: v})
}

type sliderModel struct {
	cfg      SliderConfig
	value    float64
	send     func(float64)
	stop     func()
	keys     keyMap
	help     help.Model
	progress progress.Model

	last     cosim.StepResult
	steps    int
	history  []float64
	warnings int
	lastWarn error

	finished bool
	summary  cosim.Summary
	err      error
}

func newSliderModel(cfg SliderConfig, send func(float64), stop func()) sliderModel {
	return sliderModel{
		cfg:      cfg,
		value:    cfg.Initial,
		send:     send,
		stop:     stop,
		keys:     newKeyMap(cfg.Step, cfg.Coarse),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(sliderWidth)),
		history:  make([]float64, 0, historyLen),
	}
}

func (m sliderModel) Init() tea.Cmd { return nil }

func (m sliderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case resultMsg:
		m.last = cosim.StepResult(msg)
		m.steps++
		if len(m.history) == historyLen {
			m.history = append(m.history[:0], m.history[1:]...)
		}
		m.history = append(m.history, msg.Output)
	case warningMsg:
		m.warnings++
		m.lastWarn = msg.err
	case finishedMsg:
		m.finished, m.summary, m.err = true, msg.summary, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m sliderModel) handleKey(msg tea.KeyMsg) (sliderModel, tea.Cmd) {
	v := m.value
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.stop != nil {
			m.stop()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Dec):
		v -= m.cfg.Step
	case key.Matches(msg, m.keys.Inc):
		v += m.cfg.Step
	case key.Matches(msg, m.keys.CoarseDec):
		v -= m.cfg.Coarse
	case key.Matches(msg, m.keys.CoarseInc):
		v += m.cfg.Coarse
	case key.Matches(msg, m.keys.Min):
		v = m.cfg.Min
	case key.Matches(msg, m.keys.Max):
		v = m.cfg.Max
	default:
		return m, nil
	}

	v = m.snap(v)
	if v != m.value {
		m.value = v
		m.send(v)
	}
	return m, nil
}

// snap clamps v to the slider range and rounds it onto the step grid.
func (m sliderModel) snap(v float64) float64 {
	c := m.cfg
	if c.Step > 0 {
		v = c.Min + math.Round((v-c.Min)/c.Step)*c.Step
	}
	return math.Max(c.Min, math.Min(c.Max, v))
}

func (m sliderModel) View() string {
	var s strings.Builder

	title := m.cfg.Title
	if title == "" {
		title = "cosim"
	}
	s.WriteString(titleStyle.Render(title) + "\n\n")

	ratio := 0.0
	if m.cfg.Max > m.cfg.Min {
		ratio = (m.value - m.cfg.Min) / (m.cfg.Max - m.cfg.Min)
	}
	filled := int(math.Round(ratio * sliderWidth))
	bar := fillStyle.Render(strings.Repeat("━", filled)) + "●" + trackStyle.Render(strings.Repeat("━", sliderWidth-filled))
	fmt.Fprintf(&s, "%s%s %s\n", labelStyle.Render(m.cfg.Label), bar, valueStyle.Render(fmt.Sprintf("%.2f", m.value)))
	fmt.Fprintf(&s, "%s%g … %g\n\n", labelStyle.Render(""), m.cfg.Min, m.cfg.Max)

	if m.steps > 0 {
		s.WriteString(valueStyle.Render(cosim.FormatResult(m.last)) + "\n\n")
	} else {
		s.WriteString(hintStyle.Render("waiting for first step") + "\n\n")
	}

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(6), asciigraph.Width(sliderWidth+10), asciigraph.Caption("output"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	if m.cfg.Steps > 0 {
		pct := math.Min(1, float64(m.steps)/float64(m.cfg.Steps))
		s.WriteString(labelStyle.Render("progress") + m.progress.ViewAs(pct) + "\n")
	}

	if m.warnings > 0 {
		s.WriteString(warningStyle.Render(fmt.Sprintf("%d rejected write(s), last: %v", m.warnings, m.lastWarn)) + "\n")
	}
	if m.finished && m.err != nil {
		s.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}

	s.WriteString("\n" + m.help.View(m.keys))
	return s.String()
}
