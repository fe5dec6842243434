// SPDX-License-Identifier: MIT
//
// Package tui renders a terminal tuner view fed by the engine's analysis
// reports.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pitchtone/internal/config"
	"pitchtone/internal/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	inTuneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))

	offTuneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D08770"))
)

const (
	centsBarWidth = 41 // odd so the center marker has a cell
	centsBarRange = 50 // cents from center to either edge
	inTuneCents   = 5
)

// Sink adapts the transport interface to a channel the tuner model reads.
// Reports are dropped when the model lags behind.
type Sink struct {
	ch chan engine.AnalysisResult
}

func NewSink() *Sink {
	return &Sink{ch: make(chan engine.AnalysisResult, 8)}
}

func (s *Sink) Send(data any) error {
	res, ok := data.(engine.AnalysisResult)
	if !ok {
		return nil
	}
	select {
	case s.ch <- res:
	default:
	}
	return nil
}

func (s *Sink) Close() error { return nil }

type resultMsg engine.AnalysisResult

func waitForResult(ch <-chan engine.AnalysisResult) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(<-ch)
	}
}

// UpdateFunc pushes a live parameter change toward the engine. It reports
// false when the update queue is full.
type UpdateFunc func(config.EngineUpdate) bool

// Model is the Bubble Tea model for the tuner display.
type Model struct {
	sink      *Sink
	onUpdate  UpdateFunc
	latest    engine.AnalysisResult
	have      bool
	mode      string
	waveform  string
	level     float64
	statusMsg string
}

func NewModel(sink *Sink, params config.EngineParams, push UpdateFunc) Model {
	return Model{
		sink:     sink,
		onUpdate: push,
		mode:     params.Mode,
		waveform: params.Waveform,
		level:    params.OutputLevel,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForResult(m.sink.ch)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.latest = engine.AnalysisResult(msg)
		m.have = true
		return m, waitForResult(m.sink.ch)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("m"))):
			m.mode = nextIn([]string{config.ModeQuantize, config.ModeScale, config.ModeMirror}, m.mode)
			m.push(config.EngineUpdate{Mode: &m.mode})

		case key.Matches(msg, key.NewBinding(key.WithKeys("w"))):
			m.waveform = nextIn([]string{config.WaveSine, config.WaveTriangle, config.WaveSawtooth}, m.waveform)
			m.push(config.EngineUpdate{Waveform: &m.waveform})

		case key.Matches(msg, key.NewBinding(key.WithKeys("+", "="))):
			m.level = min(1, m.level+0.05)
			m.push(config.EngineUpdate{OutputLevel: &m.level})

		case key.Matches(msg, key.NewBinding(key.WithKeys("-"))):
			m.level = max(0, m.level-0.05)
			m.push(config.EngineUpdate{OutputLevel: &m.level})
		}
	}
	return m, nil
}

func (m *Model) push(u config.EngineUpdate) {
	if m.onUpdate == nil {
		return
	}
	if !m.onUpdate(u) {
		m.statusMsg = "update queue full, retry"
	} else {
		m.statusMsg = ""
	}
}

func nextIn(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("pitchtone"))
	sb.WriteString("\n\n")

	if !m.have {
		sb.WriteString(dimStyle.Render("listening..."))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.renderPitch())
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("mode: %s  wave: %s  level: %.0f%%",
		m.mode, m.waveform, m.level*100)))
	sb.WriteString("\n")
	if m.statusMsg != "" {
		sb.WriteString(offTuneStyle.Render(m.statusMsg))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("m: mode • w: waveform • +/-: level • q: quit"))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderPitch() string {
	var sb strings.Builder
	p := m.latest.Pitches[0]

	if p.Frequency <= 0 || !m.latest.GateOpen {
		sb.WriteString(dimStyle.Render("—  silent"))
		sb.WriteString("\n\n")
		sb.WriteString(dimStyle.Render(renderCentsBar(0, false)))
		sb.WriteString("\n\n")
	} else {
		style := offTuneStyle
		if p.Cents > -inTuneCents && p.Cents < inTuneCents {
			style = inTuneStyle
		}
		sb.WriteString(noteStyle.Render(p.NoteName))
		sb.WriteString(style.Render(fmt.Sprintf("  %+.1f cents", p.Cents)))
		sb.WriteString("\n\n")
		sb.WriteString(style.Render(renderCentsBar(p.Cents, true)))
		sb.WriteString("\n\n")
		sb.WriteString(infoStyle.Render(fmt.Sprintf("detected: %7.2f Hz   reference: %7.2f Hz   conf: %.2f",
			p.Frequency, p.Reference, p.Confidence)))
		sb.WriteString("\n")
	}

	gate := "shut"
	if m.latest.GateOpen {
		gate = "open"
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("input: %6.1f dB   gate: %s   voices: %d",
		m.latest.RMSDB, gate, m.latest.Voices)))
	sb.WriteString("\n")

	return sb.String()
}

// renderCentsBar draws a fixed-width bar with a center tick and a marker at
// the current deviation, clamped to +/- centsBarRange.
func renderCentsBar(cents float64, active bool) string {
	cells := make([]rune, centsBarWidth)
	for i := range cells {
		cells[i] = '·'
	}
	center := centsBarWidth / 2
	cells[center] = '┼'

	if active {
		if cents > centsBarRange {
			cents = centsBarRange
		}
		if cents < -centsBarRange {
			cents = -centsBarRange
		}
		pos := center + int(cents/centsBarRange*float64(center))
		cells[pos] = '▮'
	}

	return "♭ " + string(cells) + " ♯"
}

// Run launches the tuner UI and blocks until the user quits.
func Run(sink *Sink, params config.EngineParams, push UpdateFunc) error {
	p := tea.NewProgram(
		NewModel(sink, params, push),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
