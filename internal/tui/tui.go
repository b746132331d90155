// Package tui is the terminal front end: a live view of the engine snapshot
// plus transport, preview and master volume keys.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ingyamilmolinar/polyvoice/core/engine"
	"github.com/ingyamilmolinar/polyvoice/core/lifecycle"
	"github.com/ingyamilmolinar/polyvoice/core/model"
)

const (
	refreshInterval = 30 * time.Millisecond
	masterStep      = 5
	tempoStep       = 5
)

// Engine is the part of *engine.Engine the UI needs.
type Engine interface {
	Snapshot() engine.Snapshot
	Post(func(*engine.Engine)) bool
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	errStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	soundingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	restingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#3A3A3A"))
	labelStyle    = lipgloss.NewStyle().Width(28).Align(lipgloss.Left)
)

type tickMsg time.Time

type Model struct {
	eng     Engine
	snap    engine.Snapshot
	labels  [model.MaxVoices]string
	enabled [model.MaxVoices]bool
	cursor  int
	status  string
}

// New builds the model. The patch only provides the voice labels.
func New(eng Engine, p model.Patch) Model {
	m := Model{eng: eng, snap: eng.Snapshot()}
	for i, v := range p.Voices {
		name := v.Instrument
		if name == "" {
			name = v.ResolvedWaveform().String()
		}
		m.labels[i] = fmt.Sprintf("%-16s %8.2fHz", name, v.Frequency)
		m.enabled[i] = v.Enabled
	}
	if !m.snap.Available {
		m.status = "audio unavailable"
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.eng.Snapshot()
		return m, tick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			return m, tea.Quit
		case tea.KeySpace:
			m.toggleTransport()
			return m, nil
		case tea.KeyUp:
			m.moveCursor(-1)
			return m, nil
		case tea.KeyDown:
			m.moveCursor(1)
			return m, nil
		case tea.KeyEnter:
			m.preview(m.cursor)
			return m, nil
		}

		key := msg.String()
		switch key {
		case "q":
			return m, tea.Quit
		case "k":
			m.moveCursor(-1)
		case "j":
			m.moveCursor(1)
		case "+", "=":
			m.adjustMaster(masterStep)
		case "-", "_":
			m.adjustMaster(-masterStep)
		case "]":
			m.adjustTempo(tempoStep)
		case "[":
			m.adjustTempo(-tempoStep)
		default:
			if i, ok := hexIndex(key); ok {
				m.cursor = i
				m.preview(i)
			}
		}
	}
	return m, nil
}

// hexIndex maps the keys 0-9 and a-f to voice indices.
func hexIndex(key string) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	c := key[0]
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	}
	return 0, false
}

func (m *Model) moveCursor(d int) {
	m.cursor = (m.cursor + d + model.MaxVoices) % model.MaxVoices
}

func (m *Model) post(fn func(*engine.Engine), status string) {
	if !m.snap.Available {
		m.status = "audio unavailable"
		return
	}
	if !m.eng.Post(fn) {
		m.status = "engine stopped"
		return
	}
	m.status = status
}

func (m *Model) toggleTransport() {
	if m.snap.Transport {
		m.post(func(e *engine.Engine) { e.StopTransport() }, "stopped")
		return
	}
	m.post(func(e *engine.Engine) { e.StartTransport() }, "playing")
}

func (m *Model) preview(i int) {
	if m.snap.Transport {
		m.status = "stop the transport to preview"
		return
	}
	m.post(func(e *engine.Engine) { _ = e.Preview(i, engine.DefaultPreview) }, fmt.Sprintf("preview voice %X", i))
}

func (m *Model) adjustMaster(d float64) {
	m.post(func(e *engine.Engine) { e.SetMasterVolume(e.MasterVolume() + d) }, "master volume")
}

func (m *Model) adjustTempo(d int) {
	m.post(func(e *engine.Engine) {
		if bpm := e.Patch().Tempo + d; bpm > 0 {
			_ = e.SetTempo(bpm)
		}
	}, "tempo")
}

func (m Model) View() string {
	var b strings.Builder
	s := m.snap

	transport := dimStyle.Render("stopped")
	if s.Transport {
		transport = soundingStyle.Render("playing")
	}
	fmt.Fprintf(&b, "\n  %s  %s  %d bpm  master %3.0f%%  t=%.1fs\n",
		titleStyle.Render("polyvoice"), transport, s.Tempo, s.Master, s.Time)
	if !s.Available {
		b.WriteString("  " + errStyle.Render("audio unavailable") + "\n")
	}
	fmt.Fprintf(&b, "  pool %d/%d in use\n\n", s.Pool.InUse, s.Pool.Capacity)

	for i := 0; i < model.MaxVoices; i++ {
		state := s.States[i]
		var st string
		switch {
		case s.Playing[i]:
			st = soundingStyle.Render("● " + lifecycle.Sounding.String())
		case state == lifecycle.Sounding:
			st = errStyle.Render("○ dropped")
		case state == lifecycle.Resting:
			st = restingStyle.Render("○ " + state.String())
		default:
			st = dimStyle.Render("○ " + state.String())
		}
		label := m.labels[i]
		if !m.enabled[i] {
			label = dimStyle.Render(label)
		}
		row := fmt.Sprintf(" %X  %s %s", i, labelStyle.Render(label), st)
		if i == m.cursor {
			row = cursorStyle.Render(row)
		}
		b.WriteString(" " + row + "\n")
	}

	b.WriteString("\n  " + m.status + "\n")
	b.WriteString(dimStyle.Render("  [space] transport  [0-f/enter] preview  [+/-] master  [[/]] tempo  [q] quit") + "\n")
	return b.String()
}

// Run shows the UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, eng Engine, p model.Patch) error {
	prog := tea.NewProgram(New(eng, p), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
