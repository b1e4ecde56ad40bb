// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/mcuconsole/pkg/console"
	"github.com/Thermoquad/mcuconsole/pkg/mcuproto"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Full-screen terminal UI",
	Long: `Negotiate the connection as the console does, then switch to a
full-screen UI with an instruction input, an event log and live session
statistics.

Enter sends the typed instruction. Pin instructions ask for the pin in the
same input. Esc or Ctrl+C closes the port and quits.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui needs an interactive terminal, use the console command instead")
	}

	l, err := connect(context.Background(), console.NewLineReader(os.Stdin), os.Stdout)
	if errors.Is(err, console.ErrAbort) {
		return nil
	}
	if err != nil {
		return err
	}
	defer l.release()

	m := initialTUIModel(l)
	p := tea.NewProgram(m, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := final.(tuiModel)
	printStats(os.Stdout, fm.stats)
	return fm.err
}

// lineBuffer collects session output between dispatches
type lineBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// drain returns the buffered lines and empties the buffer
func (b *lineBuffer) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := strings.TrimRight(b.buf.String(), "\n")
	b.buf.Reset()
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// TUI model
type tuiModel struct {
	link     *link
	session  *console.Session
	stats    *console.Statistics
	output   *lineBuffer
	input    textinput.Model
	pause    time.Duration
	pending  string // pin instruction waiting for its pin
	busy     bool
	state    console.State // last state reported by a dispatch
	log      []logEntry
	maxLog   int
	width    int
	height   int
	quitting bool
	err      error
}

// Messages
type tuiTickMsg time.Time
type dispatchedMsg struct {
	state console.State
	err   error
}

func initialTUIModel(l *link) tuiModel {
	ti := textinput.New()
	ti.Placeholder = "status"
	ti.CharLimit = 32
	ti.Width = 30
	ti.Prompt = "> "
	ti.Focus()

	output := &lineBuffer{}
	stats := console.NewStatistics()
	session := console.NewSession(l.encoder, l.manager, console.SessionOptions{
		Out:    output,
		Logger: logger,
		Stats:  stats,
		Echo:   true,
	})

	return tuiModel{
		link:    l,
		session: session,
		stats:   stats,
		output:  output,
		input:   ti,
		pause:   cfg.Session.Pause,
		busy:    true,
		maxLog:  200,
		width:   80,
		height:  24,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tuiTickCmd(), m.startCmd())
}

func tuiTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tuiTickMsg(t)
	})
}

// startCmd sends the probe
func (m tuiModel) startCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		err := session.Start(context.Background())
		return dispatchedMsg{state: session.State(), err: err}
	}
}

// dispatchCmd runs one instruction off the UI goroutine and holds the
// input for the configured pause afterwards.
func (m tuiModel) dispatchCmd(line string, pins mcuproto.PinReader) tea.Cmd {
	session := m.session
	pause := m.pause
	return func() tea.Msg {
		state, err := session.DispatchWith(context.Background(), line, pins)
		if state == console.StateRunning {
			time.Sleep(pause)
		}
		return dispatchedMsg{state: state, err: err}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			if m.state == console.StateRunning && !m.busy {
				return m, m.dispatchCmd(mcuproto.InstrExit, nil)
			}
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := m.input.Value()
			m.input.Reset()
			return m.submit(line)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tuiTickMsg:
		return m, tuiTickCmd()

	case dispatchedMsg:
		m.busy = false
		m.state = msg.state
		for _, line := range m.output.drain() {
			m.addLogEntry(line, strings.HasPrefix(line, "Transmit failed"))
		}
		if msg.state == console.StateTerminated {
			m.err = msg.err
			return m, tea.Quit
		}
		if m.quitting {
			return m, m.dispatchCmd(mcuproto.InstrExit, nil)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles a line typed into the input
func (m tuiModel) submit(line string) (tea.Model, tea.Cmd) {
	if m.pending == "" {
		m.addLogEntry("> "+line, false)
		if c, ok := m.link.encoder.Lookup(line); ok && c.NeedsPin {
			m.pending = line
			m.input.Placeholder = "pin"
			return m, nil
		}
		m.busy = true
		return m, m.dispatchCmd(line, nil)
	}

	idx, err := console.SelectPin(m.link.tables.Pins, line)
	if console.IsRetry(err) {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}

	instruction := m.pending
	m.pending = ""
	m.input.Placeholder = "status"
	if err != nil {
		m.addLogEntry("Cancelled "+instruction, false)
		return m, nil
	}

	m.addLogEntry(fmt.Sprintf("pin %d", idx), false)
	m.busy = true
	return m, m.dispatchCmd(instruction, mcuproto.FixedPin(idx))
}

func (m *tuiModel) addLogEntry(message string, isError bool) {
	m.log = append(m.log, logEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(m.log) > m.maxLog {
		m.log = m.log[len(m.log)-m.maxLog:]
	}
}

func (m tuiModel) View() string {
	if m.quitting && m.state == console.StateTerminated {
		return ""
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	s.WriteString(titleStyle.Render("mcuconsole"))
	s.WriteString("  ")
	s.WriteString(headerStyle.Render(m.link.describe() + " | Esc to quit"))
	s.WriteString("\n\n")

	// Statistics, copied under the lock since a dispatch may be recording
	snap := m.stats.Snapshot()
	stats := strings.Builder{}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", snap.FramesSent)),
		labelStyle.Render("Bytes:"), valueStyle.Render(fmt.Sprintf("%d", snap.BytesSent)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.2f frames/s", snap.FrameRate)),
	))
	unrecognized := valueStyle.Render(fmt.Sprintf("%d", snap.Unrecognized))
	if snap.Unrecognized > 0 {
		unrecognized = warningStyle.Render(fmt.Sprintf("%d", snap.Unrecognized))
	}
	failures := valueStyle.Render(fmt.Sprintf("%d", snap.TransmitErrors))
	if snap.TransmitErrors > 0 {
		failures = errorStyle.Render(fmt.Sprintf("%d", snap.TransmitErrors))
	}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Unrecognized:"), unrecognized,
		labelStyle.Render("Transmit errors:"), failures,
	))
	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Events:"))
	s.WriteString("\n")

	logHeight := m.height - 12
	if logHeight < 5 {
		logHeight = 5
	}
	start := len(m.log) - logHeight
	if start < 0 {
		start = 0
	}

	content := strings.Builder{}
	if len(m.log) == 0 {
		content.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for _, entry := range m.log[start:] {
		ts := headerStyle.Render(entry.timestamp.Format("15:04:05.000"))
		if entry.isError {
			content.WriteString(fmt.Sprintf("%s %s\n", ts, errorStyle.Render(entry.message)))
		} else {
			content.WriteString(fmt.Sprintf("%s %s\n", ts, entry.message))
		}
	}
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(strings.TrimRight(content.String(), "\n")))
	s.WriteString("\n\n")

	// Input
	if m.pending != "" {
		last := len(m.link.tables.Pins) - 1
		s.WriteString(warningStyle.Render(fmt.Sprintf("Pin for %s (0-%d, 'exit' to cancel)", m.pending, last)))
		s.WriteString("\n")
	}
	s.WriteString(m.input.View())
	if m.busy {
		s.WriteString(headerStyle.Render("  sending..."))
	}

	return s.String()
}
