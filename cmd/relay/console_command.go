package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"relay/internal/daemon"
	"relay/internal/ipc"
	"relay/internal/textutil"
)

// consoleBackend is the slice of the IPC client the console drives.
type consoleBackend interface {
	Status(reports int) (*ipc.StatusResponse, error)
	Pause() (*ipc.PauseResponse, error)
	Resume() (*ipc.ResumeResponse, error)
	Skip() (*ipc.SkipResponse, error)
	SetCooldown(seconds int) (*ipc.SetCooldownResponse, error)
}

const (
	consolePollInterval = time.Second
	consoleReports      = 8
)

var (
	consoleTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	consoleMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	consoleErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	consoleOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	consoleWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	consolePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type consoleTickMsg time.Time

type consoleStatusMsg struct {
	status daemon.Status
	err    error
}

type consoleActionMsg struct {
	message string
	err     error
}

type consoleModel struct {
	backend consoleBackend

	status  daemon.Status
	loaded  bool
	lastErr string
	message string

	editing bool
	input   textinput.Model

	width int
}

func newConsoleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive batch console (pause, resume, skip, cooldown)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdinIsTTY() {
				return errors.New("console requires an interactive terminal (TTY)")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				p := tea.NewProgram(newConsoleModel(client), tea.WithAltScreen())
				_, err := p.Run()
				return err
			})
		},
	}
}

func newConsoleModel(backend consoleBackend) consoleModel {
	input := textinput.New()
	input.Prompt = "cooldown seconds > "
	input.CharLimit = 7
	input.Width = 12
	return consoleModel{backend: backend, input: input}
}

func (m consoleModel) Init() tea.Cmd {
	return m.fetchStatus()
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case consoleTickMsg:
		return m, m.fetchStatus()
	case consoleStatusMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.status = msg.status
			m.loaded = true
			m.lastErr = ""
		}
		return m, tea.Tick(consolePollInterval, func(t time.Time) tea.Msg { return consoleTickMsg(t) })
	case consoleActionMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.message = ""
		} else {
			m.message = msg.message
			m.lastErr = ""
		}
		return m, m.fetchStatus()
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.editing {
		return m.updateCooldownInput(keyMsg)
	}

	switch keyMsg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "p":
		return m, m.action(func() (string, error) {
			resp, err := m.backend.Pause()
			if err != nil {
				return "", err
			}
			if !resp.Changed {
				return "already paused", nil
			}
			return "paused", nil
		})
	case "r":
		return m, m.action(func() (string, error) {
			resp, err := m.backend.Resume()
			if err != nil {
				return "", err
			}
			if !resp.Changed {
				return "not paused", nil
			}
			return "resumed", nil
		})
	case "s":
		return m, m.action(func() (string, error) {
			resp, err := m.backend.Skip()
			if err != nil {
				return "", err
			}
			if resp.InCooldown {
				return "cooldown skipped", nil
			}
			return "skip armed for the next cooldown", nil
		})
	case "c":
		m.editing = true
		m.input.SetValue(strconv.Itoa(int(m.status.Workflow.Control.Cooldown.Seconds())))
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m consoleModel) updateCooldownInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.editing = false
		m.input.Blur()
		m.message = "cooldown unchanged"
		return m, nil
	case "enter":
		seconds, err := parseCooldownArg(strings.TrimSpace(m.input.Value()))
		if err != nil {
			m.lastErr = err.Error()
			return m, nil
		}
		m.editing = false
		m.input.Blur()
		return m, m.action(func() (string, error) {
			resp, err := m.backend.SetCooldown(seconds)
			if err != nil {
				return "", err
			}
			return "cooldown set to " + formatSeconds(resp.Seconds), nil
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) fetchStatus() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		resp, err := backend.Status(consoleReports)
		if err != nil {
			return consoleStatusMsg{err: err}
		}
		return consoleStatusMsg{status: resp.Status}
	}
}

func (m consoleModel) action(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		message, err := fn()
		return consoleActionMsg{message: message, err: err}
	}
}

func (m consoleModel) View() string {
	var b strings.Builder
	b.WriteString(consoleTitleStyle.Render("relay console"))
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString(consoleMutedStyle.Render("connecting to daemon..."))
	} else {
		b.WriteString(consolePanelStyle.Render(m.statusPanel()))
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(consoleMutedStyle.Render("enter apply | esc cancel"))
	} else {
		b.WriteString(consoleMutedStyle.Render("p pause | r resume | s skip cooldown | c set cooldown | q quit"))
	}
	b.WriteString("\n")
	if m.lastErr != "" {
		b.WriteString(consoleErrorStyle.Render("error: " + m.lastErr))
		b.WriteString("\n")
	} else if m.message != "" {
		b.WriteString(consoleOKStyle.Render(m.message))
		b.WriteString("\n")
	}
	return b.String()
}

func (m consoleModel) statusPanel() string {
	wf := m.status.Workflow
	ctl := wf.Control
	var lines []string

	state := consoleMutedStyle.Render("idle")
	switch {
	case wf.Running && ctl.Paused:
		state = consoleWarnStyle.Render("paused")
	case wf.Running && ctl.InCooldown:
		state = consoleOKStyle.Render("cooling down") + " " + formatRemaining(ctl.Remaining) + " left"
	case wf.Running:
		state = consoleOKStyle.Render("running")
	}
	lines = append(lines, "State:    "+state)
	lines = append(lines, fmt.Sprintf("Queue:    %s", pluralize(m.status.QueueLength, "item", "items")))
	lines = append(lines, "Cooldown: "+formatSeconds(int(ctl.Cooldown.Seconds())))
	if wf.Current != nil {
		current := fmt.Sprintf("%d/%d %s", wf.Index, wf.Total, textutil.Truncate(wf.Current.Title(wf.Current.Locator), queueLineWidth))
		if wf.Stage != "" {
			current += " [" + wf.Stage + "]"
		}
		lines = append(lines, "Current:  "+current)
	}
	if wf.Progress != nil {
		lines = append(lines, fmt.Sprintf("Progress: %.1f%% %s", wf.Progress.Percent, wf.Progress.Speed))
	}
	if len(wf.LastReports) > 0 {
		lines = append(lines, "")
		for _, r := range wf.LastReports {
			lines = append(lines, consoleMutedStyle.Render(r.Time.Local().Format("15:04:05"))+" "+textutil.Truncate(r.Message, 70))
		}
	}
	return strings.Join(lines, "\n")
}

func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
