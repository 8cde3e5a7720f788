package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	lua "github.com/yuin/gopher-lua"

	luamachine "github.com/wippyai/lua-machine"
	"github.com/wippyai/lua-machine/machine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	outcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	signalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxLogLines = 20

type consoleModel struct {
	err      error
	d        *driver
	queue    *luamachine.BufferedQueue
	filename string
	input    textinput.Model
	log      []string
	ticks    int
	halted   bool
}

func newConsoleModel(filename string, m *machine.Machine, queue *luamachine.BufferedQueue) *consoleModel {
	ti := textinput.New()
	ti.Placeholder = "signal name [args...]"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()

	return &consoleModel{
		d:        &driver{m: m, queue: queue},
		queue:    queue,
		filename: filename,
		input:    ti,
	}
}

func (c *consoleModel) Init() tea.Cmd {
	if !c.d.m.Initialize() {
		c.err = fmt.Errorf("machine failed to initialize")
		return nil
	}
	return textinput.Blink
}

func (c *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return c, tea.Quit

		case "enter":
			text := strings.TrimSpace(c.input.Value())
			c.input.SetValue("")
			if text != "" {
				c.pushSignal(text)
			}
			c.advance()
			return c, nil

		case "ctrl+r":
			if err := c.d.reboot(); err != nil {
				c.err = err
				return c, nil
			}
			c.halted = false
			c.appendLog(outcomeStyle.Render("rebooted"))
			return c, nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

// pushSignal parses "name arg..." into a signal. Arguments are converted to
// booleans and numbers where they parse as such, strings otherwise.
func (c *consoleModel) pushSignal(text string) {
	fields := strings.Fields(text)
	args := make([]lua.LValue, 0, len(fields)-1)
	for _, f := range fields[1:] {
		args = append(args, convertArg(f))
	}
	sig := luamachine.Signal{Name: fields[0], Args: args}
	if !c.queue.Push(sig) {
		c.appendLog(errorStyle.Render("signal dropped: queue full"))
		return
	}
	c.appendLog(signalStyle.Render("signal " + text))
}

func convertArg(value string) lua.LValue {
	switch value {
	case "true":
		return lua.LTrue
	case "false":
		return lua.LFalse
	case "nil":
		return lua.LNil
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return lua.LNumber(n)
	}
	return lua.LString(value)
}

func (c *consoleModel) advance() {
	if c.halted {
		c.appendLog(helpStyle.Render("machine is halted (ctrl+r to reboot)"))
		return
	}
	c.ticks++

	out, ran, err := c.d.tick()
	if err != nil {
		c.halted = true
		c.appendLog(errorStyle.Render(err.Error()))
		return
	}
	if !ran {
		c.appendLog(helpStyle.Render(fmt.Sprintf("tick %d: sleeping (%d left)", c.ticks, c.d.sleep)))
		return
	}

	line := fmt.Sprintf("tick %d: %v", c.ticks, out)
	switch out.Kind {
	case machine.OutcomeError:
		c.halted = true
		c.appendLog(errorStyle.Render(line))
	case machine.OutcomeShutdown:
		if out.Reboot {
			c.appendLog(outcomeStyle.Render(line))
			if err := c.d.reboot(); err != nil {
				c.err = err
				return
			}
			c.appendLog(outcomeStyle.Render("rebooted"))
		} else {
			c.halted = true
			c.appendLog(outcomeStyle.Render(line))
		}
	default:
		c.appendLog(outcomeStyle.Render(line))
	}
}

func (c *consoleModel) appendLog(line string) {
	c.log = append(c.log, line)
	if len(c.log) > maxLogLines {
		c.log = c.log[len(c.log)-maxLogLines:]
	}
}

func (c *consoleModel) View() string {
	if c.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress esc to quit.", c.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Machine Console"))
	b.WriteString(" ")
	b.WriteString(c.filename)
	b.WriteString(fmt.Sprintf("  memory=%d  queued=%d\n\n", c.d.m.TotalMemory(), c.queue.Len()))

	for _, line := range c.log {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(c.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter tick (with text: push signal first) • ctrl+r reboot • esc quit"))

	return b.String()
}

func runInteractive(filename string, m *machine.Machine, queue *luamachine.BufferedQueue) error {
	p := tea.NewProgram(newConsoleModel(filename, m, queue), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
