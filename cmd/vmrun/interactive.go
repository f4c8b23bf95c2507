package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/polyvm/anticheat-vm/asyncvm"
	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/container"
	"github.com/polyvm/anticheat-vm/integrity"
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/vm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	regStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	stackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	haltStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// stepModel drives one vm.State through bubbletea: "n" steps a single
// instruction, "c" polls asyncvm.Executor up to the next build-randomized
// yield boundary (or halt), "q" quits. It exists so a developer can watch
// registers and the stack evolve instruction by instruction instead of
// only seeing the final Result.
type stepModel struct {
	exec    *asyncvm.Executor
	opTable *buildconfig.OpcodeTable
	reg     *native.Registry
	lastErr error
	status  asyncvm.Status
	history []string
}

func newStepModel(cfg *buildconfig.Config, state *vm.State, reg *native.Registry) *stepModel {
	exec := asyncvm.NewExecutor(state, asyncvm.Config{
		OpTable:   &cfg.Opcodes,
		FlagBits:  cfg.FlagBits,
		FNV:       cfg.FNV,
		Registry:  reg,
		YieldMask: cfg.YieldMask,
	})
	return &stepModel{exec: exec, opTable: &cfg.Opcodes, reg: reg}
}

func (m *stepModel) Init() tea.Cmd { return nil }

func (m *stepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "n":
		if m.exec.State().Halted || m.lastErr != nil {
			return m, nil
		}
		before := m.exec.State().InstructionCount
		if err := vm.Step(m.exec.State(), m.opTable, m.reg); err != nil {
			m.lastErr = err
			m.exec.State().LastError = err
		}
		m.history = append(m.history, fmt.Sprintf("ip advanced from step %d", before))

	case "c":
		if m.exec.State().Halted || m.lastErr != nil {
			return m, nil
		}
		status, err := m.exec.Poll()
		m.status = status
		if err != nil {
			m.lastErr = err
		}
		m.history = append(m.history, fmt.Sprintf("polled to %v at instruction %d", status, m.exec.State().InstructionCount))
	}
	return m, nil
}

func (m *stepModel) View() string {
	s := m.exec.State()
	var b strings.Builder

	b.WriteString(titleStyle.Render("vmrun interactive"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "IP: %d   Instructions: %d   Flags: %08b\n\n", s.IP, s.InstructionCount, s.Flags())

	b.WriteString(regStyle.Render("Registers:") + "\n")
	for i, r := range s.Regs {
		if r == 0 {
			continue
		}
		fmt.Fprintf(&b, "  r%-2d = %d (0x%x)\n", i, r, r)
	}

	b.WriteString("\n" + stackStyle.Render("Stack (top last):") + "\n  ")
	b.WriteString(fmt.Sprintf("%v\n", s.StackSnapshot()))

	if len(m.history) > 0 {
		b.WriteString("\n" + helpStyle.Render(strings.Join(lastN(m.history, 5), "\n")) + "\n")
	}

	b.WriteString("\n")
	switch {
	case m.lastErr != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.lastErr)))
	case s.Halted:
		b.WriteString(haltStyle.Render(fmt.Sprintf("Halted. Result = %d (0x%x)", s.Result, s.Result)))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("n step one instruction • c run to next yield/halt • q quit"))
	return b.String()
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

// runInteractive parses payload under cfg and drives the resulting
// machine state through a bubbletea TUI.
func runInteractive(cfg *buildconfig.Config, payload, input []byte, reg *native.Registry) {
	c, err := container.Parse(payload, cfg)
	if err != nil {
		fail("parse container: %v", err)
	}

	state := vm.NewState(c.Plaintext, input, cfg.FlagBits, cfg.FNV, vm.DefaultConfig())
	if cfg.Flags.HasIntegrity() {
		table, err := integrity.Build(c.Plaintext, cfg.FNV)
		if err != nil {
			fail("integrity table: %v", err)
		}
		state.SetIntegrityTable(table)
	}

	p := tea.NewProgram(newStepModel(cfg, state, reg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fail("interactive: %v", err)
	}
}
