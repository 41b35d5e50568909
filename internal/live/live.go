// Package live renders a terminal monitor for a running Arnoldi
// iteration: leading Ritz values and the orthogonalization residual
// history, updated after every subspace expansion.
package live

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/eigenflow/internal/krylov"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Runner drives the eigenvalue computation, delivering per-step
// callbacks until it returns.
type Runner func(ctx context.Context, onStep func(krylov.StepInfo)) (*krylov.Report, error)

type stepMsg krylov.StepInfo

type doneMsg struct {
	report *krylov.Report
	err    error
}

type Model struct {
	modelName string
	steps     []krylov.StepInfo
	report    *krylov.Report
	err       error
	done      bool

	msgs   chan tea.Msg
	cancel context.CancelFunc
}

func NewModel(modelName string, run Runner) Model {
	msgs := make(chan tea.Msg, 16)
	ctx, cancel := context.WithCancel(context.Background())

	// Sends race against the user quitting: once Update stops draining
	// msgs nothing empties the buffer, so every send must also watch the
	// cancelled context or the runner goroutine leaks.
	go func() {
		report, err := run(ctx, func(info krylov.StepInfo) {
			select {
			case msgs <- stepMsg(info):
			case <-ctx.Done():
			}
		})
		select {
		case msgs <- doneMsg{report: report, err: err}:
		case <-ctx.Done():
		}
	}()

	return Model{modelName: modelName, msgs: msgs, cancel: cancel}
}

func (m Model) Init() tea.Cmd {
	return m.wait()
}

func (m Model) wait() tea.Cmd {
	return func() tea.Msg { return <-m.msgs }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case stepMsg:
		m.steps = append(m.steps, krylov.StepInfo(msg))
		return m, m.wait()
	case doneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("eigenflow · %s", m.modelName)))
	b.WriteString("\n")

	if len(m.steps) > 0 {
		last := m.steps[len(m.steps)-1]
		b.WriteString(labelStyle.Render("iteration") + valueStyle.Render(fmt.Sprintf("%d", last.Iteration)) + "\n")
		b.WriteString(labelStyle.Render("residual") + valueStyle.Render(fmt.Sprintf("%.3e", last.Residual)) + "\n")

		for i, v := range last.Leading {
			line := fmt.Sprintf("%.6f %+.6fi  (|λ| = %.6f)", real(v), imag(v), cmplx.Abs(v))
			b.WriteString(labelStyle.Render(fmt.Sprintf("ritz %d", i+1)) + valueStyle.Render(line) + "\n")
		}

		if graph := m.residualGraph(); graph != "" {
			b.WriteString(graphStyle.Render(graph))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(valueStyle.Render("evaluating base point...") + "\n")
	}

	if m.done {
		if m.err != nil {
			b.WriteString(errStyle.Render("failed: "+m.err.Error()) + "\n")
		} else {
			b.WriteString(okStyle.Render("finished: "+m.report.Result.Status.String()) + "\n")
		}
	}

	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}

func (m Model) residualGraph() string {
	if len(m.steps) < 2 {
		return ""
	}
	data := make([]float64, len(m.steps))
	for i, s := range m.steps {
		r := s.Residual
		if r < 1e-16 {
			r = 1e-16
		}
		data[i] = math.Log10(r)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Caption("log10 orthogonalization residual"),
	)
}

// Report returns the finished run's outcome; ok is false while the
// run is still in flight.
func (m Model) Report() (report *krylov.Report, ok bool, err error) {
	return m.report, m.done, m.err
}
