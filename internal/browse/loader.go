package browse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobagg/internal/model"
)

// ErrCancelled is returned by RunLoader when the user presses ctrl+c.
var ErrCancelled = errors.New("cancelled")

const loadTimeout = time.Minute

type loadedMsg struct {
	jobs []model.StoredJob
	err  error
}

type loaderModel struct {
	label   string
	load    func(ctx context.Context) ([]model.StoredJob, error)
	spinner spinner.Model
	jobs    []model.StoredJob
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	load := m.load
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		jobs, err := load(ctx)
		return loadedMsg{jobs: jobs, err: err}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.jobs, m.err, m.done = msg.jobs, msg.err, true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err, m.done = ErrCancelled, true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s loading jobs from %s\n", m.spinner.View(), m.label)
}

// RunLoader shows an inline spinner while load runs.
func RunLoader(label string, load func(ctx context.Context) ([]model.StoredJob, error)) ([]model.StoredJob, error) {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	result, err := tea.NewProgram(loaderModel{label: label, load: load, spinner: sp}).Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.jobs, final.err
}
