package browse

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AllSources is the picker entry that removes the source constraint.
const AllSources = "All sources"

type sourceItem struct {
	name  string
	count int
}

func (i sourceItem) Title() string       { return i.name }
func (i sourceItem) Description() string { return fmt.Sprintf("%d stored jobs", i.count) }
func (i sourceItem) FilterValue() string { return i.name }

type pickerModel struct {
	list   list.Model
	chosen string
	quit   bool
}

func newPicker(sources []string, counts map[string]int) pickerModel {
	items := make([]list.Item, 0, len(sources)+1)
	items = append(items, sourceItem{name: AllSources, count: counts[AllSources]})
	for _, s := range sources {
		items = append(items, sourceItem{name: s, count: counts[s]})
	}

	l := list.New(items, list.NewDefaultDelegate(), 60, 20)
	l.Title = "Browse jobs from"
	l.Styles.Title = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	l.SetShowStatusBar(false)
	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		case "enter":
			if it, ok := m.list.SelectedItem().(sourceItem); ok {
				m.chosen = it.name
				return m, tea.Quit
			}
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}

// RunSourcePicker lets the user pick a source, AllSources first. counts is
// keyed by source name and may carry AllSources. It returns "" if the user
// quit.
func RunSourcePicker(sources []string, counts map[string]int) (string, error) {
	result, err := tea.NewProgram(newPicker(sources, counts), tea.WithAltScreen()).Run()
	if err != nil {
		return "", err
	}
	final := result.(pickerModel)
	if final.quit {
		return "", nil
	}
	return final.chosen, nil
}
