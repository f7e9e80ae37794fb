// Package browse is an interactive terminal browser over stored jobs.
package browse

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/amishk599/jobagg/internal/filter"
	"github.com/amishk599/jobagg/internal/model"
)

var (
	accent = lipgloss.Color("39")
	muted  = lipgloss.Color("244")

	barStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	focusedPane = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent)
	blurredPane = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	rowStyle    = lipgloss.NewStyle()
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("24"))
	dimStyle    = lipgloss.NewStyle().Foreground(muted)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent).Width(13)
	headStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
)

var (
	jobTypeCycle   = append([]model.JobType{""}, model.JobTypes...)
	dateRangeCycle = []model.DateRange{model.DateRangeAny, model.DateRangeToday, model.DateRange3Days, model.DateRange7Days}
)

type focus int

const (
	focusList focus = iota
	focusPreview
)

// browseModel shows the jobs that pass the current filter on the left and the
// selected job on the right. Filtering happens in memory with filter.Match,
// so it agrees with what the store would return for the same Filters.
type browseModel struct {
	jobs  []model.StoredJob
	shown []int // indexes into jobs
	f     model.Filters
	now   func() time.Time

	cursor int
	top    int // first list row on screen
	focus  focus

	search     textinput.Model
	searching  bool
	prevSearch string

	preview viewport.Model
	width   int
	height  int

	wantQuit bool
}

func newBrowseModel(jobs []model.StoredJob, now func() time.Time) browseModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "role, company or description"
	ti.CharLimit = 80

	m := browseModel{jobs: jobs, now: now, search: ti, preview: viewport.New(0, 0)}
	m.refilter()
	return m
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.preview.Width = m.previewWidth()
		m.preview.Height = m.bodyRows()
		m.scrollToCursor()
		m.refreshPreview()
		return m, nil
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m browseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.prevSearch)
		m.f.Search = m.prevSearch
		m.refilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := strings.TrimSpace(m.search.Value()); q != m.f.Search {
		m.f.Search = q
		m.refilter()
	}
	return m, cmd
}

func (m browseModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		return m, tea.Quit
	case "tab":
		m.focus = 1 - m.focus
		return m, nil
	case "/":
		m.searching = true
		m.prevSearch = m.f.Search
		return m, m.search.Focus()
	case "t":
		m.f.JobType = next(jobTypeCycle, m.f.JobType)
		m.refilter()
		return m, nil
	case "d":
		m.f.DateRange = next(dateRangeCycle, m.f.DateRange)
		m.refilter()
		return m, nil
	case "c":
		m.f = model.Filters{}
		m.search.SetValue("")
		m.refilter()
		return m, nil
	case "o":
		if j, ok := m.selected(); ok && strings.HasPrefix(j.ApplicationLink, "http") {
			openURL(j.ApplicationLink)
		}
		return m, nil
	}

	if m.focus == focusPreview {
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "up", "k":
		m.moveTo(m.cursor - 1)
	case "down", "j":
		m.moveTo(m.cursor + 1)
	case "pgup":
		m.moveTo(m.cursor - m.bodyRows())
	case "pgdown", " ":
		m.moveTo(m.cursor + m.bodyRows())
	case "g", "home":
		m.moveTo(0)
	case "G", "end":
		m.moveTo(len(m.shown) - 1)
	}
	return m, nil
}

func (m *browseModel) refilter() {
	now := m.now()
	shown := make([]int, 0, len(m.jobs))
	for i, j := range m.jobs {
		if filter.Match(m.f, j, now) {
			shown = append(shown, i)
		}
	}
	m.shown = shown
	m.moveTo(m.cursor)
}

// moveTo places the cursor on row i, clamped to the shown rows.
func (m *browseModel) moveTo(i int) {
	m.cursor = clamp(i, 0, max(len(m.shown)-1, 0))
	m.scrollToCursor()
	m.refreshPreview()
}

func (m *browseModel) scrollToCursor() {
	rows := m.bodyRows()
	if m.cursor < m.top {
		m.top = m.cursor
	} else if rows > 0 && m.cursor >= m.top+rows {
		m.top = m.cursor - rows + 1
	}
}

func (m *browseModel) refreshPreview() {
	j, ok := m.selected()
	if !ok {
		m.preview.SetContent(dimStyle.Render("nothing matches"))
		return
	}
	m.preview.SetContent(renderPreview(j, max(m.preview.Width-1, 20)))
	m.preview.GotoTop()
}

func (m browseModel) selected() (model.StoredJob, bool) {
	if len(m.shown) == 0 {
		return model.StoredJob{}, false
	}
	return m.jobs[m.shown[m.cursor]], true
}

// bodyRows is the height of both panes inside their borders.
func (m browseModel) bodyRows() int {
	return max(m.height-4, 1)
}

func (m browseModel) listWidth() int {
	return max(m.width*2/5-2, 20)
}

func (m browseModel) previewWidth() int {
	return max(m.width-m.listWidth()-4, 20)
}

func (m browseModel) View() string {
	if m.width == 0 {
		return "loading..."
	}

	top := barStyle.Width(m.width).Render(m.filterBar())
	if m.searching {
		top = barStyle.Width(m.width).Render(m.search.View())
	}

	listPane, previewPane := blurredPane, blurredPane
	if m.focus == focusList {
		listPane = focusedPane
	} else {
		previewPane = focusedPane
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listPane.Width(m.listWidth()).Height(m.bodyRows()).Render(m.renderList()),
		previewPane.Width(m.previewWidth()).Height(m.bodyRows()).Render(m.preview.View()),
	)

	help := "j/k move  tab focus  / search  t type  d dates  c clear  o open  b back  q quit"
	if m.searching {
		help = "enter keep  esc cancel"
	}
	return top + "\n" + body + "\n" + barStyle.Width(m.width).Render(help)
}

// filterBar summarizes the active filter and how many jobs pass it.
func (m browseModel) filterBar() string {
	parts := []string{"type: any", "dates: any"}
	if m.f.JobType != "" {
		parts[0] = "type: " + string(m.f.JobType)
	}
	if m.f.DateRange != model.DateRangeAny {
		parts[1] = "dates: " + dateLabel(m.f.DateRange)
	}
	if m.f.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", m.f.Search))
	}
	return fmt.Sprintf("%s  ·  %d of %d jobs", strings.Join(parts, "  "), len(m.shown), len(m.jobs))
}

func (m browseModel) renderList() string {
	if len(m.shown) == 0 {
		return dimStyle.Render("no jobs match")
	}
	width := m.listWidth()
	end := min(m.top+m.bodyRows(), len(m.shown))

	var b strings.Builder
	for row := m.top; row < end; row++ {
		j := m.jobs[m.shown[row]]
		line := fmt.Sprintf("%s  %s · %s", j.PostedDate.Format("Jan 02"), j.Role, j.CompanyName)
		line = runewidth.FillRight(runewidth.Truncate(line, width, "…"), width)
		if row == m.cursor {
			b.WriteString(cursorStyle.Render(line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		if row < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderPreview(j model.StoredJob, width int) string {
	var b strings.Builder
	b.WriteString(headStyle.Render(wordWrap(j.Role, width)) + "\n")
	b.WriteString(dimStyle.Render(j.CompanyName) + "\n\n")

	field := func(label, value string) {
		if value != "" {
			b.WriteString(labelStyle.Render(label) + value + "\n")
		}
	}
	field("Location", j.Location)
	field("Type", string(j.JobType))
	field("Experience", j.ExperienceRequired)
	field("Apply", j.ApplicationLink)
	field("Posted", j.PostedDate.Local().Format("2006-01-02 15:04"))
	field("First seen", j.FirstSeen.Local().Format("2006-01-02 15:04"))
	field("Source", j.Source)
	field("Extracted by", j.ExtractedBy)
	if len(j.Fingerprint) >= 12 {
		field("Fingerprint", j.Fingerprint[:12])
	}

	if j.Description != "" {
		b.WriteString("\n" + wordWrap(j.Description, width) + "\n")
	}
	return b.String()
}

func dateLabel(r model.DateRange) string {
	switch r {
	case model.DateRangeToday:
		return "today"
	case model.DateRange3Days:
		return "last 3 days"
	case model.DateRange7Days:
		return "last 7 days"
	}
	return "any"
}

// next returns the element after cur in cycle, wrapping around.
func next[T comparable](cycle []T, cur T) T {
	for i, v := range cycle {
		if v == cur {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}

// wordWrap breaks text into lines of at most width display cells. Existing
// line breaks are kept.
func wordWrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if runewidth.StringWidth(line)+1+runewidth.StringWidth(w) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// openURL hands url to the desktop's opener without waiting for it.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}

// Run shows jobs until the user leaves. It reports true when the user asked
// to quit and false when they went back to pick another source.
func Run(jobs []model.StoredJob) (bool, error) {
	result, err := tea.NewProgram(newBrowseModel(jobs, time.Now), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	return result.(browseModel).wantQuit, nil
}
