// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// filterItem implements list.Item for the bubbles list component.
type filterItem struct {
	label string
	index int
}

func (i filterItem) Title() string       { return i.label }
func (i filterItem) Description() string { return "" }
func (i filterItem) FilterValue() string { return i.label }

// filterModel is the bubbletea model for the filterable picker.
type filterModel struct {
	list      list.Model
	quitting  bool
	cancelled bool
}

func (m filterModel) Init() tea.Cmd {
	return nil
}

func (m filterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			m.cancelled = true
			return m, tea.Quit
		case "esc":
			// Esc first clears an active filter; a second esc cancels.
			if m.list.FilterState() == list.Unfiltered {
				m.quitting = true
				m.cancelled = true
				return m, tea.Quit
			}
		case "enter":
			if m.list.FilterState() != list.Filtering {
				m.quitting = true
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m filterModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// FilterEntry prompts with a fuzzy-filterable list and returns the chosen
// entry's index. Dismissing the prompt returns ErrAborted.
func FilterEntry(title string, entries []Entry, cfg Config) (int, error) {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = filterItem{label: e.Label(), index: i}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false

	l := list.New(items, delegate, 60, 14)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

	p := tea.NewProgram(filterModel{list: l})
	finalModel, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("script selection: %w", err)
	}

	fm := finalModel.(filterModel)
	if fm.cancelled {
		return 0, ErrAborted
	}

	if item, ok := fm.list.SelectedItem().(filterItem); ok {
		return item.index, nil
	}

	return 0, ErrAborted
}

// FuzzyMatch returns the options matching pattern, best match first. An
// empty pattern returns the options unchanged.
func FuzzyMatch(pattern string, options []string) []string {
	if pattern == "" {
		return options
	}

	matches := fuzzy.Find(pattern, options)
	sort.Sort(matches)

	results := make([]string, len(matches))
	for i, m := range matches {
		results[i] = options[m.Index]
	}

	return results
}
