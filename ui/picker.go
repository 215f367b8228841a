package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
)

// PickerItem is one selectable row.
type PickerItem struct {
	ID     string
	Title  string
	Detail string
}

// pickerSource adapts a PickerItem slice to fuzzy.Source.
type pickerSource []PickerItem

func (s pickerSource) String(i int) string { return s[i].Title }
func (s pickerSource) Len() int            { return len(s) }

// Picker is a filterable selection list shown as a modal: fuzzy filter on
// top, j/k or arrows to move, enter to choose.
type Picker struct {
	Title string

	input    textinput.Model
	items    []PickerItem
	filtered []PickerItem
	selected int
}

func NewPicker(title, placeholder string, items []PickerItem) *Picker {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Focus()
	input.CharLimit = 120

	return &Picker{
		Title:    title,
		input:    input,
		items:    items,
		filtered: items,
	}
}

// SetItems replaces the list, re-applying the current filter.
func (p *Picker) SetItems(items []PickerItem) {
	p.items = items
	p.applyFilter()
}

func (p *Picker) Input() *textinput.Model { return &p.input }

func (p *Picker) Query() string { return p.input.Value() }

// Selected returns the highlighted item, or nil when the list is empty.
func (p *Picker) Selected() *PickerItem {
	if len(p.filtered) == 0 {
		return nil
	}
	if p.selected >= len(p.filtered) {
		p.selected = len(p.filtered) - 1
	}
	item := p.filtered[p.selected]
	return &item
}

func (p *Picker) MoveUp() {
	if p.selected > 0 {
		p.selected--
	}
}

func (p *Picker) MoveDown() {
	if p.selected < len(p.filtered)-1 {
		p.selected++
	}
}

// Refilter recomputes the visible list from the current input value.
func (p *Picker) Refilter() {
	p.applyFilter()
}

func (p *Picker) applyFilter() {
	query := strings.TrimSpace(p.input.Value())
	if query == "" {
		p.filtered = p.items
	} else {
		matches := fuzzy.FindFrom(query, pickerSource(p.items))
		filtered := make([]PickerItem, 0, len(matches))
		for _, m := range matches {
			filtered = append(filtered, p.items[m.Index])
		}
		p.filtered = filtered
	}
	if p.selected >= len(p.filtered) {
		p.selected = 0
	}
}

// View renders the picker centered in the given area.
func (p *Picker) View(width, height int) string {
	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}
	if modalWidth < 20 {
		modalWidth = 20
	}
	maxLines := height - 10
	if maxLines < 3 {
		maxLines = 3
	}

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render(p.Title)

	headerSection := lipgloss.NewStyle().
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(p.input.View())

	var lines []string
	if len(p.filtered) == 0 {
		lines = append(lines, DimStyle.Italic(true).Width(modalWidth).Align(lipgloss.Center).Render("No matches"))
	} else {
		start, end := scrollWindow(len(p.filtered), p.selected, maxLines)
		for i := start; i < end; i++ {
			item := p.filtered[i]

			indicator := "  "
			if i == p.selected {
				indicator = "▶ "
			}

			detail := item.Detail
			maxTitle := modalWidth - len(indicator) - runewidth.StringWidth(detail) - 3
			if maxTitle < 5 {
				maxTitle = 5
			}
			title := runewidth.Truncate(item.Title, maxTitle, "…")
			pad := modalWidth - len(indicator) - runewidth.StringWidth(title) - runewidth.StringWidth(detail) - 1
			if pad < 1 {
				pad = 1
			}

			line := fmt.Sprintf("%s%s%s%s", indicator, title, strings.Repeat(" ", pad), DimStyle.Render(detail))
			if i == p.selected {
				line = SelectedStyle.Render(fmt.Sprintf("%s%s", indicator, title)) +
					strings.Repeat(" ", pad) + DimStyle.Render(detail)
			}
			lines = append(lines, lipgloss.NewStyle().Width(modalWidth).Render(line))
		}
	}

	footerSection := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(FormatFooter("↑/↓", "Navigate", "Enter", "Select", "Esc", "Close"))

	sections := []string{titleSection, headerSection}
	sections = append(sections, lines...)
	sections = append(sections, footerSection)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}

// scrollWindow keeps the selected index visible within a maxLines viewport.
func scrollWindow(total, selected, maxLines int) (start, end int) {
	if total <= maxLines {
		return 0, total
	}
	start = selected - maxLines/2
	if start < 0 {
		start = 0
	}
	end = start + maxLines
	if end > total {
		end = total
		start = end - maxLines
	}
	return start, end
}
