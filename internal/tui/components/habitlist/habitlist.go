package habitlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitlog/internal/models"
)

type AddHabitMsg struct{}

type DeleteHabitMsg struct {
	ID string
}

type ToggleHabitMsg struct {
	ID string
}

type Item struct {
	Habit models.Habit
	// Pending is set while a toggle of this habit awaits the store
	Pending bool
}

func (i Item) Title() string {
	mark := "[ ]"
	if i.Habit.IsDone {
		mark = "[x]"
	}
	title := mark + " " + i.Habit.Name
	if i.Habit.Icon != "" {
		title = mark + " " + i.Habit.Icon + " " + i.Habit.Name
	}
	if i.Pending {
		title += " …"
	}
	return title
}

func (i Item) Description() string {
	desc := fmt.Sprintf("streak %d", i.Habit.Streak)
	if i.Habit.Goal != "" {
		desc += " | " + i.Habit.Goal
	}
	return desc
}

func (i Item) FilterValue() string { return i.Habit.Name }

type KeyMap struct {
	Toggle key.Binding
	Add    key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space/x", "toggle today"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(habits []models.Habit, width, height int) Model {
	l := list.New(items(habits), list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false) // help is rendered by the main model
	l.KeyMap.Quit.SetEnabled(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Delete}
	}
	l.AdditionalFullHelpKeys = l.AdditionalShortHelpKeys

	return Model{list: l, keys: keys}
}

func items(habits []models.Habit) []list.Item {
	out := make([]list.Item, len(habits))
	for i, h := range habits {
		out[i] = Item{Habit: h}
	}
	return out
}

// SetHabits replaces the shown habits and clears pending marks
func (m *Model) SetHabits(habits []models.Habit) {
	m.list.SetItems(items(habits))
}

// Flip shows a toggle of id before the store has answered
func (m *Model) Flip(id string) {
	for idx, it := range m.list.Items() {
		item, ok := it.(Item)
		if !ok || item.Habit.ID != id {
			continue
		}
		item.Habit.IsDone = !item.Habit.IsDone
		item.Pending = true
		m.list.SetItem(idx, item)
		return
	}
}

// Habits returns the habits currently shown
func (m Model) Habits() []models.Habit {
	out := make([]models.Habit, 0, len(m.list.Items()))
	for _, it := range m.list.Items() {
		if item, ok := it.(Item); ok {
			out = append(out, item.Habit)
		}
	}
	return out
}

// Filtering reports whether the filter input has focus
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() {
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return ToggleHabitMsg{ID: i.Habit.ID} }
			}
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return DeleteHabitMsg{ID: i.Habit.ID} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
