package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitlog/internal/cache"
	"github.com/julianstephens/habitlog/internal/constants"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/tui/components/habitlist"
	"github.com/julianstephens/habitlog/internal/validation"
)

type HabitFormModel struct {
	Name string
	Goal string
	Icon string
}

// Model is the habit tracker screen. Every read and write goes through the
// cache, so toggles show immediately and roll back if the store refuses them.
type Model struct {
	cache  *cache.Cache
	userID string
	today  func() string

	state           constants.SessionState
	keys            KeyMap
	help            help.Model
	habitList       habitlist.Model
	form            *huh.Form
	habitForm       *HabitFormModel
	habitToDeleteID string
	status          string
	statusIsError   bool
	quitting        bool
	width           int
	height          int
}

func NewModel(c *cache.Cache, userID string, today func() string) Model {
	var initial []models.Habit
	if habits, ok := c.PeekList(userID); ok {
		initial = habits
	}
	return Model{
		cache:     c,
		userID:    userID,
		today:     today,
		state:     constants.StateHabits,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		habitList: habitlist.New(initial, 0, 0),
	}
}

type habitsLoadedMsg struct {
	habits []models.Habit
	err    error
}

type habitToggledMsg struct {
	id      string
	outcome models.ToggleOutcome
	err     error
}

type habitSavedMsg struct {
	habit models.Habit
	err   error
}

type habitDeletedMsg struct {
	name string
	err  error
}

func (m Model) loadHabits(refresh bool) tea.Cmd {
	return func() tea.Msg {
		load := m.cache.ListHabits
		if refresh {
			load = m.cache.RefreshList
		}
		habits, err := load(context.Background(), m.userID)
		return habitsLoadedMsg{habits: habits, err: err}
	}
}

func (m Model) toggleHabit(id string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.cache.ToggleToday(context.Background(), m.userID, id, "")
		return habitToggledMsg{id: id, outcome: out, err: err}
	}
}

func (m Model) createHabit(in models.CreateHabit) tea.Cmd {
	return func() tea.Msg {
		h, err := m.cache.CreateHabit(context.Background(), m.userID, in)
		return habitSavedMsg{habit: h, err: err}
	}
}

// habitName looks up a shown habit's name, falling back to its id
func (m Model) habitName(id string) string {
	for _, h := range m.habitList.Habits() {
		if h.ID == id {
			return h.Name
		}
	}
	return id
}

func (m Model) deleteHabit(id string) tea.Cmd {
	name := m.habitName(id)
	return func() tea.Msg {
		return habitDeletedMsg{name: name, err: m.cache.DeleteHabit(context.Background(), m.userID, id)}
	}
}

// syncFromCache redraws the list from what the cache holds now
func (m *Model) syncFromCache() tea.Cmd {
	habits, ok := m.cache.PeekList(m.userID)
	if !ok {
		return m.loadHabits(false)
	}
	m.habitList.SetHabits(habits)
	return nil
}

func (m *Model) newHabitForm() *huh.Form {
	m.habitForm = &HabitFormModel{}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.habitForm.Name).
				Validate(func(s string) error {
					return validation.CreateHabit(models.CreateHabit{Name: strings.TrimSpace(s)})
				}),
			huh.NewInput().
				Title("Goal").
				Placeholder("optional").
				Value(&m.habitForm.Goal),
			huh.NewInput().
				Title("Icon").
				Placeholder("optional").
				Value(&m.habitForm.Icon),
		),
	).WithShowHelp(true)
}

func (m *Model) setStatus(msg string, isError bool) {
	m.status = msg
	m.statusIsError = isError
}

func (m Model) Init() tea.Cmd {
	return m.loadHabits(false)
}
