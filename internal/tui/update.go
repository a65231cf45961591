package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitlog/internal/cache"
	"github.com/julianstephens/habitlog/internal/constants"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/tui/components/habitlist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.habitList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case habitsLoadedMsg:
		if msg.err != nil {
			m.setStatus("Failed to load habits: "+msg.err.Error(), true)
			return m, nil
		}
		m.habitList.SetHabits(msg.habits)
		return m, nil

	case habitToggledMsg:
		switch {
		case errors.Is(msg.err, cache.ErrToggleInFlight):
			// the first toggle is still running and will report itself
			return m, nil
		case msg.err != nil:
			m.setStatus("Toggle failed: "+msg.err.Error(), true)
		case msg.outcome.Completed:
			m.setStatus(fmt.Sprintf("✓ %s done (streak %d)", msg.outcome.Habit.Name, msg.outcome.Streak), false)
		default:
			m.setStatus(fmt.Sprintf("Unmarked %s (streak %d)", msg.outcome.Habit.Name, msg.outcome.Streak), false)
		}
		return m, m.syncFromCache()

	case habitSavedMsg:
		if msg.err != nil {
			m.setStatus("Failed to add habit: "+msg.err.Error(), true)
		} else {
			m.setStatus("Added "+msg.habit.Name, false)
		}
		return m, m.syncFromCache()

	case habitDeletedMsg:
		if msg.err != nil {
			m.setStatus("Failed to delete habit: "+msg.err.Error(), true)
		} else {
			m.setStatus("Deleted "+msg.name, false)
		}
		return m, m.syncFromCache()

	case habitlist.ToggleHabitMsg:
		m.habitList.Flip(msg.ID)
		return m, m.toggleHabit(msg.ID)

	case habitlist.AddHabitMsg:
		m.form = m.newHabitForm()
		m.state = constants.StateAddHabit
		return m, m.form.Init()

	case habitlist.DeleteHabitMsg:
		m.habitToDeleteID = msg.ID
		m.state = constants.StateConfirmDelete
		return m, nil
	}

	switch m.state {
	case constants.StateAddHabit:
		return m.updateForm(msg)
	case constants.StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}
	return m.updateHabits(msg)
}

func (m Model) updateHabits(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && !m.habitList.Filtering() {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.setStatus("", false)
			return m, m.loadHabits(true)
		}
	}

	var cmd tea.Cmd
	m.habitList, cmd = m.habitList.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		m.state = constants.StateHabits
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		in := models.CreateHabit{
			Name: strings.TrimSpace(m.habitForm.Name),
			Goal: strings.TrimSpace(m.habitForm.Goal),
			Icon: strings.TrimSpace(m.habitForm.Icon),
		}
		m.state = constants.StateHabits
		m.form = nil
		return m, m.createHabit(in)
	case huh.StateAborted:
		m.state = constants.StateHabits
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		id := m.habitToDeleteID
		m.habitToDeleteID = ""
		m.state = constants.StateHabits
		return m, m.deleteHabit(id)
	case key.Matches(keyMsg, m.keys.Cancel):
		m.habitToDeleteID = ""
		m.state = constants.StateHabits
	}
	return m, nil
}
