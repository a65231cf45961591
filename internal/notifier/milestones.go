package notifier

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/habitlog/internal/constants"
	"github.com/julianstephens/habitlog/internal/events"
	"github.com/julianstephens/habitlog/internal/logger"
	"github.com/julianstephens/habitlog/internal/models"
)

const sendTimeout = 5 * time.Second

// Milestones announces streak milestones reached by toggling a habit done
type Milestones struct {
	sender  Sender
	enabled func() bool
	sub     *events.Subscription
	wg      sync.WaitGroup
}

// Watch subscribes to toggle events on bus. enabled is consulted on every
// event so that a settings change takes effect without resubscribing.
func Watch(bus *events.Bus, sender Sender, enabled func() bool) *Milestones {
	m := &Milestones{sender: sender, enabled: enabled}
	m.sub = bus.Subscribe(events.HabitToggled, m.onToggle)
	return m
}

// IsMilestone reports whether a streak of n days is announced
func IsMilestone(n int) bool {
	return slices.Contains(constants.StreakMilestones, n)
}

// Message is the notification text for h reaching its current streak
func Message(h models.Habit) string {
	name := h.Name
	if h.Icon != "" {
		name = h.Icon + " " + name
	}
	return strings.TrimSpace(fmt.Sprintf("%s: %d-day streak!", name, h.Streak))
}

func (m *Milestones) onToggle(ev events.Event) {
	if ev.Habit == nil || !ev.Habit.IsDone || !IsMilestone(ev.Habit.Streak) {
		return
	}
	if m.enabled != nil && !m.enabled() {
		return
	}

	text, streak := Message(*ev.Habit), ev.Habit.Streak
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := m.sender.Notify(ctx, text); err != nil {
			logger.Debug("Milestone notification not sent", "habit_id", ev.HabitID, "error", err)
			return
		}
		logger.Info("Milestone notification sent", "habit_id", ev.HabitID, "streak", streak)
	}()
}

// Close unsubscribes and waits for notifications already being sent
func (m *Milestones) Close() {
	m.sub.Unsubscribe()
	m.wg.Wait()
}
