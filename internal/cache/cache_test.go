package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/events"
	"github.com/julianstephens/habitlog/internal/habitlog"
	"github.com/julianstephens/habitlog/internal/habits"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/storage/sqlite"
	"github.com/julianstephens/habitlog/internal/utils"
)

const user = "alice"

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

var errUnavailable = errors.New("service unavailable")

// gatedBackend lets a test hold list reads and toggles at a known point
type gatedBackend struct {
	*habits.Service

	mu          sync.Mutex
	listGate    chan struct{}
	listStarted chan struct{}
	toggleGate  chan struct{}
	toggleEnter chan struct{}
	failToggle  atomic.Bool
	listCalls   atomic.Int64
}

func (g *gatedBackend) holdLists() (started, release chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listGate = make(chan struct{})
	g.listStarted = make(chan struct{}, 8)
	return g.listStarted, g.listGate
}

func (g *gatedBackend) holdToggles() (entered, release chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.toggleGate = make(chan struct{})
	g.toggleEnter = make(chan struct{}, 8)
	return g.toggleEnter, g.toggleGate
}

// GetHabitsByUser reads first and then waits, so a held read returns data
// from before anything written while it was held
func (g *gatedBackend) GetHabitsByUser(ctx context.Context, userID string) ([]models.Habit, error) {
	g.listCalls.Add(1)
	habits, err := g.Service.GetHabitsByUser(ctx, userID)

	g.mu.Lock()
	gate, started := g.listGate, g.listStarted
	g.mu.Unlock()
	if gate != nil {
		started <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return habits, err
}

func (g *gatedBackend) ToggleHabitToday(ctx context.Context, userID, habitID, note string) (models.ToggleOutcome, error) {
	g.mu.Lock()
	gate, entered := g.toggleGate, g.toggleEnter
	g.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	if g.failToggle.Load() {
		return models.ToggleOutcome{}, errUnavailable
	}
	return g.Service.ToggleHabitToday(ctx, userID, habitID, note)
}

type fixture struct {
	cache   *Cache
	backend *gatedBackend
	bus     *events.Bus
	clock   *utils.Clock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := sqlite.NewStore(filepath.Join(t.TempDir(), "habitlog.db"))
	require.NoError(t, db.Init())
	t.Cleanup(func() { db.Close() })

	clock := utils.FixedClock(fixedNow)
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	backend := &gatedBackend{Service: habits.NewService(db, habitlog.NewEngine(db, clock), bus)}
	c := New(backend, bus, clock.Now)
	t.Cleanup(c.Close)
	return &fixture{cache: c, backend: backend, bus: bus, clock: clock}
}

func (f *fixture) create(t *testing.T, name string) models.Habit {
	t.Helper()
	h, err := f.cache.CreateHabit(context.Background(), user, models.CreateHabit{Name: name, Goal: "daily"})
	require.NoError(t, err)
	return h
}

func find(habits []models.Habit, id string) (models.Habit, bool) {
	for _, h := range habits {
		if h.ID == id {
			return h, true
		}
	}
	return models.Habit{}, false
}

func ptr(s string) *string { return &s }

func TestListLoadsOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.create(t, "Read")
	f.create(t, "Run")

	first, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	second, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.backend.listCalls.Load())

	_, ok := f.cache.PeekList("bob")
	assert.False(t, ok)
}

func TestListAndEntityStayConsistent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")

	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	got, err := f.cache.GetHabit(ctx, user, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read", got.Name)

	updated, err := f.cache.UpdateHabit(ctx, user, h.ID, models.HabitPatch{Name: ptr("Read more")})
	require.NoError(t, err)

	entity, ok := f.cache.PeekHabit(user, h.ID)
	require.True(t, ok)
	list, ok := f.cache.PeekList(user)
	require.True(t, ok)
	item, ok := find(list, h.ID)
	require.True(t, ok)
	assert.Equal(t, updated, entity)
	assert.Equal(t, entity, item)

	require.NoError(t, f.cache.DeleteHabit(ctx, user, h.ID))
	_, ok = f.cache.PeekHabit(user, h.ID)
	assert.False(t, ok)
	list, _ = f.cache.PeekList(user)
	_, ok = find(list, h.ID)
	assert.False(t, ok)

	_, err = f.cache.GetHabit(ctx, user, h.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateAddsToLoadedList(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	list, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, list)

	h := f.create(t, "Read")
	list, ok := f.cache.PeekList(user)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, h, list[0])
}

func TestToggleCommitsAuthoritativeResult(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	out, err := f.cache.ToggleToday(ctx, user, h.ID, "")
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 1, out.Streak)

	list, _ := f.cache.PeekList(user)
	item, ok := find(list, h.ID)
	require.True(t, ok)
	assert.True(t, item.IsDone)
	assert.Equal(t, 1, item.Streak)
	require.NotNil(t, item.DoneAt)

	entity, ok := f.cache.PeekHabit(user, h.ID)
	require.True(t, ok)
	assert.Equal(t, out.Habit, entity)
	assert.Equal(t, entity, item)

	out, err = f.cache.ToggleToday(ctx, user, h.ID, "")
	require.NoError(t, err)
	assert.False(t, out.Completed)
	list, _ = f.cache.PeekList(user)
	item, _ = find(list, h.ID)
	assert.False(t, item.IsDone)
	assert.Nil(t, item.DoneAt)
	assert.Zero(t, item.Streak)
}

func TestToggleIsOptimistic(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	entered, release := f.backend.holdToggles()
	done := make(chan error, 1)
	go func() {
		_, err := f.cache.ToggleToday(ctx, user, h.ID, "")
		done <- err
	}()
	<-entered

	list, _ := f.cache.PeekList(user)
	item, _ := find(list, h.ID)
	assert.True(t, item.IsDone, "flip is visible before the service answers")
	assert.Zero(t, item.Streak, "streak waits for the authoritative result")
	require.NotNil(t, item.DoneAt)
	assert.True(t, item.DoneAt.Equal(fixedNow))

	close(release)
	require.NoError(t, <-done)
}

func TestToggleRollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	f.create(t, "Run")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	_, err = f.cache.GetHabit(ctx, user, h.ID)
	require.NoError(t, err)

	beforeList, _ := f.cache.PeekList(user)
	beforeEntity, _ := f.cache.PeekHabit(user, h.ID)

	f.backend.failToggle.Store(true)
	entered, release := f.backend.holdToggles()
	done := make(chan error, 1)
	go func() {
		_, err := f.cache.ToggleToday(ctx, user, h.ID, "")
		done <- err
	}()
	<-entered

	during, _ := f.cache.PeekList(user)
	item, _ := find(during, h.ID)
	assert.True(t, item.IsDone)
	entity, _ := f.cache.PeekHabit(user, h.ID)
	assert.Equal(t, beforeEntity, entity, "entity is not touched optimistically")

	close(release)
	assert.ErrorIs(t, <-done, errUnavailable)

	afterList, _ := f.cache.PeekList(user)
	afterEntity, _ := f.cache.PeekHabit(user, h.ID)
	assert.Equal(t, beforeList, afterList)
	assert.Equal(t, beforeEntity, afterEntity)
}

func TestRollbackKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	other := f.create(t, "Run")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	f.backend.failToggle.Store(true)
	entered, release := f.backend.holdToggles()
	done := make(chan error, 1)
	go func() {
		_, err := f.cache.ToggleToday(ctx, user, h.ID, "")
		done <- err
	}()
	<-entered

	renamed, err := f.cache.UpdateHabit(ctx, user, other.ID, models.HabitPatch{Name: ptr("Run far")})
	require.NoError(t, err)

	close(release)
	require.Error(t, <-done)

	list, _ := f.cache.PeekList(user)
	item, _ := find(list, h.ID)
	assert.False(t, item.IsDone)
	assert.Nil(t, item.DoneAt)
	kept, _ := find(list, other.ID)
	assert.Equal(t, renamed, kept)
}

func TestToggleInFlightIsRejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	entered, release := f.backend.holdToggles()
	done := make(chan error, 1)
	go func() {
		_, err := f.cache.ToggleToday(ctx, user, h.ID, "")
		done <- err
	}()
	<-entered

	_, err = f.cache.ToggleToday(ctx, user, h.ID, "")
	assert.ErrorIs(t, err, ErrToggleInFlight)

	close(release)
	require.NoError(t, <-done)

	completed, err := f.backend.IsCompletedToday(ctx, user, h.ID)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestToggleFailsOnPointRead(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	_, err = f.cache.ToggleToday(ctx, user, "missing", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// The guard is released
	_, err = f.cache.ToggleToday(ctx, user, "missing", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestToggleSupersedesLoadedRefresh(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	started, release := f.backend.holdLists()
	defer close(release)
	type result struct {
		habits []models.Habit
		err    error
	}
	refreshed := make(chan result, 1)
	go func() {
		habits, err := f.cache.RefreshList(ctx, user)
		refreshed <- result{habits, err}
	}()
	<-started

	_, err = f.cache.ToggleToday(ctx, user, h.ID, "")
	require.NoError(t, err)

	res := <-refreshed
	require.NoError(t, res.err)

	list, _ := f.cache.PeekList(user)
	item, _ := find(list, h.ID)
	assert.True(t, item.IsDone, "cancelled refresh must not overwrite the toggle")
	assert.Equal(t, 1, item.Streak)
}

func TestToggleSupersedesFirstLoad(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")

	started, release := f.backend.holdLists()
	defer close(release)
	refreshed := make(chan error, 1)
	go func() {
		_, err := f.cache.RefreshList(ctx, user)
		refreshed <- err
	}()
	<-started

	_, err := f.cache.ToggleToday(ctx, user, h.ID, "")
	require.NoError(t, err)
	assert.ErrorIs(t, <-refreshed, ErrSuperseded)

	entity, ok := f.cache.PeekHabit(user, h.ID)
	require.True(t, ok)
	assert.True(t, entity.IsDone)
}

func TestRefreshKeepsNewerWrites(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	started, release := f.backend.holdLists()
	refreshed := make(chan error, 1)
	go func() {
		_, err := f.cache.RefreshList(ctx, user)
		refreshed <- err
	}()
	<-started

	// Both writes land after the held read took its data
	_, err = f.cache.UpdateHabit(ctx, user, h.ID, models.HabitPatch{Name: ptr("Read more")})
	require.NoError(t, err)
	added := f.create(t, "Stretch")

	close(release)
	require.NoError(t, <-refreshed)

	list, _ := f.cache.PeekList(user)
	require.Len(t, list, 2)
	item, _ := find(list, h.ID)
	assert.Equal(t, "Read more", item.Name)
	_, ok := find(list, added.ID)
	assert.True(t, ok)
}

func TestRefreshDropsDeletedHabits(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)

	started, release := f.backend.holdLists()
	refreshed := make(chan error, 1)
	go func() {
		_, err := f.cache.RefreshList(ctx, user)
		refreshed <- err
	}()
	<-started

	require.NoError(t, f.cache.DeleteHabit(ctx, user, h.ID))
	close(release)
	require.NoError(t, <-refreshed)

	list, _ := f.cache.PeekList(user)
	assert.Empty(t, list, "stale read must not resurrect a deleted habit")
}

func TestCreateDuringFirstLoadIsKept(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")

	started, release := f.backend.holdLists()
	refreshed := make(chan error, 1)
	go func() {
		_, err := f.cache.RefreshList(ctx, user)
		refreshed <- err
	}()
	<-started

	added := f.create(t, "Stretch")
	close(release)
	require.NoError(t, <-refreshed)

	list, ok := f.cache.PeekList(user)
	require.True(t, ok)
	require.Len(t, list, 2)
	_, ok = find(list, h.ID)
	assert.True(t, ok)
	_, ok = find(list, added.ID)
	assert.True(t, ok, "habit created while the first load was in flight")
}

func TestFirstLoadAfterDayRollover(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.clock.Set(fixedNow.AddDate(0, 0, -1))
	h := f.create(t, "Read")
	_, err := f.cache.ToggleToday(ctx, user, h.ID, "")
	require.NoError(t, err)

	// A new process the next morning: the stored habit still says done
	f.clock.Set(fixedNow)
	fresh := New(f.backend, f.bus, f.clock.Now)
	t.Cleanup(fresh.Close)

	list, err := fresh.ListHabits(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1, "a habit reconciled during the first load stays listed")
	assert.False(t, list[0].IsDone)
	assert.Nil(t, list[0].DoneAt)
	assert.Equal(t, 1, list[0].Streak)

	entity, err := fresh.GetHabit(ctx, user, h.ID)
	require.NoError(t, err)
	assert.False(t, entity.IsDone)
	assert.Equal(t, 1, entity.Streak)
}

func TestLoadedCacheRollsOverAtMidnight(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.clock.Set(fixedNow.AddDate(0, 0, -1))
	h := f.create(t, "Read")
	_, err := f.cache.ToggleToday(ctx, user, h.ID, "")
	require.NoError(t, err)

	list, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDone)
	_, err = f.cache.GetHabit(ctx, user, h.ID)
	require.NoError(t, err)

	f.clock.Set(fixedNow)

	list, err = f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsDone, "done state does not carry over to a new day")
	assert.Equal(t, 1, list[0].Streak)
	assert.Equal(t, int64(2), f.backend.listCalls.Load())

	entity, err := f.cache.GetHabit(ctx, user, h.ID)
	require.NoError(t, err)
	assert.False(t, entity.IsDone)

	out, err := f.cache.ToggleToday(ctx, user, h.ID, "")
	require.NoError(t, err)
	assert.True(t, out.Completed)
	assert.Equal(t, 2, out.Streak)
	list, _ = f.cache.PeekList(user)
	item, _ := find(list, h.ID)
	assert.True(t, item.IsDone)
	assert.Equal(t, 2, item.Streak)
}

func TestEventsFromOtherWriters(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	_, err = f.cache.GetHabit(ctx, user, h.ID)
	require.NoError(t, err)

	drifted := h
	drifted.Streak = 5
	f.bus.Publish(events.Event{Type: events.HabitReconciled, UserID: user, HabitID: h.ID, Habit: &drifted})

	list, _ := f.cache.PeekList(user)
	item, _ := find(list, h.ID)
	assert.Equal(t, 5, item.Streak)
	entity, _ := f.cache.PeekHabit(user, h.ID)
	assert.Equal(t, 5, entity.Streak)

	// A write through the service directly still reaches the cache
	require.NoError(t, f.backend.Service.DeleteHabit(ctx, user, h.ID))
	list, _ = f.cache.PeekList(user)
	assert.Empty(t, list)
	_, ok := f.cache.PeekHabit(user, h.ID)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	h := f.create(t, "Read")
	_, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	_, err = f.cache.GetHabit(ctx, user, h.ID)
	require.NoError(t, err)

	f.cache.Invalidate(user)
	_, ok := f.cache.PeekList(user)
	assert.False(t, ok)
	_, ok = f.cache.PeekHabit(user, h.ID)
	assert.False(t, ok)

	list, err := f.cache.ListHabits(ctx, user)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(2), f.backend.listCalls.Load())
}

func TestSeqClockIsMonotonic(t *testing.T) {
	var c seqClock
	var wg sync.WaitGroup
	seen := make([]int64, 100)
	for i := range seen {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen[i] = c.Next()
		}()
	}
	wg.Wait()

	unique := make(map[int64]bool)
	for _, s := range seen {
		unique[s] = true
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, int64(101), c.Next(), "the next ticket follows every issued one")
}
