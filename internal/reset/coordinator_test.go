package reset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"daily-mission-tracker/internal/model"
)

var errLockTimeout = errors.New("lock wait timeout exceeded")

// memStore keeps each user's completion flags in memory.
type memStore struct {
	mu       sync.Mutex
	missions map[model.UserID][]bool
	failFor  map[model.UserID]error
	listErr  error
	delay    time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{
		missions: make(map[model.UserID][]bool),
		failFor:  make(map[model.UserID]error),
	}
}

func (s *memStore) add(id model.UserID, flags ...bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions[id] = append([]bool(nil), flags...)
}

func (s *memStore) ListUserIDs(ctx context.Context) ([]model.UserID, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]model.UserID, 0, len(s.missions))
	for id := range s.missions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) ResetDailyMissions(ctx context.Context, userID model.UserID) (int64, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		peak := s.maxInflight.Load()
		if n <= peak || s.maxInflight.CompareAndSwap(peak, n) {
			break
		}
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[userID]; err != nil {
		return 0, err
	}
	var changed int64
	for i, done := range s.missions[userID] {
		if done {
			s.missions[userID][i] = false
			changed++
		}
	}
	return changed, nil
}

func (s *memStore) completed(id model.UserID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, done := range s.missions[id] {
		if done {
			n++
		}
	}
	return n
}

func TestCoordinator_ThreeUserScenario(t *testing.T) {
	store := newMemStore()
	store.add("alice", false, false, false)
	store.add("bob", true, true)
	store.add("carol", true, false, true, false)

	c := NewCoordinator(store, CoordinatorConfig{Concurrency: 2, TxTimeout: time.Second})

	report, err := c.OnTrigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.ElementsMatch(t, []model.UserID{"alice", "bob", "carol"}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, int64(4), report.MissionsReset)

	for _, id := range []model.UserID{"alice", "bob", "carol"} {
		assert.Zero(t, store.completed(id), "user %s", id)
	}

	// Running the reset again leaves the same state.
	report, err = c.OnTrigger(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Succeeded, 3)
	assert.Equal(t, int64(0), report.MissionsReset)
	for _, id := range []model.UserID{"alice", "bob", "carol"} {
		assert.Zero(t, store.completed(id), "user %s", id)
	}
}

func TestCoordinator_IsolatesFailures(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 10; i++ {
		store.add(model.UserID(fmt.Sprintf("user-%02d", i)), true, true)
	}
	store.failFor["user-04"] = errLockTimeout

	c := NewCoordinator(store, CoordinatorConfig{Concurrency: 3, TxTimeout: time.Second})

	report, err := c.OnTrigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, report.Total)
	assert.Len(t, report.Succeeded, 9)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, model.UserID("user-04"), report.Failed[0].UserID)
	assert.ErrorIs(t, report.Failed[0].Err, errLockTimeout)

	for i := 0; i < 10; i++ {
		id := model.UserID(fmt.Sprintf("user-%02d", i))
		if id == "user-04" {
			assert.Equal(t, 2, store.completed(id))
			continue
		}
		assert.Zero(t, store.completed(id), "user %s", id)
	}
}

func TestCoordinator_SnapshotFailureAbortsCycle(t *testing.T) {
	store := newMemStore()
	store.add("alice", true)
	store.listErr = errors.New("connection refused")

	c := NewCoordinator(store, CoordinatorConfig{Concurrency: 2})

	report, err := c.OnTrigger(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, 1, store.completed("alice"))
}

func TestCoordinator_TimeoutIsPerUserFailure(t *testing.T) {
	store := newMemStore()
	store.add("slow", true)
	store.delay = 200 * time.Millisecond

	c := NewCoordinator(store, CoordinatorConfig{Concurrency: 1, TxTimeout: 10 * time.Millisecond})

	report, err := c.OnTrigger(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0].Err, context.DeadlineExceeded)
	assert.Equal(t, 1, store.completed("slow"))
}

func TestCoordinator_BoundsConcurrency(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 20; i++ {
		store.add(model.UserID(fmt.Sprintf("user-%02d", i)), true)
	}
	store.delay = 5 * time.Millisecond

	c := NewCoordinator(store, CoordinatorConfig{Concurrency: 4, TxTimeout: time.Second})

	report, err := c.OnTrigger(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Succeeded, 20)
	assert.LessOrEqual(t, store.maxInflight.Load(), int32(4))
}

func TestCoordinator_RunConsumesTriggers(t *testing.T) {
	store := newMemStore()
	store.add("alice", true, true)

	c := NewCoordinator(store, CoordinatorConfig{Concurrency: 1, TxTimeout: time.Second})
	triggers := make(chan Trigger, 1)

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), triggers)
	}()

	triggers <- Trigger{At: time.Now()}
	close(triggers)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop after triggers closed")
	}
	assert.Zero(t, store.completed("alice"))
}

func TestCoordinator_RunSurvivesAbortedCycle(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("connection refused")

	c := NewCoordinator(store, CoordinatorConfig{Concurrency: 1})
	triggers := make(chan Trigger, 2)
	triggers <- Trigger{}
	triggers <- Trigger{}
	close(triggers)

	assert.NoError(t, c.Run(context.Background(), triggers))
}

// TestResetIsolationProperty: for any user set and any subset of failing
// users, exactly the failing users keep their flags and are reported.
func TestResetIsolationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numUsers := rapid.IntRange(1, 30).Draw(rt, "numUsers")
		store := newMemStore()
		failing := make(map[model.UserID]bool)

		for i := 0; i < numUsers; i++ {
			id := model.UserID(fmt.Sprintf("user-%03d", i))
			flags := rapid.SliceOfN(rapid.Bool(), 0, 5).Draw(rt, "flags")
			store.add(id, flags...)
			if rapid.Float64Range(0, 1).Draw(rt, "failRoll") < 0.2 {
				failing[id] = true
				store.failFor[id] = errLockTimeout
			}
		}
		concurrency := rapid.IntRange(1, 8).Draw(rt, "concurrency")

		c := NewCoordinator(store, CoordinatorConfig{Concurrency: concurrency, TxTimeout: time.Second})
		report, err := c.OnTrigger(context.Background())
		if err != nil {
			rt.Fatalf("unexpected cycle error: %v", err)
		}

		if report.Total != numUsers {
			rt.Fatalf("total %d, want %d", report.Total, numUsers)
		}
		if len(report.Failed) != len(failing) {
			rt.Fatalf("%d failures reported, want %d", len(report.Failed), len(failing))
		}
		if len(report.Succeeded)+len(report.Failed) != numUsers {
			rt.Fatalf("outcomes do not partition users")
		}
		for _, f := range report.Failed {
			if !failing[f.UserID] {
				rt.Fatalf("user %s reported as failed", f.UserID)
			}
		}
		for _, id := range report.Succeeded {
			if store.completed(id) != 0 {
				rt.Fatalf("user %s still has completed missions", id)
			}
		}
	})
}
