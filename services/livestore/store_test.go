package livestore

import (
	realtime_models "RinkLink/models/realtime"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned snapshots, or an error.
type fakeFetcher struct {
	records []realtime_models.GameRecord
	err     error
	calls   int
}

func (f *fakeFetcher) FetchGames(ctx context.Context, ownerID string) ([]realtime_models.GameRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

// fakeFeed lets the test push change events by hand.
type fakeFeed struct {
	events chan realtime_models.ChangeEvent
	closed bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{events: make(chan realtime_models.ChangeEvent)}
}

func (f *fakeFeed) Events() <-chan realtime_models.ChangeEvent { return f.events }

func (f *fakeFeed) Close() error {
	f.closed = true
	return nil
}

func (f *fakeFeed) factory() FeedFactory {
	return func(ownerID string) (ChangeFeed, error) { return f, nil }
}

func gameRecord(id, date string) realtime_models.GameRecord {
	return realtime_models.GameRecord{
		ID:       id,
		OwnerID:  "owner1",
		Date:     date,
		Rink:     "North Rink",
		City:     "Duluth",
		State:    "MN",
		GameType: "league",
	}
}

func nextState(t *testing.T, states <-chan CollectionState) CollectionState {
	t.Helper()
	select {
	case state := <-states:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a state")
		return CollectionState{}
	}
}

func ids(state CollectionState) []string {
	out := make([]string, 0, len(state.Games))
	for _, g := range state.Games {
		out = append(out, g.ID)
	}
	return out
}

func assertNoDuplicateIDs(t *testing.T, state CollectionState) {
	t.Helper()
	seen := map[string]bool{}
	for _, g := range state.Games {
		assert.False(t, seen[g.ID], "duplicate id %s", g.ID)
		seen[g.ID] = true
	}
}

func TestInitializeEmitsSnapshotAsFirstState(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{
		gameRecord("1", "2025-01-01T10:00"),
		gameRecord("2", "2025-01-08T10:00"),
	}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	assert.Equal(t, PhaseUninitialized, store.Phase())

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	assert.Equal(t, PhaseLive, store.Phase())

	first := nextState(t, states)
	assert.Equal(t, []string{"1", "2"}, ids(first))
	assert.Equal(t, "10:00 AM", first.Games[0].Time)
	assert.Equal(t, "Duluth, MN", first.Games[0].Location)
}

func TestInitializeFetchFailure(t *testing.T) {
	fetchErr := errors.New("boom")
	fetcher := &fakeFetcher{err: fetchErr}
	store := NewStore(fetcher, newFakeFeed().factory())

	states, err := store.Initialize(context.Background(), "owner1")
	require.Error(t, err)
	assert.Nil(t, states)

	// The failure is observable, not a silent empty collection.
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "owner1", fe.OwnerID)
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, PhaseError, store.Phase())

	// Mutations are refused until a successful re-Initialize.
	assert.ErrorIs(t, store.OptimisticDelete("1"), ErrNotLive)

	// Re-Initialize recovers once the fetch works again.
	fetcher.err = nil
	fetcher.records = []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}
	states, err = store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, []string{"1"}, ids(nextState(t, states)))
}

func TestInsertEventAppends(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	rec := gameRecord("2", "2025-01-15T18:30")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventInsert, New: &rec}

	state := nextState(t, states)
	assert.Equal(t, []string{"1", "2"}, ids(state))
	assertNoDuplicateIDs(t, state)
}

func TestInsertEventDedupesById(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	// Echo of a record that is already present must replace, not duplicate.
	rec := gameRecord("1", "2025-01-01T10:00")
	rec.Rink = "South Rink"
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventInsert, New: &rec}

	state := nextState(t, states)
	assert.Equal(t, []string{"1"}, ids(state))
	assert.Equal(t, "South Rink", state.Games[0].Rink)
}

func TestUpdateEventPatchesInPlace(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{
		gameRecord("1", "2025-01-01T10:00"),
		gameRecord("2", "2025-01-08T10:00"),
	}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	rec := gameRecord("2", "2025-01-08T10:00")
	rec.Rink = "Heritage Center"
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventUpdate, New: &rec}

	state := nextState(t, states)
	assert.Equal(t, []string{"1", "2"}, ids(state))
	assert.Equal(t, "Heritage Center", state.Games[1].Rink)
	// Unrelated record untouched
	assert.Equal(t, "North Rink", state.Games[0].Rink)
}

func TestOptimisticInsertAndReconcile(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	// Two locally constructed games, no ids yet.
	require.NoError(t, store.OptimisticInsert([]realtime_models.GameRecord{
		gameRecord("", "2025-02-01T12:00"),
		gameRecord("", "2025-02-02T12:00"),
	}))

	state := nextState(t, states)
	require.Len(t, state.Games, 3)
	assert.Contains(t, state.Games[1].ID, "local-")
	assert.Contains(t, state.Games[2].ID, "local-")

	// Server confirms with authoritative ids, in submission order.
	require.NoError(t, store.ReconcileIDs([]realtime_models.GameRecord{
		gameRecord("srv-10", "2025-02-01T12:00"),
		gameRecord("srv-11", "2025-02-02T12:00"),
	}))

	state = nextState(t, states)
	assert.Equal(t, []string{"1", "srv-10", "srv-11"}, ids(state))
	assertNoDuplicateIDs(t, state)
}

func TestReconcileLengthMismatch(t *testing.T) {
	fetcher := &fakeFetcher{}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	require.NoError(t, store.OptimisticInsert([]realtime_models.GameRecord{
		gameRecord("", "2025-02-01T12:00"),
	}))
	nextState(t, states)

	err = store.ReconcileIDs([]realtime_models.GameRecord{
		gameRecord("srv-1", "2025-02-01T12:00"),
		gameRecord("srv-2", "2025-02-02T12:00"),
	})
	assert.ErrorIs(t, err, ErrReconcileMismatch)
}

func TestOptimisticDeleteEchoIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	rec := gameRecord("2", "2025-01-15T18:30")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventInsert, New: &rec}
	assert.Equal(t, []string{"1", "2"}, ids(nextState(t, states)))

	require.NoError(t, store.OptimisticDelete("2"))
	assert.Equal(t, []string{"1"}, ids(nextState(t, states)))

	// The echo of our own delete must not be reprocessed.
	old := gameRecord("2", "2025-01-15T18:30")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventDelete, Old: &old}

	// Push one more event through so we know the echo was folded by the
	// time we look.
	rec3 := gameRecord("3", "2025-03-01T10:00")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventInsert, New: &rec3}

	state := nextState(t, states)
	assert.Equal(t, []string{"1", "3"}, ids(state))
	assertNoDuplicateIDs(t, state)
}

func TestConcurrentOptimisticDeletesTrackSeparately(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{
		gameRecord("1", "2025-01-01T10:00"),
		gameRecord("2", "2025-01-08T10:00"),
		gameRecord("3", "2025-01-15T10:00"),
	}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	// Two deletes in flight before either echo arrives.
	require.NoError(t, store.OptimisticDelete("1"))
	nextState(t, states)
	require.NoError(t, store.OptimisticDelete("2"))
	nextState(t, states)

	// Echoes arrive in reverse order; both must be suppressed.
	old2 := gameRecord("2", "2025-01-08T10:00")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventDelete, Old: &old2}
	old1 := gameRecord("1", "2025-01-01T10:00")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventDelete, Old: &old1}

	current, err := store.Current()
	require.NoError(t, err)
	assert.Len(t, current, 1)
	assert.Equal(t, "3", current[0].ID)
}

func TestRemoteDeleteRemovesRecord(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{
		gameRecord("1", "2025-01-01T10:00"),
		gameRecord("2", "2025-01-08T10:00"),
	}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	// Delete originated elsewhere, no pending marker: the record goes.
	old := gameRecord("2", "2025-01-08T10:00")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventDelete, Old: &old}

	state := nextState(t, states)
	assert.Equal(t, []string{"1"}, ids(state))
}

func TestOptimisticUpdateMergesPatch(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	require.NoError(t, store.OptimisticUpdate(realtime_models.GameRecord{
		ID:   "1",
		Rink: "Fogerty Arena",
	}))

	state := nextState(t, states)
	require.Len(t, state.Games, 1)
	assert.Equal(t, "Fogerty Arena", state.Games[0].Rink)
	// Fields absent from the patch keep their value.
	assert.Equal(t, "Duluth, MN", state.Games[0].Location)
}

func TestResetReplacesStateWholesale(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	nextState(t, states)

	require.NoError(t, store.OptimisticInsert([]realtime_models.GameRecord{
		gameRecord("", "2025-02-01T12:00"),
	}))
	nextState(t, states)

	// Revert path: the caller refetched and resets the backing state.
	require.NoError(t, store.Reset([]realtime_models.GameRecord{
		gameRecord("1", "2025-01-01T10:00"),
	}))

	state := nextState(t, states)
	assert.Equal(t, []string{"1"}, ids(state))

	// Reset also clears the placeholder bookkeeping.
	assert.NoError(t, store.ReconcileIDs(nil))
}

func TestCloseReleasesFeed(t *testing.T) {
	fetcher := &fakeFetcher{}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())

	_, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)

	store.Close()
	assert.True(t, feed.closed)
	assert.Equal(t, PhaseUninitialized, store.Phase())
	assert.ErrorIs(t, store.OptimisticDelete("1"), ErrNotLive)
}

func TestReinitializeGetsFreshSubscription(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	first := newFakeFeed()
	second := newFakeFeed()
	feeds := []*fakeFeed{first, second}
	n := 0
	factory := func(ownerID string) (ChangeFeed, error) {
		f := feeds[n]
		n++
		return f, nil
	}

	store := NewStore(fetcher, factory)
	defer store.Close()

	_, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	assert.True(t, first.closed, "previous subscription must be released")

	nextState(t, states)
	rec := gameRecord("2", "2025-01-15T18:30")
	second.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventInsert, New: &rec}
	assert.Equal(t, []string{"1", "2"}, ids(nextState(t, states)))
}

// The end-to-end scenario: snapshot, remote insert, optimistic delete, echo.
func TestEndToEndScenario(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)

	state := nextState(t, states)
	require.Equal(t, []string{"1"}, ids(state))

	rec := gameRecord("2", "2025-01-02T10:00")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventInsert, New: &rec}
	state = nextState(t, states)
	require.ElementsMatch(t, []string{"1", "2"}, ids(state))

	require.NoError(t, store.OptimisticDelete("2"))
	state = nextState(t, states)
	require.Equal(t, []string{"1"}, ids(state))

	old := gameRecord("2", "2025-01-02T10:00")
	feed.events <- realtime_models.ChangeEvent{EventType: realtime_models.EventDelete, Old: &old}

	current, err := store.Current()
	require.NoError(t, err)
	assert.Len(t, current, 1)
	assert.Equal(t, "1", current[0].ID)
}

func TestStatesAreImmutable(t *testing.T) {
	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)
	first := nextState(t, states)

	require.NoError(t, store.OptimisticUpdate(realtime_models.GameRecord{ID: "1", Rink: "Changed"}))
	nextState(t, states)

	// The earlier state must not have been mutated behind our back.
	assert.Equal(t, "North Rink", first.Games[0].Rink)
}

func TestOpponentResolutionThroughStore(t *testing.T) {
	opponent, _ := json.Marshal(map[string]string{"id": "op1", "name": "Ice Hawks"})
	rec := gameRecord("1", "2025-01-01T10:00")
	rec.Opponent = opponent

	fetcher := &fakeFetcher{records: []realtime_models.GameRecord{rec}}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	states, err := store.Initialize(context.Background(), "owner1")
	require.NoError(t, err)

	state := nextState(t, states)
	assert.Equal(t, "Ice Hawks", state.Games[0].Opponent)
}

// gatedFetcher blocks inside FetchGames until released, simulating a slow
// snapshot request.
type gatedFetcher struct {
	release chan struct{}
	records []realtime_models.GameRecord
}

func (f *gatedFetcher) FetchGames(ctx context.Context, ownerID string) ([]realtime_models.GameRecord, error) {
	<-f.release
	return f.records, nil
}

func TestSlowFetchDoesNotBlockStore(t *testing.T) {
	fetcher := &gatedFetcher{
		release: make(chan struct{}),
		records: []realtime_models.GameRecord{gameRecord("1", "2025-01-01T10:00")},
	}
	feed := newFakeFeed()
	store := NewStore(fetcher, feed.factory())
	defer store.Close()

	done := make(chan error, 1)
	go func() {
		_, err := store.Initialize(context.Background(), "owner1")
		done <- err
	}()

	// The loading phase must be observable while the fetch is in flight,
	// which also means the store is not sitting on its lock.
	require.Eventually(t, func() bool {
		return store.Phase() == PhaseLoading
	}, 2*time.Second, 5*time.Millisecond)
	assert.Nil(t, store.States())

	close(fetcher.release)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseLive, store.Phase())

	games, err := store.Current()
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "1", games[0].ID)
}
