package livestore

import (
	realtime_models "RinkLink/models/realtime"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Phase tracks where a store instance is in its lifecycle.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseLoading       Phase = "loading"
	PhaseLive          Phase = "live"
	PhaseError         Phase = "error"
)

var (
	// ErrNotLive is returned by mutations attempted before a successful
	// Initialize (or after Close).
	ErrNotLive = errors.New("store is not live")

	// ErrReconcileMismatch is returned when the confirmation array does not
	// line up with the outstanding placeholders. Matching is positional, so
	// the lengths have to agree.
	ErrReconcileMismatch = errors.New("confirmed records do not match outstanding placeholders")
)

// FetchError wraps a failed snapshot fetch. The store exposes no partial
// state after one; callers show an error state and may re-Initialize.
type FetchError struct {
	OwnerID string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching schedule snapshot for %s: %v", e.OwnerID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SnapshotFetcher is the request/response side of the store, one call per
// Initialize.
type SnapshotFetcher interface {
	FetchGames(ctx context.Context, ownerID string) ([]realtime_models.GameRecord, error)
}

// CollectionState is one immutable view of the collection. The slice is
// never mutated after emission.
type CollectionState struct {
	Games []Game
}

// Store maintains a single authoritative, continuously consistent in-memory
// view of one owner's schedule. It combines a one-shot snapshot fetched on
// Initialize with an unbounded stream of change events, and absorbs
// locally-originated optimistic mutations before the server confirms them.
//
// All folds run on one goroutine per session, so change events and
// optimistic mutations apply in the order they are observed and never race.
// A store instance is meant to be owned by exactly one logical view at a
// time.
type Store struct {
	fetcher SnapshotFetcher
	feeds   FeedFactory

	mu    sync.Mutex
	sess  *session
	phase Phase
}

// stateBuffer bounds how far the state sequence may run ahead of its
// subscriber before folds start blocking.
const stateBuffer = 256

func NewStore(fetcher SnapshotFetcher, feeds FeedFactory) *Store {
	return &Store{
		fetcher: fetcher,
		feeds:   feeds,
		phase:   PhaseUninitialized,
	}
}

// session holds everything owned by one Initialize call. Fields below cmds
// are touched only by the fold goroutine.
type session struct {
	cmds   chan func()
	states chan CollectionState
	feed   ChangeFeed
	done   chan struct{}

	games          []Game
	pendingDeletes map[string]struct{}
	placeholders   []string
}

// Phase reports the current lifecycle phase. After a failed Initialize it
// reads PhaseError, so a snapshot failure is observable and never looks like
// an empty collection.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Initialize fetches the initial snapshot, opens a fresh subscription and
// returns the live state sequence. The snapshot counts as the first state.
// The sequence never closes while the session is live; calling Initialize
// again tears the previous session down and starts over.
func (s *Store) Initialize(ctx context.Context, ownerID string) (<-chan CollectionState, error) {
	s.mu.Lock()
	s.teardownLocked()
	s.phase = PhaseLoading
	fetcher := s.fetcher
	s.mu.Unlock()

	// Fetch without holding the lock so Phase, States and Close stay
	// responsive while the snapshot request is in flight.
	records, err := fetcher.FetchGames(ctx, ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.phase = PhaseError
		return nil, &FetchError{OwnerID: ownerID, Err: err}
	}

	feed, err := s.feeds(ownerID)
	if err != nil {
		s.phase = PhaseError
		return nil, fmt.Errorf("subscribing to schedule changes for %s: %w", ownerID, err)
	}

	sess := &session{
		cmds:           make(chan func()),
		states:         make(chan CollectionState, stateBuffer),
		feed:           feed,
		done:           make(chan struct{}),
		pendingDeletes: make(map[string]struct{}),
	}

	// INIT fold: the snapshot replaces state wholesale.
	sess.games = make([]Game, 0, len(records))
	for _, rec := range records {
		sess.games = append(sess.games, ToDisplay(rec))
	}
	sess.emit()

	// A racing Initialize may have installed its own session while we were
	// fetching; the later installer wins.
	s.teardownLocked()
	s.sess = sess
	s.phase = PhaseLive
	go s.run(sess)

	return sess.states, nil
}

// States returns the state sequence of the current session, nil when the
// store is not live.
func (s *Store) States() <-chan CollectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	return s.sess.states
}

// Close tears the session down and releases the feed subscription. Safe to
// call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.phase = PhaseUninitialized
}

func (s *Store) teardownLocked() {
	if s.sess == nil {
		return
	}
	close(s.sess.done)
	s.sess.feed.Close()
	s.sess = nil
}

// run is the fold loop. It is the only goroutine that touches the session's
// collection state, which is what keeps event application order-preserving.
func (s *Store) run(sess *session) {
	for {
		select {
		case fn := <-sess.cmds:
			fn()
		case event, ok := <-sess.feed.Events():
			if !ok {
				return
			}
			sess.apply(event)
		case <-sess.done:
			return
		}
	}
}

// do runs fn on the fold goroutine and waits for it, so optimistic calls are
// serialized with feed events and their state is emitted before they return.
func (s *Store) do(fn func(sess *session) error) error {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return ErrNotLive
	}

	result := make(chan error, 1)
	select {
	case sess.cmds <- func() { result <- fn(sess) }:
	case <-sess.done:
		return ErrNotLive
	}
	select {
	case err := <-result:
		return err
	case <-sess.done:
		return ErrNotLive
	}
}

// OptimisticInsert appends locally constructed records and emits a new state
// without any network round-trip. Records without an id get a placeholder
// one; ReconcileIDs later swaps the placeholders for the server-assigned
// records, in insertion order.
func (s *Store) OptimisticInsert(records []realtime_models.GameRecord) error {
	return s.do(func(sess *session) error {
		for _, rec := range records {
			if rec.ID == "" {
				rec.ID = "local-" + uuid.NewString()
			}
			sess.placeholders = append(sess.placeholders, rec.ID)
			sess.games = append(sess.games, ToDisplay(rec))
		}
		sess.emit()
		return nil
	})
}

// OptimisticUpdate merges the patch onto the record with the same id and
// emits a new state. Empty patch fields keep the current value; a patch for
// an unknown id is a no-op.
func (s *Store) OptimisticUpdate(patch realtime_models.GameRecord) error {
	return s.do(func(sess *session) error {
		for i, g := range sess.games {
			if g.ID == patch.ID {
				sess.games = replaceGame(sess.games, i, mergeGame(g, ToDisplay(patch)))
				sess.emit()
				return nil
			}
		}
		return nil
	})
}

// OptimisticDelete removes the record, emits a new state, and records the id
// as pending deletion acknowledgment so that the DELETE change event echoing
// this client's own action is not reprocessed. Multiple deletes may be in
// flight at once; each id is tracked independently.
func (s *Store) OptimisticDelete(id string) error {
	return s.do(func(sess *session) error {
		sess.pendingDeletes[id] = struct{}{}
		for i, g := range sess.games {
			if g.ID == id {
				sess.games = removeGame(sess.games, i)
				sess.emit()
				return nil
			}
		}
		return nil
	})
}

// ReconcileIDs replaces the outstanding optimistic placeholders with the
// server-confirmed records, matched positionally: the Nth placeholder gets
// the Nth confirmation. Placeholders carry no server id to match on, which
// is why callers must submit inserts in a stable order and pass a same-length
// response array. Unrelated records are untouched.
func (s *Store) ReconcileIDs(confirmed []realtime_models.GameRecord) error {
	return s.do(func(sess *session) error {
		if len(confirmed) != len(sess.placeholders) {
			return ErrReconcileMismatch
		}
		if len(confirmed) == 0 {
			return nil
		}
		for n, placeholder := range sess.placeholders {
			for i, g := range sess.games {
				if g.ID == placeholder {
					sess.games = replaceGame(sess.games, i, ToDisplay(confirmed[n]))
					break
				}
			}
		}
		sess.placeholders = nil
		sess.emit()
		return nil
	})
}

// Reset replaces the backing state wholesale, the same fold as the initial
// snapshot. This is the revert path after a failed persistence call: the
// caller refetches and resets rather than relying on automatic rollback.
func (s *Store) Reset(records []realtime_models.GameRecord) error {
	return s.do(func(sess *session) error {
		games := make([]Game, 0, len(records))
		for _, rec := range records {
			games = append(games, ToDisplay(rec))
		}
		sess.games = games
		sess.pendingDeletes = make(map[string]struct{})
		sess.placeholders = nil
		sess.emit()
		return nil
	})
}

// Current returns the latest collection view, serialized through the fold
// loop like everything else.
func (s *Store) Current() ([]Game, error) {
	var out []Game
	err := s.do(func(sess *session) error {
		out = append([]Game(nil), sess.games...)
		return nil
	})
	return out, err
}

// apply folds one inbound change event onto the collection.
func (sess *session) apply(event realtime_models.ChangeEvent) {
	rec := event.Record()
	if rec == nil {
		return
	}

	switch event.EventType {
	case realtime_models.EventInsert:
		incoming := ToDisplay(*rec)
		for i, g := range sess.games {
			if g.ID == incoming.ID {
				// Already present (e.g. our own reconciled insert echoed
				// back). Replace instead of duplicating.
				sess.games = replaceGame(sess.games, i, incoming)
				sess.emit()
				return
			}
		}
		sess.games = append(append([]Game(nil), sess.games...), incoming)
		sess.emit()

	case realtime_models.EventUpdate:
		incoming := ToDisplay(*rec)
		for i, g := range sess.games {
			if g.ID == incoming.ID {
				sess.games = replaceGame(sess.games, i, incoming)
				sess.emit()
				return
			}
		}
		// Update for a record we never saw. Ignore rather than resurrect.

	case realtime_models.EventDelete:
		if _, pending := sess.pendingDeletes[rec.ID]; pending {
			// Echo of our own optimistic delete. The record is already
			// gone, just clear the marker.
			delete(sess.pendingDeletes, rec.ID)
			return
		}
		for i, g := range sess.games {
			if g.ID == rec.ID {
				sess.games = removeGame(sess.games, i)
				sess.emit()
				return
			}
		}
	}
}

// emit publishes the current collection as a fresh immutable state.
func (sess *session) emit() {
	state := CollectionState{Games: append([]Game(nil), sess.games...)}
	select {
	case sess.states <- state:
	case <-sess.done:
	}
}

func replaceGame(games []Game, i int, g Game) []Game {
	out := append([]Game(nil), games...)
	out[i] = g
	return out
}

func removeGame(games []Game, i int) []Game {
	out := append([]Game(nil), games[:i]...)
	return append(out, games[i+1:]...)
}

// mergeGame overlays the non-empty fields of patch onto base. IsHome always
// comes from the patch since a bool has no empty sentinel.
func mergeGame(base, patch Game) Game {
	out := base
	if patch.Date != "" {
		out.Date = patch.Date
	}
	if patch.Time != "" {
		out.Time = patch.Time
	}
	if patch.Rink != "" {
		out.Rink = patch.Rink
	}
	if patch.Location != "" {
		out.Location = patch.Location
	}
	if patch.Opponent != "" {
		out.Opponent = patch.Opponent
	}
	if patch.GameType != "" {
		out.GameType = patch.GameType
	}
	out.IsHome = patch.IsHome
	return out
}
