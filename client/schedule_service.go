package client

import (
	realtime_models "RinkLink/models/realtime"
	"RinkLink/services/livestore"
	"context"
	"fmt"
	"log"
)

// ScheduleService couples a live store with the games API. Every mutation
// applies optimistically first so the schedule view updates at once, then
// issues the real persistence call. The store never rolls back on its own;
// when a call fails this service reverts by refetching the snapshot and
// resetting the store outright.
type ScheduleService struct {
	api     *APIClient
	store   *livestore.Store
	ownerID string
}

func NewScheduleService(api *APIClient, feeds livestore.FeedFactory, ownerID string) *ScheduleService {
	return &ScheduleService{
		api:     api,
		store:   livestore.NewStore(api, feeds),
		ownerID: ownerID,
	}
}

// Store exposes the underlying live store, mainly for its state sequence.
func (s *ScheduleService) Store() *livestore.Store {
	return s.store
}

// Start initializes the live store for this owner and returns the state
// sequence. Call Stop when the owning view goes away.
func (s *ScheduleService) Start(ctx context.Context) (<-chan livestore.CollectionState, error) {
	return s.store.Initialize(ctx, s.ownerID)
}

func (s *ScheduleService) Stop() {
	s.store.Close()
}

// AddGames inserts the games optimistically, persists them, and reconciles
// the placeholder ids with the server-assigned ones. Inserts are submitted
// in the given order and the server confirms in the same order, which is
// what positional reconciliation relies on.
func (s *ScheduleService) AddGames(ctx context.Context, games []realtime_models.GameRecord) error {
	if err := s.store.OptimisticInsert(games); err != nil {
		return err
	}

	confirmed, err := s.api.AddGames(ctx, games)
	if err != nil {
		s.revert(ctx)
		return fmt.Errorf("adding games: %w", err)
	}

	if err := s.store.ReconcileIDs(confirmed); err != nil {
		// Confirmation did not line up with what we inserted. The server
		// state is authoritative at this point, so refetch it.
		s.revert(ctx)
		return err
	}
	return nil
}

// UpdateGame patches the game optimistically and persists the change.
func (s *ScheduleService) UpdateGame(ctx context.Context, game realtime_models.GameRecord) error {
	if err := s.store.OptimisticUpdate(game); err != nil {
		return err
	}

	if err := s.api.UpdateGame(ctx, game.ID, game); err != nil {
		s.revert(ctx)
		return fmt.Errorf("updating game %s: %w", game.ID, err)
	}
	return nil
}

// DeleteGame removes the game optimistically and persists the deletion. The
// store tracks the id so the delete event echoed back over the realtime
// channel is not reprocessed.
func (s *ScheduleService) DeleteGame(ctx context.Context, id string) error {
	if err := s.store.OptimisticDelete(id); err != nil {
		return err
	}

	if err := s.api.DeleteGame(ctx, id); err != nil {
		s.revert(ctx)
		return fmt.Errorf("deleting game %s: %w", id, err)
	}
	return nil
}

// revert refetches the authoritative snapshot and resets the store's backing
// state, discarding whatever optimistic state the failed call left behind.
func (s *ScheduleService) revert(ctx context.Context) {
	records, err := s.api.FetchGames(ctx, s.ownerID)
	if err != nil {
		log.Printf("Could not refetch schedule for %s after failed mutation: %v", s.ownerID, err)
		return
	}
	if err := s.store.Reset(records); err != nil {
		log.Printf("Could not reset schedule store for %s: %v", s.ownerID, err)
	}
}
