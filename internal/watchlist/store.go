// Package watchlist owns the current user's tracked-movies cache. The cache
// is scoped to one identity: established sessions reset it before the new
// list is fetched, so a new identity never inherits a previous identity's
// items.
package watchlist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/reelclub/reelclub/internal/cache"
	"github.com/reelclub/reelclub/internal/domain"
)

// Store is the watchlist store.
type Store struct {
	api      domain.WatchlistAPI
	identity domain.Identity
	logger   *slog.Logger

	mu    sync.RWMutex
	items []domain.WatchlistItem
	cell  cache.Cell
}

// NewStore creates a watchlist store.
func NewStore(api domain.WatchlistAPI, identity domain.Identity, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{api: api, identity: identity, logger: logger}
}

// Fetch loads the current user's watchlist. The fetched flag distinguishes
// "empty because the server returned zero items" from "never loaded".
func (s *Store) Fetch(ctx context.Context) error {
	actor, ok := s.identity()
	if !ok {
		return domain.ErrAuthRequired
	}

	s.mu.Lock()
	token, _ := s.cell.Begin()
	s.mu.Unlock()

	items, err := s.api.GetWatchlist(ctx, actor.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cell.Resolve(token, err) {
		return err
	}
	if err != nil {
		s.logger.Error("failed to fetch watchlist", "error", err)
		return err
	}
	if items == nil {
		items = []domain.WatchlistItem{}
	}
	s.items = items
	return nil
}

// Add tracks a movie. De-duplication by movie id happens after server
// confirmation: a confirmed item replaces any existing entry for the same
// movie instead of appending a second one.
func (s *Store) Add(ctx context.Context, item domain.NewWatchlistItem) (domain.WatchlistItem, error) {
	actor, ok := s.identity()
	if !ok {
		return domain.WatchlistItem{}, domain.ErrAuthRequired
	}
	if item.MovieID == "" {
		return domain.WatchlistItem{}, &domain.ValidationError{Field: "movie_id", Reason: "required"}
	}
	if item.MovieTitle == "" {
		return domain.WatchlistItem{}, &domain.ValidationError{Field: "movie_title", Reason: "required"}
	}

	added, err := s.api.AddWatchlistItem(ctx, actor.ID, item)
	if err != nil {
		s.logger.Error("failed to add watchlist item", "movieID", item.MovieID, "error", err)
		return domain.WatchlistItem{}, err
	}

	s.mu.Lock()
	replaced := false
	for i, existing := range s.items {
		if existing.MovieID == added.MovieID {
			s.items[i] = added
			replaced = true
			break
		}
	}
	if !replaced {
		s.items = append(s.items, added)
	}
	s.mu.Unlock()

	return added, nil
}

// Update patches an item's watch status.
func (s *Store) Update(ctx context.Context, itemID int, status domain.WatchStatus) (domain.WatchlistItem, error) {
	actor, ok := s.identity()
	if !ok {
		return domain.WatchlistItem{}, domain.ErrAuthRequired
	}

	updated, err := s.api.UpdateWatchlistItem(ctx, actor.ID, itemID, status)
	if err != nil {
		s.logger.Error("failed to update watchlist item", "itemID", itemID, "error", err)
		return domain.WatchlistItem{}, err
	}

	s.mu.Lock()
	for i, existing := range s.items {
		if existing.ID == itemID {
			s.items[i] = updated
			break
		}
	}
	s.mu.Unlock()

	return updated, nil
}

// Remove deletes an item.
func (s *Store) Remove(ctx context.Context, itemID int) error {
	actor, ok := s.identity()
	if !ok {
		return domain.ErrAuthRequired
	}

	if err := s.api.RemoveWatchlistItem(ctx, actor.ID, itemID); err != nil {
		s.logger.Error("failed to remove watchlist item", "itemID", itemID, "error", err)
		return err
	}

	s.mu.Lock()
	out := s.items[:0]
	for _, existing := range s.items {
		if existing.ID != itemID {
			out = append(out, existing)
		}
	}
	s.items = out
	s.mu.Unlock()

	return nil
}

// Reset wipes the cache and its fetched flag. Subscribed to both session
// establishment and logout; in-flight fetches resolve as no-ops afterwards.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.cell.Reset()
}

// Items returns the cache and its fetch state.
func (s *Store) Items() ([]domain.WatchlistItem, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.WatchlistItem, len(s.items))
	copy(items, s.items)
	return items, s.cell.State()
}
