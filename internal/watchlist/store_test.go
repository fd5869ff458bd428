package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/reelclub/reelclub/internal/api"
	"github.com/reelclub/reelclub/internal/domain"
	"github.com/reelclub/reelclub/internal/log"
)

func authedIdentity() (domain.UserRef, bool) {
	return domain.UserRef{ID: 7, Username: "casey"}, true
}

func anonIdentity() (domain.UserRef, bool) {
	return domain.UserRef{}, false
}

func newTestStore(t *testing.T, handler http.Handler, identity domain.Identity) *Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewStore(api.NewClient(server.URL, log.Null()), identity, log.Null())
}

func itemJSON(id int, movieID, title, status string) map[string]any {
	return map[string]any{"id": id, "movie_id": movieID, "movie_title": title, "status": status}
}

func TestFetch_RequiresIdentity(t *testing.T) {
	hits := int32(0)
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}), anonIdentity)

	if err := s.Fetch(context.Background()); !errors.Is(err, domain.ErrAuthRequired) {
		t.Fatalf("error = %v, want domain.ErrAuthRequired", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("anonymous fetch must not hit the network")
	}
}

func TestFetch_EmptyListStillSettles(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]any{})
	}), authedIdentity)

	if err := s.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	items, state := s.Items()
	if len(items) != 0 {
		t.Fatalf("items = %+v, want empty", items)
	}
	if !state.Fetched {
		t.Fatal("an empty result still counts as fetched")
	}
}

func TestFetch_LoadsItems(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/7/watchlist" {
			t.Errorf("path = %s, want /users/7/watchlist", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			itemJSON(1, "tt0111161", "The Shawshank Redemption", "watched"),
			itemJSON(2, "tt0060196", "The Good, the Bad and the Ugly", "pending"),
		})
	}), authedIdentity)

	if err := s.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	items, _ := s.Items()
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Status != domain.WatchStatusWatched {
		t.Fatalf("status = %q, want watched", items[0].Status)
	}
}

func TestAdd_ValidatesLocally(t *testing.T) {
	hits := int32(0)
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}), authedIdentity)

	var verr *domain.ValidationError
	if _, err := s.Add(context.Background(), domain.NewWatchlistItem{MovieTitle: "No ID"}); !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *domain.ValidationError", err)
	}
	if _, err := s.Add(context.Background(), domain.NewWatchlistItem{MovieID: "tt1"}); !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *domain.ValidationError", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("validation failures must not hit the network")
	}
}

func TestAdd_DeduplicatesByMovieID(t *testing.T) {
	serverItemID := int32(0)
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]any{itemJSON(1, "tt0111161", "The Shawshank Redemption", "pending")})
		case http.MethodPost:
			id := atomic.AddInt32(&serverItemID, 1) + 10
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"message": "added",
				"item":    itemJSON(int(id), "tt0111161", "The Shawshank Redemption", "pending"),
			})
		}
	}), authedIdentity)
	ctx := context.Background()

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if _, err := s.Add(ctx, domain.NewWatchlistItem{MovieID: "tt0111161", MovieTitle: "The Shawshank Redemption"}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	items, _ := s.Items()
	if len(items) != 1 {
		t.Fatalf("got %d items, want the movie tracked once", len(items))
	}
	if items[0].ID != 11 {
		t.Fatalf("item id = %d, want the confirmed record to replace the old one", items[0].ID)
	}
}

func TestUpdate_PatchesStatusInPlace(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]any{itemJSON(1, "tt1", "Movie", "pending")})
		case http.MethodPut:
			if r.URL.Path != "/users/7/watchlist/1" {
				t.Errorf("path = %s, want /users/7/watchlist/1", r.URL.Path)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"message": "updated",
				"item":    itemJSON(1, "tt1", "Movie", "watched"),
			})
		}
	}), authedIdentity)
	ctx := context.Background()

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	updated, err := s.Update(ctx, 1, domain.WatchStatusWatched)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != domain.WatchStatusWatched {
		t.Fatalf("updated = %+v", updated)
	}
	items, _ := s.Items()
	if items[0].Status != domain.WatchStatusWatched {
		t.Fatalf("cache = %+v, want the patched status", items[0])
	}
}

func TestRemove_DeletesFromCacheAfterConfirmation(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]any{
				itemJSON(1, "tt1", "Movie A", "pending"),
				itemJSON(2, "tt2", "Movie B", "pending"),
			})
		case http.MethodDelete:
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "removed"})
		}
	}), authedIdentity)
	ctx := context.Background()

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if err := s.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	items, _ := s.Items()
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("items = %+v, want only item 2", items)
	}
}

func TestRemove_RejectionKeepsCache(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]any{itemJSON(1, "tt1", "Movie", "pending")})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found"})
		}
	}), authedIdentity)
	ctx := context.Background()

	if err := s.Fetch(ctx); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if err := s.Remove(ctx, 1); !domain.IsRemoteRejected(err) {
		t.Fatalf("error = %v, want a remote rejection", err)
	}
	items, _ := s.Items()
	if len(items) != 1 {
		t.Fatal("a rejected remove must not mutate the cache")
	}
}

func TestReset_ReturnsToNeverFetched(t *testing.T) {
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{itemJSON(1, "tt1", "Movie", "pending")})
	}), authedIdentity)

	if err := s.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	s.Reset()

	items, state := s.Items()
	if len(items) != 0 || state.Fetched || state.Loading {
		t.Fatalf("after reset: items = %+v, state = %+v, want empty never-fetched", items, state)
	}
}
