package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reelclub/reelclub/internal/domain"
	"github.com/reelclub/reelclub/internal/log"
)

func TestClient_Login_SendsPayloadAndMapsResult(t *testing.T) {
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s, want POST /auth/login", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"user_id":      7,
			"username":     "casey",
		})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())
	result, err := c.Login(context.Background(), domain.Credentials{Username: "casey", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if gotBody["username"] != "casey" || gotBody["password"] != "hunter2" {
		t.Fatalf("request body = %v, want username+password", gotBody)
	}
	if result.Token != "tok-1" || result.User.ID != 7 || result.User.Username != "casey" {
		t.Fatalf("result = %+v, want token tok-1 user 7/casey", result)
	}
}

func TestClient_BearerTokenOnAuthenticatedRequests(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]clubDTO{})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())
	c.SetToken("secret")

	if _, err := c.GetClubs(context.Background()); err != nil {
		t.Fatalf("GetClubs returned error: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestClient_NoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]clubDTO{})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())
	if _, err := c.GetClubs(context.Background()); err != nil {
		t.Fatalf("GetClubs returned error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("Authorization = %q, want empty", gotAuth)
	}
}

func TestClient_RemoteErrorCarriesStatusAndMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())
	_, err := c.Login(context.Background(), domain.Credentials{Username: "x", Password: "y"})

	var remote *domain.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *domain.RemoteError", err)
	}
	if remote.Status != http.StatusUnauthorized || remote.Message != "Invalid credentials" {
		t.Fatalf("remote error = %+v", remote)
	}
	if errors.Is(err, domain.ErrNetwork) {
		t.Fatal("a server rejection must not look like a network failure")
	}
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := NewClient(server.URL, log.Null())
	_, err := c.GetClubs(context.Background())
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("error = %v, want domain.ErrNetwork", err)
	}
}

func TestClient_CheckSessionKeepsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// check_session echoes identity without a fresh token
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user_id":  3,
			"username": "robin",
			"email":    "robin@example.com",
		})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())
	c.SetToken("persisted")

	result, err := c.CheckSession(context.Background())
	if err != nil {
		t.Fatalf("CheckSession returned error: %v", err)
	}
	if result.Token != "persisted" {
		t.Fatalf("token = %q, want the existing one", result.Token)
	}
	if result.User.ID != 3 || result.User.Email != "robin@example.com" {
		t.Fatalf("user = %+v", result.User)
	}
}

func TestClient_ToggleLike(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posts/9/like" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s, want POST /posts/9/like", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"likes_count": 4, "liked": true})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())
	result, err := c.ToggleLike(context.Background(), 9)
	if err != nil {
		t.Fatalf("ToggleLike returned error: %v", err)
	}
	if result.LikesCount != 4 || !result.Liked {
		t.Fatalf("result = %+v, want 4 likes, liked", result)
	}
}

func TestClient_GetClubPosts_MapsNestedPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posts/clubs/5/posts" {
			t.Errorf("path = %s, want /posts/clubs/5/posts", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"id":              11,
			"movie_title":     "Stalker",
			"content":         "slow but worth it",
			"club_id":         5,
			"author_id":       2,
			"author_username": "sam",
			"likes_count":     1,
			"likes":           []map[string]any{{"id": 2, "username": "sam"}},
			"comments": []map[string]any{{
				"id": 30, "post_id": 11, "user_id": 3, "username": "robin",
				"content": "agreed", "created_at": "2026-08-01T10:00:00.123456",
			}},
			"created_at": "2026-08-01T09:00:00.000000",
		}})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())
	posts, err := c.GetClubPosts(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetClubPosts returned error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	p := posts[0]
	if p.ID != 11 || p.AuthorUsername != "sam" || p.ClubID != 5 {
		t.Fatalf("post = %+v", p)
	}
	if len(p.Likes) != 1 || p.Likes[0].ID != 2 {
		t.Fatalf("likes = %+v", p.Likes)
	}
	if len(p.Comments) != 1 || p.Comments[0].Content != "agreed" {
		t.Fatalf("comments = %+v", p.Comments)
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("created_at should parse the fractional-second layout")
	}
}

func TestClient_AddWatchlistItem_UnwrapsMutationEnvelope(t *testing.T) {
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/7/watchlist" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s, want POST /users/7/watchlist", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "added",
			"item": map[string]any{
				"id": 1, "movie_id": "tt0060196", "movie_title": "The Good, the Bad and the Ugly",
				"status": "pending",
			},
		})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())
	item, err := c.AddWatchlistItem(context.Background(), 7, domain.NewWatchlistItem{
		MovieID:    "tt0060196",
		MovieTitle: "The Good, the Bad and the Ugly",
	})
	if err != nil {
		t.Fatalf("AddWatchlistItem returned error: %v", err)
	}
	if gotBody["status"] != "pending" {
		t.Fatalf("status default = %q, want pending", gotBody["status"])
	}
	if item.ID != 1 || item.MovieID != "tt0060196" || item.Status != domain.WatchStatusPending {
		t.Fatalf("item = %+v", item)
	}
}

func TestClient_TokenSafeForConcurrentUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]clubDTO{})
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.URL, log.Null())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			c.SetToken("tok")
			c.SetToken("")
		}
	}()
	for i := 0; i < 50; i++ {
		if _, err := c.GetClubs(context.Background()); err != nil {
			t.Fatalf("GetClubs returned error: %v", err)
		}
	}
	<-done
}

func TestParseTime_Layouts(t *testing.T) {
	cases := []string{
		"2026-08-01T09:00:00Z",
		"2026-08-01T09:00:00.123456",
		"2026-08-01T09:00:00",
	}
	for _, raw := range cases {
		ts := parseTime(raw)
		if ts.IsZero() {
			t.Errorf("parseTime(%q) = zero, want a timestamp", raw)
		}
		if ts.Year() != 2026 || ts.Month() != time.August {
			t.Errorf("parseTime(%q) = %v", raw, ts)
		}
	}
	if !parseTime("").IsZero() {
		t.Error("parseTime(\"\") should be zero")
	}
}
