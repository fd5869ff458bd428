// Package app wires the API client, state stores, and event coordinator
// into a single application object.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelclub/reelclub/internal/api"
	"github.com/reelclub/reelclub/internal/community"
	"github.com/reelclub/reelclub/internal/config"
	"github.com/reelclub/reelclub/internal/domain"
	"github.com/reelclub/reelclub/internal/events"
	"github.com/reelclub/reelclub/internal/search"
	"github.com/reelclub/reelclub/internal/session"
	"github.com/reelclub/reelclub/internal/store"
	"github.com/reelclub/reelclub/internal/watchlist"
)

// coordinatorTimeout bounds the follow-up fetches triggered by events.
const coordinatorTimeout = 15 * time.Second

// App holds the assembled application graph.
type App struct {
	Config    *config.Config
	Client    domain.API
	State     *store.StateStore
	Bus       *events.Bus
	Session   *session.Store
	Community *community.Store
	Watchlist *watchlist.Store
	Search    *search.Index

	logger *slog.Logger
}

// New assembles the application from configuration. The caller owns the
// returned App and must Close it.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	client := api.NewClient(cfg.Server.URL, logger)

	state, err := store.Open(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	bus := events.NewBus()
	index := search.NewIndex()

	sessionStore := session.NewStore(client, state, bus, logger)
	communityStore := community.NewStore(client, state, bus, sessionStore.CurrentUser, index, logger)
	watchlistStore := watchlist.NewStore(client, sessionStore.CurrentUser, logger)

	a := &App{
		Config:    cfg,
		Client:    client,
		State:     state,
		Bus:       bus,
		Session:   sessionStore,
		Community: communityStore,
		Watchlist: watchlistStore,
		Search:    index,
		logger:    logger,
	}
	bus.Subscribe(a.coordinate)

	return a, nil
}

// Close releases the durable state store.
func (a *App) Close() error {
	return a.State.Close()
}

// coordinate reacts to store events so that no store ever reaches into
// another one imperatively.
func (a *App) coordinate(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), coordinatorTimeout)
	defer cancel()

	switch e := event.(type) {
	case domain.SessionEstablished:
		a.Watchlist.Reset()
		a.replayPendingJoin(ctx)
	case domain.SessionEnded:
		a.Community.Reset()
		a.Watchlist.Reset()
	case domain.PostDeleted:
		// the server only permits deleting your own posts, so an unknown
		// author still means the acting user's list changed
		if actor, ok := a.Session.CurrentUser(); ok && (e.AuthorID == 0 || e.AuthorID == actor.ID) {
			a.Session.RefreshOwnPosts(ctx)
		}
	case domain.PostLikeToggled:
		a.Session.ApplyLikeResult(e.PostID, e.Result, e.Actor)
	case domain.PostCommentAdded:
		a.Session.ApplyComment(e.Comment)
	case domain.PostCommentDeleted:
		a.Session.RemoveComment(e.CommentID)
	case domain.RelationshipChanged:
		a.Session.RefreshRelationships(ctx)
	}
}

// replayPendingJoin completes a club join that was recorded before the user
// authenticated. The intent is consumed exactly once whatever the outcome.
func (a *App) replayPendingJoin(ctx context.Context) {
	clubID, ok := a.State.TakePendingJoin()
	if !ok {
		return
	}
	if err := a.Community.JoinClub(ctx, clubID); err != nil {
		a.logger.Warn("pending club join failed", "clubID", clubID, "error", err)
	}
}
