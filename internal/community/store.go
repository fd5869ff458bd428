// Package community owns the club directory and membership, club posts, the
// global feed, and social interactions on posts.
//
// Posts live in a single table keyed by id; the feed and the open club's
// post list hold ordered id references into it. A like or comment mutates
// the one record, so every view of a post stays consistent by construction.
package community

import (
	"context"
	"log/slog"
	"sync"

	"github.com/reelclub/reelclub/internal/cache"
	"github.com/reelclub/reelclub/internal/domain"
	"github.com/reelclub/reelclub/internal/events"
	"github.com/reelclub/reelclub/internal/store"
)

// Indexer receives fetched entities for local search. May be nil.
type Indexer interface {
	IndexClubs([]domain.Club)
	IndexPosts([]domain.Post)
	Clear()
}

// Store is the community store.
type Store struct {
	api      domain.API
	state    *store.StateStore
	bus      *events.Bus
	identity domain.Identity
	index    Indexer
	logger   *slog.Logger

	mu    sync.RWMutex
	posts map[int]*domain.Post

	feedIDs  []int
	feedCell cache.Cell

	allClubs     []domain.Club
	allClubsCell cache.Cell
	myClubs      []domain.Club
	myClubsCell  cache.Cell

	detail     *domain.Club
	detailCell cache.Cell

	currentClubID int
	clubPostIDs   []int
	clubPostsCell cache.Cell
}

// NewStore creates a community store. index may be nil.
func NewStore(api domain.API, state *store.StateStore, bus *events.Bus, identity domain.Identity, index Indexer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:      api,
		state:    state,
		bus:      bus,
		identity: identity,
		index:    index,
		logger:   logger,
		posts:    make(map[int]*domain.Post),
	}
}

// === Clubs ===

// FetchAllClubs loads the club directory. Available anonymously.
func (s *Store) FetchAllClubs(ctx context.Context) error {
	s.mu.Lock()
	token, _ := s.allClubsCell.Begin()
	s.mu.Unlock()

	clubs, err := s.api.GetClubs(ctx)

	s.mu.Lock()
	applied := s.allClubsCell.Resolve(token, err)
	if applied && err == nil {
		s.allClubs = clubs
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to fetch clubs", "error", err)
		return err
	}
	if applied && s.index != nil {
		s.index.IndexClubs(clubs)
	}
	return nil
}

// FetchMyClubs loads the current user's memberships.
func (s *Store) FetchMyClubs(ctx context.Context) error {
	actor, ok := s.identity()
	if !ok {
		return domain.ErrAuthRequired
	}

	s.mu.Lock()
	token, _ := s.myClubsCell.Begin()
	s.mu.Unlock()

	clubs, err := s.api.GetUserClubs(ctx, actor.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.myClubsCell.Resolve(token, err) {
		return err
	}
	if err != nil {
		s.logger.Error("failed to fetch my clubs", "error", err)
		return err
	}
	s.myClubs = clubs
	return nil
}

// FetchClubDetails loads one club. The previous detail is cleared at the
// pending phase so a stale club is never shown while a new one loads.
func (s *Store) FetchClubDetails(ctx context.Context, clubID int) error {
	s.mu.Lock()
	s.detail = nil
	token, _ := s.detailCell.Begin()
	s.mu.Unlock()

	club, err := s.api.GetClub(ctx, clubID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.detailCell.Resolve(token, err) {
		return err
	}
	if err != nil {
		s.logger.Error("failed to fetch club", "clubID", clubID, "error", err)
		return err
	}
	s.detail = &club
	return nil
}

// JoinClub joins a club. Unauthenticated attempts fail locally and record a
// pending-join intent that the coordinator replays once after the next
// successful authentication.
//
// On confirmation the full club record is refetched; the join ack may be a
// bare acknowledgment, and a partial club shape must never enter the caches.
func (s *Store) JoinClub(ctx context.Context, clubID int) error {
	if _, ok := s.identity(); !ok {
		if err := s.state.SetPendingJoin(clubID); err != nil {
			s.logger.Error("failed to record pending join", "clubID", clubID, "error", err)
		}
		s.logger.Info("join deferred until authentication", "clubID", clubID)
		return domain.ErrAuthRequired
	}

	if err := s.api.JoinClub(ctx, clubID); err != nil {
		s.logger.Error("failed to join club", "clubID", clubID, "error", err)
		return err
	}

	club, err := s.api.GetClub(ctx, clubID)
	if err != nil {
		// membership is confirmed; flag the caches stale instead of
		// inserting nothing
		s.logger.Warn("joined but club refetch failed", "clubID", clubID, "error", err)
		s.mu.Lock()
		s.myClubsCell.Invalidate()
		s.allClubsCell.Invalidate()
		s.mu.Unlock()
	} else {
		s.mu.Lock()
		s.myClubs = upsertClub(s.myClubs, club)
		s.allClubs = upsertClub(s.allClubs, club)
		s.mu.Unlock()
	}

	s.bus.Publish(domain.ClubMembershipChanged{ClubID: clubID, Joined: true})
	return nil
}

// LeaveClub leaves a club. If it is the currently open club, the detail and
// its post list are cleared, not just flagged stale.
func (s *Store) LeaveClub(ctx context.Context, clubID int) error {
	if _, ok := s.identity(); !ok {
		return domain.ErrAuthRequired
	}

	if err := s.api.LeaveClub(ctx, clubID); err != nil {
		s.logger.Error("failed to leave club", "clubID", clubID, "error", err)
		return err
	}

	s.mu.Lock()
	s.myClubs = removeClub(s.myClubs, clubID)
	if s.detail != nil && s.detail.ID == clubID {
		s.detail = nil
		s.detailCell.Reset()
	}
	if s.currentClubID == clubID {
		s.clubPostIDs = nil
		s.currentClubID = 0
		s.clubPostsCell.Reset()
	}
	s.mu.Unlock()

	s.bus.Publish(domain.ClubMembershipChanged{ClubID: clubID, Joined: false})
	return nil
}

// === Posts ===

// FetchClubPosts loads the post list for clubID, replacing the previously
// open club's list at the pending phase.
func (s *Store) FetchClubPosts(ctx context.Context, clubID int) error {
	s.mu.Lock()
	if s.currentClubID != clubID {
		s.clubPostIDs = nil
	}
	s.currentClubID = clubID
	token, _ := s.clubPostsCell.Begin()
	s.mu.Unlock()

	posts, err := s.api.GetClubPosts(ctx, clubID)

	s.mu.Lock()
	applied := s.clubPostsCell.Resolve(token, err)
	if applied && err == nil {
		s.clubPostIDs = s.internPosts(posts)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to fetch club posts", "clubID", clubID, "error", err)
		return err
	}
	if applied && s.index != nil {
		s.index.IndexPosts(posts)
	}
	return nil
}

// FetchFeed loads the global feed.
func (s *Store) FetchFeed(ctx context.Context) error {
	s.mu.Lock()
	token, _ := s.feedCell.Begin()
	s.mu.Unlock()

	posts, err := s.api.GetFeed(ctx)

	s.mu.Lock()
	applied := s.feedCell.Resolve(token, err)
	if applied && err == nil {
		s.feedIDs = s.internPosts(posts)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to fetch feed", "error", err)
		return err
	}
	if applied && s.index != nil {
		s.index.IndexPosts(posts)
	}
	return nil
}

// CreatePost publishes a post to a club. Feeds are reverse-chronological, so
// the confirmed post is prepended to the feed and the open club's list,
// de-duplicated by id.
func (s *Store) CreatePost(ctx context.Context, clubID int, movieTitle, content string) (domain.Post, error) {
	if _, ok := s.identity(); !ok {
		return domain.Post{}, domain.ErrAuthRequired
	}
	if movieTitle == "" {
		return domain.Post{}, &domain.ValidationError{Field: "movie_title", Reason: "required"}
	}
	if content == "" {
		return domain.Post{}, &domain.ValidationError{Field: "content", Reason: "required"}
	}

	post, err := s.api.CreatePost(ctx, clubID, movieTitle, content)
	if err != nil {
		s.logger.Error("failed to create post", "clubID", clubID, "error", err)
		return domain.Post{}, err
	}

	s.mu.Lock()
	p := post
	s.posts[post.ID] = &p
	s.feedIDs = prependID(s.feedIDs, post.ID)
	if s.currentClubID == clubID {
		s.clubPostIDs = prependID(s.clubPostIDs, post.ID)
	}
	s.mu.Unlock()

	if s.index != nil {
		s.index.IndexPosts([]domain.Post{post})
	}
	return post, nil
}

// DeletePost removes a post from the table and every list referencing it,
// then publishes PostDeleted so the author's own-posts cache is refreshed.
func (s *Store) DeletePost(ctx context.Context, postID int) error {
	if _, ok := s.identity(); !ok {
		return domain.ErrAuthRequired
	}

	if err := s.api.DeletePost(ctx, postID); err != nil {
		s.logger.Error("failed to delete post", "postID", postID, "error", err)
		return err
	}

	s.mu.Lock()
	var authorID int
	if p, ok := s.posts[postID]; ok {
		authorID = p.AuthorID
	}
	delete(s.posts, postID)
	s.feedIDs = removeID(s.feedIDs, postID)
	s.clubPostIDs = removeID(s.clubPostIDs, postID)
	s.mu.Unlock()

	s.bus.Publish(domain.PostDeleted{PostID: postID, AuthorID: authorID})
	return nil
}

// ToggleLike flips the acting user's like on a post and reconciles from the
// server's answer: the count is authoritative, and the actor appears in the
// likes list exactly once when liked, not at all when not. Duplicate network
// responses cannot double-add. PostLikeToggled carries the same answer to
// caches outside this store that hold a copy of the post.
func (s *Store) ToggleLike(ctx context.Context, postID int) (domain.LikeResult, error) {
	actor, ok := s.identity()
	if !ok {
		return domain.LikeResult{}, domain.ErrAuthRequired
	}

	result, err := s.api.ToggleLike(ctx, postID)
	if err != nil {
		s.logger.Error("failed to toggle like", "postID", postID, "error", err)
		return domain.LikeResult{}, err
	}

	s.mu.Lock()
	if p, ok := s.posts[postID]; ok {
		p.LikesCount = result.LikesCount
		if result.Liked {
			if !containsRef(p.Likes, actor.ID) {
				p.Likes = append(p.Likes, actor)
			}
		} else {
			p.Likes = removeRef(p.Likes, actor.ID)
		}
	}
	s.mu.Unlock()

	s.bus.Publish(domain.PostLikeToggled{PostID: postID, Result: result, Actor: actor})
	return result, nil
}

// AddComment appends a confirmed comment to the post's comment sequence.
func (s *Store) AddComment(ctx context.Context, postID int, content string) (domain.Comment, error) {
	if _, ok := s.identity(); !ok {
		return domain.Comment{}, domain.ErrAuthRequired
	}
	if content == "" {
		return domain.Comment{}, &domain.ValidationError{Field: "content", Reason: "required"}
	}

	comment, err := s.api.AddComment(ctx, postID, content)
	if err != nil {
		s.logger.Error("failed to add comment", "postID", postID, "error", err)
		return domain.Comment{}, err
	}

	s.mu.Lock()
	if p, ok := s.posts[postID]; ok {
		p.Comments = append(p.Comments, comment)
	}
	s.mu.Unlock()

	s.bus.Publish(domain.PostCommentAdded{Comment: comment})
	return comment, nil
}

// DeleteComment removes a confirmed comment deletion from whichever post
// holds it.
func (s *Store) DeleteComment(ctx context.Context, commentID int) error {
	if _, ok := s.identity(); !ok {
		return domain.ErrAuthRequired
	}

	if err := s.api.DeleteComment(ctx, commentID); err != nil {
		s.logger.Error("failed to delete comment", "commentID", commentID, "error", err)
		return err
	}

	s.mu.Lock()
	for _, p := range s.posts {
		for i, c := range p.Comments {
			if c.ID == commentID {
				p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	s.bus.Publish(domain.PostCommentDeleted{CommentID: commentID})
	return nil
}

// Reset wipes every cache unconditionally. Subscribed to the logout signal;
// in-flight fetches resolve as no-ops afterwards.
func (s *Store) Reset() {
	s.mu.Lock()
	s.posts = make(map[int]*domain.Post)
	s.feedIDs = nil
	s.feedCell.Reset()
	s.allClubs = nil
	s.allClubsCell.Reset()
	s.myClubs = nil
	s.myClubsCell.Reset()
	s.detail = nil
	s.detailCell.Reset()
	s.currentClubID = 0
	s.clubPostIDs = nil
	s.clubPostsCell.Reset()
	s.mu.Unlock()

	if s.index != nil {
		s.index.Clear()
	}
}

// === Reads ===

// Feed materializes the global feed in order.
func (s *Store) Feed() ([]domain.Post, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.materialize(s.feedIDs), s.feedCell.State()
}

// ClubPosts materializes the open club's post list in order.
func (s *Store) ClubPosts() ([]domain.Post, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.materialize(s.clubPostIDs), s.clubPostsCell.State()
}

// CurrentClubID reports which club's posts are loaded, 0 for none.
func (s *Store) CurrentClubID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentClubID
}

// AllClubs returns the directory cache and its fetch state.
func (s *Store) AllClubs() ([]domain.Club, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneClubs(s.allClubs), s.allClubsCell.State()
}

// MyClubs returns the membership cache and its fetch state.
func (s *Store) MyClubs() ([]domain.Club, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneClubs(s.myClubs), s.myClubsCell.State()
}

// ClubDetail returns the open club record, nil when none is loaded.
func (s *Store) ClubDetail() (*domain.Club, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detail == nil {
		return nil, s.detailCell.State()
	}
	club := *s.detail
	return &club, s.detailCell.State()
}

// Post returns one post by id from the table.
func (s *Store) Post(postID int) (domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[postID]
	if !ok {
		return domain.Post{}, false
	}
	return clonePost(*p), true
}

// internPosts upserts posts into the table and returns their ordered ids.
// Caller holds mu.
func (s *Store) internPosts(posts []domain.Post) []int {
	ids := make([]int, 0, len(posts))
	for _, post := range posts {
		p := post
		s.posts[post.ID] = &p
		ids = append(ids, post.ID)
	}
	return ids
}

// materialize resolves ids against the table. Caller holds mu.
func (s *Store) materialize(ids []int) []domain.Post {
	posts := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			posts = append(posts, clonePost(*p))
		}
	}
	return posts
}

func clonePost(p domain.Post) domain.Post {
	if len(p.Likes) > 0 {
		likes := make([]domain.UserRef, len(p.Likes))
		copy(likes, p.Likes)
		p.Likes = likes
	}
	if len(p.Comments) > 0 {
		comments := make([]domain.Comment, len(p.Comments))
		copy(comments, p.Comments)
		p.Comments = comments
	}
	return p
}

func cloneClubs(clubs []domain.Club) []domain.Club {
	if len(clubs) == 0 {
		return nil
	}
	dup := make([]domain.Club, len(clubs))
	copy(dup, clubs)
	return dup
}

func upsertClub(clubs []domain.Club, club domain.Club) []domain.Club {
	for i, c := range clubs {
		if c.ID == club.ID {
			clubs[i] = club
			return clubs
		}
	}
	return append(clubs, club)
}

func removeClub(clubs []domain.Club, clubID int) []domain.Club {
	out := clubs[:0]
	for _, c := range clubs {
		if c.ID != clubID {
			out = append(out, c)
		}
	}
	return out
}

func prependID(ids []int, id int) []int {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append([]int{id}, ids...)
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func containsRef(refs []domain.UserRef, id int) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}

func removeRef(refs []domain.UserRef, id int) []domain.UserRef {
	out := refs[:0]
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
