// Package session owns the authentication lifecycle and the
// identity-adjacent caches: profile, own posts, following, followers.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/reelclub/reelclub/internal/cache"
	"github.com/reelclub/reelclub/internal/domain"
	"github.com/reelclub/reelclub/internal/events"
	"github.com/reelclub/reelclub/internal/store"
)

// Store is the session store. All cache mutation happens under mu; remote
// calls never hold it.
type Store struct {
	api    domain.API
	state  *store.StateStore
	bus    *events.Bus
	logger *slog.Logger

	mu      sync.RWMutex
	session domain.Session
	profile domain.User

	ownPosts     []domain.Post
	ownPostsCell cache.Cell

	// following and followers are independent caches: a failure in one must
	// not block or clear the other.
	following     []domain.UserRef
	followingCell cache.Cell
	followers     []domain.UserRef
	followersCell cache.Cell
}

// NewStore creates a session store.
func NewStore(api domain.API, state *store.StateStore, bus *events.Bus, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{api: api, state: state, bus: bus, logger: logger}
}

// === Authentication lifecycle ===

// Register creates an account. When the server issues a token the new
// session is established immediately, mirroring login.
func (s *Store) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	if reg.Username == "" {
		return domain.User{}, &domain.ValidationError{Field: "username", Reason: "required"}
	}
	if reg.Email == "" {
		return domain.User{}, &domain.ValidationError{Field: "email", Reason: "required"}
	}
	if reg.Password == "" {
		return domain.User{}, &domain.ValidationError{Field: "password", Reason: "required"}
	}

	result, err := s.api.Register(ctx, reg)
	if err != nil {
		s.logger.Error("failed to register", "error", err)
		return domain.User{}, err
	}
	if result.Token != "" {
		s.establish(result)
	}
	return result.User, nil
}

// Login authenticates and establishes the session: the token is persisted,
// identity caches are reset to force refetch under the new identity, and
// SessionEstablished is published for the cross-store resets.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) error {
	if creds.Username == "" {
		return &domain.ValidationError{Field: "username", Reason: "required"}
	}
	if creds.Password == "" {
		return &domain.ValidationError{Field: "password", Reason: "required"}
	}

	result, err := s.api.Login(ctx, creds)
	if err != nil {
		s.logger.Error("failed to log in", "error", err)
		return err
	}
	s.establish(result)
	return nil
}

// CheckSession restores a persisted session at application start. Without a
// persisted token it fails fast, no network call. A server rejection clears
// the persisted token; a transport failure leaves it for the next start.
func (s *Store) CheckSession(ctx context.Context) error {
	token, ok := s.state.Token()
	if !ok {
		return domain.ErrAuthRequired
	}

	s.api.SetToken(token)
	result, err := s.api.CheckSession(ctx)
	if err != nil {
		if domain.IsRemoteRejected(err) {
			s.state.ClearToken()
			s.api.SetToken("")
		}
		s.logger.Warn("session check failed", "error", err)
		return err
	}
	result.Token = token
	s.establish(result)
	return nil
}

// Logout is synchronous and local-only: it clears the token and the
// identity-adjacent caches, then publishes SessionEnded. The other stores
// wipe their own caches in response; this store does not do it for them.
func (s *Store) Logout() {
	s.state.ClearToken()
	s.api.SetToken("")

	s.mu.Lock()
	s.session = domain.Session{}
	s.profile = domain.User{}
	s.ownPosts = nil
	s.ownPostsCell.Reset()
	s.following = nil
	s.followingCell.Reset()
	s.followers = nil
	s.followersCell.Reset()
	s.mu.Unlock()

	s.logger.Info("session ended")
	s.bus.Publish(domain.SessionEnded{})
}

// ForgotPassword requests a reset email.
func (s *Store) ForgotPassword(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", &domain.ValidationError{Field: "email", Reason: "required"}
	}
	return s.api.ForgotPassword(ctx, email)
}

func (s *Store) establish(result domain.AuthResult) {
	s.api.SetToken(result.Token)
	if err := s.state.SaveToken(result.Token); err != nil {
		s.logger.Error("failed to persist token", "error", err)
	}

	s.mu.Lock()
	user := result.User
	s.session = domain.Session{Token: result.Token, User: &user}
	s.profile = user
	// force refetch of every identity-adjacent cache under the new identity
	s.ownPosts = nil
	s.ownPostsCell.Reset()
	s.following = nil
	s.followingCell.Reset()
	s.followers = nil
	s.followersCell.Reset()
	s.mu.Unlock()

	s.logger.Info("session established", "user", user.Username, "userID", user.ID)
	s.bus.Publish(domain.SessionEstablished{User: user})
}

// === Profile ===

// FetchProfile loads a user's profile. Fetching the current user's profile
// also refreshes the session's user record.
func (s *Store) FetchProfile(ctx context.Context, userID int) (domain.User, error) {
	if err := s.requireAuth(); err != nil {
		return domain.User{}, err
	}

	user, err := s.api.GetUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to fetch profile", "userID", userID, "error", err)
		return domain.User{}, err
	}

	s.applyProfile(user)
	return user, nil
}

// UpdateProfile applies a patch. A failed update does not overwrite the
// previously cached profile.
func (s *Store) UpdateProfile(ctx context.Context, userID int, patch domain.UserPatch) (domain.User, error) {
	if err := s.requireAuth(); err != nil {
		return domain.User{}, err
	}

	user, err := s.api.UpdateUser(ctx, userID, patch)
	if err != nil {
		s.logger.Error("failed to update profile", "userID", userID, "error", err)
		return domain.User{}, err
	}

	s.applyProfile(user)
	return user, nil
}

func (s *Store) applyProfile(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.User != nil && s.session.User.ID == user.ID {
		s.session.User = &user
	}
	s.profile = user
}

// === Relationships ===

// FetchFollowing loads who userID follows.
func (s *Store) FetchFollowing(ctx context.Context, userID int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	s.mu.Lock()
	token, _ := s.followingCell.Begin()
	s.mu.Unlock()

	refs, err := s.api.GetFollowing(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.followingCell.Resolve(token, err) {
		return err
	}
	if err != nil {
		s.logger.Error("failed to fetch following", "userID", userID, "error", err)
		return err
	}
	s.following = refs
	return nil
}

// FetchFollowers loads who follows userID.
func (s *Store) FetchFollowers(ctx context.Context, userID int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	s.mu.Lock()
	token, _ := s.followersCell.Begin()
	s.mu.Unlock()

	refs, err := s.api.GetFollowers(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.followersCell.Resolve(token, err) {
		return err
	}
	if err != nil {
		s.logger.Error("failed to fetch followers", "userID", userID, "error", err)
		return err
	}
	s.followers = refs
	return nil
}

// Follow records a confirmed follow: the target is appended to the
// following cache only after the server acknowledges, and only if not
// already present.
func (s *Store) Follow(ctx context.Context, targetID int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	ref, err := s.api.Follow(ctx, targetID)
	if err != nil {
		s.logger.Error("failed to follow", "targetID", targetID, "error", err)
		return err
	}

	s.mu.Lock()
	if !containsRef(s.following, ref.ID) {
		s.following = append(s.following, ref)
	}
	s.mu.Unlock()

	s.bus.Publish(domain.RelationshipChanged{TargetID: targetID})
	return nil
}

// Unfollow removes targetID from the following cache by id, regardless of
// prior presence. A server rejection is not fatal to local state: the cache
// is re-verified against a refetch instead of trusting the local copy.
func (s *Store) Unfollow(ctx context.Context, targetID int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	err := s.api.Unfollow(ctx, targetID)
	switch {
	case err == nil:
		s.mu.Lock()
		s.following = removeRef(s.following, targetID)
		s.mu.Unlock()
		s.bus.Publish(domain.RelationshipChanged{TargetID: targetID})
		return nil
	case domain.IsRemoteRejected(err):
		s.logger.Warn("unfollow rejected, re-verifying relationships", "targetID", targetID, "error", err)
		s.bus.Publish(domain.RelationshipChanged{TargetID: targetID})
		return err
	default:
		s.logger.Error("failed to unfollow", "targetID", targetID, "error", err)
		return err
	}
}

// RefreshRelationships refetches both relationship caches for the current
// user, accounting for server-side reciprocal effects.
func (s *Store) RefreshRelationships(ctx context.Context) {
	actor, ok := s.CurrentUser()
	if !ok {
		return
	}
	if err := s.FetchFollowing(ctx, actor.ID); err != nil {
		s.logger.Warn("relationship refresh: following", "error", err)
	}
	if err := s.FetchFollowers(ctx, actor.ID); err != nil {
		s.logger.Warn("relationship refresh: followers", "error", err)
	}
}

// === Own posts ===

// FetchOwnPosts loads the authoring user's posts for the dashboard view.
func (s *Store) FetchOwnPosts(ctx context.Context, userID int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	s.mu.Lock()
	token, _ := s.ownPostsCell.Begin()
	s.mu.Unlock()

	posts, err := s.api.GetUserPosts(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownPostsCell.Resolve(token, err) {
		return err
	}
	if err != nil {
		s.logger.Error("failed to fetch own posts", "userID", userID, "error", err)
		return err
	}
	s.ownPosts = posts
	return nil
}

// RefreshOwnPosts refetches the current user's posts.
func (s *Store) RefreshOwnPosts(ctx context.Context) {
	actor, ok := s.CurrentUser()
	if !ok {
		return
	}
	if err := s.FetchOwnPosts(ctx, actor.ID); err != nil {
		s.logger.Warn("own posts refresh", "error", err)
	}
}

// ApplyLikeResult reconciles a confirmed like toggle onto the own-posts
// copy of the post, if one is cached. Same rules as every other cache: the
// count is authoritative, the actor appears at most once.
func (s *Store) ApplyLikeResult(postID int, result domain.LikeResult, actor domain.UserRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ownPosts {
		p := &s.ownPosts[i]
		if p.ID != postID {
			continue
		}
		p.LikesCount = result.LikesCount
		if result.Liked {
			if !containsRef(p.Likes, actor.ID) {
				p.Likes = append(p.Likes, actor)
			}
		} else {
			p.Likes = removeRef(p.Likes, actor.ID)
		}
		return
	}
}

// ApplyComment appends a confirmed comment to the own-posts copy of its
// post, if one is cached.
func (s *Store) ApplyComment(comment domain.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ownPosts {
		p := &s.ownPosts[i]
		if p.ID != comment.PostID {
			continue
		}
		p.Comments = append(p.Comments, comment)
		return
	}
}

// RemoveComment drops a confirmed comment deletion from whichever cached
// own post holds it.
func (s *Store) RemoveComment(commentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ownPosts {
		p := &s.ownPosts[i]
		for j, c := range p.Comments {
			if c.ID == commentID {
				p.Comments = append(p.Comments[:j], p.Comments[j+1:]...)
				return
			}
		}
	}
}

// === Reads ===

// Session returns a snapshot of the current session.
func (s *Store) Session() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.session
	if s.session.User != nil {
		user := *s.session.User
		snap.User = &user
	}
	return snap
}

// IsAuthenticated reports whether a session is established.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Authenticated()
}

// CurrentUser resolves the acting user; it is the identity the other stores
// consult before network I/O.
func (s *Store) CurrentUser() (domain.UserRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.session.Authenticated() {
		return domain.UserRef{}, false
	}
	return domain.UserRef{ID: s.session.User.ID, Username: s.session.User.Username}, true
}

// Profile returns the cached profile.
func (s *Store) Profile() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Following returns the following cache and its fetch state.
func (s *Store) Following() ([]domain.UserRef, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRefs(s.following), s.followingCell.State()
}

// Followers returns the followers cache and its fetch state.
func (s *Store) Followers() ([]domain.UserRef, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRefs(s.followers), s.followersCell.State()
}

// OwnPosts returns the own-posts cache and its fetch state. Likes and
// comments are copied so later in-place reconciliation cannot leak into a
// snapshot a caller already holds.
func (s *Store) OwnPosts() ([]domain.Post, cache.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]domain.Post, len(s.ownPosts))
	for i, p := range s.ownPosts {
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
		posts[i] = p
	}
	return posts, s.ownPostsCell.State()
}

func (s *Store) requireAuth() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.session.Authenticated() {
		return domain.ErrAuthRequired
	}
	return nil
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

func cloneRefs(refs []domain.UserRef) []domain.UserRef {
	if len(refs) == 0 {
		return nil
	}
	dup := make([]domain.UserRef, len(refs))
	copy(dup, refs)
	return dup
}
