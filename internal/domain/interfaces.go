package domain

import "context"

// AuthAPI covers the authentication endpoints.
type AuthAPI interface {
	Register(ctx context.Context, reg Registration) (AuthResult, error)
	Login(ctx context.Context, creds Credentials) (AuthResult, error)
	// CheckSession validates the client's current token.
	CheckSession(ctx context.Context) (AuthResult, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
}

// UserAPI covers profiles, relationship lists, and a user's posts.
type UserAPI interface {
	GetUser(ctx context.Context, userID int) (User, error)
	UpdateUser(ctx context.Context, userID int, patch UserPatch) (User, error)
	GetUserPosts(ctx context.Context, userID int) ([]Post, error)
	GetFollowing(ctx context.Context, userID int) ([]UserRef, error)
	GetFollowers(ctx context.Context, userID int) ([]UserRef, error)
	Follow(ctx context.Context, userID int) (UserRef, error)
	Unfollow(ctx context.Context, userID int) error
}

// ClubAPI covers the club directory and membership.
type ClubAPI interface {
	GetClubs(ctx context.Context) ([]Club, error)
	GetUserClubs(ctx context.Context, userID int) ([]Club, error)
	GetClub(ctx context.Context, clubID int) (Club, error)
	JoinClub(ctx context.Context, clubID int) error
	LeaveClub(ctx context.Context, clubID int) error
}

// PostAPI covers posts, the feed, and social interactions on posts.
type PostAPI interface {
	GetClubPosts(ctx context.Context, clubID int) ([]Post, error)
	CreatePost(ctx context.Context, clubID int, movieTitle, content string) (Post, error)
	DeletePost(ctx context.Context, postID int) error
	GetFeed(ctx context.Context) ([]Post, error)
	ToggleLike(ctx context.Context, postID int) (LikeResult, error)
	AddComment(ctx context.Context, postID int, content string) (Comment, error)
	DeleteComment(ctx context.Context, commentID int) error
}

// WatchlistAPI covers the current user's tracked movies.
type WatchlistAPI interface {
	GetWatchlist(ctx context.Context, userID int) ([]WatchlistItem, error)
	AddWatchlistItem(ctx context.Context, userID int, item NewWatchlistItem) (WatchlistItem, error)
	UpdateWatchlistItem(ctx context.Context, userID, itemID int, status WatchStatus) (WatchlistItem, error)
	RemoveWatchlistItem(ctx context.Context, userID, itemID int) error
}

// API is the full remote access surface consumed by the stores. The token is
// written once per session: set after login or a session check, cleared at
// logout.
type API interface {
	AuthAPI
	UserAPI
	ClubAPI
	PostAPI
	WatchlistAPI

	SetToken(token string)
}
