package domain

import "time"

// User is the client's partial projection of a server account.
// Email and Bio are only populated for the current user's own profile.
type User struct {
	ID       int
	Username string
	Email    string
	Bio      string
}

// UserRef identifies a user inside relationship and like lists.
type UserRef struct {
	ID       int
	Username string
}

// Session holds the authenticated identity. The zero value is anonymous.
type Session struct {
	Token string
	User  *User
}

// Authenticated reports whether both a token and a resolved user are present.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// Club is a topical community users can join.
type Club struct {
	ID          int
	Name        string
	Description string
	MemberCount int
}

// Post is a movie discussion post. The same record may be referenced by the
// global feed, a club's post list, and the author's own-post projection.
type Post struct {
	ID             int
	AuthorID       int
	AuthorUsername string
	ClubID         int
	MovieTitle     string
	Content        string
	LikesCount     int
	Likes          []UserRef
	Comments       []Comment
	CreatedAt      time.Time
}

// Comment belongs to its parent post's comment sequence.
type Comment struct {
	ID        int
	PostID    int
	UserID    int
	Username  string
	Content   string
	CreatedAt time.Time
}

// WatchStatus is the tracking state of a watchlist entry.
type WatchStatus string

const (
	WatchStatusPending WatchStatus = "pending"
	WatchStatusWatched WatchStatus = "watched"
)

// WatchlistItem is one tracked movie, scoped to the current user.
type WatchlistItem struct {
	ID         int
	MovieID    string
	MovieTitle string
	Genre      string
	Status     WatchStatus
}

// LikeResult is the server's answer to a like toggle.
type LikeResult struct {
	LikesCount int
	Liked      bool
}

// Credentials are the login inputs.
type Credentials struct {
	Username string
	Password string
}

// Registration are the sign-up inputs.
type Registration struct {
	Username string
	Email    string
	Password string
}

// UserPatch carries profile fields to update. Nil fields are left unchanged.
type UserPatch struct {
	Email *string
	Bio   *string
}

// NewWatchlistItem carries the fields needed to add a watchlist entry.
type NewWatchlistItem struct {
	MovieID    string
	MovieTitle string
	Genre      string
	Status     WatchStatus
}

// AuthResult is the outcome of register, login, or a session check.
// Token is empty when the server did not issue one.
type AuthResult struct {
	Token string
	User  User
}

// Identity resolves the acting user. It reports false when no session is
// established, letting stores fail locally before any network I/O.
type Identity func() (UserRef, bool)
