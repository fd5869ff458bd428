package domain

// Event is a cross-store notification. Stores publish events instead of
// mutating each other's caches; the coordinator subscribes and dispatches
// follow-up operations.
type Event interface {
	event()
}

// SessionEstablished fires after a successful login, register-with-token,
// or session check.
type SessionEstablished struct {
	User User
}

// SessionEnded fires on logout. Every store wipes its own caches in
// response; the session store does not do it on their behalf.
type SessionEnded struct{}

// PostDeleted fires after the server confirms a post deletion.
type PostDeleted struct {
	PostID   int
	AuthorID int
}

// RelationshipChanged fires after a confirmed follow or unfollow, and after
// an unfollow the server rejected, so relationship caches re-verify against
// the server instead of trusting local state.
type RelationshipChanged struct {
	TargetID int
}

// PostLikeToggled fires after the server confirms a like toggle. It carries
// the server's answer and the acting user so every cache holding the post
// can apply the same reconciliation.
type PostLikeToggled struct {
	PostID int
	Result LikeResult
	Actor  UserRef
}

// PostCommentAdded fires after the server confirms a new comment.
type PostCommentAdded struct {
	Comment Comment
}

// PostCommentDeleted fires after the server confirms a comment deletion.
type PostCommentDeleted struct {
	CommentID int
}

// ClubMembershipChanged fires after a confirmed join or leave.
type ClubMembershipChanged struct {
	ClubID int
	Joined bool
}

func (SessionEstablished) event()    {}
func (SessionEnded) event()          {}
func (PostDeleted) event()           {}
func (PostLikeToggled) event()       {}
func (PostCommentAdded) event()      {}
func (PostCommentDeleted) event()    {}
func (RelationshipChanged) event()   {}
func (ClubMembershipChanged) event() {}
