package api

// Wire DTOs for the reelclub server. All endpoints speak JSON; authenticated
// endpoints carry `Authorization: Bearer <token>`.

type messageDTO struct {
	Message string `json:"message"`
}

type authDTO struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
}

type userDTO struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
}

type userRefDTO struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	UserID   int    `json:"user_id"` // some endpoints key the id this way
}

type clubDTO struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"member_count"`
}

type commentDTO struct {
	ID        int    `json:"id"`
	PostID    int    `json:"post_id"`
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type postDTO struct {
	ID             int          `json:"id"`
	MovieTitle     string       `json:"movie_title"`
	Content        string       `json:"content"`
	ClubID         int          `json:"club_id"`
	AuthorID       int          `json:"author_id"`
	AuthorUsername string       `json:"author_username"`
	LikesCount     int          `json:"likes_count"`
	Likes          []userRefDTO `json:"likes"`
	Comments       []commentDTO `json:"comments"`
	CreatedAt      string       `json:"created_at"`
}

type likeDTO struct {
	Message    string `json:"message"`
	LikesCount int    `json:"likes_count"`
	Liked      bool   `json:"liked"`
}

type watchlistItemDTO struct {
	ID         int    `json:"id"`
	MovieID    string `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	Genre      string `json:"genre"`
	Status     string `json:"status"`
}

// watchlistMutationDTO wraps the item the server returns on add/update.
type watchlistMutationDTO struct {
	Message string           `json:"message"`
	Item    watchlistItemDTO `json:"item"`
}
