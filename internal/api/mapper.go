package api

import (
	"time"

	"github.com/reelclub/reelclub/internal/domain"
)

// The server emits timestamps as Python isoformat, usually without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func mapUser(d userDTO) domain.User {
	return domain.User{
		ID:       d.ID,
		Username: d.Username,
		Email:    d.Email,
		Bio:      d.Bio,
	}
}

func mapUserRef(d userRefDTO) domain.UserRef {
	id := d.ID
	if id == 0 {
		id = d.UserID
	}
	return domain.UserRef{ID: id, Username: d.Username}
}

func mapUserRefs(dtos []userRefDTO) []domain.UserRef {
	refs := make([]domain.UserRef, 0, len(dtos))
	for _, d := range dtos {
		refs = append(refs, mapUserRef(d))
	}
	return refs
}

func mapClub(d clubDTO) domain.Club {
	return domain.Club{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		MemberCount: d.MemberCount,
	}
}

func mapClubs(dtos []clubDTO) []domain.Club {
	clubs := make([]domain.Club, 0, len(dtos))
	for _, d := range dtos {
		clubs = append(clubs, mapClub(d))
	}
	return clubs
}

func mapComment(d commentDTO) domain.Comment {
	return domain.Comment{
		ID:        d.ID,
		PostID:    d.PostID,
		UserID:    d.UserID,
		Username:  d.Username,
		Content:   d.Content,
		CreatedAt: parseTime(d.CreatedAt),
	}
}

func mapPost(d postDTO) domain.Post {
	comments := make([]domain.Comment, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, mapComment(c))
	}
	return domain.Post{
		ID:             d.ID,
		AuthorID:       d.AuthorID,
		AuthorUsername: d.AuthorUsername,
		ClubID:         d.ClubID,
		MovieTitle:     d.MovieTitle,
		Content:        d.Content,
		LikesCount:     d.LikesCount,
		Likes:          mapUserRefs(d.Likes),
		Comments:       comments,
		CreatedAt:      parseTime(d.CreatedAt),
	}
}

func mapPosts(dtos []postDTO) []domain.Post {
	posts := make([]domain.Post, 0, len(dtos))
	for _, d := range dtos {
		posts = append(posts, mapPost(d))
	}
	return posts
}

func mapWatchlistItem(d watchlistItemDTO) domain.WatchlistItem {
	status := domain.WatchStatus(d.Status)
	if status == "" {
		status = domain.WatchStatusPending
	}
	return domain.WatchlistItem{
		ID:         d.ID,
		MovieID:    d.MovieID,
		MovieTitle: d.MovieTitle,
		Genre:      d.Genre,
		Status:     status,
	}
}

func mapWatchlist(dtos []watchlistItemDTO) []domain.WatchlistItem {
	items := make([]domain.WatchlistItem, 0, len(dtos))
	for _, d := range dtos {
		items = append(items, mapWatchlistItem(d))
	}
	return items
}

func mapAuthResult(d authDTO) domain.AuthResult {
	return domain.AuthResult{
		Token: d.AccessToken,
		User: domain.User{
			ID:       d.UserID,
			Username: d.Username,
			Email:    d.Email,
		},
	}
}
