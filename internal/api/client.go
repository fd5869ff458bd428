package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/reelclub/reelclub/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "reelclub/1.0"
)

// Client is the remote access client for the reelclub server. It issues
// bearer-token HTTP requests and maps failures onto the domain taxonomy:
// transport failures become domain.ErrNetwork, non-success statuses become
// *domain.RemoteError carrying the server's message.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// tokenMu guards token: stores call SetToken and issue requests from
	// different goroutines.
	tokenMu sync.RWMutex
	token   string
}

// Compile-time check that Client covers the full store-facing surface.
var _ domain.API = (*Client)(nil)

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// SetToken updates the bearer token. Written once at login or session check,
// cleared once at logout.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

func (c *Client) bearer() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// do performs one JSON request. body and out may be nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("api request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageDTO
		_ = json.Unmarshal(respBody, &msg)
		c.logger.Error("api request rejected", "method", method, "path", path, "status", resp.StatusCode, "message", msg.Message)
		return &domain.RemoteError{Status: resp.StatusCode, Message: msg.Message}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			c.logger.Error("failed to parse response", "path", path, "error", err, "bodyLen", len(respBody))
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// === Auth ===

func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	payload := map[string]string{
		"username": reg.Username,
		"email":    reg.Email,
		"password": reg.Password,
	}
	var dto authDTO
	if err := c.do(ctx, http.MethodPost, "/auth/register", payload, &dto); err != nil {
		return domain.AuthResult{}, err
	}
	return mapAuthResult(dto), nil
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	payload := map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	}
	var dto authDTO
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, &dto); err != nil {
		return domain.AuthResult{}, err
	}
	return mapAuthResult(dto), nil
}

func (c *Client) CheckSession(ctx context.Context) (domain.AuthResult, error) {
	var dto authDTO
	if err := c.do(ctx, http.MethodGet, "/auth/check_session", nil, &dto); err != nil {
		return domain.AuthResult{}, err
	}
	result := mapAuthResult(dto)
	// check_session echoes identity, not a fresh token
	result.Token = c.bearer()
	return result, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var dto messageDTO
	if err := c.do(ctx, http.MethodPost, "/auth/forgot_password", map[string]string{"email": email}, &dto); err != nil {
		return "", err
	}
	return dto.Message, nil
}

// === Users ===

func (c *Client) GetUser(ctx context.Context, userID int) (domain.User, error) {
	var dto userDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, &dto); err != nil {
		return domain.User{}, err
	}
	return mapUser(dto), nil
}

func (c *Client) UpdateUser(ctx context.Context, userID int, patch domain.UserPatch) (domain.User, error) {
	payload := map[string]string{}
	if patch.Email != nil {
		payload["email"] = *patch.Email
	}
	if patch.Bio != nil {
		payload["bio"] = *patch.Bio
	}
	var dto userDTO
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", userID), payload, &dto); err != nil {
		return domain.User{}, err
	}
	return mapUser(dto), nil
}

func (c *Client) GetUserPosts(ctx context.Context, userID int) ([]domain.Post, error) {
	var dtos []postDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/posts", userID), nil, &dtos); err != nil {
		return nil, err
	}
	return mapPosts(dtos), nil
}

func (c *Client) GetFollowing(ctx context.Context, userID int) ([]domain.UserRef, error) {
	var dtos []userRefDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/following", userID), nil, &dtos); err != nil {
		return nil, err
	}
	return mapUserRefs(dtos), nil
}

func (c *Client) GetFollowers(ctx context.Context, userID int) ([]domain.UserRef, error) {
	var dtos []userRefDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/followers", userID), nil, &dtos); err != nil {
		return nil, err
	}
	return mapUserRefs(dtos), nil
}

func (c *Client) Follow(ctx context.Context, userID int) (domain.UserRef, error) {
	var dto userRefDTO
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/follow", userID), struct{}{}, &dto); err != nil {
		return domain.UserRef{}, err
	}
	ref := mapUserRef(dto)
	// follow acks may omit the id; the caller already knows the target
	if ref.ID == 0 {
		ref.ID = userID
	}
	return ref, nil
}

func (c *Client) Unfollow(ctx context.Context, userID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/unfollow", userID), struct{}{}, nil)
}

// === Clubs ===

func (c *Client) GetClubs(ctx context.Context) ([]domain.Club, error) {
	var dtos []clubDTO
	if err := c.do(ctx, http.MethodGet, "/clubs/", nil, &dtos); err != nil {
		return nil, err
	}
	return mapClubs(dtos), nil
}

func (c *Client) GetUserClubs(ctx context.Context, userID int) ([]domain.Club, error) {
	var dtos []clubDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/clubs", userID), nil, &dtos); err != nil {
		return nil, err
	}
	return mapClubs(dtos), nil
}

func (c *Client) GetClub(ctx context.Context, clubID int) (domain.Club, error) {
	var dto clubDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/clubs/%d", clubID), nil, &dto); err != nil {
		return domain.Club{}, err
	}
	return mapClub(dto), nil
}

func (c *Client) JoinClub(ctx context.Context, clubID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/clubs/%d/join", clubID), struct{}{}, nil)
}

func (c *Client) LeaveClub(ctx context.Context, clubID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/clubs/%d/leave", clubID), struct{}{}, nil)
}

// === Posts ===

func (c *Client) GetClubPosts(ctx context.Context, clubID int) ([]domain.Post, error) {
	var dtos []postDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/clubs/%d/posts", clubID), nil, &dtos); err != nil {
		return nil, err
	}
	return mapPosts(dtos), nil
}

func (c *Client) CreatePost(ctx context.Context, clubID int, movieTitle, content string) (domain.Post, error) {
	payload := map[string]string{
		"movie_title": movieTitle,
		"content":     content,
	}
	var dto postDTO
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/clubs/%d/posts", clubID), payload, &dto); err != nil {
		return domain.Post{}, err
	}
	post := mapPost(dto)
	if post.ClubID == 0 {
		post.ClubID = clubID
	}
	return post, nil
}

func (c *Client) DeletePost(ctx context.Context, postID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d", postID), nil, nil)
}

func (c *Client) GetFeed(ctx context.Context) ([]domain.Post, error) {
	var dtos []postDTO
	if err := c.do(ctx, http.MethodGet, "/posts/feed", nil, &dtos); err != nil {
		return nil, err
	}
	return mapPosts(dtos), nil
}

func (c *Client) ToggleLike(ctx context.Context, postID int) (domain.LikeResult, error) {
	var dto likeDTO
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/like", postID), struct{}{}, &dto); err != nil {
		return domain.LikeResult{}, err
	}
	return domain.LikeResult{LikesCount: dto.LikesCount, Liked: dto.Liked}, nil
}

func (c *Client) AddComment(ctx context.Context, postID int, content string) (domain.Comment, error) {
	var dto commentDTO
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), map[string]string{"content": content}, &dto); err != nil {
		return domain.Comment{}, err
	}
	comment := mapComment(dto)
	if comment.PostID == 0 {
		comment.PostID = postID
	}
	return comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d", commentID), nil, nil)
}

// === Watchlist ===

func (c *Client) GetWatchlist(ctx context.Context, userID int) ([]domain.WatchlistItem, error) {
	var dtos []watchlistItemDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/watchlist", userID), nil, &dtos); err != nil {
		return nil, err
	}
	return mapWatchlist(dtos), nil
}

func (c *Client) AddWatchlistItem(ctx context.Context, userID int, item domain.NewWatchlistItem) (domain.WatchlistItem, error) {
	status := item.Status
	if status == "" {
		status = domain.WatchStatusPending
	}
	payload := map[string]string{
		"movie_id":    item.MovieID,
		"movie_title": item.MovieTitle,
		"genre":       item.Genre,
		"status":      string(status),
	}
	var dto watchlistMutationDTO
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/watchlist", userID), payload, &dto); err != nil {
		return domain.WatchlistItem{}, err
	}
	return mapWatchlistItem(dto.Item), nil
}

func (c *Client) UpdateWatchlistItem(ctx context.Context, userID, itemID int, status domain.WatchStatus) (domain.WatchlistItem, error) {
	payload := map[string]string{"status": string(status)}
	var dto watchlistMutationDTO
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/watchlist/%d", userID, itemID), payload, &dto); err != nil {
		return domain.WatchlistItem{}, err
	}
	return mapWatchlistItem(dto.Item), nil
}

func (c *Client) RemoveWatchlistItem(ctx context.Context, userID, itemID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/watchlist/%d", userID, itemID), nil, nil)
}
