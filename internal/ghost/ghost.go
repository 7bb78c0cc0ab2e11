// Package ghost publishes finished meal plans to a Ghost blog through the
// Admin API.
package ghost

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Post is a post as returned by the Admin API.
type Post struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	HTML   string `json:"html,omitempty"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
}

// PostsResponse is the envelope the Admin API wraps posts in.
type PostsResponse struct {
	Posts []Post `json:"posts"`
}

// Publisher creates posts.
type Publisher interface {
	CreatePost(ctx context.Context, title, html string, publish bool) (*Post, error)
}

// Client talks to the Ghost Admin API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	adminKey   string
	tags       []string
}

// NewClient creates a Ghost Admin API client. adminKey has the form
// "id:secret" with a hex encoded secret. Every post is tagged with tags.
func NewClient(baseURL, adminKey string, tags ...string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminKey:   adminKey,
		tags:       tags,
	}
}

// CreatePost creates a post from HTML, as a draft unless publish is set.
func (c *Client) CreatePost(ctx context.Context, title, html string, publish bool) (*Post, error) {
	token, err := c.createAdminToken(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}

	status := "draft"
	if publish {
		status = "published"
	}

	post := map[string]interface{}{
		"title":  title,
		"html":   html,
		"status": status,
	}
	if len(c.tags) > 0 {
		tags := make([]map[string]string, 0, len(c.tags))
		for _, t := range c.tags {
			tags = append(tags, map[string]string{"name": t})
		}
		post["tags"] = tags
	}

	body, err := json.Marshal(map[string]interface{}{"posts": []map[string]interface{}{post}})
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/ghost/api/admin/posts/?source=html"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("admin api error: status %d, body: %v", resp.StatusCode, errResp)
	}

	var response PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Posts) == 0 {
		return nil, fmt.Errorf("no post returned from api")
	}

	return &response.Posts[0], nil
}

// createAdminToken generates a short-lived JWT for the Admin API.
func (c *Client) createAdminToken(now time.Time) (string, error) {
	id, secretHex, ok := strings.Cut(c.adminKey, ":")
	if !ok || id == "" || secretHex == "" {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
