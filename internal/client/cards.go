package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/barkatlearn/learn/internal/models"
)

// maxCategoryPageSize is the largest page the category endpoints accept
const maxCategoryPageSize = 100

// bundledPage returns cards as a single complete page
func bundledPage(cards []models.APICard) *models.FeedPage {
	return &models.FeedPage{
		Items:  cards,
		Total:  len(cards),
		Limit:  len(cards),
		Offset: 0,
	}
}

func pageQuery(limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return q.Encode()
}

func clampCategoryLimit(limit int) int {
	return min(max(limit, 1), maxCategoryPageSize)
}

// FetchFeed calls GET /api/cards/feed.
//
// Without a backend or without a token the bundled catalog is returned.
func (c *Client) FetchFeed(ctx context.Context, token string, limit, offset int) (*models.FeedPage, error) {
	if c.Offline() || token == "" {
		return bundledPage(c.catalog.All()), nil
	}

	var page models.FeedPage
	if err := c.do(ctx, http.MethodGet, "/api/cards/feed?"+pageQuery(limit, offset), token, nil, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return &page, nil
}

// FetchAllCards calls the public GET /api/cards listing
func (c *Client) FetchAllCards(ctx context.Context) ([]models.APICard, error) {
	if c.Offline() {
		return c.catalog.All(), nil
	}

	var page models.FeedPage
	if err := c.do(ctx, http.MethodGet, "/api/cards", "", nil, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch cards: %w", err)
	}
	return page.Items, nil
}

// FetchCategory calls GET /api/cards/category/{category}
func (c *Client) FetchCategory(ctx context.Context, token string, category models.Category, limit, offset int) (*models.FeedPage, error) {
	if c.Offline() {
		return bundledPage(c.catalog.ByCategory(category)), nil
	}

	path := fmt.Sprintf("/api/cards/category/%s?%s", url.PathEscape(category.Slug()), pageQuery(clampCategoryLimit(limit), offset))
	var page models.FeedPage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch category cards: %w", err)
	}
	return &page, nil
}

// FetchCompleted calls GET /api/cards/category/{category}/completed
func (c *Client) FetchCompleted(ctx context.Context, token string, category models.Category, limit, offset int) (*models.FeedPage, error) {
	if c.Offline() {
		return bundledPage(c.catalog.ByCategory(category)), nil
	}
	if token == "" {
		return nil, ErrAuthRequired
	}

	path := fmt.Sprintf("/api/cards/category/%s/completed?%s", url.PathEscape(category.Slug()), pageQuery(clampCategoryLimit(limit), offset))
	var page models.FeedPage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch completed cards: %w", err)
	}
	return &page, nil
}

// FetchBookmarks calls GET /api/cards/bookmarks. Without a backend or a token an empty page is returned.
func (c *Client) FetchBookmarks(ctx context.Context, token string, limit, offset int) (*models.FeedPage, error) {
	if c.Offline() || token == "" {
		return &models.FeedPage{Items: []models.APICard{}, Limit: limit, Offset: offset}, nil
	}

	var page models.FeedPage
	if err := c.do(ctx, http.MethodGet, "/api/cards/bookmarks?"+pageQuery(max(limit, 0), offset), token, nil, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch bookmarks: %w", err)
	}
	return &page, nil
}

// AddBookmark calls POST /api/cards/bookmarks and returns the server's saved ids.
// It is a no-op returning nil ids without a backend or a token.
func (c *Client) AddBookmark(ctx context.Context, token, cardID string) ([]string, error) {
	return c.mutateBookmark(ctx, http.MethodPost, token, cardID)
}

// RemoveBookmark calls DELETE /api/cards/bookmarks
func (c *Client) RemoveBookmark(ctx context.Context, token, cardID string) ([]string, error) {
	return c.mutateBookmark(ctx, http.MethodDelete, token, cardID)
}

func (c *Client) mutateBookmark(ctx context.Context, method, token, cardID string) ([]string, error) {
	if c.Offline() || token == "" {
		return nil, nil
	}

	var resp models.BookmarksResponse
	if err := c.do(ctx, method, "/api/cards/bookmarks", token, models.CardIDRequest{CardID: cardID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to update bookmark: %w", err)
	}
	if resp.SavedCardIDs == nil {
		return []string{}, nil
	}
	return resp.SavedCardIDs, nil
}
