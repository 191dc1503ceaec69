package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/barkatlearn/learn/internal/models"
)

// FetchProgress calls GET /api/progress. It returns nil without a backend or a token.
func (c *Client) FetchProgress(ctx context.Context, token string) (*models.ProgressSnapshot, error) {
	if c.Offline() || token == "" {
		return nil, nil
	}

	var snapshot models.ProgressSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/progress", token, nil, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to fetch progress: %w", err)
	}
	return &snapshot, nil
}

// PatchProgress calls PATCH /api/progress with the non-nil fields of patch
func (c *Client) PatchProgress(ctx context.Context, token string, patch *models.ProgressPatch) error {
	if c.Offline() || token == "" {
		return nil
	}

	if err := c.do(ctx, http.MethodPatch, "/api/progress", token, patch, nil); err != nil {
		return fmt.Errorf("failed to patch progress: %w", err)
	}
	return nil
}

// MarkLearned calls POST /api/progress/learned with the device's calendar day and returns the updated snapshot.
// It returns nil without a backend or a token.
func (c *Client) MarkLearned(ctx context.Context, token, cardID string, day models.Date) (*models.ProgressSnapshot, error) {
	if c.Offline() || token == "" {
		return nil, nil
	}

	req := models.CardIDRequest{CardID: cardID}
	if !day.IsZero() {
		req.Date = &day
	}

	var snapshot models.ProgressSnapshot
	if err := c.do(ctx, http.MethodPost, "/api/progress/learned", token, req, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to mark card learned: %w", err)
	}
	return &snapshot, nil
}

// FetchCategoryStats calls GET /api/progress/user-progress-stats.
//
// It returns nil without a backend and ErrAuthRequired without a token.
func (c *Client) FetchCategoryStats(ctx context.Context, token string) (*models.CategoryStatsResponse, error) {
	if c.Offline() {
		return nil, nil
	}
	if token == "" {
		return nil, ErrAuthRequired
	}

	var stats models.CategoryStatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/progress/user-progress-stats", token, nil, &stats); err != nil {
		return nil, fmt.Errorf("failed to fetch category stats: %w", err)
	}
	return &stats, nil
}
