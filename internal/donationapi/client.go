package donationapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
)

// Client talks to the remote Donation API. Calls forward the bearer token
// found in the request context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateDonation records a donation. It is never retried: a lost response may
// still mean the donation was stored.
func (c *Client) CreateDonation(ctx context.Context, payload donation.CreatePayload) (*donation.Donation, error) {
	var out donation.Donation
	if err := c.do(ctx, http.MethodPost, "/donations", nil, payload, &out); err != nil {
		return nil, err
	}
	c.logger.Info("donation created",
		"donation_id", out.ID,
		"campaign_id", payload.CampaignID,
		"receipt_id", out.ReceiptID)
	return &out, nil
}

func (c *Client) GetMyDonations(ctx context.Context, page, limit int) (*donation.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var out donation.Page
	if err := c.do(ctx, http.MethodGet, "/donations/my-donations", query, nil, &out); err != nil {
		return nil, err
	}
	if out.Page == 0 {
		out.Page = page
	}
	if out.Limit == 0 {
		out.Limit = limit
	}
	return &out, nil
}

func (c *Client) ListCampaigns(ctx context.Context, status string) ([]donation.Campaign, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var out []donation.Campaign
	if err := c.do(ctx, http.MethodGet, "/campaigns", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCampaign(ctx context.Context, id string) (*donation.Campaign, error) {
	var out donation.Campaign
	if err := c.do(ctx, http.MethodGet, "/campaigns/"+url.PathEscape(id), nil, nil, &out); err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.StatusCode == http.StatusNotFound {
			return nil, errors.ErrCampaignNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCampaign(ctx context.Context, campaign donation.Campaign) (*donation.Campaign, error) {
	var out donation.Campaign
	if err := c.do(ctx, http.MethodPost, "/campaigns", nil, campaign, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCampaign(ctx context.Context, id string, campaign donation.Campaign) (*donation.Campaign, error) {
	var out donation.Campaign
	if err := c.do(ctx, http.MethodPut, "/campaigns/"+url.PathEscape(id), nil, campaign, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/campaigns/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListFunds(ctx context.Context) ([]donation.Fund, error) {
	var out []donation.Fund
	if err := c.do(ctx, http.MethodGet, "/funds", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProfile(ctx context.Context) (*donation.Profile, error) {
	var out donation.Profile
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("request creation error: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := errors.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("donation api request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("response read error: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("donation api returned error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"response", string(respBody))
		return errors.NewExternalError(remoteMessage(respBody, resp.StatusCode), errors.ErrCodeUpstream, resp.StatusCode)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	return decodeEnvelope(respBody, out)
}

// decodeEnvelope accepts both {"data": ...} envelopes and bare objects.
func decodeEnvelope(body []byte, out interface{}) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		body = envelope.Data
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("response unmarshal error: %w", err)
	}
	return nil
}

func remoteMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("donation api returned status %d", status)
}
