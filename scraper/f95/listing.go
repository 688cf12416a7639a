package f95

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"f95-crawler/models"
)

// ListingClient reads pages of the "latest updates" game list.
type ListingClient struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client

	// Token returns the cache-busting "_" query value. Defaults to the
	// current unix time in milliseconds.
	Token func() string
}

func NewListingClient(baseURL, userAgent string, timeout time.Duration) *ListingClient {
	return &ListingClient{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

// PageURL builds the request URL for page.
func (c *ListingClient) PageURL(page int) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("listing: parse base url: %w", err)
	}
	token := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if c.Token != nil {
		token = c.Token()
	}

	q := u.Query()
	q.Set("cmd", "list")
	q.Set("cat", "games")
	q.Set("sort", "date")
	q.Set("_", token)
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchPage requests one page. A 429 wraps models.ErrRateLimited, a
// non-"ok" envelope wraps models.ErrStatusNotOK.
func (c *ListingClient) FetchPage(ctx context.Context, page int) (*models.ListingPage, error) {
	pageURL, err := c.PageURL(page)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("listing: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing: page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, fmt.Sprintf("listing page %d", page)); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("listing: read page %d: %w", page, err)
	}

	var env models.ListingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("listing: decode page %d: %w", page, err)
	}
	if env.Status != "ok" {
		return nil, fmt.Errorf("%w: page %d: %s", models.ErrStatusNotOK, page, snippet(body))
	}

	var msg models.ListingMsg
	if err := json.Unmarshal(env.Msg, &msg); err != nil {
		return nil, fmt.Errorf("listing: decode page %d msg: %w", page, err)
	}

	return &models.ListingPage{
		Number:     page,
		TotalPages: msg.Pagination.Total,
		Records:    msg.Data,
	}, nil
}

// checkStatus maps HTTP failures onto the shared error taxonomy.
func checkStatus(resp *http.Response, what string) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", models.ErrRateLimited, what)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: status %d: %s", models.ErrUnexpectedStatus, what, resp.StatusCode, snippet(body))
	}
	return nil
}

func snippet(b []byte) string {
	const max = 200
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
