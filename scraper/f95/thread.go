package f95

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"f95-crawler/models"
)

var overviewLabel = regexp.MustCompile(`(?i)^overview:\s*`)

// ThreadURL returns the thread page for threadID under base.
func ThreadURL(base string, threadID int64) string {
	return strings.TrimSuffix(base, "/") + "/" + strconv.FormatInt(threadID, 10) + "/"
}

// ThreadClient downloads thread pages over plain HTTP, announcing itself
// with UserAgent.
type ThreadClient struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewThreadClient(baseURL, userAgent string, timeout time.Duration) *ThreadClient {
	return &ThreadClient{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

func (c *ThreadClient) FetchThread(ctx context.Context, threadID int64) (*models.ThreadDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ThreadURL(c.BaseURL, threadID), nil)
	if err != nil {
		return nil, fmt.Errorf("thread: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("thread %d: %w", threadID, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, fmt.Sprintf("thread %d", threadID)); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("thread %d: read body: %w", threadID, err)
	}
	return ParseThread(threadID, string(body))
}

// ParseThread extracts the overview and first spoiler of the opening post.
// The raw document is kept verbatim on the result.
func ParseThread(threadID int64, html string) (*models.ThreadDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: thread %d: %v", models.ErrParse, threadID, err)
	}

	body := doc.Find(".message-inner").First().Find(".message-content .bbWrapper").First()
	if body.Length() == 0 {
		return nil, fmt.Errorf("%w: thread %d: no first message body", models.ErrParse, threadID)
	}

	overview := strings.TrimSpace(body.Text())
	overview = overviewLabel.ReplaceAllString(overview, "")

	detail := &models.ThreadDetail{
		ThreadID:     threadID,
		Overview:     overview,
		OriginalHTML: html,
	}
	if hidden := strings.TrimSpace(body.Find(".bbCodeSpoiler-content").First().Text()); hidden != "" {
		detail.HiddenOverview = &hidden
	}
	return detail, nil
}
