package f95

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"f95-crawler/models"
	"f95-crawler/utils"
)

// BrowserThreadClient renders thread pages in headless Chrome. Use it when
// the site serves a script challenge to plain HTTP clients. The declared
// UserAgent is still sent as is.
type BrowserThreadClient struct {
	BaseURL string
	Timeout time.Duration

	logger      *utils.Logger
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// NewBrowserThreadClient launches the browser. Call Close when done.
func NewBrowserThreadClient(baseURL, userAgent, chromeBin string, timeout time.Duration, logger *utils.Logger) (*BrowserThreadClient, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser now so every fetch opens a tab in it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	return &BrowserThreadClient{
		BaseURL:     baseURL,
		Timeout:     timeout,
		logger:      logger,
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}, nil
}

// FetchThread navigates to the thread and parses the rendered HTML. The
// main document's HTTP status is read from network events so a 429 is
// still reported as models.ErrRateLimited.
func (b *BrowserThreadClient) FetchThread(ctx context.Context, threadID int64) (*models.ThreadDetail, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.Timeout)
	defer cancelTimeout()

	// The caller's context still bounds the tab.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var status atomic.Int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			status.CompareAndSwap(0, e.Response.Status)
		}
	})

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(ThreadURL(b.BaseURL, threadID)),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("thread %d: chromedp: %w", threadID, err)
	}

	code := int(status.Load())
	switch {
	case code == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: thread %d", models.ErrRateLimited, threadID)
	case code >= 400:
		return nil, fmt.Errorf("%w: thread %d: status %d", models.ErrUnexpectedStatus, threadID, code)
	}

	b.logger.Debug("[browser] Thread %d rendered (%d bytes)", threadID, len(html))
	return ParseThread(threadID, html)
}

// Close shuts the browser down.
func (b *BrowserThreadClient) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary on PATH or in the
// usual install locations.
func findChromeBinary() string {
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
