// Package fetch retrieves brand pages and extracts the on-page copy used to
// seed the research prompt. Fetching is best-effort: the research stage works
// from search grounding alone when the page cannot be read.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; BrandPanelAgent/1.0)"

// maxCorpusChars caps the extracted text so a long landing page does not
// crowd the rest of the research prompt.
const maxCorpusChars = 8000

// Page holds the brand copy extracted from a fetched page.
type Page struct {
	URL         string
	Title       string
	Description string
	Text        string
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	UseBrowser bool
	Verbose    bool
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// BrandPage fetches a brand URL and extracts its title, meta description, and
// visible copy. When the plain HTTP fetch yields too little text and
// UseBrowser is set, the page is re-rendered in a headless browser.
func BrandPage(ctx context.Context, urlStr string, opts *Options) (*Page, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	html, err := fetchHTML(ctx, urlStr, opts)
	if err != nil {
		return nil, err
	}

	page, err := extractPage(urlStr, html)
	if err != nil {
		return nil, err
	}

	// SPA sites return a near-empty shell over plain HTTP
	if opts.UseBrowser && ShouldUseBrowser(page.Text) {
		rendered, berr := WithBrowser(ctx, urlStr, opts.Timeout, opts.Verbose)
		if berr == nil {
			if renderedPage, perr := extractPage(urlStr, rendered); perr == nil {
				page = renderedPage
			}
		}
	}

	return page, nil
}

// fetchHTML retrieves raw HTML content from a URL.
func fetchHTML(ctx context.Context, urlStr string, opts *Options) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	client := &http.Client{
		Timeout: opts.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return "", &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	return string(bodyBytes), nil
}

// extractPage parses HTML and pulls out title, meta description, and body copy.
func extractPage(urlStr, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	page := &Page{URL: urlStr}
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		page.Description = strings.TrimSpace(desc)
	}

	// Remove common unwanted elements before extracting visible copy
	doc.Find("nav, footer, script, style, noscript, .ad, .advertisement, .cookie-banner, .popup").Remove()

	var mainContent *goquery.Selection
	for _, selector := range brandPageSelectors() {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	text := cleanWhitespace(mainContent.Text())
	if len(text) > maxCorpusChars {
		text = text[:maxCorpusChars]
	}
	page.Text = text

	return page, nil
}

// brandPageSelectors returns selectors for brand landing and about pages.
func brandPageSelectors() []string {
	return []string{
		"main",
		"article",
		".hero",
		".about-content",
		".content",
		"#content",
	}
}

// cleanWhitespace collapses runs of whitespace into single spaces and
// preserves paragraph breaks.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
