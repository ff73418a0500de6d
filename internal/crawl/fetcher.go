// Package crawl fetches web pages and extracts their text and outbound links
// for URL ingestion.
package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	fetchTimeout = 30 * time.Second
	maxBodySize  = 5 << 20
	userAgent    = "ragmemory-crawler/1.0"
)

// Page is one fetched document: plain text extracted from the HTML body plus
// the same-host links discovered in it.
type Page struct {
	URL   string
	Title string
	Text  string
	Links []string
}

// Fetcher retrieves a page by URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// HTTPFetcher fetches pages over HTTP with a shared rate limiter so crawls
// stay polite regardless of traversal parallelism.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher limited to ratePerSec requests per second.
func NewHTTPFetcher(ratePerSec float64) *HTTPFetcher {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}

	return &HTTPFetcher{
		client:  &http.Client{Timeout: fetchTimeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Fetch retrieves pageURL, extracts its text content, and returns same-host
// absolute links found in the document.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", pageURL, err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", base.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating fetch request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: status %d", pageURL, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "text/html") && !strings.Contains(ct, "text/plain") {
		return nil, fmt.Errorf("fetching %q: unsupported content type %q", pageURL, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body of %q: %w", pageURL, err)
	}

	if strings.Contains(ct, "text/plain") {
		return &Page{URL: pageURL, Text: string(body)}, nil
	}

	return parsePage(base, string(body))
}

// parsePage walks the HTML tree once, collecting the title, visible text, and
// same-host links resolved against base.
func parsePage(base *url.URL, body string) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing html from %q: %w", base, err)
	}

	page := &Page{URL: base.String()}
	seen := make(map[string]bool)

	var text strings.Builder

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "nav", "footer":
				return
			case "title":
				if page.Title == "" && n.FirstChild != nil {
					page.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				if link, ok := sameHostLink(base, n); ok && !seen[link] {
					seen[link] = true
					page.Links = append(page.Links, link)
				}
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				text.WriteString(t)
				text.WriteByte(' ')
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	page.Text = strings.TrimSpace(text.String())

	return page, nil
}

// sameHostLink resolves an anchor's href against base and returns it when it
// stays on the same host. Fragments are stripped so anchors within one page
// do not look like distinct crawl targets.
func sameHostLink(base *url.URL, n *html.Node) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key != "href" {
			continue
		}

		ref, err := url.Parse(strings.TrimSpace(attr.Val))
		if err != nil {
			return "", false
		}

		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			return "", false
		}

		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return "", false
		}

		resolved.Fragment = ""

		return resolved.String(), true
	}

	return "", false
}
