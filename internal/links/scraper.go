package links

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// browserUA makes the search engine return the plain HTML result page.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/88.0.4324.182 Safari/537.36"

const candidatesPerSite = 3

// Candidate is a discovered page that may answer a question.
type Candidate struct {
	Title string
	URL   string
}

// Scraper finds candidate pages for a query on a single allow-listed site.
// Implementations are best-effort: callers treat errors as an empty result.
type Scraper interface {
	Search(ctx context.Context, site, query string) ([]Candidate, error)
}

// fragmentPattern extracts a URL fragment identifier, excluding the colon and
// tilde forms the search engine uses for its own highlight anchors.
var fragmentPattern = regexp.MustCompile(`(?P<hash>#[^:~].*)`)

// GoogleScraper scrapes the Google HTML result page for links on one site,
// then fetches each candidate page to recover its title.
type GoogleScraper struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewGoogleScraper creates a scraper using the given HTTP client (or a
// default one with a 10s timeout when nil).
func NewGoogleScraper(client *http.Client, logger *slog.Logger) *GoogleScraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleScraper{
		client:  client,
		baseURL: "https://www.google.com/search",
		logger:  logger,
	}
}

// Search issues one site-restricted query and returns up to three candidate
// pages with their resolved titles. A fragment identifier on the candidate
// URL qualifies the title as "<title> | <fragment>".
func (g *GoogleScraper) Search(ctx context.Context, site, query string) ([]Candidate, error) {
	page, err := g.get(ctx, fmt.Sprintf("%s?q=%s", g.baseURL,
		url.QueryEscape(fmt.Sprintf("site:%s %s", site, query))))
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	// Candidate URLs appear quoted in the result page. [^:~] skips the
	// engine's own navigation and cache links for the same site.
	sitePattern, err := regexp.Compile(fmt.Sprintf(`"(?P<url>%s/.[^:~]*?)"`, regexp.QuoteMeta(site)))
	if err != nil {
		return nil, fmt.Errorf("bad site pattern: %w", err)
	}

	var candidates []Candidate
	seen := make(map[string]bool)
	for _, caps := range sitePattern.FindAllStringSubmatch(page, -1) {
		if len(candidates) >= candidatesPerSite {
			break
		}
		pageURL := caps[sitePattern.SubexpIndex("url")]
		if seen[pageURL] {
			continue
		}
		seen[pageURL] = true

		title, err := g.pageTitle(ctx, pageURL)
		if err != nil {
			g.logger.Debug("skipping candidate page", "url", pageURL, "error", err)
			continue
		}
		if frag := fragmentPattern.FindString(pageURL); frag != "" {
			title = fmt.Sprintf("%s | %s", title, frag)
		}
		candidates = append(candidates, Candidate{Title: title, URL: pageURL})
	}
	return candidates, nil
}

func (g *GoogleScraper) pageTitle(ctx context.Context, pageURL string) (string, error) {
	page, err := g.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	title, ok := extractTitle(page)
	if !ok {
		return "", fmt.Errorf("no title tag in %s", pageURL)
	}
	return title, nil
}

func (g *GoogleScraper) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// extractTitle returns the text of the first <title> element in the document.
func extractTitle(page string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", false
	}
	var title string
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
				found = true
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, found
}
