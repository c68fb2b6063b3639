package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

// DefaultSearchEndpoint is the image search page scraped by Searcher.
const DefaultSearchEndpoint = "https://www.google.es/search"

// SearchStatus distinguishes an empty result from a failed fetch.
type SearchStatus int

const (
	SearchFound SearchStatus = iota
	SearchEmpty
	SearchFailed
)

func (s SearchStatus) String() string {
	switch s {
	case SearchFound:
		return "found"
	case SearchEmpty:
		return "empty"
	case SearchFailed:
		return "failed"
	default:
		return fmt.Sprintf("SearchStatus(%d)", int(s))
	}
}

// SearchResult is the outcome of an image search. Err is set only when
// Status is SearchFailed.
type SearchResult struct {
	Status SearchStatus `json:"status"`
	Query  string       `json:"query"`
	URLs   []string     `json:"urls,omitempty"`
	Err    error        `json:"-"`
}

// SearchConfig configures a Searcher.
type SearchConfig struct {
	Endpoint      string
	RatePerSecond float64
	Timeout       time.Duration
}

// Searcher looks up candidate image URLs for a set of terms by scraping an
// image search results page.
type Searcher struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewSearcher creates a Searcher. Zero config values get defaults: the
// public endpoint, one request per second and a 15 second timeout.
func NewSearcher(cfg SearchConfig) *Searcher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultSearchEndpoint
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Searcher{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

// Search sanitizes terms and returns the https image URLs found on the
// results page.
func (s *Searcher) Search(ctx context.Context, terms ...string) SearchResult {
	var words []string
	for _, t := range terms {
		words = append(words, Sanitize(t)...)
	}
	query := strings.Join(words, " ")
	if query == "" {
		return SearchResult{Status: SearchEmpty}
	}

	failed := func(err error) SearchResult {
		slog.Warn("media: image search failed", "query", query, "error", err)
		return SearchResult{Status: SearchFailed, Query: query, Err: err}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return failed(fmt.Errorf("rate limiter: %w", err))
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("tbm", "isch")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return failed(fmt.Errorf("building request: %w", err))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return failed(fmt.Errorf("fetching results: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed(fmt.Errorf("search endpoint returned %s", resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return failed(fmt.Errorf("parsing results page: %w", err))
	}

	seen := make(map[string]bool)
	var urls []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || !strings.HasPrefix(src, "https") || seen[src] {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})

	if len(urls) == 0 {
		return SearchResult{Status: SearchEmpty, Query: query}
	}
	slog.Debug("media: image search", "query", query, "urls", len(urls))
	return SearchResult{Status: SearchFound, Query: query, URLs: urls}
}

// Sanitize folds accents to their base letters, turns the separators - _ , "
// into spaces and splits the result into words.
func Sanitize(input string) []string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, input)
	if err != nil {
		folded = input
	}
	folded = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ',', '"':
			return ' '
		}
		return r
	}, folded)
	return strings.Fields(folded)
}
