// Package feed fetches raw feed documents over HTTP and normalizes the two
// supported wire formats (RSS 2.0 and Atom) into the domain feed model.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"github.com/Shadow3301/rssbot/internal/application/usecase"
	domain "github.com/Shadow3301/rssbot/internal/domain/feed"
)

const (
	userAgent    = "rssbot/1.0"
	fetchTimeout = 10 * time.Second
)

// ParseFunc is exposed for testing. It turns a raw document into the
// normalized feed shape.
var ParseFunc = parseDocument

// Fetcher retrieves feeds over HTTP with a fixed timeout and no proxying.
// It implements usecase.Fetcher.
type Fetcher struct {
	client *http.Client
}

// NewFetcher constructs a Fetcher.
func NewFetcher() *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   fetchTimeout,
		},
	}
}

// Fetch retrieves and parses the feed at url. Every failure is terminal for
// this call; retry policy belongs to the caller.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &usecase.FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &usecase.FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &usecase.FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &usecase.FetchError{URL: url, Err: err}
	}

	doc, err := ParseFunc(body)
	if err != nil {
		return nil, &usecase.FetchError{URL: url, Err: err}
	}
	return doc, nil
}

// parseDocument tries the document as RSS 2.0 first. When that parse fails
// and the root element is recognizably Atom, the same bytes are
// reinterpreted as an Atom feed; any other failure is terminal.
func parseDocument(body []byte) (*domain.Feed, error) {
	rssParser := &rss.Parser{}
	rssFeed, rssErr := rssParser.Parse(bytes.NewReader(body))
	if rssErr == nil {
		return fromRSS(rssFeed), nil
	}
	if gofeed.DetectFeedType(bytes.NewReader(body)) == gofeed.FeedTypeAtom {
		atomParser := &atom.Parser{}
		atomFeed, err := atomParser.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return fromAtom(atomFeed), nil
	}
	return nil, rssErr
}

func fromRSS(src *rss.Feed) *domain.Feed {
	out := &domain.Feed{
		Title: src.Title,
		Link:  src.Link,
		TTL:   parseTTL(src.TTL),
		Items: make([]domain.Item, 0, len(src.Items)),
	}
	for _, it := range src.Items {
		out.Items = append(out.Items, domain.Item{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			Content:     it.Content,
		})
	}
	return out
}

// fromAtom maps an Atom document into the normalized shape: entry content
// becomes item content, the description stays empty.
func fromAtom(src *atom.Feed) *domain.Feed {
	out := &domain.Feed{
		Title: src.Title,
		Items: make([]domain.Item, 0, len(src.Entries)),
	}
	if len(src.Links) > 0 {
		out.Link = src.Links[0].Href
	}
	for _, e := range src.Entries {
		item := domain.Item{Title: e.Title}
		if len(e.Links) > 0 {
			item.Link = e.Links[0].Href
		}
		if e.Content != nil {
			item.Content = e.Content.Value
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func parseTTL(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
