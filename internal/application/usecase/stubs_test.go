package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/Shadow3301/rssbot/internal/domain/feed"
	"github.com/Shadow3301/rssbot/internal/domain/subscription"
)

// fakeRepo is an in-memory Repository. Records are copied on every read so
// callers mutate borrowed state, as they would with decoded store records.
type fakeRepo struct {
	mu      sync.Mutex
	recs    map[string]*subscription.Subscription
	getErr  error
	putErr  error
	listErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{recs: make(map[string]*subscription.Subscription)}
}

func cloneSub(s *subscription.Subscription) *subscription.Subscription {
	c := *s
	c.Groups = append([]int64(nil), s.Groups...)
	c.Fingerprints = append([]uint64(nil), s.Fingerprints...)
	return &c
}

func (r *fakeRepo) Get(_ context.Context, url string) (*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.recs[url]
	if !ok {
		return nil, nil
	}
	return cloneSub(s), nil
}

func (r *fakeRepo) Put(_ context.Context, url string, sub *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.recs[url] = cloneSub(sub)
	return nil
}

func (r *fakeRepo) Remove(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.recs, url)
	return nil
}

func (r *fakeRepo) List(_ context.Context) ([]StoreEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	urls := make([]string, 0, len(r.recs))
	for url := range r.recs {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	entries := make([]StoreEntry, 0, len(urls))
	for _, url := range urls {
		entries = append(entries, StoreEntry{URL: url, Subscription: cloneSub(r.recs[url])})
	}
	return entries, nil
}

// fakeFetcher serves canned feeds per URL.
type fakeFetcher struct {
	feeds map[string]*feed.Feed
	errs  map[string]error
	calls int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{feeds: make(map[string]*feed.Feed), errs: make(map[string]error)}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*feed.Feed, error) {
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if doc, ok := f.feeds[url]; ok {
		return doc, nil
	}
	return nil, &FetchError{URL: url, Err: context.DeadlineExceeded}
}

type delivery struct {
	dest int64
	text string
}

// recordingTransport captures deliveries; failFor makes delivery to one
// destination fail without affecting the rest.
type recordingTransport struct {
	mu        sync.Mutex
	delivered []delivery
	failFor   map[int64]error
}

func (t *recordingTransport) Deliver(_ context.Context, dest int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.failFor[dest]; ok {
		return err
	}
	t.delivered = append(t.delivered, delivery{dest: dest, text: text})
	return nil
}
