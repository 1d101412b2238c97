package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shadow3301/rssbot/internal/domain/feed"
	"github.com/Shadow3301/rssbot/internal/domain/subscription"
)

const feedURL = "https://example.com/rss"

func newTestService(repo *fakeRepo, fetcher *fakeFetcher) *SubscriptionService {
	svc := NewSubscriptionService(repo, fetcher)
	svc.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc
}

func threeItemFeed() *feed.Feed {
	return &feed.Feed{
		Title: "Example",
		Link:  "https://example.com",
		TTL:   30,
		Items: []feed.Item{
			{Title: "A", Description: "a", Link: "https://example.com/a"},
			{Title: "B", Description: "b", Link: "https://example.com/b"},
			{Title: "C", Description: "c", Link: "https://example.com/c"},
		},
	}
}

func TestAddFirstSubscription(t *testing.T) {
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	fetcher.feeds[feedURL] = threeItemFeed()
	svc := newTestService(repo, fetcher)

	sub, err := svc.Add(context.Background(), feedURL, 100, false)
	require.NoError(t, err)

	assert.Equal(t, "Example", sub.Title)
	assert.Equal(t, []int64{100}, sub.Groups)
	assert.Equal(t, int64(1800), sub.Interval, "interval derives from the ttl hint")
	assert.Equal(t, int64(1700000000), sub.LastUpdate)
	assert.Equal(t, threeItemFeed().Fingerprints(), sub.Fingerprints,
		"the whole document becomes the baseline")

	stored, err := repo.Get(context.Background(), feedURL)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, sub, stored)
}

func TestAddSecondDestinationKeepsBaseline(t *testing.T) {
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	fetcher.feeds[feedURL] = threeItemFeed()
	svc := newTestService(repo, fetcher)

	first, err := svc.Add(context.Background(), feedURL, 100, false)
	require.NoError(t, err)

	second, err := svc.Add(context.Background(), feedURL, 200, false)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, second.Groups)
	assert.Equal(t, first.LastUpdate, second.LastUpdate, "existing baseline untouched")
	assert.Equal(t, first.Fingerprints, second.Fingerprints)
}

func TestAddDuplicateDestinationFails(t *testing.T) {
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	fetcher.feeds[feedURL] = threeItemFeed()
	svc := newTestService(repo, fetcher)

	_, err := svc.Add(context.Background(), feedURL, 100, false)
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), feedURL, 100, false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAddRejectsBadURL(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeFetcher())
	for _, raw := range []string{"", "not a url", "ftp://example.com/feed", "example.com/rss"} {
		_, err := svc.Add(context.Background(), raw, 100, false)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "url %q", raw)
	}
}

func TestAddSurfacesFetchError(t *testing.T) {
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	fetcher.errs[feedURL] = &FetchError{URL: feedURL, Err: context.DeadlineExceeded}
	svc := newTestService(repo, fetcher)

	_, err := svc.Add(context.Background(), feedURL, 100, false)
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)

	stored, _ := repo.Get(context.Background(), feedURL)
	assert.Nil(t, stored, "a failed add leaves no record behind")
}

func TestAddValidation(t *testing.T) {
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	doc := threeItemFeed()
	doc.Title = ""
	fetcher.feeds[feedURL] = doc
	svc := newTestService(repo, fetcher)

	_, err := svc.Add(context.Background(), feedURL, 100, false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "structural validation rejects a titleless feed")

	// skip_validation bypasses the structural checks.
	_, err = svc.Add(context.Background(), feedURL, 100, true)
	require.NoError(t, err)
}

func TestAddItemWithoutLinkFailsEvenUnvalidated(t *testing.T) {
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	doc := threeItemFeed()
	doc.Items[1].Link = " "
	fetcher.feeds[feedURL] = doc
	svc := newTestService(repo, fetcher)

	_, err := svc.Add(context.Background(), feedURL, 100, true)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "the link requirement is independent of skip_validation")
}

func TestRemoveLastSubscriberDeletesRecord(t *testing.T) {
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	fetcher.feeds[feedURL] = threeItemFeed()
	svc := newTestService(repo, fetcher)

	_, err := svc.Add(context.Background(), feedURL, 100, false)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), feedURL, 100))

	stored, err := repo.Get(context.Background(), feedURL)
	require.NoError(t, err)
	assert.Nil(t, stored)

	infos, err := svc.List(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestRemoveKeepsRecordForOtherSubscribers(t *testing.T) {
	repo := newFakeRepo()
	fetcher := newFakeFetcher()
	fetcher.feeds[feedURL] = threeItemFeed()
	svc := newTestService(repo, fetcher)

	_, err := svc.Add(context.Background(), feedURL, 100, false)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), feedURL, 200, false)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), feedURL, 100))

	stored, err := repo.Get(context.Background(), feedURL)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []int64{200}, stored.Groups)
}

func TestRemoveNotSubscribed(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeFetcher())
	err := svc.Remove(context.Background(), feedURL, 100)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestListFiltersByDestination(t *testing.T) {
	repo := newFakeRepo()
	repo.recs["https://example.com/one"] = &subscription.Subscription{
		Title: "One", Groups: []int64{100}, LastUpdate: 1699999000, Interval: 600,
	}
	repo.recs["https://example.com/two"] = &subscription.Subscription{
		Title: "Two", Groups: []int64{200}, LastUpdate: 1699999000, Interval: 600,
	}
	svc := newTestService(repo, newFakeFetcher())

	infos, err := svc.List(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "One", infos[0].Title)
	assert.Equal(t, "https://example.com/one", infos[0].URL)
	// last_update 1699999000 + 600 - now 1700000000
	assert.Equal(t, int64(-400), infos[0].NextIn, "overdue polls report negative time")
}

func TestSetInterval(t *testing.T) {
	repo := newFakeRepo()
	repo.recs[feedURL] = &subscription.Subscription{
		Title: "Example", Groups: []int64{100}, Interval: 600,
	}
	svc := newTestService(repo, newFakeFetcher())

	require.NoError(t, svc.SetInterval(context.Background(), feedURL, 100, 120))
	stored, _ := repo.Get(context.Background(), feedURL)
	assert.Equal(t, int64(120), stored.Interval)
}

func TestSetIntervalNotSubscribedLeavesIntervalUnchanged(t *testing.T) {
	repo := newFakeRepo()
	repo.recs[feedURL] = &subscription.Subscription{
		Title: "Example", Groups: []int64{100}, Interval: 600,
	}
	svc := newTestService(repo, newFakeFetcher())

	err := svc.SetInterval(context.Background(), feedURL, 999, 120)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	stored, _ := repo.Get(context.Background(), feedURL)
	assert.Equal(t, int64(600), stored.Interval)
}

func TestSetIntervalBounds(t *testing.T) {
	repo := newFakeRepo()
	repo.recs[feedURL] = &subscription.Subscription{
		Title: "Example", Groups: []int64{100}, Interval: 600,
	}
	svc := newTestService(repo, newFakeFetcher())

	for _, secs := range []int64{0, -5, subscription.MaxInterval + 1} {
		err := svc.SetInterval(context.Background(), feedURL, 100, secs)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "secs=%d", secs)
	}
	stored, _ := repo.Get(context.Background(), feedURL)
	assert.Equal(t, int64(600), stored.Interval)
}
