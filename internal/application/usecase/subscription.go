// Package usecase contains application-level services: the subscription
// command service, the change detector and the poll/notify loop.
package usecase

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Shadow3301/rssbot/internal/domain/feed"
	"github.com/Shadow3301/rssbot/internal/domain/subscription"
)

// StoreEntry pairs a feed URL with its stored record in a listing snapshot.
type StoreEntry struct {
	URL          string
	Subscription *subscription.Subscription
}

// Repository abstracts the durable subscription store. Get returns
// (nil, nil) for an unknown URL. List returns a fresh snapshot on every
// call; entries whose records failed to decode are skipped by the
// implementation, not surfaced here.
type Repository interface {
	Get(ctx context.Context, url string) (*subscription.Subscription, error)
	Put(ctx context.Context, url string, sub *subscription.Subscription) error
	Remove(ctx context.Context, url string) error
	List(ctx context.Context) ([]StoreEntry, error)
}

// Fetcher retrieves and normalizes one feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*feed.Feed, error)
}

// Info is one row of a destination's subscription listing.
type Info struct {
	URL        string
	Title      string
	LastUpdate int64
	Interval   int64
	// NextIn is the number of seconds until the next required poll,
	// negative when one is overdue.
	NextIn int64
}

// SubscriptionService implements the command-facing operations on the
// subscription store.
type SubscriptionService struct {
	Repo    Repository
	Fetcher Fetcher

	// Now is replaceable for tests.
	Now func() time.Time
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(repo Repository, fetcher Fetcher) *SubscriptionService {
	return &SubscriptionService{Repo: repo, Fetcher: fetcher, Now: time.Now}
}

// Add subscribes dest to rawURL. For a brand-new URL it fetches the feed
// synchronously to derive the title, the item baseline and the poll
// interval; the first subscription never notifies. The fetch and its
// structural checks also run when the URL is already tracked, so a broken
// document cannot gain subscribers. skipValidate bypasses the structural
// checks but not the per-item link requirement.
func (s *SubscriptionService) Add(ctx context.Context, rawURL string, dest int64, skipValidate bool) (*subscription.Subscription, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, Validationf("please enter a valid http(s) url")
	}
	canonical := u.String()

	sub, err := s.Repo.Get(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if sub != nil && sub.HasGroup(dest) {
		return nil, Validationf("this feed is already subscribed")
	}

	doc, err := s.Fetcher.Fetch(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if !skipValidate {
		if verr := doc.Validate(); verr != nil {
			return nil, Validationf("feed failed validation: %v", verr)
		}
	}
	for _, it := range doc.Items {
		if strings.TrimSpace(it.Link) == "" {
			return nil, Validationf("feed is invalid: an item is missing its link")
		}
	}

	if sub == nil {
		sub = &subscription.Subscription{
			Title:        doc.Title,
			LastUpdate:   s.Now().Unix(),
			Fingerprints: doc.Fingerprints(),
			Interval:     subscription.IntervalFromTTL(doc.TTL),
		}
	}
	// The earlier membership check is advisory only; a concurrent add may
	// have subscribed this destination in the meantime.
	if !sub.AddGroup(dest) {
		return nil, Validationf("this feed is already subscribed")
	}
	if err := s.Repo.Put(ctx, canonical, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Remove unsubscribes dest from url. The record is deleted entirely once its
// last subscriber is gone.
func (s *SubscriptionService) Remove(ctx context.Context, url string, dest int64) error {
	sub, err := s.Repo.Get(ctx, url)
	if err != nil {
		return err
	}
	if sub == nil || !sub.HasGroup(dest) {
		return Validationf("this feed is not subscribed")
	}
	sub.RemoveGroup(dest)
	if len(sub.Groups) == 0 {
		return s.Repo.Remove(ctx, url)
	}
	return s.Repo.Put(ctx, url, sub)
}

// List returns the subscriptions of one destination.
func (s *SubscriptionService) List(ctx context.Context, dest int64) ([]Info, error) {
	entries, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now().Unix()
	var out []Info
	for _, e := range entries {
		if !e.Subscription.HasGroup(dest) {
			continue
		}
		out = append(out, Info{
			URL:        e.URL,
			Title:      e.Subscription.Title,
			LastUpdate: e.Subscription.LastUpdate,
			Interval:   e.Subscription.Interval,
			NextIn:     e.Subscription.NextDue() - now,
		})
	}
	return out, nil
}

// SetInterval overrides the poll interval of a subscribed feed. Privilege
// checks belong to the caller; the core only validates the bounds.
func (s *SubscriptionService) SetInterval(ctx context.Context, url string, dest int64, secs int64) error {
	if !subscription.ValidInterval(secs) {
		return Validationf("interval must be between 1 and %d seconds", subscription.MaxInterval)
	}
	sub, err := s.Repo.Get(ctx, url)
	if err != nil {
		return err
	}
	if sub == nil || !sub.HasGroup(dest) {
		return Validationf("this feed is not subscribed")
	}
	sub.Interval = secs
	return s.Repo.Put(ctx, url, sub)
}
