package usecase

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTick is the period of the background poll sweep.
const DefaultTick = 60 * time.Second

// SweepStats summarizes one full pass over the stored subscriptions.
type SweepStats struct {
	Checked  int
	Skipped  int
	Updated  int
	Failed   int
	Notified int
}

// Updater drives the recurring poll sweep: for every stored subscription
// that is due it fetches the feed, detects new items, fans out
// notifications and persists the advanced record.
type Updater struct {
	Repo      Repository
	Fetcher   Fetcher
	Transport Transport
	Log       *slog.Logger

	// Tick is the sweep period, DefaultTick when zero.
	Tick time.Duration
	// Limit bounds items inspected per feed per sweep, NotifyCap when zero.
	Limit int
	// Now is replaceable for tests.
	Now func() time.Time
}

// NewUpdater constructs an Updater with the default tick and cap.
func NewUpdater(repo Repository, fetcher Fetcher, transport Transport, log *slog.Logger) *Updater {
	return &Updater{
		Repo:      repo,
		Fetcher:   fetcher,
		Transport: transport,
		Log:       log,
		Tick:      DefaultTick,
		Limit:     NotifyCap,
		Now:       time.Now,
	}
}

// Run sweeps all subscriptions on every tick until ctx is cancelled.
func (u *Updater) Run(ctx context.Context) {
	tick := u.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	u.Log.Info("poller started", slog.Duration("tick", tick))
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			u.SweepAll(ctx, false)
		case <-ctx.Done():
			u.Log.Info("poller stopping")
			return
		}
	}
}

// SweepAll performs one pass over every stored subscription, in sequence so
// that one sweep never holds more than a single outbound fetch. force
// bypasses the per-subscription due check. A failing subscription is logged
// and skipped; it never aborts the rest of the sweep.
func (u *Updater) SweepAll(ctx context.Context, force bool) SweepStats {
	var stats SweepStats

	entries, err := u.Repo.List(ctx)
	if err != nil {
		u.Log.Error("sweep aborted: listing subscriptions failed", slog.Any("error", err))
		stats.Failed++
		return stats
	}

	for _, e := range entries {
		stats.Checked++
		sub := e.Subscription
		if !force && !sub.Due(u.Now()) {
			stats.Skipped++
			continue
		}

		doc, err := u.Fetcher.Fetch(ctx, e.URL)
		if err != nil {
			// Record untouched: the next cycle retries against the
			// same baseline.
			u.Log.Warn("feed fetch failed",
				slog.String("url", e.URL),
				slog.Any("error", err),
			)
			stats.Failed++
			continue
		}

		limit := u.Limit
		if limit <= 0 {
			limit = NotifyCap
		}
		newItems, current := DetectNew(doc, sub.FingerprintSet(), limit)
		if len(newItems) > 0 {
			Fanout(ctx, u.Transport, u.Log, doc.Title, newItems, sub.Groups)
			stats.Notified += len(newItems)
		}

		sub.Fingerprints = current
		sub.LastUpdate = u.Now().Unix()
		if err := u.Repo.Put(ctx, e.URL, sub); err != nil {
			u.Log.Error("persisting subscription failed",
				slog.String("url", e.URL),
				slog.Any("error", err),
			)
			stats.Failed++
			continue
		}
		stats.Updated++
		u.Log.Debug("subscription updated",
			slog.String("url", e.URL),
			slog.String("title", doc.Title),
			slog.Int("new_items", len(newItems)),
		)
	}

	u.Log.Info("sweep completed",
		slog.Bool("force", force),
		slog.Int("checked", stats.Checked),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats
}
