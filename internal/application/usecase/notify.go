package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shadow3301/rssbot/internal/domain/feed"
)

// Transport delivers one rendered notification to one destination. Delivery
// is best-effort; the core consults the returned error for logging only.
type Transport interface {
	Deliver(ctx context.Context, dest int64, text string) error
}

// Fanout emits one message per new item per destination: outer loop over
// items in detection order, inner loop over destinations. A delivery failure
// is logged and does not block the remaining items or destinations.
func Fanout(ctx context.Context, t Transport, log *slog.Logger, feedTitle string, items []feed.Item, dests []int64) {
	for _, it := range items {
		text := FormatNotification(feedTitle, it)
		for _, dest := range dests {
			if err := t.Deliver(ctx, dest, text); err != nil {
				log.Warn("notification delivery failed",
					slog.Int64("dest", dest),
					slog.Any("error", err),
				)
			}
		}
	}
}

// FormatNotification renders the message body for one new item: the feed
// title, then the item title with newlines stripped, then the trimmed link.
func FormatNotification(feedTitle string, it feed.Item) string {
	title := strings.ReplaceAll(it.Title, "\n", "")
	return fmt.Sprintf("%s\n%s: %s", feedTitle, title, strings.TrimSpace(it.Link))
}
