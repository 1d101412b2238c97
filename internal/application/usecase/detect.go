package usecase

import (
	"github.com/Shadow3301/rssbot/internal/domain/feed"
)

// NotifyCap is the default bound on items inspected per poll cycle.
const NotifyCap = 5

// DetectNew walks f's items in feed order and splits them against the
// fingerprints remembered from the previous poll. At most limit
// fingerprintable items are inspected; the returned fingerprint slice covers
// exactly the inspected items, so entries parked beyond the bound are
// neither notified nor remembered this cycle. That throttles bulk-publishing
// feeds at the cost of possibly re-flagging an overflow item on a later
// sweep once it moves into the window.
//
// Items with no derivable fingerprint are skipped entirely: not counted
// against limit, not classified, not fingerprinted.
func DetectNew(f *feed.Feed, prev map[uint64]struct{}, limit int) (newItems []feed.Item, current []uint64) {
	inspected := 0
	for _, it := range f.Items {
		if inspected >= limit {
			break
		}
		fp, ok := it.Fingerprint()
		if !ok {
			continue
		}
		inspected++
		current = append(current, fp)
		if _, seen := prev[fp]; !seen {
			newItems = append(newItems, it)
		}
	}
	return newItems, current
}
