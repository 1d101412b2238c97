// Package feed defines the normalized feed model shared by the fetcher,
// the change detector and the notification fanout.
package feed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Feed is the wire-format-independent view of a fetched source. It lives
// only for the poll cycle (or add command) that fetched it.
type Feed struct {
	Title string
	Link  string
	// TTL is the source's advertised refresh hint in minutes, 0 when absent.
	TTL   int
	Items []Item
}

// Item is a single entry of a Feed. Any field may be empty.
type Item struct {
	Title       string
	Link        string
	Description string
	Content     string
}

// Fingerprint derives the item's identity hash from the first non-empty of
// description, content and link, trimmed of surrounding whitespace. The
// second return value is false for items with none of the three; such items
// carry no identity and are excluded from change detection.
func (it Item) Fingerprint() (uint64, bool) {
	for _, s := range []string{it.Description, it.Content, it.Link} {
		if s = strings.TrimSpace(s); s != "" {
			return xxhash.Sum64String(s), true
		}
	}
	return 0, false
}

// Fingerprints hashes every fingerprintable item of f, in feed order.
// Used when a subscription is created and the whole document becomes the
// baseline.
func (f *Feed) Fingerprints() []uint64 {
	out := make([]uint64, 0, len(f.Items))
	for _, it := range f.Items {
		if fp, ok := it.Fingerprint(); ok {
			out = append(out, fp)
		}
	}
	return out
}

// Validate applies the structural checks an interactive add enforces: the
// document must carry a title and every item must be identifiable by at
// least a link or a title. It is deliberately far short of a full RSS/Atom
// conformance check.
func (f *Feed) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return errors.New("feed has no title")
	}
	for i, it := range f.Items {
		if strings.TrimSpace(it.Link) == "" && strings.TrimSpace(it.Title) == "" {
			return fmt.Errorf("feed item %d has neither link nor title", i)
		}
	}
	return nil
}
