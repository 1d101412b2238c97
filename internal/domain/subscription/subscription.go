// Package subscription defines the persisted feed subscription record and
// its binary encoding.
package subscription

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"
)

const (
	// DefaultTTLMinutes applies when a feed advertises no refresh hint.
	DefaultTTLMinutes = 10
	// MaxTTLMinutes caps the refresh hint a feed may impose.
	MaxTTLMinutes = 90
	// MaxInterval is the upper bound for any poll interval, in seconds.
	MaxInterval = int64(MaxTTLMinutes * 60)
)

// Subscription is the durable state kept per feed URL. The URL itself is the
// store key and is not repeated inside the record.
type Subscription struct {
	// Title is the last known feed title, empty until the first fetch.
	Title string
	// Groups lists the destinations subscribed to this feed, each at most once.
	Groups []int64
	// LastUpdate is the unix timestamp of the last poll that advanced state.
	LastUpdate int64
	// Fingerprints identifies the items observed as of LastUpdate. It is
	// replaced wholesale on every successful poll, never merged.
	Fingerprints []uint64
	// Interval is the required gap between polls, in seconds.
	Interval int64
}

// HasGroup reports whether dest is subscribed.
func (s *Subscription) HasGroup(dest int64) bool {
	for _, g := range s.Groups {
		if g == dest {
			return true
		}
	}
	return false
}

// AddGroup subscribes dest. It reports false when dest was already present,
// leaving the record unchanged.
func (s *Subscription) AddGroup(dest int64) bool {
	if s.HasGroup(dest) {
		return false
	}
	s.Groups = append(s.Groups, dest)
	return true
}

// RemoveGroup unsubscribes dest. It reports false when dest was not present.
func (s *Subscription) RemoveGroup(dest int64) bool {
	for i, g := range s.Groups {
		if g == dest {
			s.Groups = append(s.Groups[:i], s.Groups[i+1:]...)
			return true
		}
	}
	return false
}

// FingerprintSet returns the remembered fingerprints as a lookup set.
func (s *Subscription) FingerprintSet() map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(s.Fingerprints))
	for _, fp := range s.Fingerprints {
		set[fp] = struct{}{}
	}
	return set
}

// NextDue returns the unix timestamp at which this subscription becomes due.
func (s *Subscription) NextDue() int64 {
	return s.LastUpdate + s.Interval
}

// Due reports whether a poll is required at the given time.
func (s *Subscription) Due(now time.Time) bool {
	return now.Unix()-s.LastUpdate >= s.Interval
}

// IntervalFromTTL derives a poll interval in seconds from a feed's refresh
// hint in minutes. A missing or unusable hint falls back to
// DefaultTTLMinutes; anything above MaxTTLMinutes is clamped down.
func IntervalFromTTL(ttlMinutes int) int64 {
	if ttlMinutes <= 0 {
		ttlMinutes = DefaultTTLMinutes
	}
	if ttlMinutes > MaxTTLMinutes {
		ttlMinutes = MaxTTLMinutes
	}
	return int64(ttlMinutes) * 60
}

// ValidInterval reports whether secs is an acceptable poll interval.
func ValidInterval(secs int64) bool {
	return secs > 0 && secs <= MaxInterval
}

// Encode serializes the record into the opaque binary form kept in the
// store. The encoding is positional from the caller's point of view: schema
// changes require a migration pass over the whole store, not in-place reads
// of old records.
func (s *Subscription) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("encode subscription: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a record previously produced by Encode.
func Decode(b []byte) (*Subscription, error) {
	var s Subscription
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &s, nil
}
