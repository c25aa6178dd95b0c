// Package dedup filters repeated and near-repeated headlines so the
// monitoring loop reacts to each story once.
package dedup

import (
	"strings"
	"sync"
	"unicode"

	"github.com/mkovalev/newsedge/pkg/textsim"
)

// DefaultCapacity bounds the recency window when none is given.
const DefaultCapacity = 1000

// DefaultThreshold is the Jaccard score above which two normalized
// headlines are treated as the same story.
const DefaultThreshold = 0.8

// Deduplicator remembers recently seen headlines in insertion order.
// Safe for concurrent use.
type Deduplicator struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	order     []string
	capacity  int
	threshold float64
}

// New creates a Deduplicator holding at most capacity entries.
// Non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Deduplicator{
		seen:      make(map[string]struct{}, capacity),
		order:     make([]string, 0, capacity),
		capacity:  capacity,
		threshold: DefaultThreshold,
	}
}

// IsNew reports whether the headline has not been seen recently and,
// when new, registers it. A headline is a repeat if its normalized form
// matches a held entry exactly or is near-identical by Jaccard score.
// Once the window is full the oldest entry is dropped first, so an old
// story can be reported again after enough newer ones displace it.
func (d *Deduplicator) IsNew(headline string) bool {
	norm := normalize(headline)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[norm]; ok {
		return false
	}

	for _, held := range d.order {
		if textsim.Jaccard(norm, held) > d.threshold {
			return false
		}
	}

	d.seen[norm] = struct{}{}
	d.order = append(d.order, norm)

	if len(d.order) > d.capacity {
		oldest := d.order[0]
		copy(d.order, d.order[1:])
		d.order = d.order[:len(d.order)-1]
		delete(d.seen, oldest)
	}

	return true
}

// Len returns the number of headlines currently held.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// normalize lowercases, strips punctuation and collapses whitespace so
// trivially restyled headlines compare equal.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
