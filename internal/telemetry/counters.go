// Package telemetry counts LLM calls per session and context tag. Caller is
// the only path from the conversation code to the LLM client.
package telemetry

import (
	"sort"
	"sync"
)

// Tag identifies why an LLM call was made
type Tag string

const (
	TagDiagnosis         Tag = "diagnosis"
	TagFocusedCollection Tag = "focused_collection"
	TagRewrite           Tag = "rewrite"
	TagLinkedIn          Tag = "linkedin"
	TagValidation        Tag = "validation"
	TagOther             Tag = "other"
)

var knownTags = map[Tag]bool{
	TagDiagnosis:         true,
	TagFocusedCollection: true,
	TagRewrite:           true,
	TagLinkedIn:          true,
	TagValidation:        true,
	TagOther:             true,
}

// Tags returns the closed set of context tags
func Tags() []Tag {
	return []Tag{TagDiagnosis, TagFocusedCollection, TagRewrite, TagLinkedIn, TagValidation, TagOther}
}

// NormalizeTag maps unknown tags to TagOther
func NormalizeTag(tag Tag) Tag {
	if knownTags[tag] {
		return tag
	}
	return TagOther
}

// Counters is the per-session call counter. Total always equals the sum of
// the per-context buckets.
type Counters struct {
	mu        sync.Mutex
	total     int
	byContext map[Tag]int
}

// NewCounters creates zeroed counters
func NewCounters() *Counters {
	return &Counters{byContext: make(map[Tag]int)}
}

// Increment adds one call to total and to the tag's bucket
func (c *Counters) Increment(tag Tag) {
	tag = NormalizeTag(tag)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byContext == nil {
		c.byContext = make(map[Tag]int)
	}
	c.total++
	c.byContext[tag]++
}

// Total returns the number of calls made
func (c *Counters) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Count returns the bucket for tag
func (c *Counters) Count(tag Tag) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byContext[NormalizeTag(tag)]
}

// Reset zeroes every counter
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = 0
	c.byContext = make(map[Tag]int)
}

// Snapshot is a point-in-time view of the counters
type Snapshot struct {
	Total     int            `json:"total"`
	ByContext map[string]int `json:"byContext"`
}

// Snapshot copies the counters. Every known tag is present, zero or not.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Total: c.total, ByContext: make(map[string]int, len(knownTags))}
	for _, tag := range Tags() {
		snap.ByContext[string(tag)] = c.byContext[tag]
	}
	return snap
}

// SortedContexts returns the non-zero buckets ordered by count, then name
func (s Snapshot) SortedContexts() []string {
	names := make([]string, 0, len(s.ByContext))
	for name, n := range s.ByContext {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if s.ByContext[names[i]] != s.ByContext[names[j]] {
			return s.ByContext[names[i]] > s.ByContext[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
