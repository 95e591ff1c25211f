// Package tracker owns the persisted record of which channels are tracked
// for thread activity and where each server's digest is posted.
//
// IDs are kept as opaque strings end to end; they are only parsed by the
// platform adapter.
package tracker

import "slices"

// Configuration is the single persisted record shared by every server.
type Configuration struct {
	// TrackedChannels maps server ID to the tracked channel IDs in the
	// order they were added.
	TrackedChannels map[string][]string `json:"tracked_channels"`

	// ThreadSummaryChannels maps server ID to the digest destination.
	ThreadSummaryChannels map[string]string `json:"thread_summary_channels"`
}

// NewConfiguration returns the empty default record.
func NewConfiguration() *Configuration {
	return &Configuration{
		TrackedChannels:       make(map[string][]string),
		ThreadSummaryChannels: make(map[string]string),
	}
}

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	out := NewConfiguration()
	for guild, ids := range c.TrackedChannels {
		out.TrackedChannels[guild] = slices.Clone(ids)
	}
	for guild, id := range c.ThreadSummaryChannels {
		out.ThreadSummaryChannels[guild] = id
	}
	return out
}

// normalize fills absent mappings and drops duplicate or empty channel
// IDs, keeping the first occurrence.
func (c *Configuration) normalize() {
	if c.TrackedChannels == nil {
		c.TrackedChannels = make(map[string][]string)
	}
	if c.ThreadSummaryChannels == nil {
		c.ThreadSummaryChannels = make(map[string]string)
	}
	for guild, ids := range c.TrackedChannels {
		seen := make(map[string]bool, len(ids))
		kept := ids[:0]
		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			kept = append(kept, id)
		}
		c.TrackedChannels[guild] = kept
	}
	for guild, id := range c.ThreadSummaryChannels {
		if id == "" {
			delete(c.ThreadSummaryChannels, guild)
		}
	}
}
