// Package channelstest provides an in-memory channels.Platform for tests.
package channelstest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels"
)

// BotID is the SelfID reported by the fake.
const BotID = "bot"

// Platform is a fake chat platform. Channels and threads are registered
// up front; posted messages are kept per channel, oldest first.
type Platform struct {
	mu sync.Mutex

	channels map[string]channels.ChannelInfo
	threads  map[string][]channels.ChannelInfo
	parents  []string
	listings int
	messages map[string][]channels.Message
	admins   map[string]bool
	nextID   int

	// Calls records every mutating call as "post:<channel>" or
	// "delete:<channel>/<message>".
	Calls []string

	// Failure injection, keyed by channel ID.
	PostErr   map[string]error
	DeleteErr map[string]error
	ListErr   map[string]error
	GetErr    map[string]error

	// ThreadsErr fails ListThreads, keyed by guild ID.
	ThreadsErr map[string]error
}

// New returns an empty fake.
func New() *Platform {
	return &Platform{
		channels:  make(map[string]channels.ChannelInfo),
		threads:   make(map[string][]channels.ChannelInfo),
		messages:  make(map[string][]channels.Message),
		admins:    make(map[string]bool),
		PostErr:   make(map[string]error),
		DeleteErr: make(map[string]error),
		ListErr:   make(map[string]error),
		GetErr:    make(map[string]error),

		ThreadsErr: make(map[string]error),
	}
}

// AddChannel registers a channel.
func (p *Platform) AddChannel(guildID, id, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[id] = channels.ChannelInfo{ID: id, GuildID: guildID, Name: name}
}

// RemoveChannel makes a channel unresolvable.
func (p *Platform) RemoveChannel(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.channels, id)
}

// SetThreads replaces the active threads under parentID.
func (p *Platform) SetThreads(parentID string, names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	parent := p.channels[parentID]
	threads := make([]channels.ChannelInfo, 0, len(names))
	for i, name := range names {
		threads = append(threads, channels.ChannelInfo{
			ID:       fmt.Sprintf("%s-t%d", parentID, i),
			GuildID:  parent.GuildID,
			ParentID: parentID,
			Name:     name,
		})
	}
	if _, ok := p.threads[parentID]; !ok {
		p.parents = append(p.parents, parentID)
	}
	p.threads[parentID] = threads
}

// SetAdmin marks userID as an administrator everywhere.
func (p *Platform) SetAdmin(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admins[userID] = true
}

// Seed appends a message authored by authorID without recording a call.
func (p *Platform) Seed(channelID, authorID, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appendLocked(channelID, authorID, content)
}

// Messages returns the channel's messages, oldest first.
func (p *Platform) Messages(channelID string) []channels.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.messages[channelID])
}

// CallLog returns a copy of Calls.
func (p *Platform) CallLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.Calls)
}

// SelfID implements channels.Platform.
func (p *Platform) SelfID() string { return BotID }

// GetChannel implements channels.Platform.
func (p *Platform) GetChannel(_ context.Context, channelID string) (*channels.ChannelInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.GetErr[channelID]; err != nil {
		return nil, err
	}
	ch, ok := p.channels[channelID]
	if !ok {
		return nil, channels.ErrChannelNotFound
	}
	return &ch, nil
}

// ThreadListings returns how many times ListThreads was called.
func (p *Platform) ThreadListings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listings
}

// ListThreads implements channels.Platform. Threads come grouped by
// parent, parents in the order SetThreads first saw them.
func (p *Platform) ListThreads(_ context.Context, guildID string) ([]channels.ChannelInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listings++
	if err := p.ThreadsErr[guildID]; err != nil {
		return nil, err
	}
	var out []channels.ChannelInfo
	for _, parent := range p.parents {
		for _, th := range p.threads[parent] {
			if th.GuildID == guildID {
				out = append(out, th)
			}
		}
	}
	return out, nil
}

// PostMessage implements channels.Platform.
func (p *Platform) PostMessage(_ context.Context, channelID, content string) (*channels.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.PostErr[channelID]; err != nil {
		return nil, err
	}
	p.Calls = append(p.Calls, "post:"+channelID)
	msg := p.appendLocked(channelID, BotID, content)
	return &msg, nil
}

// DeleteMessage implements channels.Platform.
func (p *Platform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.DeleteErr[channelID]; err != nil {
		return err
	}
	p.Calls = append(p.Calls, "delete:"+channelID+"/"+messageID)
	msgs := p.messages[channelID]
	for i, m := range msgs {
		if m.ID == messageID {
			p.messages[channelID] = slices.Delete(msgs, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("unknown message %s", messageID)
}

// ListRecentMessages implements channels.Platform. Newest first.
func (p *Platform) ListRecentMessages(_ context.Context, channelID string, limit int) ([]channels.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ListErr[channelID]; err != nil {
		return nil, err
	}
	msgs := p.messages[channelID]
	out := make([]channels.Message, 0, limit)
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

// IsAdmin implements channels.Platform.
func (p *Platform) IsAdmin(_ context.Context, _, _, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admins[userID], nil
}

func (p *Platform) appendLocked(channelID, authorID, content string) channels.Message {
	p.nextID++
	msg := channels.Message{
		ID:        fmt.Sprintf("m%d", p.nextID),
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
		Timestamp: time.Unix(int64(p.nextID), 0),
	}
	p.messages[channelID] = append(p.messages[channelID], msg)
	return msg
}

var _ channels.Platform = (*Platform)(nil)
