package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels/channelstest"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/summary"
	"github.com/LinearParadox/thread-bot/pkg/threadbot/tracker"
)

const (
	guildID  = "100000000000000001"
	forumID  = "200000000000000002"
	digestID = "300000000000000003"
	adminID  = "400000000000000004"
	userID   = "500000000000000005"
)

type failingBackend struct {
	tracker.MemoryBackend
}

func (b *failingBackend) Save(*tracker.Configuration) error {
	return errors.New("read-only filesystem")
}

type fixture struct {
	bot      *Bot
	store    *tracker.Store
	platform *channelstest.Platform
}

func newFixture(t *testing.T, backend tracker.Backend) *fixture {
	t.Helper()
	if backend == nil {
		backend = tracker.NewMemoryBackend(nil)
	}
	p := channelstest.New()
	p.AddChannel(guildID, forumID, "help-forum")
	p.AddChannel(guildID, digestID, "thread-digest")
	p.SetAdmin(adminID)
	store := tracker.Open(backend, nil)
	svc := summary.NewService(store, p, summary.Config{}, nil)
	b := New(Config{
		CommandPrefix:  "$",
		WelcomeMessage: "Welcome to the thread '{thread}'!",
		RefreshOnReady: true,
	}, store, svc, p, nil)
	return &fixture{bot: b, store: store, platform: p}
}

func (f *fixture) send(author, channelID, channelName, content string) {
	f.bot.OnMessage(context.Background(), channels.IncomingMessage{
		ID:          "msg",
		GuildID:     guildID,
		ChannelID:   channelID,
		ChannelName: channelName,
		AuthorID:    author,
		Content:     content,
	})
}

func (f *fixture) lastReply(t *testing.T, channelID string) string {
	t.Helper()
	msgs := f.platform.Messages(channelID)
	if len(msgs) == 0 {
		t.Fatalf("no messages in %s", channelID)
	}
	return msgs[len(msgs)-1].Content
}

func (f *fixture) digests() []channels.Message {
	var out []channels.Message
	for _, m := range f.platform.Messages(digestID) {
		if m.AuthorID == channelstest.BotID {
			out = append(out, m)
		}
	}
	return out
}

func TestTrackChannelCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.send(adminID, forumID, "help-forum", "$track_channel")
	if got := f.lastReply(t, forumID); got != "Now tracking threads in channel 'help-forum'." {
		t.Errorf("reply = %q", got)
	}
	if !f.store.IsTracked(guildID, forumID) {
		t.Error("channel should be tracked")
	}

	f.send(adminID, forumID, "help-forum", "$track_channel")
	if got := f.lastReply(t, forumID); got != "Already tracking threads in channel 'help-forum'." {
		t.Errorf("reply = %q", got)
	}
	if got := f.store.ListTracked(guildID); len(got) != 1 {
		t.Errorf("ListTracked = %v", got)
	}
}

func TestUntrackChannelCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.send(adminID, forumID, "help-forum", "$untrack_channel")
	if got := f.lastReply(t, forumID); got != "Not tracking threads in channel 'help-forum'." {
		t.Errorf("reply = %q", got)
	}

	f.send(adminID, forumID, "help-forum", "$track_channel")
	f.send(adminID, forumID, "help-forum", "$untrack_channel")
	if got := f.lastReply(t, forumID); got != "Stopped tracking threads in channel 'help-forum'." {
		t.Errorf("reply = %q", got)
	}
	if f.store.IsTracked(guildID, forumID) {
		t.Error("channel should no longer be tracked")
	}
}

func TestAdminCommandsRequirePermission(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	for _, cmd := range []string{"$track_channel", "$untrack_channel", "$set_summary_channel"} {
		f.send(userID, forumID, "help-forum", cmd)
		if got := f.lastReply(t, forumID); got != msgPermissionDenied {
			t.Errorf("%s reply = %q", cmd, got)
		}
	}
	if f.store.IsTracked(guildID, forumID) {
		t.Error("non-admin must not track channels")
	}
	if _, ok := f.store.SummaryChannel(guildID); ok {
		t.Error("non-admin must not set the summary channel")
	}
}

func TestListTrackedCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.send(userID, forumID, "help-forum", "$list_tracked")
	if got := f.lastReply(t, forumID); got != msgNoneTracked {
		t.Errorf("reply = %q", got)
	}

	_, _ = f.store.TrackChannel(guildID, forumID)
	_, _ = f.store.TrackChannel(guildID, "deleted-channel")
	f.send(userID, forumID, "help-forum", "$list_tracked")
	if got := f.lastReply(t, forumID); got != "**Tracked Channels:**\n• #help-forum" {
		t.Errorf("reply = %q", got)
	}

	_, _ = f.store.UntrackChannel(guildID, forumID)
	f.send(userID, forumID, "help-forum", "$list_tracked")
	if got := f.lastReply(t, forumID); got != msgNoneValid {
		t.Errorf("reply = %q", got)
	}
}

func TestSetSummaryChannelRendersDigest(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.platform.SetThreads(forumID, "alpha", "beta")
	_, _ = f.store.TrackChannel(guildID, forumID)

	f.send(adminID, digestID, "thread-digest", "$set_summary_channel")

	// The confirmation is one of the bot's own messages, so the refresh
	// that follows replaces it with the digest.
	calls := f.platform.CallLog()
	if len(calls) != 3 || calls[0] != "post:"+digestID {
		t.Fatalf("calls = %v", calls)
	}
	msgs := f.platform.Messages(digestID)
	if len(msgs) != 1 || msgs[0].Content != "# help-forum\n• alpha\n• beta\n" {
		t.Errorf("digest channel = %+v", msgs)
	}
}

func TestSaveFailureReportsError(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &failingBackend{})

	f.send(adminID, forumID, "help-forum", "$track_channel")
	if got := f.lastReply(t, forumID); got != msgSaveFailed {
		t.Errorf("reply = %q", got)
	}
	if f.store.IsTracked(guildID, forumID) {
		t.Error("failed save must not leave the channel tracked")
	}
}

func TestIgnoredMessages(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.send(adminID, forumID, "help-forum", "hello there")
	f.send(adminID, forumID, "help-forum", "$unknown_command")
	f.send(adminID, forumID, "help-forum", "$")
	f.send(adminID, forumID, "help-forum", "$ track_channel")
	f.send(adminID, forumID, "help-forum", "$Track_Channel")
	f.send(adminID, forumID, "help-forum", "$HELP")
	f.bot.OnMessage(context.Background(), channels.IncomingMessage{
		GuildID: guildID, ChannelID: forumID, AuthorID: "other-bot", AuthorIsBot: true, Content: "$track_channel",
	})
	f.bot.OnMessage(context.Background(), channels.IncomingMessage{
		ChannelID: "dm", AuthorID: adminID, Content: "$track_channel",
	})

	if msgs := f.platform.Messages(forumID); len(msgs) != 0 {
		t.Errorf("expected no replies, got %+v", msgs)
	}
	if f.store.IsTracked(guildID, forumID) {
		t.Error("ignored messages must not mutate state")
	}
}

func TestHelpCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.send(userID, forumID, "help-forum", "$help")
	reply := f.lastReply(t, forumID)
	for _, name := range []string{"$track_channel", "$untrack_channel", "$list_tracked", "$set_summary_channel"} {
		if !strings.Contains(reply, name) {
			t.Errorf("help reply missing %s:\n%s", name, reply)
		}
	}
}

func TestThreadCreate(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	_, _ = f.store.TrackChannel(guildID, forumID)
	_ = f.store.SetSummaryChannel(guildID, digestID)

	thread := channels.ChannelInfo{ID: "thread-1", GuildID: guildID, ParentID: forumID, Name: "alpha"}
	f.platform.SetThreads(forumID, "alpha")
	f.bot.OnThreadCreate(context.Background(), channels.ThreadEvent{Thread: thread, NewlyCreated: true})

	if got := f.lastReply(t, "thread-1"); got != "Welcome to the thread 'alpha'!" {
		t.Errorf("welcome = %q", got)
	}
	if got := f.lastReply(t, digestID); got != "# help-forum\n• alpha\n" {
		t.Errorf("digest = %q", got)
	}
}

func TestThreadCreate_IgnoredCases(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	_ = f.store.SetSummaryChannel(guildID, digestID)

	untracked := channels.ChannelInfo{ID: "t1", GuildID: guildID, ParentID: forumID, Name: "x"}
	f.bot.OnThreadCreate(context.Background(), channels.ThreadEvent{Thread: untracked, NewlyCreated: true})

	_, _ = f.store.TrackChannel(guildID, forumID)
	f.bot.OnThreadCreate(context.Background(), channels.ThreadEvent{Thread: untracked, NewlyCreated: false})

	if calls := f.platform.CallLog(); len(calls) != 0 {
		t.Errorf("expected no platform calls, got %v", calls)
	}
}

func TestThreadDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	_, _ = f.store.TrackChannel(guildID, forumID)
	_ = f.store.SetSummaryChannel(guildID, digestID)
	f.platform.SetThreads(forumID, "alpha", "beta")
	f.bot.OnReady(context.Background())

	f.platform.SetThreads(forumID, "beta")
	f.bot.OnThreadDelete(context.Background(), channels.ThreadEvent{
		Thread: channels.ChannelInfo{ID: "t0", GuildID: guildID, ParentID: forumID},
	})

	if d := f.digests(); len(d) != 1 || d[0].Content != "# help-forum\n• beta\n" {
		t.Errorf("digests = %+v", d)
	}
}

func TestThreadUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	_, _ = f.store.TrackChannel(guildID, forumID)
	_ = f.store.SetSummaryChannel(guildID, digestID)

	same := channels.ChannelInfo{ID: "t1", GuildID: guildID, ParentID: forumID, Name: "alpha"}
	f.bot.OnThreadUpdate(context.Background(), channels.ThreadEvent{Thread: same, Before: &same})
	if calls := f.platform.CallLog(); len(calls) != 0 {
		t.Errorf("unchanged thread should not refresh, got %v", calls)
	}

	archived := same
	archived.Archived = true
	f.bot.OnThreadUpdate(context.Background(), channels.ThreadEvent{Thread: archived, Before: &same})
	if got := f.lastReply(t, digestID); got != "# help-forum\n*No active threads*\n" {
		t.Errorf("digest = %q", got)
	}
}

func TestOnReadyDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.bot.cfg.RefreshOnReady = false
	_ = f.store.SetSummaryChannel(guildID, digestID)
	f.bot.OnReady(context.Background())
	if calls := f.platform.CallLog(); len(calls) != 0 {
		t.Errorf("expected no refresh, got %v", calls)
	}
}
