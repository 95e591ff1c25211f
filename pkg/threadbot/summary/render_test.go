package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels/channelstest"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(p *channelstest.Platform)
		tracked []string
		want    string
	}{
		{
			name:    "no tracked channels",
			setup:   func(p *channelstest.Platform) {},
			tracked: nil,
			want:    NoTrackedText,
		},
		{
			name: "one channel with threads",
			setup: func(p *channelstest.Platform) {
				p.AddChannel("g", "c1", "general")
				p.SetThreads("c1", "alpha", "beta")
			},
			tracked: []string{"c1"},
			want:    "# general\n• alpha\n• beta\n",
		},
		{
			name: "channel without threads",
			setup: func(p *channelstest.Platform) {
				p.AddChannel("g", "c1", "quiet")
			},
			tracked: []string{"c1"},
			want:    "# quiet\n*No active threads*\n",
		},
		{
			name: "stored order and thread order preserved",
			setup: func(p *channelstest.Platform) {
				p.AddChannel("g", "c1", "zeta")
				p.AddChannel("g", "c2", "alpha")
				p.SetThreads("c1", "b", "a")
			},
			tracked: []string{"c1", "c2"},
			want:    "# zeta\n• b\n• a\n\n# alpha\n*No active threads*\n",
		},
		{
			name: "deleted channel skipped",
			setup: func(p *channelstest.Platform) {
				p.AddChannel("g", "c2", "alive")
				p.SetThreads("c2", "x")
			},
			tracked: []string{"gone", "c2"},
			want:    "# alive\n• x\n",
		},
		{
			name:    "all channels gone",
			setup:   func(p *channelstest.Platform) {},
			tracked: []string{"gone"},
			want:    NoTrackedText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := channelstest.New()
			tt.setup(p)
			got, err := Render(context.Background(), p, "g", tt.tracked, nil)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestRender_LookupErrorAborts(t *testing.T) {
	t.Parallel()
	p := channelstest.New()
	p.AddChannel("g", "c1", "general")
	p.GetErr["c1"] = errors.New("gateway timeout")

	if _, err := Render(context.Background(), p, "g", []string{"c1"}, nil); err == nil {
		t.Error("expected error for non-not-found lookup failure")
	}
}

func TestRender_ListsThreadsOncePerServer(t *testing.T) {
	t.Parallel()
	p := channelstest.New()
	for _, id := range []string{"c1", "c2", "c3"} {
		p.AddChannel("g", id, "chan-"+id)
	}
	p.AddChannel("other", "x1", "elsewhere")
	p.SetThreads("c2", "beta")
	p.SetThreads("x1", "foreign")
	p.SetThreads("c1", "alpha")

	got, err := Render(context.Background(), p, "g", []string{"c1", "c2", "c3"}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "# chan-c1\n• alpha\n\n# chan-c2\n• beta\n\n# chan-c3\n*No active threads*\n"
	if got != want {
		t.Errorf("Render =\n%q\nwant\n%q", got, want)
	}
	if n := p.ThreadListings(); n != 1 {
		t.Errorf("ListThreads called %d times, want 1", n)
	}
}

func TestRender_NoListingWhenNothingResolves(t *testing.T) {
	t.Parallel()
	p := channelstest.New()
	if _, err := Render(context.Background(), p, "g", []string{"gone"}, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n := p.ThreadListings(); n != 0 {
		t.Errorf("ListThreads called %d times, want 0", n)
	}
}

func TestRender_ThreadListErrorAborts(t *testing.T) {
	t.Parallel()
	p := channelstest.New()
	p.AddChannel("g", "c1", "general")
	p.ThreadsErr["g"] = errors.New("rate limited")

	if _, err := Render(context.Background(), p, "g", []string{"c1"}, nil); err == nil {
		t.Error("expected error when the thread list fails")
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int
	}{
		{"short", "hello", 10, 1},
		{"exact", "0123456789", 10, 1},
		{"newline split", "aaaaaaa\nbbbbbbb\n", 10, 2},
		{"no newline", strings.Repeat("x", 25), 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chunks := splitMessage(tt.text, tt.maxLen)
			if len(chunks) != tt.want {
				t.Errorf("chunks = %d (%q), want %d", len(chunks), chunks, tt.want)
			}
			if strings.Join(chunks, "") != tt.text {
				t.Error("chunks must reassemble to the original text")
			}
			for _, c := range chunks {
				if len(c) > tt.maxLen {
					t.Errorf("chunk %q exceeds %d bytes", c, tt.maxLen)
				}
			}
		})
	}
}

func TestSplitMessage_RuneSafe(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("•", 10) // 3 bytes each
	for _, c := range splitMessage(text, 8) {
		if !strings.HasPrefix(c, "•") || len(c)%3 != 0 {
			t.Errorf("chunk %q cut inside a rune", c)
		}
	}
}
