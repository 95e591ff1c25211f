package tracker

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleConfig() *Configuration {
	return &Configuration{
		TrackedChannels: map[string][]string{
			"111111111111111111": {"222222222222222222", "333333333333333333"},
			"444444444444444444": {"555555555555555555"},
		},
		ThreadSummaryChannels: map[string]string{
			"111111111111111111": "666666666666666666",
		},
	}
}

func TestFileBackend_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "thread_config.json")
	b := NewFileBackend(path)

	want := sampleConfig()
	if err := b.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, want)
	}
}

func TestFileBackend_MissingFile(t *testing.T) {
	t.Parallel()
	b := NewFileBackend(filepath.Join(t.TempDir(), "absent.json"))
	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, NewConfiguration()) {
		t.Errorf("Load = %#v, want empty configuration", got)
	}
}

func TestFileBackend_CorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "thread_config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	b := NewFileBackend(path)
	got, err := b.Load()
	if !errors.Is(err, ErrCorruptConfig) {
		t.Errorf("err = %v, want ErrCorruptConfig", err)
	}
	if !reflect.DeepEqual(got, NewConfiguration()) {
		t.Errorf("Load = %#v, want empty configuration", got)
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("corrupt copy not written: %v", err)
	}
}

func TestFileBackend_AbsentKeysDefault(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "thread_config.json")
	content := `{"tracked_channels": {"g": ["c"]}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := NewFileBackend(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ThreadSummaryChannels == nil || len(got.ThreadSummaryChannels) != 0 {
		t.Errorf("ThreadSummaryChannels = %#v, want empty map", got.ThreadSummaryChannels)
	}
	if !reflect.DeepEqual(got.TrackedChannels["g"], []string{"c"}) {
		t.Errorf("TrackedChannels = %#v", got.TrackedChannels)
	}
}

func TestFileBackend_NoTempFilesLeft(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	b := NewFileBackend(filepath.Join(dir, "thread_config.json"))
	for i := 0; i < 3; i++ {
		if err := b.Save(sampleConfig()); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory entries = %v, want only the config file", names)
	}
}

func TestFileBackend_SaveFailurePropagates(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	b := NewFileBackend(filepath.Join(blocker, "thread_config.json"))
	if err := b.Save(sampleConfig()); err == nil {
		t.Error("expected error when parent path is a file")
	}
}

func TestStore_FileBackendPersistsAcrossOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "thread_config.json")

	s := Open(NewFileBackend(path), nil)
	if _, err := s.TrackChannel("g", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSummaryChannel("g", "s"); err != nil {
		t.Fatal(err)
	}

	reopened := Open(NewFileBackend(path), nil)
	if got := reopened.ListTracked("g"); !reflect.DeepEqual(got, []string{"c1"}) {
		t.Errorf("ListTracked after reopen = %v", got)
	}
	if id, _ := reopened.SummaryChannel("g"); id != "s" {
		t.Errorf("SummaryChannel after reopen = %q", id)
	}
}

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	t.Parallel()
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "thread_config.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend: %v", err)
	}
	defer b.Close()

	empty, err := b.Load()
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if !reflect.DeepEqual(empty, NewConfiguration()) {
		t.Errorf("fresh database = %#v, want empty", empty)
	}

	want := sampleConfig()
	if err := b.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, want)
	}

	// A second save replaces, not appends.
	want.TrackedChannels["111111111111111111"] = []string{"333333333333333333"}
	delete(want.ThreadSummaryChannels, "111111111111111111")
	if err := b.Save(want); err != nil {
		t.Fatal(err)
	}
	got, err = b.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("after replace:\n got  %#v\n want %#v", got, want)
	}
}
