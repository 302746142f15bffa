package testutils

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"gwi.com/ai-chat-relay/internal/core"
	"gwi.com/ai-chat-relay/internal/store"
)

// NewStore opens a SQLite store in a per-test temp directory.
func NewStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.NewSQLStore(context.Background(), store.DialectSQLite, filepath.Join(t.TempDir(), "relay_test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type PublishedMessage struct {
	Kind      string
	ChannelID string
	Meta      core.ChannelMetadata
	Text      string
	AuthorID  string
}

// FakeDirectory is an in-memory core.Directory. Setting one of the *Err
// fields makes the matching call fail.
type FakeDirectory struct {
	mu          sync.Mutex
	Users       map[string]core.DirectoryUser
	UpsertCalls int
	Published   []PublishedMessage

	FindErr          error
	UpsertErr        error
	CreateChannelErr error
	PublishErr       error
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{Users: map[string]core.DirectoryUser{}}
}

func (d *FakeDirectory) FindUsers(_ context.Context, userID string) ([]core.DirectoryUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FindErr != nil {
		return nil, d.FindErr
	}
	if u, ok := d.Users[userID]; ok {
		return []core.DirectoryUser{u}, nil
	}
	return nil, nil
}

func (d *FakeDirectory) UpsertUser(_ context.Context, user core.DirectoryUser) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.UpsertCalls++
	if d.UpsertErr != nil {
		return d.UpsertErr
	}
	d.Users[user.ID] = user
	return nil
}

func (d *FakeDirectory) CreateChannel(_ context.Context, kind, channelID string, meta core.ChannelMetadata) (core.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.CreateChannelErr != nil {
		return nil, d.CreateChannelErr
	}
	return &fakeChannel{dir: d, kind: kind, id: channelID, meta: meta}, nil
}

func (d *FakeDirectory) PublishedMessages() []PublishedMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PublishedMessage, len(d.Published))
	copy(out, d.Published)
	return out
}

type fakeChannel struct {
	dir  *FakeDirectory
	kind string
	id   string
	meta core.ChannelMetadata
}

func (c *fakeChannel) Publish(_ context.Context, text, authorID string) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	if c.dir.PublishErr != nil {
		return c.dir.PublishErr
	}
	c.dir.Published = append(c.dir.Published, PublishedMessage{
		Kind:      c.kind,
		ChannelID: c.id,
		Meta:      c.meta,
		Text:      text,
		AuthorID:  authorID,
	})
	return nil
}

// FakeCompleter answers every prompt with Reply, or fails with Err.
type FakeCompleter struct {
	mu      sync.Mutex
	Reply   string
	Err     error
	Prompts []string
}

func (c *FakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, prompt)
	if c.Err != nil {
		return "", c.Err
	}
	return c.Reply, nil
}

func (c *FakeCompleter) Close() error { return nil }
