package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce_backend/internal/models"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestInbox(store Store) *Inbox {
	clock := &stepClock{t: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)}
	return NewInbox(store, DefaultCapacity, WithClock(clock.Now))
}

func TestInbox_RingBufferEvictsOldest(t *testing.T) {
	ctx := context.Background()
	inbox := newTestInbox(NewMemoryStore())

	for n := 1; n <= 51; n++ {
		inbox.Add(ctx, "u1", Notification{Type: "notification", Title: fmt.Sprintf("n%d", n)})
	}

	items, unread := inbox.List(ctx, "u1")
	require.Len(t, items, 50)
	assert.Equal(t, 50, unread)

	titles := make(map[string]bool, len(items))
	for _, it := range items {
		titles[it.Title] = true
	}
	assert.False(t, titles["n1"], "oldest entry must be evicted")
	assert.True(t, titles["n2"])
	assert.True(t, titles["n51"])
	assert.Equal(t, "n51", items[0].Title)
}

func TestInbox_DedupBySourceID(t *testing.T) {
	ctx := context.Background()
	inbox := newTestInbox(NewMemoryStore())

	first, added := inbox.Add(ctx, "u1", Notification{Type: "announcement", SourceID: "a1", Priority: models.PriorityCritical})
	require.True(t, added)

	again, added := inbox.Add(ctx, "u1", Notification{Type: "announcement", SourceID: "a1", Priority: models.PriorityCritical})
	assert.False(t, added)
	assert.Equal(t, first.ID, again.ID)

	imported := inbox.Import(ctx, "u1", []Notification{
		{Type: "announcement", SourceID: "a1"},
		{Type: "announcement", SourceID: "a2"},
	})
	assert.Equal(t, 1, imported)
	assert.Equal(t, 2, inbox.UnreadCount(ctx, "u1"))
}

func TestInbox_CriticalUnreadFirst(t *testing.T) {
	ctx := context.Background()
	inbox := newTestInbox(NewMemoryStore())

	inbox.Add(ctx, "u1", Notification{Type: "announcement", Title: "critical", Priority: models.PriorityCritical, SourceID: "c"})
	inbox.Add(ctx, "u1", Notification{Type: "notification", Title: "newer", Priority: models.PriorityLow})
	inbox.Add(ctx, "u1", Notification{Type: "notification", Title: "newest", Priority: models.PriorityHigh})

	items, unread := inbox.List(ctx, "u1")
	require.Len(t, items, 3)
	assert.Equal(t, 3, unread)
	assert.Equal(t, []string{"critical", "newest", "newer"}, []string{items[0].Title, items[1].Title, items[2].Title})

	require.NoError(t, inbox.MarkRead(ctx, "u1", items[0].ID))
	items, unread = inbox.List(ctx, "u1")
	assert.Equal(t, 2, unread)
	assert.Equal(t, "newest", items[0].Title)
}

func TestInbox_MarkAllReadDeleteClear(t *testing.T) {
	ctx := context.Background()
	inbox := newTestInbox(NewMemoryStore())

	a, _ := inbox.Add(ctx, "u1", Notification{Type: "notification"})
	inbox.Add(ctx, "u1", Notification{Type: "notification"})

	require.NoError(t, inbox.MarkAllRead(ctx, "u1"))
	assert.Equal(t, 0, inbox.UnreadCount(ctx, "u1"))

	require.NoError(t, inbox.Delete(ctx, "u1", a.ID))
	items, _ := inbox.List(ctx, "u1")
	assert.Len(t, items, 1)

	assert.ErrorIs(t, inbox.Delete(ctx, "u1", "missing"), ErrNotificationNotFound)
	assert.ErrorIs(t, inbox.MarkRead(ctx, "u1", "missing"), ErrNotificationNotFound)

	require.NoError(t, inbox.Clear(ctx, "u1"))
	items, _ = inbox.List(ctx, "u1")
	assert.Empty(t, items)
}

func TestInbox_CorruptValueResetsSilently(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "u1", []byte("{not json")))
	inbox := newTestInbox(store)

	items, unread := inbox.List(ctx, "u1")
	assert.Empty(t, items)
	assert.Zero(t, unread)

	_, added := inbox.Add(ctx, "u1", Notification{Type: "notification"})
	assert.True(t, added)
	assert.Equal(t, 1, inbox.UnreadCount(ctx, "u1"))
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (brokenStore) Set(context.Context, string, []byte) error   { return errors.New("down") }
func (brokenStore) Clear(context.Context, string) error         { return errors.New("down") }
func (brokenStore) Close() error                                { return nil }

func TestInbox_UnavailableStoreNeverSurfaces(t *testing.T) {
	ctx := context.Background()
	inbox := newTestInbox(brokenStore{})

	n, added := inbox.Add(ctx, "u1", Notification{Type: "notification"})
	assert.True(t, added)
	assert.NotEmpty(t, n.ID)

	items, _ := inbox.List(ctx, "u1")
	assert.Empty(t, items)
	assert.NoError(t, inbox.MarkAllRead(ctx, "u1"))
	assert.NoError(t, inbox.Clear(ctx, "u1"))
}

func TestInbox_TwoViewsDivergeWithoutCorruption(t *testing.T) {
	ctx := context.Background()
	inbox := newTestInbox(NewMemoryStore())

	n, _ := inbox.Add(ctx, "u1", Notification{Type: "notification"})
	tabA, _ := inbox.List(ctx, "u1")
	tabB, _ := inbox.List(ctx, "u1")

	require.NoError(t, inbox.MarkRead(ctx, "u1", n.ID))
	assert.False(t, tabB[0].Read, "stale tab keeps its own view")
	assert.False(t, tabA[0].Read)

	fresh, unread := inbox.List(ctx, "u1")
	assert.True(t, fresh[0].Read)
	assert.Zero(t, unread)
}

func TestInbox_ConcurrentAddsKeepCapacity(t *testing.T) {
	ctx := context.Background()
	inbox := NewInbox(NewMemoryStore(), DefaultCapacity)

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func() {
			for k := 0; k < 30; k++ {
				inbox.Add(ctx, "u1", Notification{Type: "notification"})
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < 4; w++ {
		<-done
	}

	items, _ := inbox.List(ctx, "u1")
	assert.Len(t, items, 50)

	// блокировки отпущенных пользователей не копятся
	for k := 0; k < 20; k++ {
		inbox.Add(ctx, fmt.Sprintf("user-%d", k), Notification{Type: "notification"})
	}
	assert.Equal(t, 0, inbox.locks.Len())
}
