package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"workforce_backend/internal/keylock"
	"workforce_backend/internal/logger"
)

const DefaultCapacity = 50

var ErrNotificationNotFound = errors.New("notification not found")

// Inbox - кольцевой буфер уведомлений на пользователя поверх Store.
// В хранилище лежит JSON-массив от старых к новым.
type Inbox struct {
	store    Store
	capacity int
	now      func() time.Time

	locks *keylock.Locks
}

type InboxOption func(*Inbox)

func WithClock(now func() time.Time) InboxOption {
	return func(i *Inbox) { i.now = now }
}

func NewInbox(store Store, capacity int, opts ...InboxOption) *Inbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	i := &Inbox{
		store:    store,
		capacity: capacity,
		now:      time.Now,
		locks:    keylock.New(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Inbox) Capacity() int { return i.capacity }

func (i *Inbox) lock(userID string) func() {
	return i.locks.Lock(userID)
}

// load никогда не возвращает ошибку: битые или недоступные данные = пустой ящик
func (i *Inbox) load(ctx context.Context, userID string) []Notification {
	raw, err := i.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.CtxWarn(ctx, "inbox load failed, starting empty", "user_id", userID, "error", err)
		}
		return nil
	}

	var items []Notification
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.CtxWarn(ctx, "inbox corrupted, resetting", "user_id", userID, "error", err)
		return nil
	}
	return items
}

func (i *Inbox) save(ctx context.Context, userID string, items []Notification) {
	raw, err := json.Marshal(items)
	if err != nil {
		logger.CtxWarn(ctx, "inbox marshal failed", "user_id", userID, "error", err)
		return
	}
	if err := i.store.Set(ctx, userID, raw); err != nil {
		logger.CtxWarn(ctx, "inbox save failed", "user_id", userID, "error", err)
	}
}

// Add добавляет запись. Если запись с тем же SourceID уже есть, ничего не меняется.
// Возвращает сохраненную запись и признак добавления.
func (i *Inbox) Add(ctx context.Context, userID string, n Notification) (Notification, bool) {
	unlock := i.lock(userID)
	defer unlock()

	items := i.load(ctx, userID)
	items, stored, added := i.push(items, n)
	if added {
		i.save(ctx, userID, items)
	}
	return stored, added
}

// Import добавляет пачку записей с дедупликацией, одной записью в хранилище
func (i *Inbox) Import(ctx context.Context, userID string, batch []Notification) int {
	if len(batch) == 0 {
		return 0
	}
	unlock := i.lock(userID)
	defer unlock()

	items := i.load(ctx, userID)
	count := 0
	for _, n := range batch {
		var added bool
		items, _, added = i.push(items, n)
		if added {
			count++
		}
	}
	if count > 0 {
		i.save(ctx, userID, items)
	}
	return count
}

func (i *Inbox) push(items []Notification, n Notification) ([]Notification, Notification, bool) {
	if n.SourceID != "" {
		for _, existing := range items {
			if existing.SourceID == n.SourceID && existing.Type == n.Type {
				return items, existing, false
			}
		}
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = i.now().UTC()
	}

	items = append(items, n)
	if over := len(items) - i.capacity; over > 0 {
		items = append([]Notification(nil), items[over:]...)
	}
	return items, n, true
}

// List возвращает записи для панели: непрочитанные критичные сверху, дальше новые первыми
func (i *Inbox) List(ctx context.Context, userID string) ([]Notification, int) {
	unlock := i.lock(userID)
	defer unlock()

	items := i.load(ctx, userID)
	return SortForPanel(items), countUnread(items)
}

func (i *Inbox) UnreadCount(ctx context.Context, userID string) int {
	unlock := i.lock(userID)
	defer unlock()
	return countUnread(i.load(ctx, userID))
}

func (i *Inbox) MarkRead(ctx context.Context, userID, id string) error {
	return i.mutate(ctx, userID, func(items []Notification) ([]Notification, error) {
		for idx := range items {
			if items[idx].ID == id {
				items[idx].Read = true
				return items, nil
			}
		}
		return nil, ErrNotificationNotFound
	})
}

func (i *Inbox) MarkAllRead(ctx context.Context, userID string) error {
	return i.mutate(ctx, userID, func(items []Notification) ([]Notification, error) {
		for idx := range items {
			items[idx].Read = true
		}
		return items, nil
	})
}

func (i *Inbox) Delete(ctx context.Context, userID, id string) error {
	return i.mutate(ctx, userID, func(items []Notification) ([]Notification, error) {
		for idx := range items {
			if items[idx].ID == id {
				return append(items[:idx], items[idx+1:]...), nil
			}
		}
		return nil, ErrNotificationNotFound
	})
}

func (i *Inbox) Clear(ctx context.Context, userID string) error {
	unlock := i.lock(userID)
	defer unlock()

	if err := i.store.Clear(ctx, userID); err != nil {
		logger.CtxWarn(ctx, "inbox clear failed", "user_id", userID, "error", err)
	}
	return nil
}

func (i *Inbox) mutate(ctx context.Context, userID string, fn func([]Notification) ([]Notification, error)) error {
	unlock := i.lock(userID)
	defer unlock()

	items, err := fn(i.load(ctx, userID))
	if err != nil {
		return err
	}
	i.save(ctx, userID, items)
	return nil
}

func countUnread(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

// SortForPanel не меняет исходный срез
func SortForPanel(items []Notification) []Notification {
	out := make([]Notification, len(items))
	copy(out, items)
	pinned := func(n Notification) bool { return n.IsCritical() && !n.Read }

	sort.SliceStable(out, func(a, b int) bool {
		pa, pb := pinned(out[a]), pinned(out[b])
		if pa != pb {
			return pa
		}
		return out[a].Timestamp.After(out[b].Timestamp)
	})
	return out
}
