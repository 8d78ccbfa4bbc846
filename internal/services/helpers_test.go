package services_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"workforce_backend/internal/email"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/services"
	"workforce_backend/internal/storage"
	"workforce_backend/internal/testutil"

	"github.com/stretchr/testify/require"
)

type emitted struct {
	UserID string
	Event  string
	Seq    uint64
	Data   json.RawMessage
}

// fakeGateway запоминает все, что сервисы отправили пользователям
type fakeGateway struct {
	mu     sync.Mutex
	online map[string]bool
	events []emitted
}

func newFakeGateway(online ...string) *fakeGateway {
	g := &fakeGateway{online: map[string]bool{}}
	for _, id := range online {
		g.online[id] = true
	}
	return g
}

func (g *fakeGateway) EmitToUser(userID, event string, payload any, seq uint64) int {
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	default:
		raw, _ = json.Marshal(p)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, emitted{UserID: userID, Event: event, Seq: seq, Data: raw})
	if g.online[userID] {
		return 1
	}
	return 0
}

func (g *fakeGateway) EmitToRoom(string, string, any, string) int { return 0 }
func (g *fakeGateway) Broadcast(string, any) int                  { return 0 }

func (g *fakeGateway) OnlineUserIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.online))
	for id := range g.online {
		ids = append(ids, id)
	}
	return ids
}

func (g *fakeGateway) IsOnline(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.online[userID]
}

func (g *fakeGateway) For(userID, event string) []emitted {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []emitted
	for _, e := range g.events {
		if e.UserID == userID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db      *gorm.DB
	gw      *fakeGateway
	clock   *fakeClock
	mailer  *email.NoopProvider
	storage *storage.LocalStorage
	svc     *services.ServiceContainer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	gw := newFakeGateway()
	mailer := &email.NoopProvider{}

	store, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir(), BaseURL: "/uploads"})
	require.NoError(t, err)

	inbox := notifications.NewInbox(notifications.NewMemoryStore(), notifications.DefaultCapacity, notifications.WithClock(clock.Now))

	svc := services.NewServiceContainer(services.Dependencies{
		Inbox:         inbox,
		Storage:       store,
		Mailer:        mailer,
		Gateway:       gw,
		Clock:         clock.Now,
		MaxUploadSize: 1024,
	})
	return &testEnv{db: db, gw: gw, clock: clock, mailer: mailer, storage: store, svc: svc}
}
