package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce_backend/internal/models"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/services"
	"workforce_backend/internal/testutil"
)

// fakeTimer срабатывает сразу и запоминает запрошенные задержки
type fakeTimer struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (f *fakeTimer) after(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.waits = append(f.waits, d)
	f.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (f *fakeTimer) first() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.waits) == 0 {
		return 0
	}
	return f.waits[0]
}

func TestScheduler_AddRejectsInvalidCron(t *testing.T) {
	s := NewScheduler()

	err := s.Add(Job{Name: "bad", Schedule: "not a cron", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)

	err = s.Add(Job{Name: "no-run", Schedule: "* * * * *"})
	assert.Error(t, err)

	assert.NoError(t, s.Add(Job{Name: "ok", Schedule: "*/15 * * * *", Run: func(context.Context) error { return nil }}))
}

func TestScheduler_RunsJobAtNextTick(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 7, 30, 0, time.UTC)
	timer := &fakeTimer{}
	s := NewScheduler(WithClock(func() time.Time { return now }, timer.after))

	var runs atomic.Int32
	require.NoError(t, s.Add(Job{
		Name:     "count",
		Schedule: "*/15 * * * *",
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	// 09:07:30 -> 09:15:00
	assert.Equal(t, 7*time.Minute+30*time.Second, timer.first())
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler()
	boom := errors.New("boom")

	require.NoError(t, s.Add(Job{Name: "fail", Schedule: "@hourly", Run: func(context.Context) error { return boom }}))

	assert.ErrorIs(t, s.RunNow(context.Background(), "fail"), boom)
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestEventPruner_RemovesOldEvents(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := services.NewServiceContainer(services.Dependencies{
		Inbox: notifications.NewInbox(notifications.NewMemoryStore(), 50),
	})
	user := testutil.CreateUser(t, db, "Olga", "olga@example.com", models.UserRoleEmployee)

	old := models.RealtimeEvent{UserID: user.ID, Seq: 1, Event: "leave_update", Payload: []byte(`{}`), CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := models.RealtimeEvent{UserID: user.ID, Seq: 2, Event: "leave_update", Payload: []byte(`{}`)}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&fresh).Error)

	pruner := NewEventPruner(db, svc.NotificationService, 24*time.Hour)
	s := NewScheduler()
	require.NoError(t, s.Add(pruner.Job("*/15 * * * *")))
	require.NoError(t, s.RunNow(context.Background(), PruneEventsJobName))

	var left []models.RealtimeEvent
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, uint64(2), left[0].Seq)
}
