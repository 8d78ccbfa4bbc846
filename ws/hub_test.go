package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce_backend/pkg/realtime"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	hub := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

// connect регистрирует клиента без сокета; кадры читаются из send
func connect(t *testing.T, hub *Hub, userID string) *Client {
	t.Helper()
	c := newClient(context.Background(), hub, nil, userID)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.IsOnline(userID) && hub.hasClient(c) }, time.Second, 5*time.Millisecond)
	return c
}

func (h *Hub) hasClient(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[c]
	return ok
}

// expect пропускает чужие события и возвращает первое с нужным именем
func expect(t *testing.T, c *Client, event string) realtime.Envelope {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case frame, ok := <-c.send:
			require.True(t, ok, "send channel closed while waiting for %s", event)
			var env realtime.Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

// drain выбирает все, что уже лежит в буфере
func drain(c *Client) []realtime.Envelope {
	var out []realtime.Envelope
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var env realtime.Envelope
			if json.Unmarshal(frame, &env) == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func TestHub_PresenceFollowsConnections(t *testing.T) {
	hub := startHub(t, DefaultOptions())

	alice := connect(t, hub, "alice")
	env := expect(t, alice, realtime.EventOnlineUsers)
	var online realtime.OnlineUsersPayload
	require.NoError(t, env.Decode(&online))
	assert.Equal(t, []string{"alice"}, online.UserIDs)

	bob := connect(t, hub, "bob")
	require.NoError(t, expect(t, alice, realtime.EventOnlineUsers).Decode(&online))
	assert.Equal(t, []string{"alice", "bob"}, online.UserIDs)

	// вторая вкладка bob не меняет присутствие
	bob2 := connect(t, hub, "bob")
	drain(alice)
	hub.Unregister(bob)
	require.Eventually(t, func() bool { return !hub.hasClient(bob) }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsOnline("bob"))
	for _, e := range drain(alice) {
		assert.NotEqual(t, realtime.EventOnlineUsers, e.Event)
	}

	hub.Unregister(bob2)
	require.NoError(t, expect(t, alice, realtime.EventOnlineUsers).Decode(&online))
	assert.Equal(t, []string{"alice"}, online.UserIDs)
	assert.False(t, hub.IsOnline("bob"))
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHub_EmitToUserReachesEveryTab(t *testing.T) {
	hub := startHub(t, DefaultOptions())

	tab1 := connect(t, hub, "carol")
	tab2 := connect(t, hub, "carol")
	other := connect(t, hub, "dave")

	n := hub.EmitToUser("carol", realtime.EventNewMessage, json.RawMessage(`{"id":"m1"}`), 7)
	assert.Equal(t, 2, n)

	for _, c := range []*Client{tab1, tab2} {
		env := expect(t, c, realtime.EventNewMessage)
		assert.Equal(t, uint64(7), env.Seq)
		assert.JSONEq(t, `{"id":"m1"}`, string(env.Data))
	}
	for _, e := range drain(other) {
		assert.NotEqual(t, realtime.EventNewMessage, e.Event)
	}

	assert.Equal(t, 0, hub.EmitToUser("nobody", realtime.EventNewMessage, nil, 0))
}

// TestHub_RoomIsolation - после перехода в B события комнаты A не приходят
func TestHub_RoomIsolation(t *testing.T) {
	hub := startHub(t, DefaultOptions())

	alice := connect(t, hub, "alice")
	bob := connect(t, hub, "bob")
	drain(alice)
	drain(bob)

	assert.Equal(t, "", hub.JoinRoom(alice, "a_b"))
	assert.Equal(t, "", hub.JoinRoom(bob, "a_b"))

	assert.Equal(t, 1, hub.EmitToRoom("a_b", realtime.EventUserTyping, nil, "bob"))
	expect(t, alice, realtime.EventUserTyping)

	// join B покидает A
	assert.Equal(t, "a_b", hub.JoinRoom(alice, "a_c"))
	assert.Equal(t, "a_c", hub.Room(alice))
	assert.Equal(t, 0, hub.EmitToRoom("a_b", realtime.EventUserTyping, nil, "bob"))
	assert.Empty(t, drain(alice))

	assert.False(t, hub.LeaveRoom(alice, "a_b"))
	assert.True(t, hub.LeaveRoom(alice, "a_c"))
	assert.Equal(t, "", hub.Room(alice))
}

func TestHub_JoinAfterUnregisterIsIgnored(t *testing.T) {
	hub := startHub(t, DefaultOptions())

	alice := connect(t, hub, "alice")
	bob := connect(t, hub, "bob")

	// join, обработанный readPump уже после снятия клиента с учета
	hub.Unregister(alice)
	require.Eventually(t, func() bool { return !hub.hasClient(alice) }, time.Second, 5*time.Millisecond)

	assert.Equal(t, "", hub.JoinRoom(alice, "alice_bob"))
	assert.Equal(t, "", hub.Room(alice))
	hub.JoinRoom(bob, "alice_bob")
	drain(bob)

	assert.NotPanics(t, func() {
		hub.StartTyping("alice_bob", "bob")
		hub.EmitToRoom("alice_bob", realtime.EventNewMessage, json.RawMessage(`{"id":"m1"}`), "")
	})
	expect(t, bob, realtime.EventNewMessage)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	opts := DefaultOptions()
	opts.SendBuffer = 2
	hub := startHub(t, opts)

	slow := connect(t, hub, "slow")
	// online_users уже занял одно место
	assert.Equal(t, 1, hub.EmitToUser("slow", realtime.EventNotification, nil, 0))
	assert.Equal(t, 0, hub.EmitToUser("slow", realtime.EventNotification, nil, 0))

	require.Eventually(t, func() bool { return !hub.IsOnline("slow") }, time.Second, 5*time.Millisecond)

	// канал закрыт хабом
	frames := 0
	for range slow.send {
		frames++
	}
	assert.Equal(t, 2, frames)
}

func TestHub_TypingExpires(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	opts := DefaultOptions()
	opts.Clock = clock.Now
	hub := startHub(t, opts)

	alice := connect(t, hub, "alice")
	bob := connect(t, hub, "bob")
	hub.JoinRoom(alice, "alice_bob")
	hub.JoinRoom(bob, "alice_bob")
	drain(alice)
	drain(bob)

	hub.StartTyping("alice_bob", "alice")
	env := expect(t, bob, realtime.EventUserTyping)
	var p realtime.TypingPayload
	require.NoError(t, env.Decode(&p))
	assert.Equal(t, "alice", p.UserID)
	assert.Empty(t, drain(alice), "typer does not get its own typing event")

	clock.Advance(4 * time.Second)
	hub.expireTyping()
	for _, e := range drain(bob) {
		assert.NotEqual(t, realtime.EventUserStopTyping, e.Event)
	}

	clock.Advance(time.Second)
	hub.expireTyping()
	expect(t, bob, realtime.EventUserStopTyping)

	// повторный stop ничего не шлет
	hub.StopTyping("alice_bob", "alice")
	assert.Empty(t, drain(bob))
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := connect(t, hub, "erin")
	cancel()
	<-stopped

	for range c.send {
	}
	assert.False(t, hub.IsOnline("erin"))

	// после остановки регистрация не блокируется
	late := newClient(context.Background(), hub, nil, "late")
	hub.Register(late)
	_, ok := <-late.send
	assert.False(t, ok)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com/"})
	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, check(req("https://app.example.com")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("https://evil.example.com")))
	assert.True(t, originChecker(nil)(req("https://any.example.com")))
	assert.True(t, originChecker([]string{"*"})(req("https://any.example.com")))
}
