package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"workforce_backend/internal/logger"
	"workforce_backend/internal/metrics"
	"workforce_backend/pkg/realtime"
)

// Options - параметры хаба
type Options struct {
	TypingExpiry   time.Duration
	SendBuffer     int
	MaxMessageSize int64
	Clock          func() time.Time
}

func DefaultOptions() Options {
	return Options{
		TypingExpiry:   5 * time.Second,
		SendBuffer:     256,
		MaxMessageSize: 64 * 1024,
		Clock:          time.Now,
	}
}

type typingKey struct {
	conversationID string
	userID         string
}

// Hub держит все соединения, комнаты диалогов и состояние "печатает".
// Регистрацией владеет Run; отправка идет из любых горутин под RLock.
type Hub struct {
	opts Options

	clients map[*Client]struct{}
	users   map[string]map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	typing  map[typingKey]time.Time
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(opts Options) *Hub {
	def := DefaultOptions()
	if opts.TypingExpiry <= 0 {
		opts.TypingExpiry = def.TypingExpiry
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	return &Hub{
		opts:       opts,
		clients:    make(map[*Client]struct{}),
		users:      make(map[string]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		typing:     make(map[typingKey]time.Time),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию и истечение typing до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	sweep := time.NewTicker(h.opts.TypingExpiry / 5)
	defer sweep.Stop()

	logger.Info("🔌 websocket hub started")
	for {
		select {
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case <-sweep.C:
			h.expireTyping()
		case <-ctx.Done():
			h.shutdown()
			logger.Info("websocket hub stopped")
			return
		}
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.closeSend()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	conns, ok := h.users[c.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.users[c.userID] = conns
	}
	conns[c] = struct{}{}
	first := len(conns) == 1
	total := len(h.clients)
	online := len(h.users)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	metrics.OnlineUsers.Set(float64(online))
	logger.CtxInfo(c.ctx, "client connected", "connections", total)

	if first {
		h.broadcastPresence()
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.leaveLocked(c)

	last := false
	if conns, ok := h.users[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.userID)
			last = true
		}
	}
	c.closeSend()
	total := len(h.clients)
	online := len(h.users)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	metrics.OnlineUsers.Set(float64(online))
	logger.CtxInfo(c.ctx, "client disconnected", "connections", total)

	if last {
		h.clearTypingFor(c.userID)
		h.broadcastPresence()
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	for c := range h.clients {
		c.closeSend()
	}
	h.clients = make(map[*Client]struct{})
	h.users = make(map[string]map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	metrics.OnlineUsers.Set(0)
	close(h.done)
}

// ---------------- Комнаты ----------------

// JoinRoom переводит клиента в комнату; прежняя комната покидается.
// Возвращает id покинутой комнаты или "". Снятый с учета клиент в комнату
// не попадает: его send уже закрыт.
func (h *Hub) JoinRoom(c *Client, conversationID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, registered := h.clients[c]; !registered {
		return ""
	}
	if c.room == conversationID {
		return ""
	}
	previous := c.room
	h.leaveLocked(c)

	members, ok := h.rooms[conversationID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[conversationID] = members
	}
	members[c] = struct{}{}
	c.room = conversationID
	return previous
}

// LeaveRoom - false, если клиент не был в этой комнате
func (h *Hub) LeaveRoom(c *Client, conversationID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.room != conversationID || c.room == "" {
		return false
	}
	h.leaveLocked(c)
	return true
}

func (h *Hub) leaveLocked(c *Client) {
	if c.room == "" {
		return
	}
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

// Room - активная комната клиента
func (h *Hub) Room(c *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.room
}

// ---------------- Отправка ----------------

func (h *Hub) encode(event string, payload any, seq uint64) ([]byte, bool) {
	env, err := realtime.NewEnvelope(event, payload, seq, h.opts.Clock())
	if err != nil {
		logger.Error("failed to encode realtime payload", "event", event, "error", err)
		return nil, false
	}
	frame, err := json.Marshal(env)
	if err != nil {
		logger.Error("failed to encode envelope", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}

// deliver кладет кадр в буферы; переполненные клиенты отключаются.
// Вызывающий держит RLock.
func (h *Hub) deliverLocked(targets map[*Client]struct{}, frame []byte, event string, skip func(*Client) bool) (int, []*Client) {
	sent := 0
	var slow []*Client
	for c := range targets {
		if skip != nil && skip(c) {
			continue
		}
		if c.trySend(frame) {
			sent++
		} else {
			slow = append(slow, c)
		}
	}
	if sent > 0 {
		metrics.EventsEmitted.WithLabelValues(event).Add(float64(sent))
	}
	return sent, slow
}

func (h *Hub) dropSlow(slow []*Client) {
	for _, c := range slow {
		metrics.SlowClientsDropped.Inc()
		logger.CtxWarn(c.ctx, "send buffer full, dropping client")
		go h.Unregister(c)
	}
}

func (h *Hub) EmitToUser(userID, event string, payload any, seq uint64) int {
	frame, ok := h.encode(event, payload, seq)
	if !ok {
		return 0
	}
	h.mu.RLock()
	sent, slow := h.deliverLocked(h.users[userID], frame, event, nil)
	h.mu.RUnlock()
	h.dropSlow(slow)

	logger.RealtimeLog(event, userID, "seq", seq, "delivered", sent)
	return sent
}

func (h *Hub) EmitToRoom(conversationID, event string, payload any, exceptUserID string) int {
	frame, ok := h.encode(event, payload, 0)
	if !ok {
		return 0
	}
	h.mu.RLock()
	sent, slow := h.deliverLocked(h.rooms[conversationID], frame, event, func(c *Client) bool {
		return exceptUserID != "" && c.userID == exceptUserID
	})
	h.mu.RUnlock()
	h.dropSlow(slow)
	return sent
}

func (h *Hub) Broadcast(event string, payload any) int {
	frame, ok := h.encode(event, payload, 0)
	if !ok {
		return 0
	}
	h.mu.RLock()
	sent, slow := h.deliverLocked(h.clients, frame, event, nil)
	h.mu.RUnlock()
	h.dropSlow(slow)
	return sent
}

// SendTo отправляет событие одному соединению (ответы и ошибки)
func (h *Hub) SendTo(c *Client, event string, payload any, seq uint64) bool {
	frame, ok := h.encode(event, payload, seq)
	if !ok {
		return false
	}
	h.mu.RLock()
	sent, slow := h.deliverLocked(map[*Client]struct{}{c: {}}, frame, event, func(target *Client) bool {
		_, registered := h.clients[target]
		return !registered
	})
	h.mu.RUnlock()
	h.dropSlow(slow)
	return sent == 1
}

// ---------------- Присутствие ----------------

func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastPresence() {
	h.Broadcast(realtime.EventOnlineUsers, realtime.OnlineUsersPayload{UserIDs: h.OnlineUserIDs()})
}

// ---------------- Typing ----------------

// StartTyping запоминает состояние и сообщает комнате
func (h *Hub) StartTyping(conversationID, userID string) {
	h.mu.Lock()
	h.typing[typingKey{conversationID, userID}] = h.opts.Clock()
	h.mu.Unlock()

	h.EmitToRoom(conversationID, realtime.EventUserTyping,
		realtime.TypingPayload{ConversationID: conversationID, UserID: userID}, userID)
}

// StopTyping сообщает комнате, если состояние было
func (h *Hub) StopTyping(conversationID, userID string) {
	key := typingKey{conversationID, userID}
	h.mu.Lock()
	_, ok := h.typing[key]
	delete(h.typing, key)
	h.mu.Unlock()

	if ok {
		h.emitStopTyping(key)
	}
}

func (h *Hub) emitStopTyping(key typingKey) {
	h.EmitToRoom(key.conversationID, realtime.EventUserStopTyping,
		realtime.TypingPayload{ConversationID: key.conversationID, UserID: key.userID}, key.userID)
}

// expireTyping гасит состояния, не обновленные дольше TypingExpiry
func (h *Hub) expireTyping() {
	now := h.opts.Clock()
	var expired []typingKey

	h.mu.Lock()
	for key, at := range h.typing {
		if now.Sub(at) >= h.opts.TypingExpiry {
			expired = append(expired, key)
			delete(h.typing, key)
		}
	}
	h.mu.Unlock()

	for _, key := range expired {
		h.emitStopTyping(key)
	}
}

func (h *Hub) clearTypingFor(userID string) {
	var cleared []typingKey
	h.mu.Lock()
	for key := range h.typing {
		if key.userID == userID {
			cleared = append(cleared, key)
			delete(h.typing, key)
		}
	}
	h.mu.Unlock()

	for _, key := range cleared {
		h.emitStopTyping(key)
	}
}
