package client

import (
	"sync"

	"workforce_backend/pkg/realtime"
)

// Emitter - то, что нужно комнатам и индикатору набора от соединения
type Emitter interface {
	Emit(event string, data any) error
	On(event string, handler Handler) func()
}

// Rooms отслеживает единственный активный диалог клиента.
// Сообщения чужих диалогов в открытую переписку не попадают.
type Rooms struct {
	conn Emitter

	mu         sync.Mutex
	active     string
	transcript func(msg Message)
	other      func(msg Message)
	unsub      []func()
}

func NewRooms(conn Emitter) *Rooms {
	r := &Rooms{conn: conn}
	r.unsub = append(r.unsub,
		conn.On(realtime.EventNewMessage, r.route),
		conn.On(EventConnected, func(realtime.Envelope) { r.rejoin() }),
	)
	return r
}

// Join делает диалог активным: сначала leave прежнего, потом join нового
func (r *Rooms) Join(conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conversationID == r.active {
		return nil
	}
	if r.active != "" {
		if err := r.conn.Emit(realtime.EventLeaveConversation, realtime.ConversationPayload{ConversationID: r.active}); err != nil {
			return err
		}
		r.active = ""
	}
	if err := r.conn.Emit(realtime.EventJoinConversation, realtime.ConversationPayload{ConversationID: conversationID}); err != nil {
		return err
	}
	r.active = conversationID
	return nil
}

// Leave закрывает активный диалог
func (r *Rooms) Leave() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == "" {
		return nil
	}
	prev := r.active
	r.active = ""
	return r.conn.Emit(realtime.EventLeaveConversation, realtime.ConversationPayload{ConversationID: prev})
}

func (r *Rooms) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// OnTranscript - сообщения активного диалога
func (r *Rooms) OnTranscript(fn func(msg Message)) {
	r.mu.Lock()
	r.transcript = fn
	r.mu.Unlock()
}

// OnOther - сообщения остальных диалогов (счетчики, всплывашки)
func (r *Rooms) OnOther(fn func(msg Message)) {
	r.mu.Lock()
	r.other = fn
	r.mu.Unlock()
}

// Close снимает подписки с соединения
func (r *Rooms) Close() {
	r.mu.Lock()
	unsub := r.unsub
	r.unsub = nil
	r.mu.Unlock()
	for _, fn := range unsub {
		fn()
	}
}

func (r *Rooms) route(env realtime.Envelope) {
	var msg Message
	if err := env.Decode(&msg); err != nil {
		return
	}

	// решение принимается под замком, чтобы не пересечься с Join
	r.mu.Lock()
	fn := r.other
	if msg.ConversationID != "" && msg.ConversationID == r.active {
		fn = r.transcript
	}
	r.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

// rejoin: после переподключения сервер комнату не помнит
func (r *Rooms) rejoin() {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active != "" {
		_ = r.conn.Emit(realtime.EventJoinConversation, realtime.ConversationPayload{ConversationID: active})
	}
}
