package client

import (
	"sync"
	"time"

	"workforce_backend/pkg/realtime"
)

// DefaultTypingDelay - stop_typing уходит через 2 секунды после последней клавиши
const DefaultTypingDelay = 2 * time.Second

// Timer - то, что нужно от time.Timer
type Timer interface {
	Stop() bool
}

// AfterFunc - планировщик таймера; по умолчанию time.AfterFunc
type AfterFunc func(d time.Duration, f func()) Timer

func defaultAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type TypingOption func(*TypingNotifier)

func WithTypingDelay(d time.Duration) TypingOption {
	return func(n *TypingNotifier) { n.delay = d }
}

func WithAfterFunc(fn AfterFunc) TypingOption {
	return func(n *TypingNotifier) { n.afterFunc = fn }
}

// WithTypingThrottle - typing не чаще раза в d; 0 - на каждое нажатие.
// d должен быть меньше срока, после которого сервер гасит состояние (5s).
func WithTypingThrottle(d time.Duration) TypingOption {
	return func(n *TypingNotifier) { n.throttle = d }
}

func WithTypingClock(now func() time.Time) TypingOption {
	return func(n *TypingNotifier) { n.now = now }
}

// TypingNotifier шлет typing на нажатия (серверное состояние обновляется,
// пока пользователь печатает) и stop_typing после паузы
type TypingNotifier struct {
	conn    Emitter
	payload realtime.TypingPayload

	delay     time.Duration
	throttle  time.Duration
	afterFunc AfterFunc
	now       func() time.Time

	mu       sync.Mutex
	typing   bool
	lastEmit time.Time
	timer    Timer
	gen      uint64
}

func NewTypingNotifier(conn Emitter, conversationID, receiverID string, opts ...TypingOption) *TypingNotifier {
	n := &TypingNotifier{
		conn:      conn,
		payload:   realtime.TypingPayload{ConversationID: conversationID, ReceiverID: receiverID},
		delay:     DefaultTypingDelay,
		afterFunc: defaultAfterFunc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Keystroke вызывается на каждое нажатие
func (n *TypingNotifier) Keystroke() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if !n.typing || n.throttle <= 0 || now.Sub(n.lastEmit) >= n.throttle {
		if err := n.conn.Emit(realtime.EventTyping, n.payload); err != nil {
			return err
		}
		n.typing = true
		n.lastEmit = now
	}

	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.timer = n.afterFunc(n.delay, func() { n.expire(gen) })
	return nil
}

// Stop - явная остановка (сообщение отправлено, поле очищено)
func (n *TypingNotifier) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	if !n.typing {
		return nil
	}
	n.typing = false
	return n.conn.Emit(realtime.EventStopTyping, n.payload)
}

func (n *TypingNotifier) IsTyping() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.typing
}

func (n *TypingNotifier) expire(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	// таймер мог сработать уже после нового нажатия
	if gen != n.gen || !n.typing {
		return
	}
	n.typing = false
	n.timer = nil
	_ = n.conn.Emit(realtime.EventStopTyping, n.payload)
}
