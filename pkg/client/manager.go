// Package client - Go SDK канала реального времени и REST API:
// менеджер соединения с переподключением, комнаты, индикатор набора
// и REST-клиент с кэшем GET-запросов.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"workforce_backend/pkg/realtime"
)

// Локальные события менеджера; сервер их не присылает
const (
	EventConnected       = "connect"
	EventDisconnected    = "disconnect"
	EventReconnectFailed = "reconnect_failed"
)

var (
	ErrNotConnected    = errors.New("not connected")
	ErrReconnectFailed = errors.New("reconnect failed")
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler получает кадры в горутине чтения; долгую работу выносить наружу
type Handler func(env realtime.Envelope)

type Options struct {
	URL    string
	Token  string
	Dialer Dialer

	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
	MaxAttempts int

	// Sleep ждет перед повторной попыткой; подменяется в тестах
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// DefaultOptions: 1s, x2, не больше 30s, 5 попыток
func DefaultOptions() Options {
	return Options{
		Dialer:      WebSocketDialer{},
		BaseDelay:   time.Second,
		Factor:      2,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 5,
		Sleep:       sleepCtx,
		Now:         time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff - задержка перед попыткой номер attempt (с 1)
func (o Options) Backoff(attempt int) time.Duration {
	d := float64(o.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= o.Factor
		if d >= float64(o.MaxDelay) {
			return o.MaxDelay
		}
	}
	return time.Duration(d)
}

// ConnectionManager держит одно физическое соединение на приложение.
// После обрыва переподключается и просит сервер досылку с lastSeq.
type ConnectionManager struct {
	opts Options

	mu        sync.Mutex
	state     State
	transport Transport
	handlers  map[string][]subscription
	nextID    int
	seqs      seqTracker
	cancel    context.CancelFunc
}

type subscription struct {
	id      int
	handler Handler
}

func NewConnectionManager(opts Options) *ConnectionManager {
	def := DefaultOptions()
	if opts.Dialer == nil {
		opts.Dialer = def.Dialer
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.Factor < 1 {
		opts.Factor = def.Factor
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = def.MaxDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &ConnectionManager{
		opts:     opts,
		handlers: make(map[string][]subscription),
	}
}

// Connect открывает соединение; повторный вызов при живом соединении ничего не делает
func (m *ConnectionManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.mu.Unlock()

	t, err := m.dial(ctx, false)
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		cancel()
		return err
	}
	if !m.attach(runCtx, t) {
		return ErrNotConnected
	}
	return nil
}

// Disconnect закрывает соединение и останавливает переподключение
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	t := m.transport
	m.transport = nil
	m.state = StateDisconnected
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
}

func (m *ConnectionManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastSeq - отметка журнала: все события с seq <= LastSeq получены.
// С нее начинается resume после переподключения.
func (m *ConnectionManager) LastSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seqs.mark
}

// Emit отправляет событие серверу
func (m *ConnectionManager) Emit(event string, data any) error {
	env, err := realtime.NewEnvelope(event, data, 0, m.opts.Now())
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	m.mu.Lock()
	t := m.transport
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || t == nil {
		return ErrNotConnected
	}
	return t.WriteEnvelope(env)
}

// On подписывает handler на событие; возвращает отписку
func (m *ConnectionManager) On(event string, handler Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.handlers[event] = append(m.handlers[event], subscription{id: id, handler: handler})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.handlers[event]
		for i, sub := range subs {
			if sub.id == id {
				m.handlers[event] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (m *ConnectionManager) header() http.Header {
	h := http.Header{}
	if m.opts.Token != "" {
		h.Set("Authorization", "Bearer "+m.opts.Token)
	}
	return h
}

// dial делает до MaxAttempts попыток; при переподключении ждет и перед первой
func (m *ConnectionManager) dial(ctx context.Context, reconnect bool) (Transport, error) {
	var lastErr error
	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		wait := attempt - 1
		if reconnect {
			wait = attempt
		}
		if wait > 0 {
			if err := m.opts.Sleep(ctx, m.opts.Backoff(wait)); err != nil {
				return nil, err
			}
		}

		t, err := m.opts.Dialer.Dial(ctx, m.opts.URL, m.header())
		if err == nil {
			return t, nil
		}
		lastErr = err

		var dialErr *DialError
		if errors.As(err, &dialErr) && dialErr.StatusCode == http.StatusUnauthorized {
			// с этим токеном повторять бессмысленно
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrReconnectFailed, lastErr)
}

// attach делает транспорт текущим, объявляет присутствие и запускает чтение
func (m *ConnectionManager) attach(ctx context.Context, t Transport) bool {
	m.mu.Lock()
	if ctx.Err() != nil {
		// Disconnect пришел, пока мы дозванивались
		m.mu.Unlock()
		_ = t.Close()
		return false
	}
	m.transport = t
	m.state = StateConnected
	lastSeq := m.seqs.mark
	m.mu.Unlock()

	now := m.opts.Now()
	if env, err := realtime.NewEnvelope(realtime.EventUserOnline, nil, 0, now); err == nil {
		_ = t.WriteEnvelope(env)
	}
	if lastSeq > 0 {
		if env, err := realtime.NewEnvelope(realtime.EventResume, realtime.ResumePayload{LastSeq: lastSeq}, 0, now); err == nil {
			_ = t.WriteEnvelope(env)
		}
	}

	go m.readLoop(ctx, t)
	m.dispatch(realtime.Envelope{Event: EventConnected, Timestamp: now})
	return true
}

func (m *ConnectionManager) readLoop(ctx context.Context, t Transport) {
	for {
		env, err := t.ReadEnvelope()
		if err != nil {
			m.handleDrop(ctx, t)
			return
		}

		switch {
		case env.Seq > 0:
			m.mu.Lock()
			fresh := m.seqs.accept(env.Seq)
			m.mu.Unlock()
			if !fresh {
				continue
			}
		case env.Event == realtime.EventResumed:
			// досылка закончена: пропуски ниже ее отметки уже не придут
			var done realtime.ResumedPayload
			if env.Decode(&done) == nil {
				m.mu.Lock()
				m.seqs.advance(done.LastSeq)
				m.mu.Unlock()
			}
		}
		m.dispatch(env)
	}
}

func (m *ConnectionManager) handleDrop(ctx context.Context, t Transport) {
	m.mu.Lock()
	if m.transport != t {
		// закрыт через Disconnect
		m.mu.Unlock()
		return
	}
	m.transport = nil
	m.state = StateConnecting
	m.mu.Unlock()

	_ = t.Close()
	m.dispatch(realtime.Envelope{Event: EventDisconnected, Timestamp: m.opts.Now()})

	next, err := m.dial(ctx, true)
	if err != nil {
		m.mu.Lock()
		if ctx.Err() == nil {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		if ctx.Err() == nil {
			m.dispatch(realtime.Envelope{Event: EventReconnectFailed, Timestamp: m.opts.Now()})
		}
		return
	}
	m.attach(ctx, next)
}

func (m *ConnectionManager) dispatch(env realtime.Envelope) {
	m.mu.Lock()
	subs := make([]Handler, 0, len(m.handlers[env.Event]))
	for _, sub := range m.handlers[env.Event] {
		subs = append(subs, sub.handler)
	}
	m.mu.Unlock()

	for _, h := range subs {
		h(env)
	}
}
