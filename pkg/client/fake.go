package client

import (
	"context"
	"net/http"
	"sync"

	"workforce_backend/pkg/realtime"
)

// FakeTransport - транспорт в памяти для тестов
type FakeTransport struct {
	in   chan realtime.Envelope
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	sent   []realtime.Envelope
	Header http.Header
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		in:   make(chan realtime.Envelope, 64),
		done: make(chan struct{}),
	}
}

func (t *FakeTransport) ReadEnvelope() (realtime.Envelope, error) {
	select {
	case env := <-t.in:
		return env, nil
	case <-t.done:
		return realtime.Envelope{}, ErrTransportClosed
	}
}

func (t *FakeTransport) WriteEnvelope(env realtime.Envelope) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}
	t.mu.Lock()
	t.sent = append(t.sent, env)
	t.mu.Unlock()
	return nil
}

func (t *FakeTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// Push имитирует кадр от сервера
func (t *FakeTransport) Push(env realtime.Envelope) {
	t.in <- env
}

// Drop имитирует обрыв соединения со стороны сервера
func (t *FakeTransport) Drop() {
	_ = t.Close()
}

func (t *FakeTransport) Closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Sent - копия отправленных клиентом кадров
func (t *FakeTransport) Sent() []realtime.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]realtime.Envelope, len(t.sent))
	copy(out, t.sent)
	return out
}

// SentEvents - только имена отправленных событий
func (t *FakeTransport) SentEvents() []string {
	sent := t.Sent()
	out := make([]string, len(sent))
	for i, env := range sent {
		out[i] = env.Event
	}
	return out
}

// FakeDialer выдает FakeTransport; ошибки можно запланировать заранее
type FakeDialer struct {
	mu         sync.Mutex
	failures   []error
	dials      int
	transports []*FakeTransport
}

func (d *FakeDialer) Dial(_ context.Context, _ string, header http.Header) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if len(d.failures) > 0 {
		err := d.failures[0]
		d.failures = d.failures[1:]
		return nil, err
	}
	t := NewFakeTransport()
	t.Header = header.Clone()
	d.transports = append(d.transports, t)
	return t, nil
}

// FailNext - следующие n попыток вернут err
func (d *FakeDialer) FailNext(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		d.failures = append(d.failures, err)
	}
}

func (d *FakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Last - последнее выданное соединение (nil, если не было)
func (d *FakeDialer) Last() *FakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

func (d *FakeDialer) Transports() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}
