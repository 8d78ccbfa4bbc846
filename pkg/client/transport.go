package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"workforce_backend/pkg/realtime"
)

var ErrTransportClosed = errors.New("transport closed")

// Transport - одно физическое соединение с сервером
type Transport interface {
	// ReadEnvelope блокируется до следующего кадра или закрытия
	ReadEnvelope() (realtime.Envelope, error)
	WriteEnvelope(env realtime.Envelope) error
	Close() error
}

// Dialer открывает Transport
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Transport, error)
}

// WebSocketDialer - Dialer поверх gorilla/websocket
type WebSocketDialer struct {
	Dialer *websocket.Dialer
}

func (d WebSocketDialer) Dial(ctx context.Context, url string, header http.Header) (Transport, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, &DialError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

// DialError - сервер ответил на upgrade не 101
type DialError struct {
	StatusCode int
	Err        error
}

func (e *DialError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Err.Error()
}

func (e *DialError) Unwrap() error { return e.Err }

type wsTransport struct {
	conn *websocket.Conn
	// gorilla допускает только одного писателя
	writeMu sync.Mutex
}

func (t *wsTransport) ReadEnvelope() (realtime.Envelope, error) {
	var env realtime.Envelope
	if err := t.conn.ReadJSON(&env); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return env, ErrTransportClosed
		}
		return env, err
	}
	return env, nil
}

func (t *wsTransport) WriteEnvelope(env realtime.Envelope) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(env)
}

func (t *wsTransport) Close() error {
	t.writeMu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	return t.conn.Close()
}
