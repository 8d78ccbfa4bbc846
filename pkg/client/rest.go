package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"workforce_backend/pkg/cache"
)

// APIError - ответ сервера вида {"error": {...}}
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Domain     string `json:"domain"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

type RESTOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	// Cache - параметры кэша GET; нули = 100 записей, 30 секунд, FIFO
	Cache cache.Options
}

// RESTClient - клиент /api/v1. Успешные GET кэшируются; изменения кэш не сбрасывают.
type RESTClient struct {
	baseURL string
	http    *http.Client
	cache   *cache.Cache[string, []byte]

	mu    sync.RWMutex
	token string
}

func NewRESTClient(opts RESTOptions) *RESTClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RESTClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		cache:   cache.New[string, []byte](opts.Cache),
	}
}

// SetToken меняет пользователя, поэтому кэш чужих ответов сбрасывается
func (c *RESTClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.cache.Purge()
}

func (c *RESTClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// CacheKey - метод + URL + параметры в отсортированном виде
func CacheKey(method, rawURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(rawURL)
	sep := byte('?')
	for _, k := range keys {
		values := append([]string(nil), params[k]...)
		sort.Strings(values)
		for _, v := range values {
			b.WriteByte(sep)
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
			sep = '&'
		}
	}
	return b.String()
}

// Get выполняет GET через кэш
func (c *RESTClient) Get(ctx context.Context, path string, params url.Values, out any) error {
	key := CacheKey(http.MethodGet, c.baseURL+path, params)
	if body, ok := c.cache.Get(key); ok {
		return decodeBody(body, out)
	}

	body, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	c.cache.Set(key, body)
	return decodeBody(body, out)
}

// Invalidate удаляет запись кэша для ручного обновления
func (c *RESTClient) Invalidate(path string, params url.Values) {
	c.cache.Delete(CacheKey(http.MethodGet, c.baseURL+path, params))
}

func (c *RESTClient) Purge() {
	c.cache.Purge()
}

func (c *RESTClient) Post(ctx context.Context, path string, in, out any) error {
	return c.send(ctx, http.MethodPost, path, in, out)
}

func (c *RESTClient) Put(ctx context.Context, path string, in, out any) error {
	return c.send(ctx, http.MethodPut, path, in, out)
}

func (c *RESTClient) Delete(ctx context.Context, path string) error {
	return c.send(ctx, http.MethodDelete, path, nil, nil)
}

func (c *RESTClient) send(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = raw
	}
	body, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	return decodeBody(body, out)
}

func (c *RESTClient) do(ctx context.Context, method, path string, params url.Values, payload []byte) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Domain = envelope.Error.Domain
			apiErr.Message = envelope.Error.Message
		}
		return nil, apiErr
	}
	return body, nil
}

func decodeBody(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ---------------- Методы API ----------------

// Login запоминает выданный токен
func (c *RESTClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.Post(ctx, "/auth/login", map[string]string{"email": email, "password": password}, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

func (c *RESTClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *RESTClient) Conversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := c.Get(ctx, "/messages/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// History: since - нулевое время, если не нужно; limit 0 - по умолчанию сервера
func (c *RESTClient) History(ctx context.Context, otherUserID string, since time.Time, limit int) (*History, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var h History
	if err := c.Get(ctx, "/messages/"+url.PathEscape(otherUserID), params, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *RESTClient) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var msg Message
	if err := c.Post(ctx, "/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *RESTClient) EditMessage(ctx context.Context, messageID, content string) (*Message, error) {
	var msg Message
	if err := c.Put(ctx, "/messages/"+url.PathEscape(messageID), map[string]string{"content": content}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *RESTClient) DeleteMessage(ctx context.Context, messageID string) error {
	return c.Delete(ctx, "/messages/"+url.PathEscape(messageID))
}

func (c *RESTClient) Notifications(ctx context.Context) (*NotificationList, error) {
	var list NotificationList
	if err := c.Get(ctx, "/notifications", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *RESTClient) MarkNotificationRead(ctx context.Context, id string) error {
	return c.Put(ctx, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *RESTClient) Announcements(ctx context.Context, limit int) ([]Announcement, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var list []Announcement
	if err := c.Get(ctx, "/announcements", params, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Events - журнал догоняющей доставки для клиентов без websocket
func (c *RESTClient) Events(ctx context.Context, since uint64) (*Events, error) {
	params := url.Values{"since": {strconv.FormatUint(since, 10)}}
	var ev Events
	// журнал читается мимо кэша: он должен быть свежим
	body, err := c.do(ctx, http.MethodGet, "/events", params, nil)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
