package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"workforce_backend/internal/auth"
	"workforce_backend/internal/email"
	"workforce_backend/internal/handlers"
	"workforce_backend/internal/middleware"
	"workforce_backend/internal/models"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/services"
	"workforce_backend/internal/storage"
	"workforce_backend/internal/testutil"
	"workforce_backend/internal/validator"
)

const maxUploadSize = 1024

func init() {
	gin.SetMode(gin.TestMode)
	auth.Configure("handlers-test-secret", time.Hour)
}

// testClock - подвижные часы сервисов
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

// TestServer - роутер с настоящими сервисами поверх sqlite
type TestServer struct {
	Server   *httptest.Server
	Router   http.Handler
	DB       *gorm.DB
	Services *services.ServiceContainer
	Clock    *testClock
	Mailer   *email.NoopProvider
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.NewTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	mailer := &email.NoopProvider{}

	store, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir(), BaseURL: "/uploads"})
	require.NoError(t, err)

	svc := services.NewServiceContainer(services.Dependencies{
		Inbox:         notifications.NewInbox(notifications.NewMemoryStore(), 50, notifications.WithClock(clock.Now)),
		Storage:       store,
		Mailer:        mailer,
		Clock:         clock.Now,
		MaxUploadSize: maxUploadSize,
	})

	base := handlers.NewBaseHandler(validator.New())
	h := &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(base, svc.AuthService),
		ChatHandler:         handlers.NewChatHandler(base, svc.ChatService, maxUploadSize),
		NotificationHandler: handlers.NewNotificationHandler(base, svc.NotificationService),
		AnnouncementHandler: handlers.NewAnnouncementHandler(base, svc.AnnouncementService, nil),
		EventHandler:        handlers.NewEventHandler(base, svc.NotificationService),
		PresenceHandler:     handlers.NewPresenceHandler(svc.Gateway),
	}

	router := gin.New()
	router.Use(middleware.DBMiddleware(db))
	api := router.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	h.AuthHandler.RegisterRoutes(api, protected)
	h.ChatHandler.RegisterRoutes(protected)
	h.NotificationHandler.RegisterRoutes(protected)
	h.AnnouncementHandler.RegisterRoutes(protected)
	h.EventHandler.RegisterRoutes(protected)
	h.PresenceHandler.RegisterRoutes(protected)

	ts := &TestServer{
		Server:   httptest.NewServer(router),
		Router:   router,
		DB:       db,
		Services: svc,
		Clock:    clock,
		Mailer:   mailer,
	}
	t.Cleanup(ts.Server.Close)
	return ts
}

// CreateAndLogin создает пользователя и выдает ему токен
func (ts *TestServer) CreateAndLogin(t *testing.T, name, email string, role models.UserRole) (string, *models.User) {
	t.Helper()

	user := testutil.CreateUser(t, ts.DB, name, email, role)
	token, _, err := auth.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return token, user
}

// SendRequest отправляет JSON-запрос и возвращает ответ и тело строкой
func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body any) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.do(t, req, token)
}

// SendMultipart отправляет форму с одним файлом
func (ts *TestServer) SendMultipart(t *testing.T, path, token string, fields map[string]string, fileName string, content []byte) (*http.Response, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return ts.do(t, req, token)
}

func (ts *TestServer) do(t *testing.T, req *http.Request, token string) (*http.Response, string) {
	t.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(raw)
}

// errorCode достает error.code из стандартного ответа об ошибке
func errorCode(t *testing.T, body string) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp), body)
	return resp.Error.Code
}

// pngHeader - достаточно для определения image/png по сигнатуре
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
