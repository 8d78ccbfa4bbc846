package middleware

import (
	"bytes"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"workforce_backend/internal/metrics"
	"workforce_backend/pkg/cache"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache кэширует успешные GET-ответы: ключ = пользователь + путь + отсортированные параметры.
// Записи не инвалидируются при изменениях, живут ttl.
func ResponseCache(ttl time.Duration, capacity int) gin.HandlerFunc {
	store := cache.New[string, cachedResponse](cache.Options{
		Capacity: capacity,
		TTL:      ttl,
		Policy:   cache.FIFO,
	})
	return ResponseCacheWith(store)
}

func ResponseCacheWith(store *cache.Cache[string, cachedResponse]) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := CacheKey(GetUserID(c), c.Request.URL)
		if hit, ok := store.Get(key); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			c.Header("X-Cache", "HIT")
			c.Data(hit.status, hit.contentType, hit.body)
			c.Abort()
			return
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Header("X-Cache", "MISS")
		c.Next()

		if status := rec.Status(); status == http.StatusOK {
			store.Set(key, cachedResponse{
				status:      status,
				contentType: rec.Header().Get("Content-Type"),
				body:        bytes.Clone(rec.buf.Bytes()),
			})
		}
	}
}

// CacheKey - url.Values.Encode сортирует параметры по ключу
func CacheKey(userID string, u *url.URL) string {
	return userID + "|" + u.Path + "?" + u.Query().Encode()
}

// NewResponseStore - хранилище для ResponseCacheWith с внешними часами (тесты)
func NewResponseStore(opts cache.Options) *cache.Cache[string, cachedResponse] {
	return cache.New[string, cachedResponse](opts)
}
