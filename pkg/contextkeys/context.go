// Package contextkeys - общие ключи context.Context и gin.Context,
// чтобы middleware, хендлеры и websocket-слой не зависели друг от друга.
package contextkeys

type contextKey string

// DBContextKey - *gorm.DB (пул или транзакция) в context.Context
const DBContextKey = contextKey("db")

// Ключи gin.Context
const (
	UserIDKey    = "userID"
	RoleKey      = "role"
	RequestIDKey = "requestID"
)
