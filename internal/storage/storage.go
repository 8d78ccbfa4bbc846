package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"workforce_backend/internal/config"
)

// Storage - хранилище вложений и фото профиля
type Storage interface {
	// Save сохраняет файл по ключу key
	Save(ctx context.Context, key string, reader io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete не считает отсутствие файла ошибкой
	Delete(ctx context.Context, key string) error
	// URL - публичная ссылка на файл
	URL(key string) string
}

// Config - параметры хранилища
type Config struct {
	Type       string // local, s3, cloudflare_r2
	BasePath   string
	BaseURL    string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicRead bool
}

func ConfigFrom(cfg *config.Config) Config {
	s := cfg.Storage
	return Config{
		Type:       s.Type,
		BasePath:   s.BasePath,
		BaseURL:    s.BaseURL,
		Bucket:     s.Bucket,
		Region:     s.Region,
		AccessKey:  s.AccessKey,
		SecretKey:  s.SecretKey,
		Endpoint:   s.Endpoint,
		PublicRead: s.PublicRead,
	}
}

// NewStorage создает хранилище по типу из конфигурации
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	case "cloudflare_r2":
		return NewCloudflareR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// AttachmentKey - attachments/{conversationId}/{uuid}{ext}
func AttachmentKey(conversationID, filename string) string {
	return path.Join("attachments", conversationID, uuid.NewString()+strings.ToLower(path.Ext(filename)))
}

// ProfilePhotoKey - profile-photos/{userId}/{uuid}{ext}
func ProfilePhotoKey(userID, filename string) string {
	return path.Join("profile-photos", userID, uuid.NewString()+strings.ToLower(path.Ext(filename)))
}
