package email

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

var criticalAnnouncementTpl = template.Must(template.New("critical_announcement").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2 style="color:#b00020;">{{.Title}}</h2>
  <p>{{.Message}}</p>
  <p style="color:#666;font-size:12px;">{{.AuthorName}} · {{.CreatedAt}}</p>
</body>
</html>`))

// CriticalAnnouncement собирает письмо о критическом объявлении
func CriticalAnnouncement(to []string, title, message, authorName string, createdAt time.Time) (*Email, error) {
	var buf strings.Builder
	err := criticalAnnouncementTpl.Execute(&buf, map[string]string{
		"Title":      title,
		"Message":    message,
		"AuthorName": authorName,
		"CreatedAt":  createdAt.UTC().Format("02.01.2006 15:04 UTC"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render announcement email: %w", err)
	}

	return &Email{
		To:       to,
		Subject:  "[Critical] " + title,
		Body:     title + "\n\n" + message,
		HTMLBody: buf.String(),
	}, nil
}
