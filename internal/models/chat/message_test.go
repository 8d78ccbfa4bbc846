package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationID_IsCanonicalForUnorderedPair(t *testing.T) {
	a, b := "b7a0f4a2-0000-0000-0000-000000000002", "0c1d2e3f-0000-0000-0000-000000000001"

	assert.Equal(t, ConversationID(a, b), ConversationID(b, a))
	assert.Equal(t, b+"_"+a, ConversationID(a, b))

	x, y, ok := Participants(ConversationID(a, b))
	assert.True(t, ok)
	assert.Equal(t, b, x)
	assert.Equal(t, a, y)

	_, _, ok = Participants("garbage")
	assert.False(t, ok)
}

func TestMessage_CanEdit(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &Message{SenderID: "u1", MessageType: MessageTypeText, CreatedAt: created}

	cases := []struct {
		name   string
		user   string
		typ    MessageType
		offset time.Duration
		want   error
	}{
		{"sender within window", "u1", MessageTypeText, 14*time.Minute + 59*time.Second, nil},
		{"exactly fifteen minutes", "u1", MessageTypeText, 15 * time.Minute, ErrEditWindowExpired},
		{"after sixteen minutes", "u1", MessageTypeText, 16 * time.Minute, ErrEditWindowExpired},
		{"not the sender", "u2", MessageTypeText, time.Minute, ErrNotSender},
		{"image message", "u1", MessageTypeImage, time.Minute, ErrNotText},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg.MessageType = tc.typ
			assert.Equal(t, tc.want, msg.CanEdit(tc.user, created.Add(tc.offset)))
		})
	}
}

func TestMessage_Preview(t *testing.T) {
	assert.Equal(t, "[image]", (&Message{MessageType: MessageTypeImage}).Preview())
	assert.Equal(t, "caption", (&Message{MessageType: MessageTypeImage, Content: "caption"}).Preview())

	long := strings.Repeat("я", 150)
	assert.Len(t, []rune((&Message{MessageType: MessageTypeText, Content: long}).Preview()), 100)
}
