package chat

import "errors"

var (
	ErrNotSender         = errors.New("only the sender can modify the message")
	ErrNotText           = errors.New("only text messages can be edited")
	ErrEditWindowExpired = errors.New("edit window expired")
)
