package notification

import (
	"context"
	"time"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Notification records one delivered alert. ID is the alert idempotency key.
type Notification struct {
	ID          string    `json:"id"`
	CheckID     string    `json:"checkId"`
	UserID      string    `json:"userId"`
	Channel     Channel   `json:"channel"`
	Destination string    `json:"destination"`
	Message     string    `json:"message"`
	SentAt      time.Time `json:"sentAt"`
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}
