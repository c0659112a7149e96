package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/Uptimer/internal/domain/check"
)

type Alert struct {
	Key         string      `json:"key"`
	CheckID     string      `json:"checkId"`
	UserID      string      `json:"userId"`
	Destination string      `json:"destination"`
	Message     string      `json:"message"`
	From        check.State `json:"from"`
	To          check.State `json:"to"`
	At          time.Time   `json:"at"`
}

// Dispatcher delivers alerts on a best-effort basis. Implementations must
// tolerate redelivery of the same Key.
type Dispatcher interface {
	Send(ctx context.Context, a Alert) error
}

func Key(checkID string, at time.Time) string {
	return fmt.Sprintf("%s:%d", checkID, at.UnixNano())
}

func Message(c check.Check, from, to check.State) string {
	return fmt.Sprintf("Check %s (%s): %s -> %s", c.ID, c.Target(), from, to)
}

func New(c check.Check, t check.Transition, destination string) Alert {
	return Alert{
		Key:         t.Key,
		CheckID:     c.ID,
		UserID:      c.OwnerID,
		Destination: destination,
		Message:     Message(c, t.From, t.To),
		From:        t.From,
		To:          t.To,
		At:          t.At,
	}
}

// IsPhone reports whether a destination looks like an E.164 number.
func IsPhone(dest string) bool {
	if !strings.HasPrefix(dest, "+") || len(dest) < 8 {
		return false
	}
	for _, r := range dest[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
