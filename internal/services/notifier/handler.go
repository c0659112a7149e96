package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/alert"
	"github.com/NordCoder/Uptimer/internal/domain/notification"
	"github.com/NordCoder/Uptimer/internal/obs"
	"github.com/NordCoder/Uptimer/internal/obs/retry"
)

var (
	mSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_sent_total", Help: "Alerts delivered",
	}, []string{"channel"})
	mDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_duplicates_total", Help: "Alerts skipped because their key was already delivered",
	})
	mFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_failed_total", Help: "Alerts that could not be delivered",
	}, []string{"channel"})
)

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

var _ alert.Dispatcher = (*Handler)(nil)

// Handler delivers one alert: SMS when the destination is a phone number, e-mail
// otherwise. Every delivered alert is logged under its key, so a redelivered alert is
// sent only once.
type Handler struct {
	Log    *zap.Logger
	Store  notification.Repo
	SMS    notification.SMSSender
	Email  notification.EmailSender
	Clock  notification.Clock
	Policy retry.Policy
}

func (h *Handler) Send(ctx context.Context, a alert.Alert) error {
	return h.HandleAlert(ctx, a)
}

func (h *Handler) HandleAlert(ctx context.Context, a alert.Alert) error {
	log := obs.WithTrace(ctx, h.Log).With(zap.String("key", a.Key), zap.String("check_id", a.CheckID))
	if a.Key == "" || a.Destination == "" {
		log.Warn("alert without key or destination; skipped")
		return nil
	}

	if _, err := h.Store.Get(ctx, a.Key); err == nil {
		mDuplicates.Inc()
		log.Debug("alert already delivered")
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup notification: %w", err)
	}

	channel := notification.ChannelEmail
	if alert.IsPhone(a.Destination) {
		channel = notification.ChannelSMS
	}

	send := func() error {
		if channel == notification.ChannelSMS {
			return h.SMS.SendSMS(ctx, a.Destination, a.Message)
		}
		return h.Email.Send(ctx, a.Destination, subject(a), emailBody(a))
	}
	if err := retry.Do(ctx, send, h.Policy); err != nil {
		mFailed.WithLabelValues(string(channel)).Inc()
		return &domain.DispatchError{Destination: a.Destination, Key: a.Key, Err: err}
	}
	mSent.WithLabelValues(string(channel)).Inc()

	n := &notification.Notification{
		ID:          a.Key,
		CheckID:     a.CheckID,
		UserID:      a.UserID,
		Channel:     channel,
		Destination: a.Destination,
		Message:     a.Message,
		SentAt:      h.Clock.Now(),
	}
	if err := h.Store.Create(ctx, n); err != nil {
		// the alert went out; a failed log write only risks a duplicate on redelivery
		log.Warn("record notification", zap.Error(err))
	}
	log.Info("alert delivered", zap.String("channel", string(channel)))
	return nil
}

func subject(a alert.Alert) string {
	return fmt.Sprintf("Check %s is %s", a.CheckID, strings.ToUpper(string(a.To)))
}

func emailBody(a alert.Alert) string {
	return fmt.Sprintf("Hello!\n\n%s\nChanged at %s.\n\n- Uptimer", a.Message, a.At.UTC().Format(time.RFC3339))
}
