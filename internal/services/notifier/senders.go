package notifier

import (
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/domain/notification"
)

// NewSenders picks Twilio and SMTP when configured and falls back to logging the
// message otherwise, so a local run still shows what would have been sent.
func NewSenders(smtpCfg SMTPConfig, twilioCfg TwilioConfig, log *zap.Logger) (notification.SMSSender, notification.EmailSender) {
	fallback := LogSender{Log: log.With(zap.String("component", "notifier.log_sender"))}

	var sms notification.SMSSender = fallback
	if twilioCfg.Enabled() {
		sms = NewTwilio(twilioCfg, log)
	} else {
		log.Warn("twilio not configured; sms alerts are only logged")
	}

	var email notification.EmailSender = fallback
	if smtpCfg.Addr != "" {
		email = NewMailer(smtpCfg, log)
	} else {
		log.Warn("smtp not configured; email alerts are only logged")
	}
	return sms, email
}
