package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/obs/retry"
)

const twilioBaseURL = "https://api.twilio.com"

// MaxSMSLength is the longest body sent; longer messages are cut.
const MaxSMSLength = 1600

type TwilioConfig struct {
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	From       string        `mapstructure:"from"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// Twilio sends SMS through the Twilio Messages REST resource.
type Twilio struct {
	cfg    TwilioConfig
	client *http.Client
	log    *zap.Logger
}

func NewTwilio(cfg TwilioConfig, log *zap.Logger) *Twilio {
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Twilio{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		log:    log.With(zap.String("component", "notifier.twilio")),
	}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *Twilio) SendSMS(ctx context.Context, to, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return fmt.Errorf("sms: empty body")
	}
	if len(body) > MaxSMSLength {
		body = body[:MaxSMSLength]
	}

	form := url.Values{}
	form.Set("From", t.cfg.From)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(t.cfg.BaseURL, "/"), url.PathEscape(t.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var te twilioError
		err := fmt.Errorf("sms send: twilio status %d", resp.StatusCode)
		if json.Unmarshal(raw, &te) == nil && te.Message != "" {
			err = fmt.Errorf("sms send: twilio %d (%d): %s", resp.StatusCode, te.Code, te.Message)
		}
		// 4xx other than throttling will not succeed on a retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
		return err
	}
	t.log.Info("sms sent", zap.String("to", to))
	return nil
}

// LogSender stands in for SMS and e-mail delivery when no provider is configured.
type LogSender struct {
	Log *zap.Logger
}

func (l LogSender) SendSMS(_ context.Context, to, body string) error {
	l.Log.Info("sms (log only)", zap.String("to", to), zap.String("body", body))
	return nil
}

func (l LogSender) Send(_ context.Context, to, subject, body string) error {
	l.Log.Info("email (log only)", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}
