package monitor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/check"
)

const defaultMaxBody = 64 << 10

// Prober performs exactly one HTTP request per call. Network failures, timeouts and
// unexpected status codes are down outcomes; only bad check configuration is an error.
type Prober struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	now       func() time.Time
}

func NewProber(client *http.Client, cfg ProbeConfig) *Prober {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "uptimer/1.0"
	}
	return &Prober{client: client, userAgent: ua, maxBody: maxBody, now: time.Now}
}

func (p *Prober) Probe(ctx context.Context, c check.Check) (check.Result, error) {
	u, err := c.URL()
	if err != nil {
		return check.Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, c.Method, u.String(), nil)
	if err != nil {
		return check.Result{}, domain.NewConfigError("request", err.Error())
	}
	req.Header.Set("User-Agent", p.userAgent)

	start := p.now()
	resp, err := p.client.Do(req)
	if err != nil {
		return check.Result{
			Outcome:   check.OutcomeDown,
			LatencyMs: p.now().Sub(start).Milliseconds(),
			Error:     classify(ctx, err),
		}, nil
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, p.maxBody)

	res := check.Result{
		Outcome:    check.OutcomeDown,
		StatusCode: resp.StatusCode,
		LatencyMs:  p.now().Sub(start).Milliseconds(),
	}
	if c.IsSuccessCode(resp.StatusCode) {
		res.Outcome = check.OutcomeUp
	}
	return res, nil
}

func classify(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
