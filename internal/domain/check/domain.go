package check

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NordCoder/Uptimer/internal/domain"
)

type State string

const (
	StateUnknown State = "unknown"
	StateUp      State = "up"
	StateDown    State = "down"
)

type Outcome string

const (
	OutcomeUp   Outcome = "up"
	OutcomeDown Outcome = "down"
)

func (o Outcome) State() State {
	if o == OutcomeUp {
		return StateUp
	}
	return StateDown
}

const (
	MinTimeoutSec = 1
	MaxTimeoutSec = 5
)

var (
	protocols = map[string]bool{"http": true, "https": true}
	methods   = map[string]bool{
		http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
		http.MethodDelete: true, http.MethodHead: true,
	}
)

type Check struct {
	ID           string `json:"id"`
	OwnerID      string `json:"userId"`
	Protocol     string `json:"protocol"`
	Hostname     string `json:"hostname"`
	Path         string `json:"path"`
	Method       string `json:"method"`
	SuccessCodes []int  `json:"successCodes"`
	TimeoutSec   int    `json:"timeoutSeconds"`

	State       State        `json:"state"`
	LastChecked time.Time    `json:"lastChecked"`
	LastChanged time.Time    `json:"lastChanged"`
	LastResult  *Result      `json:"lastResult,omitempty"`
	ConfigError string       `json:"configError,omitempty"`
	Pending     []Transition `json:"pendingAlerts,omitempty"`
	LastAlert   *AlertStatus `json:"lastAlert,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Result is the outcome of one probe.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	StatusCode int     `json:"statusCode,omitempty"`
	LatencyMs  int64   `json:"latencyMs"`
	Error      string  `json:"error,omitempty"`
}

// Transition is a persisted state change that still has to be alerted.
type Transition struct {
	Key  string    `json:"key"`
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

type AlertStatus struct {
	Key       string    `json:"key"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	At        time.Time `json:"at"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
}

// Clone returns a deep copy so snapshots never share slices with the registry.
func (c Check) Clone() Check {
	out := c
	out.SuccessCodes = append([]int(nil), c.SuccessCodes...)
	if c.LastResult != nil {
		r := *c.LastResult
		out.LastResult = &r
	}
	if c.LastAlert != nil {
		a := *c.LastAlert
		out.LastAlert = &a
	}
	if c.Pending != nil {
		out.Pending = append([]Transition(nil), c.Pending...)
	}
	return out
}

func (c Check) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c Check) IsSuccessCode(code int) bool {
	for _, sc := range c.SuccessCodes {
		if sc == code {
			return true
		}
	}
	return false
}

// URL validates the probe target and returns it.
func (c Check) URL() (*url.URL, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	path := c.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse(c.Protocol + "://" + c.Hostname + path)
	if err != nil {
		return nil, domain.NewConfigError("url", err.Error())
	}
	if u.Host == "" {
		return nil, domain.NewConfigError("hostname", "empty host")
	}
	return u, nil
}

func (c Check) Target() string {
	path := c.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.Method + " " + c.Protocol + "://" + c.Hostname + path
}

func (c Check) Validate() error {
	if !protocols[c.Protocol] {
		return domain.NewConfigError("protocol", "must be http or https")
	}
	host := strings.TrimSpace(c.Hostname)
	if host == "" || host != c.Hostname || strings.ContainsAny(host, "/?#@ ") {
		return domain.NewConfigError("hostname", "must be a bare host[:port]")
	}
	if strings.ContainsAny(c.Path, " \t\n") {
		return domain.NewConfigError("path", "must not contain whitespace")
	}
	if !methods[c.Method] {
		return domain.NewConfigError("method", "must be one of GET, POST, PUT, DELETE, HEAD")
	}
	if c.TimeoutSec < MinTimeoutSec || c.TimeoutSec > MaxTimeoutSec {
		return domain.NewConfigError("timeoutSeconds", "must be between 1 and 5")
	}
	if len(c.SuccessCodes) == 0 {
		return domain.NewConfigError("successCodes", "must not be empty")
	}
	for _, sc := range c.SuccessCodes {
		if sc < 100 || sc > 599 {
			return domain.NewConfigError("successCodes", "must be HTTP status codes")
		}
	}
	return nil
}

// Next is the transition table. A first observation from unknown never alerts.
func Next(prev State, o Outcome) (next State, changed, alert bool) {
	next = o.State()
	switch prev {
	case StateUnknown, "":
		return next, true, false
	case next:
		return next, false, false
	default:
		return next, true, true
	}
}

// Reset drops all observed state. Transitions already recorded in Pending happened
// before the reset and are kept so they are still delivered.
func (c *Check) Reset(now time.Time) {
	c.State = StateUnknown
	c.LastChecked = time.Time{}
	c.LastChanged = time.Time{}
	c.LastResult = nil
	c.ConfigError = ""
	c.UpdatedAt = now
}
