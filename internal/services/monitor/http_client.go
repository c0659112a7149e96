package monitor

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/NordCoder/Uptimer/internal/domain/check"
)

type ProbeConfig struct {
	UserAgent    string `mapstructure:"user_agent"`
	VerifyTLS    bool   `mapstructure:"verify_tls"`
	BlockPrivate bool   `mapstructure:"block_private"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// NewHTTPClient builds the shared probe client. Per-check timeouts come from the request
// context; the client-level timeout is only an upper bound. Redirects are never followed.
func NewHTTPClient(cfg ProbeConfig) *http.Client {
	upper := time.Duration(check.MaxTimeoutSec+1) * time.Second

	var client *http.Client
	if cfg.BlockPrivate {
		conf := safeurl.GetConfigBuilder().
			SetTimeout(upper).
			SetAllowedSchemes("http", "https").
			SetAllowedPorts(80, 443).
			Build()
		client = safeurl.Client(conf).Client
	} else {
		client = &http.Client{
			Timeout: upper,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   upper,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   upper,
				ExpectContinueTimeout: 1 * time.Second,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.VerifyTLS,
					MinVersion:         tls.VersionTLS12,
				},
			},
		}
	}

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = otelhttp.NewTransport(base)
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}
