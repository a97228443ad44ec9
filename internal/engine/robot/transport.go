package robot

import (
	"net"
	"net/http"
	"time"
)

const userAgent = "dingbot-robot/1.0"

type robotTransport struct {
	base http.RoundTripper
}

var _ http.RoundTripper = (*robotTransport)(nil)

func (t *robotTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}

// newHTTPClient bounds the connect phase (dial and TLS handshake) by
// connectTimeout, or DefaultConnectTimeout when it is not positive. A zero
// timeout leaves the rest of the exchange unbounded.
func newHTTPClient(connectTimeout, timeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	base.TLSHandshakeTimeout = connectTimeout

	return &http.Client{
		Transport: &robotTransport{base: base},
		Timeout:   timeout,
	}
}
