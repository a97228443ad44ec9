// Package robot sends signed messages to a DingTalk group robot webhook.
package robot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	DefaultEndpoint       = "https://oapi.dingtalk.com/robot/send"
	DefaultConnectTimeout = 5 * time.Second
)

// Credential is the robot access token and its signing secret.
type Credential struct {
	AccessToken string
	Secret      string
}

// Dispatcher posts messages for one Credential. It is immutable after New
// and safe for concurrent use.
type Dispatcher struct {
	cred       Credential
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
	logger     zerolog.Logger
}

type dispatcherConfig struct {
	endpoint       string
	httpClient     *http.Client
	connectTimeout time.Duration
	timeout        time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

type Option func(*dispatcherConfig)

// WithEndpoint replaces DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(cfg *dispatcherConfig) { cfg.endpoint = endpoint }
}

// WithHTTPClient replaces the default client. The connect and request
// timeouts are then the caller's responsibility.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *dispatcherConfig) { cfg.httpClient = c }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(cfg *dispatcherConfig) { cfg.connectTimeout = d }
}

// WithTimeout bounds the whole exchange, including waiting for the response.
func WithTimeout(d time.Duration) Option {
	return func(cfg *dispatcherConfig) { cfg.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(cfg *dispatcherConfig) { cfg.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *dispatcherConfig) { cfg.logger = logger }
}

// New returns a Dispatcher bound to one robot. It performs no I/O and no
// validation.
func New(accessToken, secret string, opts ...Option) *Dispatcher {
	cfg := &dispatcherConfig{
		endpoint:       DefaultEndpoint,
		connectTimeout: DefaultConnectTimeout,
		now:            time.Now,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.connectTimeout, cfg.timeout)
	}

	return &Dispatcher{
		cred:       Credential{AccessToken: accessToken, Secret: secret},
		endpoint:   cfg.endpoint,
		httpClient: httpClient,
		now:        cfg.now,
		logger:     cfg.logger,
	}
}

// Credential returns the bound credential.
func (d *Dispatcher) Credential() Credential { return d.cred }

// signRequest stamps body with the current time. Every call yields a fresh
// timestamp and signature.
func (d *Dispatcher) signRequest(body []byte) SignedRequest {
	ts := Timestamp(d.now())
	sign := Sign(ts, d.cred.Secret)
	return SignedRequest{
		Timestamp: ts,
		Sign:      sign,
		URL:       signedURL(d.endpoint, d.cred.AccessToken, ts, sign),
		Body:      body,
	}
}

// Send validates msg, signs and posts it once, and returns the decoded
// response. Application errors reported in the body (a non-zero errcode)
// are returned as a normal Response. Failures of the exchange itself are
// *TransportError, and a body that is not a JSON object is *DecodeError.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (Response, error) {
	msg, err := Normalize(msg)
	if err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	body, err := Encode(msg)
	if err != nil {
		return nil, err
	}

	sr := d.signRequest(body)
	scrubber := newScrubber(d.cred.AccessToken, url.QueryEscape(d.cred.AccessToken), sr.Sign)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sr.URL, bytes.NewReader(sr.Body))
	if err != nil {
		return nil, &TransportError{Op: "creating request", Err: err, scrubber: scrubber}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "executing request", Err: err, scrubber: scrubber}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "reading response", Err: err, scrubber: scrubber}
	}

	var out Response
	if err := go_json.Unmarshal(data, &out); err != nil {
		return nil, &DecodeError{StatusCode: resp.StatusCode, Body: data, Err: err}
	}
	if out == nil {
		return nil, &DecodeError{StatusCode: resp.StatusCode, Body: data, Err: errors.New("response is not a JSON object")}
	}

	d.logger.Debug().
		Str("msgtype", string(msg.MsgType())).
		Int64("timestamp", sr.Timestamp).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("robot message sent")

	return out, nil
}

func (d *Dispatcher) SendText(ctx context.Context, content string, at At) (Response, error) {
	return d.Send(ctx, NewText(content, at))
}

func (d *Dispatcher) SendMarkdown(ctx context.Context, title, text string, at At) (Response, error) {
	return d.Send(ctx, NewMarkdown(title, text, at))
}

func (d *Dispatcher) SendActionCard(ctx context.Context, title, text, buttonTitle, buttonURL string) (Response, error) {
	return d.Send(ctx, NewActionCard(title, text, buttonTitle, buttonURL))
}

func (d *Dispatcher) SendMultiActionCard(ctx context.Context, title, text string, orientation Orientation, buttons ...Button) (Response, error) {
	return d.Send(ctx, NewMultiActionCard(title, text, orientation, buttons...))
}

func (d *Dispatcher) SendFeedCard(ctx context.Context, links ...FeedLink) (Response, error) {
	return d.Send(ctx, NewFeedCard(links...))
}

func (d *Dispatcher) SendLink(ctx context.Context, title, text, messageURL string, picURL *string) (Response, error) {
	return d.Send(ctx, NewLink(title, text, messageURL, picURL))
}
