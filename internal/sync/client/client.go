// Package client implements the HTTP side of the sync protocol: form
// encoded requests, deflate JSON responses, and the session token
// handshake.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mnemohq/mnemo/internal/config"
	"github.com/mnemohq/mnemo/internal/sync"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// HTTPProxy talks to a remote sync server over HTTP. It implements
// sync.RemoteProxy. Login must succeed before any other call; the
// session token it returns rides along as the k form field.
type HTTPProxy struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	token string
}

// NewHTTPProxy creates a proxy for the given endpoint, normally taken
// from config.SyncConfig. If logger is nil, a default logger will be
// used.
func NewHTTPProxy(cfg config.SyncConfig, logger *slog.Logger) *HTTPProxy {
	if cfg.Endpoint == "" {
		panic("sync endpoint cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &HTTPProxy{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("component", "sync_client")),
	}
}

var _ sync.RemoteProxy = (*HTTPProxy)(nil)

// Login implements sync.RemoteProxy.Login.
func (p *HTTPProxy) Login(ctx context.Context, username, password string) (float64, error) {
	form := url.Values{}
	form.Set("u", username)
	form.Set("p", password)

	var resp wire.LoginResponse
	if err := p.post(ctx, "/sync/login", form, &resp); err != nil {
		return 0, err
	}
	if err := checkServerStatus(resp.Status); err != nil {
		return 0, err
	}
	p.token = resp.Token
	return resp.Timestamp, nil
}

// GetDecks implements sync.RemoteProxy.GetDecks.
func (p *HTTPProxy) GetDecks(ctx context.Context) (map[string]wire.DeckStatus, error) {
	var resp wire.DecksResponse
	if err := p.post(ctx, "/sync/getDecks", p.form(), &resp); err != nil {
		return nil, err
	}
	if err := checkServerStatus(resp.Status); err != nil {
		return nil, err
	}
	return resp.Decks, nil
}

// CreateDeck implements sync.RemoteProxy.CreateDeck.
func (p *HTTPProxy) CreateDeck(ctx context.Context, name string) error {
	form := p.form()
	form.Set("name", name)

	var resp wire.StatusResponse
	if err := p.post(ctx, "/sync/createDeck", form, &resp); err != nil {
		return err
	}
	return checkServerStatus(resp.Status)
}

// Summary implements sync.RemoteProxy.Summary.
func (p *HTTPProxy) Summary(ctx context.Context, lastSync float64) (*wire.Summary, error) {
	form := p.form()
	if err := setEncodedField(form, "lastSync", lastSync); err != nil {
		return nil, err
	}

	var sum wire.Summary
	if err := p.post(ctx, "/sync/summary", form, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// ApplyPayload implements sync.RemoteProxy.ApplyPayload.
func (p *HTTPProxy) ApplyPayload(ctx context.Context, payload *wire.Payload) (*wire.Payload, error) {
	form := p.form()
	if err := setEncodedField(form, "payload", payload); err != nil {
		return nil, err
	}

	var reply wire.Payload
	if err := p.post(ctx, "/sync/applyPayload", form, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// FullUpload implements sync.RemoteProxy.FullUpload.
func (p *HTTPProxy) FullUpload(ctx context.Context, dump *wire.FullDump) error {
	form := p.form()
	if err := setEncodedField(form, "payload", dump); err != nil {
		return err
	}

	var resp wire.StatusResponse
	if err := p.post(ctx, "/sync/fullup", form, &resp); err != nil {
		return err
	}
	return checkServerStatus(resp.Status)
}

// FullDownload implements sync.RemoteProxy.FullDownload.
func (p *HTTPProxy) FullDownload(ctx context.Context) (*wire.FullDump, error) {
	var dump wire.FullDump
	if err := p.post(ctx, "/sync/fulldown", p.form(), &dump); err != nil {
		return nil, err
	}
	return &dump, nil
}

// form returns the base form fields every authenticated call carries.
func (p *HTTPProxy) form() url.Values {
	form := url.Values{}
	if p.token != "" {
		form.Set("k", p.token)
	}
	return form
}

// post sends a form-encoded request and decodes the deflate JSON
// response into out.
func (p *HTTPProxy) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+path, strings.NewReader(form.Encode()))
	if err != nil {
		return syncErr(sync.StatusError, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return syncErr(sync.StatusError, fmt.Errorf("request to %s failed: %w", path, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.logger.Error("sync server returned an error",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return syncErr(httpStatus(resp.StatusCode),
			fmt.Errorf("%s returned HTTP %d", path, resp.StatusCode))
	}

	if err := wire.DecodeResponse(resp.Body, out); err != nil {
		return syncErr(sync.StatusError, fmt.Errorf("failed to decode %s response: %w", path, err))
	}
	return nil
}

// setEncodedField deflate+base64 encodes v into the named form field
// and marks the encoding with the base64 sibling flag.
func setEncodedField(form url.Values, name string, v any) error {
	encoded, err := wire.EncodeField(v)
	if err != nil {
		return syncErr(sync.StatusError, err)
	}
	form.Set(name, encoded)
	form.Set("base64", "true")
	return nil
}

// checkServerStatus maps a response envelope status to a categorized
// error, or nil for ok.
func checkServerStatus(status string) error {
	switch status {
	case wire.ServerStatusOK:
		return nil
	case wire.ServerStatusBadAuth:
		return syncErr(sync.StatusInvalidCredentials, fmt.Errorf("server status %q", status))
	case wire.ServerStatusOldVersion:
		return syncErr(sync.StatusOldClient, fmt.Errorf("server status %q", status))
	case wire.ServerStatusBusy:
		return syncErr(sync.StatusTooBusy, fmt.Errorf("server status %q", status))
	default:
		return syncErr(sync.StatusError, fmt.Errorf("server status %q", status))
	}
}

// httpStatus maps an HTTP error code to a sync status.
func httpStatus(code int) sync.Status {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return sync.StatusInvalidCredentials
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return sync.StatusTooBusy
	default:
		return sync.StatusError
	}
}

func syncErr(code sync.Status, err error) error {
	return &sync.SyncError{Code: code, Err: err}
}
