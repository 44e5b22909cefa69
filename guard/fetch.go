// Package guard mediates server-initiated HTTP(S) requests to
// untrusted URLs. Every hop of a fetch, including every redirect
// target, is re-validated against protocol, hostname, allowlist and
// IP-range checks before the transport is allowed to touch it.
package guard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// MaxRedirects bounds one guarded fetch: the origin request plus up
	// to this many redirect hops. Exceeding it is terminal.
	MaxRedirects = 5

	// DefaultTimeout applies per hop, not to the whole chain.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "fetchguard/1.0 (+https://github.com/quailyquaily/fetchguard)"
)

// TransportFunc performs one HTTP hop. Implementations must not follow
// redirects themselves; the orchestrator has to see every 3xx.
type TransportFunc func(req *http.Request) (*http.Response, error)

var noRedirectClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// DefaultTransport issues a single hop with redirect following disabled.
func DefaultTransport(req *http.Request) (*http.Response, error) {
	return noRedirectClient.Do(req)
}

// Options configures one guarded fetch. The zero value is usable: system
// resolver, redirect-blind default transport, process-wide allowlist,
// 30s per-hop timeout.
type Options struct {
	// Timeout applies to each hop independently.
	Timeout time.Duration

	// Headers are added to every hop's request.
	Headers map[string]string

	UserAgent string

	// Allowlist overrides the process-wide allowlist when non-nil. An
	// explicitly empty slice disables the name gate for this fetch.
	Allowlist []HostPattern

	LookupHost LookupHostFunc
	Transport  TransportFunc

	Audit  AuditSink
	Logger *slog.Logger
}

// Result of a successful guarded fetch. FinalURL may differ from the
// requested URL after redirects. The response body is open; Close
// releases the hop's resources.
type Result struct {
	Response  *http.Response
	FinalURL  string
	Redirects int
}

// Fetch performs a guarded GET: validate the URL, issue one hop, and on
// a 3xx re-validate the redirect target and loop, up to MaxRedirects.
// The terminal response is returned whatever its status; HTTP-level
// errors (>=400) are the caller's to interpret. Every rejection is an
// *UnsafeURLError.
func Fetch(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = DefaultTransport
	}
	allow := opts.Allowlist
	if allow == nil {
		allow = DefaultAllowlist()
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fetchID := newFetchID()
	current := strings.TrimSpace(rawURL)

	for hop := 0; hop <= MaxRedirects; hop++ {
		if err := ValidateURL(ctx, current, allow, opts.LookupHost); err != nil {
			reason := err.Error()
			var ue *UnsafeURLError
			if errors.As(err, &ue) {
				reason = ue.Reason
			}
			log.Warn("fetch_denied", "fetch_id", fetchID, "hop", hop, "url", current, "reason", reason)
			emitAudit(ctx, opts.Audit, fetchID, hop, current, DecisionDeny, reason, 0)
			return nil, err
		}

		resp, err := doHop(ctx, current, transport, timeout, opts.Headers, userAgent)
		if err != nil {
			log.Warn("fetch_hop_error", "fetch_id", fetchID, "hop", hop, "url", current, "error", err.Error())
			emitAudit(ctx, opts.Audit, fetchID, hop, current, DecisionDeny, "transport: "+err.Error(), 0)
			return nil, fmt.Errorf("fetch %q: %w", current, err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			loc := strings.TrimSpace(resp.Header.Get("Location"))
			status := resp.StatusCode
			drainBody(resp)
			if loc == "" {
				emitAudit(ctx, opts.Audit, fetchID, hop, current, DecisionDeny, "redirect without a Location header", status)
				return nil, unsafeURL(current, "redirect without a Location header")
			}
			next, err := resolveRedirect(current, loc)
			if err != nil {
				emitAudit(ctx, opts.Audit, fetchID, hop, current, DecisionDeny, "unparseable redirect target", status)
				return nil, unsafeURL(current, "unparseable redirect target")
			}
			log.Debug("fetch_redirect", "fetch_id", fetchID, "hop", hop, "url", current, "location", next, "status", status)
			emitAudit(ctx, opts.Audit, fetchID, hop, current, DecisionRedirect, "redirect to "+next, status)
			current = next
			continue
		}

		log.Debug("fetch_done", "fetch_id", fetchID, "hop", hop, "url", current, "status", resp.StatusCode)
		emitAudit(ctx, opts.Audit, fetchID, hop, current, DecisionFinal, "", resp.StatusCode)
		return &Result{Response: resp, FinalURL: current, Redirects: hop}, nil
	}

	reason := fmt.Sprintf("too many redirects (max %d)", MaxRedirects)
	log.Warn("fetch_denied", "fetch_id", fetchID, "url", current, "reason", reason)
	emitAudit(ctx, opts.Audit, fetchID, MaxRedirects+1, current, DecisionDeny, reason, 0)
	return nil, unsafeURL(rawURL, reason)
}

// doHop issues one request under its own timeout. The cancel is handed
// to the response body so the context stays alive while the caller
// reads it.
func doHop(ctx context.Context, rawURL string, transport TransportFunc, timeout time.Duration, headers map[string]string, userAgent string) (*http.Response, error) {
	hopCtx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(hopCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	hasUserAgent := false
	for k, v := range headers {
		key := strings.TrimSpace(k)
		if key == "" || strings.EqualFold(key, "content-length") {
			continue
		}
		req.Header.Set(key, strings.TrimSpace(v))
		if strings.EqualFold(key, "user-agent") {
			hasUserAgent = true
		}
	}
	if !hasUserAgent {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := transport(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// drainBody discards a redirect response's body so the connection can
// be reused, then closes it.
func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// resolveRedirect computes the absolute next URL from a Location value
// relative to the current hop's URL.
func resolveRedirect(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func emitAudit(ctx context.Context, sink AuditSink, fetchID string, hop int, rawURL string, d FetchDecision, reason string, status int) {
	if sink == nil {
		return
	}
	e := newAuditEvent(fetchID, hop, rawURL, d)
	e.Reason = reason
	e.Status = status
	_ = sink.Emit(ctx, e)
}
