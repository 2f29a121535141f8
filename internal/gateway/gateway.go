// Package gateway is the single HTTP entry point of the API. Every non-preflight call is
// authenticated, throttled, dispatched and recorded in the usage ledger, in that order.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/auth"
	"github.com/HanTheDev/content-automation-api/internal/cache"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/metrics"
	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/ratelimit"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	unmatchedRoute = "unmatched"
	ledgerTimeout  = 5 * time.Second
)

// Envelope is the body of every gateway response.
type Envelope struct {
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Code      string         `json:"code,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type Config struct {
	APIName        string
	AllowedOrigins []string
	MaxBodyBytes   int64
	HandlerTimeout time.Duration
}

type Gateway struct {
	cfg       Config
	auth      *auth.Authenticator
	limiter   ratelimit.Limiter
	table     *dispatch.Table
	ledger    store.UsageLedger
	replay    cache.Cache
	replayTTL time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*Gateway)

// WithReplayCache enables Idempotency-Key replay of successful POST responses.
func WithReplayCache(c cache.Cache, ttl time.Duration) Option {
	return func(g *Gateway) {
		g.replay = c
		g.replayTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(cfg Config, authn *auth.Authenticator, limiter ratelimit.Limiter, table *dispatch.Table, ledger store.UsageLedger, log zerolog.Logger, opts ...Option) *Gateway {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = time.Minute
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	g := &Gateway{
		cfg:     cfg,
		auth:    authn,
		limiter: limiter,
		table:   table,
		ledger:  ledger,
		now:     time.Now,
		log:     log.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// outcome is what one call produced, before it is written and recorded.
type outcome struct {
	route       string
	status      int
	body        []byte
	header      http.Header
	requestData map[string]any
	tokens      int
	cost        decimal.Decimal
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := g.now()
	requestID := uuid.NewString()

	g.setCORSHeaders(w, r.Header.Get("Origin"))
	w.Header().Set(HeaderRequestID, requestID)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	out := g.handle(w, r, requestID)

	for k, vs := range out.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(out.status)
	if _, err := w.Write(out.body); err != nil {
		g.log.Debug().Err(err).Str("request_id", requestID).Msg("write response")
	}

	elapsed := g.now().Sub(start)
	g.record(r, requestID, out, elapsed)

	metrics.RequestsTotal.WithLabelValues(r.Method, out.route, strconv.Itoa(out.status)).Inc()
	metrics.RequestDuration.WithLabelValues(r.Method, out.route).Observe(elapsed.Seconds())
	g.log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("route", out.route).
		Int("status", out.status).
		Dur("duration", elapsed).
		Str("request_id", requestID).
		Msg("request handled")
}

func (g *Gateway) handle(w http.ResponseWriter, r *http.Request, requestID string) outcome {
	out := outcome{route: unmatchedRoute, header: http.Header{}}
	ctx := r.Context()

	apiKey := auth.FromRequest(r)
	key, err := g.auth.Authenticate(ctx, apiKey)
	if err != nil {
		reason := "invalid"
		if apperr.IsKind(err, apperr.KindMissingCredential) {
			reason = "missing"
		}
		metrics.CredentialFailures.WithLabelValues(reason).Inc()
		return g.fail(out, requestID, err)
	}
	ctx = auth.WithKey(ctx, key)

	// buckets are per operation; suffix routes accept any prefix
	route, id, found := g.table.Resolve(r.Method, r.URL.Path)
	scope := unmatchedRoute
	if found {
		scope = route.Name
	}
	decision, err := g.limiter.Allow(ctx, apiKey, scope)
	if err != nil {
		return g.fail(out, requestID, fmt.Errorf("rate limiter: %w", err))
	}
	out.header.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	out.header.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		metrics.RateLimited.Inc()
		out.header.Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
		return g.fail(out, requestID, apperr.RateLimited())
	}

	body, requestData, bodyErr := g.readBody(w, r)
	out.requestData = requestData
	if !found {
		return g.fail(out, requestID, apperr.NotFound("Endpoint not found").
			With("availableEndpoints", g.table.Groups()))
	}
	out.route = route.Name
	if bodyErr != nil {
		return g.fail(out, requestID, bodyErr)
	}

	replayKey := g.replayKey(r, apiKey)
	if replayKey != "" {
		if cached, hit := g.lookupReplay(ctx, replayKey); hit {
			metrics.IdempotentReplays.Inc()
			out.status = http.StatusOK
			out.body = cached
			out.header.Set(HeaderReplayed, "true")
			return out
		}
	}

	res, err := g.run(ctx, route, &dispatch.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		ID:     id,
		Query:  r.URL.Query(),
		Body:   body,
	})
	if err != nil {
		return g.fail(out, requestID, err)
	}

	out.tokens, out.cost = res.TokensUsed, res.Cost
	encoded, err := json.Marshal(Envelope{Success: true, Data: res.Data, Message: res.Message})
	if err != nil {
		return g.fail(out, requestID, fmt.Errorf("encode response: %w", err))
	}
	out.status = http.StatusOK
	out.body = encoded
	if replayKey != "" {
		g.storeReplay(ctx, replayKey, encoded)
	}
	return out
}

// readBody reads the capped body and decodes it as a JSON object when present.
func (g *Gateway) readBody(w http.ResponseWriter, r *http.Request) ([]byte, map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, apperr.Validation("Request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, nil, apperr.Wrap(apperr.KindValidation, "Could not read request body", err)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return body, nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return body, nil, apperr.Wrap(apperr.KindValidation, "Request body must be a JSON object", err)
	}
	return body, data, nil
}

// run executes the handler detached from client cancellation so a dropped connection cannot
// leave a half-finished write. A panic becomes an internal error.
func (g *Gateway) run(ctx context.Context, route dispatch.Route, req *dispatch.Request) (res *dispatch.Result, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.HandlerTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p, stack: debug.Stack()}
		}
	}()

	res, err = route.Handler(ctx, req)
	if err == nil && res == nil {
		res = &dispatch.Result{}
	}
	return res, err
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// fail renders err as an error envelope. Internal causes are logged, never returned.
func (g *Gateway) fail(out outcome, requestID string, err error) outcome {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal {
		ev := g.log.Error().Err(err).Str("request_id", requestID).Time("timestamp", g.now())
		var p *panicError
		if errors.As(err, &p) {
			ev = ev.Bytes("stack", p.stack)
		}
		ev.Msg("internal error")
	}

	body, mErr := json.Marshal(Envelope{
		Success:   false,
		Error:     ae.Message,
		Code:      string(ae.Kind),
		RequestID: requestID,
		Details:   ae.Context,
	})
	if mErr != nil {
		g.log.Error().Err(mErr).Str("request_id", requestID).Msg("encode error envelope")
		body = []byte(`{"success":false,"error":"Internal server error","code":"INTERNAL_ERROR","requestId":"` + requestID + `"}`)
		ae = apperr.Internal(mErr)
	}
	out.status = ae.Kind.Status()
	out.body = body
	return out
}

// record appends the call to the usage ledger. A ledger failure never changes the response.
func (g *Gateway) record(r *http.Request, requestID string, out outcome, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), ledgerTimeout)
	defer cancel()

	entry := &models.UsageLogEntry{
		APIName:        g.cfg.APIName,
		Endpoint:       r.URL.Path,
		Method:         r.Method,
		RequestID:      requestID,
		RequestData:    out.requestData,
		ResponseStatus: out.status,
		TokensUsed:     out.tokens,
		Cost:           out.cost,
		DurationMs:     int(elapsed.Milliseconds()),
		CreatedAt:      g.now(),
	}
	if err := g.ledger.RecordUsage(ctx, entry); err != nil {
		metrics.LedgerFailures.Inc()
		g.log.Warn().Err(err).Str("request_id", requestID).Msg("record usage")
	}
}

// replayKey scopes an Idempotency-Key to the caller and path. Only POST calls replay.
func (g *Gateway) replayKey(r *http.Request, apiKey string) string {
	idem := r.Header.Get(HeaderIdempotencyKey)
	if g.replay == nil || r.Method != http.MethodPost || idem == "" {
		return ""
	}
	caller := strconv.FormatUint(xxhash.Sum64String(apiKey), 16)
	return cache.Key("idempotency", caller, r.URL.Path, idem)
}

func (g *Gateway) lookupReplay(ctx context.Context, key string) ([]byte, bool) {
	body, hit, err := g.replay.Get(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Msg("idempotency lookup")
		return nil, false
	}
	return body, hit
}

func (g *Gateway) storeReplay(ctx context.Context, key string, body []byte) {
	if err := g.replay.Set(context.WithoutCancel(ctx), key, body, g.replayTTL); err != nil {
		g.log.Warn().Err(err).Msg("idempotency store")
	}
}

// retryAfterSeconds rounds up and never advertises less than one second.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
