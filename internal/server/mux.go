// internal/server/mux.go
// Package server implements the HTTP handlers and routing for the vidshare API.
// It translates requests into service calls and answers every request with
// the {statusCode, data, message, success} envelope.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vidshare/vidshare-api-go/internal/auth"
	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/metrics"
	"github.com/vidshare/vidshare-api-go/internal/model"
	"github.com/vidshare/vidshare-api-go/internal/reqctx"
	"github.com/vidshare/vidshare-api-go/internal/schema"
	"github.com/vidshare/vidshare-api-go/internal/service"
	"github.com/vidshare/vidshare-api-go/internal/storage"
	"github.com/vidshare/vidshare-api-go/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// APIPrefix is the path prefix of every resource route.
const APIPrefix = "/api/v1"

// Defaults applied to zero Options fields.
const (
	DefaultMaxUploadSize  = 512 << 20
	DefaultIdempotencyTTL = 24 * time.Hour
	maxJSONBody           = 1 << 20
)

// Options configures the HTTP handler.
type Options struct {
	Services  *service.Services
	Store     storage.Store // Readiness checks and idempotency records
	Verifier  auth.Verifier
	Validator *schema.Validator
	Logger    *slog.Logger

	UploadDir          string // Where multipart files are spooled; os.TempDir() when empty
	MaxUploadSize      int64  // Whole multipart request, in bytes
	CORSAllowedOrigins []string
	RateLimitPerMinute int // Per client IP; 0 disables rate limiting
	IdempotencyTTL     time.Duration
}

// Mux handles HTTP requests for the vidshare API.
type Mux struct {
	mux     *http.ServeMux
	opts    Options
	svc     *service.Services
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New builds the routed handler with its middleware chain.
func New(opts Options) (http.Handler, error) {
	if opts.Services == nil || opts.Store == nil || opts.Verifier == nil {
		return nil, errors.New("server: services, store and verifier are required")
	}
	if opts.Validator == nil {
		v, err := schema.NewValidator()
		if err != nil {
			return nil, err
		}
		opts.Validator = v
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = DefaultIdempotencyTTL
	}

	m := &Mux{
		mux:     http.NewServeMux(),
		opts:    opts,
		svc:     opts.Services,
		log:     opts.Logger,
		metrics: metrics.NewMetrics(),
	}

	// Health endpoints
	m.mux.HandleFunc("GET /healthz", m.handleHealthz)
	m.mux.HandleFunc("GET /readyz", m.handleReadyz)
	m.mux.Handle("GET /metrics", promhttp.Handler())

	// Videos
	m.route("GET /videos", m.handleListVideos)
	m.route("POST /videos", m.handlePublishVideo)
	m.route("GET /videos/{videoId}", m.handleGetVideo)
	m.route("PATCH /videos/{videoId}", m.handleUpdateVideo)
	m.route("DELETE /videos/{videoId}", m.handleDeleteVideo)
	m.route("PATCH /videos/{videoId}/thumbnail", m.handleReplaceThumbnail)
	m.route("PATCH /videos/toggle/publish/{videoId}", m.handleTogglePublish)

	// Comments
	m.route("GET /comments/{videoId}", m.handleListComments)
	m.route("POST /comments/{videoId}", m.idempotent(m.handleAddComment))
	m.route("PATCH /comments/c/{commentId}", m.handleUpdateComment)
	m.route("DELETE /comments/c/{commentId}", m.handleDeleteComment)

	// Tweets
	m.route("POST /tweets", m.idempotent(m.handleCreateTweet))
	m.route("GET /tweets/user/{userId}", m.handleListTweets)
	m.route("PATCH /tweets/{tweetId}", m.handleUpdateTweet)
	m.route("DELETE /tweets/{tweetId}", m.handleDeleteTweet)

	// Playlists
	m.route("POST /playlist", m.idempotent(m.handleCreatePlaylist))
	m.route("GET /playlist/user/{userId}", m.handleListPlaylists)
	m.route("GET /playlist/{playlistId}", m.handleGetPlaylist)
	m.route("PATCH /playlist/{playlistId}", m.handleUpdatePlaylist)
	m.route("DELETE /playlist/{playlistId}", m.handleDeletePlaylist)
	m.route("PATCH /playlist/add/{videoId}/{playlistId}", m.handleAddToPlaylist)
	m.route("PATCH /playlist/remove/{videoId}/{playlistId}", m.handleRemoveFromPlaylist)

	// Likes
	m.route("POST /likes/toggle/v/{videoId}", m.handleToggleLike(model.LikeVideo, "videoId"))
	m.route("POST /likes/toggle/c/{commentId}", m.handleToggleLike(model.LikeComment, "commentId"))
	m.route("POST /likes/toggle/t/{tweetId}", m.handleToggleLike(model.LikeTweet, "tweetId"))
	m.route("GET /likes/videos", m.handleLikedVideos)

	m.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		m.writeErrorDef(w, r, errordefs.New(errordefs.VS_NOT_FOUND, "Route not found"))
	})

	var h http.Handler = m.mux
	if opts.RateLimitPerMinute > 0 {
		h = httprate.Limit(opts.RateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				m.writeErrorDef(w, r, errordefs.New(errordefs.VS_RATE_LIMIT, "Too many requests"))
			}),
		)(h)
	}
	h = m.withRequestLog(h)
	if len(opts.CORSAllowedOrigins) == 0 {
		// No origins configured: send no CORS headers, so browsers deny cross-origin calls.
		return h, nil
	}
	h = cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Correlation-Id"},
		ExposedHeaders:   []string{"X-Correlation-Id", "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	})(h)
	return h, nil
}

// route registers an authenticated API handler under APIPrefix.
// Each call gets a span and request metrics labelled with its pattern.
func (m *Mux) route(pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	full := method + " " + APIPrefix + path
	m.mux.Handle(full, m.instrument(full, m.authenticate(h)))
}

// requestLog is shared between the outer logging middleware and the
// handlers it wraps, so the log line can carry the user and the error.
type requestLog struct {
	userID string
	err    error
}

type requestLogKey struct{}

func logFrom(ctx context.Context) *requestLog {
	rl, _ := ctx.Value(requestLogKey{}).(*requestLog)
	return rl
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// withRequestLog assigns the correlation id and logs one line per request.
func (m *Mux) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-Id", correlationID)

		rl := &requestLog{}
		ctx := reqctx.WithCorrelationID(r.Context(), correlationID)
		ctx = context.WithValue(ctx, requestLogKey{}, rl)
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r.WithContext(ctx))

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		m.logRequest(r.WithContext(ctx), rec.status, time.Since(start), correlationID, rl)
	})
}

// logRequest logs request details
func (m *Mux) logRequest(r *http.Request, status int, duration time.Duration, correlationID string, rl *requestLog) {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("user_agent", r.UserAgent()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("correlation_id", correlationID),
	}
	if rl.userID != "" {
		attrs = append(attrs, slog.String("user_id", rl.userID))
	}

	switch {
	case rl.err != nil && status >= http.StatusInternalServerError:
		attrs = append(attrs, slog.String("error", rl.err.Error()))
		m.log.LogAttrs(r.Context(), slog.LevelError, "request completed with error", attrs...)
	case rl.err != nil:
		attrs = append(attrs, slog.String("error", rl.err.Error()))
		m.log.LogAttrs(r.Context(), slog.LevelWarn, "request rejected", attrs...)
	default:
		m.log.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
	}
}

// instrument wraps a route in a span and records request metrics.
func (m *Mux) instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := telemetry.Tracer().Start(r.Context(), pattern)
		defer span.End()
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", pattern),
			attribute.String("correlation_id", reqctx.CorrelationID(ctx)),
		)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		status := http.StatusText(rec.status)
		m.metrics.HTTPRequestTotal.WithLabelValues(r.Method, pattern, status).Inc()
		m.metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern, status).Observe(time.Since(start).Seconds())
	})
}

// authenticate verifies the bearer token and records the user.
func (m *Mux) authenticate(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err == nil {
			var userID string
			if userID, err = m.opts.Verifier.Verify(ctx, token); err == nil {
				if err := m.opts.Store.EnsureAccount(ctx, userID); err != nil {
					m.writeErrorDef(w, r, errordefs.Wrap(errordefs.VS_INTERNAL, "Internal server error", err))
					return
				}
				if rl := logFrom(ctx); rl != nil {
					rl.userID = userID
				}
				next(w, r.WithContext(reqctx.WithUserID(ctx, userID)))
				return
			}
		}

		message := "Unauthorized request"
		if errors.Is(err, auth.ErrExpiredToken) {
			message = "Access token expired"
		} else if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrBadSubject) {
			message = "Invalid access token"
		}
		m.writeErrorDef(w, r, errordefs.Wrap(errordefs.VS_AUTHN, message, err))
	})
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess writes a successful envelope.
func (m *Mux) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	writeJSON(w, statusCode, model.NewAPIResponse(statusCode, data, message))
}

// writeError maps any error onto the taxonomy and writes its envelope.
// Causes are logged by the request log, never sent to the client.
func (m *Mux) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := errordefs.As(err)
	if e == nil {
		e = errordefs.Wrap(errordefs.VS_INTERNAL, "Internal server error", err)
	}
	m.writeErrorDef(w, r, e)
}

// writeErrorDef writes an error response using the error definitions package
func (m *Mux) writeErrorDef(w http.ResponseWriter, r *http.Request, err *errordefs.Error) {
	if rl := logFrom(r.Context()); rl != nil {
		rl.err = err
	}
	resp := model.NewAPIResponse(err.HTTPStatus, err.Details, err.Message)
	resp.Code = string(err.Code)
	resp.CorrelationID = reqctx.CorrelationID(r.Context())
	writeJSON(w, err.HTTPStatus, resp)
}

// decodeBody validates a JSON body against a schema and decodes it into v.
func (m *Mux) decodeBody(w http.ResponseWriter, r *http.Request, schemaName string, v interface{}) error {
	body, err := readBody(w, r, maxJSONBody)
	if err != nil {
		return err
	}
	if err := m.opts.Validator.Validate(schemaName, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errordefs.Wrap(errordefs.VS_BAD_REQUEST, "Invalid JSON body", err)
	}
	return nil
}

// handleHealthz handles liveness health check requests
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	m.writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "ok")
}

// handleReadyz reports whether the store is reachable.
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := m.opts.Store.Ping(ctx); err != nil {
		m.writeErrorDef(w, r, errordefs.Wrap(errordefs.VS_UNAVAILABLE, "not ready", err))
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, "ok")
}
