package web

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"inventory-console/internal/logger"
)

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	requestLogKey contextKey = "request_log"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE"
	corsHeaders = "Content-Type, X-Request-ID"
	corsExposed = "X-Request-ID, Retry-After"
	corsMaxAge  = "600"
)

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9\-]{1,64}$`)

// requestIDFromContext returns the request ID from ctx, or empty string.
func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// RequestID tags each request with an X-Request-ID, echoed on the response and
// carried by the request-scoped logger. A client-supplied ID is kept only when
// it is 1-64 letters, digits or hyphens; otherwise a UUID replaces it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = logger.ToContext(ctx, logger.L.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLog collects facts learned further down the chain, such as the
// authenticated user, so Logger can report them in the access line.
type requestLog struct {
	userID int
	role   string
}

// noteUser records the authenticated user on the request's access line.
func noteUser(ctx context.Context, claims *AuthClaims) {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok && claims != nil {
		rl.userID = claims.UserID
		rl.role = claims.Role
	}
}

// Logger writes one access line per request. Lines are keyed by the chi route
// pattern rather than the raw path, so draft and product IDs do not fan out
// into separate series. Server errors log at ERROR; auth failures, conflicts
// and throttling at WARN; health checks at DEBUG.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rl := &requestLog{}
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestLogKey, rl)))

		status := rec.Status()
		route := routePattern(r)
		attrs := []any{
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if rl.userID != 0 {
			attrs = append(attrs, "user_id", rl.userID, "role", rl.role)
		}
		logger.FromContext(r.Context()).Log(r.Context(), accessLevel(route, status), "request", attrs...)
	})
}

func accessLevel(route string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusConflict, status == http.StatusTooManyRequests:
		return slog.LevelWarn
	case route == "/api/health":
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// routePattern returns the matched chi pattern, or the raw path when no
// route matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// Recoverer turns a handler panic into a 500 JSON error and logs the stack.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			if err, ok := rv.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rv)
			}
			logger.FromContext(r.Context()).Error("panic",
				"value", rv,
				"route", routePattern(r),
				"stack", string(debug.Stack()),
			)
			writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects requests with 429 once the shared token bucket is empty.
// Retry-After tells the client when the next token is due. A nil limiter
// disables limiting.
func RateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Reserve()
			if wait := res.Delay(); !res.OK() || wait > 0 {
				res.Cancel()
				logger.FromContext(r.Context()).Warn("rate limit exceeded", "route", routePattern(r), "retry_in", wait.String())
				w.Header().Set("Retry-After", retryAfter(res.OK(), wait))
				writeError(w, r, "too many requests", "RATE_LIMITED", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter renders wait as whole seconds, rounding up. A limiter that will
// never refill gets a nominal one second.
func retryAfter(ok bool, wait time.Duration) string {
	if !ok || wait <= 0 || wait == rate.InfDuration {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(wait.Seconds())))
}

// CORS serves the browser console from the origins listed in ALLOWED_ORIGINS
// (comma-separated, compared without case or trailing slash). An empty list
// disables CORS. Listed origins get credentialed access and can read the
// X-Request-ID and Retry-After headers; their preflights are answered here
// and cached for ten minutes. Preflights from any other origin get 403.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	origins := originSet(allowedOrigins)
	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if !origins[normalizeOrigin(origin)] {
				if preflight {
					logger.FromContext(r.Context()).Warn("cors preflight from unlisted origin", "origin", origin)
					writeError(w, r, "origin not allowed", "CORS_ORIGIN_DENIED", http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposed)
			if preflight {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, o := range strings.Split(list, ",") {
		if n := normalizeOrigin(o); n != "" {
			set[n] = true
		}
	}
	return set
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

// statusRecorder captures the status code and body size for Logger.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
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
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Status is the code sent, or 200 when the handler wrote nothing.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// RequestBodyLimit caps request bodies at maxBytes. A declared Content-Length
// over the cap is refused with 413 up front; bodies that grow past it while
// streaming fail in decodeJSON with the same code.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
