package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"neoShop/models"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const ClientCookie = "clientId"

type ctxKey int

const (
	clientIdKey ctxKey = iota
	userKey
)

// ClientId returns the storage partition of the calling client.
func ClientId(ctx context.Context) string {
	id, _ := ctx.Value(clientIdKey).(string)
	return id
}

func CurrentUser(ctx context.Context) models.User {
	u, _ := ctx.Value(userKey).(models.User)
	return u
}

func WithClientId(ctx context.Context, clientId string) context.Context {
	return context.WithValue(ctx, clientIdKey, clientId)
}

// ClientMiddleware makes sure every request carries a client id cookie, issuing a fresh
// one on first contact.
func (h *Handler) ClientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var clientId string
		if c, err := r.Cookie(ClientCookie); err == nil {
			if _, e := uuid.Parse(c.Value); e == nil {
				clientId = c.Value
			}
		}
		if clientId == "" {
			clientId = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ClientCookie,
				Value:    clientId,
				Path:     "/",
				Expires:  time.Now().Add(365 * 24 * time.Hour),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(WithClientId(r.Context(), clientId)))
	})
}

func TimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware resolves the bearer token, falling back to the one stored with the
// client's session.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := bearerToken(r)
		if token == "" {
			var err error
			if token, err = h.us.SessionToken(ctx, ClientId(ctx)); err != nil {
				WriteErrorResponse(w, err)
				return
			}
		}
		if token == "" {
			WriteErrorResponse(w, fmt.Errorf("%w: sign in required", models.ErrUnauthorized))
			return
		}
		user, err := h.us.Authenticate(ctx, token)
		if err != nil {
			WriteErrorResponse(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, user)))
	})
}

// AdminMiddleware must run after AuthMiddleware.
func (h *Handler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CurrentUser(r.Context()).IsAdmin() {
			WriteErrorResponse(w, fmt.Errorf("%w: admin access required", models.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) ErrorHandleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic occurred", "panic", rec, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong, contact the service administration"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

const maxTrackedClients = 10000

// LoginLimiter throttles authentication attempts per remote IP.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewLoginLimiter(perSecond float64, burst int) *LoginLimiter {
	return &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *LoginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			clear(l.limiters)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim.Allow()
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *LoginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)
		if !l.allow(ip) {
			slog.Warn("login rate limit exceeded", "ip", ip)
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many attempts, try again shortly"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
