package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
)

type CtxKey string

const (
	CtxKeyLimit  CtxKey = "limit"
	CtxKeyOffset CtxKey = "offset"
	CtxKeyCaller CtxKey = "caller"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

func Paginate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limitStr := r.URL.Query().Get("limit")
		offsetStr := r.URL.Query().Get("offset")

		var err error
		limit := DefaultPageLimit
		if limitStr != "" {
			limit, err = strconv.Atoi(limitStr)
			if err != nil || limit < 1 {
				limit = DefaultPageLimit
			}
		}
		if limit > MaxPageLimit {
			limit = MaxPageLimit
		}

		offset := 0
		if offsetStr != "" {
			offset, err = strconv.Atoi(offsetStr)
			if err != nil || offset < 0 {
				offset = 0
			}
		}

		log.Debug().Int("limit", limit).Int("offset", offset).Send()
		ctx := context.WithValue(r.Context(), CtxKeyLimit, limit)
		ctx = context.WithValue(ctx, CtxKeyOffset, offset)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pageFrom(ctx context.Context) (limit, offset int) {
	limit, ok := ctx.Value(CtxKeyLimit).(int)
	if !ok {
		limit = DefaultPageLimit
	}
	offset, _ = ctx.Value(CtxKeyOffset).(int)
	return limit, offset
}

type EmployeeAccess interface {
	Login(ctx context.Context, username, password string) (employee.Employee, error)
}

// Authenticate resolves basic auth credentials to the caller of every request below it. Usernames that keep failing
// are throttled by the limiter before their password is checked again.
func Authenticate(ea EmployeeAccess, limiter *AuthLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()

			if !ok {
				authErr(w)
				return
			}

			if limiter != nil && limiter.Blocked(username) {
				log.Warn().Str("username", username).Msg("too many failed logins")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			e, err := ea.Login(r.Context(), username, password)
			if err != nil {
				if limiter != nil {
					limiter.Fail(username)
				}
				authErr(w)
				return
			}

			ctx := context.WithValue(r.Context(), CtxKeyCaller, core.Caller{Username: e.Username, IsAdmin: e.IsAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := CallerFrom(r.Context())

		if !caller.Authenticated() {
			authErr(w)
			return
		}
		if !caller.IsAdmin {
			Render(w, r, ErrFrom(core.Unauthorized("Forbidden", "only administrators may do this")))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CallerFrom returns the caller Authenticate stored on the context, or the anonymous caller.
func CallerFrom(ctx context.Context) core.Caller {
	c, _ := ctx.Value(CtxKeyCaller).(core.Caller)
	return c
}

func authErr(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
