package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cradoe/walletguard/internal/cache"
	"github.com/cradoe/walletguard/internal/config"
	"github.com/cradoe/walletguard/internal/context"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/response"

	"github.com/pascaldekloe/jwt"
	"github.com/tomasen/realip"
)

const (
	// rateLimitWindow/rateLimitMax bound requests per client IP. This is a
	// transport guard, separate from the engine's per-identity cooldown.
	rateLimitWindow = time.Minute
	rateLimitMax    = 120
)

type Middleware struct {
	errHandler *errHandler.ErrorHandler
	logger     *slog.Logger
	Identities repository.IdentityRepository
	cache      *cache.Cache
	config     *config.Config
}

func New(errHandler *errHandler.ErrorHandler, logger *slog.Logger, identities repository.IdentityRepository, cache *cache.Cache, config *config.Config) *Middleware {
	return &Middleware{
		errHandler: errHandler,
		logger:     logger,
		Identities: identities,
		cache:      cache,
		config:     config,
	}
}

func (mid *Middleware) RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err != nil {
				mid.errHandler.ServerError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (mid *Middleware) LogAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := response.NewMetricsResponseWriter(w)
		next.ServeHTTP(mw, r)

		var (
			ip     = realip.FromRequest(r)
			method = r.Method
			url    = r.URL.String()
			proto  = r.Proto
		)

		userAttrs := slog.Group("user", "ip", ip)
		requestAttrs := slog.Group("request", "method", method, "url", url, "proto", proto)
		responseAttrs := slog.Group("response", "status", mw.StatusCode, "size", mw.BytesCount)

		mid.logger.Info("access", userAttrs, requestAttrs, responseAttrs)
	})
}

// RateLimit counts requests per client IP in redis. When the cache is down we
// let requests through rather than taking the API down with it.
func (mid *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mid.cache != nil {
			ip := realip.FromRequest(r)
			key := "ratelimit:" + ip

			count, err := mid.cache.Increment(key, rateLimitWindow)
			if err == nil && count > rateLimitMax {
				mid.errHandler.TooManyRequests(w, r, "")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (mid *Middleware) Authenticate(next http.Handler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		authorizationHeader := r.Header.Get("Authorization")

		if authorizationHeader != "" {
			headerParts := strings.Split(authorizationHeader, " ")

			if len(headerParts) == 2 && headerParts[0] == "Bearer" {
				token := headerParts[1]

				claims, err := jwt.HMACCheck([]byte(token), []byte(mid.config.Jwt.SecretKey))
				if err != nil {
					mid.errHandler.InvalidAuthenticationToken(w, r)
					return
				}

				if !claims.Valid(time.Now()) {
					mid.errHandler.InvalidAuthenticationToken(w, r)
					return
				}

				if claims.Issuer != mid.config.BaseURL {
					mid.errHandler.InvalidAuthenticationToken(w, r)
					return
				}

				if !claims.AcceptAudience(mid.config.BaseURL) {
					mid.errHandler.InvalidAuthenticationToken(w, r)
					return
				}

				mobileNumber := claims.Subject

				identity, found, err := mid.Identities.GetOne(mobileNumber)
				if err != nil {
					mid.errHandler.ServerError(w, r, err)
					return
				}

				if found {
					r = context.ContextSetAuthenticatedIdentity(r, identity)
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (mid *Middleware) RequireAuthenticatedIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticatedIdentity := context.ContextGetAuthenticatedIdentity(r)

		if authenticatedIdentity == nil {
			mid.errHandler.AuthenticationRequired(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
