package context

import (
	"context"
	"net/http"

	"github.com/cradoe/walletguard/internal/models"
)

type contextKey string

const (
	authenticatedIdentityContextKey = contextKey("authenticatedIdentity")
)

func ContextSetAuthenticatedIdentity(r *http.Request, identity *models.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), authenticatedIdentityContextKey, identity)
	return r.WithContext(ctx)
}

func ContextGetAuthenticatedIdentity(r *http.Request) *models.Identity {
	identity, ok := r.Context().Value(authenticatedIdentityContextKey).(*models.Identity)
	if !ok {
		return nil
	}

	return identity
}
