package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/team-space/models"
)

var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityResolver extracts the calling user from a request.
type IdentityResolver interface {
	Resolve(r *http.Request) (*models.Identity, error)
}

// Authenticate rejects requests without a resolvable identity with 401.
func Authenticate(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r)
			if err != nil || identity == nil || identity.UserID == "" {
				if err != nil && !errors.Is(err, ErrNoCredentials) {
					logger.WarnContext(r.Context(), "authentication failed",
						slog.String("path", r.URL.Path),
						slog.Any("error", err))
				}
				respondUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func GetIdentityFromContext(ctx context.Context) (*models.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*models.Identity)
	if !ok || identity == nil {
		return nil, errors.New("identity not found in context")
	}
	return identity, nil
}

func GetUserIDFromContext(ctx context.Context) (string, error) {
	identity, err := GetIdentityFromContext(ctx)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
