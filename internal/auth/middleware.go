package auth

import (
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/transport"
	"github.com/frahmantamala/donation-checkout/pkg/logger"
)

type Middleware struct {
	*transport.BaseHandler
	verifier *TokenVerifier
}

func NewMiddleware(verifier *TokenVerifier, lg *slog.Logger) *Middleware {
	return &Middleware{
		BaseHandler: transport.NewBaseHandler(lg),
		verifier:    verifier,
	}
}

// Authenticate requires a valid bearer token and puts the claims, the user
// id and the raw token into the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.ExtractTokenFromHeader(r)
		if token == "" {
			m.Logger.Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			m.HandleError(w, apperrors.NewUnauthorizedError("missing authorization token", apperrors.ErrCodeInvalidToken))
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.Logger.Warn("auth middleware: token rejected", "error", err, "path", r.URL.Path)
			m.HandleError(w, err)
			return
		}

		ctx := ContextWithClaims(r.Context(), claims)
		ctx = apperrors.ContextWithToken(ctx, token)
		ctx = logger.With(ctx, "user_id", claims.Identity())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
