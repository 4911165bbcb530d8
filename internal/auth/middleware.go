package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joao-fontenele/fooddelivery/internal/domain"
)

// Claims are the access-token claims issued by the identity provider.
type Claims struct {
	Staff bool `json:"is_staff"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

var (
	ErrMissingToken = errors.New("authentication credentials were not provided")
	ErrInvalidToken = errors.New("invalid access token")
)

type Verifier struct {
	secret []byte
	logger *slog.Logger
}

func NewVerifier(secret []byte, logger *slog.Logger) *Verifier {
	return &Verifier{secret: secret, logger: logger}
}

// Verify parses a bearer token and returns the actor it identifies.
func (v *Verifier) Verify(token string) (domain.Actor, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tkn.Valid {
		return domain.Actor{}, errors.Join(ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return domain.Actor{}, ErrInvalidToken
	}

	return domain.Actor{UserID: claims.Subject, Staff: claims.Staff}, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// actor in the request context.
func (v *Verifier) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			v.unauthorized(w, ErrMissingToken)
			return
		}

		actor, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			v.logger.Warn("rejected access token", "error", err, "path", r.URL.Path)
			v.unauthorized(w, ErrInvalidToken)
			return
		}

		next(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}

func (v *Verifier) unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": err.Error()}); err != nil {
		v.logger.Error("failed to encode response", "error", err)
	}
}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(domain.Actor)
	return actor, ok
}
