package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aanand-mishra/globe-markers/internal/auth"
	"github.com/aanand-mishra/globe-markers/internal/storage"
	"github.com/aanand-mishra/globe-markers/internal/types"
	"github.com/aanand-mishra/globe-markers/internal/utils/response"
)

// TokenValidator verifies a bearer token. *auth.TokenManager satisfies it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// UserGetter loads the user a token refers to.
type UserGetter interface {
	GetUserByID(ctx context.Context, id int64) (types.User, error)
}

// RequireUser guards a route: the request must carry
//
//	Authorization: Bearer <token>
//
// with a valid token whose subject is an existing user. That user is put in
// the request context (auth.UserFromContext). Anything else is answered
// with 401 and the wrapped handler never runs.
func RequireUser(tokens TokenValidator, users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				Unauthorized(w)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				slog.Debug("rejected bearer token",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())))
				Unauthorized(w)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				Unauthorized(w)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if errors.Is(err, storage.ErrUserNotFound) {
				Unauthorized(w)
				return
			}
			if err != nil {
				slog.Error("error resolving current user",
					slog.Int64("user_id", userID),
					slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError,
					response.GeneralError(types.ErrStorageUnavailable))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// Unauthorized writes the 401 answer shared by the guard and handlers.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="globe"`)
	response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(types.ErrUnauthorized))
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
