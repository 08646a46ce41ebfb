// Package account contains the handlers of the identity collaborator:
// registration, password login and account removal.
package account

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/globe-markers/internal/auth"
	"github.com/aanand-mishra/globe-markers/internal/http/middleware"
	"github.com/aanand-mishra/globe-markers/internal/http/request"
	"github.com/aanand-mishra/globe-markers/internal/storage"
	"github.com/aanand-mishra/globe-markers/internal/types"
	"github.com/aanand-mishra/globe-markers/internal/utils/response"
)

// TokenIssuer mints bearer tokens. *auth.TokenManager satisfies it.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, time.Time, error)
}

// errInvalidCredentials is deliberately the same for an unknown username
// and a wrong password.
var errInvalidCredentials = errors.New("invalid username or password")

// LoginResponse is the body returned by Login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Register handles POST /api/register/
//
//	{ "username": "alice", "password": "correct horse" }  →  201 { "id": 1 }
//
// 409 Conflict when the username is taken.
func Register(users storage.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds types.Credentials
		if err := request.Decode(r, &creds); err != nil {
			request.WriteError(w, err)
			return
		}

		hash, err := auth.HashPassword(creds.Password)
		if err != nil {
			slog.Error("error hashing password", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("could not create account")))
			return
		}

		user, err := users.CreateUser(r.Context(), creds.Username, hash)
		if errors.Is(err, storage.ErrUserExists) {
			response.WriteJSON(w, http.StatusConflict, response.GeneralError(storage.ErrUserExists))
			return
		}
		if err != nil {
			slog.Error("error creating user", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(types.ErrStorageUnavailable))
			return
		}

		slog.Info("user registered", slog.Int64("id", user.ID))
		response.WriteJSON(w, http.StatusCreated, map[string]int64{"id": user.ID})
	}
}

// Login handles POST /api/login/ and returns a bearer token for valid
// credentials.
func Login(users storage.UserStore, tokens TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds types.Credentials
		if err := request.Decode(r, &creds); err != nil {
			request.WriteError(w, err)
			return
		}

		user, err := users.GetUserByUsername(r.Context(), creds.Username)
		if errors.Is(err, storage.ErrUserNotFound) {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errInvalidCredentials))
			return
		}
		if err != nil {
			slog.Error("error loading user", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(types.ErrStorageUnavailable))
			return
		}

		if err := auth.VerifyPassword(user.PasswordHash, creds.Password); err != nil {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errInvalidCredentials))
			return
		}

		token, expires, err := tokens.Issue(user.ID, user.Username)
		if err != nil {
			slog.Error("error issuing token", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("could not issue token")))
			return
		}

		response.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires.UTC()})
	}
}

// Delete handles DELETE /api/account/: the current user is removed, and
// with them every marker they own.
func Delete(users storage.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			middleware.Unauthorized(w)
			return
		}

		err := users.DeleteUser(r.Context(), user.ID)
		if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
			slog.Error("error deleting user",
				slog.Int64("id", user.ID),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(types.ErrStorageUnavailable))
			return
		}

		slog.Info("user deleted", slog.Int64("id", user.ID))
		response.WriteJSON(w, http.StatusOK, response.OK(response.StatusDeleted))
	}
}
