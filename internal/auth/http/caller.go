package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/laqq/authd/internal/auth/domain"
	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/pkg/httpx"
	"github.com/laqq/authd/pkg/slogx"
)

// caller loads the account behind the verified access token. The token may
// outlive the account, so a missing row is an authentication failure rather
// than a 500.
func (rt *Router) caller(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing authenticated caller")
		return domain.User{}, false
	}

	user, err := rt.store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "account no longer exists")
			return domain.User{}, false
		}
		log.Error("failed to load caller", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Unable to process the request")
		return domain.User{}, false
	}
	return user, true
}

// permissionCodenames projects a user's effective grants for API payloads.
// The answer mirrors what the gate would allow for that user right now.
func (rt *Router) permissionCodenames(ctx context.Context, user domain.User) ([]string, error) {
	perms, err := rt.Gate.RBAC.GetPermissions(ctx, user)
	if err != nil {
		return nil, err
	}
	codenames := make([]string, 0, len(perms))
	for _, p := range perms {
		codenames = append(codenames, p.Codename)
	}
	return codenames, nil
}

// authorize loads the caller and runs the gate for op. ownerID is the record
// being touched for self-service operations, "" otherwise.
func (rt *Router) authorize(w http.ResponseWriter, r *http.Request, op service.Operation, ownerID string) (domain.User, bool) {
	caller, ok := rt.caller(w, r)
	if !ok {
		return domain.User{}, false
	}
	if err := rt.Gate.Authorize(r.Context(), caller, op, ownerID); err != nil {
		writeServiceError(w, r, err)
		return domain.User{}, false
	}
	return caller, true
}
