package http

import (
	"net/http"

	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/pkg/authapi"
	"github.com/laqq/authd/pkg/httpx"
)

// LoginHandler handles POST /v1/auth/login.
type LoginHandler struct {
	Router       *Router
	LoginService *service.LoginService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authapi.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	result, err := h.LoginService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	apiUser := toAPIUser(result.User)
	apiUser.Permissions, err = h.Router.permissionCodenames(r.Context(), result.User)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authapi.LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    result.Tokens.TokenType,
		ExpiresIn:    result.Tokens.ExpiresIn,
		User:         apiUser,
	})
}
