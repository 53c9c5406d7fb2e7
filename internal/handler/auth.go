package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mmeshcher/payout-system/internal/repository"
	"github.com/mmeshcher/payout-system/internal/validation"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Register обрабатывает регистрацию пользователя. Успешная регистрация
// сразу выдаёт токен доступа.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidEmail(req.Email) || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.handleError(w, err, "register user")
		return
	}

	token, err := h.authMiddleware.IssueToken(user.ID)
	if err != nil {
		h.handleError(w, err, "issue token")
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{Token: token})
}

// Login обрабатывает аутентификацию пользователя.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(w, err, "authenticate user")
		return
	}

	token, err := h.authMiddleware.IssueToken(user.ID)
	if err != nil {
		h.handleError(w, err, "issue token")
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{Token: token})
}
