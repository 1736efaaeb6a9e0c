package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"portfoliocms/pkg/logger"
	"portfoliocms/pkg/respond"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminInfo struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type LoginResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Token   string    `json:"token"`
	Admin   AdminInfo `json:"admin"`
}

type VerifyResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Admin   AdminInfo `json:"admin"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ClaimsFunc extracts the verified claims the auth middleware stored on the
// request context.
type ClaimsFunc func(r *http.Request) *Claims

type Handler struct {
	Service *Service
	claims  ClaimsFunc
}

func NewHandler(service *Service, claims ClaimsFunc) *Handler {
	return &Handler{Service: service, claims: claims}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Validation failed", "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Validation failed", "Email and password are required")
		return
	}

	token, err := h.Service.Login(req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		logger.Sugar.Warnf("Failed admin login for %q from %s", req.Email, r.RemoteAddr)
		respond.Error(w, http.StatusUnauthorized, "Authentication failed", "Invalid email or password")
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to issue token: %v", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error", "Could not complete login")
		return
	}

	logger.Sugar.Infof("Admin %s logged in", req.Email)
	respond.JSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		Admin:   AdminInfo{Email: h.Service.AdminEmail()},
	})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	info := AdminInfo{}
	if c := h.claims(r); c != nil {
		info = AdminInfo{Email: c.Email, Role: c.Role}
	}
	respond.JSON(w, http.StatusOK, VerifyResponse{Success: true, Message: "Token is valid", Admin: info})
}

// Logout exists for client bookkeeping; tokens are stateless.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c := h.claims(r); c != nil {
		logger.Sugar.Infof("Admin %s logged out", c.Email)
	}
	respond.JSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}
