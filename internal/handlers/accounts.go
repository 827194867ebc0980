package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tasktrack/apiserver/internal/policy"
	"github.com/tasktrack/apiserver/internal/services"
	"github.com/tasktrack/apiserver/internal/store"
	"github.com/tasktrack/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// AccountHandler provides the superadmin-only account management
// endpoints for user and admin accounts.
type AccountHandler struct {
	userService *services.UserService
}

// NewAccountHandler constructs a handler with the provided service.
func NewAccountHandler(userService *services.UserService) *AccountHandler {
	return &AccountHandler{userService: userService}
}

// UserRouter registers the user account routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAccountHandler(userService)

	r.Use(authMiddleware, handler.requireAccountManager)
	r.Get("/", handler.ListUsers)
	r.Get("/create/", handler.NewUserForm)
	r.Post("/create/", handler.CreateUser)
	r.Get("/{accountID}/delete/", handler.DeleteUser)
}

// AdminRouter registers the admin account routes on the given router.
func AdminRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAccountHandler(userService)

	r.Use(authMiddleware, handler.requireAccountManager)
	r.Get("/", handler.ListAdmins)
	r.Get("/create/", handler.NewAdminForm)
	r.Post("/create/", handler.CreateAdmin)
	r.Get("/{accountID}/delete/", handler.DeleteAdmin)
}

// requireAccountManager rejects actors the policy does not allow to
// manage accounts.
func (h *AccountHandler) requireAccountManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r, h.userService)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !policy.CanManageAccounts(actor) {
			writeError(w, http.StatusForbidden, accessDeniedMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListByRole(r.Context(), types.RoleUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, AccountListResponse{Accounts: users})
}

// NewUserForm returns the data needed to populate the user creation
// form: the admins a new user may be assigned to.
func (h *AccountHandler) NewUserForm(w http.ResponseWriter, r *http.Request) {
	admins, err := h.userService.ListByRole(r.Context(), types.RoleAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list admins")
		return
	}
	writeJSON(w, http.StatusOK, AccountFormResponse{Admins: admins})
}

func (h *AccountHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := parseAccountRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var assignedAdminID *int
	if req.AssignedAdminID != nil {
		admin, err := h.userService.GetByID(r.Context(), *req.AssignedAdminID)
		if err != nil || admin.Role != types.RoleAdmin {
			writeError(w, http.StatusBadRequest, "assigned admin must reference an admin account")
			return
		}
		assignedAdminID = req.AssignedAdminID
	}

	h.createAccount(w, r, req, types.RoleUser, assignedAdminID)
}

func (h *AccountHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.userService.ListByRole(r.Context(), types.RoleAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list admins")
		return
	}
	writeJSON(w, http.StatusOK, AccountListResponse{Accounts: admins})
}

// NewAdminForm returns the data needed to populate the admin creation
// form. Admins have no supervising admin, so there is nothing to offer.
func (h *AccountHandler) NewAdminForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AccountFormResponse{})
}

func (h *AccountHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	req, err := parseAccountRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.createAccount(w, r, req, types.RoleAdmin, nil)
}

func (h *AccountHandler) createAccount(w http.ResponseWriter, r *http.Request, req AccountCreateRequest, role types.Role, assignedAdminID *int) {
	if _, err := h.userService.GetByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusConflict, "username already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to check username")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	created, err := h.userService.Create(r.Context(), types.User{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Role:            role,
		AssignedAdminID: assignedAdminID,
		IsActive:        true,
		PasswordHash:    string(hashed),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *AccountHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.deleteAccount(w, r, types.RoleUser)
}

func (h *AccountHandler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	h.deleteAccount(w, r, types.RoleAdmin)
}

// deleteAccount removes the account only when its role matches the
// endpoint it was addressed through; a mismatch is a not-found, so the
// wrong endpoint can never delete the wrong kind of account.
func (h *AccountHandler) deleteAccount(w http.ResponseWriter, r *http.Request, expectedRole types.Role) {
	id, err := parseIDParam(r, "accountID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.Delete(r.Context(), id, expectedRole); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "account deleted"})
}

// AccountCreateRequest is the payload for creating a user or admin.
type AccountCreateRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	AssignedAdminID *int   `json:"assigned_admin_id"`
}

// AccountListResponse is the account list payload.
type AccountListResponse struct {
	Accounts []types.User `json:"accounts"`
}

// AccountFormResponse carries creation-form population data.
type AccountFormResponse struct {
	Admins []types.User `json:"admins,omitempty"`
}

func parseAccountRequest(r *http.Request) (AccountCreateRequest, error) {
	var req AccountCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return AccountCreateRequest{}, errors.New("invalid request")
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Username == "" || req.Password == "" {
		return AccountCreateRequest{}, errors.New("username and password are required")
	}
	return req, nil
}
