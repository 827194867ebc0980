package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tasktrack/apiserver/internal/services"
)

// DashboardHandler serves the role-scoped dashboard aggregate.
type DashboardHandler struct {
	dashboardService *services.DashboardService
	userService      *services.UserService
}

// NewDashboardHandler constructs a handler with the provided services.
func NewDashboardHandler(dashboardService *services.DashboardService, userService *services.UserService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		userService:      userService,
	}
}

// DashboardRouter registers the dashboard route on the given router.
func DashboardRouter(r chi.Router, dashboardService *services.DashboardService, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewDashboardHandler(dashboardService, userService)

	r.With(authMiddleware).Get("/", handler.Dashboard)
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.dashboardService.Summary(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
