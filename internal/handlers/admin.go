package handlers

import (
	"context"
	"net/http"

	"github.com/vigilauth/vigil/internal/models"
	pkghttp "github.com/vigilauth/vigil/pkg/http"
)

// AnomalyViewer exposes the anomaly ledger to the admin surface.
type AnomalyViewer interface {
	GetAllAnomalies(ctx context.Context) ([]*models.Anomaly, error)
	GetAnomalyStats(ctx context.Context) (*models.AnomalyStats, error)
}

// UserViewer exposes user listing to the admin surface.
type UserViewer interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// AdminHandler serves the admin-only read views.
type AdminHandler struct {
	anomalies AnomalyViewer
	users     UserViewer
}

func NewAdminHandler(anomalies AnomalyViewer, users UserViewer) *AdminHandler {
	return &AdminHandler{
		anomalies: anomalies,
		users:     users,
	}
}

// ListAnomalies handles GET /admin/anomalies.
func (h *AdminHandler) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	anomalies, err := h.anomalies.GetAllAnomalies(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve anomalies")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Anomalies retrieved successfully",
		"anomalies": anomalies,
	})
}

// AnomalyStats handles GET /admin/anomaly-stats.
func (h *AdminHandler) AnomalyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.anomalies.GetAnomalyStats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve anomaly stats")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Anomaly stats retrieved successfully",
		"stats":   stats,
	})
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve users")
		return
	}

	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Users retrieved successfully",
		"users":   responses,
	})
}
