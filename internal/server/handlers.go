package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bluedex/internal/metrics"
	"bluedex/internal/repository"
	"bluedex/internal/storage"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStorageError maps domain errors to HTTP statuses. Internal details
// never reach the client.
func respondStorageError(w http.ResponseWriter, operation string, err error) {
	switch {
	case errors.Is(err, repository.ErrObjectNotFound):
		respondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, storage.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrUnknownStatus):
		respondError(w, http.StatusBadRequest, "Invalid or missing status")
	case errors.Is(err, storage.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrSenderNotFound):
		respondError(w, http.StatusUnauthorized, "Unauthorized: sender user not found")
	case errors.Is(err, repository.ErrDuplicateTrackingID):
		metrics.OperationErrorsTotal.WithLabelValues(operation).Inc()
		respondError(w, http.StatusConflict, "Tracking ID collision, please retry")
	default:
		metrics.OperationErrorsTotal.WithLabelValues(operation).Inc()
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := identityFrom(r.Context())

	var in storage.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := s.storage.CreateOrder(r.Context(), user.ID, in)
	if err != nil {
		respondStorageError(w, "create_order", err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	trackingID := mux.Vars(r)["trackingId"]

	order, err := s.storage.GetOrderByTrackingID(r.Context(), trackingID)
	if err != nil {
		respondStorageError(w, "track_order", err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.storage.ListAllOrders(r.Context())
	if err != nil {
		respondStorageError(w, "list_orders", err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.GetStats(r.Context())
	if err != nil {
		respondStorageError(w, "order_stats", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := identityFrom(r.Context())

	orders, err := s.storage.GetUserOrders(r.Context(), user.ID)
	if err != nil {
		respondStorageError(w, "user_orders", err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	trackingID := mux.Vars(r)["trackingId"]
	user, _ := identityFrom(r.Context())

	var statusRequest struct {
		Status   string `json:"status"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusRequest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := s.storage.AdvanceStatus(r.Context(), trackingID, statusRequest.Status, statusRequest.Location, user.Username)
	if err != nil {
		respondStorageError(w, "update_status", err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.storage.DeleteOrder(r.Context(), id); err != nil {
		respondStorageError(w, "delete_order", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

// handleEstimate mirrors the stored cost formula for client-side previews. The
// server-computed value at creation time remains the binding one.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	weight, err := strconv.ParseFloat(r.URL.Query().Get("weight"), 64)
	if err != nil || weight <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid weight value")
		return
	}

	packageType := storage.PackageType(r.URL.Query().Get("packageType"))
	if !packageType.IsValid() {
		respondError(w, http.StatusBadRequest, "Unknown package type")
		return
	}

	respondJSON(w, http.StatusOK, map[string]float64{
		"deliveryCost": storage.ComputeCost(weight, packageType),
	})
}
