//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=server_mocks
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bluedex/internal/repository"
	"bluedex/internal/storage"
)

type Storage interface {
	CreateOrder(ctx context.Context, senderID string, in storage.CreateOrderInput) (*storage.Order, error)
	GetOrderByTrackingID(ctx context.Context, trackingID string) (*storage.Order, error)
	GetUserOrders(ctx context.Context, senderID string) ([]*storage.Order, error)
	ListAllOrders(ctx context.Context) ([]*storage.OrderWithSender, error)
	AdvanceStatus(ctx context.Context, trackingID, newStatus, location, actor string) (*storage.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	GetStats(ctx context.Context) (*storage.Stats, error)
}

type UserRepo interface {
	Authenticate(ctx context.Context, username, password string) (*repository.User, error)
}

type Server struct {
	storage      Storage
	users        UserRepo
	logger       *zap.Logger
	server       *http.Server
	AuditManager *AuditManager
}

func New(storage Storage, users UserRepo, logger *zap.Logger) *Server {
	return &Server{
		storage:      storage,
		users:        users,
		logger:       logger,
		AuditManager: NewAuditManager(2, 5, 500*time.Millisecond, logger),
	}
}

func (s *Server) Run(ctx context.Context, port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.AuditManager.Start(ctx)

	s.logger.Info("http server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")

	s.AuditManager.Shutdown(ctx)
	return nil
}

func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.auditLogMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet).Name("health")
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")

	// Public: tracking lookup and cost preview.
	r.HandleFunc("/pricing/estimate", s.handleEstimate).Methods(http.MethodGet).Name("estimateCost")

	r.Handle("/orders", s.requireAuth(s.handleCreateOrder)).Methods(http.MethodPost).Name("createOrder")
	r.Handle("/orders", s.requireAdmin(s.handleListOrders)).Methods(http.MethodGet).Name("listOrders")
	r.Handle("/orders/stats", s.requireAdmin(s.handleStats)).Methods(http.MethodGet).Name("orderStats")
	r.Handle("/user/orders", s.requireAuth(s.handleUserOrders)).Methods(http.MethodGet).Name("userOrders")

	// Registered after /orders/stats so the static path wins.
	r.HandleFunc("/orders/{trackingId}", s.handleTrackOrder).Methods(http.MethodGet).Name("trackOrder")
	r.Handle("/orders/{trackingId}/status", s.requireAdmin(s.handleUpdateStatus)).Methods(http.MethodPut).Name("updateStatus")
	r.Handle("/orders/{id}", s.requireAdmin(s.handleDeleteOrder)).Methods(http.MethodDelete).Name("deleteOrder")

	return r
}
