package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bluedex/internal/db"
	"bluedex/internal/metrics"
	"bluedex/internal/repository"
)

// ShipmentEventsTopic receives shipment lifecycle events via the outbox.
const ShipmentEventsTopic = "shipment_events"

const unknownSenderLocation = "Sender Address Unknown"

//go:generate mockgen -source ./postgres.go -destination=./mocks/postgres.go -package=storage_mocks

type OrderRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, order *repository.Order) error
	GetByID(ctx context.Context, id string) (*repository.Order, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*repository.Order, error)
	GetByTrackingIDTx(ctx context.Context, tx db.Tx, trackingID string) (*repository.Order, error)
	ExistsTrackingID(ctx context.Context, trackingID string) (bool, error)
	GetBySender(ctx context.Context, senderID string) ([]*repository.Order, error)
	ListAll(ctx context.Context) ([]*repository.OrderWithSender, error)
	CountByStatus(ctx context.Context) ([]*repository.StatusCount, error)
	UpdateStatusTx(ctx context.Context, tx db.Tx, id, status string) error
	DeleteTx(ctx context.Context, tx db.Tx, id string) error
}

type HistoryRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.HistoryEntry) error
	GetByOrderID(ctx context.Context, orderID string) ([]*repository.HistoryEntry, error)
	GetByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]*repository.HistoryEntry, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *repository.User, password string) error
	Authenticate(ctx context.Context, username, password string) (*repository.User, error)
	GetByID(ctx context.Context, id string) (*repository.User, error)
}

type OutboxTaskRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, task *repository.OutboxTask) error
	GetProcessableTasks(ctx context.Context, database db.DB, limit int, maxAttempts int) ([]*repository.OutboxTask, error)
	UpdateTaskStatusTx(ctx context.Context, tx db.Tx, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
	UpdateTaskStatus(ctx context.Context, database db.DB, id uuid.UUID, status repository.TaskStatus, attempts int, lastError *string, completedAt *time.Time) error
}

// ShipmentCache holds active shipment rows for the public tracking lookup.
type ShipmentCache interface {
	Get(trackingID string) (*repository.Order, bool)
	Set(order *repository.Order)
	Delete(trackingID string)
}

// PostgresStorage is the order store and the only mutation path for shipment
// status and history.
type PostgresStorage struct {
	db          db.DB
	orderRepo   OrderRepository
	historyRepo HistoryRepository
	userRepo    UserRepository
	outboxRepo  OutboxTaskRepository
	generator   *TrackingGenerator
	cache       ShipmentCache
	logger      *zap.Logger
}

func NewPostgresStorage(
	database db.DB,
	orderRepo OrderRepository,
	historyRepo HistoryRepository,
	userRepo UserRepository,
	outboxRepo OutboxTaskRepository,
	cache ShipmentCache,
	logger *zap.Logger,
) *PostgresStorage {
	return &PostgresStorage{
		db:          database,
		orderRepo:   orderRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		outboxRepo:  outboxRepo,
		generator:   NewTrackingGenerator(orderRepo.ExistsTrackingID),
		cache:       cache,
		logger:      logger,
	}
}

// CreateOrder validates the input, allocates a tracking ID, computes the
// delivery cost and writes the order, its first history entry and the created
// event in one transaction. The sender is taken from the authenticated
// identity, never from the request body.
func (s *PostgresStorage) CreateOrder(ctx context.Context, senderID string, in CreateOrderInput) (*Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, fmt.Errorf("failed to resolve sender: %w", err)
	}

	trackingID, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := &repository.Order{
		ID:              uuid.NewString(),
		TrackingID:      trackingID,
		SenderID:        sender.ID,
		ReceiverName:    in.ReceiverName,
		ReceiverAddress: in.ReceiverAddress,
		ReceiverPhone:   in.ReceiverPhone,
		PackageType:     string(in.PackageType),
		Weight:          in.Weight,
		PaymentType:     string(in.PaymentType),
		DeliveryCost:    ComputeCost(in.Weight, in.PackageType),
		Status:          string(StatusPending),
		DateCreated:     now,
	}

	location := sender.Address
	if location == "" {
		location = unknownSenderLocation
	}
	first := &repository.HistoryEntry{
		OrderID:   row.ID,
		Status:    string(StatusPending),
		Location:  location,
		ChangedAt: now,
	}

	err = db.InTx(ctx, s.db, func(tx db.Tx) error {
		if err := s.orderRepo.CreateTx(ctx, tx, row); err != nil {
			return err
		}
		if err := s.historyRepo.CreateTx(ctx, tx, first); err != nil {
			return fmt.Errorf("failed to write first history entry: %w", err)
		}
		return s.enqueueEventTx(ctx, tx, repository.ShipmentEventPayload{
			Event:      "order.created",
			TrackingID: row.TrackingID,
			OrderID:    row.ID,
			SenderID:   row.SenderID,
			NewStatus:  row.Status,
			Location:   location,
			Actor:      sender.Username,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreatedTotal.Inc()
	if s.cache != nil {
		s.cache.Set(row)
	}
	s.logger.Info("order created",
		zap.String("tracking_id", row.TrackingID),
		zap.String("sender_id", row.SenderID),
		zap.Float64("delivery_cost", row.DeliveryCost))

	return toOrder(row, []*repository.HistoryEntry{first}), nil
}

func (s *PostgresStorage) GetOrderByTrackingID(ctx context.Context, trackingID string) (*Order, error) {
	var row *repository.Order
	if s.cache != nil {
		if cached, found := s.cache.Get(trackingID); found {
			row = cached
		}
	}

	if row == nil {
		var err error
		row, err = s.orderRepo.GetByTrackingID(ctx, trackingID)
		if err != nil {
			return nil, err
		}
	}

	history, err := s.historyRepo.GetByOrderID(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return toOrder(row, history), nil
}

func (s *PostgresStorage) GetUserOrders(ctx context.Context, senderID string) ([]*Order, error) {
	rows, err := s.orderRepo.GetBySender(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sender orders: %w", err)
	}

	histories, err := s.loadHistories(ctx, rows)
	if err != nil {
		return nil, err
	}

	orders := make([]*Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, toOrder(row, histories[row.ID]))
	}
	return orders, nil
}

func (s *PostgresStorage) ListAllOrders(ctx context.Context) ([]*OrderWithSender, error) {
	rows, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	plain := make([]*repository.Order, 0, len(rows))
	for _, row := range rows {
		plain = append(plain, &row.Order)
	}
	histories, err := s.loadHistories(ctx, plain)
	if err != nil {
		return nil, err
	}

	orders := make([]*OrderWithSender, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, &OrderWithSender{
			Order:         *toOrder(&row.Order, histories[row.Order.ID]),
			SenderName:    row.SenderName,
			SenderAddress: row.SenderAddress,
		})
	}
	return orders, nil
}

// AdvanceStatus moves a shipment to newStatus and appends the matching history
// entry. The order row is locked for the duration of the transaction, so
// concurrent advances on one shipment are applied in arrival order.
func (s *PostgresStorage) AdvanceStatus(ctx context.Context, trackingID, newStatus, location, actor string) (*Order, error) {
	target, err := ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}
	if location == "" {
		location = "System"
	}

	var row *repository.Order
	err = db.InTx(ctx, s.db, func(tx db.Tx) error {
		row, err = s.orderRepo.GetByTrackingIDTx(ctx, tx, trackingID)
		if err != nil {
			return err
		}

		current, err := ParseStatus(row.Status)
		if err != nil {
			return fmt.Errorf("stored status is corrupt: %w", err)
		}
		if err := current.CanTransition(target); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, row.ID, string(target)); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		entry := &repository.HistoryEntry{
			OrderID:   row.ID,
			Status:    string(target),
			Location:  location,
			ChangedAt: now,
		}
		if err := s.historyRepo.CreateTx(ctx, tx, entry); err != nil {
			return fmt.Errorf("failed to append history entry: %w", err)
		}

		payload := repository.ShipmentEventPayload{
			Event:      "order.status_changed",
			TrackingID: row.TrackingID,
			OrderID:    row.ID,
			OldStatus:  row.Status,
			NewStatus:  string(target),
			Location:   location,
			Actor:      actor,
			OccurredAt: now,
		}
		row.Status = string(target)
		return s.enqueueEventTx(ctx, tx, payload)
	})
	if err != nil {
		return nil, err
	}

	metrics.StatusAdvancedTotal.WithLabelValues(string(target)).Inc()
	if s.cache != nil {
		s.cache.Set(row)
	}
	s.logger.Info("order status advanced",
		zap.String("tracking_id", trackingID),
		zap.String("status", string(target)),
		zap.String("location", location))

	history, err := s.historyRepo.GetByOrderID(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return toOrder(row, history), nil
}

// DeleteOrder removes the order and its history permanently. Tracking IDs are
// never reused; the generator works over a fresh random space each day.
func (s *PostgresStorage) DeleteOrder(ctx context.Context, id string) error {
	row, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = db.InTx(ctx, s.db, func(tx db.Tx) error {
		if err := s.orderRepo.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		return s.enqueueEventTx(ctx, tx, repository.ShipmentEventPayload{
			Event:      "order.deleted",
			TrackingID: row.TrackingID,
			OrderID:    row.ID,
			OldStatus:  row.Status,
			OccurredAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return err
	}

	metrics.OrdersDeletedTotal.Inc()
	if s.cache != nil {
		s.cache.Delete(row.TrackingID)
	}
	s.logger.Info("order deleted", zap.String("tracking_id", row.TrackingID))
	return nil
}

// GetStats counts current store contents per status. No caching: the snapshot
// is consistent with the store at call time.
func (s *PostgresStorage) GetStats(ctx context.Context) (*Stats, error) {
	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	stats := &Stats{}
	for _, c := range counts {
		stats.TotalOrders += c.Count
		switch Status(c.Status) {
		case StatusPending:
			stats.Pending += c.Count
		case StatusInTransit:
			stats.InTransit += c.Count
		case StatusDelivered:
			stats.Delivered += c.Count
		}
	}
	return stats, nil
}

func (s *PostgresStorage) enqueueEventTx(ctx context.Context, tx db.Tx, payload repository.ShipmentEventPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal shipment event: %w", err)
	}
	return s.outboxRepo.CreateTx(ctx, tx, &repository.OutboxTask{
		Payload: raw,
		Topic:   ShipmentEventsTopic,
	})
}

func (s *PostgresStorage) loadHistories(ctx context.Context, rows []*repository.Order) (map[string][]*repository.HistoryEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	histories, err := s.historyRepo.GetByOrderIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load histories: %w", err)
	}
	return histories, nil
}

func toOrder(row *repository.Order, history []*repository.HistoryEntry) *Order {
	entries := make([]HistoryEntry, 0, len(history))
	for _, h := range history {
		entries = append(entries, HistoryEntry{
			Status:    Status(h.Status),
			Location:  h.Location,
			Timestamp: h.ChangedAt,
		})
	}
	return &Order{
		ID:              row.ID,
		TrackingID:      row.TrackingID,
		SenderID:        row.SenderID,
		ReceiverName:    row.ReceiverName,
		ReceiverAddress: row.ReceiverAddress,
		ReceiverPhone:   row.ReceiverPhone,
		PackageType:     PackageType(row.PackageType),
		Weight:          row.Weight,
		PaymentType:     PaymentType(row.PaymentType),
		DeliveryCost:    row.DeliveryCost,
		Status:          Status(row.Status),
		History:         entries,
		DateCreated:     row.DateCreated,
	}
}
