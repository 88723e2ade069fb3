package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"bluedex/internal/db"
	"bluedex/internal/repository"
	"bluedex/internal/storage"
)

const uniqueViolationCode = "23505"

type OrderRepo struct {
	db db.DB
}

func NewOrderRepo(db db.DB) storage.OrderRepository {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) CreateTx(ctx context.Context, tx db.Tx, order *repository.Order) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO orders (
            id, tracking_id, sender_id, receiver_name, receiver_address, receiver_phone,
            package_type, weight, payment_type, delivery_cost, status, date_created
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, order.ID, order.TrackingID, order.SenderID, order.ReceiverName, order.ReceiverAddress,
		order.ReceiverPhone, order.PackageType, order.Weight, order.PaymentType,
		order.DeliveryCost, order.Status, order.DateCreated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicateTrackingID
		}
		return err
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) GetByTrackingID(ctx context.Context, trackingID string) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order, "SELECT * FROM orders WHERE tracking_id = $1", trackingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByTrackingIDTx locks the order row for the duration of the transaction so
// concurrent status updates on the same shipment are serialized.
func (r *OrderRepo) GetByTrackingIDTx(ctx context.Context, tx db.Tx, trackingID string) (*repository.Order, error) {
	var order repository.Order
	err := tx.Get(ctx, &order, "SELECT * FROM orders WHERE tracking_id = $1 FOR UPDATE", trackingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) ExistsTrackingID(ctx context.Context, trackingID string) (bool, error) {
	var exists bool
	err := r.db.ExecQueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM orders WHERE tracking_id = $1)", trackingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tracking id: %w", err)
	}
	return exists, nil
}

func (r *OrderRepo) GetBySender(ctx context.Context, senderID string) ([]*repository.Order, error) {
	var orders []*repository.Order
	err := r.db.Select(ctx, &orders, `
        SELECT * FROM orders
        WHERE sender_id = $1
        ORDER BY date_created DESC
    `, senderID)
	return orders, err
}

func (r *OrderRepo) ListAll(ctx context.Context) ([]*repository.OrderWithSender, error) {
	var orders []*repository.OrderWithSender
	err := r.db.Select(ctx, &orders, `
        SELECT o.*,
               COALESCE(u.name, 'Unknown')    AS sender_name,
               COALESCE(u.address, 'Unknown') AS sender_address
        FROM orders o
        LEFT JOIN users u ON u.id = o.sender_id
        ORDER BY o.date_created DESC
    `)
	return orders, err
}

func (r *OrderRepo) CountByStatus(ctx context.Context) ([]*repository.StatusCount, error) {
	var counts []*repository.StatusCount
	err := r.db.Select(ctx, &counts, `
        SELECT status, COUNT(*) AS count
        FROM orders
        GROUP BY status
    `)
	return counts, err
}

func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx db.Tx, id, status string) error {
	_, err := tx.Exec(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *OrderRepo) DeleteTx(ctx context.Context, tx db.Tx, id string) error {
	tag, err := tx.Exec(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}
