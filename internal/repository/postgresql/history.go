package postgresql

import (
	"context"

	"bluedex/internal/db"
	"bluedex/internal/repository"
	"bluedex/internal/storage"
)

type HistoryRepo struct {
	db db.DB
}

func NewHistoryRepo(db db.DB) storage.HistoryRepository {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) CreateTx(ctx context.Context, tx db.Tx, entry *repository.HistoryEntry) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO order_history (
            order_id, status, location, changed_at
        ) VALUES ($1, $2, $3, $4)
    `, entry.OrderID, entry.Status, entry.Location, entry.ChangedAt)
	return err
}

func (r *HistoryRepo) GetByOrderID(ctx context.Context, orderID string) ([]*repository.HistoryEntry, error) {
	var entries []*repository.HistoryEntry
	err := r.db.Select(ctx, &entries, `
        SELECT * FROM order_history
        WHERE order_id = $1
        ORDER BY changed_at ASC, id ASC
    `, orderID)
	return entries, err
}

// GetByOrderIDs fetches the ledgers of several orders in one query, grouped by
// order id with entries in append order.
func (r *HistoryRepo) GetByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]*repository.HistoryEntry, error) {
	var entries []*repository.HistoryEntry
	err := r.db.Select(ctx, &entries, `
        SELECT * FROM order_history
        WHERE order_id = ANY($1)
        ORDER BY changed_at ASC, id ASC
    `, orderIDs)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*repository.HistoryEntry, len(orderIDs))
	for _, entry := range entries {
		grouped[entry.OrderID] = append(grouped[entry.OrderID], entry)
	}
	return grouped, nil
}
