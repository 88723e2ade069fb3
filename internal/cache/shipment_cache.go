package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"bluedex/internal/metrics"
	"bluedex/internal/repository"
)

type OrderLister interface {
	ListAll(ctx context.Context) ([]*repository.OrderWithSender, error)
}

// ShipmentCache keeps non-terminal shipment rows in memory, keyed by tracking
// ID, to serve the public tracking lookup without a round trip per request.
// Terminal shipments are evicted on write.
type ShipmentCache struct {
	mu    sync.RWMutex
	cache map[string]*repository.Order
	repo  OrderLister
}

func NewShipmentCache(repo OrderLister) *ShipmentCache {
	return &ShipmentCache{
		cache: make(map[string]*repository.Order),
		repo:  repo,
	}
}

// Warmup loads all currently active shipments.
func (c *ShipmentCache) Warmup(ctx context.Context) error {
	rows, err := c.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range rows {
		if !isActiveStatus(row.Status) {
			continue
		}
		rowCopy := row.Order
		c.cache[row.TrackingID] = &rowCopy
	}
	metrics.ShipmentCacheItems.Set(float64(len(c.cache)))
	zap.L().Info("shipment cache warmed up", zap.Int("items", len(c.cache)))
	return nil
}

func (c *ShipmentCache) Get(trackingID string) (*repository.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	order, found := c.cache[trackingID]
	if !found {
		return nil, false
	}
	orderCopy := *order
	return &orderCopy, true
}

func (c *ShipmentCache) Set(order *repository.Order) {
	if !isActiveStatus(order.Status) {
		c.Delete(order.TrackingID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	orderCopy := *order
	c.cache[order.TrackingID] = &orderCopy
	metrics.ShipmentCacheItems.Set(float64(len(c.cache)))
}

func (c *ShipmentCache) Delete(trackingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.cache[trackingID]; found {
		delete(c.cache, trackingID)
		metrics.ShipmentCacheItems.Set(float64(len(c.cache)))
	}
}

func isActiveStatus(status string) bool {
	return status != "Delivered" && status != "Cancelled"
}
