package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bluedex_orders_created_total",
		Help: "Total number of shipment orders successfully created.",
	})

	StatusAdvancedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluedex_status_advanced_total",
		Help: "Total number of successful status transitions, by new status.",
	},
		[]string{"status"},
	)

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bluedex_orders_deleted_total",
		Help: "Total number of shipment orders deleted by an admin.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bluedex_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	TrackingIDRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bluedex_tracking_id_retries_total",
		Help: "Total number of tracking ID candidates discarded due to collisions.",
	})

	ShipmentCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bluedex_shipment_cache_items",
		Help: "Current number of active shipments in the tracking cache.",
	})
)
