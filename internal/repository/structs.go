package repository

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrObjectNotFound      = errors.New("not found")
	ErrDuplicateTrackingID = errors.New("tracking id already exists")
)

type Order struct {
	ID              string    `db:"id"`
	TrackingID      string    `db:"tracking_id"`
	SenderID        string    `db:"sender_id"`
	ReceiverName    string    `db:"receiver_name"`
	ReceiverAddress string    `db:"receiver_address"`
	ReceiverPhone   string    `db:"receiver_phone"`
	PackageType     string    `db:"package_type"`
	Weight          float64   `db:"weight"`
	PaymentType     string    `db:"payment_type"`
	DeliveryCost    float64   `db:"delivery_cost"`
	Status          string    `db:"status"`
	DateCreated     time.Time `db:"date_created"`
}

// OrderWithSender is the read-side shape of an order joined to its sender's
// display fields. Sender data is never stored on the order row.
type OrderWithSender struct {
	Order
	SenderName    string `db:"sender_name"`
	SenderAddress string `db:"sender_address"`
}

type HistoryEntry struct {
	ID        int64     `db:"id"`
	OrderID   string    `db:"order_id"`
	Status    string    `db:"status"`
	Location  string    `db:"location"`
	ChangedAt time.Time `db:"changed_at"`
}

type User struct {
	ID       string `db:"id"`
	Username string `db:"username"`
	Password string `db:"password"`
	Role     string `db:"role"`
	Name     string `db:"name"`
	Email    string `db:"email"`
	Phone    string `db:"phone"`
	Address  string `db:"address"`
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

type TaskStatus string

const (
	TaskStatusCreated    TaskStatus = "CREATED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusDone       TaskStatus = "DONE"
)

type OutboxTask struct {
	ID          uuid.UUID       `db:"id"`
	Status      TaskStatus      `db:"status"`
	Payload     json.RawMessage `db:"payload"`
	Topic       string          `db:"topic"`
	Attempts    int             `db:"attempts"`
	LastError   *string         `db:"last_error"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	CompletedAt *time.Time      `db:"completed_at"`
}

// ShipmentEventPayload is the wire shape of shipment lifecycle events pushed
// through the outbox to Kafka.
type ShipmentEventPayload struct {
	Event      string    `json:"event"`
	TrackingID string    `json:"tracking_id"`
	OrderID    string    `json:"order_id"`
	SenderID   string    `json:"sender_id,omitempty"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	Location   string    `json:"location,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
