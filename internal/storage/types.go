package storage

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation marks malformed or missing creation input.
	ErrValidation = errors.New("validation failed")
	// ErrSenderNotFound is returned when the authenticated sender id does not
	// resolve to a user record.
	ErrSenderNotFound = errors.New("sender user not found")
)

type PackageType string

const (
	PackageParcel   PackageType = "Parcel"
	PackageDocument PackageType = "Document"
	PackageFragile  PackageType = "Fragile"
	PackagePallet   PackageType = "Pallet"
)

func (p PackageType) IsValid() bool {
	switch p {
	case PackageParcel, PackageDocument, PackageFragile, PackagePallet:
		return true
	default:
		return false
	}
}

type PaymentType string

const (
	PaymentCOD     PaymentType = "COD"
	PaymentPrepaid PaymentType = "Prepaid"
)

func (p PaymentType) IsValid() bool {
	return p == PaymentCOD || p == PaymentPrepaid
}

// Order is the API-facing shape of a shipment order. History is embedded as an
// ordered list, oldest entry first.
type Order struct {
	ID              string         `json:"id"`
	TrackingID      string         `json:"trackingId"`
	SenderID        string         `json:"senderId"`
	ReceiverName    string         `json:"receiverName"`
	ReceiverAddress string         `json:"receiverAddress"`
	ReceiverPhone   string         `json:"receiverPhone"`
	PackageType     PackageType    `json:"packageType"`
	Weight          float64        `json:"weight"`
	PaymentType     PaymentType    `json:"paymentType"`
	DeliveryCost    float64        `json:"deliveryCost"`
	Status          Status         `json:"status"`
	History         []HistoryEntry `json:"history"`
	DateCreated     time.Time      `json:"dateCreated"`
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderWithSender enriches an order with the sender's display fields for the
// admin listing. The enrichment is a read-time join, never persisted.
type OrderWithSender struct {
	Order
	SenderName    string `json:"senderName"`
	SenderAddress string `json:"senderAddress"`
}

type Stats struct {
	TotalOrders int `json:"totalOrders"`
	Pending     int `json:"pending"`
	InTransit   int `json:"inTransit"`
	Delivered   int `json:"delivered"`
}

type CreateOrderInput struct {
	ReceiverName    string      `json:"receiverName"`
	ReceiverAddress string      `json:"receiverAddress"`
	ReceiverPhone   string      `json:"receiverPhone"`
	PackageType     PackageType `json:"packageType"`
	Weight          float64     `json:"weight"`
	PaymentType     PaymentType `json:"paymentType"`
}

func (in CreateOrderInput) Validate() error {
	if in.ReceiverName == "" || in.ReceiverAddress == "" || in.ReceiverPhone == "" {
		return fmt.Errorf("%w: all receiver fields are required", ErrValidation)
	}
	if !in.PackageType.IsValid() {
		return fmt.Errorf("%w: unknown package type %q", ErrValidation, string(in.PackageType))
	}
	if in.Weight <= 0 {
		return fmt.Errorf("%w: weight must be greater than zero", ErrValidation)
	}
	if !in.PaymentType.IsValid() {
		return fmt.Errorf("%w: unknown payment type %q", ErrValidation, string(in.PaymentType))
	}
	return nil
}
