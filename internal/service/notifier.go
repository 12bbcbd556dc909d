package service

import (
	"time"
)

const (
	EventSaleCreated   = "sale.created"
	EventSaleValidated = "sale.validated"
	EventSaleCancelled = "sale.cancelled"
)

// SaleEvent is published after a committed lifecycle transition.
type SaleEvent struct {
	Type          string    `json:"type"`
	ReceiptNumber string    `json:"receipt_number"`
	Status        string    `json:"status"`
	TotalAmount   int64     `json:"total_amount"`
	ActorID       string    `json:"actor_id"`
	At            time.Time `json:"at"`
}

// Notifier fans sale events out to live dashboards. Publish must not block.
type Notifier interface {
	Publish(event SaleEvent)
}

type noopNotifier struct{}

func (noopNotifier) Publish(SaleEvent) {}
