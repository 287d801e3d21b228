package models

import (
	"time"
)

type OrderStatus string

const (
	StatusPending          OrderStatus = "pending"
	StatusPaymentInitiated OrderStatus = "payment_initiated"
	StatusPaid             OrderStatus = "paid"
	StatusPaymentFailed    OrderStatus = "payment_failed"
	StatusCancelled        OrderStatus = "cancelled"
	StatusShipped          OrderStatus = "shipped"
	StatusDelivered        OrderStatus = "delivered"
	StatusReturned         OrderStatus = "returned"
)

type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Status     OrderStatus `json:"status"`
	TotalPrice float64     `json:"total_price"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Items      []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ProductID   string  `json:"product_id" binding:"required"`
	ProductName string  `json:"product_name" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required"`
	Price       float64 `json:"price" binding:"required"`
	Variant     string  `json:"variant,omitempty"`
}

// OrderEvent is one row of an order's append-only audit log. Status
// transitions are never rewritten in place; each transition appends
// an event carrying a note and, for payment events, the gateway
// reference.
type OrderEvent struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	Type      string    `json:"type"`
	Note      string    `json:"note"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderResponse struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Status     OrderStatus       `json:"status"`
	TotalPrice float64           `json:"total_price"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []OrderItemDetail `json:"items"`
}

type OrderItemDetail struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Subtotal    float64 `json:"subtotal"`
}
