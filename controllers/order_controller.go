package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/cart"
	"storefront/models"
	"storefront/utils"
)

// OrderRepo is the order persistence surface the controller needs.
// database.OrderStore satisfies it.
type OrderRepo interface {
	CreateOrder(o *models.Order) error
	GetOrder(id string) (*models.Order, bool)
	GetOrderDetails(orderID, userID string) (*models.OrderResponse, error)
	ListUserOrders(userID string) ([]models.OrderResponse, error)
	ListEvents(orderID string) ([]models.OrderEvent, error)
	SetStatus(orderID string, status models.OrderStatus) error
	AppendEvent(e models.OrderEvent) error
}

// PaymentCheckScheduler queues a delayed check that auto-cancels the
// order if it is still unpaid when the delay elapses.
type PaymentCheckScheduler interface {
	PublishPaymentCheck(orderID string, delay time.Duration) error
}

type OrderController struct {
	Orders     OrderRepo
	Snapshots  cart.SnapshotStore
	Checks     PaymentCheckScheduler
	CheckDelay time.Duration
}

// CreateOrder turns the caller's cart into a pending order and clears
// the cart. Checkout is the bridge between the cart state and the
// payment flow: the client follows up with a payment initiation for
// the returned order id.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	uid := userID.(string)

	userCart := cart.New(oc.Snapshots, CartKey(uid))
	lines := userCart.Lines()
	if len(lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:         utils.RandomID(),
		UserID:     uid,
		Status:     models.StatusPending,
		TotalPrice: userCart.Subtotal(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, l := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   l.ID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			Price:       l.Price,
			Variant:     l.Variant,
		})
	}

	if err := oc.Orders.CreateOrder(order); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}
	// The order exists at this point; a missing audit row is not
	// worth failing the checkout.
	_ = oc.Orders.AppendEvent(models.OrderEvent{
		OrderID:   order.ID,
		Type:      string(models.StatusPending),
		Note:      "order created from cart",
		CreatedAt: now,
	})

	userCart.Clear()

	if oc.Checks != nil {
		if err := oc.Checks.PublishPaymentCheck(order.ID, oc.CheckDelay); err != nil {
			log.Printf("Failed to schedule payment check for order %s: %v", order.ID, err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"order_id": order.ID, "total_price": order.TotalPrice})
}

func (oc *OrderController) GetUserOrders(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orders, err := oc.Orders.ListUserOrders(userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if orders == nil {
		orders = []models.OrderResponse{}
	}
	c.JSON(http.StatusOK, orders)
}

func (oc *OrderController) GetOrderDetails(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orderID := c.Param("id")
	order, err := oc.Orders.GetOrderDetails(orderID, userID.(string))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderEvents returns the append-only audit trail for an order the
// caller owns.
func (oc *OrderController) GetOrderEvents(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orderID := c.Param("id")
	order, ok := oc.Orders.GetOrder(orderID)
	if !ok || order.UserID != userID.(string) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	events, err := oc.Orders.ListEvents(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if events == nil {
		events = []models.OrderEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// UpdateOrderStatus is the admin fulfilment operation (shipped,
// delivered, returned, cancelled). Payment transitions go through the
// webhook only.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var request struct {
		Status string `json:"status" binding:"required,oneof=pending cancelled shipped delivered returned"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := oc.Orders.GetOrder(orderID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	status := models.OrderStatus(request.Status)
	if err := oc.Orders.SetStatus(orderID, status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	note := request.Note
	if note == "" {
		note = "status set to " + request.Status
	}
	_ = oc.Orders.AppendEvent(models.OrderEvent{
		OrderID:   orderID,
		Type:      request.Status,
		Note:      utils.SanitizeText(note),
		CreatedAt: time.Now().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order_id": orderID})
}
