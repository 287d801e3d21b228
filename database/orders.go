package database

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"storefront/models"
)

// OrderStore is the MySQL-backed order repository. It satisfies
// payments.OrderStore.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) CreateOrder(o *models.Order) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"INSERT INTO orders (id, user_id, status, total_price, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		o.ID, o.UserID, string(o.Status), o.TotalPrice, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, item := range o.Items {
		_, err = tx.Exec(
			"INSERT INTO order_items (order_id, product_id, product_name, quantity, price, variant) VALUES (?, ?, ?, ?, ?, ?)",
			o.ID, item.ProductID, item.ProductName, item.Quantity, item.Price, item.Variant,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *OrderStore) GetOrder(id string) (*models.Order, bool) {
	var o models.Order
	var status string
	err := s.db.QueryRow(
		"SELECT id, user_id, status, total_price, created_at, updated_at FROM orders WHERE id = ?", id,
	).Scan(&o.ID, &o.UserID, &status, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("order lookup failed for %s: %v", id, err)
		}
		return nil, false
	}
	o.Status = models.OrderStatus(status)
	return &o, true
}

func (s *OrderStore) SetStatus(orderID string, status models.OrderStatus) error {
	_, err := s.db.Exec(
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC(), orderID,
	)
	return err
}

// MarkPaid is the idempotency guard for charge.success replays: the
// transition only applies when the order is not already paid, and the
// caller skips all side effects when it reports false.
func (s *OrderStore) MarkPaid(orderID, reference string) (bool, error) {
	res, err := s.db.Exec(
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status <> ?",
		string(models.StatusPaid), time.Now().UTC(), orderID, string(models.StatusPaid),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *OrderStore) AppendEvent(e models.OrderEvent) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		"INSERT INTO order_events (order_id, type, note, reference, created_at) VALUES (?, ?, ?, ?, ?)",
		e.OrderID, e.Type, e.Note, e.Reference, createdAt,
	)
	return err
}

func (s *OrderStore) ListEvents(orderID string) ([]models.OrderEvent, error) {
	rows, err := s.db.Query(
		"SELECT id, order_id, type, note, reference, created_at FROM order_events WHERE order_id = ? ORDER BY id ASC",
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.OrderEvent
	for rows.Next() {
		var e models.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Type, &e.Note, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *OrderStore) ListUserOrders(userID string) ([]models.OrderResponse, error) {
	rows, err := s.db.Query(`
		SELECT o.id, o.status, o.total_price, o.created_at,
		       oi.product_id, oi.product_name, oi.quantity, oi.price
		FROM orders o
		JOIN order_items oi ON o.id = oi.order_id
		WHERE o.user_id = ?
		ORDER BY o.created_at DESC, oi.id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ordersMap := make(map[string]*models.OrderResponse)
	var orderIDs []string
	for rows.Next() {
		var (
			orderID     string
			status      string
			total       float64
			createdAt   time.Time
			productID   string
			productName string
			quantity    int
			price       float64
		)
		if err := rows.Scan(&orderID, &status, &total, &createdAt,
			&productID, &productName, &quantity, &price); err != nil {
			log.Printf("error scanning order row: %v", err)
			continue
		}

		if _, exists := ordersMap[orderID]; !exists {
			ordersMap[orderID] = &models.OrderResponse{
				ID:         orderID,
				UserID:     userID,
				Status:     models.OrderStatus(status),
				TotalPrice: total,
				CreatedAt:  createdAt,
				Items:      []models.OrderItemDetail{},
			}
			orderIDs = append(orderIDs, orderID)
		}
		ordersMap[orderID].Items = append(ordersMap[orderID].Items, models.OrderItemDetail{
			ProductID:   productID,
			ProductName: productName,
			Quantity:    quantity,
			Price:       price,
			Subtotal:    price * float64(quantity),
		})
	}

	out := make([]models.OrderResponse, 0, len(orderIDs))
	for _, id := range orderIDs {
		out = append(out, *ordersMap[id])
	}
	return out, rows.Err()
}

func (s *OrderStore) GetOrderDetails(orderID, userID string) (*models.OrderResponse, error) {
	var o models.OrderResponse
	var status string
	err := s.db.QueryRow(
		"SELECT id, user_id, status, total_price, created_at FROM orders WHERE id = ? AND user_id = ?",
		orderID, userID,
	).Scan(&o.ID, &o.UserID, &status, &o.TotalPrice, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)

	rows, err := s.db.Query(
		"SELECT product_id, product_name, quantity, price FROM order_items WHERE order_id = ?", orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItemDetail
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			log.Printf("error scanning order item: %v", err)
			continue
		}
		item.Subtotal = item.Price * float64(item.Quantity)
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}
