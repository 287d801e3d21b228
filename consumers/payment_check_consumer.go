package consumers

import (
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront/config"
	"storefront/models"
)

// OrderCanceller is the slice of order persistence the payment check
// needs. database.OrderStore satisfies it.
type OrderCanceller interface {
	GetOrder(id string) (*models.Order, bool)
	SetStatus(orderID string, status models.OrderStatus) error
	AppendEvent(e models.OrderEvent) error
}

// StartPaymentCheckConsumer drains the delayed payment-check queue.
// An order still unpaid when its check lands is cancelled; anything
// already paid (or moved on by an admin) is left alone.
func StartPaymentCheckConsumer(ch *amqp.Channel, cfg *config.Config, orders OrderCanceller) {
	msgs, err := ch.Consume(
		cfg.PaymentCheckQueue,
		"storefront-payment-check", // consumer tag
		false,                      // auto-ack
		false,                      // exclusive
		false,                      // no-local
		false,                      // no-wait
		nil,
	)
	if err != nil {
		log.Printf("Failed to register payment check consumer: %v", err)
		return
	}

	go func() {
		for msg := range msgs {
			processPaymentCheck(msg, orders)
		}
	}()
}

func processPaymentCheck(msg amqp.Delivery, orders OrderCanceller) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in payment check: %v", r)
		}
	}()

	orderID := string(msg.Body)
	order, ok := orders.GetOrder(orderID)
	if !ok {
		log.Printf("Payment check for unknown order %s", orderID)
		_ = msg.Ack(false)
		return
	}

	switch order.Status {
	case models.StatusPending, models.StatusPaymentInitiated:
		if err := orders.SetStatus(orderID, models.StatusCancelled); err != nil {
			log.Printf("Failed to auto-cancel order %s: %v", orderID, err)
			_ = msg.Nack(false, true) // requeue, the check can retry
			return
		}
		_ = orders.AppendEvent(models.OrderEvent{
			OrderID:   orderID,
			Type:      string(models.StatusCancelled),
			Note:      "auto-cancelled: payment not received within the payment window",
			CreatedAt: time.Now().UTC(),
		})
		log.Printf("Auto-cancelled order %s due to non-payment", orderID)
	default:
		// paid, shipped, already cancelled: nothing to do
	}
	_ = msg.Ack(false)
}
