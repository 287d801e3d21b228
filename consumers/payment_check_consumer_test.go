package consumers

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
	"storefront/payments"
)

type fakeCanceller struct {
	orders map[string]*models.Order
	events []models.OrderEvent
}

func (f *fakeCanceller) GetOrder(id string) (*models.Order, bool) {
	o, ok := f.orders[id]
	return o, ok
}

func (f *fakeCanceller) SetStatus(orderID string, status models.OrderStatus) error {
	o, ok := f.orders[orderID]
	if !ok {
		return errors.New("no such order")
	}
	o.Status = status
	return nil
}

func (f *fakeCanceller) AppendEvent(e models.OrderEvent) error {
	f.events = append(f.events, e)
	return nil
}

func TestPaymentCheckCancelsUnpaidOrder(t *testing.T) {
	orders := &fakeCanceller{orders: map[string]*models.Order{
		"order-1": {ID: "order-1", Status: models.StatusPaymentInitiated},
	}}

	processPaymentCheck(amqp.Delivery{Body: []byte("order-1")}, orders)

	assert.Equal(t, models.StatusCancelled, orders.orders["order-1"].Status)
	require.Len(t, orders.events, 1)
	assert.Equal(t, string(models.StatusCancelled), orders.events[0].Type)
}

func TestPaymentCheckLeavesPaidOrderAlone(t *testing.T) {
	orders := &fakeCanceller{orders: map[string]*models.Order{
		"order-1": {ID: "order-1", Status: models.StatusPaid},
	}}

	processPaymentCheck(amqp.Delivery{Body: []byte("order-1")}, orders)

	assert.Equal(t, models.StatusPaid, orders.orders["order-1"].Status)
	assert.Empty(t, orders.events)
}

func TestPaymentCheckUnknownOrder(t *testing.T) {
	orders := &fakeCanceller{orders: map[string]*models.Order{}}
	assert.NotPanics(t, func() {
		processPaymentCheck(amqp.Delivery{Body: []byte("ghost")}, orders)
	})
}

type recordingMailer struct {
	sent []payments.OrderPaidNotification
	err  error
}

func (m *recordingMailer) SendOrderConfirmation(n payments.OrderPaidNotification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func TestNotificationSendsConfirmation(t *testing.T) {
	mailer := &recordingMailer{}
	body := []byte(`{"order_id":"order-1","reference":"REF-1","amount":450,"email":"thandi@example.com"}`)

	processNotification(amqp.Delivery{Body: body}, mailer)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "order-1", mailer.sent[0].OrderID)
	assert.Equal(t, "thandi@example.com", mailer.sent[0].Email)
}

func TestNotificationSendFailureIsSwallowed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp refused")}
	body := []byte(`{"order_id":"order-1","reference":"REF-1","amount":450,"email":"thandi@example.com"}`)

	assert.NotPanics(t, func() {
		processNotification(amqp.Delivery{Body: body}, mailer)
	})
}
