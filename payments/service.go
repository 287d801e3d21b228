package payments

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"storefront/models"
	"storefront/paystack"
)

// OrderStore is the slice of order persistence the payment flow
// needs.
type OrderStore interface {
	GetOrder(id string) (*models.Order, bool)
	SetStatus(orderID string, status models.OrderStatus) error
	// MarkPaid transitions the order to paid and reports whether the
	// transition was applied. An already-paid order returns false
	// with no error, which is how webhook replays are absorbed.
	MarkPaid(orderID, reference string) (bool, error)
	AppendEvent(e models.OrderEvent) error
}

// Gateway initializes hosted-payment transactions.
type Gateway interface {
	InitializeTransaction(req paystack.InitializeRequest) (*paystack.InitializeData, error)
}

// Notifier delivers best-effort notifications. Failures are the
// caller's to swallow: a lost confirmation email never fails a
// webhook.
type Notifier interface {
	PublishOrderPaid(n OrderPaidNotification) error
}

type OrderPaidNotification struct {
	OrderID   string  `json:"order_id"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Email     string  `json:"email"`
}

type Service struct {
	Orders        OrderStore
	Gateway       Gateway
	Notifier      Notifier
	WebhookSecret string
	RefPrefix     string
	Now           func() time.Time
}

func NewService(orders OrderStore, gateway Gateway, notifier Notifier, webhookSecret, refPrefix string) *Service {
	return &Service{
		Orders:        orders,
		Gateway:       gateway,
		Notifier:      notifier,
		WebhookSecret: webhookSecret,
		RefPrefix:     refPrefix,
		Now:           time.Now,
	}
}

type InitiateRequest struct {
	OrderID     string
	Amount      float64
	Email       string
	Reference   string
	CallbackURL string
}

type InitiateResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Initiate looks up the order, initializes a gateway transaction for
// it and records the attempt in the order's audit log. The caller is
// expected to redirect the browser to the returned authorization URL;
// payment completion arrives later through the webhook.
func (s *Service) Initiate(req InitiateRequest) (*InitiateResult, error) {
	order, ok := s.Orders.GetOrder(req.OrderID)
	if !ok {
		return nil, ErrOrderNotFound
	}

	reference := req.Reference
	if reference == "" {
		reference = s.newReference(order.ID)
	}

	init, err := s.Gateway.InitializeTransaction(paystack.InitializeRequest{
		Email:       req.Email,
		Amount:      toMinorUnits(req.Amount),
		Reference:   reference,
		CallbackURL: req.CallbackURL,
		Metadata:    map[string]any{"order_id": order.ID},
	})
	if err != nil {
		log.Printf("gateway initialize failed for order %s (ref %s): %v", order.ID, reference, err)
		return nil, &GatewayError{Message: err.Error()}
	}

	if err := s.Orders.SetStatus(order.ID, models.StatusPaymentInitiated); err != nil {
		log.Printf("failed to mark order %s payment_initiated: %v", order.ID, err)
	}
	if err := s.Orders.AppendEvent(models.OrderEvent{
		OrderID:   order.ID,
		Type:      string(models.StatusPaymentInitiated),
		Note:      fmt.Sprintf("payment initiated with reference %s", reference),
		Reference: reference,
		CreatedAt: s.Now(),
	}); err != nil {
		log.Printf("failed to record initiation event for order %s: %v", order.ID, err)
	}

	return &InitiateResult{
		AuthorizationURL: init.AuthorizationURL,
		AccessCode:       init.AccessCode,
		Reference:        init.Reference,
	}, nil
}

// WebhookPayload is the gateway's callback body.
type WebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string  `json:"reference"`
		Amount          int64   `json:"amount"`
		GatewayResponse string  `json:"gateway_response"`
		Metadata        struct {
			OrderID string `json:"order_id"`
			Email   string `json:"email"`
		} `json:"metadata"`
	} `json:"data"`
}

// HandleWebhook verifies and applies one gateway callback. It is
// replay-safe: a second charge.success with the same reference finds
// the order already paid and performs no side effects. A nil return
// means the gateway should get a 200 even when the event was a no-op.
func (s *Service) HandleWebhook(signature string, body []byte) error {
	if signature == "" {
		return ErrMissingSignature
	}
	if !VerifySignature(s.WebhookSecret, body, signature) {
		return ErrBadSignature
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ErrBadPayload
	}
	orderID := payload.Data.Metadata.OrderID
	if orderID == "" {
		return ErrBadPayload
	}

	switch payload.Event {
	case "charge.success":
		return s.applyChargeSuccess(orderID, payload)
	case "charge.failed":
		return s.applyChargeFailed(orderID, payload)
	default:
		log.Printf("ignoring unhandled webhook event %q for order %s", payload.Event, orderID)
		return nil
	}
}

func (s *Service) applyChargeSuccess(orderID string, payload WebhookPayload) error {
	amount := fromMinorUnits(payload.Data.Amount)
	applied, err := s.Orders.MarkPaid(orderID, payload.Data.Reference)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("order %s already paid, skipping replayed charge.success (ref %s)", orderID, payload.Data.Reference)
		return nil
	}

	if err := s.Orders.AppendEvent(models.OrderEvent{
		OrderID:   orderID,
		Type:      string(models.StatusPaid),
		Note:      fmt.Sprintf("payment confirmed, reference %s, amount %.2f", payload.Data.Reference, amount),
		Reference: payload.Data.Reference,
		CreatedAt: s.Now(),
	}); err != nil {
		log.Printf("failed to record paid event for order %s: %v", orderID, err)
	}

	// Best effort only. The money moved; a failed email must not turn
	// this into a non-2xx that makes the gateway retry.
	if s.Notifier != nil {
		if err := s.Notifier.PublishOrderPaid(OrderPaidNotification{
			OrderID:   orderID,
			Reference: payload.Data.Reference,
			Amount:    amount,
			Email:     payload.Data.Metadata.Email,
		}); err != nil {
			log.Printf("failed to queue confirmation email for order %s: %v", orderID, err)
		}
	}
	return nil
}

func (s *Service) applyChargeFailed(orderID string, payload WebhookPayload) error {
	if _, ok := s.Orders.GetOrder(orderID); !ok {
		log.Printf("ignoring charge.failed for unknown order %s (ref %s)", orderID, payload.Data.Reference)
		return nil
	}

	note := "payment failed"
	if payload.Data.GatewayResponse != "" {
		note = "payment failed: " + payload.Data.GatewayResponse
	}
	// The primary status stays put; the failure is audit-only.
	return s.Orders.AppendEvent(models.OrderEvent{
		OrderID:   orderID,
		Type:      string(models.StatusPaymentFailed),
		Note:      note,
		Reference: payload.Data.Reference,
		CreatedAt: s.Now(),
	})
}

func (s *Service) newReference(orderID string) string {
	prefix := orderID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s-%s-%d", s.RefPrefix, prefix, s.Now().UnixMilli())
}

func toMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

func fromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
