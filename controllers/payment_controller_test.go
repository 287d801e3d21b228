package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
	"storefront/payments"
	"storefront/paystack"
)

const webhookSecret = "whsec_test"

type stubOrderStore struct {
	orders map[string]*models.Order
	events []models.OrderEvent
}

func (s *stubOrderStore) GetOrder(id string) (*models.Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

func (s *stubOrderStore) SetStatus(orderID string, status models.OrderStatus) error {
	if o, ok := s.orders[orderID]; ok {
		o.Status = status
		return nil
	}
	return errors.New("no such order")
}

func (s *stubOrderStore) MarkPaid(orderID, reference string) (bool, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return false, errors.New("no such order")
	}
	if o.Status == models.StatusPaid {
		return false, nil
	}
	o.Status = models.StatusPaid
	return true, nil
}

func (s *stubOrderStore) AppendEvent(e models.OrderEvent) error {
	s.events = append(s.events, e)
	return nil
}

type stubGateway struct {
	failMsg string
	calls   int
}

func (g *stubGateway) InitializeTransaction(req paystack.InitializeRequest) (*paystack.InitializeData, error) {
	g.calls++
	if g.failMsg != "" {
		return nil, errors.New(g.failMsg)
	}
	return &paystack.InitializeData{
		AuthorizationURL: "https://checkout.paystack.com/xyz",
		AccessCode:       "xyz",
		Reference:        req.Reference,
	}, nil
}

type stubNotifier struct {
	sent []payments.OrderPaidNotification
}

func (n *stubNotifier) PublishOrderPaid(note payments.OrderPaidNotification) error {
	n.sent = append(n.sent, note)
	return nil
}

func newPaymentRouter(store *stubOrderStore, gw *stubGateway, notifier *stubNotifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := payments.NewService(store, gw, notifier, webhookSecret, "SF")
	pc := &PaymentController{Service: svc}

	r := gin.New()
	r.POST("/api/payments/initiate", pc.InitiatePayment)
	r.POST("/webhooks/paystack", pc.HandleWebhook)
	return r
}

func signBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func seededStore() *stubOrderStore {
	return &stubOrderStore{orders: map[string]*models.Order{
		"order-1": {
			ID:         "order-1",
			UserID:     "user-1",
			Status:     models.StatusPending,
			TotalPrice: 450,
			CreatedAt:  time.Now().UTC(),
		},
	}}
}

func TestInitiatePaymentSuccess(t *testing.T) {
	store := seededStore()
	r := newPaymentRouter(store, &stubGateway{}, &stubNotifier{})

	body := []byte(`{"order_id":"order-1","amount":450,"email":"thandi@example.com","callback_url":"https://shop.example/done"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/initiate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
		OrderID string `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://checkout.paystack.com/xyz", resp.Data.AuthorizationURL)
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Equal(t, models.StatusPaymentInitiated, store.orders["order-1"].Status)
}

func TestInitiatePaymentOrderNotFound(t *testing.T) {
	r := newPaymentRouter(&stubOrderStore{orders: map[string]*models.Order{}}, &stubGateway{}, &stubNotifier{})

	body := []byte(`{"order_id":"ghost","amount":10,"email":"a@b.co"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/initiate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Order not found")
}

func TestInitiatePaymentGatewayError(t *testing.T) {
	r := newPaymentRouter(seededStore(), &stubGateway{failMsg: "Invalid key"}, &stubNotifier{})

	body := []byte(`{"order_id":"order-1","amount":10,"email":"a@b.co"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/initiate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid key")
}

func TestInitiatePaymentRejectsBadEmail(t *testing.T) {
	r := newPaymentRouter(seededStore(), &stubGateway{}, &stubNotifier{})

	body := []byte(`{"order_id":"order-1","amount":10,"email":"not-an-email"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/initiate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiatePaymentRejectsNonPositiveAmount(t *testing.T) {
	store := seededStore()
	gw := &stubGateway{}
	r := newPaymentRouter(store, gw, &stubNotifier{})

	for _, body := range []string{
		`{"order_id":"order-1","amount":-450,"email":"thandi@example.com"}`,
		`{"order_id":"order-1","amount":0,"email":"thandi@example.com"}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/payments/initiate", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	assert.Zero(t, gw.calls, "gateway must not see a non-positive amount")
	assert.Equal(t, models.StatusPending, store.orders["order-1"].Status)
}

func webhookBody(orderID string) []byte {
	return []byte(`{"event":"charge.success","data":{"reference":"REF-1","amount":45000,"metadata":{"order_id":"` + orderID + `","email":"thandi@example.com"}}}`)
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	store := seededStore()
	r := newPaymentRouter(store, &stubGateway{}, &stubNotifier{})

	body := webhookBody("order-1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", "deadbeef")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.StatusPending, store.orders["order-1"].Status, "no mutation on bad signature")
	assert.Empty(t, store.events)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	store := seededStore()
	r := newPaymentRouter(store, &stubGateway{}, &stubNotifier{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(webhookBody("order-1")))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.StatusPending, store.orders["order-1"].Status)
}

func TestWebhookProcessesSignedChargeSuccess(t *testing.T) {
	store := seededStore()
	notifier := &stubNotifier{}
	r := newPaymentRouter(store, &stubGateway{}, notifier)

	body := webhookBody("order-1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Equal(t, models.StatusPaid, store.orders["order-1"].Status)
	assert.Len(t, notifier.sent, 1)
}

func TestWebhookReplayGetsOKWithoutSideEffects(t *testing.T) {
	store := seededStore()
	notifier := &stubNotifier{}
	r := newPaymentRouter(store, &stubGateway{}, notifier)

	body := webhookBody("order-1")
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
		req.Header.Set("x-paystack-signature", signBody(body))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "delivery %d", i+1)
	}

	assert.Len(t, notifier.sent, 1, "replay must not resend the confirmation email")
}
