// Package handler содержит unit тесты HTTP обработчиков.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/restaurant-checkout/internal/checkout"
	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/internal/fulfillment"
	"example.com/restaurant-checkout/internal/provider"
)

// =====================================
// Моки зависимостей
// =====================================

// MockCheckoutService — мок для checkout.Service.
type MockCheckoutService struct {
	CreateCheckoutFunc func(ctx context.Context, in checkout.CreateCheckoutInput) (*checkout.CheckoutSession, error)
}

func (m *MockCheckoutService) CreateCheckout(ctx context.Context, in checkout.CreateCheckoutInput) (*checkout.CheckoutSession, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, in)
	}
	return nil, nil
}

// MockProvider — мок для provider.Client.
type MockProvider struct {
	GetSessionFunc        func(ctx context.Context, id string) (*provider.Session, error)
	ParseWebhookEventFunc func(payload []byte, signature string) (*provider.Event, error)
}

func (m *MockProvider) CreateSession(context.Context, provider.CreateSessionInput) (*provider.Session, error) {
	return nil, nil
}

func (m *MockProvider) GetSession(ctx context.Context, id string) (*provider.Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockProvider) UpdateSessionMetadata(context.Context, string, map[string]string) error {
	return nil
}

func (m *MockProvider) ParseWebhookEvent(payload []byte, signature string) (*provider.Event, error) {
	if m.ParseWebhookEventFunc != nil {
		return m.ParseWebhookEventFunc(payload, signature)
	}
	return nil, nil
}

// MockFulfiller — мок для Fulfiller.
type MockFulfiller struct {
	ProcessFunc func(ctx context.Context, checkoutID string) (*fulfillment.Outcome, error)
	calls       int
}

func (m *MockFulfiller) Process(ctx context.Context, checkoutID string) (*fulfillment.Outcome, error) {
	m.calls++
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, checkoutID)
	}
	return &fulfillment.Outcome{Result: fulfillment.ResultCompleted, CheckoutID: checkoutID}, nil
}

// MockArchive — мок для FulfillmentArchive.
type MockArchive struct {
	GetFunc func(ctx context.Context, checkoutID string) (*domain.Fulfillment, error)
}

func (m *MockArchive) GetByCheckoutID(ctx context.Context, checkoutID string) (*domain.Fulfillment, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, checkoutID)
	}
	return nil, domain.ErrFulfillmentNotFound
}

// =====================================
// Вспомогательные функции
// =====================================

// performJSON выполняет запрос с JSON телом через тестовый роутер.
func performJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validCreateCheckoutRequest() CreateCheckoutRequest {
	return CreateCheckoutRequest{
		CustomerName:   "Иван",
		CustomerNumber: "+966501234567",
		OrderItems: []OrderItemRequest{
			{ID: "1", Name: "Pizza", Price: 25.5},
			{ID: "2", Name: "Cola", Price: 5},
		},
		TotalPrice: 30.5,
		SessionID:  "sess-42",
	}
}

// =====================================
// Тесты CreateCheckout
// =====================================

func setupCheckoutRouter(svc checkout.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/create-checkout-session", NewCheckoutHandler(svc).CreateCheckout)
	return r
}

func TestCreateCheckoutHandler(t *testing.T) {
	svc := &MockCheckoutService{
		CreateCheckoutFunc: func(_ context.Context, in checkout.CreateCheckoutInput) (*checkout.CheckoutSession, error) {
			assert.Equal(t, "Иван", in.CustomerName)
			assert.Equal(t, "sess-42", in.OrderSessionID)
			assert.Len(t, in.Items, 2)
			return &checkout.CheckoutSession{
				CheckoutID: "cs_test_123",
				URL:        "https://checkout.stripe.com/pay/cs_test_123",
			}, nil
		},
	}

	w := performJSON(setupCheckoutRouter(svc), http.MethodPost, "/create-checkout-session", validCreateCheckoutRequest())
	require.Equal(t, http.StatusOK, w.Code)

	var resp CreateCheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_123", resp.CheckoutURL)
}

func TestCreateCheckoutHandler_InvalidBody(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(req *CreateCheckoutRequest)
	}{
		{"без имени", func(r *CreateCheckoutRequest) { r.CustomerName = "" }},
		{"без телефона", func(r *CreateCheckoutRequest) { r.CustomerNumber = "" }},
		{"без позиций", func(r *CreateCheckoutRequest) { r.OrderItems = nil }},
		{"нулевая сумма", func(r *CreateCheckoutRequest) { r.TotalPrice = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &MockCheckoutService{
				CreateCheckoutFunc: func(context.Context, checkout.CreateCheckoutInput) (*checkout.CheckoutSession, error) {
					called = true
					return nil, nil
				},
			}

			req := validCreateCheckoutRequest()
			tt.mutate(&req)

			w := performJSON(setupCheckoutRouter(svc), http.MethodPost, "/create-checkout-session", req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, called, "сервис не должен вызываться при невалидном запросе")
		})
	}
}

func TestCreateCheckoutHandler_OrderTooLarge(t *testing.T) {
	svc := &MockCheckoutService{
		CreateCheckoutFunc: func(context.Context, checkout.CreateCheckoutInput) (*checkout.CheckoutSession, error) {
			return nil, domain.ErrOrderTooLarge
		},
	}

	w := performJSON(setupCheckoutRouter(svc), http.MethodPost, "/create-checkout-session", validCreateCheckoutRequest())
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "order_too_large", resp.Error)
}

// =====================================
// Тесты VerifyPayment
// =====================================

func setupVerifyRouter(p provider.Client, f Fulfiller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/verify-payment", NewVerifyHandler(p, f).VerifyPayment)
	return r
}

func TestVerifyPayment_AlreadyProcessed(t *testing.T) {
	prov := &MockProvider{
		GetSessionFunc: func(context.Context, string) (*provider.Session, error) {
			return &provider.Session{
				ID:            "cs_test_123",
				PaymentStatus: provider.PaymentStatusPaid,
				Metadata:      map[string]string{domain.MetaProcessed: string(domain.ProcessedTrue)},
			}, nil
		},
	}
	fulfiller := &MockFulfiller{}

	w := performJSON(setupVerifyRouter(prov, fulfiller), http.MethodPost, "/verify-payment",
		VerifyPaymentRequest{SessionID: "cs_test_123"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp VerifyPaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, string(domain.ProcessedTrue), resp.Processed)

	assert.Zero(t, fulfiller.calls, "обработанная сессия не запускает процессор")
}

func TestVerifyPayment_NotPaid(t *testing.T) {
	prov := &MockProvider{
		GetSessionFunc: func(context.Context, string) (*provider.Session, error) {
			return &provider.Session{ID: "cs_test_123", PaymentStatus: "unpaid"}, nil
		},
	}
	fulfiller := &MockFulfiller{}

	w := performJSON(setupVerifyRouter(prov, fulfiller), http.MethodPost, "/verify-payment",
		VerifyPaymentRequest{SessionID: "cs_test_123"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "payment_not_completed", resp.Error)
	assert.Zero(t, fulfiller.calls)
}

func TestVerifyPayment_TriggersFulfillment(t *testing.T) {
	prov := &MockProvider{
		GetSessionFunc: func(context.Context, string) (*provider.Session, error) {
			return &provider.Session{
				ID:            "cs_test_123",
				PaymentStatus: provider.PaymentStatusPaid,
				Metadata:      map[string]string{domain.MetaProcessed: string(domain.ProcessedFalse)},
			}, nil
		},
	}
	fulfiller := &MockFulfiller{}

	w := performJSON(setupVerifyRouter(prov, fulfiller), http.MethodPost, "/verify-payment",
		VerifyPaymentRequest{SessionID: "cs_test_123"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp VerifyPaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, fulfiller.calls, "необработанная сессия добирается процессором")
}

func TestVerifyPayment_InProgress(t *testing.T) {
	prov := &MockProvider{
		GetSessionFunc: func(context.Context, string) (*provider.Session, error) {
			return &provider.Session{
				ID:            "cs_test_123",
				PaymentStatus: provider.PaymentStatusPaid,
				Metadata:      map[string]string{domain.MetaProcessed: string(domain.ProcessedFalse)},
			}, nil
		},
	}
	fulfiller := &MockFulfiller{
		ProcessFunc: func(_ context.Context, id string) (*fulfillment.Outcome, error) {
			return &fulfillment.Outcome{Result: fulfillment.ResultInProgress, CheckoutID: id}, nil
		},
	}

	w := performJSON(setupVerifyRouter(prov, fulfiller), http.MethodPost, "/verify-payment",
		VerifyPaymentRequest{SessionID: "cs_test_123"})

	// 202: параллельный вызов ещё работает, клиент повторит запрос.
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestVerifyPayment_FulfillmentFailed(t *testing.T) {
	prov := &MockProvider{
		GetSessionFunc: func(context.Context, string) (*provider.Session, error) {
			return &provider.Session{
				ID:            "cs_test_123",
				PaymentStatus: provider.PaymentStatusPaid,
				Metadata:      map[string]string{domain.MetaProcessed: string(domain.ProcessedError)},
			}, nil
		},
	}
	fulfiller := &MockFulfiller{
		ProcessFunc: func(_ context.Context, id string) (*fulfillment.Outcome, error) {
			return &fulfillment.Outcome{
				Result:     fulfillment.ResultFailed,
				CheckoutID: id,
				Sinks:      []fulfillment.SinkResult{{Name: "save_order", Err: errors.New("хранилище недоступно")}},
				Err:        domain.ErrSaveOrderFailed,
			}, nil
		},
	}

	w := performJSON(setupVerifyRouter(prov, fulfiller), http.MethodPost, "/verify-payment",
		VerifyPaymentRequest{SessionID: "cs_test_123"})

	// Сбой обработки уже отражён в состоянии сессии — это не 5xx.
	require.Equal(t, http.StatusOK, w.Code)

	var resp VerifyPaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, []string{"save_order"}, resp.FailedSinks)
}

func TestVerifyPayment_MissingSessionID(t *testing.T) {
	w := performJSON(setupVerifyRouter(&MockProvider{}, &MockFulfiller{}),
		http.MethodPost, "/verify-payment", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyPayment_ProviderError(t *testing.T) {
	prov := &MockProvider{
		GetSessionFunc: func(context.Context, string) (*provider.Session, error) {
			return nil, errors.New("Stripe недоступен")
		},
	}

	w := performJSON(setupVerifyRouter(prov, &MockFulfiller{}), http.MethodPost, "/verify-payment",
		VerifyPaymentRequest{SessionID: "cs_test_123"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// =====================================
// Тесты HandleWebhook
// =====================================

func setupWebhookRouter(p provider.Client, f Fulfiller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/stripe-webhook", NewWebhookHandler(p, f).HandleWebhook)
	return r
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	prov := &MockProvider{
		ParseWebhookEventFunc: func([]byte, string) (*provider.Event, error) {
			return nil, errors.New("подпись не сошлась")
		},
	}
	fulfiller := &MockFulfiller{}

	w := performJSON(setupWebhookRouter(prov, fulfiller), http.MethodPost, "/stripe-webhook", gin.H{"any": "payload"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, fulfiller.calls, "событие с неверной подписью не обрабатывается")

	// Детали ошибки подписи не утекают в ответ.
	assert.NotContains(t, w.Body.String(), "подпись не сошлась")
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	prov := &MockProvider{
		ParseWebhookEventFunc: func([]byte, string) (*provider.Event, error) {
			return &provider.Event{Type: "payment_intent.succeeded"}, nil
		},
	}
	fulfiller := &MockFulfiller{}

	w := performJSON(setupWebhookRouter(prov, fulfiller), http.MethodPost, "/stripe-webhook", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Received)
	assert.Zero(t, fulfiller.calls)
}

func TestHandleWebhook_ProcessesCheckoutCompleted(t *testing.T) {
	prov := &MockProvider{
		ParseWebhookEventFunc: func([]byte, string) (*provider.Event, error) {
			return &provider.Event{Type: provider.EventCheckoutCompleted, SessionID: "cs_test_123"}, nil
		},
	}
	fulfiller := &MockFulfiller{}

	w := performJSON(setupWebhookRouter(prov, fulfiller), http.MethodPost, "/stripe-webhook", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Received)
	assert.True(t, resp.Processed)
	assert.Equal(t, 1, fulfiller.calls)
}

func TestHandleWebhook_AlwaysAcksAfterSignature(t *testing.T) {
	tests := []struct {
		name    string
		outcome *fulfillment.Outcome
		err     error
	}{
		{
			name:    "повторное событие",
			outcome: &fulfillment.Outcome{Result: fulfillment.ResultSkipped},
		},
		{
			name:    "параллельная обработка",
			outcome: &fulfillment.Outcome{Result: fulfillment.ResultInProgress},
		},
		{
			name: "сбой обработки",
			outcome: &fulfillment.Outcome{
				Result: fulfillment.ResultFailed,
				Err:    domain.ErrMissingOrderData,
			},
		},
		{
			name: "внутренняя ошибка процессора",
			err:  errors.New("Stripe недоступен"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov := &MockProvider{
				ParseWebhookEventFunc: func([]byte, string) (*provider.Event, error) {
					return &provider.Event{Type: provider.EventCheckoutCompleted, SessionID: "cs_test_123"}, nil
				},
			}
			fulfiller := &MockFulfiller{
				ProcessFunc: func(context.Context, string) (*fulfillment.Outcome, error) {
					return tt.outcome, tt.err
				},
			}

			w := performJSON(setupWebhookRouter(prov, fulfiller), http.MethodPost, "/stripe-webhook", gin.H{})

			// Провайдер всегда получает 200 после проверенной подписи.
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

// =====================================
// Тесты GetFulfillment
// =====================================

func setupFulfillmentRouter(a FulfillmentArchive) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/fulfillments/:session_id", NewFulfillmentHandler(a).GetFulfillment)
	return r
}

func TestGetFulfillment(t *testing.T) {
	now := time.Now()
	arch := &MockArchive{
		GetFunc: func(_ context.Context, checkoutID string) (*domain.Fulfillment, error) {
			require.Equal(t, "cs_test_123", checkoutID)
			return &domain.Fulfillment{
				CheckoutID:   "cs_test_123",
				CustomerName: "Иван",
				TotalAmount:  5500,
				Status:       domain.FulfillmentCompleted,
				FailedSinks:  []string{"invoice"},
				CreatedAt:    now,
				UpdatedAt:    now,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/fulfillments/cs_test_123", nil)
	w := httptest.NewRecorder()
	setupFulfillmentRouter(arch).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp FulfillmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cs_test_123", resp.CheckoutID)
	assert.Equal(t, string(domain.FulfillmentCompleted), resp.Status)
	assert.Equal(t, []string{"invoice"}, resp.FailedSinks)
}

func TestGetFulfillment_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/fulfillments/cs_unknown", nil)
	w := httptest.NewRecorder()
	setupFulfillmentRouter(&MockArchive{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
