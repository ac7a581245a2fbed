// Package checkout содержит unit тесты сервиса создания чекаутов.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/internal/provider"
)

// mockProvider перехватывает параметры создания сессии.
type mockProvider struct {
	created *provider.CreateSessionInput
	err     error
}

func (m *mockProvider) CreateSession(_ context.Context, in provider.CreateSessionInput) (*provider.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &in
	return &provider.Session{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
}

func (m *mockProvider) GetSession(context.Context, string) (*provider.Session, error) {
	panic("не используется в тестах чекаута")
}

func (m *mockProvider) UpdateSessionMetadata(context.Context, string, map[string]string) error {
	panic("не используется в тестах чекаута")
}

func (m *mockProvider) ParseWebhookEvent([]byte, string) (*provider.Event, error) {
	panic("не используется в тестах чекаута")
}

func testInput() CreateCheckoutInput {
	return CreateCheckoutInput{
		CustomerName:   "Иван",
		CustomerNumber: "+966501234567",
		OrderSessionID: "sess-42",
		Items: []domain.OrderItem{
			{ID: "1", Name: "Pizza", Price: 25.5},
			{ID: "2", Name: "Cola", Price: 5},
		},
		TotalPrice: 30.5,
	}
}

func newTestService(p provider.Client) Service {
	return NewService(p, Config{
		Currency:    "sar",
		ProductName: "Restaurant Order",
		FrontendURL: "http://localhost:3000",
	})
}

func TestCreateCheckout(t *testing.T) {
	prov := &mockProvider{}

	sess, err := newTestService(prov).CreateCheckout(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, "cs_test_123", sess.CheckoutID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_123", sess.URL)

	require.NotNil(t, prov.created)

	// Сумма конвертируется в минимальные единицы с округлением.
	assert.Equal(t, int64(3050), prov.created.AmountMinor)
	assert.Equal(t, "sar", prov.created.Currency)
	assert.Equal(t, "Restaurant Order", prov.created.ProductName)

	// Редиректы строятся от frontend URL, session_id подставляет провайдер.
	assert.Equal(t, "http://localhost:3000/payment-success?session_id={CHECKOUT_SESSION_ID}", prov.created.SuccessURL)
	assert.Equal(t, "http://localhost:3000/payment-cancel", prov.created.CancelURL)

	// Метаданные содержат заказ и стартовый processed-флаг.
	md := prov.created.Metadata
	assert.Equal(t, "Иван", md[domain.MetaCustomerName])
	assert.Equal(t, "+966501234567", md[domain.MetaCustomerNumber])
	assert.Equal(t, "sess-42", md[domain.MetaSessionID])
	assert.Equal(t, string(domain.ProcessedFalse), md[domain.MetaProcessed])

	items, err := domain.DecodeOrderMetadata(md[domain.MetaOrder])
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCreateCheckout_Validation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(in *CreateCheckoutInput)
		expectedErr error
	}{
		{
			name:        "пустое имя клиента",
			mutate:      func(in *CreateCheckoutInput) { in.CustomerName = "  " },
			expectedErr: domain.ErrEmptyCustomerName,
		},
		{
			name:        "пустой номер телефона",
			mutate:      func(in *CreateCheckoutInput) { in.CustomerNumber = "" },
			expectedErr: domain.ErrEmptyCustomerNumber,
		},
		{
			name:        "пустой заказ",
			mutate:      func(in *CreateCheckoutInput) { in.Items = nil },
			expectedErr: domain.ErrEmptyOrder,
		},
		{
			name: "отрицательная цена позиции",
			mutate: func(in *CreateCheckoutInput) {
				in.Items = []domain.OrderItem{{ID: "1", Name: "Pizza", Price: -1}}
			},
			expectedErr: domain.ErrNegativePrice,
		},
		{
			name:        "нулевая сумма заказа",
			mutate:      func(in *CreateCheckoutInput) { in.TotalPrice = 0 },
			expectedErr: domain.ErrInvalidTotalPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov := &mockProvider{}
			in := testInput()
			tt.mutate(&in)

			sess, err := newTestService(prov).CreateCheckout(context.Background(), in)

			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Nil(t, sess)
			assert.Nil(t, prov.created, "провайдер не должен вызываться при невалидном заказе")
		})
	}
}

func TestCreateCheckout_OrderTooLarge(t *testing.T) {
	prov := &mockProvider{}

	in := testInput()
	in.Items = make([]domain.OrderItem, 30)
	for i := range in.Items {
		in.Items[i] = domain.OrderItem{
			ID:    fmt.Sprintf("%d", i+1),
			Name:  strings.Repeat("a", 40),
			Price: 10,
		}
	}
	in.TotalPrice = 300

	sess, err := newTestService(prov).CreateCheckout(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrOrderTooLarge)
	assert.Nil(t, sess)
	assert.Nil(t, prov.created, "сессия не создаётся для слишком большого заказа")
}

func TestCreateCheckout_ProviderError(t *testing.T) {
	prov := &mockProvider{err: errors.New("Stripe недоступен")}

	sess, err := newTestService(prov).CreateCheckout(context.Background(), testInput())

	require.Error(t, err)
	assert.Nil(t, sess)
}
