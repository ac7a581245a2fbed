// Package archive содержит unit тесты репозитория архива.
package archive

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/restaurant-checkout/internal/domain"
)

// setupMockDB создаёт мок базы данных с GORM.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Ошибка создания sqlmock")

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Ошибка инициализации GORM")

	return gormDB, mock, func() { _ = db.Close() }
}

func testFulfillment() *domain.Fulfillment {
	return &domain.Fulfillment{
		CheckoutID:     "cs_test_123",
		OrderSessionID: "sess-42",
		CustomerName:   "Иван",
		CustomerNumber: "+966501234567",
		TotalAmount:    5500,
		Status:         domain.FulfillmentCompleted,
		FailedSinks:    []string{"invoice"},
	}
}

func TestRecord(t *testing.T) {
	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectedErr error
	}{
		{
			name: "обновление существующей записи",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `fulfillments`")).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "создание новой записи",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `fulfillments`")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()

				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `fulfillments`")).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "ошибка БД",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `fulfillments`")).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			expectedErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			repo := NewRepository(gormDB)
			tt.mockSetup(mock)

			f := testFulfillment()
			err := repo.Record(context.Background(), f)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, f.ID, "ID должен генерироваться при записи")
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetByCheckoutID(t *testing.T) {
	columns := []string{
		"id", "checkout_id", "order_session_id", "customer_name",
		"customer_number", "total_amount", "status", "failed_sinks",
		"error_message", "created_at", "updated_at",
	}
	now := time.Now()

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expected    *domain.Fulfillment
		expectedErr error
	}{
		{
			name: "запись найдена",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(columns).
					AddRow("rec-uuid", "cs_test_123", "sess-42", "Иван",
						"+966501234567", int64(5500), "COMPLETED", "kitchen,invoice",
						nil, now, now)
				mock.ExpectQuery("SELECT (.+) FROM `fulfillments`").
					WithArgs("cs_test_123", 1).
					WillReturnRows(rows)
			},
			expected: &domain.Fulfillment{
				ID:             "rec-uuid",
				CheckoutID:     "cs_test_123",
				OrderSessionID: "sess-42",
				CustomerName:   "Иван",
				CustomerNumber: "+966501234567",
				TotalAmount:    5500,
				Status:         domain.FulfillmentCompleted,
				FailedSinks:    []string{"kitchen", "invoice"},
				CreatedAt:      now,
				UpdatedAt:      now,
			},
		},
		{
			name: "запись не найдена",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM `fulfillments`").
					WithArgs("cs_test_123", 1).
					WillReturnRows(sqlmock.NewRows(columns))
			},
			expectedErr: domain.ErrFulfillmentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			repo := NewRepository(gormDB)
			tt.mockSetup(mock)

			f, err := repo.GetByCheckoutID(context.Background(), "cs_test_123")

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, f)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, f)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
