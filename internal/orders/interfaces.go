package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	"github.com/angelmondragon/floristeria-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines persistence for the order aggregate: orders, their lines
// and their payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindCart(ctx context.Context, customerID uuid.UUID) (*models.Order, error)
	LockCart(ctx context.Context, customerID uuid.UUID) (*models.Order, error)
	UpdateOrderState(ctx context.Context, orderID uuid.UUID, from, to enums.OrderState, updates map[string]any) (bool, error)

	CreateLines(ctx context.Context, lines []models.OrderLine) error
	FindLine(ctx context.Context, orderID, lineID uuid.UUID) (*models.OrderLine, error)
	FindLineByArrangement(ctx context.Context, orderID, arrangementID uuid.UUID) (*models.OrderLine, error)
	UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error

	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	LockPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	FindLatestPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindLivePayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	ExpireLivePayments(ctx context.Context, orderID uuid.UUID) (int64, error)
	UpdatePaymentAmount(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal) error
	SettlePayment(ctx context.Context, paymentID uuid.UUID, state enums.PaymentState, transactionID string, settledAt time.Time) error

	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListOrders(ctx context.Context, params pagination.Params, state *enums.OrderState) ([]models.Order, string, error)
}
