package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/internal/orders"
	"github.com/angelmondragon/floristeria-backend/internal/users"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
	"github.com/angelmondragon/floristeria-backend/pkg/wompi"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway creates hosted payment links.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, in wompi.LinkRequest) (wompi.PaymentLink, error)
}

type contactReader interface {
	Contact(ctx context.Context, id uuid.UUID) (users.Contact, error)
}

// Service turns carts into pending orders with a live gateway payment.
type Service interface {
	Execute(ctx context.Context, customerID uuid.UUID, comments *string) (*Result, error)
	RetryPayment(ctx context.Context, customerID, orderID uuid.UUID) (*Result, error)
}

// Result is the order and the payment the customer should complete.
type Result struct {
	Order   *models.Order
	Payment *models.Payment
}

// View is the response body for checkout endpoints.
type View struct {
	OrderID    uuid.UUID          `json:"order_id"`
	State      enums.OrderState   `json:"state"`
	Total      decimal.Decimal    `json:"total"`
	PaymentID  uuid.UUID          `json:"payment_id"`
	Payment    enums.PaymentState `json:"payment_state"`
	Reference  string             `json:"reference"`
	PaymentURL *string            `json:"payment_url,omitempty"`
}

func (r *Result) View() View {
	return View{
		OrderID:    r.Order.ID,
		State:      r.Order.State,
		Total:      r.Order.Total(),
		PaymentID:  r.Payment.ID,
		Payment:    r.Payment.State,
		Reference:  r.Payment.ExternalReference,
		PaymentURL: r.Payment.PaymentURL,
	}
}

type ServiceParams struct {
	Repo     orders.Repository
	Ledger   orders.Service
	Tx       txRunner
	Gateway  Gateway
	Contacts contactReader
	Logger   *logger.Logger
}

type service struct {
	repo     orders.Repository
	ledger   orders.Service
	tx       txRunner
	gateway  Gateway
	contacts contactReader
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		repo:     params.Repo,
		ledger:   params.Ledger,
		tx:       params.Tx,
		gateway:  params.Gateway,
		contacts: params.Contacts,
		logg:     params.Logger,
	}, nil
}

// Execute checks out the customer's cart. The gateway call happens before any
// transaction opens; if it fails nothing is persisted.
func (s *service) Execute(ctx context.Context, customerID uuid.UUID, comments *string) (*Result, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	cart, err := s.repo.FindCart(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart.State != enums.OrderStateCart {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is no longer a cart")
	}
	if len(cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no lines")
	}

	total := cart.Total()
	link, reference, err := s.createLink(ctx, cart, customerID, total)
	if err != nil {
		return nil, err
	}

	var result Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockOrder(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		if locked.State != enums.OrderStateCart {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is no longer a cart")
		}
		if !locked.Total().Equal(total) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout").
				WithDetails(map[string]any{"expected": total.StringFixed(2), "current": locked.Total().StringFixed(2)})
		}

		payment, err := s.supersede(ctx, repo, locked.ID, total, reference, link)
		if err != nil {
			return err
		}
		order, err := s.ledger.Checkout(ctx, tx, locked, comments)
		if err != nil {
			return err
		}
		result = Result{Order: order, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logCreated(ctx, &result, "checkout completed")
	return &result, nil
}

// RetryPayment replaces the live payment of a pending order with a fresh link.
func (s *service) RetryPayment(ctx context.Context, customerID, orderID uuid.UUID) (*Result, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	if order.State != enums.OrderStatePending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order is %s", order.State))
	}

	total := order.Total()
	link, reference, err := s.createLink(ctx, order, customerID, total)
	if err != nil {
		return nil, err
	}

	var result Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if locked.State != enums.OrderStatePending {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order is %s", locked.State))
		}
		payment, err := s.supersede(ctx, repo, locked.ID, total, reference, link)
		if err != nil {
			return err
		}
		result = Result{Order: locked, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logCreated(ctx, &result, "payment retry created")
	return &result, nil
}

func (s *service) createLink(ctx context.Context, order *models.Order, customerID uuid.UUID, total decimal.Decimal) (wompi.PaymentLink, string, error) {
	reference := wompi.NewReference(order.ID)
	link, err := s.gateway.CreatePaymentLink(ctx, wompi.LinkRequest{
		Amount:        total,
		Description:   describe(order),
		Reference:     reference,
		CustomerEmail: s.customerEmail(ctx, customerID),
	})
	if err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id":  order.ID.String(),
				"reference": reference,
			})
			s.logg.Error(logCtx, "create payment link failed", err)
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
			return wompi.PaymentLink{}, "", err
		}
		return wompi.PaymentLink{}, "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment link")
	}
	return link, reference, nil
}

func (s *service) supersede(ctx context.Context, repo orders.Repository, orderID uuid.UUID, total decimal.Decimal, reference string, link wompi.PaymentLink) (*models.Payment, error) {
	if _, err := repo.ExpireLivePayments(ctx, orderID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire live payments")
	}
	payment := &models.Payment{
		OrderID:           orderID,
		Method:            enums.PaymentMethodWompi,
		Amount:            total,
		State:             enums.PaymentStateProcessing,
		ExternalReference: reference,
		PaymentURL:        optional(link.URL),
		ProviderLinkID:    optional(link.ProviderID),
	}
	if _, err := repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

func (s *service) customerEmail(ctx context.Context, customerID uuid.UUID) string {
	if s.contacts == nil {
		return ""
	}
	contact, err := s.contacts.Contact(ctx, customerID)
	if err != nil {
		return ""
	}
	return contact.Email
}

func (s *service) logCreated(ctx context.Context, result *Result, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   result.Order.ID.String(),
		"payment_id": result.Payment.ID.String(),
		"reference":  result.Payment.ExternalReference,
		"amount":     result.Payment.Amount.StringFixed(2),
	})
	s.logg.Info(logCtx, msg)
}

func describe(order *models.Order) string {
	count := order.ItemCount()
	noun := "artículos"
	if count == 1 {
		noun = "artículo"
	}
	return fmt.Sprintf("Pedido #%s (%d %s)", strings.ToUpper(order.ID.String()[:8]), count, noun)
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
