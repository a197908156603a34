package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/internal/catalog"
	"github.com/angelmondragon/floristeria-backend/internal/users"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
	"github.com/angelmondragon/floristeria-backend/pkg/outbox"
	"github.com/angelmondragon/floristeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/floristeria-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type contactDirectory interface {
	ContactTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (users.Contact, error)
}

// Service is the order ledger. Every state change and its outbox events
// commit in one transaction.
type Service interface {
	Checkout(ctx context.Context, tx *gorm.DB, order *models.Order, comments *string) (*models.Order, error)
	ApplyTransition(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, to enums.OrderState, reason string, actor Actor) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) error
	AdminTransition(ctx context.Context, orderID uuid.UUID, newState string, actor Actor) error
	CreateGuestOrder(ctx context.Context, input GuestOrderInput) (*GuestOrderResult, error)
	GetDetail(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, state *enums.OrderState) (*OrderList, error)
}

type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Catalog  catalog.Provider
	Contacts contactDirectory
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	catalog  catalog.Provider
	contacts contactDirectory
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog provider required")
	}
	if params.Contacts == nil {
		return nil, fmt.Errorf("contact directory required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		catalog:  params.Catalog,
		contacts: params.Contacts,
		logg:     params.Logger,
	}, nil
}

// Checkout moves a locked cart to pending inside the caller's transaction.
func (s *service) Checkout(ctx context.Context, tx *gorm.DB, order *models.Order, comments *string) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout requires a transaction")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.State != enums.OrderStateCart {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is no longer a cart").
			WithDetails(map[string]any{"state": order.State})
	}
	if len(order.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no lines")
	}

	updates := map[string]any{}
	if comments != nil {
		trimmed := strings.TrimSpace(*comments)
		updates["comments"] = trimmed
		comments = &trimmed
	}
	ok, err := s.repo.WithTx(tx).UpdateOrderState(ctx, order.ID, enums.OrderStateCart, enums.OrderStatePending, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order state")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is no longer a cart")
	}

	order.State = enums.OrderStatePending
	if comments != nil {
		order.Comments = comments
	}
	actor := Actor{Role: enums.RoleCustomer}
	if order.CustomerID != nil {
		actor.UserID = *order.CustomerID
	}
	if err := s.recordTransition(ctx, tx, order, enums.OrderStateCart, enums.OrderStatePending, "checkout", actor); err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyTransition locks the order and moves it to the target state. Moving an
// order to the state it already holds is a no-op.
func (s *service) ApplyTransition(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, to enums.OrderState, reason string, actor Actor) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transition requires a transaction")
	}
	order, err := s.repo.WithTx(tx).LockOrder(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if err := s.transition(ctx, tx, order, to, reason, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderState, reason string, actor Actor) error {
	from := order.State
	if from == to {
		return nil
	}
	if from.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order is already %s", from)).
			WithDetails(map[string]any{"state": from})
	}
	ok, err := s.repo.WithTx(tx).UpdateOrderState(ctx, order.ID, from, to, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order state")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order state changed concurrently")
	}
	order.State = to
	return s.recordTransition(ctx, tx, order, from, to, reason, actor)
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !actor.IsAdmin() && !actor.owns(order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.State.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order is already %s", order.State))
		}
		if _, err := repo.ExpireLivePayments(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire live payments")
		}
		reason := "cancelled_by_customer"
		if actor.IsAdmin() {
			reason = "cancelled_by_admin"
		}
		return s.transition(ctx, tx, order, enums.OrderStateCancelled, reason, actor)
	})
}

func (s *service) AdminTransition(ctx context.Context, orderID uuid.UUID, newState string, actor Actor) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	target, err := enums.ParseOrderState(newState)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order state")
	}
	if target == enums.OrderStateCart {
		return pkgerrors.New(pkgerrors.CodeValidation, "orders cannot return to cart")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.State.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order is already %s", order.State))
		}
		if order.State == enums.OrderStateCart {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart has not been checked out")
		}
		if target == enums.OrderStateCancelled {
			if _, err := repo.ExpireLivePayments(ctx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire live payments")
			}
		}
		return s.transition(ctx, tx, order, target, "admin_transition", actor)
	})
}

func (s *service) recordTransition(ctx context.Context, tx *gorm.DB, order *models.Order, from, to enums.OrderState, reason string, actor Actor) error {
	ref := actorRef(actor)
	changed := payloads.OrderStateChangedEvent{
		OrderID:   order.ID,
		FromState: from,
		ToState:   to,
		Reason:    reason,
		ChangedAt: nowUTC(),
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         ref,
		Data:          changed,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order_state_changed")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"from_state": from,
			"to_state":   to,
			"reason":     reason,
		})
		s.logg.Info(logCtx, "order state changed")
	}

	return s.enqueueNotification(ctx, tx, order, to, reason, ref)
}

func (s *service) enqueueNotification(ctx context.Context, tx *gorm.DB, order *models.Order, state enums.OrderState, reason string, ref *outbox.ActorRef) error {
	recipient, ok := s.recipientFor(ctx, tx, order)
	if !ok {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "notification skipped: no recipient address")
		}
		return nil
	}

	msg := composeNotification(order, recipient, state, reason)
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         ref,
		Data:          msg,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit notification_requested")
	}
	return nil
}

func (s *service) recipientFor(ctx context.Context, tx *gorm.DB, order *models.Order) (recipient, bool) {
	if order.IsGuest() {
		if order.GuestEmail == nil || strings.TrimSpace(*order.GuestEmail) == "" {
			return recipient{}, false
		}
		return recipient{Name: deref(order.GuestName), Email: strings.TrimSpace(*order.GuestEmail)}, true
	}
	contact, err := s.contacts.ContactTx(ctx, tx, *order.CustomerID)
	if err != nil {
		if s.logg != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "load notification contact", err)
		}
		return recipient{}, false
	}
	if strings.TrimSpace(contact.Email) == "" {
		return recipient{}, false
	}
	return recipient{Name: contact.Name, Email: contact.Email}, true
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.IsSystem() {
		return &outbox.ActorRef{Role: "system"}
	}
	ref := &outbox.ActorRef{Role: actor.Role.String()}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		ref.UserID = &id
	}
	return ref
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
