package wompiwebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/internal/orders"
	"github.com/angelmondragon/floristeria-backend/pkg/db"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
	"github.com/angelmondragon/floristeria-backend/pkg/metrics"
	"github.com/angelmondragon/floristeria-backend/pkg/outbox"
	"github.com/angelmondragon/floristeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/floristeria-backend/pkg/wompi"
)

const provider = "wompi"

// providerTransactionKey is the partial unique index on
// payments.provider_transaction_id.
const providerTransactionKey = "payments_provider_transaction_id_key"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// amountTolerance bounds the gap between the notified and the recorded
// amount. A gap of exactly one cent is already a mismatch.
var amountTolerance = decimal.RequireFromString("0.01")

var nowUTC = func() time.Time { return time.Now().UTC() }

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, transactionID string) (bool, error)
	Release(ctx context.Context, transactionID string) error
}

// Gateway reads a transaction back from the provider.
type Gateway interface {
	GetTransaction(ctx context.Context, transactionID string) (wompi.Transaction, error)
}

type Service interface {
	HandleNotification(ctx context.Context, raw []byte, signature string) (*Result, error)
	VerifyPayment(ctx context.Context, reference, transactionID string, actor orders.Actor) (*VerifyResult, error)
}

// Result is the webhook response body.
type Result struct {
	Status        string     `json:"status"`
	Message       string     `json:"message"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
}

type VerifyResult struct {
	Reference     string             `json:"reference"`
	OrderID       uuid.UUID          `json:"order_id"`
	PaymentID     uuid.UUID          `json:"payment_id"`
	State         enums.PaymentState `json:"state"`
	OrderState    enums.OrderState   `json:"order_state"`
	TransactionID string             `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal    `json:"amount"`
}

type ServiceParams struct {
	Repo          orders.Repository
	Ledger        orders.Service
	Tx            txRunner
	Outbox        outboxPublisher
	Guard         deliveryGuard
	Gateway       Gateway
	Metrics       *metrics.WebhookMetrics
	Secret        string
	AllowUnsigned bool
	Logger        *logger.Logger
}

type service struct {
	repo          orders.Repository
	ledger        orders.Service
	tx            txRunner
	outbox        outboxPublisher
	guard         deliveryGuard
	gateway       Gateway
	metrics       *metrics.WebhookMetrics
	secret        string
	allowUnsigned bool
	logg          *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Ledger == nil {
		return nil, errors.New("order ledger required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	if strings.TrimSpace(params.Secret) == "" && !params.AllowUnsigned {
		return nil, errors.New("webhook secret required unless unsigned webhooks are allowed")
	}
	return &service{
		repo:          params.Repo,
		ledger:        params.Ledger,
		tx:            params.Tx,
		outbox:        params.Outbox,
		guard:         params.Guard,
		gateway:       params.Gateway,
		metrics:       params.Metrics,
		secret:        params.Secret,
		allowUnsigned: params.AllowUnsigned,
		logg:          params.Logger,
	}, nil
}

// settlement is one terminal result about to be applied to a payment.
type settlement struct {
	reference     string
	transactionID string
	amount        decimal.Decimal
	state         enums.PaymentState
}

func (s *service) HandleNotification(ctx context.Context, raw []byte, signature string) (*Result, error) {
	notification, err := ParseNotification(raw)
	if err != nil {
		s.observe("malformed")
		return nil, err
	}
	reference := notification.Reference()
	txID := notification.TransactionID()
	ctx = s.withFields(ctx, map[string]any{"reference": reference, "transaction_id": txID})

	payment, err := s.repo.FindPaymentByReference(ctx, reference)
	if err != nil {
		s.observe("unmatched")
		return nil, mapPaymentLoad(err)
	}
	ctx = s.withFields(ctx, map[string]any{"order_id": payment.OrderID.String()})

	if err := s.checkAmount(ctx, payment, *notification.Monto); err != nil {
		s.observe("amount_mismatch")
		return nil, err
	}
	if err := s.checkSignature(ctx, raw, signature); err != nil {
		s.observe("bad_signature")
		return nil, err
	}
	state, err := Classify(notification.ResultadoTransaccion)
	if err != nil {
		s.observe("unknown_result")
		return nil, err
	}

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, txID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook delivery guard")
		}
		if seen {
			s.observe("duplicate")
			s.info(ctx, "wompi webhook duplicate delivery")
			return s.result(payment.OrderID, txID, "already processed"), nil
		}
	}

	applied, err := s.settle(ctx, settlement{
		reference:     reference,
		transactionID: txID,
		amount:        *notification.Monto,
		state:         state,
	})
	if err != nil {
		if s.guard != nil {
			if releaseErr := s.guard.Release(ctx, txID); releaseErr != nil && s.logg != nil {
				s.logg.Error(ctx, "release webhook guard", releaseErr)
			}
		}
		s.observe("failed")
		if pkgerrors.CodeOf(err) == pkgerrors.CodeDependency {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply payment notification")
		}
		return nil, err
	}
	if !applied {
		s.observe("duplicate")
		return s.result(payment.OrderID, txID, "already processed"), nil
	}

	s.observe(string(state))
	if state == enums.PaymentStateApproved {
		return s.result(payment.OrderID, txID, "payment approved"), nil
	}
	return s.result(payment.OrderID, txID, "payment declined"), nil
}

func (s *service) VerifyPayment(ctx context.Context, reference, transactionID string, actor orders.Actor) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	transactionID = strings.TrimSpace(transactionID)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	payment, err := s.repo.FindPaymentByReference(ctx, reference)
	if err != nil {
		return nil, mapPaymentLoad(err)
	}
	order, err := s.repo.FindOrder(ctx, payment.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.IsAdmin() && (order.CustomerID == nil || *order.CustomerID != actor.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to caller")
	}

	if transactionID == "" || s.gateway == nil || !payment.State.IsLive() {
		return verifyResult(payment, order.State), nil
	}

	txn, err := s.gateway.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Reference != reference {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction does not belong to this reference").
			WithDetails(map[string]any{"reference": reference, "transaction_reference": txn.Reference})
	}
	state := classifyGatewayStatus(txn.Status)
	if state == enums.PaymentStatePending && txn.Approved {
		state = enums.PaymentStateApproved
	}
	if !state.IsTerminal() {
		result := verifyResult(payment, order.State)
		result.TransactionID = transactionID
		return result, nil
	}

	ctx = s.withFields(ctx, map[string]any{"reference": reference, "transaction_id": transactionID})
	if !txn.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway transaction carries no amount")
	}
	if err := s.checkAmount(ctx, payment, txn.Amount); err != nil {
		return nil, err
	}
	if _, err := s.settle(ctx, settlement{
		reference:     reference,
		transactionID: transactionID,
		amount:        txn.Amount,
		state:         state,
	}); err != nil {
		return nil, err
	}

	payment, err = s.repo.FindPaymentByReference(ctx, reference)
	if err != nil {
		return nil, mapPaymentLoad(err)
	}
	order, err = s.repo.FindOrder(ctx, payment.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return verifyResult(payment, order.State), nil
}

// settle applies a terminal result inside one transaction. It returns false
// when the locked payment was already terminal.
func (s *service) settle(ctx context.Context, in settlement) (bool, error) {
	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.LockPaymentByReference(ctx, in.reference)
		if err != nil {
			return mapPaymentLoad(err)
		}
		if payment.State.IsTerminal() {
			return nil
		}
		if orderID, ok := wompi.OrderIDFromReference(payment.ExternalReference); !ok || orderID != payment.OrderID {
			return pkgerrors.New(pkgerrors.CodeInternal, "payment reference does not match its order").
				WithDetails(map[string]any{"reference": payment.ExternalReference, "order_id": payment.OrderID.String()})
		}

		settledAt := nowUTC()
		if err := repo.SettlePayment(ctx, payment.ID, in.state, in.transactionID, settledAt); err != nil {
			if db.IsUniqueViolation(err, providerTransactionKey) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction already settled another payment").
					WithDetails(map[string]any{"transaction_id": in.transactionID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
		}

		eventType := enums.EventPaymentDeclined
		if in.state == enums.PaymentStateApproved {
			eventType = enums.EventPaymentApproved
			if _, err := s.ledger.ApplyTransition(ctx, tx, payment.OrderID, enums.OrderStateCompleted, "payment_approved", orders.SystemActor); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{Role: "system"},
			Data: payloads.PaymentSettledEvent{
				PaymentID:             payment.ID,
				OrderID:               payment.OrderID,
				ExternalReference:     payment.ExternalReference,
				ProviderTransactionID: in.transactionID,
				Amount:                in.amount,
				State:                 in.state,
				SettledAt:             settledAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment event")
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.info(ctx, fmt.Sprintf("payment %s", in.state))
	}
	return applied, nil
}

func (s *service) checkAmount(ctx context.Context, payment *models.Payment, notified decimal.Decimal) error {
	if payment.Amount.Sub(notified).Abs().LessThan(amountTolerance) {
		return nil
	}
	if s.logg != nil {
		s.logg.Warn(s.withFields(ctx, map[string]any{
			"expected_amount": payment.Amount.StringFixed(2),
			"received_amount": notified.StringFixed(2),
		}), "wompi webhook amount mismatch")
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "notified amount does not match payment").
		WithDetails(map[string]any{
			"expected": payment.Amount.StringFixed(2),
			"received": notified.StringFixed(2),
		})
}

func (s *service) checkSignature(ctx context.Context, raw []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		if s.allowUnsigned {
			if s.logg != nil {
				s.logg.Warn(ctx, "accepting unsigned wompi webhook")
			}
			return nil
		}
		if s.logg != nil {
			s.logg.Warn(ctx, "wompi webhook missing signature")
		}
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing webhook signature")
	}
	if !VerifySignature(s.secret, raw, signature) {
		if s.logg != nil {
			s.logg.Warn(ctx, "wompi webhook signature mismatch")
		}
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	return nil
}

func (s *service) result(orderID uuid.UUID, txID, message string) *Result {
	id := orderID
	return &Result{Status: StatusSuccess, Message: message, OrderID: &id, TransactionID: txID}
}

func (s *service) observe(outcome string) {
	s.metrics.Observe(provider, outcome)
}

func (s *service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *service) withFields(ctx context.Context, fields map[string]any) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, fields)
}

func verifyResult(payment *models.Payment, orderState enums.OrderState) *VerifyResult {
	result := &VerifyResult{
		Reference:  payment.ExternalReference,
		OrderID:    payment.OrderID,
		PaymentID:  payment.ID,
		State:      payment.State,
		OrderState: orderState,
		Amount:     payment.Amount,
	}
	if payment.ProviderTransactionID != nil {
		result.TransactionID = *payment.ProviderTransactionID
	}
	return result
}

func mapPaymentLoad(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment reference not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
}
